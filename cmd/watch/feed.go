package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/brensch/lightcycle/spectate"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

type helloMsg spectate.Hello
type startMsg spectate.GameStart
type frameMsg spectate.FrameView
type endMsg spectate.GameEnd

// disconnectedMsg is sent when the feed drops; err is nil on a clean close.
type disconnectedMsg struct{ err error }

// decodeEvent turns one feed message into a tea.Msg. Unknown event types
// decode to nil.
func decodeEvent(raw []byte) (tea.Msg, error) {
	var ev spectate.Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("failed to parse event: %w", err)
	}

	var (
		msg tea.Msg
		err error
	)
	switch ev.Type {
	case spectate.EventHello:
		var v spectate.Hello
		err = json.Unmarshal(ev.Data, &v)
		msg = helloMsg(v)
	case spectate.EventGameStart:
		var v spectate.GameStart
		err = json.Unmarshal(ev.Data, &v)
		msg = startMsg(v)
	case spectate.EventFrame:
		var v spectate.FrameView
		err = json.Unmarshal(ev.Data, &v)
		msg = frameMsg(v)
	case spectate.EventGameEnd:
		var v spectate.GameEnd
		err = json.Unmarshal(ev.Data, &v)
		msg = endMsg(v)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ev.Type, err)
	}
	return msg, nil
}

// follow streams the feed at url into out until ctx is done, redialling
// after every failure.
func follow(ctx context.Context, url string, timeout, retry time.Duration, out chan<- tea.Msg) {
	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	for {
		err := stream(ctx, dialer, url, out)
		if ctx.Err() != nil {
			return
		}
		if !deliver(ctx, out, disconnectedMsg{err: err}) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(retry):
		}
	}
}

func stream(ctx context.Context, dialer websocket.Dialer, url string, out chan<- tea.Msg) error {
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read error: %w", err)
		}
		msg, err := decodeEvent(message)
		if err != nil || msg == nil {
			continue
		}
		if !deliver(ctx, out, msg) {
			return ctx.Err()
		}
	}
}

func deliver(ctx context.Context, out chan<- tea.Msg, msg tea.Msg) bool {
	select {
	case out <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}
