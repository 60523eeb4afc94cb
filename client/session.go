// Package client plays on a game server: it joins, keeps the board up to date
// from the server's messages and answers every tick with the engine's move.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net"
	"strings"
	"time"

	"github.com/brensch/lightcycle/engine"
	"github.com/brensch/lightcycle/game"
	"github.com/brensch/lightcycle/protocol"
	"github.com/google/uuid"
)

// ErrKicked means the server removed us; the session ends and Run reconnects.
var ErrKicked = errors.New("client: kicked by server")

// Decider chooses a move for the current board.
type Decider interface {
	Decide(state *game.State) (engine.Decision, error)
}

// Session is one connection to the server. It owns the board state; nothing
// else mutates it.
type Session struct {
	conn      net.Conn
	dec       *protocol.Decoder
	enc       *protocol.Encoder
	decider   Decider
	observers []Observer
	logger    *slog.Logger

	state  *game.State
	names  map[game.PlayerID]string
	gameID uuid.UUID
	tick   int
	games  int
}

func NewSession(conn net.Conn, decider Decider, logger *slog.Logger, observers ...Observer) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		conn:      conn,
		dec:       protocol.NewDecoder(conn, logger),
		enc:       protocol.NewEncoder(conn, logger),
		decider:   decider,
		observers: observers,
		logger:    logger,
		state:     game.NewState(),
		names:     make(map[game.PlayerID]string),
	}
}

// Games returns how many games started during this session.
func (s *Session) Games() int {
	return s.games
}

// Chat sends a chat line.
func (s *Session) Chat(text string) error {
	return s.enc.Send(protocol.Chat(text))
}

// Play joins with the given credentials and processes messages until the
// connection fails, the server kicks us or ctx is cancelled. Closing the
// connection is left to the caller.
func (s *Session) Play(ctx context.Context, user, password, greeting string) error {
	stop := context.AfterFunc(ctx, func() {
		s.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	s.logger.Info("Joining game", "user", user)
	if err := s.enc.Send(protocol.Join(user, password)); err != nil {
		return fmt.Errorf("join: %w", err)
	}
	if greeting != "" {
		if err := s.Chat(greeting); err != nil {
			return fmt.Errorf("greeting: %w", err)
		}
	}

	for {
		a, err := s.dec.Next()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read: %w", err)
		}
		if err := s.handle(a); err != nil {
			return err
		}
	}
}

// Apply updates state from the answers that change the board (game, pos and
// die) and reports whether a tick should be decided.
func Apply(state *game.State, a protocol.Answer) (tick bool) {
	switch a.Kind {
	case protocol.KindGame:
		state.ApplyGameStart(a.Size, a.Player)
	case protocol.KindPos:
		state.ApplyPosition(a.Player, a.Pos)
	case protocol.KindDie:
		state.ApplyDeaths(a.Dead)
	case protocol.KindTick:
		return true
	}
	return false
}

func (s *Session) handle(a protocol.Answer) error {
	switch a.Kind {
	case protocol.KindMotd:
		s.logger.Warn("Message of the day", "msg", a.Text)
	case protocol.KindError:
		s.logger.Warn("Error from server", "msg", a.Text)
		if strings.Contains(a.Text, "kicked") {
			return fmt.Errorf("%w: %s", ErrKicked, a.Text)
		}
	case protocol.KindGame:
		Apply(s.state, a)
		s.gameID = uuid.New()
		s.tick = 0
		s.games++
		s.logger.Info("Game started", "game", s.gameID, "width", a.Size.Width, "height", a.Size.Height, "me", a.Player)
		for _, o := range s.observers {
			o.GameStarted(s.gameID, a.Size, a.Player)
		}
	case protocol.KindPos:
		if !s.state.Size.Contains(a.Pos) {
			s.logger.Debug("Ignored position", "player", a.Player, "x", a.Pos.X, "y", a.Pos.Y)
		}
		Apply(s.state, a)
	case protocol.KindDie:
		Apply(s.state, a)
		for _, id := range a.Dead {
			s.logger.Info("Player died", "player", id, "name", s.names[id], "me", id == s.state.MyID)
		}
	case protocol.KindTick:
		return s.onTick()
	case protocol.KindWin, protocol.KindLose:
		won := a.Kind == protocol.KindWin
		if won {
			s.logger.Warn("We won!", "wins", a.Wins, "losses", a.Losses)
		} else {
			s.logger.Warn("We lost!", "wins", a.Wins, "losses", a.Losses)
		}
		out := Outcome{GameID: s.gameID, Won: won, Wins: a.Wins, Losses: a.Losses, Ticks: s.tick}
		for _, o := range s.observers {
			o.GameEnded(out)
		}
	case protocol.KindMessage:
		s.logger.Info("Chat", "player", a.Player, "name", s.names[a.Player], "text", a.Text)
	case protocol.KindPlayer:
		s.names[a.Player] = a.Text
	}
	return nil
}

func (s *Session) onTick() error {
	s.tick++
	d, err := s.decider.Decide(s.state)
	switch {
	case errors.Is(err, engine.ErrNotInitialized):
		return nil
	case errors.Is(err, engine.ErrNoLegalMove):
		s.notify(nil)
		return nil
	case err != nil:
		s.logger.Error("Decide failed", "tick", s.tick, "error", err)
		return nil
	}
	if err := s.enc.Send(protocol.Move(d.Move)); err != nil {
		return err
	}
	s.notify(&d)
	return nil
}

func (s *Session) notify(d *engine.Decision) {
	if len(s.observers) == 0 {
		return
	}
	f := Frame{
		GameID:   s.gameID,
		Tick:     s.tick,
		Time:     time.Now(),
		Board:    s.state.Clone(),
		Names:    maps.Clone(s.names),
		Decision: d,
	}
	for _, o := range s.observers {
		o.Tick(f)
	}
}
