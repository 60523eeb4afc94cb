package client

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/brensch/lightcycle/engine"
	"github.com/brensch/lightcycle/game"
	"github.com/brensch/lightcycle/protocol"
	"github.com/google/uuid"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// pipeServer is the server end of a net.Pipe. Lines the client sends are
// collected on a channel that closes when the client hangs up.
type pipeServer struct {
	conn net.Conn
	recv chan string
}

func newPipe(t *testing.T) (*pipeServer, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	ps := &pipeServer{conn: server, recv: make(chan string, 64)}
	go func() {
		defer close(ps.recv)
		sc := bufio.NewScanner(server)
		for sc.Scan() {
			ps.recv <- sc.Text()
		}
	}()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	return ps, client
}

func (p *pipeServer) send(t *testing.T, lines ...string) {
	t.Helper()
	for _, l := range lines {
		if _, err := io.WriteString(p.conn, l+"\n"); err != nil {
			t.Fatalf("write %q: %v", l, err)
		}
	}
}

func (p *pipeServer) expect(t *testing.T) string {
	t.Helper()
	select {
	case l, ok := <-p.recv:
		if !ok {
			t.Fatalf("client hung up")
		}
		return l
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for client line")
		return ""
	}
}

type recordingObserver struct {
	started []uuid.UUID
	frames  []Frame
	ended   []Outcome
}

func (r *recordingObserver) GameStarted(id uuid.UUID, _ game.Size, _ game.PlayerID) {
	r.started = append(r.started, id)
}
func (r *recordingObserver) Tick(f Frame)        { r.frames = append(r.frames, f) }
func (r *recordingObserver) GameEnded(o Outcome) { r.ended = append(r.ended, o) }

func play(s *Session, ctx context.Context, greeting string) <-chan error {
	done := make(chan error, 1)
	go func() { done <- s.Play(ctx, "bot", "pw", greeting) }()
	return done
}

func wait(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatalf("session did not finish")
		return nil
	}
}

func TestSession_PlaysAGame(t *testing.T) {
	srv, conn := newPipe(t)
	obs := &recordingObserver{}
	s := NewSession(conn, engine.New(engine.DefaultConfig(), 1, quietLogger()), quietLogger(), obs)
	done := play(s, context.Background(), "hello all")

	if got := srv.expect(t); got != "join|bot|pw" {
		t.Fatalf("join line=%q", got)
	}
	if got := srv.expect(t); got != "chat|hello all" {
		t.Fatalf("greeting line=%q", got)
	}

	srv.send(t, "motd|welcome", "game|3|3|1", "player|2|eve", "pos|1|1|1", "pos|2|1|0", "tick")
	move := srv.expect(t)
	if move != "move|left" && move != "move|right" {
		t.Fatalf("move=%q want left or right", move)
	}

	srv.send(t, "lose|0|1", "error|you have been kicked")
	err := wait(t, done)
	if !errors.Is(err, ErrKicked) {
		t.Fatalf("err=%v want ErrKicked", err)
	}

	if len(obs.started) != 1 || len(obs.frames) != 1 || len(obs.ended) != 1 {
		t.Fatalf("observer saw started=%d frames=%d ended=%d", len(obs.started), len(obs.frames), len(obs.ended))
	}
	f := obs.frames[0]
	if f.GameID != obs.started[0] || f.Tick != 1 || f.Decision == nil {
		t.Fatalf("frame=%+v", f)
	}
	if "move|"+f.Decision.Move.String() != move {
		t.Fatalf("frame decision %v does not match sent %q", f.Decision.Move, move)
	}
	if f.Names[2] != "eve" {
		t.Fatalf("names=%v", f.Names)
	}
	if owner, ok := f.Board.Owner(game.Position{X: 1, Y: 0}); !ok || owner != 2 {
		t.Fatalf("frame board missing opponent")
	}
	if o := obs.ended[0]; o.Won || o.Losses != 1 || o.Ticks != 1 || o.GameID != f.GameID {
		t.Fatalf("outcome=%+v", o)
	}
	if s.Games() != 1 {
		t.Fatalf("games=%d", s.Games())
	}
}

func TestSession_NoLegalMoveSendsNothing(t *testing.T) {
	srv, conn := newPipe(t)
	obs := &recordingObserver{}
	s := NewSession(conn, engine.New(engine.DefaultConfig(), 1, quietLogger()), quietLogger(), obs)
	done := play(s, context.Background(), "")
	srv.expect(t)

	srv.send(t, "game|3|3|1", "pos|1|1|1", "pos|2|1|0", "pos|2|0|1", "pos|2|2|1", "pos|2|1|2", "tick", "tick", "error|kicked")
	if err := wait(t, done); !errors.Is(err, ErrKicked) {
		t.Fatalf("err=%v", err)
	}
	conn.Close()

	var rest []string
	for l := range srv.recv {
		rest = append(rest, l)
	}
	if len(rest) != 0 {
		t.Fatalf("client sent %v, want nothing", rest)
	}
	if len(obs.frames) != 2 || obs.frames[0].Decision != nil {
		t.Fatalf("frames=%+v", obs.frames)
	}
}

func TestSession_TickBeforeGameIsIgnored(t *testing.T) {
	srv, conn := newPipe(t)
	s := NewSession(conn, engine.New(engine.DefaultConfig(), 1, quietLogger()), quietLogger())
	done := play(s, context.Background(), "")
	srv.expect(t)

	srv.send(t, "tick", "pos|1|0|0", "unknown|stuff", "game|2|1|1", "pos|1|0|0", "tick")
	if got := srv.expect(t); got != "move|right" && got != "move|left" {
		t.Fatalf("move=%q", got)
	}
	srv.send(t, "")
	if err := wait(t, done); !errors.Is(err, protocol.ErrEmptyLine) {
		t.Fatalf("err=%v want ErrEmptyLine", err)
	}
}

func TestSession_DeathClearsTrail(t *testing.T) {
	srv, conn := newPipe(t)
	obs := &recordingObserver{}
	s := NewSession(conn, engine.New(engine.DefaultConfig(), 1, quietLogger()), quietLogger(), obs)
	done := play(s, context.Background(), "")
	srv.expect(t)

	srv.send(t, "game|4|4|1", "pos|1|0|0", "pos|2|2|2", "pos|3|3|3", "die|2|3", "tick")
	srv.expect(t)
	srv.send(t, "error|kicked")
	wait(t, done)

	board := obs.frames[0].Board
	if board.FreeCells() != 15 {
		t.Fatalf("free=%d want 15", board.FreeCells())
	}
	if heads := board.OpponentHeads(); len(heads) != 0 {
		t.Fatalf("heads=%v", heads)
	}
}

func TestSession_MalformedIsFatal(t *testing.T) {
	srv, conn := newPipe(t)
	s := NewSession(conn, engine.New(engine.DefaultConfig(), 1, quietLogger()), quietLogger())
	done := play(s, context.Background(), "")
	srv.expect(t)

	srv.send(t, "pos|1|x|0")
	if err := wait(t, done); !errors.Is(err, protocol.ErrMalformed) {
		t.Fatalf("err=%v want ErrMalformed", err)
	}
}

func TestSession_OversizedBoardEndsSession(t *testing.T) {
	srv, conn := newPipe(t)
	s := NewSession(conn, engine.New(engine.DefaultConfig(), 1, quietLogger()), quietLogger())
	done := play(s, context.Background(), "")
	srv.expect(t)

	srv.send(t, "game|4294967295|4294967295|1")
	if err := wait(t, done); !errors.Is(err, protocol.ErrMalformed) {
		t.Fatalf("err=%v want ErrMalformed", err)
	}
	if s.Games() != 0 {
		t.Fatalf("games=%d; the board must not be applied", s.Games())
	}
}

func TestSession_CancelStopsPlay(t *testing.T) {
	srv, conn := newPipe(t)
	ctx, cancel := context.WithCancel(context.Background())
	s := NewSession(conn, engine.New(engine.DefaultConfig(), 1, quietLogger()), quietLogger())
	done := play(s, ctx, "")
	srv.expect(t)

	cancel()
	if err := wait(t, done); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", err)
	}
}

func TestBackoff(t *testing.T) {
	b := newBackoff(100*time.Millisecond, 500*time.Millisecond)
	var got []time.Duration
	for i := 0; i < 5; i++ {
		got = append(got, b.next())
	}
	want := []time.Duration{100, 200, 400, 500, 500}
	for i := range want {
		want[i] *= time.Millisecond
	}
	if !slices.Equal(got, want) {
		t.Fatalf("got=%v want=%v", got, want)
	}
	b.reset()
	if d := b.next(); d != 100*time.Millisecond {
		t.Fatalf("after reset=%v", d)
	}
}

func TestRun_ReconnectsAfterKick(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := DefaultConfig()
	cfg.Address = ln.Addr().String()
	cfg.User, cfg.Password = "bot", "pw"
	cfg.ReconnectDelay = 10 * time.Millisecond

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, cfg, engine.New(engine.DefaultConfig(), 1, quietLogger()), quietLogger())
	}()

	for i := 0; i < 2; i++ {
		c, err := ln.Accept()
		if err != nil {
			t.Fatalf("accept %d: %v", i, err)
		}
		line, err := bufio.NewReader(c).ReadString('\n')
		if err != nil || strings.TrimSpace(line) != "join|bot|pw" {
			t.Fatalf("connection %d: line=%q err=%v", i, line, err)
		}
		if i == 0 {
			io.WriteString(c, "error|you were kicked\n")
		}
		defer c.Close()
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err=%v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop")
	}
}

func TestApply(t *testing.T) {
	s := game.NewState()
	for _, line := range []string{"pos|1|0|0", "game|3|2|1", "pos|1|0|0", "pos|2|2|1", "pos|2|9|9", "die|2"} {
		a, ok, err := protocol.ParseAnswer(line)
		if err != nil || !ok {
			t.Fatalf("%q: ok=%v err=%v", line, ok, err)
		}
		if Apply(s, a) {
			t.Fatalf("%q reported a tick", line)
		}
	}
	if s.FreeCells() != 5 || s.MyPos != (game.Position{X: 0, Y: 0}) || len(s.Heads) != 1 {
		t.Fatalf("free=%d my=%v heads=%v", s.FreeCells(), s.MyPos, s.Heads)
	}
	if !Apply(s, protocol.Answer{Kind: protocol.KindTick}) {
		t.Fatalf("tick not reported")
	}
}
