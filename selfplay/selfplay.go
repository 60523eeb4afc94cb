// Package selfplay pits several engines against each other on a local board.
// Each engine only sees the board through the same protocol lines a server
// would send, so the whole client-side pipeline is exercised.
package selfplay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/brensch/lightcycle/client"
	"github.com/brensch/lightcycle/engine"
	"github.com/brensch/lightcycle/game"
	"github.com/brensch/lightcycle/protocol"
	"github.com/brensch/lightcycle/rules"
	"github.com/google/uuid"
)

// Config describes one self-play game.
type Config struct {
	Width    uint32
	Height   uint32
	Players  int
	MaxTicks int
	Engine   engine.Config
}

func DefaultConfig() Config {
	return Config{
		Width:    32,
		Height:   24,
		Players:  4,
		MaxTicks: 10000,
		Engine:   engine.DefaultConfig(),
	}
}

// Ego is the player whose view is reported to observers.
const Ego game.PlayerID = 1

// Step is reported after every tick.
type Step struct {
	Tick  int
	Board *game.State
	Moves map[game.PlayerID]game.Direction
	Dead  []game.PlayerID
}

// Result summarises a finished game.
type Result struct {
	GameID uuid.UUID
	Ticks  int
	// Winner is 0 when nobody survived or MaxTicks was reached.
	Winner game.PlayerID
}

type player struct {
	id     game.PlayerID
	engine *engine.Engine
	state  *game.State
	alive  bool
}

// PlayGame runs one game to the end. onStep may be nil.
func PlayGame(ctx context.Context, cfg Config, seed int64, logger *slog.Logger, onStep func(Step), observers ...client.Observer) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	size := game.Size{Width: cfg.Width, Height: cfg.Height}
	if cfg.Players < 1 || cfg.Players > size.Cells() {
		return Result{}, fmt.Errorf("cannot place %d players on a %dx%d board", cfg.Players, cfg.Width, cfg.Height)
	}
	if err := cfg.Engine.Validate(); err != nil {
		return Result{}, fmt.Errorf("engine config: %w", err)
	}

	rng := rand.New(rand.NewSource(seed))
	spawns := spawnPositions(rng, size, cfg.Players)
	arena := rules.NewArena(size, spawns)
	res := Result{GameID: uuid.New()}

	players := make([]*player, len(spawns))
	for i, s := range spawns {
		players[i] = &player{
			id:     s.Player,
			engine: engine.New(cfg.Engine, seed+int64(s.Player), logger.With("player", s.Player)),
			state:  game.NewState(),
			alive:  true,
		}
	}

	for _, p := range players {
		if err := deliver(p.state, "game|"+itoa(size.Width)+"|"+itoa(size.Height)+"|"+itoa(uint32(p.id))); err != nil {
			return res, err
		}
	}
	for _, o := range observers {
		o.GameStarted(res.GameID, size, Ego)
	}
	if err := broadcast(players, append(positionLines(spawns), "tick")); err != nil {
		return res, err
	}

	for !arena.IsOver() && res.Ticks < cfg.MaxTicks {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Ticks++

		moves := make(map[game.PlayerID]game.Direction, len(players))
		for _, p := range players {
			if !p.alive {
				continue
			}
			d, err := p.engine.Decide(p.state)
			switch {
			case errors.Is(err, engine.ErrNoLegalMove):
			case err != nil:
				return res, fmt.Errorf("player %d: %w", p.id, err)
			default:
				moves[p.id] = d.Move
			}
			if p.id == Ego {
				frame := client.Frame{GameID: res.GameID, Tick: res.Ticks, Time: time.Now(), Board: p.state.Clone()}
				if err == nil {
					frame.Decision = &d
				}
				for _, o := range observers {
					o.Tick(frame)
				}
			}
		}

		step := arena.Step(moves)
		lines := positionLines(step.Positions)
		if len(step.Dead) > 0 {
			ids := make([]string, len(step.Dead))
			for i, id := range step.Dead {
				ids[i] = itoa(uint32(id))
			}
			lines = append(lines, "die|"+strings.Join(ids, "|"))
		}
		lines = append(lines, "tick")
		if err := broadcast(players, lines); err != nil {
			return res, err
		}
		for _, id := range step.Dead {
			for _, p := range players {
				if p.id == id {
					p.alive = false
				}
			}
			logger.Debug("Player died", "player", id, "tick", res.Ticks)
		}
		if onStep != nil {
			onStep(Step{Tick: res.Ticks, Board: arena.Board(), Moves: moves, Dead: step.Dead})
		}
	}

	if alive := arena.Alive(); len(alive) == 1 {
		res.Winner = alive[0]
	}
	for _, o := range observers {
		o.GameEnded(client.Outcome{GameID: res.GameID, Won: res.Winner == Ego, Ticks: res.Ticks})
	}
	return res, nil
}

// spawnPositions picks n distinct cells, players numbered from 1.
func spawnPositions(rng *rand.Rand, size game.Size, n int) []game.PlayerHead {
	cells := rng.Perm(size.Cells())[:n]
	out := make([]game.PlayerHead, n)
	for i, c := range cells {
		out[i] = game.PlayerHead{
			Player: game.PlayerID(i + 1),
			Pos:    game.Position{X: uint32(c) % size.Width, Y: uint32(c) / size.Width},
		}
	}
	return out
}

func positionLines(heads []game.PlayerHead) []string {
	lines := make([]string, 0, len(heads)+1)
	for _, h := range heads {
		lines = append(lines, "pos|"+itoa(uint32(h.Player))+"|"+itoa(h.Pos.X)+"|"+itoa(h.Pos.Y))
	}
	return lines
}

// broadcast sends lines to every player still in the game.
func broadcast(players []*player, lines []string) error {
	for _, p := range players {
		if !p.alive {
			continue
		}
		for _, l := range lines {
			if err := deliver(p.state, l); err != nil {
				return err
			}
		}
	}
	return nil
}

func deliver(state *game.State, line string) error {
	a, ok, err := protocol.ParseAnswer(line)
	if err != nil {
		return err
	}
	if ok {
		client.Apply(state, a)
	}
	return nil
}

func itoa(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}
