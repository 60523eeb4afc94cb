package rules

import (
	"slices"

	"github.com/brensch/lightcycle/game"
)

// Arena referees a game locally. It owns the authoritative board; players
// only ever see it through the events returned by Step.
type Arena struct {
	board   *game.State
	last    map[game.PlayerID]game.Direction
	tick    int
	players int
}

// StepResult lists what happened during one tick, in the order a server would
// announce it.
type StepResult struct {
	Tick      int
	Positions []game.PlayerHead
	Dead      []game.PlayerID
}

// NewArena creates a board of the given size with every player placed on its
// spawn cell.
func NewArena(size game.Size, spawns []game.PlayerHead) *Arena {
	board := game.NewState()
	board.ApplyGameStart(size, 0)
	a := &Arena{
		board:   board,
		last:    make(map[game.PlayerID]game.Direction, len(spawns)),
		players: len(spawns),
	}
	for _, s := range spawns {
		board.ApplyPosition(s.Player, s.Pos)
		a.last[s.Player] = game.MoveUp
	}
	return a
}

// Board returns a copy of the authoritative board.
func (a *Arena) Board() *game.State {
	return a.board.Clone()
}

// Alive returns the ids of the players still on the board, sorted.
func (a *Arena) Alive() []game.PlayerID {
	out := make([]game.PlayerID, 0, len(a.board.Heads))
	for p := range a.board.Heads {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// IsOver returns true once at most one player is left, or for a solo game
// once the only player has died.
func (a *Arena) IsOver() bool {
	if a.players <= 1 {
		return len(a.board.Heads) == 0
	}
	return len(a.board.Heads) <= 1
}

// Step advances every live player simultaneously. Players without a move keep
// their previous direction. A player dies when it enters an occupied cell or
// when two or more players enter the same cell; dead trails are removed.
func (a *Arena) Step(moves map[game.PlayerID]game.Direction) StepResult {
	a.tick++
	alive := a.Alive()

	// 1. Calculate new heads
	dests := make(map[game.PlayerID]game.Position, len(alive))
	entering := make(map[game.Position]int, len(alive))
	for _, p := range alive {
		dir, ok := moves[p]
		if !ok {
			dir = a.last[p]
		}
		a.last[p] = dir
		dest := a.board.Heads[p].Move(dir, a.board.Size)
		dests[p] = dest
		entering[dest]++
	}

	// 2. Collisions against the board as it was before the tick, then head-on.
	res := StepResult{Tick: a.tick}
	for _, p := range alive {
		dest := dests[p]
		if a.board.IsOccupied(dest) || entering[dest] > 1 {
			res.Dead = append(res.Dead, p)
			continue
		}
		res.Positions = append(res.Positions, game.PlayerHead{Player: p, Pos: dest})
	}

	// 3. Apply
	for _, ph := range res.Positions {
		a.board.ApplyPosition(ph.Player, ph.Pos)
	}
	a.board.ApplyDeaths(res.Dead)
	for _, p := range res.Dead {
		delete(a.last, p)
	}
	return res
}
