// Package game defines the core game state types for the light-cycle arena.
//
// The State is the agent's model of the toroidal board: who owns each cell and
// where every live player's head currently is. It is cheap to clone so that
// move evaluation can speculate without touching the authoritative copy.
package game

import (
	"slices"
)

// PlayerID identifies a participant for the lifetime of one game.
type PlayerID uint32

// Position is a board coordinate. (0,0) is the top-left cell.
type Position struct {
	X uint32
	Y uint32
}

// Size is the board dimensions. The zero Size means no game has started.
type Size struct {
	Width  uint32
	Height uint32
}

// Cells returns the number of cells on the board.
func (s Size) Cells() int {
	return int(s.Width) * int(s.Height)
}

// Contains reports whether p lies on the board.
func (s Size) Contains(p Position) bool {
	return p.X < s.Width && p.Y < s.Height
}

// PlayerHead pairs a player with its current head position.
type PlayerHead struct {
	Player PlayerID
	Pos    Position
}

type cell struct {
	owner PlayerID
	taken bool
}

// State is the complete board model needed for move evaluation.
type State struct {
	Size  Size
	MyID  PlayerID
	MyPos Position

	cells []cell
	Heads map[PlayerID]Position
}

// NewState returns an uninitialized state. Decisions abstain until
// ApplyGameStart has been called.
func NewState() *State {
	return &State{Heads: make(map[PlayerID]Position)}
}

// IsInitialized reports whether the board dimensions are known.
func (s *State) IsInitialized() bool {
	return s.Size.Width > 0 && s.Size.Height > 0
}

// ApplyGameStart resets the board to all-free with the given dimensions.
func (s *State) ApplyGameStart(size Size, myID PlayerID) {
	s.Size = size
	s.MyID = myID
	s.MyPos = Position{}
	s.cells = make([]cell, size.Cells())
	if s.Heads == nil {
		s.Heads = make(map[PlayerID]Position)
	}
	clear(s.Heads)
}

// ApplyPosition marks pos as owned by player and moves its head there.
// It returns false when pos is off the board (or no game is running), in which
// case nothing changes.
func (s *State) ApplyPosition(player PlayerID, pos Position) bool {
	if !s.IsInitialized() || !s.Size.Contains(pos) {
		return false
	}
	s.cells[s.index(pos)] = cell{owner: player, taken: true}
	s.Heads[player] = pos
	if player == s.MyID {
		s.MyPos = pos
	}
	return true
}

// ApplyDeaths clears every cell owned by any of the given players and drops
// their heads. The whole batch is removed in one pass over the board.
func (s *State) ApplyDeaths(players []PlayerID) {
	if len(players) == 0 {
		return
	}
	dead := make(map[PlayerID]struct{}, len(players))
	for _, p := range players {
		dead[p] = struct{}{}
		delete(s.Heads, p)
	}
	for i, c := range s.cells {
		if !c.taken {
			continue
		}
		if _, ok := dead[c.owner]; ok {
			s.cells[i] = cell{}
		}
	}
}

// IsOccupied reports whether any player's trail covers pos.
func (s *State) IsOccupied(pos Position) bool {
	if !s.Size.Contains(pos) {
		return false
	}
	return s.cells[s.index(pos)].taken
}

// Owner returns the player whose trail covers pos.
func (s *State) Owner(pos Position) (PlayerID, bool) {
	if !s.Size.Contains(pos) {
		return 0, false
	}
	c := s.cells[s.index(pos)]
	return c.owner, c.taken
}

// HeadAt returns the player whose head is on pos, if any.
func (s *State) HeadAt(pos Position) (PlayerID, bool) {
	var (
		found  PlayerID
		exists bool
	)
	for p, h := range s.Heads {
		if h == pos && (!exists || p < found) {
			found, exists = p, true
		}
	}
	return found, exists
}

// OpponentHeads returns the heads of every live player except ourselves,
// ordered by player id so iteration is deterministic.
func (s *State) OpponentHeads() []PlayerHead {
	out := make([]PlayerHead, 0, len(s.Heads))
	for p, pos := range s.Heads {
		if p == s.MyID {
			continue
		}
		out = append(out, PlayerHead{Player: p, Pos: pos})
	}
	slices.SortFunc(out, func(a, b PlayerHead) int {
		switch {
		case a.Player < b.Player:
			return -1
		case a.Player > b.Player:
			return 1
		}
		return 0
	})
	return out
}

// FreeCells counts the unoccupied cells on the board.
func (s *State) FreeCells() int {
	n := 0
	for _, c := range s.cells {
		if !c.taken {
			n++
		}
	}
	return n
}

// Index maps a position to its dense cell index (y*width + x).
func (s *State) Index(pos Position) int {
	return s.index(pos)
}

// At returns the position for a dense cell index.
func (s *State) At(index int) Position {
	w := int(s.Size.Width)
	return Position{X: uint32(index % w), Y: uint32(index / w)}
}

func (s *State) index(pos Position) int {
	return int(pos.Y)*int(s.Size.Width) + int(pos.X)
}

// Clone performs a deep copy of the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}

	out := &State{
		Size:  s.Size,
		MyID:  s.MyID,
		MyPos: s.MyPos,
		Heads: make(map[PlayerID]Position, len(s.Heads)),
	}

	if len(s.cells) > 0 {
		out.cells = make([]cell, len(s.cells))
		copy(out.cells, s.cells)
	}
	for p, pos := range s.Heads {
		out.Heads[p] = pos
	}

	return out
}

// SimulateStep returns a copy of the state in which we have moved onto to.
// The receiver is left untouched.
func (s *State) SimulateStep(to Position) *State {
	next := s.Clone()
	next.ApplyPosition(next.MyID, to)
	return next
}
