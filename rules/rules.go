// Package rules implements board queries and the light-cycle movement rules.
//
// The helpers here answer the local questions the move evaluator asks about a
// cell (is it free, does it touch a trail, does it touch a head) and Arena
// referees whole ticks for offline games.
package rules

import (
	"github.com/brensch/lightcycle/game"
)

// Candidate is a legal move together with the cell it leads to.
type Candidate struct {
	Dir  game.Direction
	Dest game.Position
}

// LegalMoves returns every move from our head whose destination is free.
func LegalMoves(state *game.State) []Candidate {
	if !state.IsInitialized() {
		return nil
	}
	moves := make([]Candidate, 0, 4)
	for _, d := range game.Directions {
		dest := state.MyPos.Move(d, state.Size)
		if state.IsOccupied(dest) {
			continue
		}
		moves = append(moves, Candidate{Dir: d, Dest: dest})
	}
	return moves
}

// HasNeighbourHead reports whether pos is adjacent to the head of any live
// opponent.
func HasNeighbourHead(state *game.State, pos game.Position) bool {
	for _, n := range pos.Neighbours(state.Size) {
		if p, ok := state.HeadAt(n); ok && p != state.MyID {
			return true
		}
	}
	return false
}

// HasWall reports whether pos is adjacent to a trail cell that is not a head.
func HasWall(state *game.State, pos game.Position) bool {
	return hasTrail(state, pos, func(game.PlayerID) bool { return true })
}

// HasOpponentWall reports whether pos is adjacent to a trail cell laid by an
// opponent, ignoring head cells.
func HasOpponentWall(state *game.State, pos game.Position) bool {
	return hasTrail(state, pos, func(owner game.PlayerID) bool { return owner != state.MyID })
}

func hasTrail(state *game.State, pos game.Position, match func(game.PlayerID) bool) bool {
	for _, n := range pos.Neighbours(state.Size) {
		owner, ok := state.Owner(n)
		if !ok {
			continue
		}
		if h, isHead := state.Heads[owner]; isHead && h == n {
			continue
		}
		if match(owner) {
			return true
		}
	}
	return false
}

// FreeNeighbours counts the unoccupied cells adjacent to pos.
func FreeNeighbours(state *game.State, pos game.Position) int {
	n := 0
	for _, p := range pos.Neighbours(state.Size) {
		if !state.IsOccupied(p) {
			n++
		}
	}
	return n
}
