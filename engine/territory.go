package engine

import (
	"math"

	"github.com/brensch/lightcycle/game"
	"github.com/brensch/lightcycle/rules"
)

// Field is a per-cell contestedness score. Values lie in (0, 1]: cells no
// opponent can reach stay at the maximum, cells close to several opponent
// heads approach zero.
type Field struct {
	size   game.Size
	values []float64
}

// At returns the field value of pos.
func (f *Field) At(pos game.Position) float64 {
	return f.values[int(pos.Y)*int(f.size.Width)+int(pos.X)]
}

// ComputeField builds the field for the current opponent heads. It depends
// only on the board, so it is computed once per tick and shared by every
// candidate.
func ComputeField(state *game.State, cfg Config) *Field {
	f := &Field{size: state.Size, values: make([]float64, state.Size.Cells())}
	for i := range f.values {
		f.values[i] = cfg.MaxFieldScore
	}
	if !state.IsInitialized() {
		return f
	}

	visited := make([]bool, len(f.values))
	for _, head := range state.OpponentHeads() {
		clear(visited)
		headIdx := state.Index(head.Pos)
		visited[headIdx] = true
		// The head cell itself sits at distance -1 so its free neighbours are at 0.
		queue := []queued{{dist: -1, idx: headIdx}}

		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			if cur.idx != headIdx {
				f.values[cur.idx] *= fieldFactor(cur.dist, cfg)
			}

			p := state.At(cur.idx)
			for _, n := range p.Neighbours(state.Size) {
				ni := state.Index(n)
				if visited[ni] || state.IsOccupied(n) {
					continue
				}
				visited[ni] = true
				queue = append(queue, queued{dist: cur.dist + 1, idx: ni})
			}
		}
	}
	return f
}

func fieldFactor(dist int, cfg Config) float64 {
	factor := 1 - math.Pow(cfg.FieldDecayBase, cfg.FieldAlpha*float64(dist))
	return max(finite(factor, cfg.FieldFloor), cfg.FieldFloor)
}

// Claim integrates the field over the free cells reachable from start,
// weighting near cells slightly more than far ones. Starting next to an
// opponent trail or an opponent head scales the result down.
func (f *Field) Claim(state *game.State, start game.Position, cfg Config) float64 {
	if !state.IsInitialized() || state.IsOccupied(start) {
		return 0
	}

	visited := make([]bool, len(f.values))
	startIdx := state.Index(start)
	visited[startIdx] = true
	queue := []queued{{dist: 0, idx: startIdx}}

	var total float64
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		scale := cfg.MinScale + (cfg.MaxScale-cfg.MinScale)/math.Pow(float64(cur.dist+1), cfg.DistanceExponent)
		total += f.values[cur.idx] * scale

		p := state.At(cur.idx)
		for _, n := range p.Neighbours(state.Size) {
			ni := state.Index(n)
			if visited[ni] || state.IsOccupied(n) {
				continue
			}
			visited[ni] = true
			queue = append(queue, queued{dist: cur.dist + 1, idx: ni})
		}
	}

	switch {
	case rules.HasOpponentWall(state, start):
		total *= cfg.WallFactor
	case rules.HasNeighbourHead(state, start):
		total *= cfg.HeadFactor
	}
	return finite(total, 0)
}
