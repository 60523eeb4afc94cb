package engine

import (
	"math"

	"github.com/brensch/lightcycle/game"
)

// HeadDistance is an opponent head found while flooding a region.
type HeadDistance struct {
	Distance int
	Player   game.PlayerID
}

// Region summarises the free area reachable from a cell.
type Region struct {
	// Size is the number of free cells reached.
	Size int
	// Heads lists every opponent head met, in BFS order.
	Heads []HeadDistance
	// Bounding is the set of players whose trails border the region.
	Bounding map[game.PlayerID]struct{}
	// Compactness sums decay^distance over the free cells, so regions that
	// open up close to the entry score higher than long corridors.
	Compactness float64
}

// NearestHead returns the hop distance to the closest opponent head in the
// region.
func (r Region) NearestHead() (int, bool) {
	if len(r.Heads) == 0 {
		return 0, false
	}
	best := r.Heads[0].Distance
	for _, h := range r.Heads[1:] {
		if h.Distance < best {
			best = h.Distance
		}
	}
	return best, true
}

type queued struct {
	dist int
	idx  int
}

// Explore floods the free cells reachable from start. Occupied cells stop the
// flood and mark their owner as bounding the region, except start itself,
// which is always expanded so a region can be measured from a head we have
// just moved onto.
func Explore(state *game.State, start game.Position, cfg Config) Region {
	res := Region{Bounding: make(map[game.PlayerID]struct{})}
	if !state.IsInitialized() {
		return res
	}

	heads := make(map[game.Position]game.PlayerID, len(state.Heads))
	for _, h := range state.OpponentHeads() {
		heads[h.Pos] = h.Player
	}

	visited := make([]bool, state.Size.Cells())
	startIdx := state.Index(start)
	visited[startIdx] = true
	queue := []queued{{dist: 0, idx: startIdx}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		p := state.At(cur.idx)

		if player, ok := heads[p]; ok {
			res.Heads = append(res.Heads, HeadDistance{Distance: cur.dist, Player: player})
		}

		owner, occupied := state.Owner(p)
		if occupied && cur.idx != startIdx {
			res.Bounding[owner] = struct{}{}
			continue
		}
		if !occupied {
			res.Size++
			res.Compactness += math.Pow(cfg.CompactnessDecay, float64(cur.dist))
		}

		for _, n := range p.Neighbours(state.Size) {
			ni := state.Index(n)
			if visited[ni] {
				continue
			}
			visited[ni] = true
			queue = append(queue, queued{dist: cur.dist + 1, idx: ni})
		}
	}
	return res
}

// RegionQuality scores a region for ascending sorts: more negative is better.
// Larger regions with fewer contesting heads win. A region with no opponent
// heads scores -size, never a division by zero.
func RegionQuality(r Region, cfg Config) float64 {
	bounding := float64(max(len(r.Bounding), 1))
	q := -float64(r.Size) * math.Pow(bounding, cfg.BoundingExponent) / math.Sqrt(float64(len(r.Heads))+cfg.HeadOffset)
	return finite(q, 0)
}

// finite replaces NaN and infinities with fallback.
func finite(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}
