package engine

import (
	"cmp"
	"math"
	"math/rand"

	"github.com/brensch/lightcycle/game"
	"github.com/brensch/lightcycle/rules"
)

// Ranking is the sort key of one candidate move. Fields are compared in
// declaration order and lower sorts first.
type Ranking struct {
	// HeadAdjacent is true when the destination touches a live opponent head.
	HeadAdjacent bool
	// FollowUp is the best region quality among the moves available after
	// this one.
	FollowUp float64
	// HugsWall is true when the destination runs along an opponent trail
	// while an opponent head is close.
	HugsWall bool
	// Direct mixes head proximity with the territory claim of the
	// destination's region.
	Direct float64
	// Random breaks exact ties.
	Random int64
}

// Compare orders rankings lexicographically. It is a total order: booleans
// sort false first and floats use compareScore.
func (r Ranking) Compare(o Ranking) int {
	if c := compareBool(r.HeadAdjacent, o.HeadAdjacent); c != 0 {
		return c
	}
	if c := compareScore(r.FollowUp, o.FollowUp); c != 0 {
		return c
	}
	if c := compareBool(r.HugsWall, o.HugsWall); c != 0 {
		return c
	}
	if c := compareScore(r.Direct, o.Direct); c != 0 {
		return c
	}
	return cmp.Compare(r.Random, o.Random)
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

// compareScore orders floats as -Inf < finite < +Inf < NaN. NaN compares
// equal to NaN so sorting never depends on which NaN came first.
func compareScore(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	}
	return cmp.Compare(a, b)
}

// Candidate is a legal move with its evaluation.
type Candidate struct {
	Dir     game.Direction
	Dest    game.Position
	Region  Region
	Claim   float64
	Ranking Ranking
}

// rank evaluates one legal move.
func rank(state *game.State, field *Field, c rules.Candidate, cfg Config, rng *rand.Rand) Candidate {
	region := Explore(state, c.Dest, cfg)
	claim := field.Claim(state, c.Dest, cfg)

	nearest, hasHead := region.NearestHead()
	proximity := 0.0
	if hasHead {
		proximity = 1 / float64(max(nearest, 1))
	}

	return Candidate{
		Dir:    c.Dir,
		Dest:   c.Dest,
		Region: region,
		Claim:  claim,
		Ranking: Ranking{
			HeadAdjacent: rules.HasNeighbourHead(state, c.Dest),
			FollowUp:     bestFollowUp(state, c.Dest, cfg),
			HugsWall:     rules.HasOpponentWall(state, c.Dest) && hasHead && nearest <= cfg.WallHeadThreshold,
			Direct: finite(cfg.HeadProximityWeight*proximity-
				cfg.ClaimWeight*claim-
				cfg.CompactnessWeight*region.Compactness, 0),
			Random: rng.Int63(),
		},
	}
}

// bestFollowUp simulates stepping onto dest and returns the best (lowest)
// region quality among the moves that would then be legal. With no legal
// follow-up it returns 0, the worst possible quality.
func bestFollowUp(state *game.State, dest game.Position, cfg Config) float64 {
	next := state.SimulateStep(dest)
	best := 0.0
	for _, c := range rules.LegalMoves(next) {
		q := RegionQuality(Explore(next, c.Dest, cfg), cfg)
		if q < best {
			best = q
		}
	}
	return best
}
