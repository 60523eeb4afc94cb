// Package engine chooses a move for each tick.
//
// Every legal move is scored on a lexicographic key: avoid cells next to an
// opponent head, then prefer the move whose best follow-up leaves the largest
// uncontested region, then avoid hugging opponent trails near their heads,
// then prefer the larger territory claim, and finally break ties at random.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"slices"

	"github.com/brensch/lightcycle/game"
	"github.com/brensch/lightcycle/rules"
)

var (
	// ErrNotInitialized means no game has started yet; the caller should not
	// send anything.
	ErrNotInitialized = errors.New("engine: game not initialized")
	// ErrNoLegalMove means every neighbouring cell is occupied.
	ErrNoLegalMove = errors.New("engine: no legal move")
)

// Decision is the outcome of one tick.
type Decision struct {
	Move game.Direction
	// Candidates holds every legal move, best first.
	Candidates []Candidate
	// Reason names the ranking field that separated the top two candidates.
	Reason string
}

// Engine holds the evaluator configuration and its random source.
type Engine struct {
	cfg    Config
	rng    *rand.Rand
	logger *slog.Logger
}

// New creates an engine. The same seed and the same board always yield the
// same move.
func New(cfg Config, seed int64, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(seed)),
		logger: logger,
	}
}

// Config returns the evaluator configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Decide picks the move for the current tick. It never mutates state.
func (e *Engine) Decide(state *game.State) (Decision, error) {
	if !state.IsInitialized() {
		return Decision{}, ErrNotInitialized
	}

	legal := rules.LegalMoves(state)
	if len(legal) == 0 {
		e.logger.Warn("No step possible", "pos", state.MyPos)
		return Decision{}, ErrNoLegalMove
	}

	field := ComputeField(state, e.cfg)
	candidates := make([]Candidate, 0, len(legal))
	for _, c := range legal {
		candidates = append(candidates, rank(state, field, c, e.cfg, e.rng))
	}
	slices.SortFunc(candidates, func(a, b Candidate) int {
		return a.Ranking.Compare(b.Ranking)
	})

	d := Decision{
		Move:       candidates[0].Dir,
		Candidates: candidates,
		Reason:     reason(candidates),
	}
	if e.logger.Enabled(context.Background(), slog.LevelDebug) {
		for _, c := range candidates {
			e.logger.Debug("Candidate",
				"dir", c.Dir.String(),
				"head_adjacent", c.Ranking.HeadAdjacent,
				"follow_up", c.Ranking.FollowUp,
				"hugs_wall", c.Ranking.HugsWall,
				"direct", c.Ranking.Direct,
				"region", c.Region.Size,
				"heads", len(c.Region.Heads),
			)
		}
	}
	e.logger.Debug("Decided", "move", d.Move.String(), "reason", d.Reason, "options", len(candidates))
	return d, nil
}

// reason explains which ranking field decided between the two best moves.
func reason(sorted []Candidate) string {
	if len(sorted) == 1 {
		return "only move"
	}
	a, b := sorted[0].Ranking, sorted[1].Ranking
	switch {
	case a.HeadAdjacent != b.HeadAdjacent:
		return "avoiding head"
	case compareScore(a.FollowUp, b.FollowUp) != 0:
		return "follow-up space"
	case a.HugsWall != b.HugsWall:
		return "wall"
	case compareScore(a.Direct, b.Direct) != 0:
		return "direct score"
	default:
		return "random"
	}
}
