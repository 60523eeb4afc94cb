package client

import (
	"time"

	"github.com/brensch/lightcycle/engine"
	"github.com/brensch/lightcycle/game"
	"github.com/google/uuid"
)

// Frame is what observers see after each tick. Board is a private clone, so
// observers may keep it.
type Frame struct {
	GameID uuid.UUID
	Tick   int
	Time   time.Time
	Board  *game.State
	Names  map[game.PlayerID]string
	// Decision is nil when no move was sent (no legal move).
	Decision *engine.Decision
}

// Outcome describes how a game ended for us.
type Outcome struct {
	GameID uuid.UUID
	Won    bool
	Wins   uint32
	Losses uint32
	Ticks  int
}

// Observer receives frames and outcomes from the session goroutine. Calls are
// synchronous, so implementations must not block for long.
type Observer interface {
	GameStarted(id uuid.UUID, size game.Size, me game.PlayerID)
	Tick(f Frame)
	GameEnded(o Outcome)
}
