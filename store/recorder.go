package store

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/brensch/lightcycle/client"
	"github.com/brensch/lightcycle/game"
	"github.com/google/uuid"
)

// Recorder buffers the rows of the running game and writes them once the
// outcome is known. It implements client.Observer.
type Recorder struct {
	mu sync.Mutex

	outDir       string
	source       string
	gamesPerFile int
	logger       *slog.Logger

	batch *BatchWriter
	log   *GameLog

	current uuid.UUID
	rows    []TickRow
}

// NewRecorder archives into outDir, rotating to a new file every
// gamesPerFile games. source tags every row (e.g. "live" or "selfplay").
func NewRecorder(outDir, source string, gamesPerFile int, logger *slog.Logger) (*Recorder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if gamesPerFile <= 0 {
		gamesPerFile = 1
	}
	gl, err := OpenGameLog(filepath.Join(outDir, "games.log"))
	if err != nil {
		return nil, err
	}
	if gl.Count() > 0 {
		rec := gl.Record()
		logger.Info("Archive opened", "dir", outDir, "games", gl.Count(), "wins", rec.Wins, "losses", rec.Losses, "unknown", rec.Unknown)
	}
	return &Recorder{
		outDir:       outDir,
		source:       source,
		gamesPerFile: gamesPerFile,
		logger:       logger,
		log:          gl,
	}, nil
}

var _ client.Observer = (*Recorder)(nil)

func (r *Recorder) GameStarted(id uuid.UUID, _ game.Size, _ game.PlayerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.begin(id)
}

func (r *Recorder) Tick(f client.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f.GameID != r.current {
		r.begin(f.GameID)
	}
	r.rows = append(r.rows, NewTickRow(f.GameID.String(), r.source, f.Tick, f.Time, f.Board, f.Decision))
}

func (r *Recorder) GameEnded(o client.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o.GameID != r.current {
		return
	}
	outcome := OutcomeLoss
	if o.Won {
		outcome = OutcomeWin
	}
	if err := r.flush(outcome); err != nil {
		r.logger.Error("Failed to archive game", "game", o.GameID, "error", err)
	}
}

// begin starts buffering a new game. A previous game that never got an
// outcome is written as unknown.
func (r *Recorder) begin(id uuid.UUID) {
	if len(r.rows) > 0 {
		if err := r.flush(OutcomeUnknown); err != nil {
			r.logger.Error("Failed to archive game", "game", r.current, "error", err)
		}
	}
	r.current = id
	r.rows = r.rows[:0]
}

func (r *Recorder) flush(outcome int32) error {
	rows := r.rows
	r.rows = nil
	if len(rows) == 0 {
		return nil
	}
	id := r.current.String()
	if r.log.Has(id) {
		return nil
	}
	for i := range rows {
		rows[i].Outcome = outcome
	}

	if r.batch == nil {
		b, err := NewBatchWriter(r.outDir)
		if err != nil {
			return err
		}
		r.batch = b
	}
	if err := r.batch.WriteGame(rows); err != nil {
		return err
	}
	if err := r.log.Add(id, outcome); err != nil {
		return err
	}
	rec := r.log.Record()
	r.logger.Info("Archived game", "game", id, "ticks", len(rows), "outcome", outcomeName(outcome),
		"wins", rec.Wins, "losses", rec.Losses, "unknown", rec.Unknown)

	if r.batch.Games() >= r.gamesPerFile {
		return r.rotate()
	}
	return nil
}

func (r *Recorder) rotate() error {
	if r.batch == nil {
		return nil
	}
	path, err := r.batch.Finalize()
	r.batch = nil
	if err != nil {
		return fmt.Errorf("finalize batch: %w", err)
	}
	if path != "" {
		r.logger.Info("Wrote archive", "path", path)
	}
	return nil
}

// Close writes any buffered game and the open batch.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return errors.Join(r.flush(OutcomeUnknown), r.rotate(), r.log.Close())
}
