// Package store writes the per-tick decision archive as Parquet files.
//
// Files are written under outDir/tmp and renamed into outDir once complete,
// so readers never observe a partially-written file.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/brensch/lightcycle/engine"
	"github.com/brensch/lightcycle/game"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

const schemaName = "lightcycle_tick_v1"

// Outcome values stamped onto every row of a game once it ends.
const (
	OutcomeUnknown int32 = 0
	OutcomeWin     int32 = 1
	OutcomeLoss    int32 = -1
)

// TickRow is one decision of our bot.
//
// Move is 0=Up, 1=Down, 2=Left, 3=Right, or -1 when no legal move existed.
type TickRow struct {
	GameID string `parquet:"game_id,dict"`
	Source string `parquet:"source,dict"`
	Tick   int32  `parquet:"tick"`
	TimeNs int64  `parquet:"time_ns"`
	Width  int32  `parquet:"width"`
	Height int32  `parquet:"height"`

	MyID int32 `parquet:"my_id"`
	MyX  int32 `parquet:"my_x"`
	MyY  int32 `parquet:"my_y"`

	Opponents int32 `parquet:"opponents"`
	FreeCells int32 `parquet:"free_cells"`

	Move       int32          `parquet:"move"`
	Reason     string         `parquet:"reason,dict"`
	Candidates []CandidateRow `parquet:"candidates"`

	Outcome int32 `parquet:"outcome"`
}

// CandidateRow is one evaluated legal move, in ranking order.
type CandidateRow struct {
	Move         int32   `parquet:"move"`
	HeadAdjacent bool    `parquet:"head_adjacent"`
	FollowUp     float64 `parquet:"follow_up"`
	HugsWall     bool    `parquet:"hugs_wall"`
	Direct       float64 `parquet:"direct"`
	RegionSize   int32   `parquet:"region_size"`
	RegionHeads  int32   `parquet:"region_heads"`
	Compactness  float64 `parquet:"compactness"`
	Claim        float64 `parquet:"claim"`
}

// NewTickRow flattens a board and the decision taken on it. d may be nil.
func NewTickRow(gameID, source string, tick int, at time.Time, board *game.State, d *engine.Decision) TickRow {
	row := TickRow{
		GameID:    gameID,
		Source:    source,
		Tick:      int32(tick),
		TimeNs:    at.UnixNano(),
		Width:     int32(board.Size.Width),
		Height:    int32(board.Size.Height),
		MyID:      int32(board.MyID),
		MyX:       int32(board.MyPos.X),
		MyY:       int32(board.MyPos.Y),
		Opponents: int32(len(board.OpponentHeads())),
		FreeCells: int32(board.FreeCells()),
		Move:      -1,
		Reason:    "no legal move",
	}
	if d == nil {
		return row
	}
	row.Move = int32(d.Move)
	row.Reason = d.Reason
	row.Candidates = make([]CandidateRow, len(d.Candidates))
	for i, c := range d.Candidates {
		row.Candidates[i] = CandidateRow{
			Move:         int32(c.Dir),
			HeadAdjacent: c.Ranking.HeadAdjacent,
			FollowUp:     c.Ranking.FollowUp,
			HugsWall:     c.Ranking.HugsWall,
			Direct:       c.Ranking.Direct,
			RegionSize:   int32(c.Region.Size),
			RegionHeads:  int32(len(c.Region.Heads)),
			Compactness:  c.Region.Compactness,
			Claim:        c.Claim,
		}
	}
	return row
}

// WriteTicksParquetAtomic writes rows to a new file in outDir and returns its
// path.
func WriteTicksParquetAtomic(outDir string, rows []TickRow) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	tmpDir := filepath.Join(outDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("ticks_%d.parquet", time.Now().UnixNano())
	finalPath := filepath.Join(outDir, name)
	tmpPath := filepath.Join(tmpDir, name+".tmp")
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", schemaName),
	); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename parquet: %w", err)
	}
	return finalPath, nil
}
