package main

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/brensch/lightcycle/game"

	_ "github.com/duckdb/duckdb-go/v2"
)

// archive is a DuckDB view named ticks over every finished parquet file
// under the roots. Reopen picks up files written since the last open.
type archive struct {
	roots []string

	mu sync.Mutex
	db *sql.DB
}

func newArchive(roots []string) *archive {
	abs := make([]string, 0, len(roots))
	for _, r := range roots {
		if a, err := filepath.Abs(r); err == nil {
			r = a
		}
		abs = append(abs, r)
	}
	return &archive{roots: abs}
}

// Get returns the open connection, opening it on first use.
func (a *archive) Get() (*sql.DB, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.db != nil {
		return a.db, nil
	}
	return a.reopenLocked()
}

func (a *archive) Reopen() (*sql.DB, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reopenLocked()
}

func (a *archive) reopenLocked() (*sql.DB, error) {
	db, err := openDuckDBWithGlobs(a.roots)
	if err != nil {
		return nil, err
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	a.db = db
	return db, nil
}

func (a *archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// openDuckDBWithGlobs creates an in-memory DuckDB with a ticks view over the
// roots. Files still being written live under <root>/tmp and are excluded.
func openDuckDBWithGlobs(roots []string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, err
	}
	_, _ = db.Exec("PRAGMA threads=4")

	var globs, excludes []string
	for _, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" || !hasParquet(root) {
			continue
		}
		globs = append(globs, "'"+escapeSQLString(filepath.Join(root, "**", "*.parquet"))+"'")
		excludes = append(excludes, "starts_with(filename, '"+escapeSQLString(filepath.Join(root, "tmp")+string(filepath.Separator))+"')")
	}

	sqlText := emptyTicksView
	if len(globs) > 0 {
		sqlText = `CREATE OR REPLACE VIEW ticks AS
			SELECT * FROM read_parquet([` + strings.Join(globs, ",") + `], filename=true, union_by_name=true)
			WHERE NOT (` + strings.Join(excludes, " OR ") + `)`
	}
	if _, err := db.Exec(sqlText); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

const emptyTicksView = `CREATE OR REPLACE VIEW ticks AS
	SELECT * FROM (
		SELECT
			NULL::VARCHAR AS game_id,
			NULL::VARCHAR AS source,
			NULL::INTEGER AS tick,
			NULL::BIGINT AS time_ns,
			NULL::INTEGER AS width,
			NULL::INTEGER AS height,
			NULL::INTEGER AS my_id,
			NULL::INTEGER AS opponents,
			NULL::INTEGER AS free_cells,
			NULL::INTEGER AS move,
			NULL::VARCHAR AS reason,
			NULL::INTEGER AS outcome,
			NULL::VARCHAR AS filename
	) WHERE 1=0`

var errFound = errors.New("found")

// hasParquet reports whether root holds at least one finished parquet file.
// read_parquet fails on a glob that matches nothing.
func hasParquet(root string) bool {
	tmp := filepath.Join(root, "tmp")
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path == tmp {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), ".parquet") {
			return errFound
		}
		return nil
	})
	return errors.Is(err, errFound)
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

type GameSummary struct {
	GameID    string `json:"game_id"`
	Source    string `json:"source"`
	StartedNs int64  `json:"started_ns"`
	Ticks     int64  `json:"ticks"`
	Width     int64  `json:"width"`
	Height    int64  `json:"height"`
	Opponents int64  `json:"opponents"`
	// Outcome is 1 for a win, -1 for a loss and 0 when the game was abandoned.
	Outcome int64  `json:"outcome"`
	File    string `json:"file"`
}

type SourceSummary struct {
	Source   string  `json:"source"`
	Games    int64   `json:"games"`
	Ticks    int64   `json:"ticks"`
	Wins     int64   `json:"wins"`
	Losses   int64   `json:"losses"`
	Unknown  int64   `json:"unknown"`
	AvgTicks float64 `json:"avg_ticks"`
}

type Count struct {
	Key string `json:"key"`
	N   int64  `json:"n"`
}

type TickSummary struct {
	Tick      int64  `json:"tick"`
	Move      string `json:"move"`
	Reason    string `json:"reason"`
	FreeCells int64  `json:"free_cells"`
	Opponents int64  `json:"opponents"`
}

// queryGames lists games, most recent first.
func queryGames(ctx context.Context, db *sql.DB, roots []string, limit int) ([]GameSummary, error) {
	rows, err := db.QueryContext(ctx, `SELECT
			game_id,
			MIN(source)::VARCHAR AS source,
			MIN(time_ns)::BIGINT AS started_ns,
			COUNT(*)::BIGINT AS ticks,
			MIN(width)::BIGINT AS width,
			MIN(height)::BIGINT AS height,
			MAX(opponents)::BIGINT AS opponents,
			MAX(outcome)::BIGINT AS outcome,
			MIN(filename)::VARCHAR AS file
		FROM ticks
		GROUP BY game_id
		ORDER BY started_ns DESC, game_id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GameSummary
	for rows.Next() {
		var g GameSummary
		var file string
		if err := rows.Scan(&g.GameID, &g.Source, &g.StartedNs, &g.Ticks, &g.Width, &g.Height, &g.Opponents, &g.Outcome, &file); err != nil {
			return nil, err
		}
		g.File = makeRelativeToRoots(file, roots)
		out = append(out, g)
	}
	return out, rows.Err()
}

// querySources summarises outcomes per source (live, selfplay).
func querySources(ctx context.Context, db *sql.DB) ([]SourceSummary, error) {
	rows, err := db.QueryContext(ctx, `WITH games AS (
			SELECT game_id, MIN(source) AS source, COUNT(*) AS ticks, MAX(outcome) AS outcome
			FROM ticks
			GROUP BY game_id
		)
		SELECT
			source,
			COUNT(*)::BIGINT,
			SUM(ticks)::BIGINT,
			SUM(CASE WHEN outcome = 1 THEN 1 ELSE 0 END)::BIGINT,
			SUM(CASE WHEN outcome = -1 THEN 1 ELSE 0 END)::BIGINT,
			SUM(CASE WHEN outcome = 0 THEN 1 ELSE 0 END)::BIGINT,
			AVG(ticks)::DOUBLE
		FROM games
		GROUP BY source
		ORDER BY source`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SourceSummary
	for rows.Next() {
		var s SourceSummary
		if err := rows.Scan(&s.Source, &s.Games, &s.Ticks, &s.Wins, &s.Losses, &s.Unknown, &s.AvgTicks); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// queryReasons counts how often each decision reason was logged.
func queryReasons(ctx context.Context, db *sql.DB) ([]Count, error) {
	return queryCounts(ctx, db, `SELECT reason::VARCHAR, COUNT(*)::BIGINT AS n FROM ticks GROUP BY reason ORDER BY n DESC, reason`, func(s string) string { return s })
}

// queryMoves counts moves by direction; "none" is a tick without a legal move.
func queryMoves(ctx context.Context, db *sql.DB) ([]Count, error) {
	return queryCounts(ctx, db, `SELECT move::VARCHAR, COUNT(*)::BIGINT AS n FROM ticks GROUP BY move ORDER BY n DESC, move`, moveName)
}

func queryCounts(ctx context.Context, db *sql.DB, query string, name func(string) string) ([]Count, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Count
	for rows.Next() {
		var key string
		var c Count
		if err := rows.Scan(&key, &c.N); err != nil {
			return nil, err
		}
		c.Key = name(key)
		out = append(out, c)
	}
	return out, rows.Err()
}

func queryGameTicks(ctx context.Context, db *sql.DB, gameID string) ([]TickSummary, error) {
	rows, err := db.QueryContext(ctx, `SELECT tick::BIGINT, move::VARCHAR, reason::VARCHAR, free_cells::BIGINT, opponents::BIGINT
		FROM ticks
		WHERE game_id = ?
		ORDER BY tick ASC`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TickSummary
	for rows.Next() {
		var t TickSummary
		var move string
		if err := rows.Scan(&t.Tick, &move, &t.Reason, &t.FreeCells, &t.Opponents); err != nil {
			return nil, err
		}
		t.Move = moveName(move)
		out = append(out, t)
	}
	return out, rows.Err()
}

func moveName(v string) string {
	switch v {
	case "0":
		return game.MoveUp.String()
	case "1":
		return game.MoveDown.String()
	case "2":
		return game.MoveLeft.String()
	case "3":
		return game.MoveRight.String()
	case "-1":
		return "none"
	}
	return v
}

func makeRelativeToRoots(filename string, roots []string) string {
	fn := strings.TrimSpace(filename)
	if fn == "" {
		return ""
	}
	best := fn
	for _, root := range roots {
		rel, err := filepath.Rel(root, fn)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		if cand := filepath.ToSlash(rel); len(cand) < len(best) {
			best = cand
		}
	}
	return best
}
