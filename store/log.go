package store

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// GameLog is an append-only list of archived games, one "<id> <outcome>"
// line each. It stops a game from being archived twice when the server
// repeats an outcome, and keeps the running record across restarts without
// reading the Parquet files.
//
// A partial last line left by a crash counts as an unknown outcome.
type GameLog struct {
	mu       sync.RWMutex
	file     *os.File
	outcomes map[string]int32
}

// Record is the tally of a GameLog.
type Record struct {
	Wins, Losses, Unknown int
}

func OpenGameLog(path string) (*GameLog, error) {
	if path == "" {
		return nil, fmt.Errorf("log path is required")
	}

	outcomes := make(map[string]int32)
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read log: %w", err)
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		outcome := OutcomeUnknown
		if len(fields) > 1 {
			outcome = parseOutcome(fields[1])
		}
		outcomes[fields[0]] = outcome
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	// Terminate a partial last line so the next entry starts cleanly.
	if len(data) > 0 && data[len(data)-1] != '\n' {
		if _, err := file.WriteString("\n"); err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("repair log: %w", err)
		}
	}
	return &GameLog{file: file, outcomes: outcomes}, nil
}

func (l *GameLog) Has(gameID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.outcomes[gameID]
	return ok
}

func (l *GameLog) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.outcomes)
}

func (l *GameLog) Record() Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var r Record
	for _, o := range l.outcomes {
		switch o {
		case OutcomeWin:
			r.Wins++
		case OutcomeLoss:
			r.Losses++
		default:
			r.Unknown++
		}
	}
	return r
}

// Add appends a game and syncs. Games already in the log are ignored.
func (l *GameLog) Add(gameID string, outcome int32) error {
	if gameID == "" || strings.ContainsAny(gameID, " \t\n") {
		return fmt.Errorf("invalid game id %q", gameID)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.outcomes[gameID]; ok {
		return nil
	}
	if l.file == nil {
		return fmt.Errorf("log file is closed")
	}
	if _, err := fmt.Fprintf(l.file, "%s %s\n", gameID, outcomeName(outcome)); err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync log: %w", err)
	}
	l.outcomes[gameID] = outcome
	return nil
}

func (l *GameLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func outcomeName(o int32) string {
	switch o {
	case OutcomeWin:
		return "win"
	case OutcomeLoss:
		return "loss"
	}
	return "unknown"
}

func parseOutcome(s string) int32 {
	switch s {
	case "win":
		return OutcomeWin
	case "loss":
		return OutcomeLoss
	}
	return OutcomeUnknown
}
