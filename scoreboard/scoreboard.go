// Package scoreboard reads the standings table the game server publishes
// as HTML.
package scoreboard

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Config holds scraper configuration.
type Config struct {
	URL string
	// TableSelector picks the standings table; its first row with th cells
	// names the columns.
	TableSelector string
	Interval      time.Duration
	Timeout       time.Duration
}

func DefaultConfig() Config {
	return Config{
		TableSelector: "table",
		Interval:      time.Minute,
		Timeout:       10 * time.Second,
	}
}

// Entry is one row of the standings.
type Entry struct {
	Rank   int
	Name   string
	Wins   int
	Losses int
	// Score is the server's rating column when present (elo, score or points).
	Score float64
}

// Scraper fetches the standings.
type Scraper struct {
	config Config
	client *http.Client
}

func NewScraper(config Config) *Scraper {
	return &Scraper{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// Fetch downloads and parses the standings.
func (s *Scraper) Fetch(ctx context.Context) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "lightcycle/1.0 (scoreboard)")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse scoreboard: %w", err)
	}
	return parseTable(doc.Find(s.config.TableSelector).First())
}

// columns maps the meaning of each column to its index, -1 when absent.
type columns struct {
	rank, name, wins, losses, score int
}

func headerColumns(cells []string) columns {
	c := columns{rank: -1, name: -1, wins: -1, losses: -1, score: -1}
	for i, h := range cells {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "#", "rank", "place":
			c.rank = i
		case "name", "player", "user", "username":
			c.name = i
		case "wins", "won", "w":
			c.wins = i
		case "losses", "lost", "l", "deaths":
			c.losses = i
		case "elo", "score", "points", "rating":
			c.score = i
		}
	}
	return c
}

func parseTable(table *goquery.Selection) ([]Entry, error) {
	if table.Length() == 0 {
		return nil, fmt.Errorf("scoreboard table not found")
	}

	var (
		cols    columns
		haveHdr bool
		entries []Entry
	)
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		if th := row.Find("th"); th.Length() > 0 && !haveHdr {
			cols = headerColumns(th.Map(func(_ int, s *goquery.Selection) string { return s.Text() }))
			haveHdr = true
			return
		}
		cells := row.Find("td").Map(func(_ int, s *goquery.Selection) string {
			return strings.TrimSpace(s.Text())
		})
		if len(cells) == 0 || !haveHdr || cols.name < 0 || cols.name >= len(cells) {
			return
		}
		e := Entry{
			Rank:   len(entries) + 1,
			Name:   cells[cols.name],
			Wins:   atoiAt(cells, cols.wins),
			Losses: atoiAt(cells, cols.losses),
			Score:  floatAt(cells, cols.score),
		}
		if r := atoiAt(cells, cols.rank); r > 0 {
			e.Rank = r
		}
		entries = append(entries, e)
	})
	if !haveHdr || cols.name < 0 {
		return nil, fmt.Errorf("scoreboard table has no name column")
	}
	return entries, nil
}

func atoiAt(cells []string, i int) int {
	if i < 0 || i >= len(cells) {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSuffix(cells[i], "."))
	if err != nil {
		return 0
	}
	return n
}

func floatAt(cells []string, i int) float64 {
	if i < 0 || i >= len(cells) {
		return 0
	}
	f, err := strconv.ParseFloat(cells[i], 64)
	if err != nil {
		return 0
	}
	return f
}

// Find returns the entry for name, ignoring case.
func Find(entries []Entry, name string) (Entry, bool) {
	for _, e := range entries {
		if strings.EqualFold(e.Name, name) {
			return e, true
		}
	}
	return Entry{}, false
}

// Watch logs our standing every interval until ctx is done.
func (s *Scraper) Watch(ctx context.Context, user string, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	interval := s.config.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		entries, err := s.Fetch(ctx)
		switch {
		case err != nil:
			logger.Warn("Scoreboard fetch failed", "url", s.config.URL, "error", err)
		default:
			if e, ok := Find(entries, user); ok {
				logger.Info("Standing", "rank", e.Rank, "of", len(entries), "wins", e.Wins, "losses", e.Losses, "score", e.Score)
			} else {
				logger.Info("Not on scoreboard yet", "user", user, "players", len(entries))
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
