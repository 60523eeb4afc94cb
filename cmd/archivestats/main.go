package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

func main() {
	dataDirs := flag.String("data", "archive", "Comma-separated archive directories")
	limit := flag.Int("limit", 20, "Number of recent games to list")
	gameID := flag.String("game", "", "Print every tick of this game instead of the summary")
	serve := flag.String("serve", "", "Serve the statistics as JSON on this address instead of printing them")
	flag.Parse()

	roots := parseDataRoots(*dataDirs)
	if len(roots) == 0 {
		log.Fatalf("No archive directories given")
	}
	arch := newArchive(roots)
	defer arch.Close()

	if *serve != "" {
		mux := http.NewServeMux()
		newServer(arch).RegisterRoutes(mux)
		log.Printf("Serving archive stats for %s on %s", strings.Join(roots, ", "), *serve)
		log.Fatal(http.ListenAndServe(*serve, mux))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var err error
	if *gameID != "" {
		err = printGame(ctx, os.Stdout, arch, *gameID)
	} else {
		err = printReport(ctx, os.Stdout, arch, *limit)
	}
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
}

func parseDataRoots(csv string) []string {
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func printReport(ctx context.Context, w io.Writer, arch *archive, limit int) error {
	db, err := arch.Get()
	if err != nil {
		return err
	}
	sources, err := querySources(ctx, db)
	if err != nil {
		return fmt.Errorf("sources: %w", err)
	}
	reasons, err := queryReasons(ctx, db)
	if err != nil {
		return fmt.Errorf("reasons: %w", err)
	}
	moves, err := queryMoves(ctx, db)
	if err != nil {
		return fmt.Errorf("moves: %w", err)
	}
	games, err := queryGames(ctx, db, arch.roots, limit)
	if err != nil {
		return fmt.Errorf("games: %w", err)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tGAMES\tWON\tLOST\tUNKNOWN\tTICKS\tAVG TICKS")
	for _, s := range sources {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%.1f\n", s.Source, s.Games, s.Wins, s.Losses, s.Unknown, s.Ticks, s.AvgTicks)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "REASON\tTICKS")
	for _, c := range reasons {
		fmt.Fprintf(tw, "%s\t%d\n", c.Key, c.N)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "MOVE\tTICKS")
	for _, c := range moves {
		fmt.Fprintf(tw, "%s\t%d\n", c.Key, c.N)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "GAME\tSOURCE\tSTARTED\tTICKS\tBOARD\tOPPONENTS\tRESULT\tFILE")
	for _, g := range games {
		started := time.Unix(0, g.StartedNs).Format(time.DateTime)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%dx%d\t%d\t%s\t%s\n", g.GameID, g.Source, started, g.Ticks, g.Width, g.Height, g.Opponents, outcomeName(g.Outcome), g.File)
	}
	return tw.Flush()
}

func printGame(ctx context.Context, w io.Writer, arch *archive, gameID string) error {
	db, err := arch.Get()
	if err != nil {
		return err
	}
	ticks, err := queryGameTicks(ctx, db, gameID)
	if err != nil {
		return err
	}
	if len(ticks) == 0 {
		return fmt.Errorf("game %s not found", gameID)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TICK\tMOVE\tREASON\tFREE\tOPPONENTS")
	for _, t := range ticks {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\n", t.Tick, t.Move, t.Reason, t.FreeCells, t.Opponents)
	}
	return tw.Flush()
}

func outcomeName(o int64) string {
	switch o {
	case 1:
		return "won"
	case -1:
		return "lost"
	}
	return "unknown"
}
