package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brensch/lightcycle/client"
	"github.com/brensch/lightcycle/game"
	"github.com/brensch/lightcycle/logging"
	"github.com/brensch/lightcycle/selfplay"
	"github.com/brensch/lightcycle/store"
)

func main() {
	width := flag.Int("width", 32, "Board width")
	height := flag.Int("height", 24, "Board height")
	players := flag.Int("players", 4, "Number of engines")
	games := flag.Int("games", 1, "Number of games to play")
	maxTicks := flag.Int("max-ticks", 10000, "Abort a game after this many ticks")
	seed := flag.Int64("seed", 0, "Random seed (0 = time based)")
	show := flag.Bool("print", true, "Print the board after every tick")
	delay := flag.Duration("delay", 0, "Pause between ticks when printing")
	outDir := flag.String("out-dir", "", "Archive the first player's decisions to this directory")
	logLevel := flag.String("log-level", "warn", "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "text", "Log format (text, json, pretty)")
	flag.Parse()

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	logger, err := logging.New(*logFormat, level, os.Stderr)
	if err != nil {
		log.Fatalf("Invalid log format: %v", err)
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	cfg := selfplay.DefaultConfig()
	cfg.Width, cfg.Height = uint32(*width), uint32(*height)
	cfg.Players = *players
	cfg.MaxTicks = *maxTicks

	var observers []client.Observer
	if *outDir != "" {
		rec, err := store.NewRecorder(*outDir, "selfplay", *games, logger)
		if err != nil {
			log.Fatalf("Failed to open archive: %v", err)
		}
		defer func() {
			if err := rec.Close(); err != nil {
				log.Printf("Failed to close archive: %v", err)
			}
		}()
		observers = append(observers, rec)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Self-play: %d games, %dx%d, %d players, seed %d", *games, *width, *height, *players, *seed)

	onStep := func(s selfplay.Step) {
		if !*show {
			return
		}
		selfplay.PrintBoard(os.Stdout, s.Tick, s.Board)
		if *delay > 0 {
			time.Sleep(*delay)
		}
	}

	wins := make(map[game.PlayerID]int)
	totalTicks := 0
	for g := 0; g < *games; g++ {
		res, err := selfplay.PlayGame(ctx, cfg, *seed+int64(g)*1000003, logger, onStep, observers...)
		if err != nil {
			log.Printf("Game %d stopped: %v", g+1, err)
			break
		}
		wins[res.Winner]++
		totalTicks += res.Ticks
		fmt.Printf("Game %d (%s): %d ticks, winner %s\n", g+1, res.GameID, res.Ticks, winnerName(res.Winner))
	}

	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════════")
	for id := game.PlayerID(0); id <= game.PlayerID(*players); id++ {
		if n := wins[id]; n > 0 {
			fmt.Printf("  %-10s %d wins\n", winnerName(id), n)
		}
	}
	fmt.Printf("  Total ticks: %d\n", totalTicks)
	fmt.Println("═══════════════════════════════════════════════════════════════")
}

func winnerName(id game.PlayerID) string {
	if id == 0 {
		return "nobody"
	}
	return fmt.Sprintf("player %d", id)
}
