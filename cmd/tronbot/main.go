package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/brensch/lightcycle/client"
	"github.com/brensch/lightcycle/engine"
	"github.com/brensch/lightcycle/logging"
	"github.com/brensch/lightcycle/scoreboard"
	"github.com/brensch/lightcycle/spectate"
	"github.com/brensch/lightcycle/store"
	"github.com/joho/godotenv"
)

const version = "lightcycle 1.0"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Println("Could not load .env file:", err)
	}

	defaults := engine.DefaultConfig()

	address := flag.String("address", getEnvOrDefault("TRON_ADDRESS", "localhost:4000"), "Game server host:port")
	user := flag.String("user", getEnvOrDefault("TRON_USER", ""), "Username")
	password := flag.String("password", getEnvOrDefault("TRON_PASSWORD", ""), "Password")
	greeting := flag.Bool("greeting", getEnvBoolOrDefault("TRON_GREETING", false), "Announce the bot version in chat after joining")
	seed := flag.Int64("seed", int64(getEnvIntOrDefault("TRON_SEED", 0)), "Tie-break seed (0 = time based)")
	logLevel := flag.String("log-level", getEnvOrDefault("TRON_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", getEnvOrDefault("TRON_LOG_FORMAT", "text"), "Log format (text, json, pretty)")
	archiveDir := flag.String("archive-dir", getEnvOrDefault("TRON_ARCHIVE_DIR", ""), "Write per-tick decisions as parquet here (empty = off)")
	gamesPerFile := flag.Int("games-per-file", getEnvIntOrDefault("TRON_GAMES_PER_FILE", 100), "Games per archive file")
	spectateAddr := flag.String("spectate", getEnvOrDefault("TRON_SPECTATE", ""), "Serve the spectator feed on this address (empty = off)")
	scoreboardURL := flag.String("scoreboard-url", getEnvOrDefault("TRON_SCOREBOARD_URL", ""), "Scoreboard page to poll (empty = off)")
	scoreboardEvery := flag.Duration("scoreboard-every", getEnvDurationOrDefault("TRON_SCOREBOARD_EVERY", time.Minute), "Scoreboard poll interval")
	reconnectDelay := flag.Duration("reconnect-delay", getEnvDurationOrDefault("TRON_RECONNECT_DELAY", 200*time.Millisecond), "First wait before reconnecting")
	maxBackoff := flag.Duration("max-backoff", getEnvDurationOrDefault("TRON_MAX_BACKOFF", 10*time.Second), "Longest wait before reconnecting")

	fieldAlpha := flag.Float64("field-alpha", getEnvFloatOrDefault("TRON_FIELD_ALPHA", defaults.FieldAlpha), "Territory field distance exponent")
	fieldDecay := flag.Float64("field-decay", getEnvFloatOrDefault("TRON_FIELD_DECAY", defaults.FieldDecayBase), "Territory field decay base, in (0,1)")
	wallThreshold := flag.Int("wall-threshold", getEnvIntOrDefault("TRON_WALL_THRESHOLD", defaults.WallHeadThreshold), "Hops within which hugging an opponent trail is avoided")
	compactnessDecay := flag.Float64("compactness-decay", getEnvFloatOrDefault("TRON_COMPACTNESS_DECAY", defaults.CompactnessDecay), "Per-hop compactness decay, in (0,1)")

	flag.Parse()

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	logger, err := logging.New(*logFormat, level, os.Stderr)
	if err != nil {
		log.Fatalf("Invalid log format: %v", err)
	}

	if *user == "" {
		log.Fatalf("A username is required (-user or TRON_USER)")
	}
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	cfg := defaults
	cfg.FieldAlpha = *fieldAlpha
	cfg.FieldDecayBase = *fieldDecay
	cfg.WallHeadThreshold = *wallThreshold
	cfg.CompactnessDecay = *compactnessDecay
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid engine config: %v", err)
	}

	log.Printf("Starting %s", version)
	log.Printf("  Server: %s", *address)
	log.Printf("  User: %s", *user)
	log.Printf("  Seed: %d", *seed)
	log.Printf("  Field: alpha=%g decay=%g", cfg.FieldAlpha, cfg.FieldDecayBase)
	log.Printf("  Wall Threshold: %d", cfg.WallHeadThreshold)
	log.Printf("  Compactness Decay: %g", cfg.CompactnessDecay)
	log.Printf("  Archive: %s", orOff(*archiveDir))
	log.Printf("  Spectate: %s", orOff(*spectateAddr))
	log.Printf("  Scoreboard: %s", orOff(*scoreboardURL))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var observers []client.Observer

	if *archiveDir != "" {
		rec, err := store.NewRecorder(*archiveDir, "live", *gamesPerFile, logger)
		if err != nil {
			log.Fatalf("Failed to open archive: %v", err)
		}
		defer func() {
			if err := rec.Close(); err != nil {
				logger.Error("Failed to close archive", "error", err)
			}
		}()
		observers = append(observers, rec)
	}

	if *spectateAddr != "" {
		hub := spectate.NewHub(logger)
		observers = append(observers, hub)
		srv := &http.Server{Addr: *spectateAddr, Handler: hub.Handler()}
		go func() {
			logger.Info("Spectator feed listening", "addr", *spectateAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Spectator server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	if *scoreboardURL != "" {
		sc := scoreboard.DefaultConfig()
		sc.URL = *scoreboardURL
		sc.Interval = *scoreboardEvery
		go scoreboard.NewScraper(sc).Watch(ctx, *user, logger)
	}

	clientCfg := client.DefaultConfig()
	clientCfg.Address = *address
	clientCfg.User = *user
	clientCfg.Password = *password
	clientCfg.ReconnectDelay = *reconnectDelay
	clientCfg.MaxBackoff = *maxBackoff
	if *greeting {
		clientCfg.Greeting = version
	}

	eng := engine.New(cfg, *seed, logger)
	err = client.Run(ctx, clientCfg, eng, logger, observers...)
	logger.Info("Shutting down", "reason", err)
}

func orOff(s string) string {
	if s == "" {
		return "off"
	}
	return s
}

// Environment variable helpers
func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloatOrDefault(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}
