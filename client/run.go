package client

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"
)

// Config describes how to reach and authenticate with the server.
type Config struct {
	Address  string
	User     string
	Password string
	// Greeting is sent as a chat line after joining when not empty.
	Greeting string

	DialTimeout time.Duration
	// ReconnectDelay is the first wait after a failed session; it doubles up
	// to MaxBackoff and resets once a session has played a game.
	ReconnectDelay time.Duration
	MaxBackoff     time.Duration
}

func DefaultConfig() Config {
	return Config{
		DialTimeout:    5 * time.Second,
		ReconnectDelay: 200 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
	}
}

// Run keeps a session alive until ctx is cancelled, reconnecting after every
// failure. It only returns once ctx is done.
func Run(ctx context.Context, cfg Config, decider Decider, logger *slog.Logger, observers ...Observer) error {
	if logger == nil {
		logger = slog.Default()
	}
	b := newBackoff(cfg.ReconnectDelay, cfg.MaxBackoff)
	dialer := net.Dialer{Timeout: cfg.DialTimeout}

	for {
		conn, err := dialer.DialContext(ctx, "tcp", cfg.Address)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error("Could not connect", "addr", cfg.Address, "error", err)
		} else {
			logger.Info("Connected", "addr", cfg.Address)
			s := NewSession(conn, decider, logger, observers...)
			err = s.Play(ctx, cfg.User, cfg.Password, cfg.Greeting)
			conn.Close()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, ErrKicked) {
				logger.Warn("Kicked", "error", err)
			} else {
				logger.Error("Session ended", "error", err)
			}
			if s.Games() > 0 {
				b.reset()
			}
		}

		wait := b.next()
		logger.Info("Reconnecting", "in", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// backoff doubles the wait after every call to next, up to max.
type backoff struct {
	base, max, cur time.Duration
}

func newBackoff(base, max time.Duration) *backoff {
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	if max < base {
		max = base
	}
	return &backoff{base: base, max: max}
}

func (b *backoff) next() time.Duration {
	if b.cur == 0 {
		b.cur = b.base
	} else {
		b.cur = min(b.cur*2, b.max)
	}
	return b.cur
}

func (b *backoff) reset() {
	b.cur = 0
}
