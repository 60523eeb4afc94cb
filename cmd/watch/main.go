package main

import (
	"context"
	"flag"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	url := flag.String("url", "ws://localhost:8080/ws", "Spectator feed of a running tronbot")
	timeout := flag.Duration("timeout", 5*time.Second, "Handshake timeout")
	retry := flag.Duration("retry", 2*time.Second, "Wait before redialling a dropped feed")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan tea.Msg, 64)
	go follow(ctx, *url, *timeout, *retry, updates)

	p := tea.NewProgram(initialModel(*url, updates), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}
}
