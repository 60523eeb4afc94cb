package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

type Server struct {
	arch *archive
}

func newServer(arch *archive) *Server {
	return &Server{arch: arch}
}

type StatsResponse struct {
	Sources []SourceSummary `json:"sources"`
	Reasons []Count         `json:"reasons"`
	Moves   []Count         `json:"moves"`
}

type GamesResponse struct {
	Games []GameSummary `json:"games"`
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/games", s.handleGames)
	mux.HandleFunc("/api/games/", s.handleGameTicks)
	mux.HandleFunc("/api/stats", s.handleStats)
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	// Reopen so files written since the last request are visible.
	db, err := s.arch.Reopen()
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to open archive: %v", err), http.StatusInternalServerError)
		return
	}
	games, err := queryGames(r.Context(), db, s.arch.roots, parseIntQuery(r, "limit", 100))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, GamesResponse{Games: games})
}

func (s *Server) handleGameTicks(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/games/"), "/")
	if id == "" {
		http.Error(w, "missing game id", http.StatusBadRequest)
		return
	}
	db, err := s.arch.Get()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	ticks, err := queryGameTicks(r.Context(), db, id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(ticks) == 0 {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}
	writeJSON(w, ticks)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	db, err := s.arch.Reopen()
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to open archive: %v", err), http.StatusInternalServerError)
		return
	}
	var resp StatsResponse
	if resp.Sources, err = querySources(r.Context(), db); err == nil {
		if resp.Reasons, err = queryReasons(r.Context(), db); err == nil {
			resp.Moves, err = queryMoves(r.Context(), db)
		}
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, resp)
}

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == http.MethodOptions {
		return false
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func parseIntQuery(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
