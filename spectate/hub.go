// Package spectate streams the bot's view of the game to WebSocket clients.
package spectate

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/brensch/lightcycle/client"
	"github.com/brensch/lightcycle/game"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Hub fans frames out to spectators. It implements client.Observer; all
// sends are non-blocking.
type Hub struct {
	conns    *ConnManager
	upgrader websocket.Upgrader
	logger   *slog.Logger

	// mu orders catch-up messages for new spectators against broadcasts.
	mu        sync.Mutex
	gameStart []byte
	lastFrame []byte
	frame     *FrameView
	frames    int64
	dropped   int64
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		conns: NewConnManager(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

var _ client.Observer = (*Hub)(nil)

func (h *Hub) GameStarted(id uuid.UUID, size game.Size, me game.PlayerID) {
	msg, err := encodeEvent(EventGameStart, GameStart{GameID: id.String(), Width: size.Width, Height: size.Height, Me: uint32(me)})
	if err != nil {
		h.logger.Error("Failed to encode game start", "error", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.gameStart = msg
	h.lastFrame = nil
	h.frame = nil
	h.broadcastLocked(msg)
}

func (h *Hub) Tick(f client.Frame) {
	view := NewFrameView(f)
	msg, err := encodeEvent(EventFrame, view)
	if err != nil {
		h.logger.Error("Failed to encode frame", "error", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastFrame = msg
	h.frame = &view
	h.frames++
	h.broadcastLocked(msg)
}

func (h *Hub) GameEnded(o client.Outcome) {
	msg, err := encodeEvent(EventGameEnd, GameEnd{GameID: o.GameID.String(), Won: o.Won, Wins: o.Wins, Losses: o.Losses, Ticks: o.Ticks})
	if err != nil {
		h.logger.Error("Failed to encode game end", "error", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcastLocked(msg)
}

func (h *Hub) broadcastLocked(msg []byte) {
	for _, c := range h.conns.Snapshot() {
		if !c.enqueue(msg) {
			h.dropped++
		}
	}
}

// Count returns the number of connected spectators.
func (h *Hub) Count() int {
	return h.conns.Count()
}

// Latest returns the most recent frame of the running game.
func (h *Hub) Latest() (FrameView, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.frame == nil {
		return FrameView{}, false
	}
	return *h.frame, true
}

// Handler serves the feed on /ws, the latest frame on /state and a short
// status document on /.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWS)
	mux.HandleFunc("/state", h.handleState)
	mux.HandleFunc("/", h.handleStatus)
	return mux
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade connection", "error", err)
		return
	}
	c := newConn(ws)
	hello, err := encodeEvent(EventHello, Hello{ConnID: c.ID})
	if err != nil {
		h.logger.Error("Failed to encode hello", "error", err)
		ws.Close()
		return
	}

	h.mu.Lock()
	c.enqueue(hello)
	if h.gameStart != nil {
		c.enqueue(h.gameStart)
	}
	if h.lastFrame != nil {
		c.enqueue(h.lastFrame)
	}
	h.conns.Add(c)
	h.mu.Unlock()

	h.logger.Info("Spectator connected", "conn", c.ID, "remote", r.RemoteAddr)
	go c.writeLoop()

	// Spectators only listen; reading detects the close.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("Spectator read error", "conn", c.ID, "error", err)
			}
			break
		}
	}
	h.conns.Remove(c.ID)
	c.close()
	h.logger.Info("Spectator disconnected", "conn", c.ID)
}

func (h *Hub) handleState(w http.ResponseWriter, r *http.Request) {
	withCORS(w)
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	view, ok := h.Latest()
	if !ok {
		http.Error(w, "no game running", http.StatusNotFound)
		return
	}
	writeJSON(w, view)
}

type status struct {
	Spectators int    `json:"spectators"`
	Frames     int64  `json:"frames"`
	Dropped    int64  `json:"dropped"`
	GameID     string `json:"game_id,omitempty"`
	Tick       int    `json:"tick"`
}

func (h *Hub) handleStatus(w http.ResponseWriter, r *http.Request) {
	withCORS(w)
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	h.mu.Lock()
	s := status{Spectators: h.conns.Count(), Frames: h.frames, Dropped: h.dropped}
	if h.frame != nil {
		s.GameID, s.Tick = h.frame.GameID, h.frame.Tick
	}
	h.mu.Unlock()
	writeJSON(w, s)
}

func withCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
