package spectate

import (
	"encoding/json"
	"maps"
	"math"
	"slices"

	"github.com/brensch/lightcycle/client"
)

// Event is the envelope of every message on the feed.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Event types.
const (
	EventHello     = "hello"
	EventGameStart = "game_start"
	EventFrame     = "frame"
	EventGameEnd   = "game_end"
)

type Hello struct {
	ConnID string `json:"conn_id"`
}

type GameStart struct {
	GameID string `json:"game_id"`
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
	Me     uint32 `json:"me"`
}

type GameEnd struct {
	GameID string `json:"game_id"`
	Won    bool   `json:"won"`
	Wins   uint32 `json:"wins"`
	Losses uint32 `json:"losses"`
	Ticks  int    `json:"ticks"`
}

// FrameView is a board as sent to spectators. Owners holds one entry per
// cell in row-major order, -1 for free cells.
type FrameView struct {
	GameID     string          `json:"game_id"`
	Tick       int             `json:"tick"`
	TimeNs     int64           `json:"time_ns"`
	Width      uint32          `json:"width"`
	Height     uint32          `json:"height"`
	Me         uint32          `json:"me"`
	Owners     []int64         `json:"owners"`
	Heads      []HeadView      `json:"heads"`
	Move       string          `json:"move,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	Candidates []CandidateView `json:"candidates,omitempty"`
}

type HeadView struct {
	ID   uint32 `json:"id"`
	Name string `json:"name,omitempty"`
	X    uint32 `json:"x"`
	Y    uint32 `json:"y"`
}

type CandidateView struct {
	Move         string  `json:"move"`
	HeadAdjacent bool    `json:"head_adjacent"`
	FollowUp     float64 `json:"follow_up"`
	HugsWall     bool    `json:"hugs_wall"`
	Direct       float64 `json:"direct"`
	Region       int     `json:"region"`
}

// NewFrameView flattens a frame.
func NewFrameView(f client.Frame) FrameView {
	b := f.Board
	v := FrameView{
		GameID: f.GameID.String(),
		Tick:   f.Tick,
		TimeNs: f.Time.UnixNano(),
		Width:  b.Size.Width,
		Height: b.Size.Height,
		Me:     uint32(b.MyID),
		Owners: make([]int64, b.Size.Cells()),
	}
	for i := range v.Owners {
		if owner, ok := b.Owner(b.At(i)); ok {
			v.Owners[i] = int64(owner)
		} else {
			v.Owners[i] = -1
		}
	}

	for _, id := range slices.Sorted(maps.Keys(b.Heads)) {
		p := b.Heads[id]
		v.Heads = append(v.Heads, HeadView{ID: uint32(id), Name: f.Names[id], X: p.X, Y: p.Y})
	}

	if d := f.Decision; d != nil {
		v.Move = d.Move.String()
		v.Reason = d.Reason
		for _, c := range d.Candidates {
			v.Candidates = append(v.Candidates, CandidateView{
				Move:         c.Dir.String(),
				HeadAdjacent: c.Ranking.HeadAdjacent,
				FollowUp:     jsonFloat(c.Ranking.FollowUp),
				HugsWall:     c.Ranking.HugsWall,
				Direct:       jsonFloat(c.Ranking.Direct),
				Region:       c.Region.Size,
			})
		}
	}
	return v
}

// jsonFloat maps values encoding/json cannot represent to 0.
func jsonFloat(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func encodeEvent(typ string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Type: typ, Data: raw})
}
