package rules

import (
	"fmt"
	"strings"
	"testing"

	"github.com/brensch/lightcycle/game"
)

func dumpState(state *game.State) string {
	if state == nil {
		return "<nil state>"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Size=%dx%d Me=%d at (%d,%d)\n", state.Size.Width, state.Size.Height, state.MyID, state.MyPos.X, state.MyPos.Y)
	for y := uint32(0); y < state.Size.Height; y++ {
		for x := uint32(0); x < state.Size.Width; x++ {
			p := game.Position{X: x, Y: y}
			owner, ok := state.Owner(p)
			switch {
			case !ok:
				b.WriteByte('.')
			case state.Heads[owner] == p:
				b.WriteByte('H')
			default:
				b.WriteByte(byte('0' + owner%10))
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func newState(w, h uint32, me game.PlayerID) *game.State {
	s := game.NewState()
	s.ApplyGameStart(game.Size{Width: w, Height: h}, me)
	return s
}

func TestLegalMoves_FiltersOccupied(t *testing.T) {
	s := newState(5, 5, 1)
	s.ApplyPosition(2, game.Position{X: 2, Y: 1}) // above us
	s.ApplyPosition(2, game.Position{X: 1, Y: 2}) // left of us
	s.ApplyPosition(1, game.Position{X: 2, Y: 2})
	t.Logf("\n%s", dumpState(s))

	moves := LegalMoves(s)
	got := map[game.Direction]game.Position{}
	for _, m := range moves {
		got[m.Dir] = m.Dest
	}
	if len(got) != 2 {
		t.Fatalf("moves=%v want 2", moves)
	}
	if got[game.MoveDown] != (game.Position{X: 2, Y: 3}) {
		t.Fatalf("down dest=%v", got[game.MoveDown])
	}
	if got[game.MoveRight] != (game.Position{X: 3, Y: 2}) {
		t.Fatalf("right dest=%v", got[game.MoveRight])
	}
}

func TestLegalMoves_Uninitialized(t *testing.T) {
	if moves := LegalMoves(game.NewState()); len(moves) != 0 {
		t.Fatalf("moves=%v want none", moves)
	}
}

func TestLegalMoves_Boxed(t *testing.T) {
	s := newState(3, 3, 1)
	s.ApplyPosition(1, game.Position{X: 1, Y: 1})
	for _, n := range (game.Position{X: 1, Y: 1}).Neighbours(s.Size) {
		s.ApplyPosition(2, n)
	}
	if moves := LegalMoves(s); len(moves) != 0 {
		t.Fatalf("moves=%v want none\n%s", moves, dumpState(s))
	}
}

func TestHasNeighbourHead_WrapsAndIgnoresSelf(t *testing.T) {
	s := newState(3, 3, 1)
	s.ApplyPosition(1, game.Position{X: 1, Y: 1})
	s.ApplyPosition(2, game.Position{X: 1, Y: 0})

	if !HasNeighbourHead(s, game.Position{X: 1, Y: 2}) {
		t.Fatalf("(1,2) touches (1,0) across the wrap")
	}
	if HasNeighbourHead(s, game.Position{X: 0, Y: 1}) {
		t.Fatalf("(0,1) only touches our own head")
	}
}

func TestHasWall_IgnoresHeads(t *testing.T) {
	s := newState(5, 5, 1)
	s.ApplyPosition(2, game.Position{X: 0, Y: 0})
	s.ApplyPosition(2, game.Position{X: 1, Y: 0}) // head of 2
	s.ApplyPosition(1, game.Position{X: 4, Y: 4})
	s.ApplyPosition(1, game.Position{X: 4, Y: 3}) // our head, (4,4) is our trail

	if HasWall(s, game.Position{X: 2, Y: 0}) {
		t.Fatalf("(2,0) touches only a head")
	}
	if !HasWall(s, game.Position{X: 0, Y: 1}) {
		t.Fatalf("(0,1) touches trail (0,0)")
	}
	if !HasWall(s, game.Position{X: 3, Y: 4}) {
		t.Fatalf("(3,4) touches our trail")
	}
	if HasOpponentWall(s, game.Position{X: 3, Y: 4}) {
		t.Fatalf("our own trail is not an opponent wall")
	}
	if !HasOpponentWall(s, game.Position{X: 4, Y: 0}) {
		t.Fatalf("(4,0) touches (0,0) across the wrap")
	}
}

func TestFreeNeighbours(t *testing.T) {
	s := newState(4, 4, 1)
	s.ApplyPosition(2, game.Position{X: 1, Y: 0})
	s.ApplyPosition(2, game.Position{X: 0, Y: 1})
	if got := FreeNeighbours(s, game.Position{X: 1, Y: 1}); got != 2 {
		t.Fatalf("free=%d want=2", got)
	}
}

func TestArena_StepMovesAndKills(t *testing.T) {
	a := NewArena(game.Size{Width: 5, Height: 5}, []game.PlayerHead{
		{Player: 1, Pos: game.Position{X: 0, Y: 2}},
		{Player: 2, Pos: game.Position{X: 2, Y: 2}},
		{Player: 3, Pos: game.Position{X: 4, Y: 0}},
	})
	t.Logf("before:\n%s", dumpState(a.Board()))

	// 1 and 2 collide head-on at (1,2); 3 wraps from y=0 to y=4.
	res := a.Step(map[game.PlayerID]game.Direction{
		1: game.MoveRight,
		2: game.MoveLeft,
		3: game.MoveUp,
	})
	t.Logf("after:\n%s", dumpState(a.Board()))

	if len(res.Dead) != 2 || res.Dead[0] != 1 || res.Dead[1] != 2 {
		t.Fatalf("dead=%v want [1 2]", res.Dead)
	}
	if len(res.Positions) != 1 || res.Positions[0].Pos != (game.Position{X: 4, Y: 4}) {
		t.Fatalf("positions=%v", res.Positions)
	}
	if !a.IsOver() {
		t.Fatalf("one player left, game should be over")
	}
	if got := a.Board().FreeCells(); got != 23 {
		t.Fatalf("free=%d want=23 (dead trails removed)", got)
	}
}

func TestArena_RunIntoTrail(t *testing.T) {
	a := NewArena(game.Size{Width: 4, Height: 1}, []game.PlayerHead{
		{Player: 1, Pos: game.Position{X: 0, Y: 0}},
		{Player: 2, Pos: game.Position{X: 2, Y: 0}},
	})
	// Player 2 keeps moving up by default, which on a 1-high board is its own cell.
	res := a.Step(map[game.PlayerID]game.Direction{1: game.MoveLeft})
	if len(res.Dead) != 1 || res.Dead[0] != 2 {
		t.Fatalf("dead=%v want [2]", res.Dead)
	}
	if len(res.Positions) != 1 || res.Positions[0].Pos != (game.Position{X: 3, Y: 0}) {
		t.Fatalf("positions=%v", res.Positions)
	}
}

func TestArena_SoloRunsUntilDeath(t *testing.T) {
	a := NewArena(game.Size{Width: 3, Height: 1}, []game.PlayerHead{
		{Player: 1, Pos: game.Position{X: 0, Y: 0}},
	})
	right := map[game.PlayerID]game.Direction{1: game.MoveRight}
	for i := 0; i < 2; i++ {
		if a.IsOver() {
			t.Fatalf("step %d: solo game over while the player is alive", i)
		}
		if res := a.Step(right); len(res.Dead) != 0 {
			t.Fatalf("step %d: dead=%v", i, res.Dead)
		}
	}
	if res := a.Step(right); len(res.Dead) != 1 || res.Dead[0] != 1 {
		t.Fatalf("dead=%v want [1] after wrapping into the trail", res.Dead)
	}
	if !a.IsOver() {
		t.Fatalf("game should be over")
	}
}
