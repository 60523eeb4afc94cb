package engine

import (
	"math"
	"math/rand"
	"testing"

	"github.com/brensch/lightcycle/game"
)

func TestComputeField_NoOpponentsIsFlat(t *testing.T) {
	s := newState(6, 4, 1)
	place(s, 1, pos(2, 2))
	f := ComputeField(s, DefaultConfig())
	for i := 0; i < s.Size.Cells(); i++ {
		if v := f.At(s.At(i)); v != 1.0 {
			t.Fatalf("cell %d = %v want 1", i, v)
		}
	}
}

func TestComputeField_DecaysWithDistance(t *testing.T) {
	s := newState(7, 1, 1)
	place(s, 2, pos(0, 0))
	f := ComputeField(s, DefaultConfig())

	d0, d1, d2 := f.At(pos(1, 0)), f.At(pos(2, 0)), f.At(pos(3, 0))
	t.Logf("d0=%v d1=%v d2=%v", d0, d1, d2)
	if d0 != 0.05 {
		t.Fatalf("adjacent cell=%v want the floor", d0)
	}
	if !(d0 < d1 && d1 < d2 && d2 < 1) {
		t.Fatalf("field not increasing with distance")
	}
	if want := 1 - math.Pow(0.4, 0.6); math.Abs(d1-want) > 1e-12 {
		t.Fatalf("d1=%v want %v", d1, want)
	}
	// The wrap makes the board symmetric around the head.
	if f.At(pos(6, 0)) != d0 || f.At(pos(5, 0)) != d1 {
		t.Fatalf("wrap side differs")
	}
	if f.At(pos(0, 0)) != 1.0 {
		t.Fatalf("head cell should keep the maximum")
	}
}

func TestComputeField_WallsBlockInfluence(t *testing.T) {
	s := newState(5, 5, 3)
	// Our own trail seals (2,2); the opponent cannot reach it.
	place(s, 3, pos(2, 1), pos(1, 2), pos(3, 2), pos(2, 3))
	place(s, 2, pos(0, 0))
	f := ComputeField(s, DefaultConfig())
	if v := f.At(pos(2, 2)); v != 1.0 {
		t.Fatalf("sealed cell=%v want 1\n%s", v, dumpState(s))
	}
}

func TestComputeField_OpponentsCompound(t *testing.T) {
	build := func(me game.PlayerID) *game.State {
		s := newState(7, 7, me)
		place(s, 2, pos(0, 0))
		place(s, 5, pos(3, 3))
		return s
	}
	cfg := DefaultConfig()
	// Same board; in the first one player 5 is us and does not count.
	one := ComputeField(build(5), cfg)
	two := ComputeField(build(9), cfg)

	s := build(9)
	for i := 0; i < s.Size.Cells(); i++ {
		p := s.At(i)
		if two.At(p) > one.At(p) {
			t.Fatalf("cell %v: %v > %v", p, two.At(p), one.At(p))
		}
	}
	if !(two.At(pos(3, 4)) < one.At(pos(3, 4))) {
		t.Fatalf("second opponent had no effect next to its head")
	}
}

func TestComputeField_ValuesInUnitInterval(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	cfg := DefaultConfig()
	for i := 0; i < 100; i++ {
		s := randomBoard(rng, uint32(1+rng.Intn(15)), uint32(1+rng.Intn(15)), 0.2)
		f := ComputeField(s, cfg)
		for idx := 0; idx < s.Size.Cells(); idx++ {
			if v := f.At(s.At(idx)); !(v > 0 && v <= 1) {
				t.Fatalf("board %d cell %d = %v", i, idx, v)
			}
		}
	}
}

func TestClaim(t *testing.T) {
	cfg := DefaultConfig()

	s := newState(3, 3, 1)
	place(s, 1,
		pos(1, 0), pos(2, 0), pos(0, 1), pos(2, 1),
		pos(0, 2), pos(1, 2), pos(2, 2), pos(0, 0))
	f := ComputeField(s, cfg)

	// One free cell, no opponents: field 1 at scale(0) = 1.
	if got := f.Claim(s, pos(1, 1), cfg); math.Abs(got-1) > 1e-12 {
		t.Fatalf("pocket claim=%v want 1", got)
	}
	if got := f.Claim(s, pos(0, 0), cfg); got != 0 {
		t.Fatalf("occupied claim=%v want 0", got)
	}
}

func TestClaim_PenalisesOpponentContact(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FieldFloor = 0.999999
	cfg.FieldDecayBase = 0.000001

	open := newState(9, 9, 1)
	place(open, 2, pos(0, 0))

	// One extra trail cell, touching the start.
	wall := newState(9, 9, 1)
	place(wall, 2, pos(4, 3), pos(0, 0))

	start := pos(4, 4)
	a := ComputeField(open, cfg).Claim(open, start, cfg)
	b := ComputeField(wall, cfg).Claim(wall, start, cfg)
	t.Logf("open=%v wall=%v", a, b)
	if !(b < a*0.96) {
		t.Fatalf("wall contact not penalised: open=%v wall=%v", a, b)
	}
}
