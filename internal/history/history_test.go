package history

import (
	"testing"

	"github.com/ymatsux/goshogi/internal/shogi"
)

func TestButterflySaturatesWithinBounds(t *testing.T) {
	tables := New()
	m := shogi.NewMove(shogi.NewSquare(2, 2), shogi.NewSquare(2, 3), false)

	for i := 0; i < 10000; i++ {
		tables.UpdateButterfly(shogi.Black, m, 20, true)
	}
	score := tables.ButterflyScore(shogi.Black, m)
	if score > maxHistory || score < -maxHistory {
		t.Fatalf("history score %d escaped bound +/-%d", score, maxHistory)
	}
	if score <= 0 {
		t.Fatalf("expected a positive score after repeated good updates, got %d", score)
	}
}

func TestKillersShiftAndDeduplicate(t *testing.T) {
	tables := New()
	m1 := shogi.NewDrop(shogi.Pawn, shogi.NewSquare(4, 4))
	m2 := shogi.NewDrop(shogi.Lance, shogi.NewSquare(4, 4))

	tables.UpdateKillers(m1, 3)
	tables.UpdateKillers(m2, 3)
	if !tables.IsKiller(m1, 3) || !tables.IsKiller(m2, 3) {
		t.Fatal("expected both killers to be recorded")
	}

	tables.UpdateKillers(m1, 3) // already first killer, should be a no-op
	if tables.Killers[3][0] != m1 {
		t.Fatalf("re-recording the current first killer should not shift: got %v", tables.Killers[3][0])
	}
}

func TestCounterMoveRoundTrip(t *testing.T) {
	tables := New()
	prev := shogi.NewMove(shogi.NewSquare(1, 1), shogi.NewSquare(1, 2), false)
	reply := shogi.NewMove(shogi.NewSquare(7, 7), shogi.NewSquare(7, 6), false)

	tables.SetCounter(shogi.White, prev, reply)
	if got := tables.GetCounter(shogi.White, prev); got != reply {
		t.Fatalf("expected counter move %v, got %v", reply, got)
	}
	if got := tables.GetCounter(shogi.Black, prev); got == reply {
		t.Fatal("counter moves must not leak across colours")
	}
}

func TestPawnKeyStableForIdenticalStructure(t *testing.T) {
	pos := shogi.NewPosition()
	k1 := PawnKey(pos)
	k2 := PawnKey(pos)
	if k1 != k2 {
		t.Fatalf("PawnKey must be deterministic: got %d and %d", k1, k2)
	}
}
