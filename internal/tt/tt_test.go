package tt

import (
	"testing"

	"github.com/ymatsux/goshogi/internal/shogi"
)

func TestStoreAndProbeRoundTrip(t *testing.T) {
	table := New(1)
	key := uint64(0x1234567890ABCDEF)
	m := shogi.NewMove(shogi.NewSquare(2, 2), shogi.NewSquare(2, 3), false)

	table.Store(key, m, 123, -45, 8, BoundExact, true)

	got, score, staticEval, depth, bound, pv, ok := table.Probe(key)
	if !ok {
		t.Fatal("expected a hit after Store")
	}
	if got != m || score != 123 || staticEval != -45 || depth != 8 || bound != BoundExact || !pv {
		t.Fatalf("round trip mismatch: move=%v score=%d eval=%d depth=%d bound=%v pv=%v",
			got, score, staticEval, depth, bound, pv)
	}
}

func TestProbeMissOnDifferentKey(t *testing.T) {
	table := New(1)
	table.Store(0xAAAA, shogi.NoMove, 0, 0, 1, BoundExact, false)

	if _, _, _, _, _, _, ok := table.Probe(0xBBBB); ok {
		t.Fatal("expected a miss for an unrelated key")
	}
}

func TestClearRemovesEntries(t *testing.T) {
	table := New(1)
	key := uint64(0xDEADBEEF)
	table.Store(key, shogi.NoMove, 10, 10, 5, BoundLower, false)
	table.Clear()

	if _, _, _, _, _, _, ok := table.Probe(key); ok {
		t.Fatal("expected no entries to survive Clear")
	}
}

func TestMateScoreAdjustment(t *testing.T) {
	stored := AdjustScoreToTT(MateScore-1, 3)
	back := AdjustScoreFromTT(stored, 3)
	if back != MateScore-1 {
		t.Fatalf("mate score adjustment round trip failed: got %d want %d", back, MateScore-1)
	}
}
