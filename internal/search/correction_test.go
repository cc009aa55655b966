package search

import (
	"testing"

	"github.com/ymatsux/goshogi/internal/shogi"
)

func TestCorrectionHistoryStartsZero(t *testing.T) {
	c := NewCorrectionHistory()
	pos := shogi.NewPosition()

	if got := c.Get(pos); got != 0 {
		t.Fatalf("expected 0 correction on an empty table, got %d", got)
	}
}

func TestCorrectionHistoryUpdateNudgesTowardGap(t *testing.T) {
	c := NewCorrectionHistory()
	pos := shogi.NewPosition()

	for i := 0; i < 50; i++ {
		c.Update(pos, 200, 0, 8)
	}

	got := c.Get(pos)
	if got <= 0 {
		t.Fatalf("expected a positive correction after repeated positive gaps, got %d", got)
	}
}

func TestCorrectionHistoryClampsExtremes(t *testing.T) {
	c := NewCorrectionHistory()
	pos := shogi.NewPosition()

	for i := 0; i < 10000; i++ {
		c.Update(pos, 32000, -32000, 32)
	}

	got := c.Get(pos)
	if got > 16000 || got < -16000 {
		t.Fatalf("expected correction within [-16000, 16000], got %d", got)
	}
}

func TestCorrectionHistoryClear(t *testing.T) {
	c := NewCorrectionHistory()
	pos := shogi.NewPosition()

	c.Update(pos, 500, 0, 8)
	if c.Get(pos) == 0 {
		t.Fatalf("expected a nonzero correction before Clear")
	}

	c.Clear()
	if got := c.Get(pos); got != 0 {
		t.Fatalf("expected 0 correction after Clear, got %d", got)
	}
}

func TestCorrectionHistoryAgeHalves(t *testing.T) {
	c := NewCorrectionHistory()
	pos := shogi.NewPosition()

	for i := 0; i < 50; i++ {
		c.Update(pos, 400, 0, 8)
	}
	before := c.Get(pos)
	if before == 0 {
		t.Fatalf("expected a nonzero correction before Age")
	}

	c.Age()
	after := c.Get(pos)
	if after != before/2 {
		t.Fatalf("expected Age to halve the entry: before=%d after=%d", before, after)
	}
}
