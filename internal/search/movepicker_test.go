package search

import (
	"testing"

	"github.com/ymatsux/goshogi/internal/history"
	"github.com/ymatsux/goshogi/internal/shogi"
)

func TestMovePickerEmitsEveryLegalMoveOnce(t *testing.T) {
	pos := shogi.NewPosition()
	hist := history.New()

	mp := NewMovePicker(pos, hist, 0, OrderingContext{TTMove: shogi.NoMove})

	seen := make(map[shogi.Move]int)
	for {
		m, ok := mp.Next()
		if !ok {
			break
		}
		seen[m]++
	}

	legal := pos.GenerateLegal()
	if len(seen) != legal.Len() {
		t.Fatalf("expected %d distinct moves from the picker, got %d", legal.Len(), len(seen))
	}
	for i := 0; i < legal.Len(); i++ {
		m := legal.Get(i)
		if seen[m] != 1 {
			t.Errorf("move %v emitted %d times, want exactly 1", m, seen[m])
		}
	}
}

func TestMovePickerTTMoveFirst(t *testing.T) {
	pos := shogi.NewPosition()
	hist := history.New()

	legal := pos.GenerateLegal()
	if legal.Len() == 0 {
		t.Fatal("starting position has no legal moves")
	}
	ttMove := legal.Get(legal.Len() - 1)

	mp := NewMovePicker(pos, hist, 0, OrderingContext{TTMove: ttMove})
	first, ok := mp.Next()
	if !ok {
		t.Fatal("expected at least one move")
	}
	if first != ttMove {
		t.Fatalf("expected the TT move to be emitted first, got %v want %v", first, ttMove)
	}
}

func TestMovePickerSkipQuietsOmitsNonCaptures(t *testing.T) {
	pos := shogi.NewPosition()
	hist := history.New()

	mp := NewMovePicker(pos, hist, 0, OrderingContext{})
	mp.SkipQuiets()

	captures := pos.GenerateLegalCaptures()
	count := 0
	for {
		m, ok := mp.Next()
		if !ok {
			break
		}
		count++
		found := false
		for i := 0; i < captures.Len(); i++ {
			if captures.Get(i) == m {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("SkipQuiets emitted a non-capture move %v", m)
		}
	}
	if count != captures.Len() {
		t.Fatalf("expected %d captures, got %d", captures.Len(), count)
	}
}
