package shogi

import "testing"

// TestDropPawnMateIllegal builds a minimal uchifuzume position: the
// White king on 9a has its flight squares 8a and 8b filled by its own
// knight and silver (neither of which attacks 9b), and the drop square
// 9b is defended by a Black gold on 9c, so Black's pawn drop is
// checkmate and therefore illegal, per spec.md §4.C / E4.
func TestDropPawnMateIllegal(t *testing.T) {
	pos := &Position{}
	if err := pos.SetSFEN("kn7/1s7/G8/9/9/9/9/9/8K b P 1"); err != nil {
		t.Fatalf("SetSFEN: %v", err)
	}

	drop := NewDrop(Pawn, NewSquare(0, 1))
	if !pos.wouldBeDropPawnMate(NewSquare(0, 1), Black) {
		t.Fatal("expected drop to be detected as drop-pawn-mate")
	}
	if pos.IsLegal(drop) {
		t.Fatal("expected uchifuzume drop to be illegal")
	}

	legal := pos.GenerateLegal()
	for i := 0; i < legal.Len(); i++ {
		if legal.Get(i) == drop {
			t.Fatal("mating pawn drop must not appear among legal moves")
		}
	}
}

// TestDropPawnCheckWithFlightIsLegal mirrors the same check but removes
// the king's own blockers, leaving 8a as an empty flight square: the
// same pawn drop now gives check without mating, so it must be legal.
func TestDropPawnCheckWithFlightIsLegal(t *testing.T) {
	pos := &Position{}
	if err := pos.SetSFEN("k8/9/G8/9/9/9/9/9/8K b P 1"); err != nil {
		t.Fatalf("SetSFEN: %v", err)
	}

	drop := NewDrop(Pawn, NewSquare(0, 1))
	if pos.wouldBeDropPawnMate(NewSquare(0, 1), Black) {
		t.Fatal("expected drop not to be mate: a flight square is open")
	}
	if !pos.IsLegal(drop) {
		t.Fatal("expected checking pawn drop with a flight square to be legal")
	}
}

// TestDropPawnNoCheckAlwaysLegal confirms a pawn drop that does not give
// check is never rejected as uchifuzume, regardless of surrounding
// material.
func TestDropPawnNoCheckAlwaysLegal(t *testing.T) {
	pos := NewPosition()
	if pos.wouldBeDropPawnMate(NewSquare(4, 4), Black) {
		t.Fatal("a non-checking drop can never be drop-pawn-mate")
	}
}
