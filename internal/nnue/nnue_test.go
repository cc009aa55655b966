package nnue

import (
	"testing"

	"github.com/ymatsux/goshogi/internal/shogi"
)

func TestEvaluateStartingPosition(t *testing.T) {
	eval, err := NewEvaluator("")
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}
	pos := shogi.NewPosition()
	score := eval.Evaluate(pos)
	// Random weights won't produce a meaningful score, only a bounded one.
	if score < -1_000_000 || score > 1_000_000 {
		t.Fatalf("score %d implausibly large", score)
	}
}

func TestIncrementalMatchesFullRecompute(t *testing.T) {
	eval, err := NewEvaluator("")
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}
	pos := shogi.NewPosition()
	eval.Refresh(pos)

	moves := pos.GenerateLegal()
	if moves.Len() == 0 {
		t.Fatal("expected legal moves from the starting position")
	}
	m := moves.Get(0)

	eval.Push()
	undo := pos.DoMove(m)
	eval.Update(pos, undo.Dirty)
	incremental := eval.net.Forward(eval.stack.Current(), pos.SideToMove)

	full := NewAccumulatorStack()
	fresh := full.Current()
	fresh.ComputeFull(pos, eval.net)
	fromScratch := eval.net.Forward(fresh, pos.SideToMove)

	if incremental != fromScratch {
		t.Fatalf("incremental update diverged from full recompute: %d != %d", incremental, fromScratch)
	}

	pos.UndoMove(m)
	eval.Pop()
}
