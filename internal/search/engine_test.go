package search

import (
	"testing"
	"time"

	"github.com/ymatsux/goshogi/internal/shogi"
)

func TestEngineSearchBasic(t *testing.T) {
	eng := NewEngine(4)
	pos := shogi.NewPosition()

	move := eng.SearchWithUCILimits(pos, nil, UCILimits{MoveTime: 300})
	if move == shogi.NoMove {
		t.Fatal("expected a move from the starting position")
	}
	if !pos.IsLegal(move) {
		t.Fatalf("engine returned an illegal move: %v", move)
	}
}

func TestEngineSearchDepthLimited(t *testing.T) {
	eng := NewEngine(4)
	pos := shogi.NewPosition()

	var maxDepthSeen int
	eng.SetInfoHandler(func(r Result) {
		if r.Depth > maxDepthSeen {
			maxDepthSeen = r.Depth
		}
	})

	move := eng.SearchWithUCILimits(pos, nil, UCILimits{Depth: 3})
	if move == shogi.NoMove {
		t.Fatal("expected a move")
	}
	if maxDepthSeen > 3 {
		t.Errorf("expected depth to stay within the requested limit of 3, saw %d", maxDepthSeen)
	}
}

func TestEngineLazySMPAgreesOnLegalMove(t *testing.T) {
	eng := NewEngine(4)
	eng.SetThreads(4)
	pos := shogi.NewPosition()

	move := eng.SearchWithUCILimits(pos, nil, UCILimits{MoveTime: 300})
	if move == shogi.NoMove {
		t.Fatal("expected a move with multiple Lazy-SMP threads")
	}
	if !pos.IsLegal(move) {
		t.Fatalf("Lazy-SMP search returned an illegal move: %v", move)
	}
}

func TestEngineStopReturnsPromptly(t *testing.T) {
	eng := NewEngine(4)
	pos := shogi.NewPosition()

	done := make(chan shogi.Move, 1)
	go func() {
		done <- eng.SearchWithUCILimits(pos, nil, UCILimits{Infinite: true})
	}()

	time.Sleep(50 * time.Millisecond)
	eng.Stop()

	select {
	case move := <-done:
		if move == shogi.NoMove {
			t.Error("expected a fallback move even on an immediate stop")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not honor Stop within 5s")
	}
}

func TestEngineClearResetsTables(t *testing.T) {
	eng := NewEngine(4)
	pos := shogi.NewPosition()

	eng.SearchWithUCILimits(pos, nil, UCILimits{MoveTime: 200})
	if eng.tt.HashFull() == 0 {
		t.Skip("transposition table empty after a short search, nothing to verify")
	}

	eng.Clear()
	if full := eng.tt.HashFull(); full != 0 {
		t.Errorf("expected an empty transposition table after Clear, hashfull=%d", full)
	}
}

func TestEngineEvaluateIsSymmetricOnStartpos(t *testing.T) {
	eng := NewEngine(4)
	pos := shogi.NewPosition()

	score := eng.Evaluate(pos)
	if score < -2000 || score > 2000 {
		t.Errorf("expected a small evaluation for the balanced starting position, got %d", score)
	}
}

func TestEnginePerftDepth1(t *testing.T) {
	eng := NewEngine(1)
	pos := shogi.NewPosition()

	nodes := eng.Perft(pos, 1)
	legal := pos.GenerateLegal()
	if nodes != uint64(legal.Len()) {
		t.Errorf("perft(1) = %d, want %d (legal move count)", nodes, legal.Len())
	}
}

func TestSetThreadsClampsToAtLeastOne(t *testing.T) {
	eng := NewEngine(1)
	eng.SetThreads(0)
	if eng.numThreads != 1 {
		t.Errorf("expected SetThreads(0) to clamp to 1, got %d", eng.numThreads)
	}
	eng.SetThreads(-5)
	if eng.numThreads != 1 {
		t.Errorf("expected SetThreads(-5) to clamp to 1, got %d", eng.numThreads)
	}
}
