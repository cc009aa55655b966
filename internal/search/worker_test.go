package search

import (
	"sync/atomic"
	"testing"

	"github.com/ymatsux/goshogi/internal/history"
	"github.com/ymatsux/goshogi/internal/nnue"
	"github.com/ymatsux/goshogi/internal/shogi"
	"github.com/ymatsux/goshogi/internal/tt"
)

func newTestWorker(t *testing.T) *Worker {
	t.Helper()
	eval, err := nnue.NewEvaluator("")
	if err != nil {
		t.Fatalf("nnue.NewEvaluator: %v", err)
	}
	var stop atomic.Bool
	w := NewWorker(0, tt.New(1), history.New(), NewCorrectionHistory(), eval, &stop)
	w.InitSearch(shogi.NewPosition())
	return w
}

func TestSearchDepthReturnsLegalMove(t *testing.T) {
	w := newTestWorker(t)

	move, _ := w.SearchDepth(4, -Infinity, Infinity)
	if move == shogi.NoMove {
		t.Fatal("expected a legal move from the starting position")
	}
	if !w.pos.IsLegal(move) {
		t.Fatalf("SearchDepth returned an illegal move: %v", move)
	}
}

func TestSearchDepthIncreasesNodeCount(t *testing.T) {
	w := newTestWorker(t)

	w.SearchDepth(2, -Infinity, Infinity)
	shallow := w.Nodes()

	w.SearchDepth(5, -Infinity, Infinity)
	deep := w.Nodes()

	if deep <= shallow {
		t.Errorf("expected deeper search to visit more nodes: depth2=%d depth5=%d", shallow, deep)
	}
}

func TestQuiescenceStandPatWithinWindow(t *testing.T) {
	w := newTestWorker(t)
	score := w.quiescence(0, -Infinity, Infinity)
	if score <= -MateScore || score >= MateScore {
		t.Errorf("expected a bounded static-ish score from quiescence at the starting position, got %d", score)
	}
}

// TestCheckRepetitionDetectsInTreeCycle drives checkRepetition's internal
// posKeys/checks ring buffer directly rather than searching for a
// reversible move pair, so the test pins down the algorithm itself: a key
// that reappears at the same side-to-move parity, reached entirely inside
// the search tree (at or after rootLen), is a repetition.
func TestCheckRepetitionDetectsInTreeCycle(t *testing.T) {
	w := newTestWorker(t)
	w.rootLen = 0
	w.posKeys[0] = 0xAAAA
	w.checks[0] = false
	w.posKeys[1] = 0xBBBB
	w.checks[1] = false
	w.posKeys[2] = 0xAAAA
	w.checks[2] = false
	w.keyLen = 3

	isRepeat, lossForMover := w.checkRepetition()
	if !isRepeat {
		t.Fatal("expected a repetition when the same key reappears two plies later")
	}
	if lossForMover {
		t.Fatal("expected a plain draw, not perpetual check, when neither occurrence was in check")
	}
}

func TestCheckRepetitionPerpetualCheckIsLossForMover(t *testing.T) {
	w := newTestWorker(t)
	w.rootLen = 0
	w.posKeys[0] = 0xAAAA
	w.checks[0] = false
	w.posKeys[1] = 0xBBBB
	w.checks[1] = true
	w.posKeys[2] = 0xAAAA
	w.checks[2] = true
	w.keyLen = 3

	isRepeat, lossForMover := w.checkRepetition()
	if !isRepeat {
		t.Fatal("expected a repetition")
	}
	if !lossForMover {
		t.Fatal("expected perpetual check to be scored as a loss for the side giving it")
	}
}

func TestCheckRepetitionIgnoresPreRootHistory(t *testing.T) {
	w := newTestWorker(t)
	// The cycle's earlier occurrence lies before rootLen (pre-search game
	// history), so perpetual-check detection must not fire even though
	// both recorded check flags happen to be true -- only an in-tree
	// repeat (i >= rootLen) is eligible for the loss verdict.
	w.rootLen = 2
	w.posKeys[0] = 0xAAAA
	w.checks[0] = true
	w.posKeys[1] = 0xBBBB
	w.checks[1] = true
	w.posKeys[2] = 0xAAAA
	w.checks[2] = true
	w.keyLen = 3

	isRepeat, lossForMover := w.checkRepetition()
	if !isRepeat {
		t.Fatal("expected a repetition")
	}
	if lossForMover {
		t.Fatal("expected a plain draw since the cycle's earlier half is outside the search tree")
	}
}

func TestCheckRepetitionNoCycle(t *testing.T) {
	w := newTestWorker(t)
	w.rootLen = 0
	w.posKeys[0] = 0xAAAA
	w.posKeys[1] = 0xBBBB
	w.posKeys[2] = 0xCCCC
	w.keyLen = 3

	isRepeat, _ := w.checkRepetition()
	if isRepeat {
		t.Fatal("expected no repetition when no key reoccurs")
	}
}
