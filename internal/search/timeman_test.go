package search

import (
	"testing"

	"github.com/ymatsux/goshogi/internal/shogi"
)

func TestClassifyPriority(t *testing.T) {
	cases := []struct {
		name  string
		l     UCILimits
		want  mode
	}{
		{"ponder wins over everything", UCILimits{Ponder: true, Infinite: true, MoveTime: 1000}, modePonder},
		{"infinite wins over movetime", UCILimits{Infinite: true, MoveTime: 1000}, modeInfinite},
		{"movetime wins over byoyomi", UCILimits{MoveTime: 1000, Byoyomi: 5000}, modeMoveTime},
		{"byoyomi wins over fischer", UCILimits{Byoyomi: 5000, Time: [2]int{60000, 60000}}, modeByoyomi},
		{"fischer when main time is set", UCILimits{Time: [2]int{60000, 60000}, Inc: [2]int{100, 100}}, modeFischer},
		{"default when nothing set", UCILimits{}, modeDefault},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := classify(c.l); got != c.want {
				t.Errorf("classify(%+v) = %v, want %v", c.l, got, c.want)
			}
		})
	}
}

func TestIsFischerDisguisedAsByoyomi(t *testing.T) {
	l := UCILimits{Byoyomi: 5000, Inc: [2]int{5000, 3000}}
	if !isFischerDisguisedAsByoyomi(l, shogi.Black) {
		t.Error("expected black's matching increment to be detected as disguised Fischer")
	}
	if isFischerDisguisedAsByoyomi(l, shogi.White) {
		t.Error("white's increment does not match byoyomi, should not be disguised")
	}
}

func TestTimeManagerMoveTimeBudget(t *testing.T) {
	tm := NewTimeManager(DefaultTimeParameters())
	limits := UCILimits{MoveTime: 1000}
	tm.Init(limits, shogi.Black, 10)

	if tm.OptimumTime() <= 0 || tm.MaximumTime() <= 0 {
		t.Fatalf("expected positive time budgets, got optimum=%d maximum=%d", tm.OptimumTime(), tm.MaximumTime())
	}
	if tm.OptimumTime() > 1000 {
		t.Errorf("movetime budget should not exceed the requested movetime minus overhead: got %d", tm.OptimumTime())
	}
}

func TestTimeManagerInfiniteNeverPastOptimum(t *testing.T) {
	tm := NewTimeManager(DefaultTimeParameters())
	tm.Init(UCILimits{Infinite: true}, shogi.Black, 1)

	if tm.PastOptimum() {
		t.Error("an infinite search should never report PastOptimum immediately after Init")
	}
	if tm.ShouldStop() {
		t.Error("an infinite search should never report ShouldStop immediately after Init")
	}
}

func TestTimeManagerFischerScalesWithRemainingTime(t *testing.T) {
	params := DefaultTimeParameters()
	short := NewTimeManager(params)
	short.Init(UCILimits{Time: [2]int{5000, 5000}}, shogi.Black, 10)

	long := NewTimeManager(params)
	long.Init(UCILimits{Time: [2]int{300000, 300000}}, shogi.Black, 10)

	if short.OptimumTime() >= long.OptimumTime() {
		t.Errorf("expected more remaining time to produce a larger optimum budget: short=%d long=%d",
			short.OptimumTime(), long.OptimumTime())
	}
}

func TestTimeManagerStabilityShrinksOptimum(t *testing.T) {
	tm := NewTimeManager(DefaultTimeParameters())
	tm.Init(UCILimits{Time: [2]int{60000, 60000}}, shogi.Black, 10)

	before := tm.OptimumTime()
	tm.AdjustForStability(5)
	after := tm.OptimumTime()

	if after > before {
		t.Errorf("expected stability to shrink or hold the optimum budget: before=%d after=%d", before, after)
	}
}
