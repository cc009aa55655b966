package search

import (
	"time"

	"github.com/ymatsux/goshogi/internal/shogi"
)

// UCILimits mirrors the raw go-command parameters a USI controller parses
// off the wire, before any time-budget arithmetic.
type UCILimits struct {
	Time      [shogi.ColorNB]int // btime/wtime, ms
	Inc       [shogi.ColorNB]int // binc/winc, ms (Fischer increment)
	Byoyomi   int                // ms; 0 when not in byoyomi mode
	MovesToGo int
	MoveTime  int // exact think time for this move, ms; 0 when unset
	Depth     int
	Nodes     uint64
	Infinite  bool
	Ponder    bool
}

// TimeParameters is the tunable surface behind time allocation, grounded
// on the original engine's time_management::Parameters. The USI
// controller exposes some of its fields as spin options; the PV, critical,
// multiplier, increment-usage and opening/endgame fields are not exposed.
type TimeParameters struct {
	OverheadMs        int
	ByoyomiOverheadMs int
	NetworkDelay2Ms   int
	MinThinkMs        int
	PVBaseThresholdMs int
	PVDepthSlopeMs    int
	CriticalFischerMs int
	CriticalByoyomiMs int
	SoftMultiplier    float64
	HardMultiplier    float64
	IncrementUsage    float64
	SlowMoverPct      int
	MaxTimeRatio      float64
	ByoyomiSoftRatio  float64
	ByoyomiSafetyMs   int
	MoveHorizonTriggerMs int
	MoveHorizonMinMoves  int
	OpeningFactor        float64
	EndgameFactor        float64
}

// DefaultTimeParameters returns the stock tuning, matching the magnitude
// of the teacher's hardcoded constants in internal/engine/timeman.go.
func DefaultTimeParameters() TimeParameters {
	return TimeParameters{
		OverheadMs:           50,
		ByoyomiOverheadMs:    50,
		NetworkDelay2Ms:      10,
		MinThinkMs:           20,
		PVBaseThresholdMs:    200,
		PVDepthSlopeMs:       25,
		CriticalFischerMs:    1000,
		CriticalByoyomiMs:    3000,
		SoftMultiplier:       0.70,
		HardMultiplier:       2.5,
		IncrementUsage:       0.90,
		SlowMoverPct:         100,
		MaxTimeRatio:         0.80,
		ByoyomiSoftRatio:     0.70,
		ByoyomiSafetyMs:      50,
		MoveHorizonTriggerMs: 15000,
		MoveHorizonMinMoves:  8,
		OpeningFactor:        1.0,
		EndgameFactor:        1.10,
	}
}

// mode identifies which of the priority-ordered think-time strategies a
// go command resolves to, per spec.md §4.K / original engine-cli's
// time_control.rs: ponder > infinite > movetime > byoyomi > fischer >
// default.
type mode int

const (
	modeDefault mode = iota
	modeFischer
	modeByoyomi
	modeMoveTime
	modeInfinite
	modePonder
)

func classify(l UCILimits) mode {
	switch {
	case l.Ponder:
		return modePonder
	case l.Infinite:
		return modeInfinite
	case l.MoveTime > 0:
		return modeMoveTime
	case l.Byoyomi > 0:
		return modeByoyomi
	case l.Time[0] > 0 || l.Time[1] > 0:
		return modeFischer
	default:
		return modeDefault
	}
}

// isFischerDisguisedAsByoyomi reports whether a byoyomi-shaped go command
// is really Fischer-style play relayed through a byoyomi field: the GUI
// sent an increment for the side to move equal to the announced byoyomi,
// per spec.md §11's supplemented predicate. Only that equality is
// checked; no periods count is parsed or examined.
func isFischerDisguisedAsByoyomi(l UCILimits, us shogi.Color) bool {
	if l.Byoyomi <= 0 {
		return false
	}
	return l.Inc[us] == l.Byoyomi
}

// TimeManager computes and enforces the think-time budget for one search,
// grounded on internal/engine/timeman.go's optimum/maximum split, extended
// with the fuller TimeParameters surface and byoyomi/Fischer-disguise
// handling.
type TimeManager struct {
	params TimeParameters

	mode mode

	optimumTime int64 // ms
	maximumTime int64 // ms
	startTime   time.Time

	stability   int
	lastChanges int

	// pondering and wrapped* hold the inner time control a "go ponder"
	// command wraps, so PonderHit can re-anchor it to "now" once the
	// pondered move is confirmed, per spec.md §4.K.
	pondering    bool
	wrappedLimits UCILimits
	wrappedUs     shogi.Color
	wrappedPly    int
}

// NewTimeManager returns a manager using params for its tunables.
func NewTimeManager(params TimeParameters) *TimeManager {
	return &TimeManager{params: params}
}

// Init computes the optimum/maximum think times for this move from the
// raw UCI limits, the side to move, and the current ply (used to estimate
// moves-to-go when the GUI doesn't supply one).
func (tm *TimeManager) Init(limits UCILimits, us shogi.Color, ply int) {
	tm.startTime = time.Now()
	tm.mode = classify(limits)
	p := tm.params

	switch tm.mode {
	case modePonder:
		// "go ponder" wraps an inner time control: remember it so
		// PonderHit can recompute the real budget and restart the clock
		// once the pondered move is confirmed, rather than discarding
		// btime/wtime/byoyomi and searching unboundedly.
		tm.pondering = true
		wrapped := limits
		wrapped.Ponder = false
		tm.wrappedLimits = wrapped
		tm.wrappedUs = us
		tm.wrappedPly = ply
		tm.optimumTime = 1 << 40
		tm.maximumTime = 1 << 40
		return

	case modeInfinite:
		tm.optimumTime = 1 << 40
		tm.maximumTime = 1 << 40
		return

	case modeMoveTime:
		budget := limits.MoveTime - p.OverheadMs - p.NetworkDelay2Ms
		if budget < p.MinThinkMs {
			budget = p.MinThinkMs
		}
		tm.optimumTime = int64(budget)
		tm.maximumTime = int64(budget)
		return

	case modeByoyomi:
		disguised := isFischerDisguisedAsByoyomi(limits, us)
		remaining := limits.Time[us]
		byo := limits.Byoyomi
		if disguised {
			// Treat it like a Fischer increment stacked on top of main time.
			tm.computeFischer(remaining, byo, limits.MovesToGo, ply)
			return
		}

		budget := remaining
		hard := byo - p.ByoyomiSafetyMs - p.ByoyomiOverheadMs
		if hard < p.MinThinkMs {
			hard = p.MinThinkMs
		}
		soft := int(float64(byo) * p.ByoyomiSoftRatio)
		if soft < p.MinThinkMs {
			soft = p.MinThinkMs
		}
		if budget > 0 {
			// Spend remaining main time first, falling back to the
			// byoyomi period once it's exhausted; the controller re-Inits
			// per move so we only ever see one period's worth here.
			soft += budget / 8
			hard += budget
		}
		if byo >= p.CriticalByoyomiMs {
			soft = int(float64(soft) * p.SoftMultiplier)
		}
		tm.optimumTime = int64(soft)
		tm.maximumTime = int64(hard)
		return

	case modeFischer:
		tm.computeFischer(limits.Time[us], limits.Inc[us], limits.MovesToGo, ply)
		return

	default:
		tm.optimumTime = int64(p.MinThinkMs)
		tm.maximumTime = int64(p.MinThinkMs * 10)
	}
}

func (tm *TimeManager) computeFischer(remainingMs, incMs, movesToGo, ply int) {
	p := tm.params

	mtg := movesToGo
	if mtg <= 0 {
		mtg = 50 - ply/4
		if mtg < 10 {
			mtg = 10
		}
		if mtg > 50 {
			mtg = 50
		}
	}
	if remainingMs < p.MoveHorizonTriggerMs && mtg > p.MoveHorizonMinMoves {
		mtg = p.MoveHorizonMinMoves
	}

	usable := remainingMs - p.OverheadMs - p.NetworkDelay2Ms
	if usable < 0 {
		usable = 0
	}

	phase := p.OpeningFactor
	if ply > 80 {
		phase = p.EndgameFactor
	}

	optimum := (float64(usable) / float64(mtg)) * phase * (float64(p.SlowMoverPct) / 100.0)
	optimum += float64(incMs) * p.IncrementUsage

	maximum := optimum * p.HardMultiplier
	if capMax := float64(usable) * p.MaxTimeRatio; maximum > capMax {
		maximum = capMax
	}

	if remainingMs <= p.CriticalFischerMs {
		optimum *= p.SoftMultiplier
	}

	if optimum < float64(p.MinThinkMs) {
		optimum = float64(p.MinThinkMs)
	}
	if maximum < optimum {
		maximum = optimum
	}

	tm.optimumTime = int64(optimum)
	tm.maximumTime = int64(maximum)
}

// Elapsed returns the time spent searching so far, in milliseconds.
func (tm *TimeManager) Elapsed() int64 { return time.Since(tm.startTime).Milliseconds() }

// OptimumTime returns the soft think-time budget, in milliseconds.
func (tm *TimeManager) OptimumTime() int64 { return tm.optimumTime }

// MaximumTime returns the hard think-time budget, in milliseconds.
func (tm *TimeManager) MaximumTime() int64 { return tm.maximumTime }

// ShouldStop reports whether the hard budget has been exhausted.
func (tm *TimeManager) ShouldStop() bool { return tm.Elapsed() >= tm.maximumTime }

// PastOptimum reports whether the soft budget has been exhausted, the
// signal iterative deepening uses to decide whether to start one more
// depth.
func (tm *TimeManager) PastOptimum() bool { return tm.Elapsed() >= tm.optimumTime }

// AdjustForStability shrinks the optimum time when the best move has held
// steady across recent iterations, so a settled search doesn't keep
// burning the clock on agreement.
func (tm *TimeManager) AdjustForStability(stability int) {
	if stability <= 0 {
		return
	}
	factor := 1.0 - 0.05*float64(stability)
	if factor < 0.5 {
		factor = 0.5
	}
	tm.optimumTime = int64(float64(tm.optimumTime) * factor)
	if tm.optimumTime < int64(tm.params.MinThinkMs) {
		tm.optimumTime = int64(tm.params.MinThinkMs)
	}
}

// PonderHit re-anchors the wrapped inner time control to now: the budget
// sent with the original "go ponder" command starts counting only once
// the pondered move is confirmed, per spec.md §4.K. A no-op unless this
// manager is currently pondering.
func (tm *TimeManager) PonderHit() {
	if !tm.pondering {
		return
	}
	tm.pondering = false
	tm.Init(tm.wrappedLimits, tm.wrappedUs, tm.wrappedPly)
}

// AdjustForInstability grows the optimum time (capped at the hard budget)
// when the best move keeps changing across iterations.
func (tm *TimeManager) AdjustForInstability(changes int) {
	if changes <= 0 {
		return
	}
	factor := 1.0 + 0.10*float64(changes)
	if factor > 1.7 {
		factor = 1.7
	}
	grown := int64(float64(tm.optimumTime) * factor)
	if grown > tm.maximumTime {
		grown = tm.maximumTime
	}
	tm.optimumTime = grown
}
