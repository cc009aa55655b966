package search

import (
	"log"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/ymatsux/goshogi/internal/history"
	"github.com/ymatsux/goshogi/internal/nnue"
	"github.com/ymatsux/goshogi/internal/shogi"
	"github.com/ymatsux/goshogi/internal/tt"
)

// Result is one iteration's finished search output, reported for "info"
// output and for choosing the final bestmove.
type Result struct {
	WorkerID int
	Depth    int
	Score    int
	Move     shogi.Move
	PV       []shogi.Move
	Nodes    uint64
}

// Engine owns the shared transposition table and history tables, spawns
// one or more Workers per go command (Lazy-SMP when Threads > 1, per
// spec.md §5's "admits but does not mandate" language), and reports the
// deepest/best result once every worker has stopped. Grounded on
// internal/engine/engine.go.
type Engine struct {
	tt      *tt.Table
	hist    *history.Tables
	corr    *CorrectionHistory
	netMu   sync.RWMutex
	net     *nnue.Evaluator // authoritative network; workers share its Network()
	useNNUE bool

	numThreads int
	timeParams TimeParameters
	pruning    PruningOptions

	// materialLevel (1..9) scales the fallback hand-crafted evaluator's
	// mobility term, used only when useNNUE is false.
	materialLevel int

	stopFlag atomic.Bool

	tmMu sync.Mutex
	tm   *TimeManager

	infoFn func(Result)
}

// NewEngine returns an engine with a ttSizeMB-sized transposition table
// and one search thread; call SetThreads to enable Lazy-SMP.
func NewEngine(ttSizeMB int) *Engine {
	e := &Engine{
		tt:            tt.New(ttSizeMB),
		hist:          history.New(),
		corr:          NewCorrectionHistory(),
		numThreads:    1,
		timeParams:    DefaultTimeParameters(),
		pruning:       DefaultPruningOptions(),
		materialLevel: 5,
		useNNUE:       true,
	}
	eval, _ := nnue.NewEvaluator("")
	e.net = eval
	return e
}

// SetThreads sets the Lazy-SMP worker count for subsequent searches.
func (e *Engine) SetThreads(n int) {
	if n < 1 {
		n = 1
	}
	if n > 2*runtime.NumCPU() {
		n = 2 * runtime.NumCPU()
	}
	e.numThreads = n
}

// SetTimeParameters replaces the time manager's tunable surface, for the
// USI spin options listed in SPEC_FULL.md §6.K.
func (e *Engine) SetTimeParameters(p TimeParameters) { e.timeParams = p }

// TimeParameters returns the engine's current tunable surface, so a
// setoption handler can mutate a single field and write it back.
func (e *Engine) TimeParameters() TimeParameters { return e.timeParams }

// SetPruningOptions replaces the search's pruning/extension toggle and
// margin surface, applied to every worker spawned by the next search.
func (e *Engine) SetPruningOptions(p PruningOptions) { e.pruning = p }

// PruningOptions returns the engine's current pruning surface, so a
// setoption handler can flip a single toggle and write it back.
func (e *Engine) PruningOptions() PruningOptions { return e.pruning }

// SetMaterialLevel selects the fallback hand-crafted evaluator's
// mobility weight (1..9), used only when NNUE evaluation is disabled.
func (e *Engine) SetMaterialLevel(level int) {
	if level < 1 {
		level = 1
	}
	if level > 9 {
		level = 9
	}
	e.materialLevel = level
}

// PonderHit re-anchors the active search's wrapped time control to now,
// per spec.md §4.K: a "go ponder" command's budget only starts counting
// once the pondered move is confirmed. A no-op if no search is pondering.
func (e *Engine) PonderHit() {
	e.tmMu.Lock()
	tm := e.tm
	e.tmMu.Unlock()
	if tm != nil {
		tm.PonderHit()
	}
}

// LoadNNUE loads evaluation weights from path, replacing any previously
// loaded network. Safe to call between searches only (not concurrently
// with Search).
func (e *Engine) LoadNNUE(path string) error {
	eval, err := nnue.NewEvaluator(path)
	if err != nil {
		return err
	}
	e.netMu.Lock()
	e.net = eval
	e.netMu.Unlock()
	return nil
}

// SetUseNNUE toggles NNUE evaluation for Evaluate; when disabled, Evaluate
// uses fallbackEvaluate. Search workers always evaluate with the NNUE
// network and do not read this flag.
func (e *Engine) SetUseNNUE(on bool) { e.useNNUE = on }

// UseNNUE reports whether NNUE evaluation is active.
func (e *Engine) UseNNUE() bool { return e.useNNUE }

// SetInfoHandler installs a callback invoked whenever any worker reports
// a new best result, for the USI controller's "info" line.
func (e *Engine) SetInfoHandler(fn func(Result)) { e.infoFn = fn }

// Clear resets the transposition table, the killer and counter-move
// tables, and correction history for usinewgame.
func (e *Engine) Clear() {
	e.tt.Clear()
	e.hist.Clear()
	e.corr.Clear()
}

// Stop signals every running worker to return as soon as possible.
func (e *Engine) Stop() { e.stopFlag.Store(true) }

// Evaluate returns the static evaluation of pos from the side to move's
// perspective.
func (e *Engine) Evaluate(pos *shogi.Position) int {
	if !e.useNNUE {
		return e.fallbackEvaluate(pos)
	}
	e.netMu.RLock()
	net := e.net.Network()
	e.netMu.RUnlock()
	eval := nnue.NewEvaluatorSharing(net)
	eval.Refresh(pos)
	return eval.Evaluate(pos)
}

// fallbackEvaluate is the hand-crafted evaluator used when NNUE is
// disabled: material plus a mobility term (legal-move count difference,
// computed by flipping the side to move with a null move rather than a
// dedicated opponent-mobility generator) scaled by materialLevel.
func (e *Engine) fallbackEvaluate(pos *shogi.Position) int {
	score := pos.Material(pos.SideToMove) - pos.Material(pos.SideToMove.Other())
	if e.materialLevel <= 1 {
		return score
	}
	ourMobility := pos.GenerateLegal().Len()
	undo := pos.MakeNullMove()
	theirMobility := pos.GenerateLegal().Len()
	pos.UnmakeNullMove(undo)
	return score + (ourMobility-theirMobility)*e.materialLevel
}

// Perft counts leaf nodes at depth from pos, for the USI "perft" command.
func (e *Engine) Perft(pos *shogi.Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}
	var total uint64
	moves := pos.GenerateLegal()
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		pos.DoMove(m)
		total += e.Perft(pos, depth-1)
		pos.UndoMove(m)
	}
	return total
}

// SearchWithUCILimits runs a Lazy-SMP search from pos (with rootHistory
// as the preceding game's position keys) until the time manager or an
// external Stop() call ends it, and returns the best move found.
func (e *Engine) SearchWithUCILimits(pos *shogi.Position, rootHistory []uint64, limits UCILimits) shogi.Move {
	e.stopFlag.Store(false)
	e.tt.NewSearch()

	tm := NewTimeManager(e.timeParams)
	tm.Init(limits, pos.SideToMove, pos.Ply)

	e.tmMu.Lock()
	e.tm = tm
	e.tmMu.Unlock()

	maxDepth := limits.Depth
	if maxDepth <= 0 {
		maxDepth = MaxPly - 1
	}

	results := make(chan Result, e.numThreads)
	var wg sync.WaitGroup

	e.netMu.RLock()
	net := e.net.Network()
	e.netMu.RUnlock()

	for id := 0; id < e.numThreads; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			e.workerSearch(id, pos.Copy(), rootHistory, net, tm, maxDepth, limits.Nodes, results)
		}(id)
	}

	go func() { wg.Wait(); close(results) }()

	var best Result
	haveBest := false
	for r := range results {
		if !haveBest || r.Depth > best.Depth || (r.Depth == best.Depth && r.WorkerID == 0) {
			best = r
			haveBest = true
		}
		if abs(r.Score) >= MateScore-MaxPly {
			e.stopFlag.Store(true)
		}
		if e.infoFn != nil {
			e.infoFn(r)
		}
	}

	if !haveBest {
		moves := pos.GenerateLegal()
		if moves.Len() > 0 {
			return moves.Get(0)
		}
		return shogi.NoMove
	}
	return best.Move
}

// depthStagger staggers each Lazy-SMP helper thread's starting depth, per
// internal/engine/engine.go's worker scheduling, so threads explore
// distinct parts of the tree early rather than duplicating work.
func depthStagger(id int) int {
	switch {
	case id == 0:
		return 1
	case id <= 2:
		return 2
	case id <= 5:
		return 3
	default:
		return 4
	}
}

func (e *Engine) workerSearch(id int, pos *shogi.Position, rootHistory []uint64, net *nnue.Network, tm *TimeManager, maxDepth int, maxNodes uint64, out chan<- Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[search] worker %d recovered from panic: %v", id, r)
		}
	}()

	eval := nnue.NewEvaluatorSharing(net)
	w := NewWorker(id, e.tt, e.hist, e.corr, eval, &e.stopFlag)
	w.SetPruningOptions(e.pruning)
	w.SetRootHistory(rootHistory)
	w.InitSearch(pos)

	var lastMove shogi.Move
	stability := 0
	changes := 0

	startDepth := depthStagger(id)
	alpha, beta := -Infinity, Infinity
	window := 25

	for depth := startDepth; depth <= maxDepth; depth++ {
		if e.stopFlag.Load() {
			return
		}
		if id == 0 && depth > 1 {
			if tm.PastOptimum() {
				return
			}
		}
		if maxNodes > 0 && w.Nodes() >= maxNodes {
			e.stopFlag.Store(true)
			return
		}

		var move shogi.Move
		var score int
		for {
			move, score = w.SearchDepth(depth, alpha, beta)
			if e.stopFlag.Load() {
				return
			}
			if score <= alpha {
				alpha -= window
				window *= 2
				continue
			}
			if score >= beta {
				beta += window
				window *= 2
				continue
			}
			break
		}
		window = 25
		alpha, beta = score-window, score+window

		if move == lastMove {
			stability++
			changes = 0
		} else {
			changes++
			stability = 0
		}
		lastMove = move

		if id == 0 {
			tm.AdjustForStability(stability)
			tm.AdjustForInstability(changes)
		}

		out <- Result{WorkerID: id, Depth: depth, Score: score, Move: move, PV: w.PV(), Nodes: w.Nodes()}

		if id == 0 {
			if tm.PastOptimum() {
				return
			}
		} else if tm.ShouldStop() {
			return
		}
	}
}
