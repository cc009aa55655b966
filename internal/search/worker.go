package search

import (
	"math"
	"sync/atomic"

	"github.com/ymatsux/goshogi/internal/history"
	"github.com/ymatsux/goshogi/internal/nnue"
	"github.com/ymatsux/goshogi/internal/shogi"
	"github.com/ymatsux/goshogi/internal/tt"
)

// Infinity bounds the alpha-beta window before any move has been searched.
const Infinity = 32000

// MateScore mirrors the transposition table's mate-distance convention.
const MateScore = tt.MateScore

// lmrTable precomputes the base late-move-reduction amount from depth and
// move count, per spec.md §4.J's "log(depth)*log(moves)" formula.
var lmrTable [64][64]int

func init() {
	for d := 1; d < 64; d++ {
		for m := 1; m < 64; m++ {
			lmrTable[d][m] = int(21.46 * math.Log(float64(d)) * math.Log(float64(m)) / 1024.0)
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// nodeState records, per ply, the move played and the piece type that
// moved, so continuation history can be looked up from child nodes.
type nodeState struct {
	move      shogi.Move
	pieceType shogi.PieceType
	inCheck   bool
}

const maxGameLength = 1024

// Worker drives one thread's iterative-deepening search. Several Workers
// may share one *tt.Table and one *history.Tables concurrently; each
// Worker owns its private position, evaluator, and PV/search stacks.
type Worker struct {
	id   int
	pos  *shogi.Position
	tt   *tt.Table
	hist *history.Tables
	corr *CorrectionHistory
	eval *nnue.Evaluator
	stop *atomic.Bool

	nodes uint64
	pv    pvTable
	stack [MaxPly]nodeState
	eval_ [MaxPly]int // static eval recorded per ply, for improving/opponent-worsening

	rootKeys []uint64
	rootLen  int
	posKeys  [maxGameLength]uint64
	checks   [maxGameLength]bool
	keyLen   int

	nmpMinPly int

	depth int

	opts PruningOptions
}

// NewWorker builds a worker sharing tbl/hist/eval with its siblings.
func NewWorker(id int, tbl *tt.Table, hist *history.Tables, corr *CorrectionHistory, eval *nnue.Evaluator, stop *atomic.Bool) *Worker {
	return &Worker{id: id, tt: tbl, hist: hist, corr: corr, eval: eval, stop: stop, opts: DefaultPruningOptions()}
}

// SetPruningOptions installs the tunable pruning/extension surface,
// for a setoption handler or a fresh Lazy-SMP worker spawn.
func (w *Worker) SetPruningOptions(opts PruningOptions) { w.opts = opts }

// Nodes returns the number of nodes searched since the worker was
// created or last Reset; it keeps counting across iterations.
func (w *Worker) Nodes() uint64 { return w.nodes }

// Reset clears per-search counters before a new go command.
func (w *Worker) Reset() {
	w.nodes = 0
	w.nmpMinPly = 0
}

// SetRootHistory records the game's position keys up to (but not
// including) the position about to be searched, for repetition detection.
func (w *Worker) SetRootHistory(keys []uint64) {
	w.rootKeys = append([]uint64(nil), keys...)
}

// InitSearch installs pos (a dedicated copy) as the worker's root.
func (w *Worker) InitSearch(pos *shogi.Position) {
	w.pos = pos
	w.eval.Reset()
	w.eval.Refresh(pos)

	w.rootLen = len(w.rootKeys)
	if w.rootLen > maxGameLength-1 {
		w.rootKeys = w.rootKeys[w.rootLen-(maxGameLength-1):]
		w.rootLen = maxGameLength - 1
	}
	copy(w.posKeys[:w.rootLen], w.rootKeys)
	w.posKeys[w.rootLen] = pos.Key()
	w.checks[w.rootLen] = pos.InCheck()
	w.keyLen = w.rootLen + 1
}

func (w *Worker) pushKey() {
	if w.keyLen < maxGameLength {
		w.posKeys[w.keyLen] = w.pos.Key()
		w.checks[w.keyLen] = w.pos.InCheck()
	}
	w.keyLen++
}

func (w *Worker) popKey() { w.keyLen-- }

// checkRepetition reports whether the current position has occurred
// before. When the cycle lies entirely within the current search (not
// reaching back into game history whose check status we never recorded),
// it additionally detects perpetual check: if the side now to move gave
// check on each of its moves along the cycle (the opponent was in check
// at every one of its turns), that side loses rather than drawing, per
// spec.md §4.J point 3.
func (w *Worker) checkRepetition() (isRepeat, lossForMover bool) {
	if w.keyLen < 1 || w.keyLen > maxGameLength {
		return false, false
	}
	key := w.posKeys[w.keyLen-1]
	for i := w.keyLen - 3; i >= 0; i -= 2 {
		if w.posKeys[i] != key {
			continue
		}
		if i >= w.rootLen {
			allChecks := true
			for j := i + 1; j <= w.keyLen-2; j += 2 {
				if !w.checks[j] {
					allChecks = false
					break
				}
			}
			if allChecks {
				return true, true
			}
		}
		return true, false
	}
	return false, false
}

func (w *Worker) stopped() bool { return w.stop.Load() }

func (w *Worker) evaluateStatic() (raw, corrected int) {
	raw = w.eval.Evaluate(w.pos)
	corrected = raw + w.corr.Get(w.pos)
	return
}

// SearchDepth runs one iteration of the alpha-beta root at depth and
// returns the best move and its score.
func (w *Worker) SearchDepth(depth, alpha, beta int) (shogi.Move, int) {
	w.depth = depth
	score := w.negamax(depth, 0, alpha, beta, false, shogi.NoMove)

	var best shogi.Move
	if w.pv.length[0] > 0 {
		best = w.pv.moves[0][0]
	}
	if best == shogi.NoMove && !w.stopped() {
		moves := w.pos.GenerateLegal()
		if moves.Len() > 0 {
			best = moves.Get(0)
		}
	}
	return best, score
}

// PV returns the principal variation found by the last completed search.
func (w *Worker) PV() []shogi.Move { return w.pv.line() }

func (w *Worker) doMove(m shogi.Move) shogi.UndoInfo {
	w.eval.Push()
	undo := w.pos.DoMove(m)
	w.eval.Update(w.pos, undo.Dirty)
	w.pushKey()
	return undo
}

func (w *Worker) undoMove(m shogi.Move) {
	w.popKey()
	w.pos.UndoMove(m)
	w.eval.Pop()
}

func (w *Worker) orderingContext(ply int, ttMove shogi.Move) OrderingContext {
	ctx := OrderingContext{TTMove: ttMove, PawnKey: history.PawnKey(w.pos)}
	if ply >= 1 {
		ps := w.stack[ply-1]
		ctx.PrevMove = ps.move
		ctx.PrevPieceType = ps.pieceType
	}
	if ply >= 2 {
		ps := w.stack[ply-2]
		ctx.PrevPrevMove = ps.move
		ctx.PrevPrevPieceType = ps.pieceType
	}
	return ctx
}

// negamax implements alpha-beta/PVS search at depth from ply, per
// spec.md §4.J, grounded on internal/engine/worker.go's negamax.
func (w *Worker) negamax(depth, ply int, alpha, beta int, cutNode bool, excluded shogi.Move) int {
	if ply >= MaxPly-1 {
		raw, _ := w.evaluateStatic()
		return raw
	}

	w.pv.length[ply] = ply

	if w.nodes&2047 == 0 && w.stopped() {
		return 0
	}
	w.nodes++

	isPV := beta-alpha > 1

	if ply > 0 {
		if isRep, lossForMover := w.checkRepetition(); isRep {
			if lossForMover {
				return -MateScore + ply
			}
			return 0
		}
		// Mate-distance pruning.
		if a := -MateScore + ply; a > alpha {
			alpha = a
		}
		if b := MateScore - ply; b < beta {
			beta = b
		}
		if alpha >= beta {
			return alpha
		}
	}

	var ttMove shogi.Move
	ttPV := isPV
	var ttScore, ttStaticEval, ttDepth int
	var ttBound tt.Bound
	ttHit := false
	if move, score, staticEval, d, bound, pv, found := w.tt.Probe(w.pos.Key()); found {
		ttMove = move
		ttPV = ttPV || pv
		ttScore, ttStaticEval, ttDepth, ttBound, ttHit = score, staticEval, d, bound, found
		_ = ttStaticEval
		if d >= depth && ply > 0 {
			adj := tt.AdjustScoreFromTT(score, ply)
			switch bound {
			case tt.BoundExact:
				return adj
			case tt.BoundLower:
				if adj > alpha {
					alpha = adj
				}
			case tt.BoundUpper:
				if adj < beta {
					beta = adj
				}
			}
			if alpha >= beta {
				return adj
			}
		}
	}

	if depth <= 0 {
		return w.quiescence(ply, alpha, beta)
	}

	inCheck := w.pos.InCheck()

	// Small ProbCut: a sufficiently deep lower-bound hit that already
	// clears beta by a wide margin is trusted without searching further.
	if w.opts.SmallProbCut && ttHit && ply > 0 && ttDepth >= depth && ttBound == tt.BoundLower {
		if adj := tt.AdjustScoreFromTT(ttScore, ply); adj >= beta+w.opts.SmallProbCutMargin {
			return adj
		}
	}

	if w.opts.IID && depth >= 4 && ttMove == shogi.NoMove && !inCheck {
		depth--
	}

	extension := 0
	if inCheck {
		extension = 1
	}

	rawEval, staticEval := 0, 0
	if !inCheck {
		rawEval, staticEval = w.evaluateStatic()
	}
	w.eval_[ply] = staticEval

	improving := false
	if ply >= 2 && !inCheck {
		improving = staticEval > w.eval_[ply-2]
	}

	if !inCheck && ply > 0 && !isPV {
		// Reverse futility / static-beta pruning.
		if w.opts.StaticBeta && depth <= 6 {
			margin := w.opts.StaticBetaMargin * depth
			if !improving {
				margin -= 20
			}
			if staticEval-margin >= beta {
				return staticEval
			}
		}

		// Razoring.
		if w.opts.Razoring && depth <= 3 {
			margin := w.opts.RazorMargin + 200*depth*depth
			if staticEval+margin <= alpha {
				score := w.quiescence(ply, alpha, alpha+1)
				if score <= alpha {
					return score
				}
			}
		}

		// Null-move pruning.
		if w.opts.NMP && depth >= 3 && staticEval >= beta && w.pos.HasNonPawnMaterial(w.pos.SideToMove) && ply >= w.nmpMinPly {
			r := 4 + depth/4
			if r > depth-1 {
				r = depth - 1
			}
			nullUndo := w.pos.MakeNullMove()
			w.stack[ply] = nodeState{move: shogi.PassMove}
			score := -w.negamax(depth-1-r, ply+1, -beta, -beta+1, !cutNode, shogi.NoMove)
			w.pos.UnmakeNullMove(nullUndo)

			if score >= beta {
				if depth >= 16 && w.nmpMinPly == 0 {
					w.nmpMinPly = ply + 1
					verify := w.negamax(depth-1-r, ply, beta-1, beta, false, shogi.NoMove)
					w.nmpMinPly = 0
					if verify >= beta {
						return beta
					}
				} else {
					return beta
				}
			}
		}

		// ProbCut: a shallow zero-window search of SEE-winning captures
		// that already clears an inflated beta stands in for the full
		// search, per spec.md §4.J point 10.
		if w.opts.ProbCut && depth >= 5 && abs(beta) < MateScore-MaxPly {
			probBeta := beta + w.opts.ProbCutMargin
			probDepth := depth - 4
			if probDepth < 1 {
				probDepth = 1
			}

			probCtx := w.orderingContext(ply, shogi.NoMove)
			probPicker := NewMovePicker(w.pos, w.hist, ply, probCtx)
			probPicker.SkipQuiets()

			for {
				m, ok := probPicker.Next()
				if !ok {
					break
				}
				if w.pos.IsEmpty(m.To()) || w.pos.SEE(m) < 0 {
					continue
				}

				pieceType := movingPieceType(w.pos, m)
				w.doMove(m)
				w.stack[ply] = nodeState{move: m, pieceType: pieceType, inCheck: inCheck}
				score := -w.negamax(probDepth-1, ply+1, -probBeta, -probBeta+1, !cutNode, shogi.NoMove)
				w.undoMove(m)

				if score >= probBeta {
					w.tt.Store(w.pos.Key(), m, tt.AdjustScoreToTT(score, ply), staticEval, probDepth+1, tt.BoundLower, ttPV)
					return score
				}
			}
		}
	}

	// Singular extensions: when the TT move is backed by a deep lower
	// bound well clear of every alternative, extend it; when the
	// alternatives are at least as good, shrink it instead (a "multi-cut"
	// signal that this node is unlikely to matter), per spec.md §4.J
	// point 13 and the teacher's singular-extension margins.
	singularExtension := 0
	if w.opts.SingularExt && ply > 0 && depth >= 6 && ttMove != shogi.NoMove && excluded == shogi.NoMove &&
		ttHit && ttDepth >= depth-3 && ttBound != tt.BoundUpper {
		ttValue := tt.AdjustScoreFromTT(ttScore, ply)
		if abs(ttValue) < MateScore-MaxPly {
			margin := w.opts.SingularMargin * depth / 60
			singularBeta := ttValue - margin
			singularDepth := (depth - 1) / 2

			score := w.negamax(singularDepth, ply, singularBeta-1, singularBeta, cutNode, ttMove)
			if score < singularBeta {
				singularExtension = 1
				if score < singularBeta-30 {
					singularExtension = 2
				}
			} else if singularBeta >= beta {
				// Every alternative is at least this good too: a cutoff
				// here is unlikely to be unique to the TT move.
				singularExtension = -1
			}
		}
	}

	ctx := w.orderingContext(ply, ttMove)
	picker := NewMovePicker(w.pos, w.hist, ply, ctx)

	bestScore := -Infinity
	bestMove := shogi.NoMove
	bound := tt.BoundUpper
	movesSearched := 0
	legalSeen := 0

	var triedQuiets []shogi.Move

	pruneQuiets := false
	if w.opts.Futility && !inCheck && ply > 0 && depth <= 5 {
		futilityMargin := [...]int{0, w.opts.FutilityBase, 300, 500, 700, 900}
		if staticEval+futilityMargin[depth] <= alpha {
			pruneQuiets = true
		}
	}

	for {
		m, ok := picker.Next()
		if !ok {
			break
		}
		if m == excluded {
			continue
		}
		legalSeen++

		isCapture := !w.pos.IsEmpty(m.To())
		isQuiet := !isCapture && !m.IsPromotion()

		if !inCheck && ply > 0 && movesSearched > 0 {
			if isQuiet {
				if w.opts.Futility && pruneQuiets && bestMove != shogi.NoMove {
					continue
				}
				if w.opts.LMP && depth <= 7 {
					lmp := 3 + depth*depth
					if !improving {
						lmp /= 2
					}
					if legalSeen > lmp {
						continue
					}
				}
				if depth <= 3 && w.hist.ButterflyScore(w.pos.SideToMove, m) < -2000*depth {
					continue
				}
			} else if w.opts.SEEPruning && isCapture && depth <= 7 {
				if w.pos.SEE(m) < -20*depth {
					continue
				}
			}
		}

		pieceType := movingPieceType(w.pos, m)
		undo := w.doMove(m)
		w.stack[ply] = nodeState{move: m, pieceType: pieceType, inCheck: inCheck}

		movesSearched++
		newDepth := depth - 1 + extension
		if m == ttMove && singularExtension != 0 {
			newDepth += singularExtension
		}

		var score int
		if movesSearched == 1 {
			score = -w.negamax(newDepth, ply+1, -beta, -alpha, false, shogi.NoMove)
		} else {
			reduction := 0
			if movesSearched > 3 && depth >= 3 && isQuiet && !inCheck {
				d, mv := depth, movesSearched
				if d > 63 {
					d = 63
				}
				if mv > 63 {
					mv = 63
				}
				reduction = lmrTable[d][mv]
				if !improving {
					reduction++
				}
				if cutNode {
					reduction++
				}
				if ttPV {
					reduction--
				}
				if reduction < 0 {
					reduction = 0
				}
			}
			reducedDepth := newDepth - reduction
			if reducedDepth < 1 {
				reducedDepth = 1
			}
			score = -w.negamax(reducedDepth, ply+1, -alpha-1, -alpha, true, shogi.NoMove)
			if score > alpha && reduction > 0 {
				score = -w.negamax(newDepth, ply+1, -alpha-1, -alpha, !cutNode, shogi.NoMove)
			}
			if score > alpha && score < beta {
				score = -w.negamax(newDepth, ply+1, -beta, -alpha, false, shogi.NoMove)
			}
		}

		w.undoMove(m)
		_ = undo

		if w.stopped() {
			return 0
		}

		if isQuiet {
			triedQuiets = append(triedQuiets, m)
		}

		if score > bestScore {
			bestScore = score
			bestMove = m
			if score > alpha {
				alpha = score
				bound = tt.BoundExact
				w.pv.update(ply, m)
			}
		}

		if alpha >= beta {
			bound = tt.BoundLower
			depthBonus := depth * depth
			if isQuiet {
				w.hist.UpdateButterfly(w.pos.SideToMove, m, depth, true)
				w.hist.UpdateKillers(m, ply)
				w.hist.SetCounter(w.pos.SideToMove, ctx.PrevMove, m)
				w.hist.UpdatePawn(ctx.PawnKey, pieceType, m.To(), depth, true)
				if ctx.PrevMove != shogi.NoMove {
					w.hist.UpdateContinuation1(ctx.PrevPieceType, ctx.PrevMove.To(), pieceType, m.To(), depth, true)
				}
				if ctx.PrevPrevMove != shogi.NoMove {
					w.hist.UpdateContinuation2(ctx.PrevPrevPieceType, ctx.PrevPrevMove.To(), pieceType, m.To(), depth, true)
				}
				for _, q := range triedQuiets[:len(triedQuiets)-1] {
					qpt := movingPieceType(w.pos, q)
					w.hist.UpdateButterfly(w.pos.SideToMove, q, depth, false)
					w.hist.UpdatePawn(ctx.PawnKey, qpt, q.To(), depth, false)
				}
			} else {
				victim := shogi.NoPieceType
				if cap := w.pos.PieceAt(m.To()); cap != shogi.NoPiece {
					victim = cap.Type()
				}
				w.hist.UpdateCapture(pieceType, victim, m.To(), depth, true)
			}
			_ = depthBonus
			break
		}
	}

	if legalSeen == 0 {
		if excluded != shogi.NoMove {
			// Every legal move at this node was the singular-search
			// exclusion: there is no alternative to compare against, so
			// treat it as a clean fail-low rather than a mate score.
			return alpha
		}
		if inCheck {
			return -MateScore + ply
		}
		return 0
	}

	if bound == tt.BoundExact && !inCheck && depth >= 2 {
		w.corr.Update(w.pos, bestScore, rawEval, depth)
	}

	w.tt.Store(w.pos.Key(), bestMove, tt.AdjustScoreToTT(bestScore, ply), staticEval, depth, bound, ttPV)

	return bestScore
}

// quiescence searches captures (and, in check, evasions) to the point of
// a quiet position, per spec.md §4.J's qsearch description.
func (w *Worker) quiescence(ply, alpha, beta int) int {
	if ply >= MaxPly-1 {
		raw, _ := w.evaluateStatic()
		return raw
	}
	if w.stopped() {
		return 0
	}
	w.nodes++

	originalAlpha := alpha
	inCheck := w.pos.InCheck()

	var bestScore int
	var standPat int
	if inCheck {
		bestScore = -MateScore + ply
	} else {
		_, staticEval := w.evaluateStatic()
		standPat = staticEval
		bestScore = standPat
		if standPat >= beta {
			return standPat
		}
		if standPat > alpha {
			alpha = standPat
		}
	}

	var moves *shogi.MoveList
	if inCheck {
		moves = w.pos.GenerateLegal()
	} else {
		moves = w.pos.GenerateLegalCaptures()
	}

	type sm struct {
		m     shogi.Move
		score int
	}
	scored := make([]sm, moves.Len())
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		attacker := movingPieceType(w.pos, m)
		victim := shogi.NoPieceType
		if captured := w.pos.PieceAt(m.To()); captured != shogi.NoPiece {
			victim = captured.Type()
		}
		score := shogi.PieceValue[victim]*16 - shogi.PieceValue[attacker]
		scored[i] = sm{m, score}
	}

	bestMove := shogi.NoMove
	for i := 0; i < len(scored); i++ {
		best := i
		for j := i + 1; j < len(scored); j++ {
			if scored[j].score > scored[best].score {
				best = j
			}
		}
		scored[i], scored[best] = scored[best], scored[i]
		m := scored[i].m

		if !inCheck {
			captured := w.pos.PieceAt(m.To())
			captureValue := 0
			if captured != shogi.NoPiece {
				captureValue = shogi.PieceValue[captured.Type()]
			}
			if m.IsPromotion() {
				captureValue += shogi.PieceValue[movingPieceType(w.pos, m)] - shogi.PieceValue[movingPieceType(w.pos, m).Demote()]
			}
			if standPat+captureValue+200 < alpha {
				continue
			}
			if w.pos.SEE(m) < 0 {
				continue
			}
		}

		w.doMove(m)
		score := -w.quiescence(ply+1, -beta, -alpha)
		w.undoMove(m)

		if score > bestScore {
			bestScore = score
			bestMove = m
			if score > alpha {
				alpha = score
				if score >= beta {
					break
				}
			}
		}
	}

	// Quiet checks: a handful of non-capture checking replies, capped at
	// QSMaxQuietChecks and tried only when ply == 0 (quiescence entered at
	// the search root; from inside the main search they are not tried), per
	// spec.md §4.J's "optionally plus quiet checks" bullet.
	if !inCheck && w.opts.QSChecks && ply == 0 && alpha < beta {
		quiets := w.pos.GenerateLegal()
		tried := 0
		for i := 0; i < quiets.Len() && tried < w.opts.QSMaxQuietChecks; i++ {
			m := quiets.Get(i)
			if !w.pos.IsEmpty(m.To()) {
				continue // already searched as a capture above
			}
			w.doMove(m)
			gives := w.pos.InCheck()
			if !gives {
				w.undoMove(m)
				continue
			}
			tried++
			score := -w.quiescence(ply+1, -beta, -alpha)
			w.undoMove(m)

			if score > bestScore {
				bestScore = score
				bestMove = m
				if score > alpha {
					alpha = score
					if score >= beta {
						break
					}
				}
			}
		}
	}

	if inCheck && bestScore == -MateScore+ply && moves.Len() == 0 {
		return -MateScore + ply
	}

	bound := tt.BoundExact
	if bestScore >= beta {
		bound = tt.BoundLower
	} else if bestScore <= originalAlpha {
		bound = tt.BoundUpper
	}
	w.tt.Store(w.pos.Key(), bestMove, tt.AdjustScoreToTT(bestScore, ply), standPat, 0, bound, false)

	return bestScore
}
