// Package search implements the iterative-deepening PVS worker, staged
// move picker, time manager, and correction history described in
// spec.md §4.G-4.K, grounded on internal/engine/worker.go,
// internal/engine/ordering.go, internal/engine/timeman.go, and
// internal/engine/correction.go.
package search

import (
	"github.com/ymatsux/goshogi/internal/history"
	"github.com/ymatsux/goshogi/internal/shogi"
)

type stage int

const (
	stageTT stage = iota
	stageCapturesGen
	stageGoodCaptures
	stageKillers
	stageCounter
	stageQuietsGen
	stageBadCaptures
	stageQuiets
	stageEnd
)

type scoredMove struct {
	move  shogi.Move
	score int
}

// OrderingContext bundles the per-node information the move picker needs
// beyond the move list itself: the TT hint and the parent/grandparent
// moves that continuation history is indexed by.
type OrderingContext struct {
	TTMove             shogi.Move
	PrevMove           shogi.Move
	PrevPieceType      shogi.PieceType
	PrevPrevMove       shogi.Move
	PrevPrevPieceType  shogi.PieceType
	PawnKey            uint32
}

// MovePicker enumerates a node's moves in the staged order of spec.md
// §4.I: TT -> good captures -> killers -> counter -> bad captures ->
// quiets -> end, skipping any move already emitted by an earlier stage.
type MovePicker struct {
	pos  *shogi.Position
	hist *history.Tables
	ply  int
	ctx  OrderingContext

	stage stage

	goodCaptures []scoredMove
	badCaptures  []scoredMove
	quiets       []scoredMove
	capIdx       int
	quietIdx     int

	skipQuiets bool
	returned   map[shogi.Move]bool
}

// NewMovePicker builds a picker for the legal moves in pos at ply.
func NewMovePicker(pos *shogi.Position, hist *history.Tables, ply int, ctx OrderingContext) *MovePicker {
	return &MovePicker{
		pos:      pos,
		hist:     hist,
		ply:      ply,
		ctx:      ctx,
		returned: make(map[shogi.Move]bool, 8),
	}
}

// SkipQuiets restricts the picker to captures only, for use by callers
// (ProbCut) that never want to see quiet moves.
func (mp *MovePicker) SkipQuiets() { mp.skipQuiets = true }

func movingPieceType(pos *shogi.Position, m shogi.Move) shogi.PieceType {
	if m.IsDrop() {
		return m.DropPiece()
	}
	return pos.PieceAt(m.From()).Type()
}

// Next returns the next move in staged order, or ok=false once exhausted.
func (mp *MovePicker) Next() (shogi.Move, bool) {
	for {
		switch mp.stage {
		case stageTT:
			mp.stage = stageCapturesGen
			if mp.ctx.TTMove != shogi.NoMove && mp.pos.IsLegal(mp.ctx.TTMove) {
				mp.returned[mp.ctx.TTMove] = true
				return mp.ctx.TTMove, true
			}

		case stageCapturesGen:
			mp.generateCaptures()
			mp.stage = stageGoodCaptures

		case stageGoodCaptures:
			if mp.capIdx < len(mp.goodCaptures) {
				m := pickBest(mp.goodCaptures, mp.capIdx)
				mp.capIdx++
				if mp.returned[m] {
					continue
				}
				mp.returned[m] = true
				return m, true
			}
			mp.capIdx = 0
			mp.stage = stageKillers

		case stageKillers:
			mp.stage = stageCounter
			if mp.skipQuiets {
				continue
			}
			if k := mp.hist.Killers[mp.ply][0]; k != shogi.NoMove && !mp.returned[k] && mp.pos.IsLegal(k) {
				mp.returned[k] = true
				return k, true
			}

		case stageCounter:
			mp.stage = stageQuietsGen
			if mp.skipQuiets {
				continue
			}
			if k := mp.hist.Killers[mp.ply][1]; k != shogi.NoMove && !mp.returned[k] && mp.pos.IsLegal(k) {
				mp.returned[k] = true
				return k, true
			}
			if c := mp.hist.GetCounter(mp.pos.SideToMove, mp.ctx.PrevMove); c != shogi.NoMove && !mp.returned[c] && mp.pos.IsLegal(c) {
				mp.returned[c] = true
				return c, true
			}

		case stageQuietsGen:
			mp.stage = stageBadCaptures
			if mp.skipQuiets {
				continue
			}
			mp.generateQuiets()

		case stageBadCaptures:
			if mp.capIdx < len(mp.badCaptures) {
				m := pickBest(mp.badCaptures, mp.capIdx)
				mp.capIdx++
				if mp.returned[m] {
					continue
				}
				mp.returned[m] = true
				return m, true
			}
			mp.stage = stageQuiets

		case stageQuiets:
			if mp.skipQuiets {
				mp.stage = stageEnd
				continue
			}
			if mp.quietIdx < len(mp.quiets) {
				m := pickBest(mp.quiets, mp.quietIdx)
				mp.quietIdx++
				if mp.returned[m] {
					continue
				}
				mp.returned[m] = true
				return m, true
			}
			mp.stage = stageEnd

		case stageEnd:
			return shogi.NoMove, false
		}
	}
}

// pickBest selects the highest-scoring remaining entry from idx onward
// (selection sort, lazily applied) and returns its move.
func pickBest(list []scoredMove, idx int) shogi.Move {
	best := idx
	for j := idx + 1; j < len(list); j++ {
		if list[j].score > list[best].score {
			best = j
		}
	}
	list[idx], list[best] = list[best], list[idx]
	return list[idx].move
}

const (
	mvvLvaBase = 1_000_000
	badCaptureBase = -100_000
)

func (mp *MovePicker) generateCaptures() {
	moves := mp.pos.GenerateLegalCaptures()
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		attacker := movingPieceType(mp.pos, m)
		victim := mp.pos.PieceAt(m.To()).Type()

		score := mvvLvaBase + shogi.PieceValue[victim]*16 - shogi.PieceValue[attacker]
		score += mp.hist.CaptureScore(attacker, victim, m.To()) / 4
		if m.IsPromotion() {
			score += 2000
		}

		sm := scoredMove{m, score}
		if mp.pos.SEE(m) >= 0 {
			mp.goodCaptures = append(mp.goodCaptures, sm)
		} else {
			sm.score += badCaptureBase
			mp.badCaptures = append(mp.badCaptures, sm)
		}
	}
}

func (mp *MovePicker) generateQuiets() {
	legal := mp.pos.GenerateLegal()
	for i := 0; i < legal.Len(); i++ {
		m := legal.Get(i)
		if !mp.pos.IsEmpty(m.To()) {
			continue // capture, already scored above
		}
		if mp.returned[m] {
			continue
		}
		mp.quiets = append(mp.quiets, scoredMove{m, mp.quietScore(m)})
	}
}

func (mp *MovePicker) quietScore(m shogi.Move) int {
	pt := movingPieceType(mp.pos, m)
	to := m.To()
	score := mp.hist.ButterflyScore(mp.pos.SideToMove, m)
	if mp.ctx.PrevMove != shogi.NoMove {
		score += mp.hist.Continuation1Score(mp.ctx.PrevPieceType, mp.ctx.PrevMove.To(), pt, to)
	}
	if mp.ctx.PrevPrevMove != shogi.NoMove {
		score += mp.hist.Continuation2Score(mp.ctx.PrevPrevPieceType, mp.ctx.PrevPrevMove.To(), pt, to)
	}
	score += mp.hist.PawnScore(mp.ctx.PawnKey, pt, to)
	return score
}
