// Package history implements the search's move-ordering history tables
// per spec.md §4.H: butterfly, capture, two-ply continuation,
// pawn-structure, and counter-move heuristics. All numeric tables use
// the bounded saturating update `delta = bonus - value*|bonus|/max`, so
// values stay within +/-max without the periodic halving the teacher's
// internal/engine/ordering.go used -- the same tables and call sites
// (UpdateKillers/UpdateHistory/UpdateCaptureHistory/UpdateCountermoveHistory)
// are kept, generalized from chess's 64 squares and 6 piece types to
// shogi's 81 squares and 14.
package history

import "github.com/ymatsux/goshogi/internal/shogi"

const maxHistory = 16384

// saturate applies the bounded update in place.
func saturate(value *int16, bonus int) {
	b := int32(bonus)
	v := int32(*value)
	delta := b - v*abs32(b)/maxHistory
	v += delta
	if v > maxHistory {
		v = maxHistory
	} else if v < -maxHistory {
		v = -maxHistory
	}
	*value = int16(v)
}

func abs32(x int32) int32 {
	if x < 0 {
		return -x
	}
	return x
}

// MaxPly bounds killer-move and continuation-history ply indexing.
const MaxPly = 256

// Tables bundles every ordering table used by one search.
type Tables struct {
	Butterfly [shogi.ColorNB][shogi.NumSquares][shogi.NumSquares]int16

	Capture [shogi.PieceTypeNB][shogi.NumSquares][shogi.PieceTypeNB]int16

	// Continuation1/Continuation2 reward the move that follows the
	// parent (1-ply) and grandparent (2-ply) move respectively.
	Continuation1 [shogi.PieceTypeNB][shogi.NumSquares][shogi.PieceTypeNB][shogi.NumSquares]int16
	Continuation2 [shogi.PieceTypeNB][shogi.NumSquares][shogi.PieceTypeNB][shogi.NumSquares]int16

	Pawn [pawnBuckets][shogi.PieceTypeNB][shogi.NumSquares]int16

	// Counter indexes by (side-to-move-before-the-reply, previous move's
	// packed value) and stores the single best quiet reply.
	Counter [shogi.ColorNB][counterSlots]shogi.Move

	Killers [MaxPly][2]shogi.Move
}

const pawnBuckets = 1024
const counterSlots = 1 << 15 // Move fits in 15 bits (dest 7 | src 7 | promo 1)

// New returns an empty set of tables.
func New() *Tables { return &Tables{} }

// Clear resets killers and counter-moves for a new game; the saturating
// numeric tables are left to decay naturally rather than reset, matching
// how the teacher ages (rather than zeroes) its history on NewSearch.
func (t *Tables) Clear() {
	for i := range t.Killers {
		t.Killers[i][0] = shogi.NoMove
		t.Killers[i][1] = shogi.NoMove
	}
	for c := range t.Counter {
		for i := range t.Counter[c] {
			t.Counter[c][i] = shogi.NoMove
		}
	}
}

// counterIndex maps a move to its slot in the Counter table.
func counterIndex(m shogi.Move) int { return int(m) & (counterSlots - 1) }

// UpdateButterfly rewards or penalizes a (side, from, to) quiet move.
func (t *Tables) UpdateButterfly(side shogi.Color, m shogi.Move, depth int, good bool) {
	bonus := depth * depth
	if !good {
		bonus = -bonus
	}
	from, to := slotOf(m)
	saturate(&t.Butterfly[side][from][to], bonus)
}

// slotOf returns the (from, to) pair used to index square-keyed tables,
// treating a drop's synthetic "from" (its own destination square) as its
// own key so drops get independent history from board moves landing on
// the same square.
func slotOf(m shogi.Move) (from, to shogi.Square) {
	to = m.To()
	if m.IsDrop() {
		return to, to
	}
	return m.From(), to
}

// ButterflyScore returns the current score for a quiet move.
func (t *Tables) ButterflyScore(side shogi.Color, m shogi.Move) int {
	from, to := slotOf(m)
	return int(t.Butterfly[side][from][to])
}

// UpdateCapture rewards or penalizes a capture by (attacker, to, victim).
func (t *Tables) UpdateCapture(attacker, victim shogi.PieceType, to shogi.Square, depth int, good bool) {
	bonus := depth * depth
	if !good {
		bonus = -bonus
	}
	saturate(&t.Capture[attacker][to][victim], bonus)
}

// CaptureScore returns the current capture-history score.
func (t *Tables) CaptureScore(attacker, victim shogi.PieceType, to shogi.Square) int {
	return int(t.Capture[attacker][to][victim])
}

// UpdateContinuation1/2 reward the move that follows prevPT/prevTo.
func (t *Tables) UpdateContinuation1(prevPT shogi.PieceType, prevTo shogi.Square, pt shogi.PieceType, to shogi.Square, depth int, good bool) {
	bonus := depth * depth
	if !good {
		bonus = -bonus
	}
	saturate(&t.Continuation1[prevPT][prevTo][pt][to], bonus)
}

func (t *Tables) UpdateContinuation2(prevPT shogi.PieceType, prevTo shogi.Square, pt shogi.PieceType, to shogi.Square, depth int, good bool) {
	bonus := depth * depth
	if !good {
		bonus = -bonus
	}
	saturate(&t.Continuation2[prevPT][prevTo][pt][to], bonus)
}

func (t *Tables) Continuation1Score(prevPT shogi.PieceType, prevTo shogi.Square, pt shogi.PieceType, to shogi.Square) int {
	return int(t.Continuation1[prevPT][prevTo][pt][to])
}

func (t *Tables) Continuation2Score(prevPT shogi.PieceType, prevTo shogi.Square, pt shogi.PieceType, to shogi.Square) int {
	return int(t.Continuation2[prevPT][prevTo][pt][to])
}

// PawnKey hashes a position's pawn structure (both colours) into a
// pawnBuckets-wide index, folding the two pawn bitboards down via xor.
func PawnKey(pos *shogi.Position) uint32 {
	pawns := pos.Pieces[shogi.Black][shogi.Pawn].Or(pos.Pieces[shogi.White][shogi.Pawn])
	h := pawns.Lo ^ (pawns.Lo >> 33) ^ pawns.Hi*0x9E3779B97F4A7C15
	return uint32(h) & (pawnBuckets - 1)
}

func (t *Tables) UpdatePawn(key uint32, pt shogi.PieceType, to shogi.Square, depth int, good bool) {
	bonus := depth * depth
	if !good {
		bonus = -bonus
	}
	saturate(&t.Pawn[key][pt][to], bonus)
}

func (t *Tables) PawnScore(key uint32, pt shogi.PieceType, to shogi.Square) int {
	return int(t.Pawn[key][pt][to])
}

// UpdateKillers records m as a killer at ply, shifting the previous
// first killer down.
func (t *Tables) UpdateKillers(m shogi.Move, ply int) {
	if ply < 0 || ply >= MaxPly || t.Killers[ply][0] == m {
		return
	}
	t.Killers[ply][1] = t.Killers[ply][0]
	t.Killers[ply][0] = m
}

// IsKiller reports whether m is one of ply's two killer moves.
func (t *Tables) IsKiller(m shogi.Move, ply int) bool {
	if ply < 0 || ply >= MaxPly {
		return false
	}
	return t.Killers[ply][0] == m || t.Killers[ply][1] == m
}

// SetCounter records reply as the best quiet answer to prevMove.
func (t *Tables) SetCounter(side shogi.Color, prevMove, reply shogi.Move) {
	if prevMove == shogi.NoMove {
		return
	}
	t.Counter[side][counterIndex(prevMove)] = reply
}

// GetCounter returns the recorded counter-move to prevMove, if any.
func (t *Tables) GetCounter(side shogi.Color, prevMove shogi.Move) shogi.Move {
	if prevMove == shogi.NoMove {
		return shogi.NoMove
	}
	return t.Counter[side][counterIndex(prevMove)]
}
