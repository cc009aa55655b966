package shogi

import "fmt"

// Move packs a shogi move into 16 bits, per spec.md §3:
// bits 0-6:  destination square (0..80)
// bits 7-13: source square (0..80), or 81+pieceType for a drop
// bit 14:    promotion flag
// NoMove and PassMove are reserved sentinels.
type Move uint16

const (
	NoMove   Move = 0
	dropBase      = NumSquares // 81

	destMask = 0x7F
	srcShift = 7
	srcMask  = 0x7F
	promoBit = 1 << 14
)

// PassMove is the sentinel used for a null/pass move (search-internal
// only; never legal in real play).
const PassMove Move = 0x7FFF

// NewMove builds a normal board move.
func NewMove(from, to Square, promote bool) Move {
	m := Move(to&destMask) | Move(from&srcMask)<<srcShift
	if promote {
		m |= promoBit
	}
	return m
}

// NewDrop builds a drop move of the given piece type onto to.
func NewDrop(pt PieceType, to Square) Move {
	return Move(to&destMask) | Move(dropBase+int(pt))<<srcShift
}

// To returns the destination square.
func (m Move) To() Square { return Square(m & destMask) }

// srcField returns the raw 7-bit source field.
func (m Move) srcField() int { return int((m >> srcShift) & srcMask) }

// IsDrop reports whether m is a drop.
func (m Move) IsDrop() bool { return m.srcField() >= dropBase }

// From returns the source square; invalid for drops.
func (m Move) From() Square { return Square(m.srcField()) }

// DropPiece returns the piece type being dropped; invalid for board moves.
func (m Move) DropPiece() PieceType { return PieceType(m.srcField() - dropBase) }

// IsPromotion reports whether m promotes the moving piece.
func (m Move) IsPromotion() bool { return m&promoBit != 0 }

func (m Move) String() string {
	if m == NoMove {
		return "resign"
	}
	if m == PassMove {
		return "pass"
	}
	if m.IsDrop() {
		return fmt.Sprintf("%c*%s", m.DropPiece().USILetter(), m.To())
	}
	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += "+"
	}
	return s
}

// MoveList is a fixed-capacity move buffer to avoid per-node allocation,
// mirroring the teacher's board.MoveList.
type MoveList struct {
	moves [593]Move // 593 is shogi's established worst-case legal move count
	count int
}

func (ml *MoveList) Add(m Move)     { ml.moves[ml.count] = m; ml.count++ }
func (ml *MoveList) Len() int       { return ml.count }
func (ml *MoveList) Get(i int) Move { return ml.moves[i] }
func (ml *MoveList) Set(i int, m Move) { ml.moves[i] = m }
func (ml *MoveList) Swap(i, j int)  { ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i] }
func (ml *MoveList) Clear()         { ml.count = 0 }

func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i] == m {
			return true
		}
	}
	return false
}

func (ml *MoveList) Slice() []Move { return ml.moves[:ml.count] }

// UndoInfo captures everything do_move needs to reverse, per spec.md §3's
// state-stack entry.
type UndoInfo struct {
	Captured      Piece
	BoardHash     uint64
	HandHash      uint64
	Checkers      Bitboard
	BlockersBlack Bitboard
	BlockersWhite Bitboard
	PinnersBlack  Bitboard
	PinnersWhite  Bitboard
	Dirty         DirtyPiece
}
