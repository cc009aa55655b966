package shogi

// Hand holds a colour's captured-piece counts, packed into one uint32 so
// that adding or removing a single piece is one arithmetic op, per
// spec.md §3. Bit layout, low to high: Pawn(5 bits, 0..18), Lance(3,
// 0..4), Knight(3, 0..4), Silver(3, 0..4), Gold(3, 0..4), Bishop(2,
// 0..2), Rook(2, 0..2).
type Hand uint32

const (
	handPawnShift   = 0
	handLanceShift  = 5
	handKnightShift = 8
	handSilverShift = 11
	handGoldShift   = 14
	handBishopShift = 17
	handRookShift   = 19

	handPawnMask   = 0x1F
	handSmallMask  = 0x7
	handBigMask    = 0x3
)

var handShift = [NumDroppablePieceTypes]uint{
	handPawnShift, handLanceShift, handKnightShift, handSilverShift, handGoldShift, handBishopShift, handRookShift,
}

var handMask = [NumDroppablePieceTypes]uint32{
	handPawnMask, handSmallMask, handSmallMask, handSmallMask, handSmallMask, handBigMask, handBigMask,
}

// Count returns the number of pieces of pt held (pt must be a droppable
// type; 0 otherwise).
func (h Hand) Count(pt PieceType) int {
	slot := DropValue(pt)
	if slot < 0 {
		return 0
	}
	return int((uint32(h) >> handShift[slot]) & handMask[slot])
}

// Add returns h with one more piece of pt.
func (h Hand) Add(pt PieceType) Hand {
	slot := DropValue(pt)
	if slot < 0 {
		return h
	}
	return Hand(uint32(h) + (1 << handShift[slot]))
}

// Remove returns h with one fewer piece of pt.
func (h Hand) Remove(pt PieceType) Hand {
	slot := DropValue(pt)
	if slot < 0 {
		return h
	}
	return Hand(uint32(h) - (1 << handShift[slot]))
}

// Empty reports whether the hand holds no pieces at all.
func (h Hand) Empty() bool { return h == 0 }

// HandCaps are the maximum count of each droppable type, in DropPieceTypes order.
var HandCaps = [NumDroppablePieceTypes]int{18, 4, 4, 4, 4, 2, 2}
