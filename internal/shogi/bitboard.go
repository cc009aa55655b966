package shogi

import "math/bits"

// Bitboard is an 81-bit set of squares, split across two 64-bit words:
// Lo covers squares 0..62, Hi covers squares 63..80. Two words rather than
// one 128-bit integer, per spec.md §3's suggested representation.
type Bitboard struct {
	Lo uint64
	Hi uint64
}

const loBits = 63

var EmptyBB = Bitboard{}

func bit(sq Square) Bitboard {
	if int(sq) < loBits {
		return Bitboard{Lo: 1 << uint(sq)}
	}
	return Bitboard{Hi: 1 << uint(int(sq)-loBits)}
}

// Set returns a copy of b with sq set.
func (b Bitboard) Set(sq Square) Bitboard {
	s := bit(sq)
	return Bitboard{Lo: b.Lo | s.Lo, Hi: b.Hi | s.Hi}
}

// Clear returns a copy of b with sq cleared.
func (b Bitboard) Clear(sq Square) Bitboard {
	s := bit(sq)
	return Bitboard{Lo: b.Lo &^ s.Lo, Hi: b.Hi &^ s.Hi}
}

// IsSet reports whether sq is a member of b.
func (b Bitboard) IsSet(sq Square) bool {
	s := bit(sq)
	return b.Lo&s.Lo != 0 || b.Hi&s.Hi != 0
}

// Or returns the union of b and o.
func (b Bitboard) Or(o Bitboard) Bitboard { return Bitboard{b.Lo | o.Lo, b.Hi | o.Hi} }

// And returns the intersection of b and o.
func (b Bitboard) And(o Bitboard) Bitboard { return Bitboard{b.Lo & o.Lo, b.Hi & o.Hi} }

// AndNot returns b with every bit of o removed.
func (b Bitboard) AndNot(o Bitboard) Bitboard { return Bitboard{b.Lo &^ o.Lo, b.Hi &^ o.Hi} }

// Xor returns the symmetric difference of b and o.
func (b Bitboard) Xor(o Bitboard) Bitboard { return Bitboard{b.Lo ^ o.Lo, b.Hi ^ o.Hi} }

// Not returns the complement of b within the 81-square board.
func (b Bitboard) Not() Bitboard {
	return Bitboard{Lo: ^b.Lo & ((1 << loBits) - 1), Hi: ^b.Hi & ((1 << 18) - 1)}
}

// Empty reports whether no bit is set.
func (b Bitboard) Empty() bool { return b.Lo == 0 && b.Hi == 0 }

// More reports whether at least one bit is set.
func (b Bitboard) More() bool { return !b.Empty() }

// PopCount returns the number of set squares.
func (b Bitboard) PopCount() int { return bits.OnesCount64(b.Lo) + bits.OnesCount64(b.Hi) }

// LSB returns the lowest-indexed set square, or NoSquare if empty.
func (b Bitboard) LSB() Square {
	if b.Lo != 0 {
		return Square(bits.TrailingZeros64(b.Lo))
	}
	if b.Hi != 0 {
		return Square(loBits + bits.TrailingZeros64(b.Hi))
	}
	return NoSquare
}

// PopLSB clears and returns the lowest-indexed set square.
func (b *Bitboard) PopLSB() Square {
	sq := b.LSB()
	if sq != NoSquare {
		*b = b.Clear(sq)
	}
	return sq
}

// ForEach invokes f for every set square, lowest first.
func (b Bitboard) ForEach(f func(Square)) {
	for b.More() {
		f(b.PopLSB())
	}
}

// Squares returns every set square as a slice, lowest first.
func (b Bitboard) Squares() []Square {
	out := make([]Square, 0, b.PopCount())
	for b.More() {
		out = append(out, b.PopLSB())
	}
	return out
}

// SquareBB returns a bitboard containing only sq.
func SquareBB(sq Square) Bitboard { return bit(sq) }

// FileBB returns a bitboard of every square on the given internal file.
func FileBB(file int) Bitboard {
	var b Bitboard
	for rank := 0; rank < NumRanks; rank++ {
		b = b.Set(NewSquare(file, rank))
	}
	return b
}

// RankBB returns a bitboard of every square on the given internal rank.
func RankBB(rank int) Bitboard {
	var b Bitboard
	for file := 0; file < NumFiles; file++ {
		b = b.Set(NewSquare(file, rank))
	}
	return b
}
