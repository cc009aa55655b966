package shogi

import "math/rand"

// Zobrist keys, generated once from a fixed seed so that hashes are
// reproducible across runs (the teacher's board.Zobrist init follows the
// same deterministic-seed pattern).
var (
	zobristPiece [ColorNB][PieceTypeNB][NumSquares]uint64
	zobristHand  [ColorNB][NumDroppablePieceTypes][19]uint64 // up to 18 pawns, indexed by count
	zobristSide  uint64
)

const zobristSeed = 0x5D1C3A2B9E7F4411

func init() {
	r := rand.New(rand.NewSource(zobristSeed))
	for c := Color(0); c < ColorNB; c++ {
		for pt := PieceType(0); pt < PieceTypeNB; pt++ {
			for sq := Square(0); sq < NumSquares; sq++ {
				zobristPiece[c][pt][sq] = r.Uint64()
			}
		}
		for slot := 0; slot < NumDroppablePieceTypes; slot++ {
			for n := 0; n < 19; n++ {
				zobristHand[c][slot][n] = r.Uint64()
			}
		}
	}
	zobristSide = r.Uint64()
}

// ZobristPiece returns the key for a piece of (pt, c) standing on sq.
func ZobristPiece(pt PieceType, c Color, sq Square) uint64 { return zobristPiece[c][pt][sq] }

// ZobristHandCount returns the key component for holding exactly n pieces
// of pt in c's hand (XOR the key for n and n-1 to move from one count to
// the other incrementally).
func ZobristHandCount(pt PieceType, c Color, n int) uint64 {
	slot := DropValue(pt)
	if slot < 0 || n < 0 || n > 18 {
		return 0
	}
	return zobristHand[c][slot][n]
}

// ZobristSide is XORed into the board hash whenever side-to-move flips.
func ZobristSide() uint64 { return zobristSide }
