package nnue

import "github.com/ymatsux/goshogi/internal/shogi"

// pieceKindIndex maps a non-king PieceType to its 0..12 slot.
var pieceKindIndex = map[shogi.PieceType]int{
	shogi.Pawn: 0, shogi.Lance: 1, shogi.Knight: 2, shogi.Silver: 3,
	shogi.Gold: 4, shogi.Bishop: 5, shogi.Rook: 6,
	shogi.ProPawn: 7, shogi.ProLance: 8, shogi.ProKnight: 9, shogi.ProSilver: 10,
	shogi.Horse: 11, shogi.Dragon: 12,
}

const numPieceKindsPerColor = 13

// PieceIndex maps (pt, c) to a 0..25 board-feature kind, or -1 for the
// king (kings are represented by the perspective itself, not a feature).
func PieceIndex(pt shogi.PieceType, c shogi.Color) int {
	k, ok := pieceKindIndex[pt]
	if !ok {
		return -1
	}
	if c == shogi.White {
		k += numPieceKindsPerColor
	}
	return k
}

// handSlotBase is the cumulative offset, within one colour's 38-wide hand
// block, of the first count-feature for each droppable piece type.
var handSlotBase = [shogi.NumDroppablePieceTypes]int{}

func init() {
	offset := 0
	for i, pt := range shogi.DropPieceTypes {
		handSlotBase[i] = offset
		offset += shogi.HandCaps[shogi.DropValue(pt)]
	}
}

const handSlotsPerColor = handFeatureKinds / 2

// handFeatureIndex returns the 0..75 hand-feature slot for holding count
// units (1-based) of pt in c's hand.
func handFeatureIndex(pt shogi.PieceType, c shogi.Color, count int) int {
	slot := shogi.DropValue(pt)
	if slot < 0 || count < 1 || count > shogi.HandCaps[slot] {
		return -1
	}
	base := handSlotBase[slot]
	if c == shogi.White {
		base += handSlotsPerColor
	}
	return base + (count - 1)
}

// orientSquare returns sq as seen by perspective: Black's view is the
// identity (Black already faces "up the board" toward rank 0, as the
// teacher's White perspective did not mirror), White's view rotates the
// board 180 degrees so each side sees its own king the same way.
func orientSquare(perspective shogi.Color, sq shogi.Square) shogi.Square {
	if perspective == shogi.White {
		return sq.Inverse()
	}
	return sq
}

// HalfKPBoardIndex computes the board-piece feature index for a piece
// from perspective's point of view, given perspective's king square.
func HalfKPBoardIndex(perspective shogi.Color, kingSquare shogi.Square,
	pieceType shogi.PieceType, pieceColor shogi.Color, pieceSquare shogi.Square) int {

	pc := pieceColor
	ksq := orientSquare(perspective, kingSquare)
	psq := orientSquare(perspective, pieceSquare)
	if perspective == shogi.White {
		pc = pieceColor.Other()
	}

	pi := PieceIndex(pieceType, pc)
	if pi < 0 {
		return -1
	}
	return int(ksq)*(NumPieceKinds*shogi.NumSquares) + pi*shogi.NumSquares + int(psq)
}

// HalfKPHandIndex computes the hand-piece feature index for holding
// count units of pt in handColor's hand, from perspective's point of
// view, given perspective's king square.
func HalfKPHandIndex(perspective shogi.Color, kingSquare shogi.Square,
	pt shogi.PieceType, handColor shogi.Color, count int) int {

	hc := handColor
	if perspective == shogi.White {
		hc = handColor.Other()
	}
	slot := handFeatureIndex(pt, hc, count)
	if slot < 0 {
		return -1
	}
	ksq := orientSquare(perspective, kingSquare)
	return HalfKPBoardSize + int(ksq)*handFeatureKinds + slot
}

// ActiveFeatures returns every active feature index for pos, from both
// perspectives (one entry per board piece plus one per held unit),
// under the given feature set.
func ActiveFeatures(pos *shogi.Position, fs FeatureSet) (black, white []int) {
	black = make([]int, 0, 42)
	white = make([]int, 0, 42)

	bKing := pos.KingSquare[shogi.Black]
	wKing := pos.KingSquare[shogi.White]

	// HalfKP excludes the king from the board loop (it is never a
	// feature, only the bucket key); HalfKA_hm includes it.
	pieceLoopEnd := shogi.King
	if fs == HalfKAhm {
		pieceLoopEnd = shogi.King + 1
	}

	for c := shogi.Black; c <= shogi.White; c++ {
		for pt := shogi.Pawn; pt < pieceLoopEnd; pt++ {
			bb := pos.Pieces[c][pt]
			bb.ForEach(func(sq shogi.Square) {
				var bIdx, wIdx int
				if fs == HalfKAhm {
					bIdx = HalfKAHMBoardIndex(shogi.Black, bKing, pt, c, sq)
					wIdx = HalfKAHMBoardIndex(shogi.White, wKing, pt, c, sq)
				} else {
					bIdx = HalfKPBoardIndex(shogi.Black, bKing, pt, c, sq)
					wIdx = HalfKPBoardIndex(shogi.White, wKing, pt, c, sq)
				}
				if bIdx >= 0 {
					black = append(black, bIdx)
				}
				if wIdx >= 0 {
					white = append(white, wIdx)
				}
			})
		}
		for _, pt := range shogi.DropPieceTypes {
			n := pos.Hands[c].Count(pt)
			for count := 1; count <= n; count++ {
				var bIdx, wIdx int
				if fs == HalfKAhm {
					bIdx = HalfKAHMHandIndex(shogi.Black, bKing, pt, c, count)
					wIdx = HalfKAHMHandIndex(shogi.White, wKing, pt, c, count)
				} else {
					bIdx = HalfKPHandIndex(shogi.Black, bKing, pt, c, count)
					wIdx = HalfKPHandIndex(shogi.White, wKing, pt, c, count)
				}
				if bIdx >= 0 {
					black = append(black, bIdx)
				}
				if wIdx >= 0 {
					white = append(white, wIdx)
				}
			}
		}
	}
	return black, white
}

// FeatureSet selects which NNUE input feature scheme a Network uses,
// chosen by the weight file's architecture hash per spec.md §4.E.
type FeatureSet uint8

const (
	HalfKP FeatureSet = iota
	HalfKAhm
)

// NumKingBuckets is the HalfKA_hm king-bucket count: 9 ranks times 5
// files after horizontal mirroring around the centre file, matching the
// "9 ranks x 5 files" shape spec.md §4.E names for shogi.
const NumKingBuckets = shogi.NumRanks * (shogi.NumFiles/2 + 1)

// halfKAPieceKinds is every HalfKP board-piece kind (26) plus one shared
// King group: HalfKA_hm's king bucket doesn't exclude the king from the
// feature list the way HalfKP does -- both colours' kings share a single
// group, since the friendly king's own square is already encoded by
// which bucket is active.
const halfKAPieceKinds = NumPieceKinds + 1

const (
	halfKABoardSize = halfKAPieceKinds * shogi.NumSquares
	halfKAPerBucket = halfKABoardSize + handFeatureKinds

	// HalfKAHMSize is the full per-perspective HalfKA_hm feature
	// dimension: one packed-piece block per king bucket.
	HalfKAHMSize = NumKingBuckets * halfKAPerBucket
)

// kingBucket folds ksq's file around the centre file (mirroring the
// right half onto the left) and combines it with rank. Ported from
// sfnnue/features/half_ka_v2_hm.go's KingBuckets table, generalized from
// chess's XOR-friendly 8-file fold to shogi's 9-file fold around a
// centre file (shogi's board isn't a power of two wide, so the bucket is
// computed with plain arithmetic instead of the original's XOR trick).
func kingBucket(ksq shogi.Square) int {
	file := ksq.File()
	if file > shogi.NumFiles/2 {
		file = shogi.NumFiles - 1 - file
	}
	return ksq.Rank()*(shogi.NumFiles/2+1) + file
}

// kingNeedsMirror reports whether ksq lies on the board's right half, in
// which case every packed piece index sharing this king bucket must also
// have its file mirrored -- "the mirror flag applies to all packed piece
// indices consistently with the king bucket" (spec.md §4.E), ported from
// half_ka_v2_hm.go's OrientTBL/MakeIndex.
func kingNeedsMirror(ksq shogi.Square) bool {
	return ksq.File() > shogi.NumFiles/2
}

// HalfKAHMBoardIndex computes the HalfKA_hm board-piece feature index,
// including the king itself (both colours share one King group since the
// friendly king's square is already encoded by the active bucket).
func HalfKAHMBoardIndex(perspective shogi.Color, kingSquare shogi.Square,
	pieceType shogi.PieceType, pieceColor shogi.Color, pieceSquare shogi.Square) int {

	ksq := orientSquare(perspective, kingSquare)
	psq := orientSquare(perspective, pieceSquare)
	if kingNeedsMirror(ksq) {
		psq = psq.Mirror()
	}

	var kind int
	if pieceType == shogi.King {
		kind = NumPieceKinds
	} else {
		pc := pieceColor
		if perspective == shogi.White {
			pc = pieceColor.Other()
		}
		kind = PieceIndex(pieceType, pc)
		if kind < 0 {
			return -1
		}
	}
	return kingBucket(ksq)*halfKAPerBucket + kind*shogi.NumSquares + int(psq)
}

// HalfKAHMHandIndex computes the HalfKA_hm hand-piece feature index;
// hand slots aren't king-relative in shape but are still scaled by king
// bucket so each bucket owns an independent copy, matching HalfKP's own
// per-bucket hand layout.
func HalfKAHMHandIndex(perspective shogi.Color, kingSquare shogi.Square,
	pt shogi.PieceType, handColor shogi.Color, count int) int {

	hc := handColor
	if perspective == shogi.White {
		hc = handColor.Other()
	}
	slot := handFeatureIndex(pt, hc, count)
	if slot < 0 {
		return -1
	}
	ksq := orientSquare(perspective, kingSquare)
	return kingBucket(ksq)*halfKAPerBucket + halfKABoardSize + slot
}
