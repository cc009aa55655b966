package shogi

// Precomputed attack tables, built once at package init. Slider attacks
// use the ray-walking variant spec.md §4.A explicitly permits as an
// alternative to magic multipliers: each (square, direction) stores the
// ordered list of squares outward from the origin, and attacks(piece,
// sq, occupancy) walks that list until (and including) the first
// occupied square.

var (
	pawnStep    [ColorNB][NumSquares]Bitboard
	knightStep  [ColorNB][NumSquares]Bitboard
	silverStep  [ColorNB][NumSquares]Bitboard
	goldStep    [ColorNB][NumSquares]Bitboard
	kingStep    [NumSquares]Bitboard
	rays        [NumSquares][9][]Square // indexed by Direction 1..8
	betweenBB   [NumSquares][NumSquares]Bitboard
	lineBB      [NumSquares][NumSquares]Bitboard
)

func forwardDelta(c Color) int {
	if c == White {
		return 1
	}
	return -1
}

func inBounds(file, rank int) bool {
	return file >= 0 && file < NumFiles && rank >= 0 && rank < NumRanks
}

func addStep(bb *Bitboard, sq Square, dfile, drank int) {
	file, rank := sq.File()+dfile, sq.Rank()+drank
	if inBounds(file, rank) {
		*bb = bb.Set(NewSquare(file, rank))
	}
}

func init() {
	allDirs := []Direction{DirN, DirS, DirE, DirW, DirNE, DirNW, DirSE, DirSW}

	for s := Square(0); s < NumSquares; s++ {
		sq := s
		for c := Color(0); c < ColorNB; c++ {
			f := forwardDelta(c)
			var pawn, knight, silver, gold Bitboard
			addStep(&pawn, sq, 0, f)

			addStep(&knight, sq, 1, 2*f)
			addStep(&knight, sq, -1, 2*f)

			addStep(&silver, sq, 0, f)
			addStep(&silver, sq, 1, f)
			addStep(&silver, sq, -1, f)
			addStep(&silver, sq, 1, -f)
			addStep(&silver, sq, -1, -f)

			addStep(&gold, sq, 0, f)
			addStep(&gold, sq, 1, f)
			addStep(&gold, sq, -1, f)
			addStep(&gold, sq, 1, 0)
			addStep(&gold, sq, -1, 0)
			addStep(&gold, sq, 0, -f)

			pawnStep[c][sq] = pawn
			knightStep[c][sq] = knight
			silverStep[c][sq] = silver
			goldStep[c][sq] = gold
		}

		var king Bitboard
		for _, d := range allDirs {
			df, dr := stepOf(d)
			addStep(&king, sq, df, dr)
		}
		kingStep[sq] = king

		for _, d := range allDirs {
			df, dr := stepOf(d)
			file, rank := sq.File()+df, sq.Rank()+dr
			var list []Square
			for inBounds(file, rank) {
				list = append(list, NewSquare(file, rank))
				file += df
				rank += dr
			}
			rays[sq][d] = list
		}
	}

	for a := Square(0); a < NumSquares; a++ {
		for b := Square(0); b < NumSquares; b++ {
			d := directionOf(a, b)
			if d == DirNone {
				continue
			}
			var between Bitboard
			for _, sq := range rays[a][d] {
				if sq == b {
					break
				}
				between = between.Set(sq)
			}
			betweenBB[a][b] = between

			var line Bitboard
			line = line.Set(a).Set(b)
			for _, sq := range rays[a][d] {
				line = line.Set(sq)
			}
			opp := oppositeDir(d)
			for _, sq := range rays[a][opp] {
				line = line.Set(sq)
			}
			lineBB[a][b] = line
		}
	}
}

func oppositeDir(d Direction) Direction {
	switch d {
	case DirN:
		return DirS
	case DirS:
		return DirN
	case DirE:
		return DirW
	case DirW:
		return DirE
	case DirNE:
		return DirSW
	case DirSW:
		return DirNE
	case DirNW:
		return DirSE
	case DirSE:
		return DirNW
	}
	return DirNone
}

// walkRay returns the attack set along one ray from sq, stopping at (and
// including) the first occupied square.
func walkRay(sq Square, d Direction, occ Bitboard) Bitboard {
	var bb Bitboard
	for _, s := range rays[sq][d] {
		bb = bb.Set(s)
		if occ.IsSet(s) {
			break
		}
	}
	return bb
}

// BetweenBB returns the squares strictly between a and b if they are
// collinear on a rook/bishop/lance ray, else the empty set.
func BetweenBB(a, b Square) Bitboard { return betweenBB[a][b] }

// LineBB returns the full ray through a and b if they are collinear,
// else the empty set.
func LineBB(a, b Square) Bitboard { return lineBB[a][b] }

// PawnAttacks returns the pawn's single push square(s) as an attack set
// (pawns capture by pushing in shogi, so attacks == moves).
func PawnAttacks(c Color, sq Square) Bitboard { return pawnStep[c][sq] }

func KnightAttacks(c Color, sq Square) Bitboard { return knightStep[c][sq] }
func SilverAttacks(c Color, sq Square) Bitboard { return silverStep[c][sq] }
func GoldAttacks(c Color, sq Square) Bitboard   { return goldStep[c][sq] }
func KingAttacks(sq Square) Bitboard            { return kingStep[sq] }

func LanceAttacks(c Color, sq Square, occ Bitboard) Bitboard {
	d := DirN
	if c == Black {
		d = DirS
	}
	return walkRay(sq, d, occ)
}

func BishopAttacks(sq Square, occ Bitboard) Bitboard {
	return walkRay(sq, DirNE, occ).Or(walkRay(sq, DirNW, occ)).Or(walkRay(sq, DirSE, occ)).Or(walkRay(sq, DirSW, occ))
}

func RookAttacks(sq Square, occ Bitboard) Bitboard {
	return walkRay(sq, DirN, occ).Or(walkRay(sq, DirS, occ)).Or(walkRay(sq, DirE, occ)).Or(walkRay(sq, DirW, occ))
}

func HorseAttacks(sq Square, occ Bitboard) Bitboard {
	return BishopAttacks(sq, occ).Or(KingAttacks(sq))
}

func DragonAttacks(sq Square, occ Bitboard) Bitboard {
	return RookAttacks(sq, occ).Or(KingAttacks(sq))
}

// Attacks returns the attack set of piece (pt, c) standing on sq given
// board occupancy occ. This is the single externally-visible contract
// spec.md §4.A requires, regardless of whether sliders are implemented
// by ray-walking or magic multipliers.
func Attacks(pt PieceType, c Color, sq Square, occ Bitboard) Bitboard {
	switch pt {
	case Pawn:
		return PawnAttacks(c, sq)
	case Lance:
		return LanceAttacks(c, sq, occ)
	case Knight:
		return KnightAttacks(c, sq)
	case Silver:
		return SilverAttacks(c, sq)
	case Gold, ProPawn, ProLance, ProKnight, ProSilver:
		return GoldAttacks(c, sq)
	case Bishop:
		return BishopAttacks(sq, occ)
	case Rook:
		return RookAttacks(sq, occ)
	case Horse:
		return HorseAttacks(sq, occ)
	case Dragon:
		return DragonAttacks(sq, occ)
	case King:
		return KingAttacks(sq)
	}
	return EmptyBB
}

// IsSlider reports whether pt's attacks depend on occupancy.
func IsSlider(pt PieceType) bool {
	switch pt {
	case Lance, Bishop, Rook, Horse, Dragon:
		return true
	default:
		return false
	}
}
