package shogi

// GenMode selects which subset of moves GeneratePseudoLegal produces, per
// spec.md §4.C.
type GenMode int

const (
	GenAll GenMode = iota
	GenCaptures
	GenQuietChecks
	GenEvasions
)

// lastRank returns the single impassable rank for colour c (the rank a
// pawn or lance may never be dropped or left stranded on).
func lastRank(c Color) int {
	if c == Black {
		return 0
	}
	return NumRanks - 1
}

// lastTwoRanks reports whether rank is one of the two ranks a knight may
// never be stranded on.
func lastTwoRanks(c Color, rank int) bool {
	if c == Black {
		return rank <= 1
	}
	return rank >= NumRanks-2
}

// inPromotionZone reports whether rank lies in colour c's far third.
func inPromotionZone(c Color, rank int) bool {
	if c == Black {
		return rank <= 2
	}
	return rank >= NumRanks-3
}

func mustPromote(pt PieceType, c Color, to Square) bool {
	rank := to.Rank()
	switch pt {
	case Pawn, Lance:
		return rank == lastRank(c)
	case Knight:
		return lastTwoRanks(c, rank)
	default:
		return false
	}
}

func canPromote(pt PieceType, c Color, from, to Square) bool {
	if !pt.Promotes() {
		return false
	}
	return inPromotionZone(c, from.Rank()) || inPromotionZone(c, to.Rank())
}

// addBoardMoves appends both the promotion and non-promotion forms of a
// from->to move where legal, honoring the suppression of immobile
// non-promoted forms (pawn/lance on the last rank, knight on the last
// two ranks).
func addBoardMoves(list *MoveList, pt PieceType, c Color, from, to Square) {
	forced := mustPromote(pt, c, to)
	if canPromote(pt, c, from, to) {
		list.Add(NewMove(from, to, true))
	}
	if !forced {
		list.Add(NewMove(from, to, false))
	}
}

// GeneratePseudoLegal produces every structurally valid move for the
// side to move in the requested mode: legal in the sense of piece
// ownership, promotion rules, and drop restrictions (nifu, last-rank),
// but not yet filtered for leaving one's own king in check (that
// filtering is applied by GenerateLegal).
func (p *Position) GeneratePseudoLegal(mode GenMode) *MoveList {
	list := &MoveList{}
	us := p.SideToMove
	them := us.Other()
	occ := p.AllOccupied

	genDestinations := func(attacks Bitboard) Bitboard {
		attacks = attacks.AndNot(p.Occupied[us])
		switch mode {
		case GenCaptures:
			attacks = attacks.And(p.Occupied[them])
		case GenAll, GenQuietChecks, GenEvasions:
			// no filtering: GenQuietChecks and GenEvasions yield the same
			// moves as GenAll
		}
		return attacks
	}

	for pt := Pawn; pt < PieceTypeNB; pt++ {
		if pt == King {
			continue
		}
		bb := p.Pieces[us][pt]
		bb.ForEach(func(from Square) {
			atk := Attacks(pt, us, from, occ)
			dests := genDestinations(atk)
			dests.ForEach(func(to Square) {
				addBoardMoves(list, pt, us, from, to)
			})
		})
	}
	{
		from := p.KingSquare[us]
		if from != NoSquare {
			dests := genDestinations(KingAttacks(from))
			dests.ForEach(func(to Square) {
				list.Add(NewMove(from, to, false))
			})
		}
	}

	if mode != GenCaptures {
		p.generateDrops(list, us)
	}

	return list
}

func (p *Position) generateDrops(list *MoveList, us Color) {
	pawnFiles := [NumFiles]bool{}
	p.Pieces[us][Pawn].ForEach(func(sq Square) { pawnFiles[sq.File()] = true })

	for _, pt := range DropPieceTypes {
		if p.Hands[us].Count(pt) == 0 {
			continue
		}
		for sq := Square(0); sq < NumSquares; sq++ {
			if !p.IsEmpty(sq) {
				continue
			}
			rank := sq.Rank()
			if pt == Pawn || pt == Lance {
				if rank == lastRank(us) {
					continue
				}
			}
			if pt == Knight && lastTwoRanks(us, rank) {
				continue
			}
			if pt == Pawn {
				if pawnFiles[sq.File()] {
					continue // nifu
				}
				if p.wouldBeDropPawnMate(sq, us) {
					continue // uchifuzume
				}
			}
			list.Add(NewDrop(pt, sq))
		}
	}
}

// GenerateLegal returns every fully legal move: every pseudo-legal move
// that also passes IsLegal, per spec.md §8 property 3.
func (p *Position) GenerateLegal() *MoveList {
	pseudo := p.GeneratePseudoLegal(GenAll)
	out := &MoveList{}
	for i := 0; i < pseudo.Len(); i++ {
		m := pseudo.Get(i)
		if p.leavesOwnKingSafe(m) {
			out.Add(m)
		}
	}
	return out
}

// GenerateLegalCaptures returns every fully legal capturing move, for use
// by quiescence search.
func (p *Position) GenerateLegalCaptures() *MoveList {
	pseudo := p.GeneratePseudoLegal(GenCaptures)
	out := &MoveList{}
	for i := 0; i < pseudo.Len(); i++ {
		m := pseudo.Get(i)
		if p.leavesOwnKingSafe(m) {
			out.Add(m)
		}
	}
	return out
}

// leavesOwnKingSafe applies m and checks that the mover's own king is not
// left in check; it assumes m is already pseudo-legal.
func (p *Position) leavesOwnKingSafe(m Move) bool {
	us := p.SideToMove
	p.DoMove(m)
	safe := !p.IsAttacked(p.KingSquare[us], p.SideToMove)
	p.UndoMove(m)
	return safe
}

// IsLegal re-validates an arbitrary move (e.g. parsed from USI text or
// retrieved from the TT) against the current position from scratch.
func (p *Position) IsLegal(m Move) bool {
	us := p.SideToMove
	if m == NoMove || m == PassMove {
		return false
	}
	to := m.To()
	if !to.Valid() {
		return false
	}

	if m.IsDrop() {
		pt := m.DropPiece()
		if p.Hands[us].Count(pt) == 0 {
			return false
		}
		if !p.IsEmpty(to) {
			return false
		}
		rank := to.Rank()
		if (pt == Pawn || pt == Lance) && rank == lastRank(us) {
			return false
		}
		if pt == Knight && lastTwoRanks(us, rank) {
			return false
		}
		if pt == Pawn {
			nifu := false
			p.Pieces[us][Pawn].ForEach(func(sq Square) {
				if sq.File() == to.File() {
					nifu = true
				}
			})
			if nifu {
				return false
			}
			if p.wouldBeDropPawnMate(to, us) {
				return false
			}
		}
		return p.leavesOwnKingSafe(m)
	}

	from := m.From()
	if !from.Valid() {
		return false
	}
	pc := p.PieceAt(from)
	if pc == NoPiece || pc.Color() != us {
		return false
	}
	if !p.IsEmpty(to) && p.PieceAt(to).Color() == us {
		return false
	}
	pt := pc.Type()
	atk := Attacks(pt, us, from, p.AllOccupied)
	if !atk.IsSet(to) {
		return false
	}
	if m.IsPromotion() {
		if !canPromote(pt, us, from, to) {
			return false
		}
	} else if mustPromote(pt, us, to) {
		return false
	}
	return p.leavesOwnKingSafe(m)
}
