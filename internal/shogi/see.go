package shogi

// SEE (Static Exchange Evaluation) estimates the material result of the
// capture sequence started by m, from the mover's perspective. Grounded
// on the teacher's swap-algorithm SEE (internal/engine/eval.go), adapted
// from chess's fixed six piece kinds to shogi's fourteen. Each captured
// piece counts at its PieceValue only; the value of later dropping it
// from hand is not included.
func (p *Position) SEE(m Move) int {
	if m.IsDrop() {
		return 0 // a drop never captures
	}
	from, to := m.From(), m.To()
	attacker := p.PieceAt(from)
	if attacker == NoPiece {
		return 0
	}
	victim := p.PieceAt(to)
	if victim == NoPiece {
		return 0
	}

	gain := PieceValue[victim.Type()]
	if m.IsPromotion() {
		gain += PieceValue[attacker.Type().Promote()] - PieceValue[attacker.Type()]
	}

	return p.seeSwap(to, from, attacker, gain)
}

func (p *Position) seeSwap(target, excludeFrom Square, firstAttacker Piece, initialGain int) int {
	var gainSeq [32]int
	d := 0
	gainSeq[d] = initialGain

	occ := p.AllOccupied.Clear(excludeFrom)
	attackerValue := PieceValue[firstAttacker.Type()]
	side := firstAttacker.Color().Other()

	for d < len(gainSeq)-1 {
		d++
		gainSeq[d] = attackerValue - gainSeq[d-1]
		if max(-gainSeq[d-1], gainSeq[d]) < 0 {
			break
		}

		sq, pc := p.leastValuableAttacker(target, side, occ)
		if sq == NoSquare {
			break
		}
		occ = occ.Clear(sq)
		attackerValue = PieceValue[pc.Type()]
		side = side.Other()
	}

	for d--; d > 0; d-- {
		gainSeq[d-1] = -max(-gainSeq[d-1], gainSeq[d])
	}
	return gainSeq[0]
}

// leastValuableAttacker returns the cheapest piece of colour side
// attacking target given occupancy occ, re-deriving slider attacks from
// occ so that x-ray attackers revealed by earlier removals are found.
func (p *Position) leastValuableAttacker(target Square, side Color, occ Bitboard) (Square, Piece) {
	try := func(bb Bitboard) (Square, bool) {
		bb = bb.And(occ)
		if bb.Empty() {
			return NoSquare, false
		}
		return bb.LSB(), true
	}

	if sq, ok := try(PawnAttacks(side.Other(), target).And(p.Pieces[side][Pawn])); ok {
		return sq, NewPiece(Pawn, side)
	}
	if sq, ok := try(LanceAttacks(side.Other(), target, occ).And(p.Pieces[side][Lance])); ok {
		return sq, NewPiece(Lance, side)
	}
	if sq, ok := try(KnightAttacks(side.Other(), target).And(p.Pieces[side][Knight])); ok {
		return sq, NewPiece(Knight, side)
	}
	if sq, ok := try(SilverAttacks(side.Other(), target).And(p.Pieces[side][Silver])); ok {
		return sq, NewPiece(Silver, side)
	}
	goldLike := p.Pieces[side][Gold].Or(p.Pieces[side][ProPawn]).Or(p.Pieces[side][ProLance]).
		Or(p.Pieces[side][ProKnight]).Or(p.Pieces[side][ProSilver])
	if sq, ok := try(GoldAttacks(side.Other(), target).And(goldLike)); ok {
		pt := p.PieceAt(sq).Type()
		return sq, NewPiece(pt, side)
	}
	if sq, ok := try(BishopAttacks(target, occ).And(p.Pieces[side][Bishop])); ok {
		return sq, NewPiece(Bishop, side)
	}
	if sq, ok := try(HorseAttacks(target, occ).And(p.Pieces[side][Horse])); ok {
		return sq, NewPiece(Horse, side)
	}
	if sq, ok := try(RookAttacks(target, occ).And(p.Pieces[side][Rook])); ok {
		return sq, NewPiece(Rook, side)
	}
	if sq, ok := try(DragonAttacks(target, occ).And(p.Pieces[side][Dragon])); ok {
		return sq, NewPiece(Dragon, side)
	}
	if sq, ok := try(KingAttacks(target).And(p.Pieces[side][King])); ok {
		return sq, NewPiece(King, side)
	}
	return NoSquare, NoPiece
}
