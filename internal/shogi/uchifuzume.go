package shogi

// wouldBeDropPawnMate implements uchifuzume detection (spec.md §4.C):
// dropping a pawn of colour us on sq is illegal if doing so gives check
// and checkmates the opponent. Of the two equivalent formulations the
// Open Questions in spec.md §9 note as present in the source (a full
// legality-oriented path and a pin-aware shortcut), this repository
// keeps exactly one: the full legality-oriented path, built directly on
// top of GenerateLegal so that pinned defenders are automatically
// excluded from the opponent's replies with no duplicated pin logic.
func (p *Position) wouldBeDropPawnMate(sq Square, us Color) bool {
	them := us.Other()
	kingSq := p.KingSquare[them]
	if kingSq == NoSquare {
		return false
	}

	fwd := forwardDelta(us)
	file, rank := sq.File(), sq.Rank()+fwd
	if !inBounds(file, rank) || NewSquare(file, rank) != kingSq {
		return false // drop does not give check at all
	}

	sim := p.Copy()
	sim.setPiece(sq, NewPiece(Pawn, us))
	sim.SideToMove = them
	sim.updateCheckersAndPins()

	return sim.GenerateLegal().Len() == 0
}
