package shogi

import "fmt"

// Position owns the board, both hands, side to move, incremental hashes,
// and the per-ply undo stack described in spec.md §3.
type Position struct {
	board [NumSquares]Piece

	Pieces      [ColorNB][PieceTypeNB]Bitboard
	Occupied    [ColorNB]Bitboard
	AllOccupied Bitboard

	Hands      [ColorNB]Hand
	SideToMove Color
	KingSquare [ColorNB]Square

	BoardHash uint64
	HandHash  uint64

	Checkers Bitboard
	Blockers [ColorNB]Bitboard
	Pinners  [ColorNB]Bitboard

	Ply int

	undo []UndoInfo
	keyHistory []uint64 // Key() after every move played, for repetition detection
}

// NewPosition returns the standard shogi starting position.
func NewPosition() *Position {
	p := &Position{}
	if err := p.SetSFEN(StartSFEN); err != nil {
		panic(fmt.Sprintf("invalid built-in start SFEN: %v", err))
	}
	return p
}

// Clear empties the position entirely (no pieces, no hand, Black to move).
func (p *Position) Clear() {
	*p = Position{}
	for i := range p.board {
		p.board[i] = NoPiece
	}
	p.KingSquare[Black] = NoSquare
	p.KingSquare[White] = NoSquare
}

// PieceAt returns the piece on sq, or NoPiece.
func (p *Position) PieceAt(sq Square) Piece { return p.board[sq] }

// IsEmpty reports whether sq holds no piece.
func (p *Position) IsEmpty(sq Square) bool { return p.board[sq] == NoPiece }

// Key returns the combined Zobrist key used for TT lookups and
// repetition detection (board hash already folds in side-to-move).
func (p *Position) Key() uint64 { return p.BoardHash ^ p.HandHash }

func (p *Position) setPiece(sq Square, pc Piece) {
	p.board[sq] = pc
	pt, c := pc.Type(), pc.Color()
	p.Pieces[c][pt] = p.Pieces[c][pt].Set(sq)
	p.Occupied[c] = p.Occupied[c].Set(sq)
	p.AllOccupied = p.AllOccupied.Set(sq)
	p.BoardHash ^= ZobristPiece(pt, c, sq)
	if pt == King {
		p.KingSquare[c] = sq
	}
}

func (p *Position) removePiece(sq Square) {
	pc := p.board[sq]
	if pc == NoPiece {
		return
	}
	pt, c := pc.Type(), pc.Color()
	p.board[sq] = NoPiece
	p.Pieces[c][pt] = p.Pieces[c][pt].Clear(sq)
	p.Occupied[c] = p.Occupied[c].Clear(sq)
	p.AllOccupied = p.AllOccupied.Clear(sq)
	p.BoardHash ^= ZobristPiece(pt, c, sq)
}

func (p *Position) addToHand(pt PieceType, c Color) {
	before := p.Hands[c].Count(pt)
	p.HandHash ^= ZobristHandCount(pt, c, before)
	p.Hands[c] = p.Hands[c].Add(pt)
	p.HandHash ^= ZobristHandCount(pt, c, before+1)
}

func (p *Position) removeFromHand(pt PieceType, c Color) {
	before := p.Hands[c].Count(pt)
	p.HandHash ^= ZobristHandCount(pt, c, before)
	p.Hands[c] = p.Hands[c].Remove(pt)
	p.HandHash ^= ZobristHandCount(pt, c, before-1)
}

// Copy returns a deep copy of p. do_move/undo_move on the copy never
// affects the original, mirroring the teacher's Position.Copy.
func (p *Position) Copy() *Position {
	cp := *p
	cp.undo = append([]UndoInfo(nil), p.undo...)
	cp.keyHistory = append([]uint64(nil), p.keyHistory...)
	return &cp
}

// attackersTo returns every piece of any colour attacking sq given
// occupancy occ.
func (p *Position) attackersTo(sq Square, occ Bitboard) Bitboard {
	var attackers Bitboard
	attackers = attackers.Or(PawnAttacks(White, sq).And(p.Pieces[Black][Pawn]))
	attackers = attackers.Or(PawnAttacks(Black, sq).And(p.Pieces[White][Pawn]))
	attackers = attackers.Or(KnightAttacks(White, sq).And(p.Pieces[Black][Knight]))
	attackers = attackers.Or(KnightAttacks(Black, sq).And(p.Pieces[White][Knight]))
	attackers = attackers.Or(SilverAttacks(White, sq).And(p.Pieces[Black][Silver]))
	attackers = attackers.Or(SilverAttacks(Black, sq).And(p.Pieces[White][Silver]))
	goldLike := func(c Color) Bitboard {
		return p.Pieces[c][Gold].Or(p.Pieces[c][ProPawn]).Or(p.Pieces[c][ProLance]).
			Or(p.Pieces[c][ProKnight]).Or(p.Pieces[c][ProSilver])
	}
	attackers = attackers.Or(GoldAttacks(White, sq).And(goldLike(Black)))
	attackers = attackers.Or(GoldAttacks(Black, sq).And(goldLike(White)))
	attackers = attackers.Or(LanceAttacks(White, sq, occ).And(p.Pieces[Black][Lance]))
	attackers = attackers.Or(LanceAttacks(Black, sq, occ).And(p.Pieces[White][Lance]))

	bishops := p.Pieces[Black][Bishop].Or(p.Pieces[White][Bishop])
	attackers = attackers.Or(BishopAttacks(sq, occ).And(bishops))
	rooks := p.Pieces[Black][Rook].Or(p.Pieces[White][Rook])
	attackers = attackers.Or(RookAttacks(sq, occ).And(rooks))
	horses := p.Pieces[Black][Horse].Or(p.Pieces[White][Horse])
	attackers = attackers.Or(HorseAttacks(sq, occ).And(horses))
	dragons := p.Pieces[Black][Dragon].Or(p.Pieces[White][Dragon])
	attackers = attackers.Or(DragonAttacks(sq, occ).And(dragons))

	attackers = attackers.Or(KingAttacks(sq).And(p.Pieces[Black][King]).Or(KingAttacks(sq).And(p.Pieces[White][King])))
	return attackers
}

// IsAttacked reports whether sq is attacked by colour c.
func (p *Position) IsAttacked(sq Square, by Color) bool {
	return p.attackersTo(sq, p.AllOccupied).And(p.Occupied[by]).More()
}

// InCheck reports whether the side to move is currently in check.
func (p *Position) InCheck() bool { return p.Checkers.More() }

// updateBlockersAndPinners recomputes, for colour c's king, the set of
// c's own pieces that if removed would expose the king to a slider
// (Blockers[c]) and the enemy sliders that would then check
// (Pinners[c]). Grounded on the teacher's ComputePinned.
func (p *Position) updateBlockersAndPinners(c Color) {
	p.Blockers[c] = EmptyBB
	p.Pinners[c] = EmptyBB
	ksq := p.KingSquare[c]
	if ksq == NoSquare {
		return
	}
	enemy := c.Other()

	snipers := EmptyBB
	snipers = snipers.Or(RookAttacks(ksq, EmptyBB).And(p.Pieces[enemy][Rook].Or(p.Pieces[enemy][Dragon])))
	snipers = snipers.Or(BishopAttacks(ksq, EmptyBB).And(p.Pieces[enemy][Bishop].Or(p.Pieces[enemy][Horse])))
	lanceDir := DirN
	if enemy == Black {
		lanceDir = DirS
	}
	_ = lanceDir
	snipers = snipers.Or(LanceAttacks(c, ksq, EmptyBB).And(p.Pieces[enemy][Lance]))

	occExceptSnipers := p.AllOccupied
	snipers.ForEach(func(sniper Square) {
		between := BetweenBB(ksq, sniper).And(occExceptSnipers)
		if between.PopCount() == 1 {
			blocker := between.LSB()
			if p.Occupied[c].IsSet(blocker) {
				p.Blockers[c] = p.Blockers[c].Set(blocker)
				p.Pinners[c] = p.Pinners[c].Set(sniper)
			}
		}
	})
}

func (p *Position) updateCheckersAndPins() {
	ksq := p.KingSquare[p.SideToMove]
	if ksq == NoSquare {
		p.Checkers = EmptyBB
		return
	}
	p.Checkers = p.attackersTo(ksq, p.AllOccupied).And(p.Occupied[p.SideToMove.Other()])
	p.updateBlockersAndPinners(Black)
	p.updateBlockersAndPinners(White)
}

// DoMove applies m (assumed legal) and returns the undo record, matching
// the order of operations in spec.md §4.B.
func (p *Position) DoMove(m Move) UndoInfo {
	us := p.SideToMove
	them := us.Other()

	undo := UndoInfo{
		Captured:      NoPiece,
		BoardHash:     p.BoardHash,
		HandHash:      p.HandHash,
		Checkers:      p.Checkers,
		BlockersBlack: p.Blockers[Black],
		BlockersWhite: p.Blockers[White],
		PinnersBlack:  p.Pinners[Black],
		PinnersWhite:  p.Pinners[White],
	}

	if m.IsDrop() {
		pt := m.DropPiece()
		to := m.To()
		p.removeFromHand(pt, us)
		p.setPiece(to, NewPiece(pt, us))
		undo.Dirty = DirtyPiece{
			NumChanged: 1,
			Old: [3]ExtBonaPiece{{
				Valid: true, PieceType: pt, Color: us,
				InHand: true, HandCount: p.Hands[us].Count(pt) + 1,
			}},
			New: [3]ExtBonaPiece{{Valid: true, Square: to, PieceType: pt, Color: us}},
		}
	} else {
		from, to := m.From(), m.To()
		moving := p.board[from]
		movingPT := moving.Type()

		var capPT PieceType
		if !p.IsEmpty(to) {
			captured := p.board[to]
			undo.Captured = captured
			capPT = captured.Type().Demote()
			p.removePiece(to)
			p.addToHand(capPT, us)
		}

		p.removePiece(from)
		newPT := movingPT
		if m.IsPromotion() {
			newPT = movingPT.Promote()
		}
		p.setPiece(to, NewPiece(newPT, us))

		undo.Dirty = DirtyPiece{
			NumChanged: 1,
			Old:        [3]ExtBonaPiece{{Valid: true, Square: from, PieceType: movingPT, Color: us}},
			New:        [3]ExtBonaPiece{{Valid: true, Square: to, PieceType: newPT, Color: us}},
		}
		if undo.Captured != NoPiece {
			undo.Dirty.NumChanged = 3
			undo.Dirty.Old[1] = ExtBonaPiece{Valid: true, Square: to, PieceType: undo.Captured.Type(), Color: them}
			undo.Dirty.New[2] = ExtBonaPiece{
				Valid: true, PieceType: capPT, Color: us,
				InHand: true, HandCount: p.Hands[us].Count(capPT),
			}
		}
		if movingPT == King {
			undo.Dirty.KingMoved[us] = true
		}
	}

	p.SideToMove = them
	p.BoardHash ^= ZobristSide()
	p.updateCheckersAndPins()
	p.Ply++
	p.undo = append(p.undo, undo)
	p.keyHistory = append(p.keyHistory, p.Key())
	return undo
}

// UndoMove reverses the most recent DoMove(m).
func (p *Position) UndoMove(m Move) {
	n := len(p.undo)
	undo := p.undo[n-1]
	p.undo = p.undo[:n-1]
	p.keyHistory = p.keyHistory[:len(p.keyHistory)-1]
	p.Ply--

	them := p.SideToMove
	us := them.Other()
	p.SideToMove = us

	if m.IsDrop() {
		pt := m.DropPiece()
		to := m.To()
		p.removePiece(to)
		p.Hands[us] = p.Hands[us].Add(pt)
	} else {
		from, to := m.From(), m.To()
		placed := p.board[to]
		p.removePiece(to)
		origPT := placed.Type()
		if m.IsPromotion() {
			origPT = origPT.Demote()
		}
		p.setPiece(from, NewPiece(origPT, us))

		if undo.Captured != NoPiece {
			capPT := undo.Captured.Type()
			p.Hands[us] = p.Hands[us].Remove(capPT.Demote())
			p.setPiece(to, undo.Captured)
		}
	}

	p.BoardHash = undo.BoardHash
	p.HandHash = undo.HandHash
	p.Checkers = undo.Checkers
	p.Blockers[Black] = undo.BlockersBlack
	p.Blockers[White] = undo.BlockersWhite
	p.Pinners[Black] = undo.PinnersBlack
	p.Pinners[White] = undo.PinnersWhite
}

// NullMoveUndo captures the minimal state a null move touches.
type NullMoveUndo struct {
	BoardHash uint64
	Checkers  Bitboard
}

// MakeNullMove flips side to move without moving a piece, XORing only
// the side value per spec.md §4.D.
func (p *Position) MakeNullMove() NullMoveUndo {
	u := NullMoveUndo{BoardHash: p.BoardHash, Checkers: p.Checkers}
	p.SideToMove = p.SideToMove.Other()
	p.BoardHash ^= ZobristSide()
	p.updateCheckersAndPins()
	p.Ply++
	return u
}

// UnmakeNullMove reverses MakeNullMove.
func (p *Position) UnmakeNullMove(u NullMoveUndo) {
	p.SideToMove = p.SideToMove.Other()
	p.BoardHash = u.BoardHash
	p.Checkers = u.Checkers
	p.Ply--
}

// IsRepetition returns how many times the current key appears in the
// recorded history (a position reached by DoMove counts itself once).
// Only exact repeats of Key() count, matching shogi's sennichite rule
// rather than chess's fifty-move/threefold convention.
func (p *Position) IsRepetition() (count int) {
	key := p.Key()
	for _, k := range p.keyHistory {
		if k == key {
			count++
		}
	}
	return count
}

// HasNonPawnMaterial reports whether colour c holds any piece besides
// pawns and the king, used by null-move pruning to avoid zugzwang-prone
// positions.
func (p *Position) HasNonPawnMaterial(c Color) bool {
	for pt := Lance; pt < PieceTypeNB; pt++ {
		if pt == King {
			continue
		}
		if p.Pieces[c][pt].More() {
			return true
		}
	}
	return false
}

// Material returns simple material count for side c using PieceValue,
// including hand pieces at their unpromoted value.
func (p *Position) Material(c Color) int {
	total := 0
	for pt := Pawn; pt < PieceTypeNB; pt++ {
		total += PieceValue[pt] * p.Pieces[c][pt].PopCount()
	}
	for _, pt := range DropPieceTypes {
		total += PieceValue[pt] * p.Hands[c].Count(pt)
	}
	return total
}
