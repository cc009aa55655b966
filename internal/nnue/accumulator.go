package nnue

import "github.com/ymatsux/goshogi/internal/shogi"

// Accumulator holds the first hidden layer's pre-activation values for
// both perspectives, quantized as int16.
type Accumulator struct {
	Black    [L1Size]int16
	White    [L1Size]int16
	Computed bool
}

// AccumulatorStack keeps one Accumulator per search ply so Push/Pop can
// mirror DoMove/UndoMove without recomputing from scratch on unmake.
type AccumulatorStack struct {
	stack [128]Accumulator
	top   int
}

// NewAccumulatorStack returns an empty stack.
func NewAccumulatorStack() *AccumulatorStack { return &AccumulatorStack{} }

// Push copies the current accumulator onto a new ply slot, ready for
// UpdateIncremental to mutate in place.
func (s *AccumulatorStack) Push() {
	if s.top < len(s.stack)-1 {
		s.stack[s.top+1] = s.stack[s.top]
		s.top++
	}
}

// Pop discards the top ply's accumulator, restoring the previous one.
func (s *AccumulatorStack) Pop() {
	if s.top > 0 {
		s.top--
	}
}

// Current returns the accumulator for the present ply.
func (s *AccumulatorStack) Current() *Accumulator { return &s.stack[s.top] }

// Reset clears the stack for a new game.
func (s *AccumulatorStack) Reset() {
	s.top = 0
	s.stack[0] = Accumulator{}
}

// ComputeFull recomputes acc from scratch via ActiveFeatures.
func (acc *Accumulator) ComputeFull(pos *shogi.Position, net *Network) {
	black, white := ActiveFeatures(pos, net.FeatureSet)

	copy(acc.Black[:], net.L1Bias[:])
	copy(acc.White[:], net.L1Bias[:])

	for _, idx := range black {
		addFeature(&acc.Black, net, idx)
	}
	for _, idx := range white {
		addFeature(&acc.White, net, idx)
	}
	acc.Computed = true
}

// UpdateIncremental applies dirty, the delta from the move just made on
// pos, to acc. King moves force a full recomputation since every board
// feature is king-relative.
func (acc *Accumulator) UpdateIncremental(pos *shogi.Position, dirty shogi.DirtyPiece, net *Network) {
	if !acc.Computed {
		acc.ComputeFull(pos, net)
		return
	}
	if dirty.KingMoved[shogi.Black] || dirty.KingMoved[shogi.White] {
		acc.ComputeFull(pos, net)
		return
	}

	bKing := pos.KingSquare[shogi.Black]
	wKing := pos.KingSquare[shogi.White]

	slotIndex := func(perspective shogi.Color, kingSq shogi.Square, e shogi.ExtBonaPiece) int {
		if !e.Valid {
			return -1
		}
		if net.FeatureSet == HalfKAhm {
			if e.InHand {
				return HalfKAHMHandIndex(perspective, kingSq, e.PieceType, e.Color, e.HandCount)
			}
			return HalfKAHMBoardIndex(perspective, kingSq, e.PieceType, e.Color, e.Square)
		}
		if e.InHand {
			return HalfKPHandIndex(perspective, kingSq, e.PieceType, e.Color, e.HandCount)
		}
		return HalfKPBoardIndex(perspective, kingSq, e.PieceType, e.Color, e.Square)
	}

	for i := 0; i < dirty.NumChanged; i++ {
		if idx := slotIndex(shogi.Black, bKing, dirty.Old[i]); idx >= 0 {
			subFeature(&acc.Black, net, idx)
		}
		if idx := slotIndex(shogi.White, wKing, dirty.Old[i]); idx >= 0 {
			subFeature(&acc.White, net, idx)
		}
		if idx := slotIndex(shogi.Black, bKing, dirty.New[i]); idx >= 0 {
			addFeature(&acc.Black, net, idx)
		}
		if idx := slotIndex(shogi.White, wKing, dirty.New[i]); idx >= 0 {
			addFeature(&acc.White, net, idx)
		}
	}
}

func addFeature(acc *[L1Size]int16, net *Network, idx int) {
	if idx < 0 || idx >= net.Size() {
		return
	}
	for i := 0; i < L1Size; i++ {
		acc[i] += net.L1Weights[idx][i]
	}
}

func subFeature(acc *[L1Size]int16, net *Network, idx int) {
	if idx < 0 || idx >= net.Size() {
		return
	}
	for i := 0; i < L1Size; i++ {
		acc[i] -= net.L1Weights[idx][i]
	}
}
