// Package nnue implements NNUE (Efficiently Updatable Neural Network)
// evaluation for shogi positions: two selectable feature sets (HalfKP
// and HalfKA_hm, chosen by the loaded weight file's header) over both
// board pieces and hand counts, a quantized affine/clipped-ReLU
// pipeline, and incremental per-move accumulator updates driven by
// shogi.DirtyPiece.
package nnue

import "github.com/ymatsux/goshogi/internal/shogi"

// Network architecture constants.
const (
	NumKingSquares = shogi.NumSquares // 81

	// NumPieceKinds counts non-king piece types, doubled for color:
	// Pawn, Lance, Knight, Silver, Gold, Bishop, Rook and their six
	// promoted forms (ProPawn/ProLance/ProKnight/ProSilver/Horse/Dragon).
	NumPieceKinds = 26

	// HalfKPBoardSize is the board-piece portion of the feature space:
	// king square * piece kind * piece square.
	HalfKPBoardSize = NumKingSquares * NumPieceKinds * shogi.NumSquares

	// handFeatureKinds is the number of distinct (colour, piece, count)
	// hand-feature slots: one per unit held, up to each piece's cap.
	handFeatureKinds = 2 * (18 + 4 + 4 + 4 + 4 + 2 + 2) // 76

	// HalfKPHandSize is the hand-piece portion of the feature space,
	// still king-relative like the board portion.
	HalfKPHandSize = NumKingSquares * handFeatureKinds

	// HalfKPSize is the full per-perspective feature dimension.
	HalfKPSize = HalfKPBoardSize + HalfKPHandSize

	// Network dimensions.
	L1Size     = 256 // first hidden layer, per perspective
	L2Size     = 32
	OutputSize = 1

	L1QuantShift = 6
	L2QuantShift = 6
	OutputScale  = 600
)

// ClampedReLU clamps x to [0, 127] for quantized inference.
func ClampedReLU(x int16) int8 {
	if x < 0 {
		return 0
	}
	if x > 127 {
		return 127
	}
	return int8(x)
}

// Evaluator ties a loaded Network to its per-search accumulator stack.
type Evaluator struct {
	net   *Network
	stack *AccumulatorStack
}

// NewEvaluator loads weights from weightsFile, or falls back to
// deterministic pseudo-random weights (for development builds without a
// trained network) when weightsFile is empty.
func NewEvaluator(weightsFile string) (*Evaluator, error) {
	net := NewNetwork()
	if weightsFile != "" {
		if err := net.LoadWeights(weightsFile); err != nil {
			return nil, err
		}
	} else {
		net.InitRandom(12345)
	}
	return &Evaluator{net: net, stack: NewAccumulatorStack()}, nil
}

// NewEvaluatorSharing builds another Evaluator over the same, already
// loaded Network -- its own private accumulator stack but read-only
// shared weights -- so a Lazy-SMP search thread pool doesn't reload or
// duplicate the weight tensors per worker.
func NewEvaluatorSharing(net *Network) *Evaluator {
	return &Evaluator{net: net, stack: NewAccumulatorStack()}
}

// Network returns the evaluator's underlying weights, for handing to
// sibling workers via NewEvaluatorSharing.
func (e *Evaluator) Network() *Network { return e.net }

// Evaluate returns the position's score in centipawns from the side to
// move's perspective.
func (e *Evaluator) Evaluate(pos *shogi.Position) int {
	acc := e.stack.Current()
	if !acc.Computed {
		acc.ComputeFull(pos, e.net)
	}
	return e.net.Forward(acc, pos.SideToMove)
}

// Push saves accumulator state; call before DoMove.
func (e *Evaluator) Push() { e.stack.Push() }

// Pop restores accumulator state; call after UndoMove.
func (e *Evaluator) Pop() { e.stack.Pop() }

// Refresh forces a full recomputation of the current accumulator.
func (e *Evaluator) Refresh(pos *shogi.Position) { e.stack.Current().ComputeFull(pos, e.net) }

// Update incrementally applies a move's dirty-piece list to the current
// accumulator; call after DoMove.
func (e *Evaluator) Update(pos *shogi.Position, dirty shogi.DirtyPiece) {
	e.stack.Current().UpdateIncremental(pos, dirty, e.net)
}

// Reset clears the accumulator stack for a new game.
func (e *Evaluator) Reset() { e.stack.Reset() }
