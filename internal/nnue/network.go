package nnue

import "github.com/ymatsux/goshogi/internal/shogi"

// Network holds the quantized NNUE weights: feature transformer (sized
// per FeatureSet) -> L1 (per perspective) -> L2 -> output, per spec.md
// §4.F's four-stage pipeline. L1Weights is a slice rather than a fixed
// array since HalfKP and HalfKA_hm have different feature dimensions and
// the feature set isn't known until a weight file's header is read.
type Network struct {
	FeatureSet FeatureSet

	L1Weights [][L1Size]int16
	L1Bias    [L1Size]int16

	L2Weights [L1Size * 2][L2Size]int8
	L2Bias    [L2Size]int32

	OutputWeights [L2Size]int8
	OutputBias    int32
}

// NewNetwork returns a zero-weight HalfKP network; call LoadWeights or
// InitRandom before using it for evaluation.
func NewNetwork() *Network {
	return &Network{FeatureSet: HalfKP, L1Weights: make([][L1Size]int16, HalfKPSize)}
}

// NewNetworkWithFeatureSet returns a zero-weight network sized for fs.
func NewNetworkWithFeatureSet(fs FeatureSet) *Network {
	return &Network{FeatureSet: fs, L1Weights: make([][L1Size]int16, featureSetSize(fs))}
}

// featureSetSize returns the per-perspective input dimension for fs.
func featureSetSize(fs FeatureSet) int {
	if fs == HalfKAhm {
		return HalfKAHMSize
	}
	return HalfKPSize
}

// Size returns n's per-perspective feature dimension.
func (n *Network) Size() int { return len(n.L1Weights) }

// Forward runs the quantized pipeline and returns a centipawn score from
// sideToMove's perspective.
func (n *Network) Forward(acc *Accumulator, sideToMove shogi.Color) int {
	var stm, nstm *[L1Size]int16
	if sideToMove == shogi.Black {
		stm, nstm = &acc.Black, &acc.White
	} else {
		stm, nstm = &acc.White, &acc.Black
	}

	var l1Out [L1Size * 2]int8
	for i := 0; i < L1Size; i++ {
		l1Out[i] = ClampedReLU(stm[i])
		l1Out[L1Size+i] = ClampedReLU(nstm[i])
	}

	var l2Out [L2Size]int8
	for i := 0; i < L2Size; i++ {
		sum := n.L2Bias[i]
		for j := 0; j < L1Size*2; j++ {
			sum += int32(l1Out[j]) * int32(n.L2Weights[j][i])
		}
		l2Out[i] = ClampedReLU(int16(sum >> L1QuantShift))
	}

	output := n.OutputBias
	for i := 0; i < L2Size; i++ {
		output += int32(l2Out[i]) * int32(n.OutputWeights[i])
	}
	return int(output * OutputScale >> (L2QuantShift + 8))
}

// InitRandom fills the network with small deterministic pseudo-random
// weights, for development and test builds without a trained network
// file (mirrors the teacher's Network.InitRandom).
func (n *Network) InitRandom(seed int64) {
	state := uint64(seed)
	next := func() int16 {
		state = state*6364136223846793005 + 1442695040888963407
		return int16((state>>48)&0xFF) - 128
	}
	clamp8 := func(v int16) int8 {
		if v > 127 {
			return 127
		}
		if v < -128 {
			return -128
		}
		return int8(v)
	}

	if n.L1Weights == nil {
		n.L1Weights = make([][L1Size]int16, featureSetSize(n.FeatureSet))
	}
	for i := range n.L1Weights {
		for j := 0; j < L1Size; j++ {
			n.L1Weights[i][j] = next() >> 5
		}
	}
	for i := 0; i < L1Size; i++ {
		n.L1Bias[i] = next() >> 3
	}
	for i := 0; i < L1Size*2; i++ {
		for j := 0; j < L2Size; j++ {
			n.L2Weights[i][j] = clamp8(next() >> 6)
		}
	}
	for i := 0; i < L2Size; i++ {
		n.L2Bias[i] = int32(next())
	}
	for i := 0; i < L2Size; i++ {
		n.OutputWeights[i] = clamp8(next() >> 6)
	}
	n.OutputBias = int32(next()) * 100
}
