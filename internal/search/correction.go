package search

import "github.com/ymatsux/goshogi/internal/shogi"

const correctionTableSize = 1 << 16

// CorrectionHistory tracks, per truncated position key, a running
// adjustment between NNUE static eval and the score the search actually
// converges on, grounded on internal/engine/correction.go's gravity
// update. It narrows systematic NNUE bias in positions the network
// evaluates poorly (e.g. unusual hand compositions).
type CorrectionHistory struct {
	table [correctionTableSize]int16
}

// NewCorrectionHistory returns an empty table.
func NewCorrectionHistory() *CorrectionHistory { return &CorrectionHistory{} }

func correctionIndex(pos *shogi.Position) uint64 {
	return pos.Key() & (correctionTableSize - 1)
}

// Get returns the current correction for pos's position, in centipawns.
func (c *CorrectionHistory) Get(pos *shogi.Position) int {
	return int(c.table[correctionIndex(pos)])
}

// Update nudges the correction entry toward the gap between the search's
// converged score and the raw static eval, scaled by depth and clamped to
// avoid chasing single-node noise.
func (c *CorrectionHistory) Update(pos *shogi.Position, searchScore, staticEval, depth int) {
	diff := searchScore - staticEval
	bonus := diff * depth / 8
	if bonus > 256 {
		bonus = 256
	} else if bonus < -256 {
		bonus = -256
	}

	idx := correctionIndex(pos)
	old := int(c.table[idx])
	newVal := old + (bonus-old)/16
	if newVal > 16000 {
		newVal = 16000
	} else if newVal < -16000 {
		newVal = -16000
	}
	c.table[idx] = int16(newVal)
}

// Clear zeroes every entry, for usinewgame.
func (c *CorrectionHistory) Clear() {
	for i := range c.table {
		c.table[i] = 0
	}
}

// Age halves every entry, used between games when a full clear would
// discard useful long-run bias estimates.
func (c *CorrectionHistory) Age() {
	for i := range c.table {
		c.table[i] /= 2
	}
}
