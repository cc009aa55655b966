// Package tt implements the search's transposition table: a sharded,
// bucketed, lock-free table keyed by board hash, per spec.md §4.G.
// Grounded on the teacher's internal/engine/transposition.go (entry
// shape, age-aware replacement, mate-score distance adjustment),
// generalized from one flat array to shards of fixed-size buckets and
// from plain struct fields to atomics so concurrent search workers can
// probe and store without a mutex.
package tt

import (
	"sync/atomic"

	"github.com/ymatsux/goshogi/internal/shogi"
)

// Bound indicates which side of the true score an Entry's Score bounds.
type Bound uint8

const (
	BoundNone Bound = iota
	BoundExact
	BoundLower
	BoundUpper
)

const entriesPerBucket = 4

// Entry is one transposition table slot. It is read and written as two
// packed 64-bit words via atomic loads/stores rather than guarded by a
// lock: concurrent workers may race on a slot, and per spec.md §4.G a
// torn or overwritten entry is simply treated as a miss or a stale hit,
// never a correctness hazard (the caller always re-validates depth/bound
// before trusting a probe).
type Entry struct {
	word0 atomic.Uint64 // keyTag(32) | move(16) | depth(8) | bound(2)<<8|pv(1)<<10|gen(5)<<11 packed into high bits
	word1 atomic.Uint64 // score(16) | staticEval(16)
}

type entryView struct {
	keyTag     uint32
	move       shogi.Move
	depth      int
	bound      Bound
	pv         bool
	generation uint8
	score      int16
	staticEval int16
}

func packWord0(keyTag uint32, move shogi.Move, depth int, bound Bound, pv bool, gen uint8) uint64 {
	d := uint64(depth) & 0xFF
	b := uint64(bound) & 0x3
	p := uint64(0)
	if pv {
		p = 1
	}
	g := uint64(gen) & 0x1F
	return uint64(keyTag) | uint64(move)<<32 | d<<48 | b<<56 | p<<58 | g<<59
}

func unpackWord0(w uint64) (keyTag uint32, move shogi.Move, depth int, bound Bound, pv bool, gen uint8) {
	keyTag = uint32(w & 0xFFFFFFFF)
	move = shogi.Move((w >> 32) & 0xFFFF)
	depth = int((w >> 48) & 0xFF)
	bound = Bound((w >> 56) & 0x3)
	pv = (w>>58)&0x1 != 0
	gen = uint8((w >> 59) & 0x1F)
	return
}

func packWord1(score, staticEval int16) uint64 {
	return uint64(uint16(score)) | uint64(uint16(staticEval))<<16
}

func unpackWord1(w uint64) (score, staticEval int16) {
	score = int16(uint16(w))
	staticEval = int16(uint16(w >> 16))
	return
}

func (e *Entry) load() entryView {
	w0 := e.word0.Load()
	w1 := e.word1.Load()
	keyTag, move, depth, bound, pv, gen := unpackWord0(w0)
	score, staticEval := unpackWord1(w1)
	return entryView{keyTag, move, depth, bound, pv, gen, score, staticEval}
}

func (e *Entry) store(v entryView) {
	e.word0.Store(packWord0(v.keyTag, v.move, v.depth, v.bound, v.pv, v.generation))
	e.word1.Store(packWord1(v.score, v.staticEval))
}

type bucket struct {
	entries [entriesPerBucket]Entry
}

// shard is one independent sub-table; splitting the full table into
// shards keeps unrelated probes/stores from contending on the same
// cache lines under multi-threaded search.
type shard struct {
	buckets []bucket
	mask    uint64
}

// Table is the full sharded transposition table.
type Table struct {
	shards     []shard
	shardMask  uint64
	generation atomic.Uint32

	hits   atomic.Uint64
	probes atomic.Uint64
}

const maxShards = 16

// New returns a table sized to approximately sizeMB megabytes, split
// into up to maxShards shards of at least 1 MiB each.
func New(sizeMB int) *Table {
	if sizeMB < 1 {
		sizeMB = 1
	}
	totalBytes := uint64(sizeMB) * 1024 * 1024
	bucketBytes := uint64(entriesPerBucket) * 16

	numShards := maxShards
	for numShards > 1 && totalBytes/uint64(numShards) < 1024*1024 {
		numShards /= 2
	}

	bytesPerShard := totalBytes / uint64(numShards)
	bucketsPerShard := roundDownPow2(bytesPerShard / bucketBytes)
	if bucketsPerShard == 0 {
		bucketsPerShard = 1
	}

	t := &Table{
		shards:    make([]shard, numShards),
		shardMask: uint64(numShards) - 1,
	}
	for i := range t.shards {
		t.shards[i] = shard{
			buckets: make([]bucket, bucketsPerShard),
			mask:    bucketsPerShard - 1,
		}
	}
	return t
}

func roundDownPow2(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

func (t *Table) shardFor(key uint64) *shard {
	shardIdx := key & t.shardMask
	return &t.shards[shardIdx]
}

func (s *shard) bucketFor(key uint64) *bucket {
	bucketIdx := (key >> 8) & s.mask
	return &s.buckets[bucketIdx]
}

func keyTagOf(key uint64) uint32 { return uint32(key >> 32) }

// Probe looks up key and returns the stored entry and whether it was
// found, scanning every slot in the selected bucket.
func (t *Table) Probe(key uint64) (move shogi.Move, score, staticEval int, depth int, bound Bound, pv bool, ok bool) {
	t.probes.Add(1)
	s := t.shardFor(key)
	b := s.bucketFor(key)
	tag := keyTagOf(key)

	for i := range b.entries {
		v := b.entries[i].load()
		if v.bound != BoundNone && v.keyTag == tag {
			t.hits.Add(1)
			return v.move, int(v.score), int(v.staticEval), v.depth, v.bound, v.pv, true
		}
	}
	return shogi.NoMove, 0, 0, 0, BoundNone, false, false
}

// Store records a search result for key. Within a bucket: an exact key
// match is overwritten; otherwise an empty slot is filled; otherwise the
// slot with lowest (generation, depth, exactness) priority is replaced,
// per spec.md §4.G.
func (t *Table) Store(key uint64, move shogi.Move, score, staticEval int, depth int, bound Bound, pv bool) {
	s := t.shardFor(key)
	b := s.bucketFor(key)
	tag := keyTagOf(key)
	gen := uint8(t.generation.Load())

	v := entryView{
		keyTag: tag, move: move, depth: depth, bound: bound, pv: pv,
		generation: gen, score: int16(score), staticEval: int16(staticEval),
	}

	victim := -1
	var victimPriority int64 = 1<<62 - 1
	for i := range b.entries {
		cur := b.entries[i].load()
		if cur.bound == BoundNone {
			b.entries[i].store(v)
			return
		}
		if cur.keyTag == tag {
			b.entries[i].store(v)
			return
		}
		p := priority(cur, gen)
		if p < victimPriority {
			victimPriority = p
			victim = i
		}
	}
	if victim >= 0 {
		b.entries[victim].store(v)
	}
}

// priority ranks an occupied slot for replacement: older generations,
// shallower depths, and non-exact bounds are replaced first.
func priority(v entryView, currentGen uint8) int64 {
	genDelta := int64(currentGen) - int64(v.generation)
	if genDelta < 0 {
		genDelta += 32
	}
	p := int64(v.depth)*4 - genDelta*8
	if v.bound == BoundExact {
		p += 2
	}
	return p
}

// NewSearch advances the generation counter so stale entries from
// earlier searches lose replacement priority.
func (t *Table) NewSearch() { t.generation.Add(1) }

// Clear zeroes every bucket.
func (t *Table) Clear() {
	for si := range t.shards {
		for bi := range t.shards[si].buckets {
			b := &t.shards[si].buckets[bi]
			for i := range b.entries {
				b.entries[i].word0.Store(0)
				b.entries[i].word1.Store(0)
			}
		}
	}
	t.generation.Store(0)
	t.hits.Store(0)
	t.probes.Store(0)
}

// HashFull returns the permille of the table in use, sampled from the
// first shard's first 250 buckets (1000 slots).
func (t *Table) HashFull() int {
	if len(t.shards) == 0 {
		return 0
	}
	s := &t.shards[0]
	sample := 250 // 250 buckets * 4 entries = 1000 slots sampled
	if sample > len(s.buckets) {
		sample = len(s.buckets)
	}
	if sample == 0 {
		return 0
	}
	gen := uint8(t.generation.Load())
	used := 0
	total := 0
	for bi := 0; bi < sample; bi++ {
		for i := range s.buckets[bi].entries {
			total++
			v := s.buckets[bi].entries[i].load()
			if v.bound != BoundNone && v.generation == gen {
				used++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return used * 1000 / total
}

// HitRate returns the probe hit rate as a percentage.
func (t *Table) HitRate() float64 {
	probes := t.probes.Load()
	if probes == 0 {
		return 0
	}
	return float64(t.hits.Load()) / float64(probes) * 100
}

// Mate score constants, shared with the search package's scoring scale.
const (
	MateScore = 30000
	MaxPly    = 256
)

// AdjustScoreFromTT converts a mate-distance-from-root score stored in
// the table back into a mate-distance-from-the-current-ply score.
func AdjustScoreFromTT(score, ply int) int {
	if score > MateScore-MaxPly {
		return score - ply
	}
	if score < -MateScore+MaxPly {
		return score + ply
	}
	return score
}

// AdjustScoreToTT converts a mate-distance-from-the-current-ply score
// into the distance-from-root form the table stores.
func AdjustScoreToTT(score, ply int) int {
	if score > MateScore-MaxPly {
		return score + ply
	}
	if score < -MateScore+MaxPly {
		return score - ply
	}
	return score
}
