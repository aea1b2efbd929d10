package mactable

import (
	"github.com/sarchlab/ethsim/eth"
)

// A ReplacementPolicy decides which slot should be evicted when a new
// address must be learned into a full table. The selection must be
// deterministic given the table's history, so that test oracles can replay
// packet sequences and assert on exact eviction order.
type ReplacementPolicy interface {
	SelectVictim(slots []Entry, addr eth.MacAddr) int
}

// WrapPolicy is a circular, usage-independent policy: a pointer advances by
// one slot per eviction, unconditionally displacing whatever occupies that
// slot. Combined with lowest-free-slot placement, a full table evicts
// entries in their original insertion order.
type WrapPolicy struct {
	nextVictim int
}

// NewWrapPolicy returns a newly constructed wrap policy.
func NewWrapPolicy() *WrapPolicy {
	return &WrapPolicy{}
}

// SelectVictim returns the slot under the pointer and advances the pointer.
func (p *WrapPolicy) SelectVictim(slots []Entry, _ eth.MacAddr) int {
	victim := p.nextVictim
	p.nextVictim = (p.nextVictim + 1) % len(slots)

	return victim
}

// OldestPolicy selects the victim with the smallest age marker among the
// candidates in a hashed bucket, approximating LRU in a way that hardware
// can realize with a handful of comparators. With a single bucket it
// degenerates to a global oldest-entry search.
type OldestPolicy struct {
	numBuckets int
}

// NewOldestPolicy returns a policy with the given number of hash buckets.
func NewOldestPolicy(numBuckets int) *OldestPolicy {
	if numBuckets < 1 {
		panic("bucket count must be at least 1")
	}

	return &OldestPolicy{numBuckets: numBuckets}
}

// SelectVictim picks the candidate slot with the oldest age marker. The
// candidate set is the hashed bucket of the address: every slot whose index
// is congruent to the address hash modulo the bucket count.
func (p *OldestPolicy) SelectVictim(slots []Entry, addr eth.MacAddr) int {
	bucket := p.bucketOf(addr)

	victim := -1
	for i := bucket; i < len(slots); i += p.numBuckets {
		if victim < 0 || slots[i].LearnSeq < slots[victim].LearnSeq {
			victim = i
		}
	}

	if victim < 0 {
		// Bucket beyond the slot range; fall back to slot 0.
		victim = 0
	}

	return victim
}

func (p *OldestPolicy) bucketOf(addr eth.MacAddr) int {
	// Fold the 48-bit address onto the bucket range.
	h := uint64(addr)
	h ^= h >> 24
	h ^= h >> 12

	return int(h % uint64(p.numBuckets))
}
