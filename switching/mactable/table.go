// Package mactable implements the MAC-address learning table of the switch
// core: a fixed-capacity associative store that maps Ethernet addresses to
// the port on which they were last observed.
package mactable

import (
	"fmt"

	"github.com/sarchlab/ethsim/eth"
	"github.com/sarchlab/ethsim/sim"
)

// An Entry is one slot of the MAC-address table.
type Entry struct {
	Addr  eth.MacAddr
	Port  int
	Valid bool

	// LearnSeq is a monotonic sequence number, bumped every time the entry
	// is learned or refreshed. Replacement policies use it as the age marker.
	LearnSeq uint64

	// LastSeen is the time of the last learn or refresh. The scrubber uses
	// it to age entries out.
	LastSeen sim.VTimeInSec
}

// Counters hold the diagnostic counters of the table. All error conditions
// are sticky counters; none of them stop the table from making progress.
type Counters struct {
	Learns           uint64
	Refreshes        uint64
	Evictions        uint64
	ScrubEvictions   uint64
	PortChanges      uint64
	MobilityWarnings uint64
	InvalidLearns    uint64
	IntegrityErrors  uint64
}

// A LearnResult reports what a Learn call did to the table.
type LearnResult struct {
	// Ignored is set when the address must not be learned (broadcast,
	// multicast, or the all-zero address).
	Ignored bool

	// Slot is the slot the address occupies after the call.
	Slot int

	// New is set when the address was not previously in the table.
	New bool

	// PortChanged is set when the address was relearned on a different port.
	// PrevPort holds the port the address was previously learned on.
	PortChanged bool
	PrevPort    int

	// MobilityWarning is set when the port change happened within the
	// configured mobility window, which may indicate a network loop.
	MobilityWarning bool

	// Evicted holds the entry that was displaced to make room, if any.
	Evicted  Entry
	DidEvict bool
}

// Table is a fixed-capacity MAC-address table. All mutation paths (learn,
// manual write, scrub, clear) go through the owning component, so the table
// itself performs no locking.
type Table struct {
	slots  []Entry
	policy ReplacementPolicy

	staleness      sim.VTimeInSec
	mobilityWindow sim.VTimeInSec

	nextLearnSeq uint64
	scrubCursor  int

	counters Counters
}

// NewTable creates a table with the given number of slots. The policy picks
// the victim slot when a new address must be learned into a full table.
func NewTable(capacity int, policy ReplacementPolicy) *Table {
	if capacity <= 0 {
		panic("mac table capacity must be positive")
	}

	return &Table{
		slots:  make([]Entry, capacity),
		policy: policy,
	}
}

// SetStaleness sets the age beyond which the scrubber invalidates an entry.
// Zero disables aging entirely, which keeps eviction order exactly
// reproducible under the wrap policy.
func (t *Table) SetStaleness(d sim.VTimeInSec) {
	t.staleness = d
}

// Staleness returns the configured staleness threshold.
func (t *Table) Staleness() sim.VTimeInSec {
	return t.staleness
}

// SetMobilityWindow sets the interval within which a relearn on a different
// port is flagged as a mobility warning.
func (t *Table) SetMobilityWindow(d sim.VTimeInSec) {
	t.mobilityWindow = d
}

// Capacity returns the number of slots in the table.
func (t *Table) Capacity() int {
	return len(t.slots)
}

// NumValid returns the number of valid entries.
func (t *Table) NumValid() int {
	n := 0
	for i := range t.slots {
		if t.slots[i].Valid {
			n++
		}
	}

	return n
}

// Counters returns a snapshot of the diagnostic counters.
func (t *Table) Counters() Counters {
	return t.counters
}

// Find searches all valid slots for an exact address match. When several
// slots match, the lowest slot index wins and the integrity-error counter is
// incremented; the duplicate never escapes the table.
func (t *Table) Find(addr eth.MacAddr) (Entry, int, bool) {
	first := -1

	for i := range t.slots {
		if !t.slots[i].Valid || t.slots[i].Addr != addr {
			continue
		}

		if first < 0 {
			first = i
		} else {
			t.counters.IntegrityErrors++
		}
	}

	if first < 0 {
		return Entry{}, -1, false
	}

	return t.slots[first], first, true
}

// Learn records that addr was observed as a source address on the given
// port. An existing entry is refreshed in place; a new address takes the
// lowest free slot, or displaces the policy's victim when the table is full.
func (t *Table) Learn(
	addr eth.MacAddr,
	port int,
	now sim.VTimeInSec,
) LearnResult {
	t.portMustBeValid(port)

	if !addr.IsUnicast() {
		t.counters.InvalidLearns++
		return LearnResult{Ignored: true}
	}

	if prev, slot, found := t.Find(addr); found {
		return t.refresh(prev, slot, port, now)
	}

	return t.insert(addr, port, now)
}

func (t *Table) refresh(
	prev Entry,
	slot, port int,
	now sim.VTimeInSec,
) LearnResult {
	result := LearnResult{Slot: slot}

	if prev.Port != port {
		result.PortChanged = true
		result.PrevPort = prev.Port
		t.counters.PortChanges++

		if t.mobilityWindow > 0 && now-prev.LastSeen < t.mobilityWindow {
			result.MobilityWarning = true
			t.counters.MobilityWarnings++
		}
	}

	t.counters.Refreshes++
	t.writeEntry(slot, prev.Addr, port, now)

	return result
}

func (t *Table) insert(
	addr eth.MacAddr,
	port int,
	now sim.VTimeInSec,
) LearnResult {
	result := LearnResult{New: true}

	slot := t.lowestFreeSlot()
	if slot < 0 {
		slot = t.selectVictim(addr)
		result.Evicted = t.slots[slot]
		result.DidEvict = true
		t.counters.Evictions++
	}

	result.Slot = slot
	t.counters.Learns++
	t.writeEntry(slot, addr, port, now)

	return result
}

func (t *Table) lowestFreeSlot() int {
	for i := range t.slots {
		if !t.slots[i].Valid {
			return i
		}
	}

	return -1
}

func (t *Table) selectVictim(addr eth.MacAddr) int {
	if t.policy == nil {
		panic("mac table full and no replacement policy configured")
	}

	slot := t.policy.SelectVictim(t.slots, addr)
	if slot < 0 || slot >= len(t.slots) {
		panic(fmt.Sprintf("replacement policy returned slot %d", slot))
	}

	return slot
}

func (t *Table) writeEntry(
	slot int,
	addr eth.MacAddr,
	port int,
	now sim.VTimeInSec,
) {
	t.nextLearnSeq++
	t.slots[slot] = Entry{
		Addr:     addr,
		Port:     port,
		Valid:    true,
		LearnSeq: t.nextLearnSeq,
		LastSeen: now,
	}
}

// WriteSlot manually inserts an address, bypassing normal learning. It
// follows the same placement rules as Learn. The all-zero and broadcast
// addresses are rejected.
func (t *Table) WriteSlot(
	addr eth.MacAddr,
	port int,
	now sim.VTimeInSec,
) (int, bool) {
	t.portMustBeValid(port)

	if addr == eth.AddrNone || addr == eth.Broadcast {
		return -1, false
	}

	if prev, slot, found := t.Find(addr); found {
		t.writeEntry(slot, prev.Addr, port, now)
		return slot, true
	}

	result := t.insert(addr, port, now)

	return result.Slot, true
}

// ReadSlot returns the entry at the given slot index. The boolean reports
// whether the index is in range; check Entry.Valid to tell whether the slot
// holds a live address.
func (t *Table) ReadSlot(slot int) (Entry, bool) {
	if slot < 0 || slot >= len(t.slots) {
		return Entry{}, false
	}

	return t.slots[slot], true
}

// Invalidate marks the given slot as empty.
func (t *Table) Invalidate(slot int) {
	if slot < 0 || slot >= len(t.slots) {
		return
	}

	t.slots[slot] = Entry{}
}

// Clear invalidates every slot. Callers serialize Clear with lookups, so no
// lookup can ever observe a half-cleared table.
func (t *Table) Clear() {
	for i := range t.slots {
		t.slots[i] = Entry{}
	}
}

// ScrubNext inspects a single slot, advancing a round-robin cursor, and
// invalidates the slot if its entry is stale. Entries refreshed in the
// current tick are never scrubbed.
func (t *Table) ScrubNext(now sim.VTimeInSec) (Entry, bool) {
	slot := t.scrubCursor
	t.scrubCursor = (t.scrubCursor + 1) % len(t.slots)

	if t.staleness == 0 {
		return Entry{}, false
	}

	e := t.slots[slot]
	if !e.Valid || e.LastSeen == now {
		return Entry{}, false
	}

	if now-e.LastSeen <= t.staleness {
		return Entry{}, false
	}

	t.slots[slot] = Entry{}
	t.counters.ScrubEvictions++

	return e, true
}

func (t *Table) portMustBeValid(port int) {
	if port < 0 || port >= eth.MaxPorts {
		panic(fmt.Sprintf("port index %d out of range", port))
	}
}
