package lookup

import (
	"github.com/sarchlab/ethsim/sim"
)

// A Scrubber ages stale entries out of a lookup engine's table. It is a
// secondary ticking component: it inspects at most one slot per tick, and
// its events always run after same-tick frame processing.
type Scrubber struct {
	*sim.TickingComponent

	lookup *Comp
}

// Tick inspects one table slot. The scrubber keeps ticking while valid
// entries remain and goes dormant once the table is empty; learns wake it
// back up.
func (s *Scrubber) Tick() bool {
	table := s.lookup.Table()
	if table.Staleness() == 0 {
		return false
	}

	now := s.CurrentTime()

	evicted, ok := table.ScrubNext(now)
	if ok {
		s.lookup.recordScrub(evicted, now)
	}

	return table.NumValid() > 0
}

// SetStaleness sets the age threshold on the shared table and wakes the
// scrubber up if aging was disabled.
func (s *Scrubber) SetStaleness(d sim.VTimeInSec) {
	s.lookup.Table().SetStaleness(d)

	if d > 0 {
		s.TickLater()
	}
}

// ScrubberBuilder can build scrubbers.
type ScrubberBuilder struct {
	engine sim.Engine
	freq   sim.Freq
	lookup *Comp
}

// MakeScrubberBuilder creates a builder with default parameters. The default
// frequency models the divided clock the scrub walk runs on.
func MakeScrubberBuilder() ScrubberBuilder {
	return ScrubberBuilder{
		freq: 1 * sim.MHz,
	}
}

// WithEngine sets the event engine the scrubber runs on.
func (b ScrubberBuilder) WithEngine(engine sim.Engine) ScrubberBuilder {
	b.engine = engine
	return b
}

// WithFreq sets the scrub frequency. One slot is inspected per scrub tick.
func (b ScrubberBuilder) WithFreq(freq sim.Freq) ScrubberBuilder {
	b.freq = freq
	return b
}

// WithLookup sets the lookup engine whose table is scrubbed.
func (b ScrubberBuilder) WithLookup(lookup *Comp) ScrubberBuilder {
	b.lookup = lookup
	return b
}

// Build creates a scrubber with the given name.
func (b ScrubberBuilder) Build(name string) *Scrubber {
	s := &Scrubber{
		lookup: b.lookup,
	}
	s.TickingComponent = sim.NewSecondaryTickingComponent(
		name, b.engine, b.freq, s)

	b.lookup.attachScrubber(s)

	return s
}
