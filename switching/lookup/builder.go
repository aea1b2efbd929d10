package lookup

import (
	"github.com/sarchlab/ethsim/datarecording"
	"github.com/sarchlab/ethsim/eth"
	"github.com/sarchlab/ethsim/pipelining"
	"github.com/sarchlab/ethsim/sim"
	"github.com/sarchlab/ethsim/switching/mactable"
)

// Builder can build lookup engines.
type Builder struct {
	engine        sim.Engine
	freq          sim.Freq
	numPorts      int
	tableSize     int
	policy        mactable.ReplacementPolicy
	lookupLatency int
	bufCapacity   int
	recorder      datarecording.DataRecorder
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		freq:          1 * sim.GHz,
		numPorts:      4,
		tableSize:     64,
		lookupLatency: 1,
		bufCapacity:   4,
	}
}

// WithEngine sets the event engine the engine runs on.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the tick frequency of the engine.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithNumPorts sets the number of switch ports.
func (b Builder) WithNumPorts(n int) Builder {
	b.numPorts = n
	return b
}

// WithTableSize sets the number of slots in the MAC-address table.
func (b Builder) WithTableSize(n int) Builder {
	b.tableSize = n
	return b
}

// WithPolicy sets the replacement policy used when the table is full.
func (b Builder) WithPolicy(p mactable.ReplacementPolicy) Builder {
	b.policy = p
	return b
}

// WithLookupLatency sets the number of cycles between destination capture
// and the forwarding mask becoming sendable.
func (b Builder) WithLookupLatency(n int) Builder {
	b.lookupLatency = n
	return b
}

// WithBufCapacity sets the capacity of the port and mask buffers.
func (b Builder) WithBufCapacity(n int) Builder {
	b.bufCapacity = n
	return b
}

// WithDataRecorder sets the recorder that table events are written to.
func (b Builder) WithDataRecorder(r datarecording.DataRecorder) Builder {
	b.recorder = r
	return b
}

// Build creates a lookup engine with the given name.
func (b Builder) Build(name string) *Comp {
	c := &Comp{
		numPorts:        b.numPorts,
		learningEnabled: true,
		recorder:        b.recorder,
	}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	c.table = mactable.NewTable(b.tableSize, b.policy)

	c.parsers = make([]*frameParser, b.numPorts)
	for i := range c.parsers {
		c.parsers[i] = &frameParser{}
	}

	c.pendingMask = sim.NewBuffer(name+".PendingMaskBuf", b.bufCapacity)
	c.pipeline = pipelining.MakeBuilder().
		WithNumStage(b.lookupLatency).
		WithCyclePerStage(1).
		WithPostPipelineBuffer(c.pendingMask).
		Build(name + ".LookupPipeline")

	c.In = sim.NewPort(c, b.bufCapacity, b.bufCapacity, name+".In")
	c.Out = sim.NewPort(c, b.bufCapacity, b.bufCapacity, name+".Out")
	c.AddPort("In", c.In)
	c.AddPort("Out", c.Out)

	c.enabled = eth.AllPorts(b.numPorts)
	c.missBcast = eth.AllPorts(b.numPorts)

	if b.recorder != nil {
		b.recorder.CreateTable(macEventTable, macEventEntry{})
	}

	return c
}
