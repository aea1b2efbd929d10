// Package traffic provides an agent that feeds frame words into the lookup
// engine and collects the forwarding decisions it produces.
package traffic

import (
	"github.com/sarchlab/ethsim/eth"
	"github.com/sarchlab/ethsim/sim"
	"github.com/sarchlab/ethsim/switching/lookup"
)

type queuedWord struct {
	data    []byte
	eof     bool
	srcPort int
}

// Comp is a traffic agent. It replays scheduled frames word by word and
// records every forwarding mask that comes back.
type Comp struct {
	*sim.TickingComponent

	Out sim.Port
	In  sim.Port

	frameSink sim.Port
	wordSize  int

	pending   []queuedWord
	decisions []*lookup.MaskMsg
}

// ScheduleFrame queues one frame for injection: destination and source
// address followed by payloadLen zero bytes, entering on the given ingress
// port.
func (c *Comp) ScheduleFrame(
	dst, src eth.MacAddr,
	ingress int,
	payloadLen int,
) {
	frame := append(dst.Bytes(), src.Bytes()...)
	frame = append(frame, make([]byte, payloadLen)...)

	for off := 0; off < len(frame); off += c.wordSize {
		end := off + c.wordSize
		if end > len(frame) {
			end = len(frame)
		}

		c.pending = append(c.pending, queuedWord{
			data:    frame[off:end],
			eof:     end == len(frame),
			srcPort: ingress,
		})
	}

	c.TickLater()
}

// Decisions returns the forwarding masks received so far, in arrival order.
func (c *Comp) Decisions() []*lookup.MaskMsg {
	return c.decisions
}

// Done reports whether all scheduled words have been sent.
func (c *Comp) Done() bool {
	return len(c.pending) == 0
}

// SetFrameSink sets the port that the frame words are sent to.
func (c *Comp) SetFrameSink(port sim.Port) {
	c.frameSink = port
}

// Tick updates the agent's state.
func (c *Comp) Tick() bool {
	madeProgress := false

	madeProgress = c.collectMasks() || madeProgress
	madeProgress = c.sendWords() || madeProgress

	return madeProgress
}

func (c *Comp) collectMasks() (madeProgress bool) {
	for {
		item := c.In.PeekIncoming()
		if item == nil {
			return madeProgress
		}

		c.decisions = append(c.decisions, item.(*lookup.MaskMsg))
		c.In.RetrieveIncoming()
		madeProgress = true
	}
}

func (c *Comp) sendWords() (madeProgress bool) {
	for len(c.pending) > 0 {
		word := c.pending[0]

		msg := lookup.FrameWordMsgBuilder{}.
			WithSrc(c.Out).
			WithDst(c.frameSink).
			WithData(word.data).
			WithSrcPort(word.srcPort)
		if word.eof {
			msg = msg.WithEOF()
		}

		err := c.Out.Send(msg.Build())
		if err != nil {
			return madeProgress
		}

		c.pending = c.pending[1:]
		madeProgress = true
	}

	return madeProgress
}

// Builder can build traffic agents.
type Builder struct {
	engine      sim.Engine
	freq        sim.Freq
	wordSize    int
	bufCapacity int
	frameSink   sim.Port
}

// MakeBuilder creates a builder with default parameters. The default word
// size matches the 4-byte datapath the engine models.
func MakeBuilder() Builder {
	return Builder{
		freq:        1 * sim.GHz,
		wordSize:    4,
		bufCapacity: 4,
	}
}

// WithEngine sets the event engine the agent runs on.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the tick frequency of the agent.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithWordSize sets the number of bytes per frame word.
func (b Builder) WithWordSize(n int) Builder {
	b.wordSize = n
	return b
}

// WithBufCapacity sets the capacity of the agent's port buffers.
func (b Builder) WithBufCapacity(n int) Builder {
	b.bufCapacity = n
	return b
}

// WithFrameSink sets the port that the frame words are sent to.
func (b Builder) WithFrameSink(port sim.Port) Builder {
	b.frameSink = port
	return b
}

// Build creates a traffic agent with the given name.
func (b Builder) Build(name string) *Comp {
	c := &Comp{
		frameSink: b.frameSink,
		wordSize:  b.wordSize,
	}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	c.Out = sim.NewPort(c, b.bufCapacity, b.bufCapacity, name+".Out")
	c.In = sim.NewPort(c, b.bufCapacity, b.bufCapacity, name+".In")
	c.AddPort("Out", c.Out)
	c.AddPort("In", c.In)

	return c
}
