// Package lookup implements the MAC-address lookup/learn engine of the
// switch core. The engine consumes a stream of frame words, produces one
// forwarding mask per frame, and learns source addresses into the shared
// MAC-address table.
package lookup

import (
	"github.com/sarchlab/ethsim/datarecording"
	"github.com/sarchlab/ethsim/eth"
	"github.com/sarchlab/ethsim/pipelining"
	"github.com/sarchlab/ethsim/sim"
	"github.com/sarchlab/ethsim/switching/mactable"
	"github.com/sarchlab/ethsim/tracing"
)

type parserState int

const (
	stateAwaitDst parserState = iota
	stateAwaitSrc
	stateSkipToEOF
)

// A frameParser tracks the parse progress of one ingress port. Frames from
// different ports interleave word by word, so each port owns a parser.
type frameParser struct {
	state     parserState
	addrBytes []byte
	dst       eth.MacAddr
	taskID    string
}

func (p *frameParser) reset() {
	p.state = stateAwaitDst
	p.addrBytes = p.addrBytes[:0]
	p.dst = 0
	p.taskID = ""
}

// A lookupItem carries one forwarding decision through the lookup pipeline.
type lookupItem struct {
	taskID  string
	mask    eth.PortMask
	srcPort int
	dstAddr eth.MacAddr
}

func (i lookupItem) TaskID() string {
	return i.taskID
}

// Counters hold the diagnostic counters of the lookup engine.
type Counters struct {
	Frames     uint64
	RuntFrames uint64
	Hits       uint64
	Misses     uint64
	MasksSent  uint64

	Table mactable.Counters
}

// macEventEntry is the row format for the recorded table events.
type macEventEntry struct {
	Time float64
	Kind string
	Addr string
	Port int
	Slot int
}

const macEventTable = "mac_events"

// Comp is the lookup/learn engine. It is a ticking component with one
// ingress port for frame words and one egress port for forwarding masks.
type Comp struct {
	*sim.TickingComponent

	In  sim.Port
	Out sim.Port

	// maskDst is the remote port that consumes the forwarding masks.
	maskDst sim.Port

	numPorts int
	table    *mactable.Table
	parsers  []*frameParser

	pipeline    pipelining.Pipeline
	pendingMask sim.Buffer

	learningEnabled bool
	promiscuous     eth.PortMask
	missBcast       eth.PortMask
	enabled         eth.PortMask

	recorder datarecording.DataRecorder
	scrubber *Scrubber

	counters Counters
}

func (c *Comp) attachScrubber(s *Scrubber) {
	c.scrubber = s
}

// Table exposes the MAC-address table that the engine owns. The scrubber
// shares it under the engine's one-event-at-a-time discipline.
func (c *Comp) Table() *mactable.Table {
	return c.table
}

// SetMaskConsumer sets the remote port that forwarding masks are sent to.
func (c *Comp) SetMaskConsumer(port sim.Port) {
	c.maskDst = port
}

// Tick updates the engine's state.
func (c *Comp) Tick() bool {
	madeProgress := false

	madeProgress = c.sendMasks() || madeProgress
	madeProgress = c.movePipeline() || madeProgress
	madeProgress = c.parseWords() || madeProgress

	return madeProgress
}

func (c *Comp) sendMasks() (madeProgress bool) {
	for {
		item := c.pendingMask.Peek()
		if item == nil {
			return madeProgress
		}

		li := item.(lookupItem)
		msg := MaskMsgBuilder{}.
			WithSrc(c.Out).
			WithDst(c.maskDst).
			WithMask(li.mask).
			WithSrcPort(li.srcPort).
			WithDstAddr(li.dstAddr).
			Build()

		err := c.Out.Send(msg)
		if err != nil {
			return madeProgress
		}

		c.pendingMask.Pop()
		c.counters.MasksSent++
		madeProgress = true

		tracing.EndTask(li.taskID, c)
	}
}

func (c *Comp) movePipeline() (madeProgress bool) {
	return c.pipeline.Tick()
}

func (c *Comp) parseWords() (madeProgress bool) {
	item := c.In.PeekIncoming()
	if item == nil {
		return false
	}

	word := item.(*FrameWordMsg)
	parser := c.parsers[word.SrcPort]

	// A word that completes the destination address must not be consumed
	// while the pipeline cannot take another lookup.
	if c.wordCompletesDst(parser, word) && !c.pipeline.CanAccept() {
		return false
	}

	c.In.RetrieveIncoming()
	tracing.TraceReqReceive(word, c)

	c.consumeWord(parser, word)
	tracing.TraceReqComplete(word, c)

	return true
}

func (c *Comp) wordCompletesDst(parser *frameParser, word *FrameWordMsg) bool {
	if parser.state != stateAwaitDst {
		return false
	}

	return len(parser.addrBytes)+len(word.Data) >= eth.AddrLen
}

func (c *Comp) consumeWord(parser *frameParser, word *FrameWordMsg) {
	for _, b := range word.Data {
		switch parser.state {
		case stateAwaitDst:
			parser.addrBytes = append(parser.addrBytes, b)
			if len(parser.addrBytes) == eth.AddrLen {
				parser.dst = eth.AddrFromBytes(parser.addrBytes)
				parser.addrBytes = parser.addrBytes[:0]
				parser.state = stateAwaitSrc

				c.onDstCaptured(parser, word)
			}
		case stateAwaitSrc:
			parser.addrBytes = append(parser.addrBytes, b)
			if len(parser.addrBytes) == eth.AddrLen {
				src := eth.AddrFromBytes(parser.addrBytes)
				parser.addrBytes = parser.addrBytes[:0]
				parser.state = stateSkipToEOF

				c.onSrcCaptured(src, word.SrcPort)
			}
		case stateSkipToEOF:
			// Payload bytes carry no address information.
		}
	}

	if word.EOF {
		if parser.state == stateSkipToEOF {
			c.counters.Frames++
		} else {
			c.counters.RuntFrames++
		}

		parser.reset()
	}
}

func (c *Comp) onDstCaptured(parser *frameParser, word *FrameWordMsg) {
	parser.taskID = word.ID + "_frame"

	tracing.StartTask(
		parser.taskID,
		word.ID,
		c, "frame", parser.dst.String(),
		nil,
	)

	mask := c.decideMask(parser.dst, word.SrcPort)
	tracing.AddTaskStep(parser.taskID, c, "mask_decided")

	c.pipeline.Accept(lookupItem{
		taskID:  parser.taskID,
		mask:    mask,
		srcPort: word.SrcPort,
		dstAddr: parser.dst,
	})
}

// decideMask computes the forwarding mask for one frame. The mask never
// includes the ingress port and never includes a disabled port.
func (c *Comp) decideMask(dst eth.MacAddr, ingress int) eth.PortMask {
	var mask eth.PortMask

	switch {
	case dst == eth.Broadcast || dst.IsMulticast():
		mask = c.enabled
	default:
		if entry, _, found := c.table.Find(dst); found {
			mask = eth.PortBit(entry.Port)
			c.counters.Hits++
		} else {
			mask = c.missBcast
			c.counters.Misses++
		}
	}

	mask |= c.promiscuous
	mask &= c.enabled
	mask = mask.Without(ingress)

	return mask
}

func (c *Comp) onSrcCaptured(src eth.MacAddr, ingress int) {
	if !c.learningEnabled {
		return
	}

	now := c.CurrentTime()
	result := c.table.Learn(src, ingress, now)

	if result.Ignored {
		return
	}

	if c.scrubber != nil {
		c.scrubber.TickLater()
	}

	c.recordLearn(src, ingress, now, result)
}

func (c *Comp) recordLearn(
	src eth.MacAddr,
	ingress int,
	now sim.VTimeInSec,
	result mactable.LearnResult,
) {
	if c.recorder == nil {
		return
	}

	if result.DidEvict {
		c.recorder.InsertData(macEventTable, macEventEntry{
			Time: float64(now),
			Kind: "evict",
			Addr: result.Evicted.Addr.String(),
			Port: result.Evicted.Port,
			Slot: result.Slot,
		})
	}

	kind := "refresh"
	if result.New {
		kind = "learn"
	} else if result.PortChanged {
		kind = "port_change"
	}

	c.recorder.InsertData(macEventTable, macEventEntry{
		Time: float64(now),
		Kind: kind,
		Addr: src.String(),
		Port: ingress,
		Slot: result.Slot,
	})
}

// recordScrub logs one aged-out entry. The scrubber calls it through the
// shared component so all rows land in the same table.
func (c *Comp) recordScrub(evicted mactable.Entry, now sim.VTimeInSec) {
	if c.recorder == nil {
		return
	}

	c.recorder.InsertData(macEventTable, macEventEntry{
		Time: float64(now),
		Kind: "scrub",
		Addr: evicted.Addr.String(),
		Port: evicted.Port,
		Slot: -1,
	})
}
