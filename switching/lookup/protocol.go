package lookup

import (
	"github.com/sarchlab/ethsim/eth"
	"github.com/sarchlab/ethsim/sim"
)

// A FrameWordMsg carries one word of an Ethernet frame into the lookup
// engine. Words from different ingress ports may interleave freely; the
// SrcPort field tells the engine which per-port parser the word belongs to.
type FrameWordMsg struct {
	sim.MsgMeta

	Data    []byte
	EOF     bool
	SrcPort int
}

// Meta returns the meta data of the message.
func (m *FrameWordMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a cloned FrameWordMsg with a different ID.
func (m *FrameWordMsg) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// FrameWordMsgBuilder can build frame word messages.
type FrameWordMsgBuilder struct {
	src, dst sim.Port
	data     []byte
	eof      bool
	srcPort  int
}

// WithSrc sets the source of the message.
func (b FrameWordMsgBuilder) WithSrc(src sim.Port) FrameWordMsgBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the message.
func (b FrameWordMsgBuilder) WithDst(dst sim.Port) FrameWordMsgBuilder {
	b.dst = dst
	return b
}

// WithData sets the payload bytes the word carries.
func (b FrameWordMsgBuilder) WithData(data []byte) FrameWordMsgBuilder {
	b.data = data
	return b
}

// WithEOF marks the word as the last word of its frame.
func (b FrameWordMsgBuilder) WithEOF() FrameWordMsgBuilder {
	b.eof = true
	return b
}

// WithSrcPort sets the ingress port index of the word.
func (b FrameWordMsgBuilder) WithSrcPort(srcPort int) FrameWordMsgBuilder {
	b.srcPort = srcPort
	return b
}

// Build creates a new FrameWordMsg.
func (b FrameWordMsgBuilder) Build() *FrameWordMsg {
	m := &FrameWordMsg{}
	m.ID = sim.GetIDGenerator().Generate()
	m.Src = b.src
	m.Dst = b.dst
	m.TrafficBytes = len(b.data)
	m.Data = b.data
	m.EOF = b.eof
	m.SrcPort = b.srcPort

	return m
}

// A MaskMsg carries the forwarding decision for one frame: the set of egress
// ports the frame should be replicated to.
type MaskMsg struct {
	sim.MsgMeta

	Mask    eth.PortMask
	SrcPort int
	DstAddr eth.MacAddr
}

// Meta returns the meta data of the message.
func (m *MaskMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a cloned MaskMsg with a different ID.
func (m *MaskMsg) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// MaskMsgBuilder can build mask messages.
type MaskMsgBuilder struct {
	src, dst sim.Port
	mask     eth.PortMask
	srcPort  int
	dstAddr  eth.MacAddr
}

// WithSrc sets the source of the message.
func (b MaskMsgBuilder) WithSrc(src sim.Port) MaskMsgBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the message.
func (b MaskMsgBuilder) WithDst(dst sim.Port) MaskMsgBuilder {
	b.dst = dst
	return b
}

// WithMask sets the forwarding mask.
func (b MaskMsgBuilder) WithMask(mask eth.PortMask) MaskMsgBuilder {
	b.mask = mask
	return b
}

// WithSrcPort sets the ingress port the decision belongs to.
func (b MaskMsgBuilder) WithSrcPort(srcPort int) MaskMsgBuilder {
	b.srcPort = srcPort
	return b
}

// WithDstAddr sets the destination address the decision was made for.
func (b MaskMsgBuilder) WithDstAddr(addr eth.MacAddr) MaskMsgBuilder {
	b.dstAddr = addr
	return b
}

// Build creates a new MaskMsg.
func (b MaskMsgBuilder) Build() *MaskMsg {
	m := &MaskMsg{}
	m.ID = sim.GetIDGenerator().Generate()
	m.Src = b.src
	m.Dst = b.dst
	m.Mask = b.mask
	m.SrcPort = b.srcPort
	m.DstAddr = b.dstAddr

	return m
}
