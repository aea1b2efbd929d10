package lookup

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/ethsim/eth"
	"github.com/sarchlab/ethsim/sim"
	"github.com/sarchlab/ethsim/switching/mactable"
	"github.com/sarchlab/ethsim/tracing"
)

type captureTracer struct {
	started []tracing.Task
	stepped []tracing.Task
	ended   []tracing.Task
}

func (t *captureTracer) StartTask(task tracing.Task) {
	t.started = append(t.started, task)
}

func (t *captureTracer) StepTask(task tracing.Task) {
	t.stepped = append(t.stepped, task)
}

func (t *captureTracer) EndTask(task tracing.Task) {
	t.ended = append(t.ended, task)
}

var _ = Describe("Comp", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *MockEngine
		inPort   *MockPort
		outPort  *MockPort
		maskDst  *MockPort
		c        *Comp
		sent     []*MaskMsg
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())

		engine = NewMockEngine(mockCtrl)
		engine.EXPECT().CurrentTime().Return(sim.VTimeInSec(0)).AnyTimes()
		engine.EXPECT().Schedule(gomock.Any()).AnyTimes()

		c = MakeBuilder().
			WithEngine(engine).
			WithNumPorts(4).
			WithTableSize(8).
			WithPolicy(mactable.NewWrapPolicy()).
			WithLookupLatency(0).
			Build("SwitchCore")

		inPort = NewMockPort(mockCtrl)
		outPort = NewMockPort(mockCtrl)
		maskDst = NewMockPort(mockCtrl)
		c.In = inPort
		c.Out = outPort
		c.SetMaskConsumer(maskDst)

		sent = nil
		outPort.EXPECT().
			Send(gomock.Any()).
			DoAndReturn(func(m sim.Msg) *sim.SendError {
				sent = append(sent, m.(*MaskMsg))
				return nil
			}).
			AnyTimes()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	word := func(data []byte, eof bool, port int) *FrameWordMsg {
		b := FrameWordMsgBuilder{}.
			WithDst(inPort).
			WithData(data).
			WithSrcPort(port)
		if eof {
			b = b.WithEOF()
		}

		return b.Build()
	}

	frameWord := func(dst, src eth.MacAddr, port int) *FrameWordMsg {
		data := append(dst.Bytes(), src.Bytes()...)
		return word(data, true, port)
	}

	feedWord := func(w *FrameWordMsg) {
		inPort.EXPECT().PeekIncoming().Return(w)
		inPort.EXPECT().RetrieveIncoming().Return(w)
		c.Tick()
	}

	drain := func() {
		inPort.EXPECT().PeekIncoming().Return(nil)
		c.Tick()
	}

	It("should flood a broadcast frame to all other ports", func() {
		feedWord(frameWord(eth.Broadcast, 0x020000000001, 0))
		drain()

		Expect(sent).To(HaveLen(1))
		Expect(sent[0].Mask).To(Equal(eth.AllPorts(4).Without(0)))
		Expect(sent[0].SrcPort).To(Equal(0))
		Expect(sent[0].DstAddr).To(Equal(eth.Broadcast))
	})

	It("should learn the source address of a frame", func() {
		feedWord(frameWord(eth.Broadcast, 0x020000000001, 2))
		drain()

		entry, _, found := c.Table().Find(0x020000000001)
		Expect(found).To(BeTrue())
		Expect(entry.Port).To(Equal(2))
		Expect(c.Counters().Table.Learns).To(Equal(uint64(1)))
	})

	It("should deliver a learned unicast to its port only", func() {
		c.Table().Learn(0x020000000002, 2, 0)

		feedWord(frameWord(0x020000000002, 0x020000000001, 0))
		drain()

		Expect(sent).To(HaveLen(1))
		Expect(sent[0].Mask).To(Equal(eth.PortBit(2)))
		Expect(c.Counters().Hits).To(Equal(uint64(1)))
	})

	It("should flood an unknown unicast", func() {
		feedWord(frameWord(0x020000000009, 0x020000000001, 1))
		drain()

		Expect(sent).To(HaveLen(1))
		Expect(sent[0].Mask).To(Equal(eth.AllPorts(4).Without(1)))
		Expect(c.Counters().Misses).To(Equal(uint64(1)))
	})

	It("should drop an unknown unicast under the drop policy", func() {
		c.SetMissPolicy(MissDrop)

		feedWord(frameWord(0x020000000009, 0x020000000001, 1))
		drain()

		Expect(sent).To(HaveLen(1))
		Expect(sent[0].Mask).To(Equal(eth.PortMask(0)))
	})

	It("should never deliver back to the ingress port", func() {
		c.Table().Learn(0x020000000002, 0, 0)

		feedWord(frameWord(0x020000000002, 0x020000000001, 0))
		drain()

		Expect(sent).To(HaveLen(1))
		Expect(sent[0].Mask).To(Equal(eth.PortMask(0)))
	})

	It("should copy frames to promiscuous ports", func() {
		c.SetPromiscuous(3, true)
		c.Table().Learn(0x020000000002, 1, 0)

		feedWord(frameWord(0x020000000002, 0x020000000001, 0))
		drain()

		Expect(sent).To(HaveLen(1))
		Expect(sent[0].Mask).To(Equal(eth.PortBit(1) | eth.PortBit(3)))
	})

	It("should exclude disabled ports from every mask", func() {
		c.SetPortEnabled(2, false)

		feedWord(frameWord(eth.Broadcast, 0x020000000001, 0))
		drain()

		Expect(sent).To(HaveLen(1))
		Expect(sent[0].Mask).To(
			Equal(eth.AllPorts(4).Without(0).Without(2)))
	})

	It("should not learn when learning is disabled", func() {
		c.MacTableLearn(false)

		feedWord(frameWord(eth.Broadcast, 0x020000000001, 0))
		drain()

		Expect(c.Table().NumValid()).To(Equal(0))
		Expect(sent).To(HaveLen(1))
	})

	It("should count a runt frame and emit no mask", func() {
		feedWord(word([]byte{0x01, 0x02, 0x03}, true, 0))
		drain()

		Expect(sent).To(BeEmpty())
		Expect(c.Counters().RuntFrames).To(Equal(uint64(1)))
		Expect(c.Counters().Frames).To(Equal(uint64(0)))
	})

	It("should trace one task per frame and one per word", func() {
		tracer := &captureTracer{}
		tracing.CollectTrace(c, tracer)

		feedWord(frameWord(eth.Broadcast, 0x020000000001, 0))
		drain()

		kinds := map[string]int{}
		for _, task := range tracer.started {
			kinds[task.Kind]++
		}
		Expect(kinds["frame"]).To(Equal(1))
		Expect(kinds["req_in"]).To(Equal(1))

		Expect(tracer.stepped).To(HaveLen(1))
		Expect(tracer.stepped[0].Steps[0].What).To(Equal("mask_decided"))

		Expect(tracer.ended).To(HaveLen(2))
	})

	It("should parse interleaved frames from different ports", func() {
		dst0 := eth.MacAddr(eth.Broadcast)
		src0 := eth.MacAddr(0x020000000001)
		dst1 := src0
		src1 := eth.MacAddr(0x020000000002)

		feedWord(word(dst0.Bytes(), false, 0))
		feedWord(word(dst1.Bytes(), false, 1))
		feedWord(word(src0.Bytes(), true, 0))
		feedWord(word(src1.Bytes(), true, 1))
		drain()
		drain()

		Expect(sent).To(HaveLen(2))
		Expect(sent[0].SrcPort).To(Equal(0))
		Expect(sent[0].DstAddr).To(Equal(eth.Broadcast))
		Expect(sent[1].SrcPort).To(Equal(1))
		Expect(c.Counters().Frames).To(Equal(uint64(2)))
	})

	It("should stall the word stream when the mask buffer is full", func() {
		c := MakeBuilder().
			WithEngine(engine).
			WithNumPorts(4).
			WithPolicy(mactable.NewWrapPolicy()).
			WithLookupLatency(0).
			WithBufCapacity(1).
			Build("SwitchCore2")

		inPort := NewMockPort(mockCtrl)
		outPort := NewMockPort(mockCtrl)
		c.In = inPort
		c.Out = outPort
		c.SetMaskConsumer(maskDst)

		outPort.EXPECT().
			Send(gomock.Any()).
			Return(sim.NewSendError()).
			AnyTimes()

		w1 := frameWord(eth.Broadcast, 0x020000000001, 0)
		inPort.EXPECT().PeekIncoming().Return(w1)
		inPort.EXPECT().RetrieveIncoming().Return(w1)
		c.Tick()

		w2 := frameWord(eth.Broadcast, 0x020000000002, 1)
		inPort.EXPECT().PeekIncoming().Return(w2)

		Expect(c.Tick()).To(BeFalse())
	})

	Describe("management access", func() {
		It("should write and read table slots", func() {
			slot, ok := c.MacTableWrite(2, 0x020000000005)

			Expect(ok).To(BeTrue())
			Expect(slot).To(Equal(0))

			entry, inRange := c.MacTableRead(slot)
			Expect(inRange).To(BeTrue())
			Expect(entry.Valid).To(BeTrue())
			Expect(entry.Addr).To(Equal(eth.MacAddr(0x020000000005)))
			Expect(entry.Port).To(Equal(2))
		})

		It("should reject a manual write of the broadcast address", func() {
			_, ok := c.MacTableWrite(0, eth.Broadcast)

			Expect(ok).To(BeFalse())
		})

		It("should clear the whole table at once", func() {
			c.MacTableWrite(0, 0x020000000001)
			c.MacTableWrite(1, 0x020000000002)

			c.MacTableClear()

			Expect(c.Table().NumValid()).To(Equal(0))
			entry, inRange := c.MacTableRead(0)
			Expect(inRange).To(BeTrue())
			Expect(entry.Valid).To(BeFalse())
		})

		It("should look up manually written addresses", func() {
			c.MacTableWrite(3, 0x020000000005)

			feedWord(frameWord(0x020000000005, 0x020000000001, 0))
			drain()

			Expect(sent).To(HaveLen(1))
			Expect(sent[0].Mask).To(Equal(eth.PortBit(3)))
		})
	})
})
