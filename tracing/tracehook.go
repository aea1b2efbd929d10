package tracing

import (
	"github.com/sarchlab/ethsim/sim"
)

// CollectTrace lets the tracer collect traces from a domain.
func CollectTrace(domain NamedHookable, tracer Tracer) {
	h := traceHook{t: tracer}
	domain.AcceptHook(&h)
}

// A traceHook is a hook that traces tasks.
type traceHook struct {
	t Tracer
}

// Func calls the tracer interfaces when the hook is triggered.
func (h *traceHook) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case HookPosTaskStart:
		h.t.StartTask(ctx.Item.(Task))
	case HookPosTaskStep:
		h.t.StepTask(ctx.Item.(Task))
	case HookPosTaskEnd:
		h.t.EndTask(ctx.Item.(Task))
	}
}
