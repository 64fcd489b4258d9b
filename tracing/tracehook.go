package tracing

import (
	"github.com/rs/xid"
	"github.com/sarchlab/vmsim/mem/vm/mmu"
	"github.com/sarchlab/vmsim/mem/vm/trace"
	"github.com/sarchlab/vmsim/sim"
)

// Kinds of tasks.
const (
	KindCommand = "command"
)

type named interface {
	Name() string
}

// CollectTrace lets the tracer collect tasks from a domain.
func CollectTrace(domain sim.Hookable, tracer Tracer) {
	domain.AcceptHook(&traceHook{t: tracer})
}

// A traceHook is a hook that turns command and page events into tasks.
type traceHook struct {
	t       Tracer
	step    int
	current *Task
}

// Func calls the tracer interfaces when the hook is triggered
func (h *traceHook) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case mmu.HookPosCommandStart:
		h.start(ctx)
	case mmu.HookPosCommandEnd:
		h.end(ctx)
	case mmu.HookPosAllocate, mmu.HookPosHit, mmu.HookPosFault,
		mmu.HookPosEvict, mmu.HookPosSwapIn, mmu.HookPosFree:
		h.stepTask(ctx)
	}
}

func (h *traceHook) start(ctx sim.HookCtx) {
	cmd := ctx.Item.(trace.Command)
	h.step++

	task := Task{
		ID:     xid.New().String(),
		Step:   h.step,
		Kind:   KindCommand,
		What:   cmd.Name,
		Detail: cmd.String(),
	}

	if d, ok := ctx.Domain.(named); ok {
		task.Where = d.Name()
	}

	h.current = &task
	h.t.StartTask(task)
}

func (h *traceHook) stepTask(ctx sim.HookCtx) {
	if h.current == nil {
		return
	}

	evt := ctx.Item.(mmu.PageEvent)
	task := *h.current
	task.Steps = []TaskStep{{
		Clock:  evt.Clock,
		What:   ctx.Pos.Name,
		PageID: evt.Page.ID,
		Slot:   evt.Slot,
	}}

	h.t.StepTask(task)
}

func (h *traceHook) end(ctx sim.HookCtx) {
	if h.current == nil {
		return
	}

	task := *h.current
	if res, ok := ctx.Item.(mmu.Result); ok && res.Err != nil {
		task.Err = res.Err.Error()
	}

	h.current = nil
	h.t.EndTask(task)
}
