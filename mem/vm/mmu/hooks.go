package mmu

import (
	"fmt"

	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/trace"
	"github.com/sarchlab/vmsim/sim"
)

// Hook positions invoked by Comp.
var (
	// HookPosCommandStart is invoked before a command runs. The item is the
	// trace.Command.
	HookPosCommandStart = &sim.HookPos{Name: "CommandStart"}

	// HookPosCommandEnd is invoked after a command runs, including rejected
	// ones. The item is a Result.
	HookPosCommandEnd = &sim.HookPos{Name: "CommandEnd"}

	// The following positions carry a PageEvent.
	HookPosAllocate = &sim.HookPos{Name: "Allocate"}
	HookPosHit      = &sim.HookPos{Name: "Hit"}
	HookPosFault    = &sim.HookPos{Name: "Fault"}
	HookPosEvict    = &sim.HookPos{Name: "Evict"}
	HookPosSwapIn   = &sim.HookPos{Name: "SwapIn"}
	HookPosFree     = &sim.HookPos{Name: "Free"}

	// HookPosWarning is invoked when victim selection had to fall back to
	// slot 0. The item is the error.
	HookPosWarning = &sim.HookPos{Name: "Warning"}
)

// PageHookPositions lists the positions that carry a PageEvent.
func PageHookPositions() []*sim.HookPos {
	return []*sim.HookPos{
		HookPosAllocate,
		HookPosHit,
		HookPosFault,
		HookPosEvict,
		HookPosSwapIn,
		HookPosFree,
	}
}

// A PageEvent records something that happened to a page.
type PageEvent struct {
	Page          vm.Page
	Slot          int
	Clock         uint64
	ThrashingTime uint64
}

// Describe renders the event for log output.
func (e PageEvent) Describe() string {
	return fmt.Sprintf("%s [clock %d, thrashing %d]",
		e.Page.Describe(), e.Clock, e.ThrashingTime)
}

// Result is the outcome of applying one command.
type Result struct {
	Command trace.Command

	// Ptr is the pointer created by a new command.
	Ptr vm.PtrID

	// Freed lists the pointers deleted by a delete or kill command.
	Freed []vm.PtrID

	Err error
}

// Describe renders the result for log output.
func (r Result) Describe() string {
	switch {
	case r.Err != nil:
		return fmt.Sprintf("%s failed: %v", r.Command, r.Err)
	case r.Command.Name == trace.NameNew:
		return fmt.Sprintf("%s -> ptr %d", r.Command, r.Ptr)
	case len(r.Freed) > 0:
		return fmt.Sprintf("%s freed %v", r.Command, r.Freed)
	default:
		return r.Command.String()
	}
}

func (c *Comp) invokePageHook(pos *sim.HookPos, page *vm.Page, slot int) {
	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    pos,
		Item: PageEvent{
			Page:          *page,
			Slot:          slot,
			Clock:         c.acct.Clock,
			ThrashingTime: c.acct.ThrashingTime,
		},
	})
}
