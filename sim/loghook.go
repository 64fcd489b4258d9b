package sim

import (
	"fmt"
	"log"
)

// A LogHook is a hook that is resonsible for recording information from the
// simulation
type LogHook interface {
	Hook
}

// LogHookBase proovides the common logic for all LogHooks
type LogHookBase struct {
	*log.Logger
}

// A Describer can render itself as a single log line.
type Describer interface {
	Describe() string
}

// PositionLogHook prints one line for every hook invocation whose position is
// in its filter. An empty filter logs every position.
type PositionLogHook struct {
	LogHookBase

	positions map[*HookPos]bool
}

// NewPositionLogHook creates a PositionLogHook writing to logger.
func NewPositionLogHook(logger *log.Logger, positions ...*HookPos) *PositionLogHook {
	h := &PositionLogHook{
		LogHookBase: LogHookBase{Logger: logger},
		positions:   make(map[*HookPos]bool),
	}

	for _, p := range positions {
		h.positions[p] = true
	}

	return h
}

// Func writes the hook context to the logger.
func (h *PositionLogHook) Func(ctx HookCtx) {
	if len(h.positions) > 0 && !h.positions[ctx.Pos] {
		return
	}

	h.Print(formatHookCtx(ctx))
}

func formatHookCtx(ctx HookCtx) string {
	line := ctx.Pos.Name

	if d, ok := ctx.Item.(Describer); ok {
		line += " " + d.Describe()
	} else if ctx.Item != nil {
		line += fmt.Sprintf(" %v", ctx.Item)
	}

	if ctx.Detail != nil {
		line += fmt.Sprintf(" (%v)", ctx.Detail)
	}

	return line
}
