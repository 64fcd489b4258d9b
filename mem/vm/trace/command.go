// Package trace defines the commands that drive a memory management unit, the
// parser for command scripts, and the reference string that look-ahead
// replacement policies consume.
package trace

import (
	"fmt"
	"math"
	"strings"

	"github.com/sarchlab/vmsim/mem/vm"
)

// Command names.
const (
	NameNew    = "new"
	NameUse    = "use"
	NameDelete = "delete"
	NameKill   = "kill"
)

var arity = map[string]int{
	NameNew:    2,
	NameUse:    1,
	NameDelete: 1,
	NameKill:   1,
}

// A Command is one step of a script. Args holds the integer arguments in the
// order they were written. Line is the 1-based script line, or 0 if the
// command was not parsed from a script.
type Command struct {
	Name string
	Args []int64
	Line int
}

// NewCmd creates a new(pid, size) command.
func NewCmd(pid vm.PID, size uint64) Command {
	return Command{Name: NameNew, Args: []int64{int64(pid), int64(size)}}
}

// UseCmd creates a use(ptr) command.
func UseCmd(ptr vm.PtrID) Command {
	return Command{Name: NameUse, Args: []int64{int64(ptr)}}
}

// DeleteCmd creates a delete(ptr) command.
func DeleteCmd(ptr vm.PtrID) Command {
	return Command{Name: NameDelete, Args: []int64{int64(ptr)}}
}

// KillCmd creates a kill(pid) command.
func KillCmd(pid vm.PID) Command {
	return Command{Name: NameKill, Args: []int64{int64(pid)}}
}

// Validate checks the name, the number of arguments, and their ranges. The
// returned error wraps vm.ErrMalformedCommand.
func (c Command) Validate() error {
	n, known := arity[c.Name]
	if !known {
		return c.malformed("unknown command %q", c.Name)
	}

	if len(c.Args) != n {
		return c.malformed("%s takes %d argument(s), got %d",
			c.Name, n, len(c.Args))
	}

	for i, a := range c.Args {
		if a < 0 {
			return c.malformed("argument %d is negative", i+1)
		}
	}

	switch c.Name {
	case NameNew, NameKill:
		if c.Args[0] > math.MaxUint32 {
			return c.malformed("pid %d out of range", c.Args[0])
		}
	}

	return nil
}

func (c Command) malformed(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if c.Line > 0 {
		return fmt.Errorf("line %d: %s: %w", c.Line, msg, vm.ErrMalformedCommand)
	}

	return fmt.Errorf("%s: %w", msg, vm.ErrMalformedCommand)
}

// PID returns the process argument of new and kill.
func (c Command) PID() vm.PID {
	return vm.PID(c.Args[0])
}

// Size returns the byte count argument of new.
func (c Command) Size() uint64 {
	return uint64(c.Args[1])
}

// Ptr returns the pointer argument of use and delete.
func (c Command) Ptr() vm.PtrID {
	return vm.PtrID(c.Args[0])
}

func (c Command) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = fmt.Sprint(a)
	}

	return c.Name + "(" + strings.Join(args, ", ") + ")"
}

// Describe renders the command for log output.
func (c Command) Describe() string {
	return c.String()
}
