// Package replay drives a memory management unit through a command script.
// Loading a script precomputes the reference string for look-ahead policies,
// then the commands are replayed one at a time.
package replay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sarchlab/vmsim/mem/vm/mmu"
	"github.com/sarchlab/vmsim/mem/vm/trace"
)

// A StepError is the error that one command of the script produced.
type StepError struct {
	Step    int
	Command trace.Command
	Err     error
}

func (e StepError) Error() string {
	return fmt.Sprintf("step %d %s: %v", e.Step, e.Command, e.Err)
}

func (e StepError) Unwrap() error {
	return e.Err
}

// Progress tells how far the replay has gone.
type Progress struct {
	Done   int  `json:"done"`
	Total  int  `json:"total"`
	Errors int  `json:"errors"`
	Paused bool `json:"paused"`
}

// A Replayer replays a script against a memory management unit. All access to
// the unit goes through the replayer, which serializes it.
type Replayer struct {
	lock sync.Mutex
	mmu  *mmu.Comp
	cmds []trace.Command
	next int
	errs []StepError
	refs trace.ReferenceString

	isPaused     bool
	isPausedLock sync.Mutex
	pauseLock    sync.Mutex

	singleRunLock sync.Mutex
}

// NewReplayer creates a replayer for the given unit.
func NewReplayer(m *mmu.Comp) *Replayer {
	return &Replayer{mmu: m}
}

// Load replaces the script and precomputes the future references from the
// current state of the unit.
func (r *Replayer) Load(cmds []trace.Command) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.cmds = append([]trace.Command(nil), cmds...)
	r.next = 0
	r.errs = nil
	r.refs = r.mmu.Precompute(r.cmds)
}

// References returns the reference string computed by the last Load.
func (r *Replayer) References() trace.ReferenceString {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.refs
}

// Step applies the next command. It returns false when the script is
// exhausted. The error of the command, if any, is returned and also kept.
func (r *Replayer) Step() (bool, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.step()
}

func (r *Replayer) step() (bool, error) {
	if r.next >= len(r.cmds) {
		return false, nil
	}

	cmd := r.cmds[r.next]
	r.next++

	if err := r.mmu.Apply(cmd); err != nil {
		stepErr := StepError{Step: r.next, Command: cmd, Err: err}
		r.errs = append(r.errs, stepErr)

		return true, stepErr
	}

	return true, nil
}

// Run applies all the remaining commands. Command errors do not stop the run.
func (r *Replayer) Run() []StepError {
	_ = r.RunContext(context.Background())

	return r.Errors()
}

// RunContext applies the remaining commands until the script is exhausted or
// the context is cancelled. Command errors do not stop the run.
func (r *Replayer) RunContext(ctx context.Context) error {
	r.singleRunLock.Lock()
	defer r.singleRunLock.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		r.pauseLock.Lock()
		more, _ := r.Step()
		r.pauseLock.Unlock()

		if !more {
			return nil
		}
	}
}

// RunPaced applies one command per interval until the script is exhausted or
// the context is cancelled.
func (r *Replayer) RunPaced(ctx context.Context, interval time.Duration) error {
	r.singleRunLock.Lock()
	defer r.singleRunLock.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		r.pauseLock.Lock()
		more, _ := r.Step()
		r.pauseLock.Unlock()

		if !more {
			return nil
		}
	}
}

// Pause keeps Run and RunPaced from applying more commands. Step still works.
func (r *Replayer) Pause() {
	r.isPausedLock.Lock()
	defer r.isPausedLock.Unlock()

	if r.isPaused {
		return
	}

	r.pauseLock.Lock()
	r.isPaused = true
}

// Continue lets Run and RunPaced go on.
func (r *Replayer) Continue() {
	r.isPausedLock.Lock()
	defer r.isPausedLock.Unlock()

	if !r.isPaused {
		return
	}

	r.pauseLock.Unlock()
	r.isPaused = false
}

// IsPaused tells if the replayer is paused.
func (r *Replayer) IsPaused() bool {
	r.isPausedLock.Lock()
	defer r.isPausedLock.Unlock()

	return r.isPaused
}

// Errors returns the errors collected so far.
func (r *Replayer) Errors() []StepError {
	r.lock.Lock()
	defer r.lock.Unlock()

	return append([]StepError(nil), r.errs...)
}

// Progress returns how many commands have been applied.
func (r *Replayer) Progress() Progress {
	paused := r.IsPaused()

	r.lock.Lock()
	defer r.lock.Unlock()

	return Progress{
		Done:   r.next,
		Total:  len(r.cmds),
		Errors: len(r.errs),
		Paused: paused,
	}
}

// Snapshot returns a snapshot of the unit.
func (r *Replayer) Snapshot() mmu.Snapshot {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.mmu.Snapshot()
}

// Inspect calls fn with the unit while holding the lock. fn must not keep the
// unit after it returns.
func (r *Replayer) Inspect(fn func(m *mmu.Comp)) {
	r.lock.Lock()
	defer r.lock.Unlock()

	fn(r.mmu)
}
