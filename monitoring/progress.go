package monitoring

import (
	"sync"
	"time"

	"github.com/sarchlab/vmsim/mem/vm/mmu"
	"github.com/sarchlab/vmsim/sim"
)

// ProgressStatus is what the webpage shows for a progress bar.
type ProgressStatus struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

// A ProgressBar is a tracker of the progress. As a hook on a memory management
// unit, it moves one command from in progress to finished at every command
// end.
type ProgressBar struct {
	sync.Mutex
	ProgressStatus
}

// IncrementInProgress adds the number of in-progress element.
func (b *ProgressBar) IncrementInProgress(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress += amount
}

// IncrementFinished add a certain amount to finished element.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.Finished += amount
}

// MoveInProgressToFinished reduces the number of in progress item by a certain
// amount and increase the finished item by the same amount.
func (b *ProgressBar) MoveInProgressToFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress -= amount
	b.Finished += amount
}

// Status returns a copy of the current status.
func (b *ProgressBar) Status() ProgressStatus {
	b.Lock()
	defer b.Unlock()

	return b.ProgressStatus
}

// Func counts commands of a memory management unit.
func (b *ProgressBar) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case mmu.HookPosCommandStart:
		b.IncrementInProgress(1)
	case mmu.HookPosCommandEnd:
		b.MoveInProgressToFinished(1)
	}
}
