package replacement

import (
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/frame"
	"github.com/sarchlab/vmsim/mem/vm/trace"
)

// OptimalCountdown approximates Optimal with a single number per page: the
// position of the last use command that touches it. Every hit or swap-in
// counts the number down by one and the page is dropped once it reaches zero.
// The page with the largest number is evicted; a page without a number is
// evicted right away. It diverges from Optimal when a page is referenced more
// than twice.
type OptimalCountdown struct {
	futureUses map[vm.PageID]int
}

// NewOptimalCountdown creates an OptimalCountdown policy.
func NewOptimalCountdown() *OptimalCountdown {
	return &OptimalCountdown{
		futureUses: make(map[vm.PageID]int),
	}
}

// Name returns the policy name.
func (p *OptimalCountdown) Name() string {
	return string(KindOptimalCountdown)
}

// Precompute records the last use of every page.
func (p *OptimalCountdown) Precompute(refs trace.ReferenceString) {
	p.futureUses = refs.LastUseCommands()
}

// Seek does nothing.
func (p *OptimalCountdown) Seek(int) {}

// FutureUse returns the remaining counter of a page.
func (p *OptimalCountdown) FutureUse(id vm.PageID) (int, bool) {
	v, ok := p.futureUses[id]
	return v, ok
}

// Admit counts down a swapped-in page.
func (p *OptimalCountdown) Admit(_ int, page *vm.Page, reason AdmitReason) {
	if reason == AdmitSwapIn {
		p.countDown(page.ID)
	}
}

// Access counts down a page.
func (p *OptimalCountdown) Access(_ int, page *vm.Page) {
	p.countDown(page.ID)
}

// Remove drops a deleted page.
func (p *OptimalCountdown) Remove(_ int, page *vm.Page) {
	delete(p.futureUses, page.ID)
}

func (p *OptimalCountdown) countDown(id vm.PageID) {
	v, ok := p.futureUses[id]
	if !ok {
		return
	}

	v--
	if v <= 0 {
		delete(p.futureUses, id)
		return
	}

	p.futureUses[id] = v
}

// SelectVictim returns the slot with the largest counter.
func (p *OptimalCountdown) SelectVictim(pool *frame.Pool) (int, error) {
	victim := -1
	longest := -1

	for slot := 0; slot < pool.Len(); slot++ {
		page := pool.At(slot)
		if page == nil {
			continue
		}

		v, ok := p.futureUses[page.ID]
		if !ok {
			return slot, nil
		}

		if v > longest {
			victim = slot
			longest = v
		}
	}

	if victim < 0 {
		return 0, inconsistency(p.Name(), "no resident page to evict")
	}

	return victim, nil
}
