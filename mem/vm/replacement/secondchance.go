package replacement

import (
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/frame"
)

// SecondChance scans a circular queue of slots. A page at the head with a
// clear reference bit is evicted. A page with the bit set has the bit cleared
// and goes back to the tail.
type SecondChance struct {
	queue slotQueue
}

// NewSecondChance creates a SecondChance policy.
func NewSecondChance() *SecondChance {
	return &SecondChance{}
}

// Name returns the policy name.
func (p *SecondChance) Name() string {
	return string(KindSecondChance)
}

// Admit enqueues the slot. A swapped-in page starts with its reference bit
// set, since it is admitted because it is being used.
func (p *SecondChance) Admit(slot int, page *vm.Page, reason AdmitReason) {
	page.ReferenceBit = reason == AdmitSwapIn
	p.queue.pushBack(slot)
}

// Access sets the reference bit without reordering.
func (p *SecondChance) Access(_ int, page *vm.Page) {
	page.ReferenceBit = true
}

// Remove drops the slot.
func (p *SecondChance) Remove(slot int, _ *vm.Page) {
	p.queue.remove(slot)
}

// Order returns the queue, head first.
func (p *SecondChance) Order() []int {
	return p.queue.order()
}

// SelectVictim runs the second-chance scan. It ends within two passes since
// every bit it meets is cleared.
func (p *SecondChance) SelectVictim(pool *frame.Pool) (int, error) {
	for {
		slot, ok := p.queue.popFront()
		if !ok {
			p.queue.remove(0)
			return 0, inconsistency(p.Name(), "queue is empty")
		}

		page := pool.At(slot)
		if page == nil {
			p.queue.remove(0)
			return 0, inconsistency(p.Name(),
				"tracked frame %d is empty", slot)
		}

		if !page.ReferenceBit {
			return slot, nil
		}

		page.ReferenceBit = false
		p.queue.pushBack(slot)
	}
}
