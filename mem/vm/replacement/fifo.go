package replacement

import (
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/frame"
)

// FIFO evicts the slot at the head of the admission queue. A hit moves the
// slot to the tail, so the order is reset by access.
type FIFO struct {
	queue slotQueue
}

// NewFIFO creates a FIFO policy.
func NewFIFO() *FIFO {
	return &FIFO{}
}

// Name returns the policy name.
func (p *FIFO) Name() string {
	return string(KindFIFO)
}

// Admit enqueues the slot.
func (p *FIFO) Admit(slot int, _ *vm.Page, _ AdmitReason) {
	p.queue.pushBack(slot)
}

// Access moves the slot to the tail.
func (p *FIFO) Access(slot int, _ *vm.Page) {
	p.queue.moveToBack(slot)
}

// Remove drops the slot.
func (p *FIFO) Remove(slot int, _ *vm.Page) {
	p.queue.remove(slot)
}

// Order returns the queue, head first.
func (p *FIFO) Order() []int {
	return p.queue.order()
}

// SelectVictim dequeues the head.
func (p *FIFO) SelectVictim(pool *frame.Pool) (int, error) {
	slot, ok := p.queue.popFront()
	if !ok {
		p.queue.remove(0)
		return 0, inconsistency(p.Name(), "queue is empty")
	}

	if pool.At(slot) == nil {
		p.queue.remove(0)
		return 0, inconsistency(p.Name(), "tracked frame %d is empty", slot)
	}

	return slot, nil
}
