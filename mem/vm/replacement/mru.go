package replacement

import (
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/frame"
)

// MRU keeps resident slots in access order, with the most recently admitted
// or used slot at the back.
//
// The victim is taken from the front, which is the slot touched least
// recently. That is least-recently-used behavior despite the name. The rule is
// kept as is; MRUBack evicts from the back instead.
type MRU struct {
	queue     slotQueue
	evictBack bool
}

// NewMRU creates an MRU policy that evicts from the front.
func NewMRU() *MRU {
	return &MRU{}
}

// NewMRUBack creates an MRU policy that evicts the most recently used slot.
func NewMRUBack() *MRU {
	return &MRU{evictBack: true}
}

// Name returns the policy name.
func (p *MRU) Name() string {
	if p.evictBack {
		return string(KindMRUBack)
	}

	return string(KindMRU)
}

// Admit appends the slot.
func (p *MRU) Admit(slot int, _ *vm.Page, _ AdmitReason) {
	p.queue.pushBack(slot)
}

// Access moves the slot to the back.
func (p *MRU) Access(slot int, _ *vm.Page) {
	p.queue.moveToBack(slot)
}

// Remove drops the slot.
func (p *MRU) Remove(slot int, _ *vm.Page) {
	p.queue.remove(slot)
}

// Order returns the slots, front first.
func (p *MRU) Order() []int {
	return p.queue.order()
}

// SelectVictim pops a slot from the front, or from the back for MRUBack.
func (p *MRU) SelectVictim(pool *frame.Pool) (int, error) {
	var (
		slot int
		ok   bool
	)

	if p.evictBack {
		slot, ok = p.queue.popBack()
	} else {
		slot, ok = p.queue.popFront()
	}

	if !ok {
		return p.fallback("access list is empty")
	}

	if pool.At(slot) == nil {
		return p.fallback("tracked frame %d is empty", slot)
	}

	return slot, nil
}

func (p *MRU) fallback(format string, args ...any) (int, error) {
	p.queue.remove(0)
	return 0, inconsistency(p.Name(), format, args...)
}
