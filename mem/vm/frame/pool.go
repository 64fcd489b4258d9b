// Package frame provides the pool of physical frames that resident pages
// occupy.
package frame

import (
	"fmt"

	"github.com/sarchlab/vmsim/mem/vm"
)

// A Pool is a fixed number of frame slots. Each slot is either empty or holds
// exactly one page. The index of a slot is the physical address of the page
// in it.
type Pool struct {
	slots       []*vm.Page
	numOccupied int
	index       map[vm.PageID]int
}

// NewPool creates a pool with numFrames empty slots.
func NewPool(numFrames int) *Pool {
	if numFrames <= 0 {
		panic("a frame pool needs at least one frame")
	}

	p := &Pool{}
	p.slots = make([]*vm.Page, numFrames)
	p.index = make(map[vm.PageID]int)

	return p
}

// Len returns the number of slots.
func (p *Pool) Len() int {
	return len(p.slots)
}

// NumOccupied returns the number of slots holding a page.
func (p *Pool) NumOccupied() int {
	return p.numOccupied
}

// IsFull tells if no slot is free.
func (p *Pool) IsFull() bool {
	return p.numOccupied == len(p.slots)
}

// FirstFree returns the lowest empty slot.
func (p *Pool) FirstFree() (int, bool) {
	if p.IsFull() {
		return 0, false
	}

	for i, page := range p.slots {
		if page == nil {
			return i, true
		}
	}

	return 0, false
}

// At returns the page in the slot, or nil if the slot is empty.
func (p *Pool) At(slot int) *vm.Page {
	return p.slots[slot]
}

// Find returns the slot that holds the page.
func (p *Pool) Find(id vm.PageID) (int, bool) {
	slot, found := p.index[id]
	return slot, found
}

// Occupy places the page in an empty slot and marks it resident there.
func (p *Pool) Occupy(slot int, page *vm.Page) {
	p.slotMustBeEmpty(slot)
	p.pageMustNotBeResident(page.ID)

	page.Location = vm.InFrame(slot)
	p.slots[slot] = page
	p.index[page.ID] = slot
	p.numOccupied++
}

// Vacate empties the slot and returns the page that was in it.
func (p *Pool) Vacate(slot int) *vm.Page {
	page := p.slots[slot]
	if page == nil {
		panic(fmt.Sprintf("frame %d is empty", slot))
	}

	p.slots[slot] = nil
	delete(p.index, page.ID)
	p.numOccupied--

	return page
}

// Pages returns the slots in order. Empty slots are nil. The returned pages
// must not be modified.
func (p *Pool) Pages() []*vm.Page {
	pages := make([]*vm.Page, len(p.slots))
	copy(pages, p.slots)

	return pages
}

func (p *Pool) slotMustBeEmpty(slot int) {
	if p.slots[slot] != nil {
		panic(fmt.Sprintf("frame %d is occupied by page %d",
			slot, p.slots[slot].ID))
	}
}

func (p *Pool) pageMustNotBeResident(id vm.PageID) {
	if slot, found := p.index[id]; found {
		panic(fmt.Sprintf("page %d is already in frame %d", id, slot))
	}
}
