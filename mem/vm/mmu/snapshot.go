package mmu

import (
	"fmt"
	"sort"

	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/replacement"
	"github.com/sarchlab/vmsim/mem/vm/swap"
)

// PageView is the read-only view of a page in a snapshot. PhysicalAddress is
// -1 for pages on disk and DiskAddress is 0 for resident pages.
type PageView struct {
	PageID          vm.PageID   `json:"page_id"`
	PID             vm.PID      `json:"pid"`
	PtrID           vm.PtrID    `json:"ptr_id"`
	Resident        bool        `json:"resident"`
	LogicalAddress  uint64      `json:"logical_address"`
	PhysicalAddress int         `json:"physical_address"`
	DiskAddress     vm.DiskAddr `json:"disk_address"`
	ReferenceBit    bool        `json:"reference_bit"`
}

func viewOfPage(p *vm.Page) PageView {
	v := PageView{
		PageID:          p.ID,
		PID:             p.PID,
		PtrID:           p.PtrID,
		Resident:        p.Location.IsResident(),
		LogicalAddress:  p.LogicalAddress,
		PhysicalAddress: -1,
		ReferenceBit:    p.ReferenceBit,
	}

	if v.Resident {
		v.PhysicalAddress = p.Location.Frame
	} else {
		v.DiskAddress = p.Location.DiskAddr
	}

	return v
}

func viewOfRecord(r swap.Record) PageView {
	return PageView{
		PageID:          r.PageID,
		PID:             r.PID,
		PtrID:           r.PtrID,
		LogicalAddress:  r.LogicalAddress,
		PhysicalAddress: -1,
		DiskAddress:     r.DiskAddr,
	}
}

// Snapshot is a copy of the state of the memory management unit. Frames has
// one entry per slot, nil for empty slots. Disk lists the stored pages grouped
// by pointer.
type Snapshot struct {
	Policy      string      `json:"policy"`
	Frames      []*PageView `json:"frames"`
	Disk        []PageView  `json:"disk"`
	Accounting  Accounting  `json:"accounting"`
	Allocations int         `json:"allocations"`

	// PolicyOrder is the slot ordering kept by queue based policies.
	PolicyOrder []int `json:"policy_order,omitempty"`
}

// Snapshot copies the current state. Later commands do not change the
// returned value.
func (c *Comp) Snapshot() Snapshot {
	s := Snapshot{
		Policy:      c.policy.Name(),
		Frames:      make([]*PageView, c.pool.Len()),
		Accounting:  c.acct,
		Allocations: c.allocs.Len(),
	}

	for slot, page := range c.pool.Pages() {
		if page == nil {
			continue
		}

		v := viewOfPage(page)
		s.Frames[slot] = &v
	}

	records := c.store.Records()
	s.Disk = make([]PageView, 0, len(records))
	for _, r := range records {
		s.Disk = append(s.Disk, viewOfRecord(r))
	}

	if in, ok := c.policy.(replacement.Inspector); ok {
		s.PolicyOrder = in.Order()
	}

	return s
}

// Resident returns the number of occupied frames.
func (s Snapshot) Resident() int {
	n := 0
	for _, f := range s.Frames {
		if f != nil {
			n++
		}
	}

	return n
}

// CheckConsistency verifies that every live page is either in exactly one
// frame or in the backing store, that no freed page lingers, and that the
// ordering state of a queue based policy covers exactly the occupied slots.
func (c *Comp) CheckConsistency() error {
	live := make(map[vm.PageID]bool)
	for _, a := range c.allocs.All() {
		for _, id := range a.Pages {
			live[id] = true
		}
	}

	seen := make(map[vm.PageID]bool)
	occupied := make(map[int]bool)

	for slot, page := range c.pool.Pages() {
		if page == nil {
			continue
		}

		occupied[slot] = true

		if err := c.checkResidentPage(slot, page, live, seen); err != nil {
			return err
		}
	}

	for _, r := range c.store.Records() {
		if seen[r.PageID] {
			return fmt.Errorf("page %d is both resident and stored", r.PageID)
		}

		if !live[r.PageID] {
			return fmt.Errorf("stored page %d belongs to no allocation", r.PageID)
		}

		seen[r.PageID] = true
	}

	if len(seen) != len(live) {
		return fmt.Errorf("%d live pages, %d found in frames or on disk",
			len(live), len(seen))
	}

	if uint64(len(live)) != c.pagesCreated-c.pagesFreed {
		return fmt.Errorf("%d pages created, %d freed, %d live",
			c.pagesCreated, c.pagesFreed, len(live))
	}

	return c.checkPolicyOrder(occupied)
}

func (c *Comp) checkResidentPage(
	slot int,
	page *vm.Page,
	live, seen map[vm.PageID]bool,
) error {
	if seen[page.ID] {
		return fmt.Errorf("page %d is in more than one frame", page.ID)
	}

	if !live[page.ID] {
		return fmt.Errorf("page %d in frame %d belongs to no allocation",
			page.ID, slot)
	}

	if !page.Location.IsResident() || page.Location.Frame != slot {
		return fmt.Errorf("page %d in frame %d reports location %+v",
			page.ID, slot, page.Location)
	}

	seen[page.ID] = true

	return nil
}

func (c *Comp) checkPolicyOrder(occupied map[int]bool) error {
	in, ok := c.policy.(replacement.Inspector)
	if !ok {
		return nil
	}

	order := in.Order()
	sorted := append([]int(nil), order...)
	sort.Ints(sorted)

	if len(sorted) != len(occupied) {
		return fmt.Errorf("%s tracks %d slots, %d occupied",
			c.policy.Name(), len(sorted), len(occupied))
	}

	for i, slot := range sorted {
		if !occupied[slot] || (i > 0 && sorted[i-1] == slot) {
			return fmt.Errorf("%s tracks slots %v, occupied %v",
				c.policy.Name(), order, occupied)
		}
	}

	return nil
}
