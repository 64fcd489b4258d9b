// Package mmu provides the memory management unit that dispatches new, use,
// delete, and kill commands against a frame pool and a backing store.
package mmu

import (
	"fmt"

	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/frame"
	"github.com/sarchlab/vmsim/mem/vm/replacement"
	"github.com/sarchlab/vmsim/mem/vm/swap"
	"github.com/sarchlab/vmsim/mem/vm/trace"
	"github.com/sarchlab/vmsim/sim"
)

// Comp is the memory management unit. It owns the frame pool, the backing
// store, the allocation table, and the replacement policy. It is not safe for
// concurrent use.
type Comp struct {
	*sim.HookableBase

	name string

	pool   *frame.Pool
	store  *swap.Store
	allocs vm.AllocationTable
	policy replacement.Policy

	pageIDs   *sim.SequenceGenerator
	ptrIDs    *sim.SequenceGenerator
	diskAddrs *sim.SequenceGenerator

	acct Accounting

	// cursor counts the page references made since the last Precompute.
	cursor int

	pagesCreated uint64
	pagesFreed   uint64
}

// Name returns the name of the component.
func (c *Comp) Name() string {
	return c.name
}

// Policy returns the replacement policy in use.
func (c *Comp) Policy() replacement.Policy {
	return c.policy
}

// NumFrames returns the size of the frame pool.
func (c *Comp) NumFrames() int {
	return c.pool.Len()
}

// Accounting returns a copy of the synthetic clock and counters.
func (c *Comp) Accounting() Accounting {
	return c.acct
}

// Allocations returns the live allocations in creation order.
func (c *Comp) Allocations() []vm.Allocation {
	return c.allocs.All()
}

// Apply validates a command and dispatches it. Rejected commands leave the
// state untouched.
func (c *Comp) Apply(cmd trace.Command) error {
	c.InvokeHook(sim.HookCtx{Domain: c, Pos: HookPosCommandStart, Item: cmd})

	res := Result{Command: cmd}
	res.Err = cmd.Validate()

	if res.Err == nil {
		switch cmd.Name {
		case trace.NameNew:
			res.Ptr, res.Err = c.New(cmd.PID(), cmd.Size())
		case trace.NameUse:
			res.Err = c.Use(cmd.Ptr())
		case trace.NameDelete:
			res.Err = c.Delete(cmd.Ptr())
			if res.Err == nil {
				res.Freed = []vm.PtrID{cmd.Ptr()}
			}
		case trace.NameKill:
			res.Freed = c.kill(cmd.PID())
		}
	}

	c.InvokeHook(sim.HookCtx{Domain: c, Pos: HookPosCommandEnd, Item: res})

	return res.Err
}

// Precompute hands the reference string of the given commands to a
// look-ahead policy and rewinds the reference cursor. It returns the
// reference string so that callers can inspect it. Policies without
// look-ahead ignore it.
func (c *Comp) Precompute(cmds []trace.Command) trace.ReferenceString {
	p := trace.NewPredictor(
		c.allocs.All(),
		vm.PtrID(c.ptrIDs.Peek()),
		vm.PageID(c.pageIDs.Peek()),
	)
	refs := p.Build(cmds)

	c.cursor = 0
	if la, ok := c.policy.(replacement.Lookahead); ok {
		la.Precompute(refs)
	}

	return refs
}

// New allocates ceil(size/PageSize) pages for the process and returns the
// pointer to the allocation. When the pool is full, each page takes the slot
// of an evicted page.
func (c *Comp) New(pid vm.PID, size uint64) (vm.PtrID, error) {
	alloc := vm.Allocation{
		PtrID: vm.PtrID(c.ptrIDs.Next()),
		PID:   pid,
	}

	n := vm.NumPagesFor(size)
	for i := uint64(0); i < n; i++ {
		slot := c.claimSlot()

		page := &vm.Page{
			ID:             vm.PageID(c.pageIDs.Next()),
			PID:            pid,
			PtrID:          alloc.PtrID,
			LogicalAddress: i,
		}
		c.pool.Occupy(slot, page)
		c.policy.Admit(slot, page, replacement.AdmitNew)
		c.pagesCreated++

		alloc.Pages = append(alloc.Pages, page.ID)
		c.invokePageHook(HookPosAllocate, page, slot)
	}

	c.allocs.Insert(alloc)

	return alloc.PtrID, nil
}

// Use touches every page of the allocation in order. Resident pages are hits.
// Pages on disk are faults and are swapped back in.
func (c *Comp) Use(ptr vm.PtrID) error {
	alloc, found := c.allocs.Find(ptr)
	if !found {
		return fmt.Errorf("use(%d): %w", ptr, vm.ErrUnknownPointer)
	}

	for _, id := range alloc.Pages {
		if slot, ok := c.pool.Find(id); ok {
			page := c.pool.At(slot)
			c.acct.hit()
			c.policy.Access(slot, page)
			c.invokePageHook(HookPosHit, page, slot)
		} else {
			c.acct.fault()
			c.swapIn(id)
		}

		c.cursor++
	}

	return nil
}

// Delete frees every page of the allocation, wherever it lives, and forgets
// the pointer.
func (c *Comp) Delete(ptr vm.PtrID) error {
	alloc, found := c.allocs.Remove(ptr)
	if !found {
		return fmt.Errorf("delete(%d): %w", ptr, vm.ErrUnknownPointer)
	}

	for _, id := range alloc.Pages {
		slot, ok := c.pool.Find(id)
		if !ok {
			continue
		}

		page := c.pool.Vacate(slot)
		c.policy.Remove(slot, page)
		c.pagesFreed++
		c.invokePageHook(HookPosFree, page, slot)
	}

	for _, r := range c.store.Discard(ptr) {
		c.pagesFreed++
		c.invokePageHook(HookPosFree, r.Page(), -1)
	}

	return nil
}

// Kill deletes every allocation of the process. It does nothing if the
// process owns no allocation.
func (c *Comp) Kill(pid vm.PID) error {
	c.kill(pid)
	return nil
}

func (c *Comp) kill(pid vm.PID) []vm.PtrID {
	ptrs := c.allocs.OwnedBy(pid)
	for _, ptr := range ptrs {
		if err := c.Delete(ptr); err != nil {
			panic(err)
		}
	}

	return ptrs
}

// claimSlot returns a free slot, evicting a victim if there is none.
func (c *Comp) claimSlot() int {
	if slot, ok := c.pool.FirstFree(); ok {
		return slot
	}

	if la, ok := c.policy.(replacement.Lookahead); ok {
		la.Seek(c.cursor)
	}

	slot, err := c.policy.SelectVictim(c.pool)
	if err != nil || slot < 0 || slot >= c.pool.Len() {
		c.warn(slot, err)
		slot = 0
	}

	if c.pool.At(slot) != nil {
		c.evict(slot)
	}

	return slot
}

func (c *Comp) warn(slot int, err error) {
	if err == nil {
		err = fmt.Errorf("%s returned slot %d: %w",
			c.policy.Name(), slot, vm.ErrPoolExhaustionInconsistency)
	}

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    HookPosWarning,
		Item:   err,
		Detail: "falling back to slot 0",
	})
}

// evict moves the page in the slot to the backing store.
func (c *Comp) evict(slot int) {
	page := c.pool.Vacate(slot)
	addr := c.store.Store(page.PtrID, page.ID, page.LogicalAddress, page.PID)
	page.Location = vm.OnDiskAt(addr)
	page.ReferenceBit = false

	c.acct.transfer()
	c.acct.Evictions++
	c.invokePageHook(HookPosEvict, page, slot)
}

// swapIn brings a stored page back into a frame.
func (c *Comp) swapIn(id vm.PageID) {
	rec, found := c.store.Retrieve(id)
	if !found {
		panic(fmt.Sprintf("page %d is neither resident nor stored", id))
	}

	c.invokePageHook(HookPosFault, rec.Page(), -1)

	slot := c.swapInSlot()
	page := rec.Page()
	c.pool.Occupy(slot, page)
	c.policy.Admit(slot, page, replacement.AdmitSwapIn)

	c.acct.transfer()
	c.acct.SwapIns++
	c.invokePageHook(HookPosSwapIn, page, slot)
}

func (c *Comp) swapInSlot() int {
	placer, ok := c.policy.(replacement.SwapInPlacer)
	if !ok {
		return c.claimSlot()
	}

	slot, ok := placer.PlaceSwapIn(c.pool)
	if !ok {
		return c.claimSlot()
	}

	if c.pool.At(slot) != nil {
		c.evict(slot)
	}

	return slot
}

// CurrentTime returns the synthetic clock.
func (c *Comp) CurrentTime() uint64 {
	return c.acct.Clock
}
