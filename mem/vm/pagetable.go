package vm

import (
	"container/list"
)

// An Allocation is a named group of pages created by a single allocation
// request. Its pages are freed together.
type Allocation struct {
	PtrID PtrID
	PID   PID
	Pages []PageID
}

// An AllocationTable holds the allocations that are alive. It remembers the
// order in which allocations are inserted.
type AllocationTable interface {
	Insert(alloc Allocation)
	Remove(ptr PtrID) (Allocation, bool)
	Find(ptr PtrID) (Allocation, bool)
	OwnedBy(pid PID) []PtrID
	All() []Allocation
	Len() int
}

// NewAllocationTable creates an empty AllocationTable.
func NewAllocationTable() AllocationTable {
	return &allocationTableImpl{
		entries:      list.New(),
		entriesTable: make(map[PtrID]*list.Element),
	}
}

type allocationTableImpl struct {
	entries      *list.List
	entriesTable map[PtrID]*list.Element
}

// Insert puts a new allocation into the table.
func (t *allocationTableImpl) Insert(alloc Allocation) {
	t.allocationMustNotExist(alloc.PtrID)

	pages := make([]PageID, len(alloc.Pages))
	copy(pages, alloc.Pages)
	alloc.Pages = pages

	elem := t.entries.PushBack(alloc)
	t.entriesTable[alloc.PtrID] = elem
}

// Remove deletes the allocation and returns it. The bool return value
// indicates if the allocation was found.
func (t *allocationTableImpl) Remove(ptr PtrID) (Allocation, bool) {
	elem, found := t.entriesTable[ptr]
	if !found {
		return Allocation{}, false
	}

	t.entries.Remove(elem)
	delete(t.entriesTable, ptr)

	return elem.Value.(Allocation), true
}

// Find returns the allocation with the given pointer.
func (t *allocationTableImpl) Find(ptr PtrID) (Allocation, bool) {
	elem, found := t.entriesTable[ptr]
	if found {
		return elem.Value.(Allocation), true
	}

	return Allocation{}, false
}

// OwnedBy lists the pointers owned by a process, oldest first.
func (t *allocationTableImpl) OwnedBy(pid PID) []PtrID {
	var ptrs []PtrID

	for e := t.entries.Front(); e != nil; e = e.Next() {
		alloc := e.Value.(Allocation)
		if alloc.PID == pid {
			ptrs = append(ptrs, alloc.PtrID)
		}
	}

	return ptrs
}

// All returns every allocation, oldest first.
func (t *allocationTableImpl) All() []Allocation {
	allocs := make([]Allocation, 0, t.entries.Len())
	for e := t.entries.Front(); e != nil; e = e.Next() {
		allocs = append(allocs, e.Value.(Allocation))
	}

	return allocs
}

func (t *allocationTableImpl) Len() int {
	return t.entries.Len()
}

func (t *allocationTableImpl) allocationMustNotExist(ptr PtrID) {
	_, found := t.entriesTable[ptr]
	if found {
		panic("allocation exist")
	}
}
