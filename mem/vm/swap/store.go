// Package swap provides the backing store that holds evicted pages.
package swap

import (
	"fmt"

	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/sim"
)

// A Record is the representation of an evicted page.
type Record struct {
	PageID         vm.PageID
	PtrID          vm.PtrID
	PID            vm.PID
	LogicalAddress uint64
	DiskAddr       vm.DiskAddr
}

// Page rebuilds the page described by the record. The returned page is not
// resident anywhere yet.
func (r Record) Page() *vm.Page {
	return &vm.Page{
		ID:             r.PageID,
		PID:            r.PID,
		PtrID:          r.PtrID,
		LogicalAddress: r.LogicalAddress,
		Location:       vm.OnDiskAt(r.DiskAddr),
	}
}

// A Store keeps evicted page records grouped by the allocation that owns
// them. Records of an allocation keep the order in which they were stored.
type Store struct {
	diskAddrs *sim.SequenceGenerator

	ptrOrder  []vm.PtrID
	records   map[vm.PtrID][]Record
	pageToPtr map[vm.PageID]vm.PtrID
}

// NewStore creates an empty store that assigns disk addresses from diskAddrs.
func NewStore(diskAddrs *sim.SequenceGenerator) *Store {
	return &Store{
		diskAddrs: diskAddrs,
		records:   make(map[vm.PtrID][]Record),
		pageToPtr: make(map[vm.PageID]vm.PtrID),
	}
}

// Store records an evicted page under its allocation and returns the disk
// address assigned to it.
func (s *Store) Store(
	ptr vm.PtrID,
	pageID vm.PageID,
	logicalAddress uint64,
	pid vm.PID,
) vm.DiskAddr {
	s.pageMustNotBeStored(pageID)

	addr := vm.DiskAddr(s.diskAddrs.Next())

	if _, ok := s.records[ptr]; !ok {
		s.ptrOrder = append(s.ptrOrder, ptr)
	}

	s.records[ptr] = append(s.records[ptr], Record{
		PageID:         pageID,
		PtrID:          ptr,
		PID:            pid,
		LogicalAddress: logicalAddress,
		DiskAddr:       addr,
	})
	s.pageToPtr[pageID] = ptr

	return addr
}

// Retrieve removes the record of a page and returns it. The bool return value
// is false if the page is not in the store.
func (s *Store) Retrieve(pageID vm.PageID) (Record, bool) {
	ptr, found := s.pageToPtr[pageID]
	if !found {
		return Record{}, false
	}

	list := s.records[ptr]
	for i, r := range list {
		if r.PageID != pageID {
			continue
		}

		list = append(list[:i:i], list[i+1:]...)
		s.setRecords(ptr, list)
		delete(s.pageToPtr, pageID)

		return r, true
	}

	panic(fmt.Sprintf("page %d indexed under ptr %d but not stored", pageID, ptr))
}

// Discard drops every record of an allocation and returns them.
func (s *Store) Discard(ptr vm.PtrID) []Record {
	list := s.records[ptr]
	for _, r := range list {
		delete(s.pageToPtr, r.PageID)
	}

	s.setRecords(ptr, nil)

	return list
}

// Contains tells if the page is in the store.
func (s *Store) Contains(pageID vm.PageID) bool {
	_, found := s.pageToPtr[pageID]
	return found
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.pageToPtr)
}

// Records returns every record, grouped by allocation in the order the
// allocations first reached the store.
func (s *Store) Records() []Record {
	all := make([]Record, 0, s.Len())
	for _, ptr := range s.ptrOrder {
		all = append(all, s.records[ptr]...)
	}

	return all
}

func (s *Store) setRecords(ptr vm.PtrID, list []Record) {
	if len(list) > 0 {
		s.records[ptr] = list
		return
	}

	delete(s.records, ptr)

	for i, p := range s.ptrOrder {
		if p == ptr {
			s.ptrOrder = append(s.ptrOrder[:i], s.ptrOrder[i+1:]...)
			break
		}
	}
}

func (s *Store) pageMustNotBeStored(pageID vm.PageID) {
	if ptr, found := s.pageToPtr[pageID]; found {
		panic(fmt.Sprintf("page %d is already stored under ptr %d",
			pageID, ptr))
	}
}
