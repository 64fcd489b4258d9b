package vm

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("AllocationTable", func() {
	var table AllocationTable

	BeforeEach(func() {
		table = NewAllocationTable()
	})

	It("should insert and find", func() {
		table.Insert(Allocation{PtrID: 1, PID: 3, Pages: []PageID{1, 2}})

		alloc, found := table.Find(1)

		Expect(found).To(BeTrue())
		Expect(alloc.PID).To(Equal(PID(3)))
		Expect(alloc.Pages).To(Equal([]PageID{1, 2}))
		Expect(table.Len()).To(Equal(1))
	})

	It("should not share the page slice with the caller", func() {
		pages := []PageID{1, 2}
		table.Insert(Allocation{PtrID: 1, Pages: pages})

		pages[0] = 99

		alloc, _ := table.Find(1)
		Expect(alloc.Pages[0]).To(Equal(PageID(1)))
	})

	It("should panic when inserting an existing pointer", func() {
		table.Insert(Allocation{PtrID: 1})

		Expect(func() { table.Insert(Allocation{PtrID: 1}) }).To(Panic())
	})

	It("should remove", func() {
		table.Insert(Allocation{PtrID: 1, PID: 3})

		alloc, found := table.Remove(1)
		Expect(found).To(BeTrue())
		Expect(alloc.PtrID).To(Equal(PtrID(1)))

		_, found = table.Find(1)
		Expect(found).To(BeFalse())

		_, found = table.Remove(1)
		Expect(found).To(BeFalse())
	})

	It("should list pointers owned by a process in insertion order", func() {
		table.Insert(Allocation{PtrID: 4, PID: 1})
		table.Insert(Allocation{PtrID: 2, PID: 2})
		table.Insert(Allocation{PtrID: 7, PID: 1})

		Expect(table.OwnedBy(1)).To(Equal([]PtrID{4, 7}))
		Expect(table.OwnedBy(9)).To(BeEmpty())
	})

	It("should list all allocations in insertion order", func() {
		table.Insert(Allocation{PtrID: 2})
		table.Insert(Allocation{PtrID: 1})

		all := table.All()

		Expect(all).To(HaveLen(2))
		Expect(all[0].PtrID).To(Equal(PtrID(2)))
		Expect(all[1].PtrID).To(Equal(PtrID(1)))
	})
})

var _ = Describe("Page", func() {
	It("should round page counts up", func() {
		Expect(NumPagesFor(0)).To(Equal(uint64(0)))
		Expect(NumPagesFor(1)).To(Equal(uint64(1)))
		Expect(NumPagesFor(4096)).To(Equal(uint64(1)))
		Expect(NumPagesFor(4097)).To(Equal(uint64(2)))
	})

	It("should describe resident and disk pages", func() {
		p := &Page{ID: 3, PID: 1, PtrID: 2, Location: InFrame(5)}
		Expect(p.Describe()).To(ContainSubstring("in frame 5"))

		p.Location = OnDiskAt(9)
		Expect(p.Describe()).To(ContainSubstring("at disk 9"))
		Expect(p.Location.IsResident()).To(BeFalse())
		Expect(p.Location.Residency.String()).To(Equal("on-disk"))
	})
})
