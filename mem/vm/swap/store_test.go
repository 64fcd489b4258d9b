package swap

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/sim"
)

var _ = Describe("Store", func() {
	var store *Store

	BeforeEach(func() {
		store = NewStore(sim.NewSequenceGenerator(1))
	})

	It("should assign increasing disk addresses", func() {
		a := store.Store(1, 10, 0, 7)
		b := store.Store(1, 11, 1, 7)
		c := store.Store(2, 20, 0, 8)

		Expect(a).To(Equal(vm.DiskAddr(1)))
		Expect(b).To(Equal(vm.DiskAddr(2)))
		Expect(c).To(Equal(vm.DiskAddr(3)))
		Expect(store.Len()).To(Equal(3))
	})

	It("should retrieve and remove a record", func() {
		store.Store(1, 10, 0, 7)
		store.Store(1, 11, 1, 7)

		r, found := store.Retrieve(11)

		Expect(found).To(BeTrue())
		Expect(r.PageID).To(Equal(vm.PageID(11)))
		Expect(r.PtrID).To(Equal(vm.PtrID(1)))
		Expect(r.LogicalAddress).To(Equal(uint64(1)))
		Expect(r.PID).To(Equal(vm.PID(7)))
		Expect(r.DiskAddr).To(Equal(vm.DiskAddr(2)))
		Expect(store.Contains(11)).To(BeFalse())
		Expect(store.Contains(10)).To(BeTrue())

		_, found = store.Retrieve(11)
		Expect(found).To(BeFalse())
	})

	It("should not find unknown pages", func() {
		_, found := store.Retrieve(42)
		Expect(found).To(BeFalse())
	})

	It("should panic when storing a page twice", func() {
		store.Store(1, 10, 0, 7)

		Expect(func() { store.Store(1, 10, 0, 7) }).To(Panic())
	})

	It("should discard all records of an allocation", func() {
		store.Store(1, 10, 0, 7)
		store.Store(2, 20, 0, 8)
		store.Store(1, 11, 1, 7)

		dropped := store.Discard(1)

		Expect(dropped).To(HaveLen(2))
		Expect(store.Len()).To(Equal(1))
		Expect(store.Contains(10)).To(BeFalse())
		Expect(store.Contains(20)).To(BeTrue())
	})

	It("should list records grouped by allocation", func() {
		store.Store(2, 20, 0, 8)
		store.Store(1, 10, 0, 7)
		store.Store(2, 21, 1, 8)

		ids := []vm.PageID{}
		for _, r := range store.Records() {
			ids = append(ids, r.PageID)
		}

		Expect(ids).To(Equal([]vm.PageID{20, 21, 10}))
	})

	It("should forget an allocation once its last record leaves", func() {
		store.Store(2, 20, 0, 8)
		store.Store(1, 10, 0, 7)
		store.Retrieve(20)
		store.Store(2, 21, 1, 8)

		ids := []vm.PageID{}
		for _, r := range store.Records() {
			ids = append(ids, r.PageID)
		}

		Expect(ids).To(Equal([]vm.PageID{10, 21}))
	})

	It("should rebuild a page from a record", func() {
		store.Store(3, 30, 2, 9)
		r, _ := store.Retrieve(30)

		p := r.Page()

		Expect(p.ID).To(Equal(vm.PageID(30)))
		Expect(p.PtrID).To(Equal(vm.PtrID(3)))
		Expect(p.LogicalAddress).To(Equal(uint64(2)))
		Expect(p.Location.IsResident()).To(BeFalse())
	})
})
