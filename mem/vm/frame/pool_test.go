package frame

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/vmsim/mem/vm"
)

var _ = Describe("Pool", func() {
	var pool *Pool

	BeforeEach(func() {
		pool = NewPool(3)
	})

	It("should start empty", func() {
		slot, ok := pool.FirstFree()

		Expect(ok).To(BeTrue())
		Expect(slot).To(Equal(0))
		Expect(pool.Len()).To(Equal(3))
		Expect(pool.NumOccupied()).To(Equal(0))
		Expect(pool.IsFull()).To(BeFalse())
	})

	It("should panic on an empty pool size", func() {
		Expect(func() { NewPool(0) }).To(Panic())
	})

	It("should occupy a slot and update the page location", func() {
		page := &vm.Page{ID: 1}

		pool.Occupy(1, page)

		Expect(pool.At(1)).To(BeIdenticalTo(page))
		Expect(page.Location).To(Equal(vm.InFrame(1)))
		slot, found := pool.Find(1)
		Expect(found).To(BeTrue())
		Expect(slot).To(Equal(1))

		free, _ := pool.FirstFree()
		Expect(free).To(Equal(0))
	})

	It("should panic when occupying an occupied slot", func() {
		pool.Occupy(0, &vm.Page{ID: 1})

		Expect(func() { pool.Occupy(0, &vm.Page{ID: 2}) }).To(Panic())
	})

	It("should panic when a page is placed twice", func() {
		page := &vm.Page{ID: 1}
		pool.Occupy(0, page)

		Expect(func() { pool.Occupy(1, page) }).To(Panic())
	})

	It("should vacate", func() {
		page := &vm.Page{ID: 1}
		pool.Occupy(2, page)

		got := pool.Vacate(2)

		Expect(got).To(BeIdenticalTo(page))
		Expect(pool.At(2)).To(BeNil())
		_, found := pool.Find(1)
		Expect(found).To(BeFalse())
		Expect(pool.NumOccupied()).To(Equal(0))
	})

	It("should panic when vacating an empty slot", func() {
		Expect(func() { pool.Vacate(0) }).To(Panic())
	})

	It("should report full", func() {
		for i := 0; i < 3; i++ {
			pool.Occupy(i, &vm.Page{ID: vm.PageID(i + 1)})
		}

		_, ok := pool.FirstFree()

		Expect(ok).To(BeFalse())
		Expect(pool.IsFull()).To(BeTrue())
	})

	It("should return a copy of the slots", func() {
		pool.Occupy(1, &vm.Page{ID: 1})

		pages := pool.Pages()
		pages[1] = nil

		Expect(pool.At(1)).NotTo(BeNil())
		Expect(pool.Pages()[0]).To(BeNil())
	})
})
