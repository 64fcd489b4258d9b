package mmu

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/replacement"
	"github.com/sarchlab/vmsim/mem/vm/trace"
	"github.com/sarchlab/vmsim/sim"
	"go.uber.org/mock/gomock"
)

type hookRecorder struct {
	positions []*sim.HookPos
	items     []interface{}
}

func (r *hookRecorder) Func(ctx sim.HookCtx) {
	r.positions = append(r.positions, ctx.Pos)
	r.items = append(r.items, ctx.Item)
}

func (r *hookRecorder) count(pos *sim.HookPos) int {
	n := 0
	for _, p := range r.positions {
		if p == pos {
			n++
		}
	}

	return n
}

var _ = Describe("MMU", func() {
	var (
		mockCtrl *gomock.Controller
		policy   *MockPolicy
		hooks    *hookRecorder
		mmu      *Comp
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		policy = NewMockPolicy(mockCtrl)
		policy.EXPECT().Name().Return("mock").AnyTimes()
		hooks = &hookRecorder{}

		mmu = MakeBuilder().
			WithNumFrames(2).
			WithPolicy(policy).
			WithHook(hooks).
			Build("MMU")
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Context("new", func() {
		It("should place pages in free slots", func() {
			policy.EXPECT().Admit(0, gomock.Any(), replacement.AdmitNew)
			policy.EXPECT().Admit(1, gomock.Any(), replacement.AdmitNew)

			ptr, err := mmu.New(3, 5000)

			Expect(err).NotTo(HaveOccurred())
			Expect(ptr).To(Equal(vm.PtrID(1)))
			Expect(mmu.pool.At(0).ID).To(Equal(vm.PageID(1)))
			Expect(mmu.pool.At(0).LogicalAddress).To(Equal(uint64(0)))
			Expect(mmu.pool.At(1).ID).To(Equal(vm.PageID(2)))
			Expect(mmu.pool.At(1).LogicalAddress).To(Equal(uint64(1)))
			Expect(mmu.pool.At(1).PID).To(Equal(vm.PID(3)))
			Expect(mmu.Accounting()).To(Equal(Accounting{}))
			Expect(hooks.count(HookPosAllocate)).To(Equal(2))
		})

		It("should create an empty allocation for size 0", func() {
			ptr, err := mmu.New(1, 0)

			Expect(err).NotTo(HaveOccurred())
			alloc, found := mmu.allocs.Find(ptr)
			Expect(found).To(BeTrue())
			Expect(alloc.Pages).To(BeEmpty())
			Expect(mmu.pool.NumOccupied()).To(Equal(0))
		})

		It("should evict the victim when the pool is full", func() {
			policy.EXPECT().Admit(gomock.Any(), gomock.Any(), gomock.Any()).
				Times(3)
			policy.EXPECT().SelectVictim(mmu.pool).Return(1, nil)

			_, _ = mmu.New(1, 8192)
			_, _ = mmu.New(2, 1)

			Expect(mmu.pool.At(1).ID).To(Equal(vm.PageID(3)))
			Expect(mmu.store.Contains(2)).To(BeTrue())
			rec, _ := mmu.store.Retrieve(2)
			Expect(rec.DiskAddr).To(Equal(vm.DiskAddr(1)))
			Expect(rec.PtrID).To(Equal(vm.PtrID(1)))
			Expect(rec.LogicalAddress).To(Equal(uint64(1)))
			Expect(mmu.Accounting().Clock).To(Equal(uint64(5)))
			Expect(mmu.Accounting().ThrashingTime).To(Equal(uint64(5)))
			Expect(mmu.Accounting().Evictions).To(Equal(uint64(1)))
			Expect(hooks.count(HookPosEvict)).To(Equal(1))
		})

		It("should fall back to slot 0 when the policy disagrees", func() {
			policy.EXPECT().Admit(gomock.Any(), gomock.Any(), gomock.Any()).
				Times(3)
			policy.EXPECT().SelectVictim(mmu.pool).
				Return(0, vm.ErrPoolExhaustionInconsistency)

			_, _ = mmu.New(1, 8192)
			_, err := mmu.New(2, 1)

			Expect(err).NotTo(HaveOccurred())
			Expect(mmu.pool.At(0).ID).To(Equal(vm.PageID(3)))
			Expect(mmu.store.Contains(1)).To(BeTrue())
			Expect(hooks.count(HookPosWarning)).To(Equal(1))
		})

		It("should fall back to slot 0 on an out-of-range victim", func() {
			policy.EXPECT().Admit(gomock.Any(), gomock.Any(), gomock.Any()).
				Times(3)
			policy.EXPECT().SelectVictim(mmu.pool).Return(7, nil)

			_, _ = mmu.New(1, 8192)
			_, _ = mmu.New(2, 1)

			Expect(mmu.pool.At(0).ID).To(Equal(vm.PageID(3)))
			Expect(hooks.count(HookPosWarning)).To(Equal(1))
			Expect(hooks.positions[2]).To(Equal(HookPosWarning))
			Expect(hooks.items[2]).To(
				MatchError(vm.ErrPoolExhaustionInconsistency))
		})
	})

	Context("use", func() {
		It("should report unknown pointers", func() {
			err := mmu.Use(9)

			Expect(errors.Is(err, vm.ErrUnknownPointer)).To(BeTrue())
			Expect(mmu.Accounting()).To(Equal(Accounting{}))
		})

		It("should count hits", func() {
			policy.EXPECT().Admit(gomock.Any(), gomock.Any(), gomock.Any()).
				Times(2)
			ptr, _ := mmu.New(1, 8192)

			policy.EXPECT().Access(0, mmu.pool.At(0))
			policy.EXPECT().Access(1, mmu.pool.At(1))

			Expect(mmu.Use(ptr)).To(Succeed())
			Expect(mmu.Accounting().Clock).To(Equal(uint64(2)))
			Expect(mmu.Accounting().ThrashingTime).To(Equal(uint64(0)))
			Expect(mmu.Accounting().Hits).To(Equal(uint64(2)))
		})

		It("should swap in faulted pages", func() {
			policy.EXPECT().Admit(gomock.Any(), gomock.Any(),
				replacement.AdmitNew).Times(3)
			policy.EXPECT().SelectVictim(mmu.pool).Return(0, nil)
			ptr1, _ := mmu.New(1, 4096)
			_, _ = mmu.New(1, 8192)
			Expect(mmu.store.Contains(1)).To(BeTrue())

			policy.EXPECT().SelectVictim(mmu.pool).Return(1, nil)
			policy.EXPECT().Admit(1, gomock.Any(), replacement.AdmitSwapIn).
				Do(func(_ int, page *vm.Page, _ replacement.AdmitReason) {
					Expect(page.ID).To(Equal(vm.PageID(1)))
					Expect(page.Location).To(Equal(vm.InFrame(1)))
				})

			Expect(mmu.Use(ptr1)).To(Succeed())
			Expect(mmu.store.Contains(1)).To(BeFalse())
			Expect(mmu.store.Contains(2)).To(BeTrue())
			Expect(mmu.Accounting()).To(Equal(Accounting{
				Clock:         20,
				ThrashingTime: 20,
				Faults:        1,
				Evictions:     2,
				SwapIns:       1,
			}))
			Expect(hooks.count(HookPosFault)).To(Equal(1))
			Expect(hooks.count(HookPosSwapIn)).To(Equal(1))
		})
	})

	Context("delete", func() {
		It("should report unknown pointers", func() {
			err := mmu.Delete(3)
			Expect(errors.Is(err, vm.ErrUnknownPointer)).To(BeTrue())
		})

		It("should free resident and stored pages", func() {
			policy.EXPECT().Admit(gomock.Any(), gomock.Any(), gomock.Any()).
				Times(3)
			policy.EXPECT().SelectVictim(mmu.pool).Return(0, nil)
			ptr, _ := mmu.New(1, 8192)
			_, _ = mmu.New(2, 10)

			policy.EXPECT().Remove(1, gomock.Any())

			Expect(mmu.Delete(ptr)).To(Succeed())
			Expect(mmu.pool.At(1)).To(BeNil())
			Expect(mmu.store.Len()).To(Equal(0))
			Expect(mmu.Use(ptr)).To(MatchError(vm.ErrUnknownPointer))
			Expect(hooks.count(HookPosFree)).To(Equal(2))
			Expect(mmu.CheckConsistency()).To(Succeed())
		})
	})

	Context("apply", func() {
		It("should reject malformed commands without changing state", func() {
			err := mmu.Apply(trace.Command{Name: "new", Args: []int64{1}})

			Expect(errors.Is(err, vm.ErrMalformedCommand)).To(BeTrue())
			Expect(mmu.allocs.Len()).To(Equal(0))
			Expect(hooks.count(HookPosCommandStart)).To(Equal(1))
			Expect(hooks.count(HookPosCommandEnd)).To(Equal(1))
		})

		It("should report the created pointer", func() {
			policy.EXPECT().Admit(gomock.Any(), gomock.Any(), gomock.Any())

			Expect(mmu.Apply(trace.NewCmd(4, 100))).To(Succeed())

			res := hooks.items[len(hooks.items)-1].(Result)
			Expect(res.Ptr).To(Equal(vm.PtrID(1)))
			Expect(res.Describe()).To(Equal("new(4, 100) -> ptr 1"))
		})

		It("should report the pointers a kill freed", func() {
			policy.EXPECT().Admit(gomock.Any(), gomock.Any(), gomock.Any()).
				Times(2)
			policy.EXPECT().Remove(gomock.Any(), gomock.Any()).Times(2)
			_, _ = mmu.New(5, 1)
			_, _ = mmu.New(5, 1)

			Expect(mmu.Apply(trace.KillCmd(5))).To(Succeed())

			res := hooks.items[len(hooks.items)-1].(Result)
			Expect(res.Freed).To(Equal([]vm.PtrID{1, 2}))
		})

		It("should treat killing an unknown process as a no-op", func() {
			Expect(mmu.Apply(trace.KillCmd(42))).To(Succeed())
		})
	})
})
