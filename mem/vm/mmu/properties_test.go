package mmu

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/replacement"
	"github.com/sarchlab/vmsim/mem/vm/trace"
)

func randomScript(rng *rand.Rand, n int) []trace.Command {
	cmds := make([]trace.Command, 0, n)
	numPtrs := 0

	for len(cmds) < n {
		switch op := rng.Intn(10); {
		case op < 3 || numPtrs == 0:
			pid := vm.PID(rng.Intn(4) + 1)
			size := uint64(rng.Int63n(3*vm.PageSize + 1))
			cmds = append(cmds, trace.NewCmd(pid, size))
			numPtrs++
		case op < 8:
			cmds = append(cmds, trace.UseCmd(vm.PtrID(rng.Intn(numPtrs+1)+1)))
		case op < 9:
			cmds = append(cmds, trace.DeleteCmd(vm.PtrID(rng.Intn(numPtrs)+1)))
		default:
			cmds = append(cmds, trace.KillCmd(vm.PID(rng.Intn(4)+1)))
		}
	}

	return cmds
}

func runScript(mmu *Comp, cmds []trace.Command) {
	mmu.Precompute(cmds)
	for _, cmd := range cmds {
		_ = mmu.Apply(cmd)
	}
}

var _ = Describe("MMU properties", func() {
	DescribeTable("keeps pages unique, conserved and within capacity",
		func(kind replacement.Kind) {
			cmds := randomScript(rand.New(rand.NewSource(11)), 300)
			mmu := MakeBuilder().
				WithNumFrames(4).
				WithPolicyKind(kind).
				WithSeed(3).
				Build("MMU")
			mmu.Precompute(cmds)

			for _, cmd := range cmds {
				wasFull := mmu.pool.IsFull()
				before := mmu.Accounting().Evictions

				_ = mmu.Apply(cmd)

				Expect(mmu.CheckConsistency()).To(Succeed(), cmd.String())
				Expect(mmu.pool.NumOccupied()).To(BeNumerically("<=", 4))

				if wasFull && cmd.Name == trace.NameNew {
					pages := vm.NumPagesFor(cmd.Size())
					Expect(mmu.Accounting().Evictions - before).
						To(Equal(pages), cmd.String())
				}
			}

			acct := mmu.Accounting()
			Expect(acct.Clock).To(Equal(acct.Hits*HitTime +
				acct.Faults*FaultTime +
				(acct.Evictions+acct.SwapIns)*TransferTime))
			Expect(acct.ThrashingTime).To(Equal(acct.Clock - acct.Hits))
		},
		Entry("opt", replacement.KindOptimal),
		Entry("opt-countdown", replacement.KindOptimalCountdown),
		Entry("mru", replacement.KindMRU),
		Entry("mru-back", replacement.KindMRUBack),
		Entry("random", replacement.KindRandom),
		Entry("fifo", replacement.KindFIFO),
		Entry("second-chance", replacement.KindSecondChance),
	)

	It("should keep consistency with random swap-in placement", func() {
		cmds := randomScript(rand.New(rand.NewSource(5)), 300)
		mmu := MakeBuilder().
			WithNumFrames(4).
			WithPolicyKind(replacement.KindRandom).
			WithSeed(9).
			WithRandomEvictOnSwapIn(true).
			Build("MMU")

		for _, cmd := range cmds {
			_ = mmu.Apply(cmd)
			Expect(mmu.CheckConsistency()).To(Succeed(), cmd.String())
		}
	})

	It("should charge the synthetic clock", func() {
		mmu := MakeBuilder().
			WithNumFrames(2).
			WithPolicyKind(replacement.KindFIFO).
			Build("MMU")

		ptr1, _ := mmu.New(1, 8192)
		_, _ = mmu.New(1, 4096)
		Expect(mmu.Accounting().Clock).To(Equal(uint64(5)))

		Expect(mmu.Use(ptr1)).To(Succeed())
		Expect(mmu.Accounting()).To(Equal(Accounting{
			Clock:         35,
			ThrashingTime: 35,
			Faults:        2,
			Evictions:     3,
			SwapIns:       2,
		}))

		Expect(mmu.Use(ptr1)).To(Succeed())
		Expect(mmu.Accounting().Clock).To(Equal(uint64(37)))
		Expect(mmu.Accounting().ThrashingTime).To(Equal(uint64(35)))
	})

	It("should evict in FIFO order, with hits moving to the tail", func() {
		mmu := MakeBuilder().
			WithNumFrames(3).
			WithPolicyKind(replacement.KindFIFO).
			Build("MMU")

		ptr1, _ := mmu.New(1, 1)
		_, _ = mmu.New(1, 1)
		_, _ = mmu.New(1, 1)
		Expect(mmu.Use(ptr1)).To(Succeed())
		Expect(mmu.Snapshot().PolicyOrder).To(Equal([]int{1, 2, 0}))

		_, _ = mmu.New(1, 1)

		Expect(mmu.store.Contains(2)).To(BeTrue())
		Expect(mmu.pool.At(1).ID).To(Equal(vm.PageID(4)))
	})

	It("should give referenced pages a second chance", func() {
		mmu := MakeBuilder().
			WithNumFrames(2).
			WithPolicyKind(replacement.KindSecondChance).
			Build("MMU")

		ptr1, _ := mmu.New(1, 1)
		ptr2, _ := mmu.New(1, 1)
		Expect(mmu.Use(ptr1)).To(Succeed())
		Expect(mmu.pool.At(0).ReferenceBit).To(BeTrue())

		_, _ = mmu.New(1, 1)

		Expect(mmu.store.Contains(2)).To(BeTrue())
		Expect(mmu.pool.At(0).ReferenceBit).To(BeFalse())
		Expect(mmu.pool.At(1).ID).To(Equal(vm.PageID(3)))
		Expect(mmu.pool.At(1).ReferenceBit).To(BeFalse())

		Expect(mmu.Use(ptr2)).To(Succeed())

		s := mmu.Snapshot()
		Expect(s.Frames[0].PageID).To(Equal(vm.PageID(2)))
		Expect(s.Frames[0].ReferenceBit).To(BeTrue())
		Expect(s.Disk).To(HaveLen(1))
		Expect(s.Disk[0].PageID).To(Equal(vm.PageID(1)))
	})

	It("should evict the page used furthest in the future", func() {
		cmds := []trace.Command{
			trace.NewCmd(1, 1),
			trace.NewCmd(1, 1),
			trace.NewCmd(1, 1),
			trace.UseCmd(1),
			trace.UseCmd(2),
			trace.NewCmd(1, 1),
			trace.UseCmd(3),
			trace.UseCmd(1),
		}
		mmu := MakeBuilder().
			WithNumFrames(3).
			WithPolicyKind(replacement.KindOptimal).
			Build("MMU")

		runScript(mmu, cmds)

		Expect(mmu.store.Contains(2)).To(BeTrue())
		Expect(mmu.Accounting().Faults).To(Equal(uint64(0)))
		Expect(mmu.Accounting().Evictions).To(Equal(uint64(1)))
	})

	It("should free everything a killed process owns", func() {
		mmu := MakeBuilder().
			WithNumFrames(2).
			WithPolicyKind(replacement.KindFIFO).
			Build("MMU")

		ptr1, _ := mmu.New(1, 8192)
		ptr2, _ := mmu.New(2, 4096)
		ptr3, _ := mmu.New(1, 4096)

		Expect(mmu.Kill(1)).To(Succeed())

		Expect(mmu.Use(ptr1)).To(MatchError(vm.ErrUnknownPointer))
		Expect(mmu.Delete(ptr3)).To(MatchError(vm.ErrUnknownPointer))

		Expect(mmu.Allocations()).To(HaveLen(1))
		Expect(mmu.Allocations()[0].PtrID).To(Equal(ptr2))
		Expect(mmu.allocs.OwnedBy(1)).To(BeEmpty())
		for _, r := range mmu.store.Records() {
			Expect(r.PID).NotTo(Equal(vm.PID(1)))
		}
		Expect(mmu.pool.NumOccupied() + mmu.store.Len()).To(Equal(1))
		Expect(mmu.CheckConsistency()).To(Succeed())

		Expect(mmu.Kill(1)).To(Succeed())
		Expect(mmu.Allocations()).To(HaveLen(1))
	})

	DescribeTable("should give the same snapshot at every step",
		func(kind replacement.Kind) {
			cmds := randomScript(rand.New(rand.NewSource(21)), 400)
			build := func() *Comp {
				return MakeBuilder().
					WithNumFrames(5).
					WithPolicyKind(kind).
					WithSeed(42).
					Build("MMU")
			}

			a, b := build(), build()
			a.Precompute(cmds)
			b.Precompute(cmds)

			for i, cmd := range cmds {
				errA := a.Apply(cmd)
				errB := b.Apply(cmd)

				Expect(errA == nil).To(Equal(errB == nil), cmd.String())
				Expect(a.Snapshot()).To(Equal(b.Snapshot()),
					"step %d %s", i+1, cmd)
			}
		},
		Entry("opt", replacement.KindOptimal),
		Entry("opt-countdown", replacement.KindOptimalCountdown),
		Entry("mru", replacement.KindMRU),
		Entry("mru-back", replacement.KindMRUBack),
		Entry("fifo", replacement.KindFIFO),
		Entry("second-chance", replacement.KindSecondChance),
		Entry("seeded random", replacement.KindRandom),
	)
})
