package replay

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/mmu"
	"github.com/sarchlab/vmsim/mem/vm/replacement"
	"github.com/sarchlab/vmsim/mem/vm/trace"
)

var _ = Describe("Replayer", func() {
	var (
		unit     *mmu.Comp
		replayer *Replayer
		script   []trace.Command
	)

	BeforeEach(func() {
		unit = mmu.MakeBuilder().
			WithNumFrames(3).
			WithPolicyKind(replacement.KindOptimal).
			Build("MMU")
		replayer = NewReplayer(unit)

		script = []trace.Command{
			trace.NewCmd(1, 1),
			trace.NewCmd(1, 1),
			trace.UseCmd(7),
			trace.NewCmd(1, 1),
			trace.UseCmd(1),
			trace.UseCmd(2),
			trace.NewCmd(1, 1),
			trace.UseCmd(3),
			trace.UseCmd(1),
		}
	})

	It("should precompute the references on load", func() {
		replayer.Load(script)

		refs := replayer.References()
		Expect(refs.NumCommands).To(Equal(len(script)))
		Expect(refs.Refs).To(Equal([]trace.Reference{
			{Page: 1, Command: 4},
			{Page: 2, Command: 5},
			{Page: 3, Command: 7},
			{Page: 1, Command: 8},
		}))
	})

	It("should step one command at a time", func() {
		replayer.Load(script)

		more, err := replayer.Step()
		Expect(more).To(BeTrue())
		Expect(err).NotTo(HaveOccurred())
		Expect(replayer.Progress()).To(Equal(Progress{Done: 1, Total: 9}))
		Expect(replayer.Snapshot().Resident()).To(Equal(1))
	})

	It("should keep going after a command fails", func() {
		replayer.Load(script)

		errs := replayer.Run()

		Expect(errs).To(HaveLen(1))
		Expect(errs[0].Step).To(Equal(3))
		Expect(errors.Is(errs[0], vm.ErrUnknownPointer)).To(BeTrue())
		Expect(replayer.Progress().Done).To(Equal(len(script)))

		more, err := replayer.Step()
		Expect(more).To(BeFalse())
		Expect(err).NotTo(HaveOccurred())

		s := replayer.Snapshot()
		Expect(s.Accounting.Faults).To(Equal(uint64(0)))
		Expect(s.Disk).To(HaveLen(1))
		Expect(s.Disk[0].PageID).To(Equal(vm.PageID(2)))
	})

	It("should report malformed commands", func() {
		replayer.Load([]trace.Command{{Name: "use", Args: []int64{-1}}})

		_, err := replayer.Step()

		Expect(err).To(MatchError(vm.ErrMalformedCommand))
		Expect(replayer.Errors()).To(HaveLen(1))
	})

	It("should replay at a pace", func() {
		replayer.Load(script)

		err := replayer.RunPaced(context.Background(), time.Millisecond)

		Expect(err).NotTo(HaveOccurred())
		Expect(replayer.Progress().Done).To(Equal(len(script)))
	})

	It("should stop a paced replay when cancelled", func() {
		replayer.Load(script)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := replayer.RunPaced(ctx, time.Hour)

		Expect(err).To(MatchError(context.Canceled))
		Expect(replayer.Progress().Done).To(Equal(0))
	})

	It("should stop an unpaced replay when cancelled", func() {
		replayer.Load(script)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := replayer.RunContext(ctx)

		Expect(err).To(MatchError(context.Canceled))
		Expect(replayer.Progress().Done).To(Equal(0))
	})

	It("should stop an unpaced replay cancelled while paused", func() {
		replayer.Load(script)
		replayer.Pause()

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error)
		go func() {
			done <- replayer.RunContext(ctx)
		}()

		cancel()
		replayer.Continue()

		Eventually(done).Should(Receive(MatchError(context.Canceled)))
		Expect(replayer.Progress().Done).To(BeNumerically("<=", 1))
	})

	It("should hold a paced replay while paused", func() {
		replayer.Load(script)
		replayer.Pause()
		Expect(replayer.IsPaused()).To(BeTrue())

		done := make(chan error)
		go func() {
			done <- replayer.RunPaced(context.Background(), time.Millisecond)
		}()

		Consistently(func() int { return replayer.Progress().Done }).
			WithTimeout(50 * time.Millisecond).
			Should(Equal(0))

		replayer.Continue()

		Eventually(done).Should(Receive(BeNil()))
		Expect(replayer.Progress().Done).To(Equal(len(script)))
	})

	It("should let callers inspect the unit", func() {
		replayer.Load(script)
		replayer.Run()

		var name string
		replayer.Inspect(func(m *mmu.Comp) {
			name = m.Policy().Name()
		})

		Expect(name).To(Equal("opt"))
	})
})
