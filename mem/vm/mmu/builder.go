package mmu

import (
	"log"

	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/frame"
	"github.com/sarchlab/vmsim/mem/vm/replacement"
	"github.com/sarchlab/vmsim/mem/vm/swap"
	"github.com/sarchlab/vmsim/sim"
)

// A Builder can build MMU component
type Builder struct {
	numFrames           int
	policyKind          replacement.Kind
	policy              replacement.Policy
	seed                int64
	randomEvictOnSwapIn bool
	pageIDs             *sim.SequenceGenerator
	ptrIDs              *sim.SequenceGenerator
	diskAddrs           *sim.SequenceGenerator
	hooks               []sim.Hook
}

// MakeBuilder creates a new builder
func MakeBuilder() Builder {
	return Builder{
		numFrames:  vm.DefaultNumFrames,
		policyKind: replacement.KindFIFO,
	}
}

// WithNumFrames sets the number of physical frames.
func (b Builder) WithNumFrames(n int) Builder {
	b.numFrames = n
	return b
}

// WithPolicyKind selects the replacement policy by name.
func (b Builder) WithPolicyKind(kind replacement.Kind) Builder {
	b.policyKind = kind
	return b
}

// WithPolicy sets a ready-made replacement policy. It takes precedence over
// WithPolicyKind.
func (b Builder) WithPolicy(p replacement.Policy) Builder {
	b.policy = p
	return b
}

// WithSeed seeds the random policy.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	return b
}

// WithRandomEvictOnSwapIn makes the random policy evict a random slot on
// every swap-in.
func (b Builder) WithRandomEvictOnSwapIn(enabled bool) Builder {
	b.randomEvictOnSwapIn = enabled
	return b
}

// WithPageIDGenerator sets the counter that page IDs are drawn from.
func (b Builder) WithPageIDGenerator(g *sim.SequenceGenerator) Builder {
	b.pageIDs = g
	return b
}

// WithPtrIDGenerator sets the counter that pointer IDs are drawn from.
func (b Builder) WithPtrIDGenerator(g *sim.SequenceGenerator) Builder {
	b.ptrIDs = g
	return b
}

// WithDiskAddrGenerator sets the counter that disk addresses are drawn from.
func (b Builder) WithDiskAddrGenerator(g *sim.SequenceGenerator) Builder {
	b.diskAddrs = g
	return b
}

// WithHook attaches a hook to the built component.
func (b Builder) WithHook(h sim.Hook) Builder {
	b.hooks = append(b.hooks[:len(b.hooks):len(b.hooks)], h)
	return b
}

// Build returns a newly created MMU component
func (b Builder) Build(name string) *Comp {
	b.parametersMustBeValid()

	mmu := new(Comp)
	mmu.HookableBase = sim.NewHookableBase()
	mmu.name = name

	b.createPolicy(mmu)
	b.createCounters(mmu)

	mmu.pool = frame.NewPool(b.numFrames)
	mmu.store = swap.NewStore(mmu.diskAddrs)
	mmu.allocs = vm.NewAllocationTable()

	for _, h := range b.hooks {
		mmu.AcceptHook(h)
	}

	return mmu
}

func (b Builder) parametersMustBeValid() {
	if b.numFrames <= 0 {
		log.Panicf("number of frames must be positive, got %d", b.numFrames)
	}
}

func (b Builder) createPolicy(mmu *Comp) {
	if b.policy != nil {
		mmu.policy = b.policy
		return
	}

	p, err := replacement.New(b.policyKind, replacement.Options{
		Seed:                b.seed,
		RandomEvictOnSwapIn: b.randomEvictOnSwapIn,
	})
	if err != nil {
		log.Panic(err)
	}

	mmu.policy = p
}

func (b Builder) createCounters(mmu *Comp) {
	mmu.pageIDs = orNewSequence(b.pageIDs)
	mmu.ptrIDs = orNewSequence(b.ptrIDs)
	mmu.diskAddrs = orNewSequence(b.diskAddrs)
}

func orNewSequence(g *sim.SequenceGenerator) *sim.SequenceGenerator {
	if g != nil {
		return g
	}

	return sim.NewSequenceGenerator(1)
}
