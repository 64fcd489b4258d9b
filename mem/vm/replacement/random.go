package replacement

import (
	"math/rand"

	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/frame"
)

// Random evicts a uniformly random slot among all slots of the pool.
type Random struct {
	rng *rand.Rand

	// EvictOnSwapIn makes every swap-in land in a random slot, evicting its
	// page, even if the pool has free slots.
	EvictOnSwapIn bool
}

// NewRandom creates a Random policy drawing from src.
func NewRandom(src rand.Source) *Random {
	return &Random{rng: rand.New(src)}
}

// Name returns the policy name.
func (p *Random) Name() string {
	return string(KindRandom)
}

// Admit does nothing.
func (p *Random) Admit(int, *vm.Page, AdmitReason) {}

// Access does nothing.
func (p *Random) Access(int, *vm.Page) {}

// Remove does nothing.
func (p *Random) Remove(int, *vm.Page) {}

// SelectVictim picks a random slot.
func (p *Random) SelectVictim(pool *frame.Pool) (int, error) {
	slot := p.rng.Intn(pool.Len())
	if pool.At(slot) == nil {
		return 0, inconsistency(p.Name(), "frame %d is empty", slot)
	}

	return slot, nil
}

// PlaceSwapIn picks a random slot for a swapped-in page when EvictOnSwapIn is
// set.
func (p *Random) PlaceSwapIn(pool *frame.Pool) (int, bool) {
	if !p.EvictOnSwapIn {
		return 0, false
	}

	return p.rng.Intn(pool.Len()), true
}
