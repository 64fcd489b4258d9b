package replacement

import (
	"sort"

	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/frame"
	"github.com/sarchlab/vmsim/mem/vm/trace"
)

// Optimal is Belady's algorithm. It evicts the resident page whose next
// reference is furthest in the future. A resident page that is never
// referenced again is evicted right away, lowest slot first.
type Optimal struct {
	positions map[vm.PageID][]int
	cursor    int
}

// NewOptimal creates an Optimal policy with an empty reference string.
func NewOptimal() *Optimal {
	return &Optimal{
		positions: make(map[vm.PageID][]int),
	}
}

// Name returns the policy name.
func (p *Optimal) Name() string {
	return string(KindOptimal)
}

// Precompute indexes the reference string by page.
func (p *Optimal) Precompute(refs trace.ReferenceString) {
	p.positions = refs.Positions()
	p.cursor = 0
}

// Seek moves the cursor. References before the cursor are in the past.
func (p *Optimal) Seek(cursor int) {
	p.cursor = cursor
}

// Admit does nothing. Optimal reads residency from the pool.
func (p *Optimal) Admit(int, *vm.Page, AdmitReason) {}

// Access does nothing. The cursor carries the notion of time.
func (p *Optimal) Access(int, *vm.Page) {}

// Remove forgets the future references of a deleted page.
func (p *Optimal) Remove(_ int, page *vm.Page) {
	delete(p.positions, page.ID)
}

// NextUse returns the position of the next reference to the page at or after
// the cursor.
func (p *Optimal) NextUse(id vm.PageID) (int, bool) {
	pos := p.positions[id]

	i := sort.SearchInts(pos, p.cursor)
	if i > 0 {
		pos = pos[i:]
		p.positions[id] = pos
		i = 0
	}

	if i >= len(pos) {
		return 0, false
	}

	return pos[i], true
}

// SelectVictim returns the slot holding the page used furthest in the future.
func (p *Optimal) SelectVictim(pool *frame.Pool) (int, error) {
	victim := -1
	furthest := -1

	for slot := 0; slot < pool.Len(); slot++ {
		page := pool.At(slot)
		if page == nil {
			continue
		}

		next, ok := p.NextUse(page.ID)
		if !ok {
			return slot, nil
		}

		if next > furthest {
			victim = slot
			furthest = next
		}
	}

	if victim < 0 {
		return 0, inconsistency(p.Name(), "no resident page to evict")
	}

	return victim, nil
}
