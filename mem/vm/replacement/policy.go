// Package replacement provides the page replacement policies. A policy keeps
// whatever ordering state it needs about resident pages and picks the victim
// when the frame pool is full.
package replacement

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/frame"
	"github.com/sarchlab/vmsim/mem/vm/trace"
)

// AdmitReason tells why a page became resident.
type AdmitReason int

// Reasons for admitting a page.
const (
	AdmitNew AdmitReason = iota
	AdmitSwapIn
)

// A Policy decides which resident page to evict.
//
// The memory management unit calls Admit after a page is placed in a slot,
// Access when a use hits a resident page, and Remove when a resident page is
// deleted. SelectVictim is only called when the pool is full. It must return
// an occupied slot and forget that slot in its own ordering state, since the
// page in it is about to leave the pool.
type Policy interface {
	Name() string
	Admit(slot int, page *vm.Page, reason AdmitReason)
	Access(slot int, page *vm.Page)
	Remove(slot int, page *vm.Page)
	SelectVictim(pool *frame.Pool) (int, error)
}

// A Lookahead policy needs the future page references before replay starts.
type Lookahead interface {
	// Precompute hands the whole reference string to the policy.
	Precompute(refs trace.ReferenceString)

	// Seek tells the policy how many references have been made so far.
	Seek(cursor int)
}

// A SwapInPlacer chooses the slot for a swapped-in page itself, even when
// there are free slots. If the returned slot is occupied, the page in it is
// evicted first.
type SwapInPlacer interface {
	PlaceSwapIn(pool *frame.Pool) (slot int, ok bool)
}

// An Inspector exposes the ordering of slots the policy maintains, in
// eviction order where that applies.
type Inspector interface {
	Order() []int
}

// Kind names a policy variant.
type Kind string

// Policy variants.
const (
	KindOptimal          Kind = "opt"
	KindOptimalCountdown Kind = "opt-countdown"
	KindMRU              Kind = "mru"
	KindMRUBack          Kind = "mru-back"
	KindRandom           Kind = "random"
	KindFIFO             Kind = "fifo"
	KindSecondChance     Kind = "second-chance"
)

// Kinds lists all the variants.
func Kinds() []Kind {
	return []Kind{
		KindOptimal,
		KindOptimalCountdown,
		KindMRU,
		KindMRUBack,
		KindRandom,
		KindFIFO,
		KindSecondChance,
	}
}

// ParseKind finds the variant with the given name, ignoring case.
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == strings.ToLower(strings.TrimSpace(name)) {
			return k, nil
		}
	}

	return "", fmt.Errorf("unknown replacement policy %q", name)
}

// Options configure the policies that need configuration.
type Options struct {
	// Seed seeds the random policy. Zero seeds it from the wall clock.
	Seed int64

	// RandomEvictOnSwapIn makes the random policy place every swapped-in
	// page in a random slot, evicting whatever is there, even if free slots
	// exist.
	RandomEvictOnSwapIn bool
}

// New creates a policy of the given kind.
func New(kind Kind, opts Options) (Policy, error) {
	switch kind {
	case KindOptimal:
		return NewOptimal(), nil
	case KindOptimalCountdown:
		return NewOptimalCountdown(), nil
	case KindMRU:
		return NewMRU(), nil
	case KindMRUBack:
		return NewMRUBack(), nil
	case KindRandom:
		seed := opts.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}

		r := NewRandom(rand.NewSource(seed))
		r.EvictOnSwapIn = opts.RandomEvictOnSwapIn

		return r, nil
	case KindFIFO:
		return NewFIFO(), nil
	case KindSecondChance:
		return NewSecondChance(), nil
	default:
		return nil, fmt.Errorf("unknown replacement policy %q", kind)
	}
}

func inconsistency(name, format string, args ...any) error {
	return fmt.Errorf("%s: %s: %w",
		name, fmt.Sprintf(format, args...), vm.ErrPoolExhaustionInconsistency)
}
