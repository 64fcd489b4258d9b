package trace

import (
	"github.com/sarchlab/vmsim/mem/vm"
)

// A Reference is one page touched by a use command.
type Reference struct {
	Page vm.PageID

	// Command is the 0-based index of the use command in the script.
	Command int
}

// A ReferenceString lists every page touch a script will make, in order.
type ReferenceString struct {
	Refs        []Reference
	NumCommands int
}

// Positions returns, for every page, the indices into Refs where it is
// touched, in increasing order.
func (rs ReferenceString) Positions() map[vm.PageID][]int {
	pos := make(map[vm.PageID][]int)
	for i, r := range rs.Refs {
		pos[r.Page] = append(pos[r.Page], i)
	}

	return pos
}

// LastUseCommands returns, for every page, the 1-based position of the last
// use command that touches it.
func (rs ReferenceString) LastUseCommands() map[vm.PageID]int {
	last := make(map[vm.PageID]int)
	for _, r := range rs.Refs {
		last[r.Page] = r.Command + 1
	}

	return last
}

// A Predictor works out which pages a script will touch before the script
// runs. Pointer and page IDs are handed out in sequence, so replaying the
// allocation commands against the same starting counters yields the same IDs
// the memory management unit will assign.
type Predictor struct {
	nextPtr  vm.PtrID
	nextPage vm.PageID
	allocs   map[vm.PtrID]vm.Allocation
}

// NewPredictor creates a predictor that starts from the given live
// allocations and the next pointer and page IDs to be assigned.
func NewPredictor(
	existing []vm.Allocation,
	nextPtr vm.PtrID,
	nextPage vm.PageID,
) *Predictor {
	p := &Predictor{
		nextPtr:  nextPtr,
		nextPage: nextPage,
		allocs:   make(map[vm.PtrID]vm.Allocation),
	}

	for _, a := range existing {
		p.allocs[a.PtrID] = a
	}

	return p
}

// Build walks the commands and returns the reference string. Malformed
// commands are skipped, as the memory management unit skips them.
func (p *Predictor) Build(cmds []Command) ReferenceString {
	rs := ReferenceString{NumCommands: len(cmds)}

	for i, cmd := range cmds {
		if cmd.Validate() != nil {
			continue
		}

		switch cmd.Name {
		case NameNew:
			p.allocate(cmd)
		case NameUse:
			alloc, ok := p.allocs[cmd.Ptr()]
			if !ok {
				continue
			}

			for _, page := range alloc.Pages {
				rs.Refs = append(rs.Refs, Reference{Page: page, Command: i})
			}
		case NameDelete:
			delete(p.allocs, cmd.Ptr())
		case NameKill:
			for ptr, a := range p.allocs {
				if a.PID == cmd.PID() {
					delete(p.allocs, ptr)
				}
			}
		}
	}

	return rs
}

func (p *Predictor) allocate(cmd Command) {
	alloc := vm.Allocation{
		PtrID: p.nextPtr,
		PID:   cmd.PID(),
	}
	p.nextPtr++

	n := vm.NumPagesFor(cmd.Size())
	for j := uint64(0); j < n; j++ {
		alloc.Pages = append(alloc.Pages, p.nextPage)
		p.nextPage++
	}

	p.allocs[alloc.PtrID] = alloc
}
