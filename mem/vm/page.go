// Package vm provides the models for simulated virtual memory: pages, the
// allocations that group them, and the errors reported by the memory
// management unit.
package vm

import "fmt"

// PageSize is the number of bytes held by one page.
const PageSize = 4096

// DefaultNumFrames is the number of physical frames in the default pool.
const DefaultNumFrames = 100

// PID stands for Process ID.
type PID uint32

// PageID identifies a page. Page IDs are never reused within a simulation.
type PageID uint64

// PtrID identifies an allocation.
type PtrID uint64

// DiskAddr is the synthetic address of a page record in the backing store.
type DiskAddr uint64

// NumPagesFor returns the number of pages needed to hold size bytes.
func NumPagesFor(size uint64) uint64 {
	return (size + PageSize - 1) / PageSize
}

// Residency tells where the current representation of a page lives.
type Residency int

// The two places a page can be.
const (
	Resident Residency = iota
	OnDisk
)

func (r Residency) String() string {
	switch r {
	case Resident:
		return "resident"
	case OnDisk:
		return "on-disk"
	default:
		return fmt.Sprintf("Residency(%d)", int(r))
	}
}

// Location is either a frame index or a disk address, never both.
type Location struct {
	Residency Residency
	Frame     int
	DiskAddr  DiskAddr
}

// InFrame returns the location of a page resident in the given slot.
func InFrame(slot int) Location {
	return Location{Residency: Resident, Frame: slot}
}

// OnDiskAt returns the location of a page stored at addr.
func OnDiskAt(addr DiskAddr) Location {
	return Location{Residency: OnDisk, Frame: -1, DiskAddr: addr}
}

// IsResident tells if the location is a frame.
func (l Location) IsResident() bool {
	return l.Residency == Resident
}

// A Page is one fixed-size piece of an allocation.
type Page struct {
	ID             PageID
	PID            PID
	PtrID          PtrID
	LogicalAddress uint64
	Location       Location

	// ReferenceBit is only maintained by the second-chance policy.
	ReferenceBit bool
}

// Describe renders the page for log output.
func (p *Page) Describe() string {
	if p.Location.IsResident() {
		return fmt.Sprintf("page %d (pid %d, ptr %d, laddr %d) in frame %d",
			p.ID, p.PID, p.PtrID, p.LogicalAddress, p.Location.Frame)
	}

	return fmt.Sprintf("page %d (pid %d, ptr %d, laddr %d) at disk %d",
		p.ID, p.PID, p.PtrID, p.LogicalAddress, p.Location.DiskAddr)
}
