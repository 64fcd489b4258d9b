package tracing

import (
	"github.com/sarchlab/vmsim/datarecording"
	"github.com/sarchlab/vmsim/mem/vm/mmu"
	"github.com/sarchlab/vmsim/sim"
)

// Tables written by the SnapshotRecorder.
const (
	FrameTableName      = "frames"
	DiskTableName       = "disk"
	AccountingTableName = "accounting"
)

type frameEntry struct {
	Step           int
	Slot           int
	PageID         uint64
	PID            uint32
	PtrID          uint64
	LogicalAddress uint64
	ReferenceBit   bool
}

type diskEntry struct {
	Step           int
	DiskAddress    uint64
	PageID         uint64
	PID            uint32
	PtrID          uint64
	LogicalAddress uint64
}

// AccountingEntry is a row of the accounting table.
type AccountingEntry struct {
	Step          int
	Command       string
	Clock         uint64
	ThrashingTime uint64
	Hits          uint64
	Faults        uint64
	Evictions     uint64
	SwapIns       uint64
}

// A SnapshotRecorder is a hook that records the frames, the backing store,
// and the accounting after every command.
type SnapshotRecorder struct {
	backend datarecording.DataRecorder
	step    int
}

// NewSnapshotRecorder creates the tables and returns the hook. Attach it to a
// memory management unit with AcceptHook.
func NewSnapshotRecorder(
	backend datarecording.DataRecorder,
) *SnapshotRecorder {
	backend.CreateTable(FrameTableName, frameEntry{})
	backend.CreateTable(DiskTableName, diskEntry{})
	backend.CreateTable(AccountingTableName, AccountingEntry{})

	return &SnapshotRecorder{backend: backend}
}

// Func records a snapshot when a command ends.
func (r *SnapshotRecorder) Func(ctx sim.HookCtx) {
	if ctx.Pos != mmu.HookPosCommandEnd {
		return
	}

	unit, ok := ctx.Domain.(*mmu.Comp)
	if !ok {
		return
	}

	r.step++

	cmd := ""
	if res, ok := ctx.Item.(mmu.Result); ok {
		cmd = res.Command.String()
	}

	r.record(unit.Snapshot(), cmd)
}

func (r *SnapshotRecorder) record(s mmu.Snapshot, cmd string) {
	for slot, f := range s.Frames {
		if f == nil {
			continue
		}

		r.backend.InsertData(FrameTableName, frameEntry{
			Step:           r.step,
			Slot:           slot,
			PageID:         uint64(f.PageID),
			PID:            uint32(f.PID),
			PtrID:          uint64(f.PtrID),
			LogicalAddress: f.LogicalAddress,
			ReferenceBit:   f.ReferenceBit,
		})
	}

	for _, d := range s.Disk {
		r.backend.InsertData(DiskTableName, diskEntry{
			Step:           r.step,
			DiskAddress:    uint64(d.DiskAddress),
			PageID:         uint64(d.PageID),
			PID:            uint32(d.PID),
			PtrID:          uint64(d.PtrID),
			LogicalAddress: d.LogicalAddress,
		})
	}

	a := s.Accounting
	r.backend.InsertData(AccountingTableName, AccountingEntry{
		Step:          r.step,
		Command:       cmd,
		Clock:         a.Clock,
		ThrashingTime: a.ThrashingTime,
		Hits:          a.Hits,
		Faults:        a.Faults,
		Evictions:     a.Evictions,
		SwapIns:       a.SwapIns,
	})
}
