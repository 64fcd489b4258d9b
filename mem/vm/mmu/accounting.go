package mmu

// Synthetic costs, in seconds.
const (
	HitTime      = 1
	FaultTime    = 5
	TransferTime = 5
)

// Accounting holds the synthetic clock and the counters behind it.
// ThrashingTime is the part of Clock spent on disk transfers.
type Accounting struct {
	Clock         uint64 `json:"clock"`
	ThrashingTime uint64 `json:"thrashing_time"`
	Hits          uint64 `json:"hits"`
	Faults        uint64 `json:"faults"`
	Evictions     uint64 `json:"evictions"`
	SwapIns       uint64 `json:"swap_ins"`
}

func (a *Accounting) hit() {
	a.Hits++
	a.Clock += HitTime
}

func (a *Accounting) fault() {
	a.Faults++
	a.Clock += FaultTime
	a.ThrashingTime += FaultTime
}

func (a *Accounting) transfer() {
	a.Clock += TransferTime
	a.ThrashingTime += TransferTime
}

// HitRatio returns hits over page touches, or 0 before any touch.
func (a Accounting) HitRatio() float64 {
	touches := a.Hits + a.Faults
	if touches == 0 {
		return 0
	}

	return float64(a.Hits) / float64(touches)
}
