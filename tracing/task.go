package tracing

import "github.com/sarchlab/vmsim/mem/vm"

// A TaskStep is something that happened to a page while a task ran.
type TaskStep struct {
	Clock  uint64    `json:"clock"`
	What   string    `json:"what"`
	PageID vm.PageID `json:"page_id"`
	Slot   int       `json:"slot"`
}

// A Task is one command applied to a memory management unit.
type Task struct {
	ID        string     `json:"id"`
	Step      int        `json:"step"`
	Kind      string     `json:"kind"`
	What      string     `json:"what"`
	Where     string     `json:"where"`
	Detail    string     `json:"detail"`
	StartTime uint64     `json:"start_time"`
	EndTime   uint64     `json:"end_time"`
	Steps     []TaskStep `json:"steps"`
	Err       string     `json:"error,omitempty"`
}

// TaskFilter is a function that can filter interesting tasks. If this function
// returns true, the task is considered useful.
type TaskFilter func(t Task) bool

// KindIs returns a filter that accepts tasks of the given command name.
func KindIs(what string) TaskFilter {
	return func(t Task) bool {
		return t.What == what
	}
}

// AllTasks accepts every task.
func AllTasks(Task) bool {
	return true
}
