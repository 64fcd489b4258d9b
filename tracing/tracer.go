// Package tracing turns the hook events of a memory management unit into
// tasks and feeds them to tracers that count, time, or record them.
package tracing

// A Tracer can collect task traces
type Tracer interface {
	StartTask(task Task)
	StepTask(task Task)
	EndTask(task Task)
}

// A TimeTeller tells the current synthetic time.
type TimeTeller interface {
	CurrentTime() uint64
}
