package tracing

import (
	"encoding/json"
	"io"
	"sync"
)

// JSONTracer writes finished tasks, with their steps, as a JSON array.
type JSONTracer struct {
	timeTeller    TimeTeller
	w             io.Writer
	lock          sync.Mutex
	firstTask     bool
	finished      bool
	inflightTasks map[string]Task
}

// NewJSONTracer creates a JSONTracer writing to w. Call Finish to close the
// array.
func NewJSONTracer(timeTeller TimeTeller, w io.Writer) *JSONTracer {
	t := &JSONTracer{
		timeTeller:    timeTeller,
		w:             w,
		firstTask:     true,
		inflightTasks: make(map[string]Task),
	}

	t.write([]byte("[\n"))

	return t
}

// StartTask records the start of a task
func (t *JSONTracer) StartTask(task Task) {
	task.StartTime = t.timeTeller.CurrentTime()

	t.lock.Lock()
	t.inflightTasks[task.ID] = task
	t.lock.Unlock()
}

// StepTask appends the step to the task
func (t *JSONTracer) StepTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	originalTask, ok := t.inflightTasks[task.ID]
	if !ok {
		return
	}

	originalTask.Steps = append(originalTask.Steps, task.Steps...)
	t.inflightTasks[task.ID] = originalTask
}

// EndTask writes the task.
func (t *JSONTracer) EndTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	originalTask, ok := t.inflightTasks[task.ID]
	if !ok || t.finished {
		return
	}

	delete(t.inflightTasks, task.ID)

	originalTask.EndTime = t.timeTeller.CurrentTime()
	originalTask.Err = task.Err

	if t.firstTask {
		t.firstTask = false
	} else {
		t.write([]byte(",\n"))
	}

	b, err := json.Marshal(originalTask)
	if err != nil {
		panic(err)
	}

	t.write(b)
}

// Finish closes the JSON array. Later tasks are dropped.
func (t *JSONTracer) Finish() {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.finished {
		return
	}

	t.finished = true
	t.inflightTasks = make(map[string]Task)
	t.write([]byte("\n]\n"))
}

func (t *JSONTracer) write(b []byte) {
	_, err := t.w.Write(b)
	if err != nil {
		panic(err)
	}
}
