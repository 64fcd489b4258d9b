package tracing

import (
	"sync"

	"github.com/sarchlab/vmsim/datarecording"
	"github.com/tebeka/atexit"
)

// Tables written by the DBTracer.
const (
	CommandTableName = "commands"
	StepTableName    = "page_events"
)

type taskTableEntry struct {
	ID        string
	Step      int
	What      string
	Detail    string
	Location  string
	StartTime uint64
	EndTime   uint64
	Error     string
}

type stepTableEntry struct {
	TaskID string
	Step   int
	What   string
	PageID uint64
	Slot   int
	Clock  uint64
}

// DBTracer is a tracer that stores tasks and their steps in a database
// through a DataRecorder.
type DBTracer struct {
	mu         sync.Mutex
	timeTeller TimeTeller
	backend    datarecording.DataRecorder

	tracingTasks map[string]Task
}

// NewDBTracer creates a new DBTracer.
func NewDBTracer(
	timeTeller TimeTeller,
	dataRecorder datarecording.DataRecorder,
) *DBTracer {
	dataRecorder.CreateTable(CommandTableName, taskTableEntry{})
	dataRecorder.CreateTable(StepTableName, stepTableEntry{})

	t := &DBTracer{
		timeTeller:   timeTeller,
		backend:      dataRecorder,
		tracingTasks: make(map[string]Task),
	}

	atexit.Register(func() {
		t.Terminate()
	})

	return t
}

// StartTask marks the start of a task.
func (t *DBTracer) StartTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	startingTaskMustBeValid(task)

	task.StartTime = t.timeTeller.CurrentTime()
	t.tracingTasks[task.ID] = task
}

func startingTaskMustBeValid(task Task) {
	if task.ID == "" {
		panic("task ID must be set")
	}

	if task.What == "" {
		panic("task what must be set")
	}
}

// StepTask writes the step.
func (t *DBTracer) StepTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.tracingTasks[task.ID]; !ok {
		return
	}

	for _, s := range task.Steps {
		t.backend.InsertData(StepTableName, stepTableEntry{
			TaskID: task.ID,
			Step:   task.Step,
			What:   s.What,
			PageID: uint64(s.PageID),
			Slot:   s.Slot,
			Clock:  s.Clock,
		})
	}
}

// EndTask writes the task.
func (t *DBTracer) EndTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	originalTask, ok := t.tracingTasks[task.ID]
	if !ok {
		return
	}

	delete(t.tracingTasks, task.ID)

	t.backend.InsertData(CommandTableName, taskTableEntry{
		ID:        originalTask.ID,
		Step:      originalTask.Step,
		What:      originalTask.What,
		Detail:    originalTask.Detail,
		Location:  originalTask.Where,
		StartTime: originalTask.StartTime,
		EndTime:   t.timeTeller.CurrentTime(),
		Error:     task.Err,
	})
}

// Terminate drops unfinished tasks and flushes the backend.
func (t *DBTracer) Terminate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.tracingTasks = make(map[string]Task)
	t.backend.Flush()
}
