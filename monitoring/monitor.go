// Package monitoring turns a replay into a web server that a display can poll
// and control.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/sarchlab/vmsim/mem/vm/mmu"
	"github.com/sarchlab/vmsim/mem/vm/replay"
	"github.com/sarchlab/vmsim/monitoring/web"
	"github.com/sarchlab/vmsim/sim"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// Monitor serves the state of a replay over HTTP and lets the client step,
// run and pause it.
type Monitor struct {
	replayer   *replay.Replayer
	portNumber int

	runLock   sync.Mutex
	cancelRun context.CancelFunc
	running   bool

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterReplayer sets the replay to be monitored.
func (m *Monitor) RegisterReplayer(r *replay.Replayer) {
	m.replayer = r
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ProgressStatus: ProgressStatus{
			ID:        sim.GenerateRunID(),
			Name:      name,
			StartTime: time.Now(),
			Total:     total,
		},
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Handler returns the router that serves the API and the static page.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/frames", m.listFrames).Methods(http.MethodGet)
	r.HandleFunc("/api/disk", m.listDisk).Methods(http.MethodGet)
	r.HandleFunc("/api/accounting", m.accounting).Methods(http.MethodGet)
	r.HandleFunc("/api/snapshot", m.snapshot).Methods(http.MethodGet)
	r.HandleFunc("/api/errors", m.listErrors).Methods(http.MethodGet)
	r.HandleFunc("/api/policy", m.policy).Methods(http.MethodGet)
	r.HandleFunc("/api/step", m.step).Methods(http.MethodPost)
	r.HandleFunc("/api/run", m.run).Methods(http.MethodPost)
	r.HandleFunc("/api/stop", m.stop).Methods(http.MethodPost)
	r.HandleFunc("/api/pause", m.pause).Methods(http.MethodPost)
	r.HandleFunc("/api/continue", m.continueReplay).Methods(http.MethodPost)
	r.HandleFunc("/api/progress", m.listProgress).Methods(http.MethodGet)
	r.HandleFunc("/api/resource", m.listResources).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", m.collectProfile).Methods(http.MethodGet)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() string {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring replay with %s\n", url)

	handler := m.Handler()

	go func() {
		err := http.Serve(listener, handler)
		dieOnErr(err)
	}()

	return url
}

func (m *Monitor) listFrames(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, m.replayer.Snapshot().Frames)
}

func (m *Monitor) listDisk(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, m.replayer.Snapshot().Disk)
}

func (m *Monitor) accounting(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, m.replayer.Snapshot().Accounting)
}

func (m *Monitor) snapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, m.replayer.Snapshot())
}

type stepErrorRsp struct {
	Step    int    `json:"step"`
	Command string `json:"command"`
	Error   string `json:"error"`
}

func (m *Monitor) listErrors(w http.ResponseWriter, _ *http.Request) {
	rsp := []stepErrorRsp{}
	for _, e := range m.replayer.Errors() {
		rsp = append(rsp, stepErrorRsp{
			Step:    e.Step,
			Command: e.Command.String(),
			Error:   e.Err.Error(),
		})
	}

	writeJSON(w, rsp)
}

func (m *Monitor) policy(w http.ResponseWriter, _ *http.Request) {
	m.replayer.Inspect(func(c *mmu.Comp) {
		serializer := goseth.NewSerializer()
		serializer.SetRoot(c.Policy())
		serializer.SetMaxDepth(1)
		err := serializer.Serialize(w)

		dieOnErr(err)
	})
}

type stepRsp struct {
	More  bool   `json:"more"`
	Error string `json:"error,omitempty"`
}

func (m *Monitor) step(w http.ResponseWriter, _ *http.Request) {
	more, err := m.replayer.Step()

	rsp := stepRsp{More: more}
	if err != nil {
		rsp.Error = err.Error()
	}

	writeJSON(w, rsp)
}

func (m *Monitor) run(w http.ResponseWriter, r *http.Request) {
	interval, err := parseInterval(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	m.runLock.Lock()
	defer m.runLock.Unlock()

	if m.running {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, "Error: replay is already running")

		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelRun = cancel
	m.running = true

	go m.runInBackground(ctx, interval)

	w.WriteHeader(http.StatusAccepted)
}

func parseInterval(r *http.Request) (time.Duration, error) {
	str := r.URL.Query().Get("interval")
	if str == "" {
		return 0, nil
	}

	ms, err := strconv.Atoi(str)
	if err != nil {
		return 0, err
	}

	if ms < 0 {
		return 0, fmt.Errorf("negative interval %d", ms)
	}

	return time.Duration(ms) * time.Millisecond, nil
}

func (m *Monitor) runInBackground(ctx context.Context, interval time.Duration) {
	defer func() {
		m.runLock.Lock()
		m.running = false
		m.cancelRun = nil
		m.runLock.Unlock()
	}()

	var err error
	if interval == 0 {
		err = m.replayer.RunContext(ctx)
	} else {
		err = m.replayer.RunPaced(ctx, interval)
	}

	if err != nil && err != context.Canceled {
		log.Printf("replay stopped: %v", err)
	}
}

func (m *Monitor) stop(w http.ResponseWriter, _ *http.Request) {
	m.runLock.Lock()
	defer m.runLock.Unlock()

	if m.cancelRun != nil {
		m.cancelRun()
	}

	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) pause(w http.ResponseWriter, _ *http.Request) {
	m.replayer.Pause()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) continueReplay(w http.ResponseWriter, _ *http.Request) {
	m.replayer.Continue()
	w.WriteHeader(http.StatusOK)
}

type progressRsp struct {
	Replay  replay.Progress  `json:"replay"`
	Running bool             `json:"running"`
	Bars    []ProgressStatus `json:"bars"`
}

func (m *Monitor) listProgress(w http.ResponseWriter, _ *http.Request) {
	m.runLock.Lock()
	running := m.running
	m.runLock.Unlock()

	rsp := progressRsp{
		Replay:  m.replayer.Progress(),
		Running: running,
		Bars:    m.copyProgressBars(),
	}

	writeJSON(w, rsp)
}

func (m *Monitor) copyProgressBars() []ProgressStatus {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	bars := make([]ProgressStatus, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.Status())
	}

	return bars
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
