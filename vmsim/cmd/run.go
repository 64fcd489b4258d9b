package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/pkg/browser"
	"github.com/sarchlab/vmsim/datarecording"
	"github.com/sarchlab/vmsim/mem/vm/mmu"
	"github.com/sarchlab/vmsim/mem/vm/replay"
	"github.com/sarchlab/vmsim/monitoring"
	"github.com/sarchlab/vmsim/sim"
	"github.com/sarchlab/vmsim/tracing"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

type runOptions struct {
	unitConfig

	verbose   bool
	record    string
	ch        datarecording.ClickHouseOptions
	traceJSON string
	monitor   bool
	port      int
	open      bool
	pace      time.Duration
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run SCRIPT",
	Short: "Replay a script with one replacement policy.",
	Long: `Replay a script with one replacement policy and print the accounting. ` +
		`With --monitor the replay is served over HTTP and driven from the ` +
		`page until interrupted.`,
	Args: cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		if err := runOpts.validate(); err != nil {
			log.Fatalf("Error: %v", err)
		}

		script := mustLoadScript(args[0])

		s := newRunSession(runOpts, os.Stdout)
		s.replayer.Load(script.Commands)
		s.start(len(script.Commands))

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		s.replay(ctx)
		s.report(os.Stdout)
		s.end()

		atexit.Exit(0)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	addUnitFlags(runCmd, &runOpts.unitConfig)

	f := runCmd.Flags()
	f.BoolVarP(&runOpts.verbose, "verbose", "v", false,
		"log every command and page event")
	f.StringVar(&runOpts.record, "record", "",
		"record snapshots and events into RECORD.sqlite3")
	f.StringVar(&runOpts.ch.Host, "ch-host", "",
		"record into the ClickHouse server at this host instead of SQLite")
	f.IntVar(&runOpts.ch.Port, "ch-port", 9000, "ClickHouse native port")
	f.StringVar(&runOpts.ch.Database, "ch-database", "default",
		"ClickHouse database")
	f.StringVar(&runOpts.ch.Username, "ch-user", "default", "ClickHouse user")
	f.StringVar(&runOpts.ch.Password, "ch-password", "", "ClickHouse password")
	f.StringVar(&runOpts.traceJSON, "trace-json", "",
		"write the command tasks as JSON into this file")
	f.BoolVar(&runOpts.monitor, "monitor", false,
		"serve the replay over HTTP")
	f.IntVar(&runOpts.port, "port", 0, "port of the monitoring server")
	f.BoolVar(&runOpts.open, "open", false,
		"open the monitoring page in a browser")
	f.DurationVar(&runOpts.pace, "pace", 0,
		"apply one command per interval, e.g. 200ms")
}

// A runSession wires a memory management unit with the recorders, tracers,
// and the monitor that the options ask for.
type runSession struct {
	opts     runOptions
	unit     *mmu.Comp
	replayer *replay.Replayer

	exec     *datarecording.ExecRecorder
	steps    *tracing.StepCountTracer
	avgClock *tracing.AverageTimeTracer
	monitor  *monitoring.Monitor
}

func newRunSession(opts runOptions, logOut io.Writer) *runSession {
	kind, _ := opts.kind()
	opts.resolveSeed()

	b := opts.builder(kind)
	if opts.verbose {
		logger := log.New(logOut, "", 0)
		b = b.WithHook(sim.NewPositionLogHook(logger))
	} else {
		b = b.WithHook(sim.NewPositionLogHook(log.Default(), mmu.HookPosWarning))
	}

	s := &runSession{opts: opts, unit: b.Build("MMU")}
	s.replayer = replay.NewReplayer(s.unit)

	s.steps = tracing.NewStepCountTracer(tracing.AllTasks)
	tracing.CollectTrace(s.unit, s.steps)

	s.avgClock = tracing.NewAverageTimeTracer(s.unit, tracing.AllTasks)
	tracing.CollectTrace(s.unit, s.avgClock)

	s.attachRecorder()
	s.attachJSONTracer()

	return s
}

func (s *runSession) attachRecorder() {
	var rec datarecording.DataRecorder

	switch {
	case s.opts.ch.Host != "":
		rec = datarecording.NewClickHouseRecorder(s.opts.ch)
	case s.opts.record != "":
		rec = datarecording.New(s.opts.record)
	default:
		return
	}

	s.exec = datarecording.NewExecRecorder(rec)
	s.unit.AcceptHook(tracing.NewSnapshotRecorder(rec))
	tracing.CollectTrace(s.unit, tracing.NewDBTracer(s.unit, rec))
}

func (s *runSession) attachJSONTracer() {
	if s.opts.traceJSON == "" {
		return
	}

	f, err := os.Create(s.opts.traceJSON)
	if err != nil {
		log.Fatalf("Error creating %s: %v", s.opts.traceJSON, err)
	}

	t := tracing.NewJSONTracer(s.unit, f)
	tracing.CollectTrace(s.unit, t)

	atexit.Register(func() {
		t.Finish()
		_ = f.Close()
	})
}

func (s *runSession) start(numCommands int) {
	if s.exec != nil {
		s.exec.Start()
		s.exec.Set("Policy", s.unit.Policy().Name())
		s.exec.Set("Frames", strconv.Itoa(s.unit.NumFrames()))
		s.exec.Set("Seed", strconv.FormatInt(s.opts.seed, 10))
	}

	if !s.opts.monitor {
		return
	}

	s.monitor = monitoring.NewMonitor().WithPortNumber(s.opts.port)
	s.monitor.RegisterReplayer(s.replayer)
	s.unit.AcceptHook(s.monitor.CreateProgressBar("Replay", uint64(numCommands)))

	url := s.monitor.StartServer()
	if s.opts.open {
		if err := browser.OpenURL(url); err != nil {
			log.Printf("Cannot open browser: %v", err)
		}
	}
}

// replay runs the script. With a monitor, it keeps serving until ctx is done.
func (s *runSession) replay(ctx context.Context) {
	if s.opts.pace > 0 {
		err := s.replayer.RunPaced(ctx, s.opts.pace)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Replay stopped: %v", err)
		}
	} else if !s.opts.monitor {
		s.replayer.Run()
	}

	if s.monitor != nil {
		<-ctx.Done()
	}
}

func (s *runSession) report(w io.Writer) {
	for _, e := range s.replayer.Errors() {
		log.Printf("Error: %v", e)
	}

	kind, _ := s.opts.kind()
	printComparison(w, []comparison{{
		Kind:       kind,
		Accounting: s.unit.Accounting(),
		Errors:     len(s.replayer.Errors()),
	}})

	fmt.Fprintf(w, "\nAverage clock per command: %.2f s over %d commands\n",
		s.avgClock.AverageTime(), s.avgClock.TotalCount())

	for _, name := range s.steps.GetStepNames() {
		fmt.Fprintf(w, "  %-10s %d events in %d commands\n",
			name, s.steps.GetStepCount(name), s.steps.GetTaskCount(name))
	}
}

func (s *runSession) end() {
	if s.exec == nil {
		return
	}

	a := s.unit.Accounting()
	s.exec.Set("Clock", strconv.FormatUint(a.Clock, 10))
	s.exec.Set("Thrashing Time", strconv.FormatUint(a.ThrashingTime, 10))
	s.exec.End()
}
