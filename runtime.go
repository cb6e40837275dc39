// Package runtime provides the process-wide runtime core: a subsystem
// registry and lifecycle controller, a thread registry, and an
// asynchronous logging pipeline, wired together behind a single owned
// Runtime struct.
package runtime

import (
	"context"
	"io"

	"github.com/kronform/runtime/internal/logging"
	"github.com/kronform/runtime/internal/registry"
	"github.com/kronform/runtime/internal/telemetry"
	"github.com/kronform/runtime/internal/threads"
)

// Options configures a new Runtime. Every field is optional.
type Options struct {
	Config        logging.ConfigSource
	Sink          logging.Sink
	DatabaseSink  logging.Sink
	Queue         logging.Queue
	ConsoleOutput io.Writer
	TracerName    string
}

// Runtime is the single owned struct wiring the three subsystems
// together: the subsystem registry doubles as the logging pipeline's
// StartupGate, and both share one telemetry registrar so a single
// /metrics endpoint (mounted by an external HTTP subsystem) surfaces
// both logging throughput and subsystem state.
type Runtime struct {
	Logging   *logging.Pipeline
	Registry  *registry.Registry
	Telemetry *telemetry.Registrar
}

// New constructs a fully wired Runtime. It also installs Logging as the
// package-level logging default, so internal/threads and any other
// collaborator calling logging.Default() reaches this pipeline.
func New(opts Options) (*Runtime, error) {
	tracerName := opts.TracerName
	if tracerName == "" {
		tracerName = "runtime"
	}
	tel := telemetry.New(tracerName)

	pipeline, err := logging.NewPipeline(logging.PipelineOptions{
		Config:        opts.Config,
		Sink:          opts.Sink,
		DatabaseSink:  opts.DatabaseSink,
		Queue:         opts.Queue,
		Telemetry:     tel,
		ConsoleOutput: opts.ConsoleOutput,
	})
	if err != nil {
		return nil, err
	}

	reg := registry.New(pipeline, tel)
	pipeline.SetGate(reg)
	logging.SetDefault(pipeline)
	threads.SetTelemetry(tel)

	return &Runtime{Logging: pipeline, Registry: reg, Telemetry: tel}, nil
}

// Start brings the runtime's own logging consumer online and marks the
// process as running, so the logging pipeline switches from
// startup-mode direct console writes to normal queued dispatch once the
// subsystems it gates on are themselves started.
func (rt *Runtime) Start(ctx context.Context) {
	rt.Logging.StartConsumer(ctx)
	rt.Logging.SetServerRunning(true)
}

// Shutdown stops every registered subsystem in dependency order, then
// stops accepting new queued log records and drains the queue.
func (rt *Runtime) Shutdown() {
	rt.Registry.StopAllInDependencyOrder()
	rt.Logging.Shutdown()
}

// threadTableAdapter satisfies registry.ThreadTable by translating
// threads.Table's richer Snapshot into the narrower
// registry.ThreadTableSnapshot the registry package depends on, keeping
// internal/registry free of a direct internal/threads import.
type threadTableAdapter struct {
	table *threads.Table
}

// NewThreadTable wraps table so it can be attached to a
// registry.Registration.
func NewThreadTable(table *threads.Table) registry.ThreadTable {
	return &threadTableAdapter{table: table}
}

func (a *threadTableAdapter) Count() int { return a.table.Count() }

func (a *threadTableAdapter) Snapshot() registry.ThreadTableSnapshot {
	s := a.table.Snapshot()
	return registry.ThreadTableSnapshot{Count: s.Count, TotalResident: s.TotalResident}
}
