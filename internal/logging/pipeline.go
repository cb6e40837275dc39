// Package logging implements the asynchronous, recursion-safe logging
// pipeline: a single entry point callable from any thread at any point in
// the process lifecycle, a rolling in-memory buffer, a bounded queue
// consumed by a dedicated goroutine, and a synchronous console fallback
// used before the queue exists and after shutdown begins.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/kronform/runtime/internal/constants"
	"github.com/kronform/runtime/internal/telemetry"
)

// StartupGate lets the entry point consult subsystem-registry state
// without ever taking the registry lock itself. Both methods must be
// short, already-locked accessors — spec.md §5's lock-ordering
// constraint forbids the registry lock being held across a call into
// logging that might block, while the queue consumer independently takes
// the registry lock through IsRunningByName.
type StartupGate interface {
	IsLoggingRunning() bool
	IsRegistryEmpty() bool
}

// nullGate is the default StartupGate before a subsystem registry is
// wired in: registry is empty and Logging is not running, which
// correctly forces startup-mode dispatch.
type nullGate struct{}

func (nullGate) IsLoggingRunning() bool { return false }
func (nullGate) IsRegistryEmpty() bool  { return true }

// dispatchMode is the three-way choice spec.md §4.2.1 step 10 makes.
type dispatchMode int

const (
	modeNormal dispatchMode = iota
	modeStartup
	modeShutdown
)

// PipelineOptions configures a new Pipeline. Every field is optional; a
// zero-value PipelineOptions builds a working standalone pipeline with a
// default in-process queue, console enabled, and no sinks.
type PipelineOptions struct {
	Config       ConfigSource
	Gate         StartupGate
	Sink         Sink
	DatabaseSink Sink
	Queue        Queue
	Telemetry    *telemetry.Registrar
	ConsoleOutput io.Writer
}

// Pipeline is the runtime struct backing the logging entry point — the
// "single owned runtime struct" of spec.md §9 for this subsystem.
type Pipeline struct {
	config ConfigSource
	gateMu sync.RWMutex
	gate   StartupGate
	sink   Sink
	dbSink Sink

	queues *QueueRegistry

	serverRunning int32
	queueShutdown int32

	counter uint64

	buffer *ringBuffer
	group  *groupState
	logMu  sync.Mutex

	console *consoleLogger
	file    *fileSink

	telemetry *telemetry.Registrar

	consumerWG   sync.WaitGroup
	consumerOnce sync.Once
}

// NewPipeline constructs a Pipeline. The returned error is only non-nil
// when a configured file destination path cannot be opened.
func NewPipeline(opts PipelineOptions) (*Pipeline, error) {
	sink := opts.Sink
	if sink == nil {
		sink = noopSink{}
	}
	gate := opts.Gate
	if gate == nil {
		gate = nullGate{}
	}

	buf := newRingBuffer()
	console := newConsoleLogger(opts.ConsoleOutput)
	console.logger.AddHook(&bufferHook{buf: buf})

	var fs *fileSink
	if opts.Config != nil && opts.Config.FilePath() != "" {
		var err error
		fs, err = newFileSink(opts.Config.FilePath())
		if err != nil {
			return nil, fmt.Errorf("logging: open file destination: %w", err)
		}
	}

	q := opts.Queue
	if q == nil {
		q = NewMemQueue(SystemLogQueueName, constants.LogQueueCapacity)
	}
	queues := NewQueueRegistry()
	queues.Register(q)

	p := &Pipeline{
		config:    opts.Config,
		gate:      gate,
		sink:      sink,
		dbSink:    opts.DatabaseSink,
		queues:    queues,
		buffer:    buf,
		group:     newGroupState(),
		console:   console,
		file:      fs,
		telemetry: opts.Telemetry,
	}
	p.refreshConsoleWidths()
	return p, nil
}

// SetConfig installs cfg as the pipeline's ConfigSource and recomputes the
// console formatter's label widths from it (spec.md §4.2.2).
func (p *Pipeline) SetConfig(cfg ConfigSource) {
	p.config = cfg
	p.refreshConsoleWidths()
}

// refreshConsoleWidths recomputes the console formatter's priority/
// subsystem label widths from the configured destination tables, falling
// back to the spec's built-in 9/18 widths when no config is installed.
// consoleFormatter.setWidths never shrinks below those fallbacks, since it
// seeds each width with the fallback before comparing label lengths.
func (p *Pipeline) refreshConsoleWidths() {
	if p.config == nil {
		return
	}

	priorityLabels := make([]string, 0, len(priorityNames))
	for _, name := range priorityNames {
		priorityLabels = append(priorityLabels, name)
	}

	seen := make(map[string]struct{})
	var subsystemLabels []string
	for _, dest := range []DestinationConfig{p.config.Console(), p.config.File(), p.config.Database()} {
		for name := range dest.Subsystems {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			subsystemLabels = append(subsystemLabels, name)
		}
	}

	p.console.fmtr.setWidths(priorityLabels, subsystemLabels)
}

var (
	defaultPipeline   *Pipeline
	defaultPipelineMu sync.RWMutex
)

// Default returns the process-wide default Pipeline, lazily constructing
// one with PipelineOptions{} if SetDefault was never called. This is the
// accessor the entry point itself uses when it must be callable from any
// stack depth with no argument to thread through.
func Default() *Pipeline {
	defaultPipelineMu.RLock()
	p := defaultPipeline
	defaultPipelineMu.RUnlock()
	if p != nil {
		return p
	}

	defaultPipelineMu.Lock()
	defer defaultPipelineMu.Unlock()
	if defaultPipeline == nil {
		// PipelineOptions{} never fails to construct: no file destination
		// is configured, so the only fallible step is skipped.
		defaultPipeline, _ = NewPipeline(PipelineOptions{})
	}
	return defaultPipeline
}

// SetDefault installs p as the process-wide default pipeline.
func SetDefault(p *Pipeline) {
	defaultPipelineMu.Lock()
	defer defaultPipelineMu.Unlock()
	defaultPipeline = p
}

// SetServerRunning flips the global "server running" flag spec.md
// §4.2.1's startup-mode detection consults.
func (p *Pipeline) SetServerRunning(running bool) {
	if running {
		atomic.StoreInt32(&p.serverRunning, 1)
	} else {
		atomic.StoreInt32(&p.serverRunning, 0)
	}
}

// SetGate rewires the StartupGate, normally once the subsystem registry
// exists.
func (p *Pipeline) SetGate(gate StartupGate) {
	if gate == nil {
		gate = nullGate{}
	}
	p.gateMu.Lock()
	defer p.gateMu.Unlock()
	p.gate = gate
}

func (p *Pipeline) currentGate() StartupGate {
	p.gateMu.RLock()
	defer p.gateMu.RUnlock()
	return p.gate
}

// Log is the single public entry point of spec.md §4.2.1.
func (p *Pipeline) Log(subsystem, format string, priority Priority, argCount int, args ...any) {
	if mutexOperation.get() {
		// Anti-recursion backstop: a logging call issued from inside a
		// lock acquisition that itself might log is silently dropped.
		return
	}

	prevLogging := loggingOperation.get()
	loggingOperation.set(true)
	defer loggingOperation.set(prevLogging)

	if subsystem == "" {
		subsystem = "Unknown"
	}
	if format == "" {
		format = "No message"
	}

	if n := countSpecifiers(format); n != argCount {
		fmt.Fprintf(os.Stderr, "logging: specifier/arg mismatch in %q: format wants %d args, got %d\n", format, n, argCount)
	}

	isHolder := logGroupHolder.get()
	if !isHolder {
		p.group.condMu.Lock()
		for p.group.active {
			p.group.cond.Wait()
		}
		p.group.condMu.Unlock()

		p.logMu.Lock()
		defer p.logMu.Unlock()
	}

	details := formatMessage(format, args)

	// Step 8: always invoke the out-of-band sink, before any filtering.
	p.sink.Send(subsystem, details, priority)

	counter := p.nextCounter()
	rec := newRecord(subsystem, details, priority, counter)

	switch p.dispatchMode(details) {
	case modeStartup:
		if priority >= p.startupLogLevel() {
			p.writeConsole(rec)
		}
	case modeShutdown:
		p.writeConsole(rec)
	default:
		p.dispatchNormal(rec)
	}

	if p.telemetry != nil {
		p.telemetry.LogRecordsTotal.WithLabelValues(subsystem, priority.String()).Inc()
	}
}

func (p *Pipeline) dispatchNormal(rec record) {
	enqueued := false
	if q, ok := p.queues.Find(SystemLogQueueName); ok {
		payload, err := json.Marshal(rec)
		if err == nil {
			if err := q.Enqueue(payload, rec.Priority); err == nil {
				enqueued = true
				if p.telemetry != nil {
					p.telemetry.LogQueueDepth.Set(float64(q.Size()))
				}
			}
		}
	}
	if !enqueued {
		if p.telemetry != nil {
			p.telemetry.LogRecordsDropped.WithLabelValues(rec.Subsystem, "enqueue_failed").Inc()
		}
		if p.consoleEnabled() {
			p.writeConsole(rec)
		}
	}
}

func (p *Pipeline) dispatchMode(details string) dispatchMode {
	if atomic.LoadInt32(&p.queueShutdown) != 0 {
		return modeShutdown
	}
	gate := p.currentGate()
	if atomic.LoadInt32(&p.serverRunning) == 0 ||
		gate.IsRegistryEmpty() ||
		!gate.IsLoggingRunning() ||
		details == "Shutdown complete" {
		return modeStartup
	}
	return modeNormal
}

func (p *Pipeline) consoleEnabled() bool {
	if p.config == nil {
		return true
	}
	return p.config.Console().Enabled
}

func (p *Pipeline) startupLogLevel() Priority {
	if p.config == nil {
		return Debug
	}
	return p.config.StartupLogLevel()
}

func (p *Pipeline) writeConsole(rec record) {
	p.console.write(rec)
}

// QueryLast returns the most recent n buffered lines, newest first.
func (p *Pipeline) QueryLast(n int) []string {
	return p.buffer.queryLast(n)
}

// QueryBySubsystem returns every buffered line containing name as a
// substring, newest first, newline-joined.
func (p *Pipeline) QueryBySubsystem(name string) string {
	return p.buffer.queryBySubsystem(name)
}

// StartConsumer launches the dedicated queue-consumer goroutine. It is
// idempotent: subsequent calls are no-ops.
func (p *Pipeline) StartConsumer(ctx context.Context) {
	p.consumerOnce.Do(func() {
		p.consumerWG.Add(1)
		go p.consumeLoop(ctx)
	})
}

// Shutdown sets the queue-shutdown flag, closes the SystemLog queue so
// the consumer drains the remainder and exits, and waits for it to
// finish.
func (p *Pipeline) Shutdown() {
	atomic.StoreInt32(&p.queueShutdown, 1)
	if q, ok := p.queues.Find(SystemLogQueueName); ok {
		q.Close()
	}
	p.consumerWG.Wait()
}

// nextCounter atomically allocates the next monotonic counter value. The
// increment is sequentially consistent, so the order in which callers
// observe their returned value matches the order their calls actually
// completed the increment, across all goroutines.
func (p *Pipeline) nextCounter() uint64 {
	return atomic.AddUint64(&p.counter, 1) - 1
}

func formatMessage(format string, args []any) string {
	msg := fmt.Sprintf(format, args...)
	if len(msg) > constants.DefaultLogEntrySize {
		msg = msg[:constants.DefaultLogEntrySize]
	}
	return msg
}

// countSpecifiers counts the final printf-style conversion characters in
// format (spec.md §4.2.1 step 4): %% is a literal and never counted;
// flags, width, precision, and length modifiers are skipped; only a
// trailing conversion character from diouxXeEfFgGaAcspn counts.
func countSpecifiers(format string) int {
	const conversions = "diouxXeEfFgGaAcspn"
	count := 0
	n := len(format)
	for i := 0; i < n; i++ {
		if format[i] != '%' {
			continue
		}
		j := i + 1
		if j < n && format[j] == '%' {
			i = j
			continue
		}
		for j < n && strings.ContainsRune("-+ 0#", rune(format[j])) {
			j++
		}
		for j < n && format[j] >= '0' && format[j] <= '9' {
			j++
		}
		if j < n && format[j] == '.' {
			j++
			for j < n && format[j] >= '0' && format[j] <= '9' {
				j++
			}
		}
		for j < n && strings.ContainsRune("hlLqjzt", rune(format[j])) {
			j++
		}
		if j < n && strings.ContainsRune(conversions, rune(format[j])) {
			count++
		}
		i = j
	}
	return count
}
