package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kronform/runtime/internal/constants"
	"github.com/kronform/runtime/internal/logging"
	"github.com/kronform/runtime/internal/telemetry"
)

// Registry is the subsystem registry and lifecycle controller of
// spec.md §4.3: a growable ordered sequence of subsystem records behind
// a single coarse lock. Capacity doubles on demand starting at
// InitialRegistryCapacity rather than relying on append's own growth
// heuristic, so the boundary behavior spec.md §8 tests ("registering at
// count == capacity triggers exactly one growth") holds exactly.
type Registry struct {
	mu         sync.Mutex
	subsystems []*subsystem
	capacity   int
	byName     map[string]int

	ready bool

	logger    *logging.Pipeline
	telemetry *telemetry.Registrar
}

// New constructs an empty Registry. logger and tel may both be nil, in
// which case lifecycle events log through logging.Default() and no
// metrics are recorded.
func New(logger *logging.Pipeline, tel *telemetry.Registrar) *Registry {
	return &Registry{
		byName:    make(map[string]int),
		logger:    logger,
		telemetry: tel,
		ready:     true,
	}
}

func (r *Registry) log(subsystem, format string, priority logging.Priority, args ...any) {
	logger := r.logger
	if logger == nil {
		logger = logging.Default()
	}
	logger.Log(subsystem, format, priority, len(args), args...)
}

// atLocked bounds-checks id against the current table. Caller must hold
// r.mu.
func (r *Registry) atLocked(id int) (*subsystem, bool) {
	if id < 0 || id >= len(r.subsystems) {
		return nil, false
	}
	return r.subsystems[id], true
}

// growLocked doubles capacity (or jumps to InitialRegistryCapacity from
// zero). Caller must hold r.mu.
func (r *Registry) growLocked() {
	newCap := r.capacity * 2
	if newCap == 0 {
		newCap = constants.InitialRegistryCapacity
	}
	grown := make([]*subsystem, len(r.subsystems), newCap)
	copy(grown, r.subsystems)
	r.subsystems = grown
	r.capacity = newCap
}

// startSpan opens spanName around a lifecycle transition when a tracer is
// configured; callers must always call the returned end func, even when
// tracer is nil (it's a no-op in that case).
func (r *Registry) startSpan(spanName, subsystemName string) (outcome *string, end func()) {
	if r.telemetry == nil || r.telemetry.Tracer == nil {
		return nil, func() {}
	}
	_, span := r.telemetry.Tracer.Start(context.Background(), spanName,
		trace.WithAttributes(attribute.String("subsystem", subsystemName)))
	result := "ok"
	return &result, func() {
		span.SetAttributes(attribute.String("outcome", result))
		span.End()
	}
}

func (r *Registry) setStateLocked(s *subsystem, newState State) {
	s.state = newState
	s.stateChanged = time.Now()
	if r.telemetry != nil {
		r.telemetry.SubsystemState.WithLabelValues(s.name).Set(float64(newState))
	}
}

// InitRegistry reinitializes the registry to empty, dropping every name
// and dependency string it currently holds. Intended for test isolation
// between independent scenarios.
//
// The source reinitializes its mutex (destroy then re-create) for the
// same purpose; Go's sync.Mutex holds no OS resource and a zero Mutex is
// already valid, so there is nothing to destroy — this is a deliberate
// no-op rather than a forgotten step.
func (r *Registry) InitRegistry() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subsystems = nil
	r.capacity = 0
	r.byName = make(map[string]int)
}

// Register adds a new subsystem record. Returns its id, or -1 and an
// error on a null/empty/duplicate name.
func (r *Registry) Register(reg Registration) (int, error) {
	if reg.Name == "" {
		r.log("", "register rejected: empty subsystem name", logging.Error)
		return -1, newError("Register", "", CodeBadArgument, "name must not be empty")
	}

	r.mu.Lock()
	if _, exists := r.byName[reg.Name]; exists {
		r.mu.Unlock()
		r.log(reg.Name, "register rejected: %s already registered", logging.Error, reg.Name)
		return -1, newError("Register", reg.Name, CodeNameCollision, "already registered")
	}

	if len(r.subsystems) >= r.capacity {
		r.growLocked()
	}

	s := &subsystem{
		name:         reg.Name,
		state:        Inactive,
		stateChanged: time.Now(),
		threads:      reg.Threads,
		mainThread:   reg.MainThread,
		shutdownFlag: reg.ShutdownFlag,
		initFn:       reg.Init,
		shutdownFn:   reg.Shutdown,
	}
	r.subsystems = append(r.subsystems, s)
	id := len(r.subsystems) - 1
	r.byName[reg.Name] = id
	r.mu.Unlock()

	r.log(reg.Name, "registered subsystem", logging.Debug)
	return id, nil
}

// AddDependency appends dependency to the subsystem's dependency list.
// Idempotent: adding the same name twice leaves exactly one entry.
func (r *Registry) AddDependency(id int, dependency string) error {
	if dependency == "" {
		r.log("", "add-dependency rejected: empty dependency name", logging.Error)
		return newError("AddDependency", "", CodeBadArgument, "dependency name must not be empty")
	}

	r.mu.Lock()
	s, ok := r.atLocked(id)
	if !ok {
		r.mu.Unlock()
		return newError("AddDependency", "", CodeUnknownSubsystem, "invalid id")
	}
	for _, d := range s.dependencies {
		if d == dependency {
			r.mu.Unlock()
			return nil
		}
	}
	if len(s.dependencies) >= constants.MaxDependencies {
		name := s.name
		r.mu.Unlock()
		r.log(name, "dependency list full, cannot add %s", logging.Error, dependency)
		return newError("AddDependency", name, CodeCapacityExhausted, "dependency list full")
	}
	s.dependencies = append(s.dependencies, dependency)
	r.mu.Unlock()
	return nil
}

// Start transitions a subsystem through INACTIVE/ERROR -> STARTING ->
// RUNNING/ERROR, per spec.md §4.3.2. Already-RUNNING or -STARTING
// subsystems return success immediately. init_fn runs outside the lock.
func (r *Registry) Start(id int) error {
	r.mu.Lock()
	s, ok := r.atLocked(id)
	if !ok {
		r.mu.Unlock()
		return newError("Start", "", CodeUnknownSubsystem, "invalid id")
	}
	if s.state == Running || s.state == Starting {
		r.mu.Unlock()
		return nil
	}

	var missing []string
	for _, dep := range s.dependencies {
		depIdx, ok := r.byName[dep]
		if !ok || r.subsystems[depIdx].state != Running {
			missing = append(missing, dep)
		}
	}
	if len(missing) > 0 {
		name := s.name
		r.mu.Unlock()
		r.log(name, "cannot start: missing/not-running dependencies: %s", logging.Error, strings.Join(missing, ", "))
		return newError("Start", name, CodeDependencyMissing, "missing dependencies: "+strings.Join(missing, ", "))
	}

	r.setStateLocked(s, Starting)
	name := s.name
	initFn := s.initFn
	r.mu.Unlock()

	outcome, endSpan := r.startSpan("registry.start", name)
	defer endSpan()

	r.log(name, "starting", logging.Debug)

	ok2 := true
	if initFn != nil {
		ok2 = initFn()
	}

	r.mu.Lock()
	if s2, exists := r.atLocked(id); exists {
		if ok2 {
			r.setStateLocked(s2, Running)
		} else {
			r.setStateLocked(s2, Error)
		}
	}
	r.mu.Unlock()

	if !ok2 {
		if outcome != nil {
			*outcome = "init_failed"
		}
		r.log(name, "init failed", logging.Error)
		return newError("Start", name, CodeCallbackFailure, "init callback failed")
	}
	r.log(name, "running", logging.State)
	return nil
}

// Stop transitions RUNNING/STARTING/ERROR -> STOPPING -> INACTIVE.
// Already-INACTIVE subsystems return success immediately. Fails if any
// other RUNNING/STARTING subsystem still lists this one as a dependency.
func (r *Registry) Stop(id int) error {
	r.mu.Lock()
	s, ok := r.atLocked(id)
	if !ok {
		r.mu.Unlock()
		return newError("Stop", "", CodeUnknownSubsystem, "invalid id")
	}
	if s.state == Inactive {
		r.mu.Unlock()
		return nil
	}

	name := s.name
	var blockedBy []string
	for _, other := range r.subsystems {
		if other == s {
			continue
		}
		if other.state != Running && other.state != Starting {
			continue
		}
		for _, dep := range other.dependencies {
			if dep == name {
				blockedBy = append(blockedBy, other.name)
				break
			}
		}
	}
	if len(blockedBy) > 0 {
		r.mu.Unlock()
		r.log(name, "cannot stop: still depended on by: %s", logging.Error, strings.Join(blockedBy, ", "))
		return newError("Stop", name, CodeDependentStillActive, "depended on by: "+strings.Join(blockedBy, ", "))
	}

	r.setStateLocked(s, Stopping)
	shutdownFlag := s.shutdownFlag
	shutdownFn := s.shutdownFn
	mainThread := s.mainThread
	r.mu.Unlock()

	_, endSpan := r.startSpan("registry.stop", name)
	defer endSpan()

	r.log(name, "stopping", logging.Alert)

	if shutdownFlag != nil {
		shutdownFlag.Set()
	}
	if shutdownFn != nil {
		shutdownFn()
	}
	if mainThread != nil {
		mainThread.Join()
	}

	r.mu.Lock()
	if s2, ok2 := r.atLocked(id); ok2 {
		r.setStateLocked(s2, Inactive)
		s2.mainThread = nil
	}
	r.mu.Unlock()

	r.log(name, "stopped", logging.State)
	return nil
}

// StopAndDependents stops every RUNNING subsystem that transitively
// depends on id before stopping id itself. The recursion releases the
// lock around each recursive call; on reacquiring, it re-resolves id by
// index rather than holding a stale pointer, since the underlying array
// may have grown while the lock was released.
func (r *Registry) StopAndDependents(id int) error {
	r.mu.Lock()
	s, ok := r.atLocked(id)
	if !ok {
		r.mu.Unlock()
		return newError("StopAndDependents", "", CodeUnknownSubsystem, "invalid id")
	}
	name := s.name

	var dependentIDs []int
	for i, other := range r.subsystems {
		if i == id || other.state != Running {
			continue
		}
		for _, dep := range other.dependencies {
			if dep == name {
				dependentIDs = append(dependentIDs, i)
				break
			}
		}
	}
	r.mu.Unlock()

	for _, depID := range dependentIDs {
		if err := r.StopAndDependents(depID); err != nil {
			return err
		}
	}

	r.mu.Lock()
	_, stillThere := r.atLocked(id)
	r.mu.Unlock()
	if !stillThere {
		return newError("StopAndDependents", name, CodeUnknownSubsystem, "subsystem vanished during recursive stop")
	}

	return r.Stop(id)
}

// StopAllInDependencyOrder repeatedly stops a "leaf" RUNNING subsystem
// (one no other RUNNING subsystem depends on) until no leaf remains,
// pausing briefly between rounds so a winding-down subsystem has time to
// finish. Returns the number of subsystems successfully stopped.
func (r *Registry) StopAllInDependencyOrder() int {
	stopped := 0
	for {
		leafID, found := r.findLeafRunning()
		if !found {
			return stopped
		}
		if err := r.Stop(leafID); err == nil {
			stopped++
		}
		time.Sleep(constants.StopAllPollInterval)
	}
}

func (r *Registry) findLeafRunning() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.subsystems {
		if s.state != Running {
			continue
		}
		leaf := true
	others:
		for _, other := range r.subsystems {
			if other == s || other.state != Running {
				continue
			}
			for _, dep := range other.dependencies {
				if dep == s.name {
					leaf = false
					break others
				}
			}
		}
		if leaf {
			return i, true
		}
	}
	return 0, false
}

// CheckDependencies reports whether every dependency listed for id is
// currently RUNNING.
func (r *Registry) CheckDependencies(id int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.atLocked(id)
	if !ok {
		return false
	}
	for _, dep := range s.dependencies {
		idx, ok := r.byName[dep]
		if !ok || r.subsystems[idx].state != Running {
			return false
		}
	}
	return true
}

func (r *Registry) IsRunning(id int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.atLocked(id)
	return ok && s.state == Running
}

// IsRunningByName is the short, already-locked accessor the logging
// pipeline's StartupGate uses — see spec.md §5's lock-ordering
// constraint.
func (r *Registry) IsRunningByName(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx, ok := r.byName[name]
	return ok && r.subsystems[idx].state == Running
}

func (r *Registry) GetState(id int) (State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.atLocked(id)
	if !ok {
		return Inactive, false
	}
	return s.state, true
}

func (r *Registry) IDByName(name string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx, ok := r.byName[name]
	return idx, ok
}

// MarkReady sets id's state to READY, the pre-start snapshot external
// readiness wiring may produce; Start never transitions a subsystem into
// this state on its own.
func (r *Registry) MarkReady(id int) error {
	r.mu.Lock()
	s, ok := r.atLocked(id)
	if !ok {
		r.mu.Unlock()
		return newError("MarkReady", "", CodeUnknownSubsystem, "invalid id")
	}
	r.setStateLocked(s, Ready)
	r.mu.Unlock()
	return nil
}

// IsLoggingRunning implements logging.StartupGate.
func (r *Registry) IsLoggingRunning() bool {
	return r.IsRunningByName("Logging")
}

// IsRegistryEmpty implements logging.StartupGate.
func (r *Registry) IsRegistryEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subsystems) == 0
}

// Readiness is the record readiness_check produces (spec.md §4.3.2).
type Readiness struct {
	Name     string
	Ready    bool
	Messages [3]string
}

// ReadinessCheck reports whether the registry itself is ready to accept
// registrations and lifecycle calls.
func (r *Registry) ReadinessCheck() Readiness {
	r.mu.Lock()
	count := len(r.subsystems)
	r.mu.Unlock()

	return Readiness{
		Name:  "Registry",
		Ready: r.ready,
		Messages: [3]string{
			fmt.Sprintf("subsystem registry initialized: %v", r.ready),
			fmt.Sprintf("%d subsystem(s) registered", count),
			"lifecycle controller accepting start/stop requests",
		},
	}
}

// StatusReport logs every subsystem's name, state, time in current
// state, dependency list, and — when a thread table is attached — its
// live thread count and aggregate resident bytes.
func (r *Registry) StatusReport() {
	type row struct {
		name        string
		state       State
		since       time.Duration
		deps        []string
		threadCount int
		resident    uint64
		hasThreads  bool
	}

	r.mu.Lock()
	now := time.Now()
	rows := make([]row, 0, len(r.subsystems))
	for _, s := range r.subsystems {
		rr := row{
			name:  s.name,
			state: s.state,
			since: now.Sub(s.stateChanged),
			deps:  append([]string(nil), s.dependencies...),
		}
		if s.threads != nil {
			snap := s.threads.Snapshot()
			rr.threadCount = snap.Count
			rr.resident = snap.TotalResident
			rr.hasThreads = true
		}
		rows = append(rows, rr)
	}
	r.mu.Unlock()

	for _, rr := range rows {
		level := logging.Debug
		switch rr.state {
		case Error:
			level = logging.Error
		case Stopping:
			level = logging.Alert
		}
		if r.telemetry != nil {
			r.telemetry.SubsystemStateSeconds.WithLabelValues(rr.name).Set(rr.since.Seconds())
		}
		deps := strings.Join(rr.deps, ",")
		if rr.hasThreads {
			r.log(rr.name, "state=%s since=%s deps=%s threads=%d resident=%d", level,
				rr.state.String(), rr.since.Round(time.Second).String(), deps, rr.threadCount, rr.resident)
		} else {
			r.log(rr.name, "state=%s since=%s deps=%s", level,
				rr.state.String(), rr.since.Round(time.Second).String(), deps)
		}
	}
}
