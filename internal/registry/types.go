// Package registry implements the Subsystem Registry & Lifecycle
// Controller of spec.md §4.3: a dynamic catalog of every long-lived
// service, its dependencies, and its state machine, driving ordered
// startup and dependency-aware shutdown. Grounded on the teacher's
// internal/ctrl.Controller — a type whose methods validate preconditions,
// log at each step, and mutate state under narrow locked sections before
// releasing the lock for a potentially slow callback.
package registry

import (
	"sync/atomic"
	"time"
)

// State is one node in the subsystem lifecycle state machine of
// spec.md §4.3.1.
type State int

const (
	Inactive State = iota
	Ready
	Starting
	Running
	Stopping
	Error
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "INACTIVE"
	case Ready:
		return "READY"
	case Starting:
		return "STARTING"
	case Running:
		return "RUNNING"
	case Stopping:
		return "STOPPING"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ShutdownFlag is the atomically readable integer a subsystem's shutdown
// flag is backed by (spec.md §3: "an owning reference to a per-subsystem
// shutdown flag").
type ShutdownFlag struct {
	v int32
}

func (f *ShutdownFlag) Set() { atomic.StoreInt32(&f.v, 1) }
func (f *ShutdownFlag) Clear() { atomic.StoreInt32(&f.v, 0) }
func (f *ShutdownFlag) IsSet() bool { return atomic.LoadInt32(&f.v) != 0 }

// ThreadTable is the narrow view the registry needs of a subsystem's
// thread table (the full contract lives in internal/threads; this
// interface avoids a hard dependency so a subsystem without a real
// thread table — e.g. a passive one — can be registered with nil).
type ThreadTable interface {
	Count() int
	Snapshot() ThreadTableSnapshot
}

// ThreadTableSnapshot mirrors the fields status_report needs, without
// importing internal/threads's concrete Snapshot type.
type ThreadTableSnapshot struct {
	Count         int
	TotalResident uint64
}

// InitFunc is a subsystem's init callback: zero/false on failure,
// non-zero/true on success (spec.md §6's "zero-on-failure/nonzero-on-
// success" convention, represented as a Go bool).
type InitFunc func() bool

// ShutdownFunc is a subsystem's shutdown callback. It returns nothing —
// per spec.md §4.3.4, a shutdown failure is logged but the subsystem is
// still moved to INACTIVE; ShutdownFunc signals failure via its own
// side channel (e.g. logging) rather than a return value, matching the
// source contract.
type ShutdownFunc func()

// MainThreadHandle is the joinable handle to a subsystem's main thread
// (nullable per spec.md §3).
type MainThreadHandle interface {
	Join()
}

// Registration describes a subsystem to Register.
type Registration struct {
	Name         string
	Threads      ThreadTable
	MainThread   MainThreadHandle
	ShutdownFlag *ShutdownFlag
	Init         InitFunc
	Shutdown     ShutdownFunc
}

// subsystem is the registry's internal record (spec.md §3's "subsystem
// record"). Identified by integer id/index, never by a pointer held
// across an unlocked section — spec.md §9's re-resolve-by-id rule.
type subsystem struct {
	name string

	state        State
	stateChanged time.Time

	threads      ThreadTable
	mainThread   MainThreadHandle
	shutdownFlag *ShutdownFlag

	initFn     InitFunc
	shutdownFn ShutdownFunc

	dependencies []string
}
