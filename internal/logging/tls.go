package logging

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// goroutineID extracts the runtime-assigned goroutine id from the current
// goroutine's stack trace header ("goroutine 123 [running]:"). Go has no
// public API for this and no native thread-locals; this is the same trick
// community goroutine-local-storage shims use. It is deliberately cheap
// (a single small stack capture) since it runs on every Log call.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}
	id, err := strconv.ParseInt(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// tlsFlag emulates a per-goroutine boolean with lazy initialization. There
// is no goroutine-exit hook in Go, so entries accumulate for the lifetime
// of the process; this is the Go-native instance of the "allocation
// failure falls back to a static flag... accepted degradation" language in
// the spec's TLS-lifecycle section. sync.Map keeps the common case (a
// goroutine that logs repeatedly) allocation-free after its first touch.
type tlsFlag struct {
	m sync.Map // int64 goroutine id -> bool
}

func (f *tlsFlag) get() bool {
	v, ok := f.m.Load(goroutineID())
	if !ok {
		return false
	}
	return v.(bool)
}

func (f *tlsFlag) set(v bool) {
	f.m.Store(goroutineID(), v)
}

var (
	loggingOperation tlsFlag // entered the log path
	mutexOperation   tlsFlag // entered a lock that might itself log
	logGroupHolder   tlsFlag // this goroutine holds the log-group lock
)

// BeginMutexOperation marks the current goroutine as being inside a lock
// acquisition that might itself call Log, returning the prior value so the
// caller can restore it. Code paths that take a lock where nested logging
// could recurse or deadlock (see internal/logging's buffer queries) wrap
// the locked section with this guard.
func BeginMutexOperation() bool {
	prev := mutexOperation.get()
	mutexOperation.set(true)
	return prev
}

// EndMutexOperation restores the mutex_operation flag to the value
// BeginMutexOperation returned.
func EndMutexOperation(prev bool) {
	mutexOperation.set(prev)
}
