// Package threads implements the Thread Registry of spec.md §4.1: a
// fixed-capacity, per-subsystem table of worker threads and their sampled
// memory footprint. Grounded on the teacher's internal/queue.Pool/Runner
// shape — a fixed-capacity, mutex-guarded table with swap-remove — scaled
// up from "per-queue I/O descriptors" to "per-subsystem worker threads."
package threads

import (
	"fmt"
	"strings"
	"sync"

	"github.com/kronform/runtime/internal/constants"
	"github.com/kronform/runtime/internal/logging"
	"github.com/kronform/runtime/internal/telemetry"
)

// tel is the package-wide telemetry registrar, wired once at process
// startup the same way internal/logging exposes Default(): SampleMetrics
// must be callable from any subsystem's worker goroutine with no
// registrar argument to thread through.
var (
	telMu sync.RWMutex
	tel   *telemetry.Registrar
)

// SetTelemetry wires the shared telemetry.Registrar SampleMetrics reports
// per-subsystem thread gauges to. Passing nil disables gauge updates.
func SetTelemetry(t *telemetry.Registrar) {
	telMu.Lock()
	defer telMu.Unlock()
	tel = t
}

func currentTelemetry() *telemetry.Registrar {
	telMu.RLock()
	defer telMu.RUnlock()
	return tel
}

// Entry is one tracked worker thread.
type Entry struct {
	Handle      uint64 // opaque thread handle chosen by the caller
	OSThreadID  int    // OS-reported thread id
	Virtual     uint64 // sampled virtual memory, in bytes
	Resident    uint64 // sampled resident memory, in bytes
	Description string // optional, truncated to MaxThreadDescriptionLen
}

// Table is a fixed-capacity per-subsystem table of worker threads. Each
// Table's own mutex serializes every mutation and every read of that
// table's counts/metrics, so precise counts are reported only through the
// mutex-protected operations. Operations on different tables are not
// serialized against each other.
type Table struct {
	mu sync.Mutex

	subsystemName string
	entries       [constants.MaxServiceThreads]Entry
	count         int

	totalVirtual  uint64
	totalResident uint64

	finalShutdown bool
}

// Init zero-initializes table and copies subsystemName, truncated to
// MaxSubsystemNameLen bytes.
func Init(table *Table, subsystemName string) {
	table.mu.Lock()
	defer table.mu.Unlock()

	table.entries = [constants.MaxServiceThreads]Entry{}
	table.count = 0
	table.totalVirtual = 0
	table.totalResident = 0
	table.finalShutdown = false
	if len(subsystemName) > constants.MaxSubsystemNameLen {
		subsystemName = subsystemName[:constants.MaxSubsystemNameLen]
	}
	table.subsystemName = subsystemName

	register(table)
}

// Add records a new worker thread. If the table is already at
// MaxServiceThreads, the add is a logged no-op — capacity overflow is a
// failure condition, never fatal.
func Add(table *Table, handle uint64, osThreadID int, description string) {
	table.mu.Lock()
	defer table.mu.Unlock()

	if table.count >= constants.MaxServiceThreads {
		logging.Default().Log(table.subsystemName, "thread table full, dropping thread %d", logging.Error, 1, handle)
		return
	}

	if len(description) > constants.MaxThreadDescriptionLen {
		description = description[:constants.MaxThreadDescriptionLen]
	}

	table.entries[table.count] = Entry{
		Handle:      handle,
		OSThreadID:  osThreadID,
		Description: description,
	}
	table.count++

	if !table.finalShutdown {
		logging.Default().Log(table.subsystemName, "added worker thread %d (os tid %d)", logging.Trace, 2, handle, osThreadID)
	}
}

// Remove swaps the matching entry with the last live entry and
// decrements count, keeping entries densely packed.
func Remove(table *Table, handle uint64) {
	table.mu.Lock()
	defer table.mu.Unlock()

	idx := table.indexOf(handle)
	if idx < 0 {
		return
	}

	last := table.count - 1
	table.entries[idx] = table.entries[last]
	table.entries[last] = Entry{}
	table.count--

	if !table.finalShutdown {
		logging.Default().Log(table.subsystemName, "removed worker thread %d", logging.Trace, 1, handle)
	}
}

// indexOf returns the slot index of handle, or -1. Caller must hold
// table.mu.
func (table *Table) indexOf(handle uint64) int {
	for i := 0; i < table.count; i++ {
		if table.entries[i].Handle == handle {
			return i
		}
	}
	return -1
}

// SampleMetrics probes each live entry's liveness, removes dead threads
// silently, and samples memory for survivors, updating table-wide
// totals. The per-OS liveness/stack-size probe is supplied by
// probeLiveness/probeMemory, implemented per-platform.
func SampleMetrics(table *Table) {
	table.mu.Lock()
	defer table.mu.Unlock()

	i := 0
	for i < table.count {
		e := &table.entries[i]
		if !probeLiveness(e.OSThreadID) {
			last := table.count - 1
			table.entries[i] = table.entries[last]
			table.entries[last] = Entry{}
			table.count--
			continue
		}
		virt, res := probeMemory(e.OSThreadID)
		e.Virtual = virt
		e.Resident = res
		i++
	}

	var totalV, totalR uint64
	for i := 0; i < table.count; i++ {
		totalV += table.entries[i].Virtual
		totalR += table.entries[i].Resident
	}
	table.totalVirtual = totalV
	table.totalResident = totalR

	if t := currentTelemetry(); t != nil {
		t.ThreadCount.WithLabelValues(table.subsystemName).Set(float64(table.count))
		t.ThreadVirtualBytes.WithLabelValues(table.subsystemName).Set(float64(totalV))
		t.ThreadResidentBytes.WithLabelValues(table.subsystemName).Set(float64(totalR))
	}
}

// Snapshot is a read-only copy of a table's aggregate state, safe to
// read without holding the table's mutex.
type Snapshot struct {
	SubsystemName string
	Count         int
	TotalVirtual  uint64
	TotalResident uint64
}

// Snapshot returns the table's current aggregate counts.
func (table *Table) Snapshot() Snapshot {
	table.mu.Lock()
	defer table.mu.Unlock()
	return Snapshot{
		SubsystemName: table.subsystemName,
		Count:         table.count,
		TotalVirtual:  table.totalVirtual,
		TotalResident: table.totalResident,
	}
}

// Count returns the number of live threads tracked, under lock.
func (table *Table) Count() int {
	table.mu.Lock()
	defer table.mu.Unlock()
	return table.count
}

// free re-initializes table in place without unregistering it,
// suppressing lifecycle logs (final-shutdown mode). Caller must hold
// table.mu.
func (table *Table) free(finalShutdown bool) {
	table.entries = [constants.MaxServiceThreads]Entry{}
	table.count = 0
	table.totalVirtual = 0
	table.totalResident = 0
	table.finalShutdown = finalShutdown
}

var (
	registryMu sync.Mutex
	allTables  []*Table
)

func register(table *Table) {
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, t := range allTables {
		if t == table {
			return
		}
	}
	allTables = append(allTables, table)
}

// ReportAll produces a human-readable summary of every known table and
// the grand total across all subsystems.
func ReportAll() string {
	registryMu.Lock()
	tables := append([]*Table(nil), allTables...)
	registryMu.Unlock()

	var b strings.Builder
	var grandThreads int
	var grandResident uint64
	for _, t := range tables {
		s := t.Snapshot()
		fmt.Fprintf(&b, "%-20s threads=%-4d virtual=%-12d resident=%-12d\n", s.SubsystemName, s.Count, s.TotalVirtual, s.TotalResident)
		grandThreads += s.Count
		grandResident += s.TotalResident
	}
	fmt.Fprintf(&b, "TOTAL: threads=%d resident=%d process_rss=%d\n", grandThreads, grandResident, ProcessResidentBytes())
	return b.String()
}

// FreeAll enters final-shutdown mode (suppressing subsequent lifecycle
// logs) and re-initializes every known table.
func FreeAll() {
	registryMu.Lock()
	tables := append([]*Table(nil), allTables...)
	registryMu.Unlock()

	for _, t := range tables {
		t.mu.Lock()
		t.free(true)
		t.mu.Unlock()
	}
}
