package threads

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kronform/runtime/internal/constants"
	"github.com/kronform/runtime/internal/telemetry"
)

func TestInitTruncatesName(t *testing.T) {
	var table Table
	long := strings.Repeat("x", constants.MaxSubsystemNameLen+10)
	Init(&table, long)
	if len(table.subsystemName) != constants.MaxSubsystemNameLen {
		t.Fatalf("expected truncation to %d, got %d", constants.MaxSubsystemNameLen, len(table.subsystemName))
	}
}

func TestAddAndRemove(t *testing.T) {
	var table Table
	Init(&table, "WebServer")

	Add(&table, 1, 100, "accept loop")
	Add(&table, 2, 101, "worker")
	if got := table.Count(); got != 2 {
		t.Fatalf("expected count 2, got %d", got)
	}

	Remove(&table, 1)
	if got := table.Count(); got != 1 {
		t.Fatalf("expected count 1 after remove, got %d", got)
	}
	if table.entries[0].Handle != 2 {
		t.Fatalf("expected swap-remove to keep handle 2 at slot 0, got %d", table.entries[0].Handle)
	}
}

func TestAddNoOpWhenFull(t *testing.T) {
	var table Table
	Init(&table, "Saturated")

	for i := 0; i < constants.MaxServiceThreads; i++ {
		Add(&table, uint64(i+1), i+1, "")
	}
	if got := table.Count(); got != constants.MaxServiceThreads {
		t.Fatalf("expected full table of %d, got %d", constants.MaxServiceThreads, got)
	}

	Add(&table, 9999, 9999, "overflow")
	if got := table.Count(); got != constants.MaxServiceThreads {
		t.Fatalf("expected overflow add to be a no-op, count changed to %d", got)
	}
}

func TestRemoveUnknownHandleIsNoOp(t *testing.T) {
	var table Table
	Init(&table, "Empty")
	Remove(&table, 42)
	if got := table.Count(); got != 0 {
		t.Fatalf("expected count 0, got %d", got)
	}
}

func TestSampleMetricsRemovesDeadThreads(t *testing.T) {
	var table Table
	Init(&table, "Sampled")
	Add(&table, 1, 999999999, "") // implausible tid, treated as dead

	SampleMetrics(&table)
	if got := table.Count(); got != 0 {
		t.Fatalf("expected dead thread to be removed, count = %d", got)
	}
}

func TestSampleMetricsPublishesTelemetry(t *testing.T) {
	tel := telemetry.New("test-threads")
	SetTelemetry(tel)
	defer SetTelemetry(nil)

	var table Table
	Init(&table, "Telemetered")
	Add(&table, 1, 0, "") // tid 0 always probes as alive

	SampleMetrics(&table)

	if got := testutil.ToFloat64(tel.ThreadCount.WithLabelValues("Telemetered")); got != 1 {
		t.Fatalf("expected thread count gauge 1, got %v", got)
	}
}

func TestFreeAllReinitializesRegisteredTables(t *testing.T) {
	var table Table
	Init(&table, "ToBeFreed")
	Add(&table, 1, 1, "")

	FreeAll()
	if got := table.Count(); got != 0 {
		t.Fatalf("expected FreeAll to reset count, got %d", got)
	}
}

func TestReportAllIncludesEachTable(t *testing.T) {
	var table Table
	Init(&table, "ReportedSubsystem")
	Add(&table, 1, 1, "")

	report := ReportAll()
	if !strings.Contains(report, "ReportedSubsystem") {
		t.Fatalf("expected report to mention subsystem name, got: %s", report)
	}
	if !strings.Contains(report, "TOTAL:") {
		t.Fatalf("expected report to include a grand total line, got: %s", report)
	}
}
