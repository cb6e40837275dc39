// Package telemetry is the shared Prometheus/OpenTelemetry wiring used by
// the logging pipeline and the subsystem registry. It owns no process-wide
// globals: callers construct a Registrar and pass it explicitly, the way
// the teacher's metrics.go passed a *Metrics into queue runners.
package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/prometheus/client_golang/prometheus"
)

// Registrar groups the collectors the runtime core exports and the tracer
// used to annotate lifecycle and log-group events. Mounting the resulting
// Registry on an HTTP handler is left to the external web subsystem.
type Registrar struct {
	Registry *prometheus.Registry

	LogRecordsTotal  *prometheus.CounterVec
	LogRecordsDropped *prometheus.CounterVec
	LogQueueDepth    prometheus.Gauge

	SubsystemState        *prometheus.GaugeVec
	SubsystemStateSeconds *prometheus.GaugeVec

	ThreadCount         *prometheus.GaugeVec
	ThreadResidentBytes *prometheus.GaugeVec
	ThreadVirtualBytes  *prometheus.GaugeVec

	Tracer trace.Tracer
}

// New builds a Registrar with its own private prometheus.Registry (never
// the global DefaultRegisterer, so repeated construction in tests never
// panics on duplicate registration) and an OTel tracer named tracerName.
func New(tracerName string) *Registrar {
	reg := prometheus.NewRegistry()

	r := &Registrar{
		Registry: reg,
		LogRecordsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "runtime_log_records_total",
			Help: "Log records accepted by the logging pipeline, by subsystem and priority.",
		}, []string{"subsystem", "priority"}),
		LogRecordsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "runtime_log_records_dropped_total",
			Help: "Log records the SystemLog queue did not accept in normal dispatch (the record may still reach the console fallback).",
		}, []string{"subsystem", "reason"}),
		LogQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "runtime_log_queue_depth",
			Help: "Current depth of the SystemLog queue.",
		}),
		SubsystemState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "runtime_subsystem_state",
			Help: "Current lifecycle state of a subsystem (numeric, see registry.State).",
		}, []string{"name"}),
		SubsystemStateSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "runtime_subsystem_state_seconds",
			Help: "Seconds since the subsystem's last state transition.",
		}, []string{"name"}),
		ThreadCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "runtime_subsystem_thread_count",
			Help: "Live worker threads tracked for a subsystem.",
		}, []string{"subsystem"}),
		ThreadResidentBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "runtime_subsystem_thread_resident_bytes",
			Help: "Aggregate resident memory sampled across a subsystem's worker threads.",
		}, []string{"subsystem"}),
		ThreadVirtualBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "runtime_subsystem_thread_virtual_bytes",
			Help: "Aggregate virtual memory sampled across a subsystem's worker threads.",
		}, []string{"subsystem"}),
		Tracer: otel.Tracer(tracerName),
	}

	reg.MustRegister(
		r.LogRecordsTotal,
		r.LogRecordsDropped,
		r.LogQueueDepth,
		r.SubsystemState,
		r.SubsystemStateSeconds,
		r.ThreadCount,
		r.ThreadResidentBytes,
		r.ThreadVirtualBytes,
	)

	return r
}
