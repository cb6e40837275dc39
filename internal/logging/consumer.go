package logging

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel/trace"
)

// consumeLoop is the dedicated consumer goroutine of spec.md §4.2.5: it
// drains the SystemLog queue in order, fanning each record out to
// console/file/database per per-destination, per-subsystem thresholds.
// Grounded on the teacher's internal/queue.Runner single-consumer drain
// loop, generalized from "drain io_uring completions" to "drain log
// records."
func (p *Pipeline) consumeLoop(ctx context.Context) {
	defer p.consumerWG.Done()
	defer p.file.Close()

	if p.telemetry != nil {
		var span trace.Span
		ctx, span = p.telemetry.Tracer.Start(ctx, "logging.consumer")
		defer span.End()
	}
	_ = ctx

	q, ok := p.queues.Find(SystemLogQueueName)
	if !ok {
		return
	}

	for {
		payload, _, ok := q.Dequeue()
		if !ok {
			return
		}
		p.dispatchQueued(payload)
		if p.telemetry != nil {
			p.telemetry.LogQueueDepth.Set(float64(q.Size()))
		}
	}
}

func (p *Pipeline) dispatchQueued(payload []byte) {
	var rec record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return
	}

	if rec.LogConsole && p.consoleDestination().allows(rec.Subsystem, rec.Priority) {
		p.writeConsole(rec)
	}
	if rec.LogFile && p.file != nil && p.fileDestination().allows(rec.Subsystem, rec.Priority) {
		p.file.write(p.console.renderLine(rec))
	}
	if rec.LogDatabase && p.dbSink != nil && p.databaseDestination().allows(rec.Subsystem, rec.Priority) {
		p.dbSink.Send(rec.Subsystem, rec.Details, rec.Priority)
	}
}

func (p *Pipeline) consoleDestination() DestinationConfig {
	if p.config == nil {
		return DestinationConfig{Enabled: true, Default: Debug}
	}
	return p.config.Console()
}

func (p *Pipeline) fileDestination() DestinationConfig {
	if p.config == nil {
		return DestinationConfig{Enabled: false}
	}
	return p.config.File()
}

func (p *Pipeline) databaseDestination() DestinationConfig {
	if p.config == nil {
		return DestinationConfig{Enabled: false}
	}
	return p.config.Database()
}
