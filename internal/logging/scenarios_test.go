package logging

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario 5: log counter ordering. Two goroutines race to pull counters;
// every value handed out is unique and the set they collectively receive
// has no gaps.
func TestScenarioLogCounterOrdering(t *testing.T) {
	p, _ := newTestPipeline(t)

	const perGoroutine = 500
	seen := make(chan uint64, perGoroutine*2)

	run := func() {
		for i := 0; i < perGoroutine; i++ {
			seen <- p.nextCounter()
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); run() }()
	go func() { defer wg.Done(); run() }()
	wg.Wait()
	close(seen)

	counts := make(map[uint64]int)
	for c := range seen {
		counts[c]++
	}
	assert.Len(t, counts, perGoroutine*2)
	for c, n := range counts {
		assert.Equal(t, 1, n)
		assert.Less(t, c, uint64(perGoroutine*2))
	}
}

// Scenario 6: startup-mode filtering. With the queue consumer not running
// and startup_log_level = STATE, only STATE and ERROR records reach the
// console and the rolling buffer.
func TestScenarioStartupModeFiltering(t *testing.T) {
	var out bytes.Buffer
	p, err := NewPipeline(PipelineOptions{
		ConsoleOutput: &out,
		Gate:          &StaticGate{LoggingRunning: false, RegistryEmpty: true},
	})
	require.NoError(t, err)
	// server not running => startup mode regardless of gate.

	cfg := DefaultStaticConfig()
	cfg.StartupLevel = State
	p.SetConfig(cfg)

	p.Log("WebServer", "trace line", Trace, 0)
	p.Log("WebServer", "debug line", Debug, 0)
	p.Log("WebServer", "state line", State, 0)
	p.Log("WebServer", "error line", Error, 0)

	text := out.String()
	assert.NotContains(t, text, "trace line")
	assert.NotContains(t, text, "debug line")
	assert.Contains(t, text, "state line")
	assert.Contains(t, text, "error line")

	buffered := p.QueryLast(10)
	joined := strings.Join(buffered, "\n")
	assert.NotContains(t, joined, "trace line")
	assert.Contains(t, joined, "state line")
	assert.Contains(t, joined, "error line")
}

// Scenario 7: shutdown drain. 100 queued records are drained by the
// consumer on Shutdown; none remain in the queue afterward.
func TestScenarioShutdownDrain(t *testing.T) {
	var out bytes.Buffer
	mq := NewMockQueue(SystemLogQueueName)
	p, err := NewPipeline(PipelineOptions{
		ConsoleOutput: &out,
		Gate:          &StaticGate{LoggingRunning: true, RegistryEmpty: false},
		Queue:         mq,
	})
	require.NoError(t, err)
	p.SetServerRunning(true)

	cfg := DefaultStaticConfig()
	p.SetConfig(cfg)

	for i := 0; i < 100; i++ {
		p.Log("WebServer", "queued message", Error, 0)
	}
	assert.Equal(t, 100, mq.Size())

	ctx := context.Background()
	p.StartConsumer(ctx)
	p.Shutdown()

	assert.Equal(t, 0, mq.Size())
}

// Scenario 8: recursion guard. A mutex_operation-marked code path issues a
// log call; the entry point returns immediately and no record appears.
func TestScenarioRecursionGuard(t *testing.T) {
	p, out := newTestPipeline(t)
	prev := BeginMutexOperation()
	p.Log("Test", "should not appear", Error, 0)
	EndMutexOperation(prev)
	assert.Empty(t, out.String())
	assert.Empty(t, p.QueryLast(10))
}
