package logging

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// newTestPipeline builds a pipeline in startup mode (server not running,
// Logging not running), so every record at or above the default DEBUG
// startup level is written synchronously to the returned console buffer
// and to the rolling buffer.
func newTestPipeline(t *testing.T) (*Pipeline, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	p, err := NewPipeline(PipelineOptions{
		ConsoleOutput: &out,
		Gate:          &StaticGate{LoggingRunning: false, RegistryEmpty: true},
	})
	require.NoError(t, err)
	return p, &out
}

func TestLogCountsSpecifiers(t *testing.T) {
	assert.Equal(t, 2, countSpecifiers("%s has %d items"))
	assert.Equal(t, 0, countSpecifiers("no specifiers"))
	assert.Equal(t, 1, countSpecifiers("literal %% then %d"))
	assert.Equal(t, 1, countSpecifiers("%-10.2f padded"))
}

func TestLogNilSubsystemAndFormat(t *testing.T) {
	p, out := newTestPipeline(t)
	p.Log("", "", Error, 0)
	assert.Contains(t, out.String(), "Unknown")
	assert.Contains(t, out.String(), "No message")
}

func TestLogSpecifierMismatchDoesNotAbort(t *testing.T) {
	p, out := newTestPipeline(t)
	p.Log("Test", "%s and %d", Error, 1, "only-one-arg")
	assert.Contains(t, out.String(), "Test")
}

func TestShutdownModeAlwaysWritesConsole(t *testing.T) {
	p, out := newTestPipeline(t)
	p.Shutdown()
	p.Log("Logging", "post-shutdown line", Trace, 0)
	assert.Contains(t, out.String(), "post-shutdown line")
}

func TestNormalModeEnqueuesAndSkipsConsole(t *testing.T) {
	var out bytes.Buffer
	mq := NewMockQueue(SystemLogQueueName)
	p, err := NewPipeline(PipelineOptions{
		ConsoleOutput: &out,
		Gate:          &StaticGate{LoggingRunning: true, RegistryEmpty: false},
		Queue:         mq,
	})
	require.NoError(t, err)
	p.SetServerRunning(true)

	p.Log("WebServer", "enqueued line", Error, 0)
	assert.Empty(t, out.String())
	assert.Equal(t, 1, mq.Size())
}

func TestNormalModeFallsBackToConsoleOnEnqueueFailure(t *testing.T) {
	var out bytes.Buffer
	mq := NewMockQueue(SystemLogQueueName)
	mq.FailNext = true
	p, err := NewPipeline(PipelineOptions{
		ConsoleOutput: &out,
		Gate:          &StaticGate{LoggingRunning: true, RegistryEmpty: false},
		Queue:         mq,
	})
	require.NoError(t, err)
	p.SetServerRunning(true)

	p.Log("WebServer", "fallback line", Error, 0)
	assert.Contains(t, out.String(), "fallback line")
}

func TestOutOfBandSinkAlwaysCalled(t *testing.T) {
	var out bytes.Buffer
	sink := NewMockSink(false)
	p, err := NewPipeline(PipelineOptions{
		ConsoleOutput: &out,
		Gate:          &StaticGate{LoggingRunning: true, RegistryEmpty: false},
		Sink:          sink,
	})
	require.NoError(t, err)
	p.SetServerRunning(true)

	p.Log("WebServer", "sink line", Trace, 0)
	calls := sink.SnapshotCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "WebServer", calls[0].Subsystem)
	assert.Contains(t, calls[0].Details, "sink line")
}

func TestGroupPreventsInterleaving(t *testing.T) {
	p, out := newTestPipeline(t)

	var wg sync.WaitGroup
	wg.Add(1)
	started := make(chan struct{})
	go func() {
		defer wg.Done()
		p.GroupBegin()
		close(started)
		p.Log("Holder", "group line 1", State, 0)
		time.Sleep(20 * time.Millisecond)
		p.Log("Holder", "group line 2", State, 0)
		p.GroupEnd()
	}()

	<-started
	p.Log("Other", "interloper", State, 0)
	wg.Wait()

	lines := out.String()
	idx1 := strings.Index(lines, "group line 1")
	idx2 := strings.Index(lines, "group line 2")
	idxOther := strings.Index(lines, "interloper")
	require.NotEqual(t, -1, idx1)
	require.NotEqual(t, -1, idx2)
	require.NotEqual(t, -1, idxOther)
	assert.True(t, idxOther > idx2 || idxOther < idx1, "interloper line interleaved inside the group")
}

func TestQueryBySubsystem(t *testing.T) {
	p, _ := newTestPipeline(t)
	p.Log("WebServer", "one", State, 0)
	p.Log("PrintQueue", "two", State, 0)
	p.Log("WebServer", "three", State, 0)

	result := p.QueryBySubsystem("WebServer")
	assert.Contains(t, result, "one")
	assert.Contains(t, result, "three")
	assert.NotContains(t, result, "PrintQueue")
}

