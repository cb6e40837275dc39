package logging

import (
	"strings"
	"sync"

	"github.com/kronform/runtime/internal/constants"
)

// ringBuffer is the rolling in-memory record of formatted log lines. It
// never reallocates after construction: writes wrap the fixed-size array,
// and readers walk backward from head-1 for count entries.
type ringBuffer struct {
	mu    sync.Mutex
	lines [constants.LogBufferSize]string
	head  int
	count int
}

func newRingBuffer() *ringBuffer {
	return &ringBuffer{}
}

// push appends a formatted line, truncating to MaxLogLineLength bytes if
// necessary. Truncation is silent, per the logging pipeline's failure
// model.
func (b *ringBuffer) push(line string) {
	if len(line) > constants.MaxLogLineLength {
		line = line[:constants.MaxLogLineLength]
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.lines[b.head] = line
	b.head = (b.head + 1) % constants.LogBufferSize
	if b.count < constants.LogBufferSize {
		b.count++
	}
}

// queryLast returns the most recent n lines, newest first, clamped to the
// number of buffered entries. The mutex_operation TLS flag is held for the
// duration so that any logging emitted by subordinate code while reading
// is short-circuited rather than recursing into the buffer lock.
func (b *ringBuffer) queryLast(n int) []string {
	prev := BeginMutexOperation()
	defer EndMutexOperation(prev)

	b.mu.Lock()
	defer b.mu.Unlock()

	if n > b.count {
		n = b.count
	}
	if n <= 0 {
		return nil
	}

	out := make([]string, 0, n)
	idx := b.head - 1
	for i := 0; i < n; i++ {
		if idx < 0 {
			idx += constants.LogBufferSize
		}
		out = append(out, b.lines[idx])
		idx--
	}
	return out
}

// queryBySubsystem returns every buffered line containing name as a
// substring, newest first, newline-joined, or an empty string if nothing
// matches.
func (b *ringBuffer) queryBySubsystem(name string) string {
	prev := BeginMutexOperation()
	defer EndMutexOperation(prev)

	b.mu.Lock()
	defer b.mu.Unlock()

	var matches []string
	idx := b.head - 1
	for i := 0; i < b.count; i++ {
		if idx < 0 {
			idx += constants.LogBufferSize
		}
		if strings.Contains(b.lines[idx], name) {
			matches = append(matches, b.lines[idx])
		}
		idx--
	}
	return strings.Join(matches, "\n")
}
