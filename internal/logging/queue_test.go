package logging

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestMemQueueCloseDuringConcurrentEnqueueDoesNotPanic guards against a
// send-on-closed-channel panic: many goroutines race Enqueue against a
// concurrent Close, which must never close the data channel out from
// under an in-flight send.
func TestMemQueueCloseDuringConcurrentEnqueueDoesNotPanic(t *testing.T) {
	q := NewMemQueue("SystemLog", 16).(*memQueue)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Enqueue([]byte("x"), Error)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		q.Close()
	}()
	wg.Wait()
}

// TestMemQueueDequeueDrainsBeforeReportingClosed ensures every item
// enqueued before Close is observed by Dequeue before it reports closure.
func TestMemQueueDequeueDrainsBeforeReportingClosed(t *testing.T) {
	q := NewMemQueue("SystemLog", 16).(*memQueue)

	for i := 0; i < 5; i++ {
		assert.NoError(t, q.Enqueue([]byte("x"), Error))
	}
	q.Close()

	drained := 0
	for {
		_, _, ok := q.Dequeue()
		if !ok {
			break
		}
		drained++
	}
	assert.Equal(t, 5, drained)

	// A second Dequeue after full drain keeps reporting closed, never
	// blocking forever.
	_, _, ok := q.Dequeue()
	assert.False(t, ok)
}

// TestMemQueueEnqueueAfterCloseFails confirms the closed guard rejects
// new items once Close has run.
func TestMemQueueEnqueueAfterCloseFails(t *testing.T) {
	q := NewMemQueue("SystemLog", 16).(*memQueue)
	q.Close()
	assert.ErrorIs(t, q.Enqueue([]byte("x"), Error), ErrQueueFull)
}
