package logging

import (
	"fmt"
	"testing"

	"github.com/kronform/runtime/internal/constants"
)

func TestRingBufferWrapsAndKeepsNewestFirst(t *testing.T) {
	b := newRingBuffer()
	total := constants.LogBufferSize * 2
	for i := 0; i < total; i++ {
		b.push(fmt.Sprintf("line-%d", i))
	}

	got := b.queryLast(constants.LogBufferSize)
	if len(got) != constants.LogBufferSize {
		t.Fatalf("expected %d lines, got %d", constants.LogBufferSize, len(got))
	}
	for i, line := range got {
		want := fmt.Sprintf("line-%d", total-1-i)
		if line != want {
			t.Fatalf("at %d: got %q, want %q", i, line, want)
		}
	}
}

func TestRingBufferQueryLastClampsToCount(t *testing.T) {
	b := newRingBuffer()
	b.push("only-one")
	got := b.queryLast(50)
	if len(got) != 1 || got[0] != "only-one" {
		t.Fatalf("unexpected result: %v", got)
	}
}

func TestRingBufferTruncatesOversizedLines(t *testing.T) {
	b := newRingBuffer()
	long := make([]byte, constants.MaxLogLineLength+100)
	for i := range long {
		long[i] = 'x'
	}
	b.push(string(long))
	got := b.queryLast(1)
	if len(got[0]) != constants.MaxLogLineLength {
		t.Fatalf("expected truncation to %d bytes, got %d", constants.MaxLogLineLength, len(got[0]))
	}
}
