package logging

import "testing"

func TestCounterGroups(t *testing.T) {
	cases := []struct {
		counter                uint64
		super, high, low uint32
	}{
		{0, 0, 0, 0},
		{1, 0, 0, 1},
		{999, 0, 0, 999},
		{1000, 0, 1, 0},
		{1_234_567, 1, 234, 567},
	}
	for _, c := range cases {
		super, high, low := counterGroups(c.counter)
		if super != c.super || high != c.high || low != c.low {
			t.Errorf("counterGroups(%d) = (%d,%d,%d), want (%d,%d,%d)", c.counter, super, high, low, c.super, c.high, c.low)
		}
	}
}

func TestCounterGroupsNeverBreaksPastMaxInt64(t *testing.T) {
	// Display is modular by design: one more increment past 2^63-1 still
	// renders without panicking or misdisplaying a negative value.
	super, high, low := counterGroups(uint64(1<<63 - 1) + 1)
	if super > 999 || high > 999 || low > 999 {
		t.Fatalf("groups out of range: %d %d %d", super, high, low)
	}
}
