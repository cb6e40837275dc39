package logging

import "testing"

func TestPriorityTotalOrder(t *testing.T) {
	order := []Priority{All, Trace, Debug, State, Alert, Error, Fatal, Quiet, None}
	for i := 1; i < len(order); i++ {
		if !(order[i-1] < order[i]) {
			t.Fatalf("expected %v < %v", order[i-1], order[i])
		}
	}
}

func TestPriorityStringFallbackTable(t *testing.T) {
	cases := map[Priority]string{
		Trace: "TRACE",
		Debug: "DEBUG",
		State: "STATE",
		Alert: "ALERT",
		Error: "ERROR",
		Fatal: "FATAL",
		Quiet: "QUIET",
	}
	for p, want := range cases {
		if got := p.String(); got != want {
			t.Errorf("%v.String() = %q, want %q", p, got, want)
		}
	}
	if All.String() != "" || None.String() != "" {
		t.Errorf("ALL/NONE bookends must render empty, not be used as a displayed priority")
	}
}
