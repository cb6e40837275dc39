package logging

// record is a log entry in transit: formatted once, then either dispatched
// synchronously or JSON-marshaled onto the queue for the consumer goroutine
// to fan out to the console/file/database destinations.
type record struct {
	Subsystem    string   `json:"subsystem"`
	Details      string   `json:"details"`
	Priority     Priority `json:"priority"`
	CounterSuper uint32   `json:"counter_super"`
	CounterHigh  uint32   `json:"counter_high"`
	CounterLow   uint32   `json:"counter_low"`
	LogConsole   bool     `json:"LogConsole"`
	LogFile      bool     `json:"LogFile"`
	LogDatabase  bool     `json:"LogDatabase"`
}

// counterGroups splits a monotonic counter into the three three-digit
// display groups, modular by design so display never breaks even past
// 2^63-1 — see the Testable Properties boundary case.
func counterGroups(counter uint64) (super, high, low uint32) {
	super = uint32((counter / 1_000_000) % 1000)
	high = uint32((counter / 1_000) % 1000)
	low = uint32(counter % 1000)
	return
}

func newRecord(subsystem, details string, priority Priority, counter uint64) record {
	super, high, low := counterGroups(counter)
	return record{
		Subsystem:    subsystem,
		Details:      details,
		Priority:     priority,
		CounterSuper: super,
		CounterHigh:  high,
		CounterLow:   low,
		LogConsole:   true,
		LogFile:      true,
		LogDatabase:  true,
	}
}
