package registry

import (
	"fmt"
	"strings"
	"time"
)

// UpdateOnStartup re-syncs id's recorded state to observed reality: a
// threaded subsystem is RUNNING iff its thread table has live entries; a
// passive subsystem (no thread table) is RUNNING iff its shutdown flag is
// clear. Used by boot scripts recovering registry state after a restart.
func (r *Registry) UpdateOnStartup(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.atLocked(id)
	if !ok {
		return
	}

	alive := false
	switch {
	case s.threads != nil:
		alive = s.threads.Count() > 0
	case s.shutdownFlag != nil:
		alive = !s.shutdownFlag.IsSet()
	}

	if alive {
		r.setStateLocked(s, Running)
	} else {
		r.setStateLocked(s, Inactive)
	}
}

// UpdateOnShutdown marks id STOPPING without touching any threads it owns.
func (r *Registry) UpdateOnShutdown(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.atLocked(id); ok {
		r.setStateLocked(s, Stopping)
	}
}

// UpdateAfterShutdown marks id INACTIVE without touching any threads it owns.
func (r *Registry) UpdateAfterShutdown(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.atLocked(id); ok {
		r.setStateLocked(s, Inactive)
	}
}

// RunningSubsystemsStatus renders a human-readable report of every RUNNING
// subsystem's uptime and thread count, bounded to a 4096-byte buffer the
// way the source caps its status string.
func (r *Registry) RunningSubsystemsStatus() string {
	type row struct {
		name        string
		uptime      time.Duration
		threadCount int
	}

	r.mu.Lock()
	now := time.Now()
	total := len(r.subsystems)
	var rows []row
	for _, s := range r.subsystems {
		if s.state != Running {
			continue
		}
		tc := 0
		if s.threads != nil {
			tc = s.threads.Count()
		}
		rows = append(rows, row{name: s.name, uptime: now.Sub(s.stateChanged), threadCount: tc})
	}
	r.mu.Unlock()

	const maxBuf = 4096
	var b strings.Builder
	fmt.Fprintf(&b, "RUNNING SUBSYSTEMS (%d/%d):\n", len(rows), total)
	for _, rr := range rows {
		h := int(rr.uptime.Hours())
		m := int(rr.uptime.Minutes()) % 60
		s := int(rr.uptime.Seconds()) % 60
		line := fmt.Sprintf("  %-24s uptime=%02d:%02d:%02d threads=%d\n", rr.name, h, m, s, rr.threadCount)
		if b.Len()+len(line) > maxBuf {
			break
		}
		b.WriteString(line)
	}

	out := b.String()
	if len(out) > maxBuf {
		out = out[:maxBuf]
	}
	return out
}
