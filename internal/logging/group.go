package logging

import "sync"

// groupState backs GroupBegin/GroupEnd (spec.md §4.2.3): a dedicated
// group mutex held by the holder goroutine for the whole bracketed
// region, a process-wide "group active" flag, and a condition variable
// other goroutines' Log calls wait on.
type groupState struct {
	groupMu sync.Mutex // held by the group holder from Begin to End

	condMu sync.Mutex
	cond   *sync.Cond
	active bool
}

func newGroupState() *groupState {
	g := &groupState{}
	g.cond = sync.NewCond(&g.condMu)
	return g
}

// GroupBegin acquires the dedicated group mutex (blocking until any prior
// group completes), marks the group active, sets the calling goroutine's
// log_group flag, and acquires the normal log mutex so the holder's own
// Log calls proceed without re-waiting.
func (p *Pipeline) GroupBegin() {
	p.group.groupMu.Lock()

	p.group.condMu.Lock()
	p.group.active = true
	p.group.condMu.Unlock()

	logGroupHolder.set(true)
	p.logMu.Lock()
}

// GroupEnd clears the active flag and the holder's TLS flag, releases the
// log mutex, wakes any goroutines waiting in Log, and releases the group
// mutex.
func (p *Pipeline) GroupEnd() {
	p.group.condMu.Lock()
	p.group.active = false
	p.group.condMu.Unlock()

	logGroupHolder.set(false)
	p.logMu.Unlock()

	p.group.cond.Broadcast()
	p.group.groupMu.Unlock()
}
