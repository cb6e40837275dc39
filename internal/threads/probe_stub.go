//go:build !linux

package threads

// probeLiveness has no portable non-Linux implementation; per spec.md §9
// Open Questions, this is left as an implementer choice. This
// implementation assumes the thread is alive rather than erroring,
// matching spec.md §6's "on others, this field reads as zero with no
// error" framing applied to liveness instead of memory.
func probeLiveness(tid int) bool {
	return true
}

// probeMemory has no portable non-Linux implementation; it reads as
// zero with no error, exactly as spec.md §6 specifies.
func probeMemory(tid int) (virtual, resident uint64) {
	return 0, 0
}
