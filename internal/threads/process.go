package threads

import (
	"os"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcessResidentBytes cross-checks the sum of per-thread samples against
// the whole process's RSS as gopsutil reports it. gopsutil has no
// per-thread API, so this is a process-wide sanity figure exposed
// alongside ReportAll's per-subsystem totals, not a replacement for the
// per-thread sample. A lookup failure returns 0.
func ProcessResidentBytes() uint64 {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0
	}
	info, err := p.MemoryInfo()
	if err != nil || info == nil {
		return 0
	}
	return info.RSS
}
