//go:build linux

package threads

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// probeLiveness sends signal 0 to tid, the literal "signal-0 probe" of
// spec.md §6: it performs no action but reports whether the thread still
// exists. Any error (ESRCH, EPERM, ...) is treated as "thread is dead",
// matching spec.md §4.1's failure semantics: OS probing failures cause
// removal, never a fatal error.
func probeLiveness(tid int) bool {
	if tid <= 0 {
		return true
	}
	return unix.Kill(tid, 0) == nil
}

// probeMemory reads the VmStk line of /proc/self/task/<tid>/status. The
// spec calls this "an acknowledged over-simplification — the real field
// of interest is stack footprint": both virtual and resident are
// reported from the same stack-size figure. A read failure (thread
// exited between the liveness probe and this read) yields zero with no
// error, matching spec.md §6's degraded-but-safe behavior.
func probeMemory(tid int) (virtual, resident uint64) {
	if tid <= 0 {
		return 0, 0
	}
	path := fmt.Sprintf("/proc/self/task/%d/status", tid)
	f, err := os.Open(path)
	if err != nil {
		return 0, 0
	}
	defer f.Close()

	var stackKB uint64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "VmStk:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		v, err := strconv.ParseUint(fields[1], 10, 64)
		if err == nil {
			stackKB = v
		}
		break
	}

	bytes := stackKB * 1024
	return bytes, bytes
}
