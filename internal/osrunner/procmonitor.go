package osrunner

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// CheckNoLeakedChildren enforces the os.proc.spawn capability's lifetime
// rule: a run-os-sandboxed artifact's child processes must not outlive
// it. pids is read from the artifact's own last-stderr-JSON-line metrics
// (a "spawned_pids" array, when the artifact reports one); artifacts that
// never report spawned pids are unaffected.
func CheckNoLeakedChildren(pids []int) error {
	for _, pid := range pids {
		if pidStillRunning(pid) {
			return &Violation{
				Capability: "os.proc.spawn",
				Detail:     "child process " + strconv.Itoa(pid) + " outlived the parent artifact",
			}
		}
	}
	return nil
}

// pidStillRunning reports whether pid is still a live, non-zombie
// process. /proc/<pid>/stat's third field is the state letter; 'Z' and
// 'X' mean the process already exited and is merely unreaped, which does
// not count as a leaked child for this check. Falls back to `ps` when
// procfs is unavailable.
func pidStillRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	state, ok := procStat(pid)
	if !ok {
		state, ok = psState(pid)
		if !ok {
			return false
		}
	}
	return state != 'Z' && state != 'X'
}

func procStat(pid int) (byte, bool) {
	b, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "stat"))
	if err != nil {
		return 0, false
	}
	// Fields after the process name "(comm)" can contain spaces, so the
	// state letter is the byte after the space that follows the last ')'.
	line := string(b)
	closeIdx := strings.LastIndexByte(line, ')')
	if closeIdx < 0 || closeIdx+2 >= len(line) {
		return 0, false
	}
	return line[closeIdx+2], true
}

func psState(pid int) (byte, bool) {
	out, err := exec.Command("ps", "-o", "state=", "-p", strconv.Itoa(pid)).Output()
	if err != nil {
		return 0, false
	}
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return 0, false
	}
	return trimmed[0], true
}
