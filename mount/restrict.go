package mount

import (
	"os"
	"path/filepath"
)

// RestrictProc bind-mounts read-only a handful of sensitive /proc nodes so
// an unprivileged container cannot use them to affect the host: the sysrq
// trigger, irq steering, the bus tree, and (unless the task is privileged)
// proc/sys itself. /proc/kcore is masked with /dev/null since it exposes
// raw physical memory.
func RestrictProc(root string, privileged bool) error {
	paths := []string{"proc/sysrq-trigger", "proc/irq", "proc/bus"}
	if !privileged {
		paths = append(paths, "proc/sys")
	}
	for _, p := range paths {
		full := filepath.Join(root, p)
		bind := BindFile
		if fi, err := os.Stat(full); err == nil && fi.IsDir() {
			bind = BindDir
		}
		if err := bind(full, full, true); err != nil {
			return err
		}
	}
	return BindFile("/dev/null", filepath.Join(root, "proc", "kcore"), false)
}
