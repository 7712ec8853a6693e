package cred

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/werat/porto/config"
)

// ApplyRlimits sets every rlimit in the task env on the current process.
// Called inside the grandchild before exec, same as every other
// per-process restriction in the child pipeline.
func ApplyRlimits(limits map[int]config.RlimitConfig) error {
	for resource, limit := range limits {
		rlim := unix.Rlimit{Cur: limit.Soft, Max: limit.Hard}
		if err := unix.Setrlimit(resource, &rlim); err != nil {
			return fmt.Errorf("setrlimit(%d, {%d,%d}): %w", resource, limit.Soft, limit.Hard, err)
		}
	}
	return nil
}
