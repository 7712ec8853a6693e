package cred

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/syndtr/gocapability/capability"
)

// lastCap is process-wide and initialized once, per the design notes:
// "lastCap is process-wide; initialize once at daemon start; treat as
// immutable thereafter."
var (
	lastCapOnce sync.Once
	lastCap     capability.Cap
	lastCapErr  error
)

// LastCap reads /proc/sys/kernel/cap_last_cap once and caches it.
func LastCap() (capability.Cap, error) {
	lastCapOnce.Do(func() {
		data, err := os.ReadFile("/proc/sys/kernel/cap_last_cap")
		if err != nil {
			lastCapErr = fmt.Errorf("read cap_last_cap: %w", err)
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(string(data)))
		if err != nil {
			lastCapErr = fmt.Errorf("parse cap_last_cap: %w", err)
			return
		}
		lastCap = capability.Cap(n)
	})
	return lastCap, lastCapErr
}

// capSetpcap is CAP_SETPCAP's numeric value across all supported kernels;
// named here so the bounding-set loop below can special-case it without a
// magic number.
const capSetpcap = capability.CAP_SETPCAP

// ApplyCapabilities implements the launcher's capability step (§4.4): if
// the calling process is root, the inheritable set is pinned to keep, the
// effective/permitted sets are left as the current process's (they get
// clamped to the bounding set by capset anyway), and every bit *not* in
// keep is dropped from the bounding set. CAP_SETPCAP itself is dropped last
// so the loop can keep using PR_CAPBSET_DROP on every other bit first. If
// the caller is not root, the kernel already constrains what it can do and
// this is a no-op.
func ApplyCapabilities(keep uint64) error {
	if os.Geteuid() != 0 {
		return nil
	}

	top, err := LastCap()
	if err != nil {
		return err
	}

	caps, err := capability.NewPid2(0)
	if err != nil {
		return fmt.Errorf("open capability state: %w", err)
	}
	if err := caps.Load(); err != nil {
		return fmt.Errorf("load capability state: %w", err)
	}

	caps.Clear(capability.INHERITABLE)
	for c := capability.Cap(0); c <= top; c++ {
		if keep&(1<<uint(c)) != 0 {
			caps.Set(capability.INHERITABLE, c)
		}
	}
	if err := caps.Apply(capability.INHERITABLE); err != nil {
		return fmt.Errorf("apply inheritable set: %w", err)
	}

	dropSetpcap := keep&(1<<uint(capSetpcap)) == 0
	for c := capability.Cap(0); c <= top; c++ {
		if c == capSetpcap {
			continue
		}
		if keep&(1<<uint(c)) != 0 {
			continue
		}
		caps.Unset(capability.BOUNDING, c)
		if err := caps.Apply(capability.BOUNDING); err != nil {
			return fmt.Errorf("apply bounding set after dropping %s: %w", c, err)
		}
	}
	if dropSetpcap {
		caps.Unset(capability.BOUNDING, capSetpcap)
		if err := caps.Apply(capability.BOUNDING); err != nil {
			return fmt.Errorf("apply bounding set after dropping CAP_SETPCAP: %w", err)
		}
	}

	return nil
}
