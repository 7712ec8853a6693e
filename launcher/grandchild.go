package launcher

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/werat/porto/cred"
	"github.com/werat/porto/mount"
	"github.com/werat/porto/netlink"
)

// GrandchildMain is the entry point behind the hidden "__porto_grandchild"
// subcommand: this is process G from §4.1's ChildCallback. Every failure
// after P1's write end has been opened reports to P1; every failure exits
// 1; the only way out on success is the execve at the very end, which
// never returns.
func GrandchildMain() {
	if err := runGrandchild(); err != nil {
		os.Exit(1)
	}
	// unreachable on success: runGrandchild only returns via execve,
	// which replaces this process image entirely.
	os.Exit(0)
}

func runGrandchild() error {
	p2Fd, p1Fd, err := fdsFromEnv(p2FdVar, p1FdVar)
	if err != nil {
		return err
	}
	envFdStr := os.Getenv(envFdVar)
	if envFdStr == "" {
		return fmt.Errorf("missing %s in environment", envFdVar)
	}
	var envFdNum uintptr
	if _, err := fmt.Sscanf(envFdStr, "%d", &envFdNum); err != nil {
		return fmt.Errorf("parse %s: %w", envFdVar, err)
	}

	p2r := readEndFromFd(p2Fd, "p2read")
	p1w := writeEndFromFd(p1Fd, "p1write")
	envFile := readEndFromFd(envFdNum, "env")

	h, err := decodeHandoff(envFile)
	envFile.Close()
	if err != nil {
		closeAndReport(p1w, err)
		return err
	}
	env := h.Env

	// Step 1: block on "go" from I.
	buf := make([]byte, 4)
	if _, err := p2r.Read(buf); err != nil {
		closeAndReport(p1w, fmt.Errorf("read go signal: %w", err))
		return err
	}
	p2r.Close()

	// Step 2: reset signal dispositions, new session, permissive umask.
	resetSignals()
	if _, err := unix.Setsid(); err != nil {
		closeAndReport(p1w, fmt.Errorf("setsid: %w", err))
		return err
	}
	unix.Umask(0)

	// Step 3: prevent downstream mounts from leaking to the host.
	if env.NewMountNs {
		snap, err := mount.TakeSnapshot()
		if err != nil {
			closeAndReport(p1w, fmt.Errorf("snapshot mounts: %w", err))
			return err
		}
		if err := snap.RemountAllSlave(); err != nil {
			closeAndReport(p1w, fmt.Errorf("remount slave: %w", err))
			return err
		}
	}

	// Step 4: fresh /proc so the new PID namespace is visible.
	if env.Isolate {
		unix.Unmount("/proc", unix.MNT_DETACH)
		if err := mount.Dir("/proc", "proc", unix.MS_NOEXEC|unix.MS_NOSUID|unix.MS_NODEV, ""); err != nil {
			closeAndReport(p1w, fmt.Errorf("remount /proc: %w", err))
			return err
		}
	}

	// Step 5.
	if env.Isolate && env.Loop != "" {
		if err := os.MkdirAll(env.Root, 0755); err != nil {
			closeAndReport(p1w, fmt.Errorf("mkdir root %s: %w", env.Root, err))
			return err
		}
	}

	// Step 6: in-namespace network setup.
	if !env.NetCfg.Share {
		if err := netlink.EnableNet(env.NetCfg, env.IPMap, env.Gateway); err != nil {
			closeAndReport(p1w, fmt.Errorf("enable network: %w", err))
			return err
		}
	}

	// Step 7: filesystem isolation (or joining a handed-in parent ns) then cwd.
	if env.ParentNs.Valid() {
		if err := os.Chdir(env.Root); err != nil {
			closeAndReport(p1w, fmt.Errorf("chdir root: %w", err))
			return err
		}
		if err := unix.Chroot("."); err != nil {
			closeAndReport(p1w, fmt.Errorf("chroot: %w", err))
			return err
		}
		if err := os.Chdir(env.Cwd); err != nil {
			closeAndReport(p1w, fmt.Errorf("chdir cwd: %w", err))
			return err
		}
	} else {
		if err := mount.IsolateFs(env); err != nil {
			closeAndReport(p1w, fmt.Errorf("isolate filesystem: %w", err))
			return err
		}
		if err := os.Chdir(env.Cwd); err != nil {
			closeAndReport(p1w, fmt.Errorf("chdir cwd: %w", err))
			return err
		}
		if env.Hostname != "" {
			if err := unix.Sethostname([]byte(env.Hostname)); err != nil {
				closeAndReport(p1w, fmt.Errorf("sethostname: %w", err))
				return err
			}
		}
	}

	// Step 8: capabilities before privilege drop.
	if err := cred.ApplyCapabilities(env.Caps); err != nil {
		closeAndReport(p1w, fmt.Errorf("apply capabilities: %w", err))
		return err
	}

	// Step 9: rlimits, then drop privileges in the mandated order.
	if err := cred.ApplyRlimits(env.Rlimit); err != nil {
		closeAndReport(p1w, fmt.Errorf("apply rlimits: %w", err))
		return err
	}
	if err := cred.DropPrivileges(env.Cred, h.Sgids); err != nil {
		closeAndReport(p1w, fmt.Errorf("drop privileges: %w", err))
		return err
	}

	// Step 10: exec. P1 is marked close-on-exec so it does not leak into
	// the container's own process image, yet stays open to report a
	// failed exec.
	argv, envp, err := buildExecArgs(env)
	if err != nil {
		closeAndReport(p1w, err)
		return err
	}
	unix.CloseOnExec(int(p1w.Fd()))
	if err := unix.Exec(argv[0], argv, envp); err != nil {
		err = fmt.Errorf("execve %s: %w", argv[0], err)
		closeAndReport(p1w, err)
		return err
	}
	return nil
}
