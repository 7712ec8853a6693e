package launcher

import (
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/werat/porto/cgroups"
	"github.com/werat/porto/netlink"
)

// IntermediateMain is the entry point cmd/portod wires up behind the hidden
// "__porto_intermediate" subcommand: this is process I from §4.1. It never
// returns on the success path — it calls os.Exit once P1 has been reported
// to and G has been released.
func IntermediateMain() {
	if err := runIntermediate(); err != nil {
		os.Exit(1)
	}
	os.Exit(0)
}

func runIntermediate() error {
	envFd, p1Fd, err := fdsFromEnv(envFdVar, p1FdVar)
	if err != nil {
		return err
	}
	envFile := readEndFromFd(envFd, "env")
	p1w := writeEndFromFd(p1Fd, "p1write")

	h, err := decodeHandoff(envFile)
	envFile.Close()
	if err != nil {
		abort(p1w, err)
		return err
	}

	if _, err := unix.Setsid(); err != nil {
		abort(p1w, fmt.Errorf("setsid: %w", err))
		return err
	}

	for _, ref := range h.Leaves {
		leaf, err := cgroups.NewLeaf(ref.Subsystem, ref.Path)
		if err != nil {
			abort(p1w, fmt.Errorf("resolve leaf %s: %w", ref.Subsystem, err))
			return err
		}
		if err := leaf.Attach(os.Getpid()); err != nil {
			abort(p1w, fmt.Errorf("attach to %s cgroup: %w", ref.Subsystem, err))
			return err
		}
	}

	if h.Env.ClientNs.Valid() {
		if err := enterNamespaceSet(h.Env.ClientNs); err != nil {
			abort(p1w, err)
			return err
		}
	}

	if err := reopenStdio(h.Env); err != nil {
		abort(p1w, err)
		return err
	}

	if h.Env.ParentNs.Valid() {
		if err := enterNamespaceSet(h.Env.ParentNs); err != nil {
			abort(p1w, err)
			return err
		}
	}

	p2, err := newPipe()
	if err != nil {
		abort(p1w, err)
		return err
	}

	gEnvR, err := encodeHandoff(h)
	if err != nil {
		abort(p1w, err)
		return err
	}

	self, err := os.Executable()
	if err != nil {
		abort(p1w, err)
		return err
	}

	cmd := exec.Command(self, grandchildArg)
	cmd.ExtraFiles = []*os.File{p2.r, p1w, gEnvR}
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("%s=%d", p2FdVar, 3),
		fmt.Sprintf("%s=%d", p1FdVar, 4),
		fmt.Sprintf("%s=%d", envFdVar, 5),
	)
	cmd.Dir = "/"
	cmd.SysProcAttr = &syscall.SysProcAttr{Cloneflags: cloneFlags(h.Env)}

	if err := cmd.Start(); err != nil {
		gEnvR.Close()
		p2.r.Close()
		p2.w.Close()
		abort(p1w, fmt.Errorf("clone grandchild: %w", err))
		return err
	}
	gpid := cmd.Process.Pid

	// These fds now live in G's fd table; I's copies must close so G's own
	// closes are what the daemon's EOF read is actually waiting on.
	gEnvR.Close()
	p2.r.Close()

	if err := netlink.IsolateNet(gpid, h.Env.NetCfg); err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		abort(p1w, fmt.Errorf("isolate network: %w", err))
		p2.w.Close()
		return err
	}

	// Report G's pid with no error — this closes I's dup of P1; G's dup
	// (inherited across the clone+exec above) is what keeps the daemon's
	// read blocked until G itself finishes or fails.
	p1w.Write(binary4(int32(gpid)))
	p1w.Close()

	if _, err := p2.w.Write([]byte("go!!")); err != nil {
		return err
	}
	p2.w.Close()

	return nil
}

func fdsFromEnv(names ...string) (uintptr, uintptr, error) {
	vals := make([]uintptr, len(names))
	for i, name := range names {
		s := os.Getenv(name)
		if s == "" {
			return 0, 0, fmt.Errorf("missing %s in environment", name)
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, fmt.Errorf("parse %s: %w", name, err)
		}
		vals[i] = uintptr(n)
	}
	return vals[0], vals[1], nil
}

func binary4(v int32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(v))
	return buf
}

func closeAndReportPid(w *os.File, pid []byte, err error) {
	w.Write(pid)
	writeErrorFrame(w, err)
	w.Close()
}

func abort(p1w *os.File, err error) {
	closeAndReportPid(p1w, binary4(-1), err)
}
