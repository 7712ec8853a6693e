package launcher

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"

	porto "github.com/werat/porto/rpcerror"
	"github.com/werat/porto/cgroups"
	"github.com/werat/porto/config"
	"github.com/werat/porto/cred"
)

const (
	envFdVar = "_PORTO_ENV_FD"
	p1FdVar  = "_PORTO_P1_FD"
	p2FdVar  = "_PORTO_P2_FD"

	intermediateArg = "__porto_intermediate"
	grandchildArg   = "__porto_grandchild"
)

// Start implements the daemon-side half of §4.1: it resolves the task's
// credentials, forks the intermediate process I, and blocks until I (and,
// transitively, the grandchild G it clones) reports a pid and an optional
// error over the shared sync pipe P1.
//
// On success the container's init process is running under the returned
// pid. On failure no process is left behind: the caller does not need to
// kill anything itself.
//
// ctx is only consulted at the blocking read/waitpid points below — there
// is nothing to cancel inside I or G once they've been released, so a
// cancellation arriving after the pid has been reported is ignored.
func Start(ctx context.Context, env *config.TaskEnv, leaves []LeafRef) (int, error) {
	resolved, sgids, err := cred.Resolve(env.User)
	if err != nil {
		return 0, porto.Wrap(porto.KindInvalidValue, err, "resolve user")
	}
	if env.User != "" {
		env.Cred = resolved
	}

	h := &handoff{Env: env, Leaves: leaves, Sgids: sgids}
	envR, err := encodeHandoff(h)
	if err != nil {
		return 0, porto.Wrap(porto.KindUnknown, err, "encode task environment")
	}
	defer envR.Close()

	p1, err := newPipe()
	if err != nil {
		return 0, porto.Wrap(porto.KindUnknown, err, "create sync pipe")
	}

	self, err := os.Executable()
	if err != nil {
		return 0, porto.Wrap(porto.KindUnknown, err, "resolve self executable")
	}

	cmd := exec.Command(self, intermediateArg)
	cmd.ExtraFiles = []*os.File{envR, p1.w}
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("%s=%d", envFdVar, 3),
		fmt.Sprintf("%s=%d", p1FdVar, 4),
	)

	if err := cmd.Start(); err != nil {
		p1.w.Close()
		p1.r.Close()
		return 0, porto.Wrap(porto.KindResourceNotAvailable, err, "fork intermediate process")
	}
	// The daemon's own copies of the fds handed to I must be closed so
	// readAllUntilEOF below only blocks on I's (and G's) copies.
	envR.Close()
	p1.w.Close()

	cancelWatch := watchContext(ctx, p1.r, cmd)

	raw, err := readAllUntilEOF(p1.r)
	cancelWatch()
	p1.r.Close()
	if err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return 0, porto.Wrap(porto.KindUnknown, err, "read sync pipe")
	}

	cmd.Wait() // reap I; its exit status carries no information, G is independent by now

	if len(raw) < 4 {
		return 0, porto.ErrCouldntStart
	}
	pid := int(int32(binary.LittleEndian.Uint32(raw[0:4])))

	if len(raw) > 4 {
		perr, err := porto.Read(raw[4:])
		if err != nil {
			return 0, porto.Wrap(porto.KindUnknown, err, "decode child error")
		}
		if pid > 0 {
			syscallKill(pid)
		}
		return 0, perr
	}

	if pid <= 0 {
		return 0, porto.ErrCouldntStart
	}
	return pid, nil
}

// watchContext unblocks a pending readAllUntilEOF(p1.r) if ctx is canceled
// before I/G have finished reporting, by killing I and closing the read
// end out from under it. Returns a cancel func the caller must call once
// the read has returned on its own, so the watcher goroutine doesn't leak.
func watchContext(ctx context.Context, p1r *os.File, cmd *exec.Cmd) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			cmd.Process.Kill()
			p1r.Close()
		case <-done:
		}
	}()
	return func() { close(done) }
}

func syscallKill(pid int) {
	if proc, err := os.FindProcess(pid); err == nil {
		proc.Kill()
	}
}

// LeafRefsFrom converts the concrete leaves a container's Start call
// created into the (subsystem, path) pairs that cross the handoff —
// exported so task.go doesn't need to reach into launcher internals.
func LeafRefsFrom(leaves map[string]*cgroups.Leaf) []LeafRef {
	refs := make([]LeafRef, 0, len(leaves))
	for _, leaf := range leaves {
		refs = append(refs, LeafRef{Subsystem: leaf.Subsystem, Path: leaf.Path})
	}
	return refs
}
