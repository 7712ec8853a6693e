// Package task implements the Task runtime handle (§3, §4.1's state
// machine): the bridge between a container's frozen TaskEnv and the
// launcher pipeline that turns it into a running, isolated process.
package task

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	porto "github.com/werat/porto/rpcerror"
	"github.com/werat/porto/cgroups"
	"github.com/werat/porto/config"
	"github.com/werat/porto/launcher"
	"github.com/werat/porto/pathutil"
)

// State is the task's position in the Initial -> Started -> Stopped
// machine described by §4.1.
type State int

const (
	Initial State = iota
	Started
	Stopped
)

func (s State) String() string {
	switch s {
	case Initial:
		return "initial"
	case Started:
		return "started"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Task is the runtime handle for one spawned container process.
type Task struct {
	mu sync.Mutex

	env    *config.TaskEnv
	leaves map[string]*cgroups.Leaf
	cwd    *pathutil.Folder

	state      State
	pid        int
	exitStatus int
}

// New builds a Task in the Initial state, ready for Start. leaves is the
// set of cgroup hierarchy leaves the launcher should attach the task's
// init process (and everything it forks) to.
func New(env *config.TaskEnv, leaves map[string]*cgroups.Leaf) *Task {
	var cwd *pathutil.Folder
	if env.CreateCwd {
		cwd = pathutil.NewFolder(env.Cwd)
	}
	return &Task{env: env, leaves: leaves, cwd: cwd, state: Initial}
}

// Start drives the launcher's double-fork/clone pipeline and transitions
// the task to Started on success. Calling Start twice on the same Task is
// a programming error.
func (t *Task) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != Initial {
		return porto.New(porto.KindInvalidValue, 0, fmt.Sprintf("task already %s", t.state))
	}

	pid, err := launcher.Start(ctx, t.env, launcher.LeafRefsFrom(t.leaves))
	if err != nil {
		t.cleanupAfterFailedStart()
		return err
	}

	t.pid = pid
	t.state = Started
	return nil
}

// cleanupAfterFailedStart is the task's part of the partial-start cleanup:
// it removes the cwd folder whenever CreateCwd was set, without checking
// the path against any temp-directory prefix. It does not touch the leaf
// cgroups — the container that owns them is responsible for their
// lifecycle (Container.Start removes them when Start fails).
func (t *Task) cleanupAfterFailedStart() {
	if t.cwd != nil {
		t.cwd.Remove()
	}
}

// Pid is the child's pid in the host namespace, or 0 if not running.
func (t *Task) Pid() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pid
}

// State reports the task's current position in the state machine.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// ExitStatus is the last observed exit status, 0 while the task is live.
func (t *Task) ExitStatus() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exitStatus
}

// Kill sends sig to the task's process. Legal only in Started.
func (t *Task) Kill(sig unix.Signal) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != Started {
		return porto.New(porto.KindInvalidValue, 0, fmt.Sprintf("kill: task is %s, not started", t.state))
	}
	if err := unix.Kill(t.pid, sig); err != nil {
		if err == unix.ESRCH {
			return nil
		}
		return porto.Wrap(porto.KindUnknown, err, fmt.Sprintf("kill(%d, %d)", t.pid, sig))
	}
	return nil
}

// Reap records the process's exit and moves the task to Stopped. Called
// by the container state machine once it has observed SIGCHLD/waitpid for
// this task's pid.
func (t *Task) Reap(status int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.exitStatus = status
	t.state = Stopped
	t.leaves = nil
}

// Restore jumps the task from Initial to Started for a pid the daemon
// believes it previously started (e.g. after a daemon restart), validated
// against the process's current ppid and freezer cgroup membership. If
// validation fails and the process is not a zombie, Restore leaves the
// task in Stopped with no pid rather than trusting a stale or reused pid.
func (t *Task) Restore(pid int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != Initial {
		return porto.New(porto.KindInvalidValue, 0, fmt.Sprintf("restore: task is %s, not initial", t.state))
	}

	zombie, err := isZombie(pid)
	if err != nil {
		t.state = Stopped
		return err
	}

	okParent, err := hasCorrectParent(pid)
	if err != nil && !zombie {
		t.state = Stopped
		return err
	}
	okFreezer := t.hasCorrectFreezer(pid)

	if (!okParent || !okFreezer) && !zombie {
		t.pid = 0
		t.state = Stopped
		return porto.New(porto.KindNotFound, 0, fmt.Sprintf("pid %d does not belong to this task", pid))
	}

	t.pid = pid
	t.state = Started
	return nil
}

// hasCorrectParent reports whether pid's ppid is this process's own pid
// or 1 (init) — the daemon is always I's direct parent by construction,
// and by the time I exits G has already been reparented away from the
// daemon, so a restored pid should either still be I (transiently) or
// have been reparented to init. Ancestry through any other subreaper is
// not recognized.
func hasCorrectParent(pid int) (bool, error) {
	fields, err := readProcStatus(pid)
	if err != nil {
		return false, err
	}
	ppidStr, ok := fields["PPid"]
	if !ok {
		return false, fmt.Errorf("proc status for %d has no PPid field", pid)
	}
	ppid, err := strconv.Atoi(ppidStr)
	if err != nil {
		return false, fmt.Errorf("parse PPid %q: %w", ppidStr, err)
	}
	return ppid == os.Getpid() || ppid == 1, nil
}

func isZombie(pid int) (bool, error) {
	fields, err := readProcStatus(pid)
	if err != nil {
		if os.IsNotExist(err) {
			return false, porto.New(porto.KindNotFound, 0, fmt.Sprintf("pid %d not found", pid))
		}
		return false, err
	}
	return strings.HasPrefix(fields["State"], "Z"), nil
}

// hasCorrectFreezer reports whether pid is currently a member of this
// task's freezer leaf, when one was configured.
func (t *Task) hasCorrectFreezer(pid int) bool {
	leaf, ok := t.leaves["freezer"]
	if !ok {
		return true
	}
	pids, err := leaf.Pids()
	if err != nil {
		return false
	}
	for _, p := range pids {
		if p == pid {
			return true
		}
	}
	return false
}

// readProcStatus parses the colon-separated fields of /proc/<pid>/status
// this package needs: State and PPid.
func readProcStatus(pid int) (map[string]string, error) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/status", pid))
	if err != nil {
		return nil, err
	}
	fields := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		fields[parts[0]] = strings.TrimSpace(parts[1])
	}
	return fields, nil
}
