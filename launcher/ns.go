package launcher

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/werat/porto/config"
)

// cloneFlags computes the clone(2) flag set G is created with, per §4.1
// step 3: always SIGCHLD, plus one CLONE_NEW* per isolation toggle the task
// env requests.
func cloneFlags(env *config.TaskEnv) uintptr {
	flags := uintptr(unix.SIGCHLD)
	if env.Isolate {
		flags |= unix.CLONE_NEWPID | unix.CLONE_NEWIPC
	}
	if env.NewMountNs {
		flags |= unix.CLONE_NEWNS
	}
	if env.Hostname != "" {
		flags |= unix.CLONE_NEWUTS
	}
	if !env.NetCfg.Share {
		flags |= unix.CLONE_NEWNET
	}
	return flags
}

// enterNamespaceSet joins every non-empty handle in h, in an order that
// keeps the process able to resolve the remaining paths: network/UTS/IPC
// first (they don't affect path resolution), PID next, mount last (mount
// namespace entry can change what later path lookups see).
func enterNamespaceSet(h config.NamespaceHandle) error {
	type entry struct {
		path   string
		nstype int
		label  string
	}
	order := []entry{
		{h.Net, unix.CLONE_NEWNET, "net"},
		{h.Uts, unix.CLONE_NEWUTS, "uts"},
		{h.Ipc, unix.CLONE_NEWIPC, "ipc"},
		{h.Pid, unix.CLONE_NEWPID, "pid"},
		{h.Mount, unix.CLONE_NEWNS, "mnt"},
	}
	for _, e := range order {
		if e.path == "" {
			continue
		}
		if err := enterNamespace(e.path, e.nstype); err != nil {
			return fmt.Errorf("enter %s namespace at %s: %w", e.label, e.path, err)
		}
	}
	return nil
}

func enterNamespace(path string, nstype int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return unix.Setns(int(f.Fd()), nstype)
}
