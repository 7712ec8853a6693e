// Package cgroups implements the subsystem registry (§2 item 4): it
// discovers the controllers the host has mounted, creates hierarchy leaves
// beneath them, attaches pids, and reads/writes controller files. One
// concrete Subsystem per mounted controller, dispatched through a common
// interface, grounded on the docker-archive-libcontainer cgroups/fs join/
// Apply/Set/Remove/GetStats pattern (cgroups/fs/cpu.go) but reworked around
// an explicit Leaf value instead of an opaque *data handle.
package cgroups

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Leaf identifies one cgroup hierarchy leaf: a controller and a path
// relative to that controller's mount point. It exists iff the directory
// exists.
type Leaf struct {
	Subsystem string
	Path      string // relative to the subsystem's mount point, e.g. "porto/my-container"

	mountPoint string
}

// FullPath is the absolute filesystem path of the leaf directory.
func (l *Leaf) FullPath() string {
	return filepath.Join(l.mountPoint, l.Path)
}

// Create makes the leaf directory (and, transitively, the kernel creates
// the controller's default files in it).
func (l *Leaf) Create() error {
	return os.MkdirAll(l.FullPath(), 0755)
}

// Exists reports whether the leaf directory is present.
func (l *Leaf) Exists() bool {
	_, err := os.Stat(l.FullPath())
	return err == nil
}

// Remove deletes the leaf directory. Fails with EBUSY while any pid is
// still attached; callers are expected to have already moved or reaped
// every process first.
func (l *Leaf) Remove() error {
	err := os.Remove(l.FullPath())
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// Attach writes pid to cgroup.procs, joining every thread of that process
// to this leaf.
func (l *Leaf) Attach(pid int) error {
	return l.WriteFile("cgroup.procs", strconv.Itoa(pid))
}

// Pids reads back the set of pids currently attached to this leaf.
func (l *Leaf) Pids() ([]int, error) {
	data, err := l.ReadFile("cgroup.procs")
	if err != nil {
		return nil, err
	}
	var pids []int
	for _, line := range strings.Fields(data) {
		pid, err := strconv.Atoi(line)
		if err != nil {
			continue
		}
		pids = append(pids, pid)
	}
	return pids, nil
}

// ReadFile reads a single controller knob file beneath this leaf.
func (l *Leaf) ReadFile(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(l.FullPath(), name))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// WriteFile writes a single controller knob file beneath this leaf.
func (l *Leaf) WriteFile(name, value string) error {
	path := filepath.Join(l.FullPath(), name)
	if err := os.WriteFile(path, []byte(value), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadFileInt reads a controller knob as a uint64, treating "max" (the
// cgroup v2 spelling of "no limit") as zero.
func (l *Leaf) ReadFileInt(name string) (uint64, error) {
	s, err := l.ReadFile(name)
	if err != nil {
		return 0, err
	}
	if s == "max" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}
