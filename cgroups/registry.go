package cgroups

import (
	"fmt"
	"strings"
	"sync"

	"github.com/moby/sys/mountinfo"
)

// Subsystem is one mounted cgroup controller. Name identifies it (also the
// mount option that appears in /proc/self/mountinfo for cgroup v1, e.g.
// "memory", "cpu,cpuacct" combined mounts get split into their component
// names when discovered). Apply creates the leaf and joins it to whatever
// default configuration the controller needs; Set pushes configuration
// knobs; GetStats folds accounting data into a shared Stats snapshot;
// Remove tears the leaf down.
type Subsystem interface {
	Name() string
	Apply(leaf *Leaf) error
	Set(leaf *Leaf, cfg map[string]string) error
	GetStats(leaf *Leaf, stats *Stats) error
	Remove(leaf *Leaf) error
}

var (
	registryOnce sync.Once
	registryErr  error
	mountPoints  map[string]string // controller name -> mount point
	subsystems   map[string]Subsystem
)

func discover() {
	mountPoints = make(map[string]string)
	mounts, err := mountinfo.GetMounts(mountinfo.FSTypeFilter("cgroup"))
	if err != nil {
		registryErr = fmt.Errorf("read cgroup mount table: %w", err)
		return
	}
	for _, m := range mounts {
		for _, opt := range strings.Split(m.VFSOptions, ",") {
			if _, known := controllerConstructors[opt]; known {
				mountPoints[opt] = m.Mountpoint
			}
		}
	}

	subsystems = make(map[string]Subsystem)
	for name, newFn := range controllerConstructors {
		if _, mounted := mountPoints[name]; mounted {
			subsystems[name] = newFn()
		}
	}
}

// controllerConstructors lists every controller this registry knows how to
// drive; populated by each controller's own file via an init().
var controllerConstructors = map[string]func() Subsystem{}

func registerController(name string, newFn func() Subsystem) {
	controllerConstructors[name] = newFn
}

// Get returns the Subsystem for a mounted controller by name, discovering
// the host's cgroup mount table on first use.
func Get(name string) (Subsystem, error) {
	registryOnce.Do(discover)
	if registryErr != nil {
		return nil, registryErr
	}
	s, ok := subsystems[name]
	if !ok {
		return nil, fmt.Errorf("cgroup controller %q is not mounted", name)
	}
	return s, nil
}

// All returns every Subsystem the host has mounted, for callers (like the
// stats poller) that want to sweep every controller a leaf might be in.
func All() (map[string]Subsystem, error) {
	registryOnce.Do(discover)
	if registryErr != nil {
		return nil, registryErr
	}
	return subsystems, nil
}

// NewLeaf builds a Leaf handle for a mounted controller without touching
// the filesystem; call Create to actually make the directory.
func NewLeaf(controller, relPath string) (*Leaf, error) {
	registryOnce.Do(discover)
	if registryErr != nil {
		return nil, registryErr
	}
	mp, ok := mountPoints[controller]
	if !ok {
		return nil, fmt.Errorf("cgroup controller %q is not mounted", controller)
	}
	return &Leaf{Subsystem: controller, Path: relPath, mountPoint: mp}, nil
}
