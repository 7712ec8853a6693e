package mount

import (
	"fmt"
	"sort"
	"strings"

	"github.com/moby/sys/mountinfo"
)

// Snapshot is the host's mount table at a point in time, used to detect
// mount leakage after a failed Start (P3: the table must be byte-identical
// afterward) and to drive RemountAllSlave.
type Snapshot struct {
	entries []*mountinfo.Info
}

// TakeSnapshot parses /proc/self/mountinfo.
func TakeSnapshot() (*Snapshot, error) {
	entries, err := mountinfo.GetMounts(nil)
	if err != nil {
		return nil, err
	}
	return &Snapshot{entries: entries}, nil
}

// Mountpoints returns every mount point in the snapshot, sorted.
func (s *Snapshot) Mountpoints() []string {
	points := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		points = append(points, e.Mountpoint)
	}
	sort.Strings(points)
	return points
}

// Equal reports whether two snapshots describe the same set of mount
// points — the check the Task launcher's P3 property relies on.
func (s *Snapshot) Equal(other *Snapshot) bool {
	a, b := s.Mountpoints(), other.Mountpoints()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// RemountAllSlave walks every mount point in the snapshot from the root
// down (shortest path first, so a parent's propagation change doesn't get
// immediately overridden when we reach a child already covered by MS_REC)
// and remounts it MS_SLAVE. Grandchild G does this first thing inside its
// new mount namespace so that none of the mounts it creates afterward leak
// back out to the host — the mirror image of MS_SHARED on the host side.
func (s *Snapshot) RemountAllSlave() error {
	points := s.Mountpoints()
	sort.Slice(points, func(i, j int) bool {
		return strings.Count(points[i], "/") < strings.Count(points[j], "/")
	})
	var firstErr error
	for _, p := range points {
		// A failure on one mount does not stop the pass; every mount
		// point is tried, and the first failure is reported once the
		// pass is done.
		if err := MakeSlave(p); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("make %s slave: %w", p, err)
		}
	}
	return firstErr
}
