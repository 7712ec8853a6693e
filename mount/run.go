package mount

import (
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/werat/porto/pathutil"
)

// MountRun gives a loop-based root a tmpfs /run. The subdirectories that
// existed there before the tmpfs mount (typically laid down by whatever
// built the root image) would otherwise vanish under the fresh tmpfs, so
// they're captured first and recreated empty afterward.
//
// The upstream implementation this is grounded on captures the subdir list
// only when /run already exists, but performs the capture in the same
// branch as the mkdir-if-missing case ordered after the mount in some
// revisions — this version always snapshots before mounting, per the
// decided Open Question in SPEC_FULL.md.
func MountRun(root string) error {
	runDir := filepath.Join(root, "run")
	folder := pathutil.NewFolder(runDir)

	var subdirs []string
	if folder.Exists() {
		var err error
		subdirs, err = folder.Subdirs()
		if err != nil {
			return err
		}
	} else if err := folder.Create(0755); err != nil {
		return err
	}

	if err := Dir(runDir, "tmpfs", unix.MS_NOSUID|unix.MS_STRICTATIME, "mode=755,size=32m"); err != nil {
		return err
	}

	for _, name := range subdirs {
		if err := pathutil.NewFolder(filepath.Join(runDir, name)).Create(0755); err != nil {
			return err
		}
	}
	return nil
}
