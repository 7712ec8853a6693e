package mount

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

type devNode struct {
	name  string
	mode  uint32
	major uint32
	minor uint32
}

var standardDevNodes = []devNode{
	{"null", 0666, 1, 3},
	{"zero", 0666, 1, 5},
	{"full", 0666, 1, 7},
	{"random", 0666, 1, 8},
	{"urandom", 0666, 1, 9},
}

// MountDev builds the container's /dev: a tmpfs, a devpts instance, the
// standard char devices, and the ptmx/fd symlinks every libc expects.
func MountDev(root string) error {
	devDir := filepath.Join(root, "dev")
	if err := Dir(devDir, "tmpfs", unix.MS_NOSUID|unix.MS_STRICTATIME, "mode=755,size=32m"); err != nil {
		return err
	}

	ptsDir := filepath.Join(devDir, "pts")
	if err := Dir(ptsDir, "devpts", unix.MS_NOSUID|unix.MS_NOEXEC,
		"newinstance,ptmxmode=0666,mode=620,gid=5"); err != nil {
		return err
	}

	for _, n := range standardDevNodes {
		path := filepath.Join(devDir, n.name)
		dev := unix.Mkdev(n.major, n.minor)
		if err := unix.Mknod(path, unix.S_IFCHR|n.mode, int(dev)); err != nil {
			return fmt.Errorf("mknod %s: %w", path, err)
		}
	}

	if err := os.Symlink("pts/ptmx", filepath.Join(devDir, "ptmx")); err != nil {
		return fmt.Errorf("symlink /dev/ptmx: %w", err)
	}
	if err := os.Symlink("/proc/self/fd", filepath.Join(devDir, "fd")); err != nil {
		return fmt.Errorf("symlink /dev/fd: %w", err)
	}

	consolePath := filepath.Join(devDir, "console")
	f, err := os.OpenFile(consolePath, os.O_CREATE, 0755)
	if err != nil {
		return fmt.Errorf("create %s: %w", consolePath, err)
	}
	return f.Close()
}

// MountShm mounts the container's /dev/shm tmpfs.
func MountShm(root string) error {
	return Dir(filepath.Join(root, "dev", "shm"), "tmpfs",
		unix.MS_NOEXEC|unix.MS_NOSUID|unix.MS_NODEV, "mode=1777,size=65536k")
}
