package mount

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// AttachLoop associates image with the next free /dev/loop* device and
// returns its path. Mirrors what losetup does under the hood.
func AttachLoop(image string) (string, error) {
	ctrl, err := os.OpenFile("/dev/loop-control", os.O_RDWR, 0)
	if err != nil {
		return "", fmt.Errorf("open /dev/loop-control: %w", err)
	}
	defer ctrl.Close()

	idx, _, errno := unix.Syscall(unix.SYS_IOCTL, ctrl.Fd(), unix.LOOP_CTL_GET_FREE, 0)
	if int(idx) < 0 {
		return "", fmt.Errorf("LOOP_CTL_GET_FREE: %w", errno)
	}

	dev := fmt.Sprintf("/dev/loop%d", idx)
	loopFile, err := os.OpenFile(dev, os.O_RDWR, 0)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", dev, err)
	}
	defer loopFile.Close()

	backing, err := os.OpenFile(image, os.O_RDWR, 0)
	if err != nil {
		return "", fmt.Errorf("open backing image %s: %w", image, err)
	}
	defer backing.Close()

	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, loopFile.Fd(), unix.LOOP_SET_FD, backing.Fd()); errno != 0 {
		return "", fmt.Errorf("LOOP_SET_FD %s <- %s: %w", dev, image, errno)
	}

	return dev, nil
}

// DetachLoop tears down a loop device previously attached with AttachLoop.
func DetachLoop(dev string) error {
	f, err := os.OpenFile(dev, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", dev, err)
	}
	defer f.Close()
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), unix.LOOP_CLR_FD, 0); errno != 0 {
		return fmt.Errorf("LOOP_CLR_FD %s: %w", dev, errno)
	}
	return nil
}

// MountLoopExt4 attaches image to a loop device (unless loopDev is already
// provided by the caller, e.g. after a restore) and mounts it ext4 at
// target.
func MountLoopExt4(image, loopDev, target string) (string, error) {
	dev := loopDev
	if dev == "" {
		var err error
		dev, err = AttachLoop(image)
		if err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(target, 0755); err != nil {
		return dev, fmt.Errorf("mkdir %s: %w", target, err)
	}
	if err := (Mount{Source: dev, Target: target, Fstype: "ext4"}).Do(); err != nil {
		return dev, err
	}
	return dev, nil
}
