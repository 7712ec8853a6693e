// Package mount implements the mount primitive (§2 item 2): a single
// mount triple plus the handful of mount(2) incantations every container
// needs — plain directory mounts, bind mounts, remounts, propagation
// changes, and a loopback-backed ext4 root — and the mount-namespace
// construction (§4.2) built out of them.
package mount

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Mount is a single mount(2) call's worth of state: what to mount, where,
// with what filesystem type, string options, and numeric flags.
type Mount struct {
	Source  string
	Target  string
	Fstype  string
	Options string
	Flags   uintptr
}

// Do performs the mount described by m.
func (m Mount) Do() error {
	if err := unix.Mount(m.Source, m.Target, m.Fstype, m.Flags, m.Options); err != nil {
		return fmt.Errorf("mount(%s -> %s, %s): %w", m.Source, m.Target, m.Fstype, err)
	}
	return nil
}

// Dir mounts fstype at target with the given flags/options, creating the
// target directory first if it does not exist.
func Dir(target, fstype string, flags uintptr, options string) error {
	if err := os.MkdirAll(target, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", target, err)
	}
	return Mount{Source: fstype, Target: target, Fstype: fstype, Flags: flags, Options: options}.Do()
}

// BindDir bind-mounts source (a directory) onto target, creating target
// first. If rdonly, a second MS_REMOUNT|MS_BIND|MS_RDONLY pass is applied —
// the kernel does not honor MS_RDONLY on the initial MS_BIND mount.
func BindDir(source, target string, rdonly bool) error {
	if err := os.MkdirAll(target, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", target, err)
	}
	if err := (Mount{Source: source, Target: target, Flags: unix.MS_BIND}).Do(); err != nil {
		return err
	}
	if rdonly {
		return Remount(target, unix.MS_BIND|unix.MS_RDONLY)
	}
	return nil
}

// BindFile bind-mounts a single regular file onto target, creating an
// empty target file first so there is something to bind over.
func BindFile(source, target string, rdonly bool) error {
	if f, err := os.OpenFile(target, os.O_CREATE, 0644); err != nil {
		return fmt.Errorf("create bind target %s: %w", target, err)
	} else {
		f.Close()
	}
	if err := (Mount{Source: source, Target: target, Flags: unix.MS_BIND}).Do(); err != nil {
		return err
	}
	if rdonly {
		return Remount(target, unix.MS_BIND|unix.MS_RDONLY)
	}
	return nil
}

// Remount re-applies flags to an already-mounted target via MS_REMOUNT.
func Remount(target string, flags uintptr) error {
	if err := unix.Mount("", target, "", unix.MS_REMOUNT|flags, ""); err != nil {
		return fmt.Errorf("remount %s: %w", target, err)
	}
	return nil
}

// MakeShared, MakeSlave, and MakePrivate change a mount's propagation type
// without touching what's mounted there.
func MakeShared(target string) error {
	return unix.Mount("", target, "", unix.MS_SHARED, "")
}

func MakeSlave(target string) error {
	return unix.Mount("", target, "", unix.MS_SLAVE, "")
}

func MakePrivate(target string) error {
	return unix.Mount("", target, "", unix.MS_PRIVATE, "")
}

func MakeRecSlave(target string) error {
	return unix.Mount("", target, "", unix.MS_SLAVE|unix.MS_REC, "")
}

func MakeRecPrivate(target string) error {
	return unix.Mount("", target, "", unix.MS_PRIVATE|unix.MS_REC, "")
}

// Unmount detaches target.
func Unmount(target string, flags int) error {
	if err := unix.Unmount(target, flags); err != nil {
		return fmt.Errorf("unmount %s: %w", target, err)
	}
	return nil
}
