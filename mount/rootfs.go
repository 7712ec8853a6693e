package mount

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/werat/porto/config"
	porto "github.com/werat/porto/rpcerror"
)

const (
	defaultFlags = unix.MS_NOEXEC | unix.MS_NOSUID | unix.MS_NODEV
	sysfsFlags   = defaultFlags | unix.MS_RDONLY
)

// IsolateFs runs the full mount-namespace construction described in
// SPEC_FULL.md §4.2 (steps 1-11), inside the grandchild's own mount
// namespace. It must run after namespace entry (mounting in the wrong
// namespace is a silent no-op or a host-visible leak) and before the
// chdir(cwd) the caller performs next (cwd is resolved relative to the new
// root).
func IsolateFs(env *config.TaskEnv) error {
	root := env.Root
	if root == "/" {
		return applyBindMap(env, root)
	}

	if env.Loop != "" {
		dev, err := MountLoopExt4(env.Loop, env.LoopDev, root)
		if err != nil {
			return fmt.Errorf("loop-mount %s at %s: %w", env.Loop, root, err)
		}
		env.LoopDev = dev
	} else {
		if err := (Mount{Source: root, Target: root, Flags: unix.MS_BIND}).Do(); err != nil {
			return fmt.Errorf("bind root onto itself: %w", err)
		}
		if err := MakeShared(root); err != nil {
			return fmt.Errorf("mark root shared: %w", err)
		}
	}

	if err := Dir(filepath.Join(root, "sys"), "sysfs", sysfsFlags, ""); err != nil {
		return err
	}
	if err := Dir(filepath.Join(root, "proc"), "proc", defaultFlags, ""); err != nil {
		return err
	}

	if err := RestrictProc(root, env.Cred.IsRoot()); err != nil {
		return err
	}
	if err := MountDev(root); err != nil {
		return err
	}
	if env.Loop != "" {
		if err := MountRun(root); err != nil {
			return err
		}
	}
	if err := MountShm(root); err != nil {
		return err
	}

	if env.BindDNS {
		if err := bindDNS(root); err != nil {
			return err
		}
	}

	if err := applyBindMap(env, root); err != nil {
		return err
	}

	if env.RootRdonly {
		flags := uintptr(unix.MS_REMOUNT | unix.MS_RDONLY)
		if env.Loop == "" {
			flags |= unix.MS_BIND
		}
		if err := unix.Mount("", root, "", flags, ""); err != nil {
			return fmt.Errorf("remount %s read-only: %w", root, err)
		}
	}

	if err := os.Chdir(root); err != nil {
		return fmt.Errorf("chdir %s: %w", root, err)
	}
	if err := pivotRoot(root); err != nil {
		// Fall back to chroot — not every kernel/overlay combination
		// supports pivot_root from a bind-mounted root. The pivot_root
		// error itself is discarded and not logged.
		if err := unix.Chroot(root); err != nil {
			return fmt.Errorf("chroot %s after pivot_root failed: %w", root, err)
		}
	}
	return os.Chdir("/")
}

func bindDNS(root string) error {
	if err := BindFile("/etc/hosts", filepath.Join(root, "etc", "hosts"), false); err != nil {
		return err
	}
	return BindFile("/etc/resolv.conf", filepath.Join(root, "etc", "resolv.conf"), false)
}

func applyBindMap(env *config.TaskEnv, root string) error {
	for _, b := range env.BindMap {
		dest := b.Dest
		if root == "/" {
			if !filepath.IsAbs(dest) {
				dest = filepath.Join(env.Cwd, dest)
			}
		} else {
			target := filepath.Join(root, dest)
			within, err := isWithinRoot(root, target)
			if err != nil {
				return fmt.Errorf("resolve bind target %s: %w", dest, err)
			}
			if !within {
				return porto.New(porto.KindInvalidValue, 0,
					fmt.Sprintf("bind mount %s resolves outside root %s, rejected", dest, root))
			}
			dest = target
		}

		fi, err := os.Stat(b.Source)
		if err != nil {
			return fmt.Errorf("stat bind source %s: %w", b.Source, err)
		}
		if fi.IsDir() {
			if err := BindDir(b.Source, dest, b.Rdonly); err != nil {
				return err
			}
		} else {
			if err := BindFile(b.Source, dest, b.Rdonly); err != nil {
				return err
			}
		}
	}
	return nil
}

func isWithinRoot(root, target string) (bool, error) {
	realRoot, err := realPath(root)
	if err != nil {
		return false, err
	}
	realTarget, err := realPath(target)
	if err != nil {
		return false, err
	}
	rel, err := filepath.Rel(realRoot, realTarget)
	if err != nil {
		return false, err
	}
	if rel == ".." || (len(rel) >= 3 && rel[:3] == "../") {
		return false, nil
	}
	return true, nil
}

// realPath resolves path the way TPath::RealPath does: every symlink in an
// existing prefix is followed, and whatever trailing components don't exist
// yet (the bind target itself, not yet created) are appended verbatim. A
// plain filepath.Abs would let a symlink anywhere in an existing prefix
// point outside root and still read as "within" it.
func realPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}
	parent := filepath.Dir(abs)
	if parent == abs {
		return abs, nil
	}
	realParent, err := realPath(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(realParent, filepath.Base(abs)), nil
}

// pivotRoot swaps the process's root with newRoot. newRoot must already be
// the current working directory and a mount point. The classic trick of
// putting the old root underneath newRoot and unmounting it afterward is
// used so no extra directory needs to exist inside the new root ahead of
// time.
func pivotRoot(newRoot string) error {
	oldRoot, err := os.MkdirTemp(newRoot, ".pivot_old")
	if err != nil {
		return fmt.Errorf("create pivot_root staging dir: %w", err)
	}
	defer os.RemoveAll(oldRoot)

	if err := unix.PivotRoot(newRoot, oldRoot); err != nil {
		return fmt.Errorf("pivot_root: %w", err)
	}

	oldRootOnNew := "/" + filepath.Base(oldRoot)
	if err := unix.Unmount(oldRootOnNew, unix.MNT_DETACH); err != nil {
		return fmt.Errorf("detach old root: %w", err)
	}
	return nil
}
