package helper

import (
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"

	"github.com/werat/porto/cred"
	"github.com/werat/porto/mount"
)

// HelperMain is the entry point behind the hidden "__porto_helper"
// subcommand: it reads its spec from the inherited pipe, isolates its
// working directory (unless dir is "/"), applies the capability limit,
// and execs the requested command. Its stdout/stderr are already the
// scratch file the parent set up via os/exec's Cmd.Stdout/Stderr; nothing
// further to redirect here.
func HelperMain() {
	if err := runHelper(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runHelper() error {
	fd, err := fdFromEnv(helperEnvFdVar)
	if err != nil {
		return err
	}
	specFile := os.NewFile(fd, "helper-spec")
	spec, err := decodeSpec(specFile)
	specFile.Close()
	if err != nil {
		return err
	}

	if spec.Dir != "" && spec.Dir != "/" {
		if err := isolateDir(spec.Dir); err != nil {
			return fmt.Errorf("isolate working directory: %w", err)
		}
	} else {
		if err := os.Chdir("/"); err != nil {
			return fmt.Errorf("chdir /: %w", err)
		}
	}

	if spec.Caps != 0 {
		if err := cred.ApplyCapabilities(spec.Caps); err != nil {
			return fmt.Errorf("apply capability limit: %w", err)
		}
	}

	path, err := exec.LookPath(spec.Command[0])
	if err != nil {
		return fmt.Errorf("resolve %s in PATH: %w", spec.Command[0], err)
	}
	argv := append([]string{path}, spec.Command[1:]...)
	if err := unix.Exec(path, argv, os.Environ()); err != nil {
		return fmt.Errorf("execve %s: %w", path, err)
	}
	return nil
}

// isolateDir unshares a private mount namespace, remounts everything
// read-only, then bind-remounts dir itself read-write and chdirs into
// it — so the command that follows can only write beneath dir, matching
// helpers.cpp's unshare+remount-private+remount-bind-rdonly+rebind dance.
func isolateDir(dir string) error {
	if err := os.Chdir(dir); err != nil {
		return fmt.Errorf("chdir %s: %w", dir, err)
	}
	if err := unix.Unshare(unix.CLONE_NEWNS); err != nil {
		return fmt.Errorf("unshare mount namespace: %w", err)
	}
	if err := mount.MakeRecPrivate("/"); err != nil {
		return fmt.Errorf("remount / private: %w", err)
	}
	if err := mount.Remount("/", unix.MS_BIND|unix.MS_REC|unix.MS_RDONLY); err != nil {
		return fmt.Errorf("remount / read-only: %w", err)
	}
	if err := (mount.Mount{Source: ".", Target: ".", Flags: unix.MS_BIND | unix.MS_REC}).Do(); err != nil {
		return fmt.Errorf("bind-mount cwd onto itself: %w", err)
	}
	if err := mount.Remount(".", unix.MS_BIND|unix.MS_REC); err != nil {
		return fmt.Errorf("remount cwd read-write: %w", err)
	}
	return nil
}

func fdFromEnv(name string) (uintptr, error) {
	s := os.Getenv(name)
	if s == "" {
		return 0, fmt.Errorf("missing %s in environment", name)
	}
	var fd int
	if _, err := fmt.Sscanf(s, "%d", &fd); err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return uintptr(fd), nil
}
