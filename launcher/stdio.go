package launcher

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/werat/porto/config"
)

// reopenStdio replaces I's stdin/stdout/stderr with the task env's
// configured paths, so G inherits them across the coming clone+exec.
// Stdin is opened read-only (creating it if missing, matching the original
// behavior of treating an empty stdin file as EOF rather than an error);
// stdout/stderr are opened append-mode and chowned to the task's
// credential so the container's own user can write to its own log files.
func reopenStdio(env *config.TaskEnv) error {
	if env.StdinPath != "" {
		if err := reopenFd(0, env.StdinPath, unix.O_CREAT|unix.O_RDONLY, 0, env.Cred); err != nil {
			return fmt.Errorf("reopen stdin: %w", err)
		}
	}
	if env.StdoutPath != "" {
		if err := reopenFd(1, env.StdoutPath, unix.O_CREAT|unix.O_WRONLY|unix.O_APPEND, 0660, env.Cred); err != nil {
			return fmt.Errorf("reopen stdout: %w", err)
		}
	}
	if env.StderrPath != "" {
		if err := reopenFd(2, env.StderrPath, unix.O_CREAT|unix.O_WRONLY|unix.O_APPEND, 0660, env.Cred); err != nil {
			return fmt.Errorf("reopen stderr: %w", err)
		}
	}
	return nil
}

func reopenFd(target int, path string, flags int, mode uint32, cred config.Credential) error {
	fd, err := unix.Open(path, flags, mode)
	if err != nil {
		return err
	}
	if mode != 0 {
		if err := unix.Fchown(fd, int(cred.Uid), int(cred.Gid)); err != nil {
			unix.Close(fd)
			return fmt.Errorf("fchown: %w", err)
		}
	}
	if fd != target {
		if err := unix.Dup2(fd, target); err != nil {
			unix.Close(fd)
			return fmt.Errorf("dup2 %d -> %d: %w", fd, target, err)
		}
		unix.Close(fd)
	}
	return nil
}
