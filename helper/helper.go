// Package helper implements RunCommand (§4.5): a privileged short-lived
// subprocess runner used for recursive copy/clear/remove, grounded on
// src/helpers.cpp's RunCommand/CopyRecursive/ClearRecursive/RemoveRecursive.
package helper

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	porto "github.com/werat/porto"
	"github.com/werat/porto/cgroups"
)

const (
	helperArg      = "__porto_helper"
	helperEnvFdVar = "_PORTO_HELPER_ENV_FD"

	helpersLeafPath = "porto/helpers"

	// maxStderrTail bounds how much of a failed helper's scratch file is
	// folded into the returned error, mirroring the original's
	// TError::MAX - 1024 budget without depending on that constant here.
	maxStderrTail = 3072
)

type helperSpec struct {
	Command []string
	Dir     string
	Caps    uint64
}

// RunCommand forks command, attached to the shared helpers memory cgroup,
// with its current directory bind-remounted read-only except for dir
// itself (unless dir is "/"), and a capability bounding set limited to
// caps (a zero caps leaves the capability sets unchanged). It waits for the child and, on non-zero exit, wraps the tail of
// the child's combined stdout/stderr into the returned error.
func RunCommand(ctx context.Context, command []string, dir string, caps uint64) error {
	if len(command) == 0 {
		return porto.NewError(porto.KindInvalidValue, 0, "external command is empty")
	}

	leaf, err := helpersLeaf()
	if err != nil {
		return porto.WrapError(porto.KindResourceNotAvailable, err, "open helpers cgroup")
	}
	if err := leaf.Create(); err != nil {
		return porto.WrapError(porto.KindResourceNotAvailable, err, "create helpers cgroup")
	}

	scratch, err := os.CreateTemp("", "porto-helper-*")
	if err != nil {
		return porto.WrapError(porto.KindUnknown, err, "create helper scratch file")
	}
	defer os.Remove(scratch.Name())
	defer scratch.Close()

	specR, err := encodeSpec(&helperSpec{Command: command, Dir: dir, Caps: caps})
	if err != nil {
		return porto.WrapError(porto.KindUnknown, err, "encode helper spec")
	}
	defer specR.Close()

	self, err := os.Executable()
	if err != nil {
		return porto.WrapError(porto.KindUnknown, err, "resolve self executable")
	}

	cmd := exec.CommandContext(ctx, self, helperArg)
	cmd.ExtraFiles = []*os.File{specR}
	cmd.Env = append(os.Environ(), fmt.Sprintf("%s=%d", helperEnvFdVar, 3))
	cmd.Stdin = nil
	cmd.Stdout = scratch
	cmd.Stderr = scratch
	cmd.SysProcAttr = &syscall.SysProcAttr{Pdeathsig: syscall.SIGKILL}

	if err := cmd.Start(); err != nil {
		return porto.WrapError(porto.KindResourceNotAvailable, err, "fork helper")
	}

	// Best-effort: attaches the helper to its cgroup as early as possible,
	// racing the exec that follows self-reexec rather than joining before
	// fork as the raw-clone original does. Anything the helper's own init
	// forks before the parent's write lands inherits the default cgroup,
	// which is acceptable for these short, single-process utilities.
	_ = leaf.Attach(cmd.Process.Pid)

	waitErr := cmd.Wait()
	if waitErr == nil {
		return nil
	}

	tail, _ := tailFile(scratch.Name(), maxStderrTail)
	return porto.WrapError(porto.KindUnknown, waitErr,
		fmt.Sprintf("helper %s: %s", strings.Join(command, " "), tail))
}

// CopyRecursive copies src into dst (dst must already exist), matching
// "cp --archive --force --one-file-system --no-target-directory".
func CopyRecursive(ctx context.Context, src, dst string) error {
	return RunCommand(ctx, []string{"cp", "--archive", "--force",
		"--one-file-system", "--no-target-directory", src, "."}, dst, 0)
}

// ClearRecursive deletes every entry beneath path without removing path
// itself, refusing to cross mount points.
func ClearRecursive(ctx context.Context, path string) error {
	return RunCommand(ctx, []string{"find", ".", "-xdev", "-mindepth", "1", "-delete"}, path, 0)
}

// RemoveRecursive deletes path itself. The working directory handed to
// the helper is path's parent, since path won't exist anymore afterward.
func RemoveRecursive(ctx context.Context, path string) error {
	parent := filepath.Dir(filepath.Clean(path))
	return RunCommand(ctx, []string{"rm", "-rf", "--one-file-system", "--", path}, parent, 0)
}

func helpersLeaf() (*cgroups.Leaf, error) {
	return cgroups.NewLeaf("memory", helpersLeafPath)
}

func encodeSpec(s *helperSpec) (*os.File, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	go func() {
		w.Write(data)
		w.Close()
	}()
	return r, nil
}

func decodeSpec(f *os.File) (*helperSpec, error) {
	var buf []byte
	chunk := make([]byte, 4096)
	for {
		n, err := f.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			break
		}
	}
	var s helperSpec
	if err := json.Unmarshal(buf, &s); err != nil {
		return nil, fmt.Errorf("decode helper spec: %w", err)
	}
	return &s, nil
}

// tailFile reads at most n bytes from the end of path.
func tailFile(path string, n int) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if len(data) > n {
		data = data[len(data)-n:]
	}
	return string(data), nil
}
