// Package pathutil provides the path and file primitives every other
// package in this module is built on: existence/type checks, truncating
// and appending writers, line iteration, and size-based log rotation. These
// wrap os directly — there is no ecosystem library for this kind of
// syntactic path/file plumbing, and adding one would just be an indirection
// over os.File.
package pathutil

import (
	"bufio"
	"fmt"
	"os"
)

// FileType mirrors the st_mode family bits a caller cares about when
// deciding how to treat a path (plain file vs directory vs device node).
type FileType int

const (
	TypeUnknown FileType = iota
	TypeRegular
	TypeDirectory
	TypeCharacter
	TypeBlock
	TypeFifo
	TypeLink
	TypeSocket
)

// File is a thin handle around a path, not an open descriptor — every
// operation opens, does its work, and closes. That matches how this
// runtime uses paths: short-lived reads/writes against cgroup and /proc
// files, never a long-held handle.
type File struct {
	path string
}

func New(path string) *File {
	return &File{path: path}
}

func (f *File) Path() string {
	return f.path
}

// Type lstat's the path (not stat — a dangling symlink is reported as
// TypeLink, not an error) and classifies it.
func (f *File) Type() FileType {
	fi, err := os.Lstat(f.path)
	if err != nil {
		return TypeUnknown
	}
	mode := fi.Mode()
	switch {
	case mode&os.ModeSymlink != 0:
		return TypeLink
	case mode&os.ModeDir != 0:
		return TypeDirectory
	case mode&os.ModeCharDevice != 0:
		return TypeCharacter
	case mode&os.ModeDevice != 0:
		return TypeBlock
	case mode&os.ModeNamedPipe != 0:
		return TypeFifo
	case mode&os.ModeSocket != 0:
		return TypeSocket
	case mode.IsRegular():
		return TypeRegular
	default:
		return TypeUnknown
	}
}

func (f *File) Exists() bool {
	_, err := os.Lstat(f.path)
	return err == nil
}

// Remove unlinks the path. A missing file is not an error — callers remove
// things speculatively (stale cgroup leaves, leftover stdio files) all the
// time.
func (f *File) Remove() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", f.path, err)
	}
	return nil
}

// AsString reads the whole file into memory. Used for the small,
// line-oriented files this runtime reads constantly (/proc/<pid>/status,
// cgroup controller knobs).
func (f *File) AsString() (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", f.path, err)
	}
	return string(data), nil
}

func (f *File) AsInt() (int, error) {
	s, err := f.AsString()
	if err != nil {
		return 0, err
	}
	var v int
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return 0, fmt.Errorf("%s: bad integer value %q", f.path, s)
	}
	return v, nil
}

// AsLines reads the file and splits it into lines, dropping the trailing
// newline convention entirely (no empty trailing element).
func (f *File) AsLines() ([]string, error) {
	fh, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.path, err)
	}
	defer fh.Close()

	var lines []string
	sc := bufio.NewScanner(fh)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	return lines, nil
}

// WriteStringNoAppend truncates the file (creating it if needed) and
// writes str. This is the mode every "set a controller knob" call uses.
func (f *File) WriteStringNoAppend(str string) error {
	if err := os.WriteFile(f.path, []byte(str), 0644); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	return nil
}

// AppendString opens with real O_APPEND semantics. The upstream C++ this
// runtime was distilled from opened the append path without the append
// flag (ofstream::out instead of ofstream::app) — almost certainly a bug,
// since two concurrent writers would then race on the same offset instead
// of each getting its own atomic tail write. This implementation uses
// O_APPEND as the name promises.
func (f *File) AppendString(str string) error {
	fh, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open %s for append: %w", f.path, err)
	}
	defer fh.Close()
	if _, err := fh.WriteString(str); err != nil {
		return fmt.Errorf("append %s: %w", f.path, err)
	}
	return nil
}

// Size returns the current file size, or 0 if the file does not exist.
func (f *File) Size() int64 {
	fi, err := os.Stat(f.path)
	if err != nil {
		return 0
	}
	return fi.Size()
}
