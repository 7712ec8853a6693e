package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Folder is a thin handle around a directory path, mirroring File.
type Folder struct {
	path string
}

func NewFolder(path string) *Folder {
	return &Folder{path: path}
}

func (d *Folder) Path() string {
	return d.path
}

func (d *Folder) Exists() bool {
	fi, err := os.Stat(d.path)
	return err == nil && fi.IsDir()
}

// Create makes the directory (and parents) if it does not already exist.
func (d *Folder) Create(mode os.FileMode) error {
	if err := os.MkdirAll(d.path, mode); err != nil {
		return fmt.Errorf("mkdir %s: %w", d.path, err)
	}
	return nil
}

// Subdirs lists the immediate subdirectory names, used to snapshot a
// directory's children before an operation (e.g. a tmpfs mount) that would
// otherwise hide them.
func (d *Folder) Subdirs() ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("readdir %s: %w", d.path, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Remove recursively removes the directory. Missing is not an error.
func (d *Folder) Remove() error {
	if err := os.RemoveAll(d.path); err != nil {
		return fmt.Errorf("remove %s: %w", d.path, err)
	}
	return nil
}

// Join is a small convenience wrapper so callers don't need a second
// import just to build a child path.
func (d *Folder) Join(elem ...string) string {
	return filepath.Join(append([]string{d.path}, elem...)...)
}

// ResolveRealpath evaluates symlinks in p, for detecting traversal before
// comparing a path against an expected ancestor. When p does not exist it
// returns the lexically cleaned absolute path without resolving symlinks
// in any existing prefix.
func ResolveRealpath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		// Target may not exist yet (about to be created by a mount);
		// fall back to the lexically-cleaned absolute path.
		return filepath.Clean(abs), nil
	}
	return real, nil
}

// IsWithin reports whether candidate (after symlink resolution) is equal to
// or lies beneath root (after symlink resolution).
func IsWithin(root, candidate string) (bool, error) {
	realRoot, err := ResolveRealpath(root)
	if err != nil {
		return false, err
	}
	realCandidate, err := ResolveRealpath(candidate)
	if err != nil {
		return false, err
	}
	rel, err := filepath.Rel(realRoot, realCandidate)
	if err != nil {
		return false, err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false, nil
	}
	return true, nil
}
