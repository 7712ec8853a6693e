package pathutil

import (
	"fmt"
	"os"
)

// RotatingWriter truncates its target file back to empty once it crosses
// maxSize, so a long-lived container's stdout/stderr redirection can't grow
// without bound. It keeps a single previous generation at path+".1" the
// way the corpus's simplest loggers do -- no numbered backlog, no
// compression.
type RotatingWriter struct {
	path    string
	maxSize int64
	f       *os.File
}

func OpenRotating(path string, maxSize int64) (*RotatingWriter, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0660)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &RotatingWriter{path: path, maxSize: maxSize, f: f}, nil
}

func (w *RotatingWriter) Write(p []byte) (int, error) {
	n, err := w.f.Write(p)
	if err != nil {
		return n, err
	}
	if w.maxSize > 0 {
		if fi, statErr := w.f.Stat(); statErr == nil && fi.Size() >= w.maxSize {
			if err := w.rotate(); err != nil {
				return n, err
			}
		}
	}
	return n, nil
}

func (w *RotatingWriter) rotate() error {
	if err := w.f.Close(); err != nil {
		return err
	}
	backup := w.path + ".1"
	os.Remove(backup)
	if err := os.Rename(w.path, backup); err != nil {
		return fmt.Errorf("rotate %s: %w", w.path, err)
	}
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0660)
	if err != nil {
		return fmt.Errorf("reopen %s after rotate: %w", w.path, err)
	}
	w.f = f
	return nil
}

func (w *RotatingWriter) Fd() uintptr {
	return w.f.Fd()
}

func (w *RotatingWriter) Close() error {
	return w.f.Close()
}
