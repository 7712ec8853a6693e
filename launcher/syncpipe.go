// Package launcher implements the fork/clone/synchronize/exec pipeline
// described by SPEC_FULL.md §4.1: the daemon-side Start entry point, the
// self-reexecing intermediate process I, and the grandchild G that runs the
// container's own init sequence. The pipe choreography is grounded on the
// teacher's namespaces/sync_pipe.go read-until-EOF protocol, generalized
// to a three-process chain instead of two.
package launcher

import (
	"fmt"
	"io"
	"os"

	porto "github.com/werat/porto/rpcerror"
)

// pipe wraps both ends of an os.Pipe with the read-until-EOF semantics the
// rest of this package relies on: the reader collects every writer's bytes
// until the last dup of the write end is closed. On P1, I writes G's pid
// (4 bytes) first; any process that fails writes a porto.Error frame after
// it before closing, so a pid with nothing after it means success.
type pipe struct {
	r, w *os.File
}

func newPipe() (*pipe, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create pipe: %w", err)
	}
	return &pipe{r: r, w: w}, nil
}

// readEndFromFd wraps an inherited fd, used on the reading side of a hop that
// received its pipe end via ExtraFiles rather than creating it locally.
func readEndFromFd(fd uintptr, name string) *os.File {
	return os.NewFile(fd, name)
}

func writeEndFromFd(fd uintptr, name string) *os.File {
	return os.NewFile(fd, name)
}

// closeAndReport writes err (if non-nil) to w as a porto.Error frame, then
// closes w. Call exactly once per process's dup of a given pipe's write end.
func closeAndReport(w *os.File, err error) {
	if err != nil {
		writeErrorFrame(w, err)
	}
	w.Close()
}

func writeErrorFrame(w *os.File, err error) {
	var pe *porto.Error
	if e, ok := err.(*porto.Error); ok {
		pe = e
	} else {
		pe = porto.Wrap(porto.KindUnknown, err, "launch failed")
	}
	pe.WriteTo(w)
}

// readAllUntilEOF blocks until every dup of r's write end has been closed,
// returning every byte written across however many writers held it open.
func readAllUntilEOF(r *os.File) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read sync pipe: %w", err)
	}
	return data, nil
}
