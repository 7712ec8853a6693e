package launcher

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/werat/porto/config"
)

// LeafRef names a cgroup leaf by controller and relative path; the
// intermediate process reconstructs the actual *cgroups.Leaf locally
// (cgroup mount points vary by host, so only the identity crosses the
// pipe).
type LeafRef struct {
	Subsystem string
	Path      string
}

// handoff is everything that needs to cross from the daemon into the
// intermediate process: the frozen TaskEnv, the leaf cgroups to join, and
// the supplementary group list cred.Resolve already computed (recomputing
// it inside I would mean reopening passwd/group after the mount namespace
// has possibly been touched).
type handoff struct {
	Env    *config.TaskEnv
	Leaves []LeafRef
	Sgids  []int
}

func encodeHandoff(h *handoff) (*os.File, error) {
	data, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("encode handoff: %w", err)
	}
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create handoff pipe: %w", err)
	}
	go func() {
		w.Write(data)
		w.Close()
	}()
	return r, nil
}

func decodeHandoff(f *os.File) (*handoff, error) {
	raw, err := readAllUntilEOF(f)
	if err != nil {
		return nil, err
	}
	var h handoff
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("decode handoff: %w", err)
	}
	return &h, nil
}
