package launcher

import (
	"testing"

	"github.com/werat/porto/cgroups"
	"github.com/werat/porto/config"
)

func TestHandoffRoundTrip(t *testing.T) {
	h := &handoff{
		Env: &config.TaskEnv{
			Command:  "/bin/true",
			Cwd:      "/",
			Root:     "/",
			Hostname: "box",
		},
		Leaves: []LeafRef{{Subsystem: "memory", Path: "porto/a"}},
		Sgids:  []int{100, 200},
	}

	r, err := encodeHandoff(h)
	if err != nil {
		t.Fatalf("encodeHandoff: %v", err)
	}
	defer r.Close()

	got, err := decodeHandoff(r)
	if err != nil {
		t.Fatalf("decodeHandoff: %v", err)
	}

	if got.Env.Command != h.Env.Command || got.Env.Hostname != h.Env.Hostname {
		t.Fatalf("env mismatch: got %+v, want %+v", got.Env, h.Env)
	}
	if len(got.Leaves) != 1 || got.Leaves[0] != h.Leaves[0] {
		t.Fatalf("leaves mismatch: got %+v", got.Leaves)
	}
	if len(got.Sgids) != 2 || got.Sgids[0] != 100 || got.Sgids[1] != 200 {
		t.Fatalf("sgids mismatch: got %+v", got.Sgids)
	}
}

func TestBinary4RoundTrip(t *testing.T) {
	cases := []int32{0, 1, 42, -1, 1 << 20}
	for _, v := range cases {
		buf := binary4(v)
		if len(buf) != 4 {
			t.Fatalf("binary4(%d): want 4 bytes, got %d", v, len(buf))
		}
	}
}

func TestCloneFlagsIsolateAddsNamespaces(t *testing.T) {
	base := &config.TaskEnv{}
	isolated := &config.TaskEnv{Isolate: true, NewMountNs: true, Hostname: "x"}
	isolated.NetCfg.Share = true // leave networking alone to isolate the other flags

	if cloneFlags(isolated) == cloneFlags(base) {
		t.Fatalf("expected isolated task env to add clone flags")
	}
}

func TestLeafRefsFromIsStable(t *testing.T) {
	leaves := map[string]*cgroups.Leaf{
		"memory": {Subsystem: "memory", Path: "porto/a"},
		"cpu":    {Subsystem: "cpu", Path: "porto/a"},
	}
	refs := LeafRefsFrom(leaves)
	if len(refs) != 2 {
		t.Fatalf("want 2 refs, got %d", len(refs))
	}
	seen := map[string]bool{}
	for _, r := range refs {
		seen[r.Subsystem] = true
	}
	if !seen["memory"] || !seen["cpu"] {
		t.Fatalf("missing expected subsystems: %+v", refs)
	}
}
