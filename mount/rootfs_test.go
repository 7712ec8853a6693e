package mount

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/werat/porto/config"
	porto "github.com/werat/porto/rpcerror"
)

func TestIsWithinRootRejectsSymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()

	link := filepath.Join(root, "escape")
	if err := os.Symlink(outside, link); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	within, err := isWithinRoot(root, filepath.Join(link, "payload"))
	if err != nil {
		t.Fatalf("isWithinRoot: %v", err)
	}
	if within {
		t.Fatalf("expected symlinked target to escape root, got within=true")
	}
}

func TestIsWithinRootAllowsNonexistentLeaf(t *testing.T) {
	root := t.TempDir()

	within, err := isWithinRoot(root, filepath.Join(root, "etc", "not-yet-created"))
	if err != nil {
		t.Fatalf("isWithinRoot: %v", err)
	}
	if !within {
		t.Fatalf("expected a not-yet-mounted target under root to be within root")
	}
}

func TestApplyBindMapRejectsEscapeWithInvalidValueKind(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()

	source := filepath.Join(outside, "src")
	if err := os.WriteFile(source, []byte("x"), 0644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	link := filepath.Join(root, "escape")
	if err := os.Symlink(outside, link); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	env := &config.TaskEnv{
		BindMap: []config.BindMount{{Source: source, Dest: "escape/payload"}},
	}

	err := applyBindMap(env, root)
	if err == nil {
		t.Fatal("expected applyBindMap to reject the symlinked escape")
	}
	pe, ok := err.(*porto.Error)
	if !ok {
		t.Fatalf("expected *rpcerror.Error, got %T: %v", err, err)
	}
	if pe.Kind != porto.KindInvalidValue {
		t.Fatalf("expected KindInvalidValue, got %v", pe.Kind)
	}
}
