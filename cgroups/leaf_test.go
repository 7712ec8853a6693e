package cgroups

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestLeaf(t *testing.T) *Leaf {
	t.Helper()
	dir := t.TempDir()
	return &Leaf{Subsystem: "memory", Path: "porto/test", mountPoint: dir}
}

func TestLeafCreateAndWriteReadFile(t *testing.T) {
	leaf := newTestLeaf(t)
	if err := leaf.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !leaf.Exists() {
		t.Fatal("expected leaf to exist after Create")
	}

	if err := leaf.WriteFile("memory.limit_in_bytes", "1048576"); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := leaf.ReadFileInt("memory.limit_in_bytes")
	if err != nil {
		t.Fatalf("ReadFileInt: %v", err)
	}
	if got != 1048576 {
		t.Fatalf("got %d, want 1048576", got)
	}
}

func TestLeafReadFileIntMax(t *testing.T) {
	leaf := newTestLeaf(t)
	if err := leaf.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := leaf.WriteFile("memory.limit_in_bytes", "max"); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := leaf.ReadFileInt("memory.limit_in_bytes")
	if err != nil {
		t.Fatalf("ReadFileInt: %v", err)
	}
	if got != 0 {
		t.Fatalf("got %d, want 0 for \"max\"", got)
	}
}

func TestLeafRemoveToleratesMissing(t *testing.T) {
	leaf := newTestLeaf(t)
	if err := leaf.Remove(); err != nil {
		t.Fatalf("Remove on nonexistent leaf: %v", err)
	}
}

func TestLeafFullPath(t *testing.T) {
	leaf := &Leaf{Subsystem: "cpu", Path: "porto/c1", mountPoint: "/sys/fs/cgroup/cpu"}
	want := filepath.Join("/sys/fs/cgroup/cpu", "porto/c1")
	if got := leaf.FullPath(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestMemorySubsystemGetStats(t *testing.T) {
	leaf := newTestLeaf(t)
	if err := leaf.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := os.WriteFile(filepath.Join(leaf.FullPath(), "memory.usage_in_bytes"), []byte("2048"), 0644); err != nil {
		t.Fatal(err)
	}

	var stats Stats
	if err := (&memorySubsystem{}).GetStats(leaf, &stats); err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.MemoryUsage != 2048 {
		t.Fatalf("got %d, want 2048", stats.MemoryUsage)
	}
}
