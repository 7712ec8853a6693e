package porto

import (
	"context"
	"testing"
	"time"
)

func TestHolderCreateRejectsDuplicate(t *testing.T) {
	h := NewHolder()
	if _, err := h.Create("a"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := h.Create("a"); err == nil {
		t.Fatalf("want error on duplicate create")
	}
}

func TestHolderFindMissing(t *testing.T) {
	h := NewHolder()
	if _, err := h.Find("nope"); err == nil {
		t.Fatalf("want error for missing container")
	}
}

func TestHolderListSorted(t *testing.T) {
	h := NewHolder()
	for _, name := range []string{"c", "a", "b"} {
		if _, err := h.Create(name); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	got := h.List()
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("List: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("List[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestHolderDestroyRemovesStoppedContainer(t *testing.T) {
	h := NewHolder()
	if _, err := h.Create("a"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := h.Destroy(context.Background(), "a", time.Second); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if _, err := h.Find("a"); err == nil {
		t.Fatalf("want error: container should be gone after destroy")
	}
}

func TestHolderDestroyMissing(t *testing.T) {
	h := NewHolder()
	if err := h.Destroy(context.Background(), "nope", time.Second); err == nil {
		t.Fatalf("want error destroying missing container")
	}
}
