package main

import (
	"testing"
	"time"

	porto "github.com/werat/porto"
)

func TestCheckMemoryIgnoresContainerWithoutLimit(t *testing.T) {
	c := porto.NewContainer("test")
	m := newMonitor(porto.NewHolder(), time.Second)
	// No memory_limit property set; should not panic or error.
	m.checkMemory(c)
}

func TestCheckMemoryIgnoresMalformedLimit(t *testing.T) {
	c := porto.NewContainer("test")
	if err := c.SetProperty("memory_limit", "not-a-number"); err != nil {
		t.Fatalf("SetProperty: %v", err)
	}
	m := newMonitor(porto.NewHolder(), time.Second)
	m.checkMemory(c) // should not panic
}

func TestPollOnceSkipsStoppedContainers(t *testing.T) {
	h := porto.NewHolder()
	if _, err := h.Create("a"); err != nil {
		t.Fatalf("create: %v", err)
	}
	m := newMonitor(h, time.Second)
	m.pollOnce() // "a" is Stopped; must not touch its (nonexistent) cgroup stats
}
