package task

import (
	"os"
	"os/exec"
	"testing"

	"github.com/werat/porto/config"
)

func TestNewTaskStartsInitial(t *testing.T) {
	tk := New(&config.TaskEnv{}, nil)
	if tk.State() != Initial {
		t.Fatalf("want Initial, got %s", tk.State())
	}
	if tk.Pid() != 0 {
		t.Fatalf("want pid 0, got %d", tk.Pid())
	}
}

func TestKillBeforeStartIsRejected(t *testing.T) {
	tk := New(&config.TaskEnv{}, nil)
	if err := tk.Kill(0); err == nil {
		t.Fatalf("want error killing a task that never started")
	}
}

func TestReapMovesToStopped(t *testing.T) {
	tk := New(&config.TaskEnv{}, nil)
	tk.state = Started
	tk.pid = 1234

	tk.Reap(137)

	if tk.State() != Stopped {
		t.Fatalf("want Stopped, got %s", tk.State())
	}
	if tk.ExitStatus() != 137 {
		t.Fatalf("want exit status 137, got %d", tk.ExitStatus())
	}
}

func TestRestoreRejectsUnrelatedPid(t *testing.T) {
	tk := New(&config.TaskEnv{}, nil)
	if err := tk.Restore(os.Getpid()); err == nil {
		t.Fatalf("want error restoring this test process, its parent is not this package's process")
	}
	if tk.State() != Stopped {
		t.Fatalf("want Stopped after failed restore, got %s", tk.State())
	}
}

func TestRestoreAcceptsOwnChild(t *testing.T) {
	cmd := exec.Command("sleep", "5")
	if err := cmd.Start(); err != nil {
		t.Skipf("sleep unavailable in this environment: %v", err)
	}
	defer cmd.Process.Kill()

	tk := New(&config.TaskEnv{}, nil)
	if err := tk.Restore(cmd.Process.Pid); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if tk.State() != Started {
		t.Fatalf("want Started, got %s", tk.State())
	}
	if tk.Pid() != cmd.Process.Pid {
		t.Fatalf("want pid %d, got %d", cmd.Process.Pid, tk.Pid())
	}
}
