package helper

import (
	"os"
	"strings"
	"testing"
)

func TestSpecRoundTrip(t *testing.T) {
	spec := &helperSpec{Command: []string{"rm", "-rf", "--", "/tmp/x"}, Dir: "/tmp", Caps: 7}

	r, err := encodeSpec(spec)
	if err != nil {
		t.Fatalf("encodeSpec: %v", err)
	}
	defer r.Close()

	got, err := decodeSpec(r)
	if err != nil {
		t.Fatalf("decodeSpec: %v", err)
	}
	if len(got.Command) != len(spec.Command) {
		t.Fatalf("command mismatch: got %v, want %v", got.Command, spec.Command)
	}
	for i := range spec.Command {
		if got.Command[i] != spec.Command[i] {
			t.Fatalf("command[%d]: got %q, want %q", i, got.Command[i], spec.Command[i])
		}
	}
	if got.Dir != spec.Dir || got.Caps != spec.Caps {
		t.Fatalf("dir/caps mismatch: got %+v, want %+v", got, spec)
	}
}

func TestTailFileTruncates(t *testing.T) {
	f, err := os.CreateTemp("", "porto-helper-test-*")
	if err != nil {
		t.Fatalf("create temp: %v", err)
	}
	defer os.Remove(f.Name())

	want := strings.Repeat("a", 50) + "TAIL"
	if _, err := f.WriteString(strings.Repeat("x", 200) + want); err != nil {
		t.Fatalf("write: %v", err)
	}
	f.Close()

	got, err := tailFile(f.Name(), len(want))
	if err != nil {
		t.Fatalf("tailFile: %v", err)
	}
	if got != want {
		t.Fatalf("tail mismatch: got %q, want %q", got, want)
	}
}

func TestRunCommandRejectsEmptyCommand(t *testing.T) {
	if err := RunCommand(nil, nil, "/", 0); err == nil {
		t.Fatalf("want error for empty command")
	}
}
