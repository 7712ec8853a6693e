package mode

import "testing"

func TestParseBindSpec(t *testing.T) {
	source, dest, m, err := ParseBindSpec("/host/data:/data:ro")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source != "/host/data" || dest != "/data" {
		t.Fatalf("got source=%q dest=%q", source, dest)
	}
	if !m.Rdonly() {
		t.Fatal("expected read-only mode")
	}
}

func TestParseBindSpecDefaultsReadWrite(t *testing.T) {
	_, _, m, err := ParseBindSpec("/host/data:/data")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Rdonly() {
		t.Fatal("expected read-write default")
	}
}

func TestParseBindSpecInvalid(t *testing.T) {
	cases := []string{"nope", "/a:/b:/c:extra", "/a:/b:bogus"}
	for _, spec := range cases {
		if _, _, _, err := ParseBindSpec(spec); err == nil {
			t.Fatalf("expected error for %q", spec)
		}
	}
}
