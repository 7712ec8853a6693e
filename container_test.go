package porto

import "testing"

func TestNewContainerStartsStopped(t *testing.T) {
	c := NewContainer("test")
	if c.Status() != Stopped {
		t.Fatalf("got %s, want stopped", c.Status())
	}
	if c.Name() != "test" {
		t.Fatalf("got name %q, want test", c.Name())
	}
}

func TestSetPropertyThenGetProperty(t *testing.T) {
	c := NewContainer("test")
	if err := c.SetProperty("command", "/bin/true"); err != nil {
		t.Fatalf("SetProperty: %v", err)
	}
	got, err := c.GetProperty("command")
	if err != nil {
		t.Fatalf("GetProperty: %v", err)
	}
	if got != "/bin/true" {
		t.Fatalf("got %q, want /bin/true", got)
	}
}

func TestGetPropertyUnsetIsError(t *testing.T) {
	c := NewContainer("test")
	if _, err := c.GetProperty("command"); err == nil {
		t.Fatalf("want error for unset property")
	}
}

func TestSetPropertyRejectedWhenNotStopped(t *testing.T) {
	c := NewContainer("test")
	c.status = Running
	if err := c.SetProperty("command", "/bin/true"); err == nil {
		t.Fatalf("want error setting property on a running container")
	}
}

func TestPauseRejectedWhenNotRunning(t *testing.T) {
	c := NewContainer("test")
	if err := c.Pause(); err == nil {
		t.Fatalf("want error pausing a stopped container")
	}
}

func TestResumeRejectedWhenNotPaused(t *testing.T) {
	c := NewContainer("test")
	if err := c.Resume(); err == nil {
		t.Fatalf("want error resuming a non-paused container")
	}
}

func TestGetDataDefaultsWhenStopped(t *testing.T) {
	c := NewContainer("test")
	for key, want := range map[string]string{
		"state":       "stopped",
		"pid":         "0",
		"exit_status": "0",
		"cpu_usage":   "0",
		"memory_usage": "0",
	} {
		got, err := c.GetData(key)
		if err != nil {
			t.Fatalf("GetData(%q): %v", key, err)
		}
		if got != want {
			t.Fatalf("GetData(%q): got %q, want %q", key, got, want)
		}
	}
}

func TestGetDataUnknownKey(t *testing.T) {
	c := NewContainer("test")
	if _, err := c.GetData("bogus"); err == nil {
		t.Fatalf("want error for unknown data key")
	}
}

func TestBuildTaskEnvRequiresCommand(t *testing.T) {
	if _, err := buildTaskEnv("test", map[string]string{}); err == nil {
		t.Fatalf("want error for container with no command set")
	}
}

func TestBuildTaskEnvDefaultsAndOverrides(t *testing.T) {
	env, err := buildTaskEnv("test", map[string]string{
		"command": "/bin/true",
	})
	if err != nil {
		t.Fatalf("buildTaskEnv: %v", err)
	}
	if env.Cwd != "/" || env.Root != "/" {
		t.Fatalf("got cwd=%q root=%q, want / /", env.Cwd, env.Root)
	}
	if !env.NetCfg.Share {
		t.Fatalf("want NetCfg.Share true when net property is unset")
	}
}

func TestBuildTaskEnvParsesJSONProperties(t *testing.T) {
	env, err := buildTaskEnv("test", map[string]string{
		"command": "/bin/true",
		"net":     "none",
		"net_cfg": `{"Share":false}`,
		"rlimit":  `{"7":{"Soft":1024,"Hard":2048}}`,
		"caps":    "0x3",
	})
	if err != nil {
		t.Fatalf("buildTaskEnv: %v", err)
	}
	if env.NetCfg.Share {
		t.Fatalf("want NetCfg.Share false after explicit net_cfg override")
	}
	if env.Caps != 3 {
		t.Fatalf("got caps %#x, want 0x3", env.Caps)
	}
	if len(env.Rlimit) != 1 {
		t.Fatalf("got %d rlimits, want 1", len(env.Rlimit))
	}
}

func TestBuildTaskEnvRejectsInvalidJSON(t *testing.T) {
	_, err := buildTaskEnv("test", map[string]string{
		"command": "/bin/true",
		"net_cfg": "{not json",
	})
	if err == nil {
		t.Fatalf("want error for malformed net_cfg")
	}
}

func TestOrDefault(t *testing.T) {
	if got := orDefault("", "fallback"); got != "fallback" {
		t.Fatalf("got %q, want fallback", got)
	}
	if got := orDefault("set", "fallback"); got != "set" {
		t.Fatalf("got %q, want set", got)
	}
}
