package porto

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/werat/porto/cgroups"
	"github.com/werat/porto/config"
	"github.com/werat/porto/task"
)

// subsystemsUsed is the fixed set of controllers every container gets a
// leaf in, mirroring the registry in §2 item 4 / §4.4: memory and freezer
// back GetData's memory_usage and Pause/Resume directly, the rest feed
// Stats.
var subsystemsUsed = []string{"memory", "freezer", "cpu", "cpuacct", "net_cls", "devices", "blkio"}

// Container is the state machine described by §3/§4.6: Stopped -> Running
// -> Paused -> Running -> Stopped, plus the terminal Destroying. It owns
// at most one live Task and a property bag the next Start builds a
// TaskEnv from.
type Container struct {
	mu sync.Mutex

	name       string
	status     Status
	properties map[string]string

	tk     *task.Task
	leaves map[string]*cgroups.Leaf
}

// NewContainer creates a container in Stopped with no properties set.
func NewContainer(name string) *Container {
	return &Container{
		name:       name,
		status:     Stopped,
		properties: make(map[string]string),
	}
}

func (c *Container) Name() string { return c.name }

func (c *Container) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// GetProperty reads a container spec input. Legal in any state.
func (c *Container) GetProperty(key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.properties[key]
	if !ok {
		return "", NewError(KindNotFound, 0, fmt.Sprintf("property %q not set", key))
	}
	return v, nil
}

// SetProperty writes a container spec input. Rejected unless the
// container is Stopped — a running task's TaskEnv is frozen.
func (c *Container) SetProperty(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != Stopped {
		return NewError(KindInvalidValue, 0, fmt.Sprintf("cannot set %q: container is %s, not stopped", key, c.status))
	}
	c.properties[key] = value
	return nil
}

// Start builds a TaskEnv from the container's current properties, creates
// its leaf cgroups, and hands both to the launcher via a fresh Task.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != Stopped {
		return NewError(KindInvalidValue, 0, fmt.Sprintf("cannot start: container is %s, not stopped", c.status))
	}

	env, err := buildTaskEnv(c.name, c.properties)
	if err != nil {
		return WrapError(KindInvalidValue, err, "build task environment")
	}

	leaves, err := c.createLeaves()
	if err != nil {
		return WrapError(KindResourceNotAvailable, err, "create leaf cgroups")
	}

	tk := task.New(env, leaves)
	if err := tk.Start(ctx); err != nil {
		c.removeLeaves(leaves)
		return err
	}

	c.tk = tk
	c.leaves = leaves
	c.status = Running
	return nil
}

// Stop sends SIGTERM, waits up to grace for the task to exit, escalates
// to SIGKILL, then tears down the container's leaf cgroups.
func (c *Container) Stop(ctx context.Context, grace time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != Running && c.status != Paused {
		return nil // absence of the process is success
	}

	if err := c.tk.Kill(unix.SIGTERM); err != nil {
		return err
	}

	exited := make(chan struct{})
	go func() {
		waitPid(c.tk.Pid())
		close(exited)
	}()

	select {
	case <-exited:
	case <-time.After(grace):
		c.tk.Kill(unix.SIGKILL)
		waitPid(c.tk.Pid())
	case <-ctx.Done():
		c.tk.Kill(unix.SIGKILL)
		waitPid(c.tk.Pid())
	}

	c.tk.Reap(0)
	c.removeLeaves(c.leaves)
	c.leaves = nil
	c.status = Stopped
	return nil
}

// Pause freezes the container's process tree via the freezer cgroup.
func (c *Container) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != Running {
		return NewError(KindInvalidValue, 0, fmt.Sprintf("cannot pause: container is %s, not running", c.status))
	}
	leaf, ok := c.leaves["freezer"]
	if !ok {
		return NewError(KindResourceNotAvailable, 0, "freezer controller not mounted")
	}
	if err := cgroups.Freeze(leaf); err != nil {
		return WrapError(KindUnknown, err, "pause")
	}
	c.status = Paused
	return nil
}

// Resume is Pause's inverse.
func (c *Container) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != Paused {
		return NewError(KindInvalidValue, 0, fmt.Sprintf("cannot resume: container is %s, not paused", c.status))
	}
	leaf, ok := c.leaves["freezer"]
	if !ok {
		return NewError(KindResourceNotAvailable, 0, "freezer controller not mounted")
	}
	if err := cgroups.Thaw(leaf); err != nil {
		return WrapError(KindUnknown, err, "resume")
	}
	c.status = Running
	return nil
}

// GetData returns read-only derived data, legal in any state. When
// Stopped, pid, exit_status, cpu_usage and memory_usage read "0"; state
// reads the status name and stdout/stderr the configured paths.
func (c *Container) GetData(key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch key {
	case "state":
		return c.status.String(), nil
	case "pid":
		if c.tk == nil {
			return "0", nil
		}
		return strconv.Itoa(c.tk.Pid()), nil
	case "exit_status":
		if c.tk == nil {
			return "0", nil
		}
		return strconv.Itoa(c.tk.ExitStatus()), nil
	case "stdout":
		return c.properties["stdout_path"], nil
	case "stderr":
		return c.properties["stderr_path"], nil
	case "cpu_usage":
		return c.readStat(func(s *cgroups.Stats) uint64 { return s.CpuUsage })
	case "memory_usage":
		return c.readStat(func(s *cgroups.Stats) uint64 { return s.MemoryUsage })
	default:
		return "", NewError(KindInvalidValue, 0, fmt.Sprintf("unknown data key %q", key))
	}
}

func (c *Container) readStat(pick func(*cgroups.Stats) uint64) (string, error) {
	if c.status == Stopped || c.leaves == nil {
		return "0", nil
	}
	var stats cgroups.Stats
	for name, leaf := range c.leaves {
		sub, err := cgroups.Get(name)
		if err != nil {
			continue
		}
		sub.GetStats(leaf, &stats)
	}
	return strconv.FormatUint(pick(&stats), 10), nil
}

func (c *Container) createLeaves() (map[string]*cgroups.Leaf, error) {
	leaves := make(map[string]*cgroups.Leaf)
	relPath := "porto/" + c.name
	for _, name := range subsystemsUsed {
		leaf, err := cgroups.NewLeaf(name, relPath)
		if err != nil {
			continue // controller not mounted on this host; skip it
		}
		sub, err := cgroups.Get(name)
		if err != nil {
			continue
		}
		if err := sub.Apply(leaf); err != nil {
			c.removeLeaves(leaves)
			return nil, fmt.Errorf("apply %s leaf: %w", name, err)
		}
		leaves[name] = leaf
	}
	return leaves, nil
}

func (c *Container) removeLeaves(leaves map[string]*cgroups.Leaf) {
	for name, leaf := range leaves {
		sub, err := cgroups.Get(name)
		if err != nil {
			leaf.Remove()
			continue
		}
		sub.Remove(leaf)
	}
}

func waitPid(pid int) {
	if pid <= 0 {
		return
	}
	var ws unix.WaitStatus
	unix.Wait4(pid, &ws, 0, nil)
}

// buildTaskEnv translates a container's property bag into the frozen
// TaskEnv the launcher consumes. Recognized keys mirror §3's TaskEnv
// field list; anything unset takes the field's zero value.
func buildTaskEnv(name string, props map[string]string) (*config.TaskEnv, error) {
	env := &config.TaskEnv{
		Command:    props["command"],
		Cwd:        orDefault(props["cwd"], "/"),
		Root:       orDefault(props["root"], "/"),
		RootRdonly: props["root_rdonly"] == "true",
		Hostname:   props["hostname"],
		Isolate:    props["isolate"] == "true",
		NewMountNs: props["new_mount_ns"] == "true",
		BindDNS:    props["bind_dns"] == "true",
		User:       props["user"],
		StdinPath:  props["stdin_path"],
		StdoutPath: props["stdout_path"],
		StderrPath: props["stderr_path"],
		CreateCwd:  props["create_cwd"] == "true",
	}
	if env.Command == "" {
		return nil, fmt.Errorf("container %q has no command set", name)
	}
	env.NetCfg.Share = props["net"] == "" || props["net"] == "none" || props["net"] == "host"

	if raw := props["net_cfg"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &env.NetCfg); err != nil {
			return nil, fmt.Errorf("parse net_cfg: %w", err)
		}
	}
	if raw := props["ip_map"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &env.IPMap); err != nil {
			return nil, fmt.Errorf("parse ip_map: %w", err)
		}
	}
	env.Gateway = props["default_gw"]

	if raw := props["bind_map"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &env.BindMap); err != nil {
			return nil, fmt.Errorf("parse bind_map: %w", err)
		}
	}
	if raw := props["rlimit"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &env.Rlimit); err != nil {
			return nil, fmt.Errorf("parse rlimit: %w", err)
		}
	}
	if raw := props["caps"]; raw != "" {
		caps, err := strconv.ParseUint(raw, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("parse caps: %w", err)
		}
		env.Caps = caps
	}
	if raw := props["loop"]; raw != "" {
		env.Loop = raw
	}

	return env, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
