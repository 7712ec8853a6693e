package cgroups

func init() { registerController("devices", func() Subsystem { return &devicesSubsystem{} }) }

// devicesSubsystem restricts which device nodes a container's processes may
// open; the launcher does not configure it beyond the controller's kernel
// default deny-nothing policy in this revision (no device allowlist is
// part of TaskEnv), but a mounted leaf is still required for the bounding
// set to inherit correctly when capabilities are dropped.
type devicesSubsystem struct{}

func (s *devicesSubsystem) Name() string { return "devices" }

func (s *devicesSubsystem) Apply(leaf *Leaf) error {
	return leaf.Create()
}

func (s *devicesSubsystem) Set(leaf *Leaf, cfg map[string]string) error {
	if v, ok := cfg["devices.deny"]; ok {
		return leaf.WriteFile("devices.deny", v)
	}
	if v, ok := cfg["devices.allow"]; ok {
		return leaf.WriteFile("devices.allow", v)
	}
	return nil
}

func (s *devicesSubsystem) GetStats(leaf *Leaf, stats *Stats) error {
	return nil
}

func (s *devicesSubsystem) Remove(leaf *Leaf) error {
	return leaf.Remove()
}
