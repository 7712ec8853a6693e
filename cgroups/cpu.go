package cgroups

func init() { registerController("cpu", func() Subsystem { return &cpuSubsystem{} } ) }

type cpuSubsystem struct{}

func (s *cpuSubsystem) Name() string { return "cpu" }

func (s *cpuSubsystem) Apply(leaf *Leaf) error {
	return leaf.Create()
}

// Set writes the cpu.shares/cfs_period_us/cfs_quota_us knobs, mirroring the
// upstream CpuGroup.Set: every key is optional, a missing or empty entry
// leaves that knob at its inherited default.
func (s *cpuSubsystem) Set(leaf *Leaf, cfg map[string]string) error {
	for _, key := range []string{"cpu.shares", "cpu.cfs_period_us", "cpu.cfs_quota_us", "cpu.rt_period_us", "cpu.rt_runtime_us"} {
		if v, ok := cfg[key]; ok && v != "" {
			if err := leaf.WriteFile(key, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *cpuSubsystem) GetStats(leaf *Leaf, stats *Stats) error {
	// cpu.stat's throttling counters aren't part of the supplemented Stats
	// struct (which tracks usage, not throttling); cpuacct below supplies
	// CpuUsage/User/System instead.
	return nil
}

func (s *cpuSubsystem) Remove(leaf *Leaf) error {
	return leaf.Remove()
}
