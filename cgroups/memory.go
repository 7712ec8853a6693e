package cgroups

func init() { registerController("memory", func() Subsystem { return &memorySubsystem{} }) }

type memorySubsystem struct{}

func (s *memorySubsystem) Name() string { return "memory" }

func (s *memorySubsystem) Apply(leaf *Leaf) error {
	return leaf.Create()
}

func (s *memorySubsystem) Set(leaf *Leaf, cfg map[string]string) error {
	for _, key := range []string{"memory.limit_in_bytes", "memory.soft_limit_in_bytes", "memory.swappiness"} {
		if v, ok := cfg[key]; ok && v != "" {
			if err := leaf.WriteFile(key, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *memorySubsystem) GetStats(leaf *Leaf, stats *Stats) error {
	if v, err := leaf.ReadFileInt("memory.usage_in_bytes"); err == nil {
		stats.MemoryUsage = v
	}
	if v, err := leaf.ReadFileInt("memory.max_usage_in_bytes"); err == nil {
		stats.MemoryMaxUsage = v
	}
	if v, err := leaf.ReadFileInt("memory.limit_in_bytes"); err == nil {
		stats.MemoryLimit = v
	}
	return nil
}

func (s *memorySubsystem) Remove(leaf *Leaf) error {
	return leaf.Remove()
}
