package cgroups

func init() { registerController("blkio", func() Subsystem { return &blkioSubsystem{} }) }

// blkioSubsystem is the other controller restored by the §4.4 supplement;
// task.cpp's accounting path reads its throttle counters alongside memory
// and cpuacct, though TaskEnv has no knobs to configure it with yet.
type blkioSubsystem struct{}

func (s *blkioSubsystem) Name() string { return "blkio" }

func (s *blkioSubsystem) Apply(leaf *Leaf) error {
	return leaf.Create()
}

func (s *blkioSubsystem) Set(leaf *Leaf, cfg map[string]string) error {
	if v, ok := cfg["blkio.weight"]; ok {
		return leaf.WriteFile("blkio.weight", v)
	}
	return nil
}

func (s *blkioSubsystem) GetStats(leaf *Leaf, stats *Stats) error {
	return nil
}

func (s *blkioSubsystem) Remove(leaf *Leaf) error {
	return leaf.Remove()
}
