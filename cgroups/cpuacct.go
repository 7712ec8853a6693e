package cgroups

import (
	"strconv"
	"strings"
)

func init() { registerController("cpuacct", func() Subsystem { return &cpuacctSubsystem{} }) }

// cpuacctSubsystem restores the controller the distilled spec's "…" dropped
// from its enumeration (§4.4 supplement): the accounting path needs it for
// cpu_usage data, even though nothing writes configuration to it.
type cpuacctSubsystem struct{}

func (s *cpuacctSubsystem) Name() string { return "cpuacct" }

func (s *cpuacctSubsystem) Apply(leaf *Leaf) error {
	return leaf.Create()
}

func (s *cpuacctSubsystem) Set(leaf *Leaf, cfg map[string]string) error {
	return nil
}

func (s *cpuacctSubsystem) GetStats(leaf *Leaf, stats *Stats) error {
	usage, err := leaf.ReadFileInt("cpuacct.usage")
	if err == nil {
		stats.CpuUsage = usage
	}

	raw, err := leaf.ReadFile("cpuacct.stat")
	if err != nil {
		return nil
	}
	for _, line := range strings.Split(raw, "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		v, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}
		switch fields[0] {
		case "user":
			stats.CpuUserUsage = v
		case "system":
			stats.CpuSystemUsage = v
		}
	}
	return nil
}

func (s *cpuacctSubsystem) Remove(leaf *Leaf) error {
	return leaf.Remove()
}
