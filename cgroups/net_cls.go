package cgroups

func init() { registerController("net_cls", func() Subsystem { return &netClsSubsystem{} }) }

// netClsSubsystem tags every packet a task's threads send with a classid
// the netlink facade's cgroup classifier filter matches against (§4.3
// traffic shaping supplement).
type netClsSubsystem struct{}

func (s *netClsSubsystem) Name() string { return "net_cls" }

func (s *netClsSubsystem) Apply(leaf *Leaf) error {
	return leaf.Create()
}

func (s *netClsSubsystem) Set(leaf *Leaf, cfg map[string]string) error {
	if v, ok := cfg["net_cls.classid"]; ok {
		return leaf.WriteFile("net_cls.classid", v)
	}
	return nil
}

// GetStats has nothing of its own to report; net_cls carries no byte/packet
// counters — those live on the tc class the netlink facade installed, and
// nothing in this module reads them back, so Stats' Tx/Rx fields stay zero.
func (s *netClsSubsystem) GetStats(leaf *Leaf, stats *Stats) error {
	return nil
}

func (s *netClsSubsystem) Remove(leaf *Leaf) error {
	return leaf.Remove()
}
