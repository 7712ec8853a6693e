package cgroups

import "fmt"

func init() { registerController("freezer", func() Subsystem { return &freezerSubsystem{} }) }

// freezerSubsystem backs Container.Pause/Resume (§4.6): FROZEN/THAWED is
// the only knob it has.
type freezerSubsystem struct{}

func (s *freezerSubsystem) Name() string { return "freezer" }

func (s *freezerSubsystem) Apply(leaf *Leaf) error {
	return leaf.Create()
}

func (s *freezerSubsystem) Set(leaf *Leaf, cfg map[string]string) error {
	if v, ok := cfg["freezer.state"]; ok {
		return leaf.WriteFile("freezer.state", v)
	}
	return nil
}

func (s *freezerSubsystem) GetStats(leaf *Leaf, stats *Stats) error {
	return nil
}

func (s *freezerSubsystem) Remove(leaf *Leaf) error {
	return leaf.Remove()
}

// Freeze and Thaw are the two operations Container.Pause/Resume actually
// call; kept here instead of duplicating the "freezer.state" string at
// every call site.
func Freeze(leaf *Leaf) error {
	if err := leaf.WriteFile("freezer.state", "FROZEN"); err != nil {
		return fmt.Errorf("freeze %s: %w", leaf.FullPath(), err)
	}
	return nil
}

func Thaw(leaf *Leaf) error {
	if err := leaf.WriteFile("freezer.state", "THAWED"); err != nil {
		return fmt.Errorf("thaw %s: %w", leaf.FullPath(), err)
	}
	return nil
}

// State reads back the current freezer state.
func State(leaf *Leaf) (string, error) {
	return leaf.ReadFile("freezer.state")
}
