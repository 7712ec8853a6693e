package netlink

import (
	"fmt"
	"os/exec"

	vishnetlink "github.com/vishvananda/netlink"
)

const (
	htbRootHandle   = 0x10000 // tc handle 1:0
	htbDefaultMinor = 0x1
)

// ApplyShaping replaces peer's root qdisc with HTB, adds a single child
// class capped at rateBps (ceil == rate, no burst allowance above the cap),
// and points a cgroup classifier filter at it so traffic tagged with
// classID (a net_cls classid, (major<<16)|minor) lands in that class.
func ApplyShaping(peer string, rateBps uint64, classID uint32) error {
	link, err := vishnetlink.LinkByName(peer)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", peer, err)
	}

	htb := vishnetlink.NewHtb(vishnetlink.QdiscAttrs{
		LinkIndex: link.Attrs().Index,
		Handle:    htbRootHandle,
		Parent:    vishnetlink.HANDLE_ROOT,
	})
	htb.Defcls = htbDefaultMinor
	if err := vishnetlink.QdiscReplace(htb); err != nil {
		return fmt.Errorf("replace root qdisc on %s with htb: %w", peer, err)
	}

	class := vishnetlink.NewHtbClass(vishnetlink.ClassAttrs{
		LinkIndex: link.Attrs().Index,
		Parent:    htbRootHandle,
		Handle:    (htbRootHandle &^ 0xffff) | classID,
	}, vishnetlink.HtbClassAttrs{
		Rate: rateBps,
		Ceil: rateBps,
	})
	if err := vishnetlink.ClassReplace(class); err != nil {
		return fmt.Errorf("add htb class on %s: %w", peer, err)
	}

	// cls_cgroup has no first-class binding in the netlink library; shelled
	// out the same way most runtimes handle this one classifier.
	cmd := exec.Command("tc", "filter", "replace", "dev", peer, "parent",
		fmt.Sprintf("%#x:0", htbRootHandle>>16), "protocol", "ip", "prio", "10", "cgroup")
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("tc filter replace on %s: %w (%s)", peer, err, out)
	}
	return nil
}

// RemoveShaping tears down the HTB qdisc installed by ApplyShaping, letting
// the kernel fall back to its default pfifo_fast.
func RemoveShaping(peer string) error {
	link, err := vishnetlink.LinkByName(peer)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", peer, err)
	}
	qdiscs, err := vishnetlink.QdiscList(link)
	if err != nil {
		return fmt.Errorf("list qdiscs on %s: %w", peer, err)
	}
	for _, q := range qdiscs {
		if _, ok := q.(*vishnetlink.Htb); ok {
			if err := vishnetlink.QdiscDel(q); err != nil {
				return fmt.Errorf("remove htb qdisc on %s: %w", peer, err)
			}
		}
	}
	return nil
}
