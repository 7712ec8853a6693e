package netlink

import (
	"fmt"
	"net"

	vishnetlink "github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"

	"github.com/werat/porto/config"
)

// IsolateNet runs in the host namespace, before the target pid's own
// network-namespace-visible code is unblocked: it creates every link the
// task's net_cfg describes and hands each one to pid by moving it into
// pid's netns. Any transient link created along the way is torn down if a
// later step fails.
func IsolateNet(pid int, cfg config.NetConfig) error {
	if cfg.Share {
		return nil
	}

	targetNs, err := netns.GetFromPid(pid)
	if err != nil {
		return fmt.Errorf("open netns of pid %d: %w", pid, err)
	}
	defer targetNs.Close()

	for _, host := range cfg.Host {
		if err := moveLink(host.Dev, targetNs); err != nil {
			return fmt.Errorf("move host device %s: %w", host.Dev, err)
		}
	}

	for _, iv := range cfg.Ipvlan {
		transient := fmt.Sprintf("piv%d", pid)
		if err := createIpvlan(transient, iv, targetNs); err != nil {
			return fmt.Errorf("create ipvlan %s: %w", iv.Name, err)
		}
	}

	for _, mv := range cfg.Macvlan {
		transient := fmt.Sprintf("pmv%d", pid)
		if err := createMacvlan(transient, mv, targetNs); err != nil {
			return fmt.Errorf("create macvlan %s: %w", mv.Name, err)
		}
	}

	for _, v := range cfg.Veth {
		if err := createVeth(v, targetNs); err != nil {
			return fmt.Errorf("create veth %s: %w", v.Name, err)
		}
	}

	return nil
}

func moveLink(name string, targetNs netns.NsHandle) error {
	link, err := vishnetlink.LinkByName(name)
	if err != nil {
		return err
	}
	return vishnetlink.LinkSetNsFd(link, int(targetNs))
}

func createIpvlan(transient string, cfg config.IpvlanConfig, targetNs netns.NsHandle) error {
	master, err := vishnetlink.LinkByName(cfg.Master)
	if err != nil {
		return err
	}
	mode, err := ipvlanMode(cfg.Mode)
	if err != nil {
		return err
	}
	attrs := vishnetlink.NewLinkAttrs()
	attrs.Name = transient
	attrs.ParentIndex = master.Attrs().Index
	if cfg.Mtu != 0 {
		attrs.MTU = cfg.Mtu
	}
	link := &vishnetlink.IPVlan{LinkAttrs: attrs, Mode: mode}

	if err := vishnetlink.LinkAdd(link); err != nil {
		return err
	}
	created, err := vishnetlink.LinkByName(transient)
	if err != nil {
		vishnetlink.LinkDel(link)
		return err
	}
	if err := vishnetlink.LinkSetName(created, cfg.Name); err != nil {
		vishnetlink.LinkDel(created)
		return fmt.Errorf("rename %s to %s: %w", transient, cfg.Name, err)
	}
	if err := vishnetlink.LinkSetNsFd(created, int(targetNs)); err != nil {
		vishnetlink.LinkDel(created)
		return err
	}
	return nil
}

func ipvlanMode(mode string) (vishnetlink.IPVlanMode, error) {
	switch mode {
	case "l2", "":
		return vishnetlink.IPVLAN_MODE_L2, nil
	case "l3":
		return vishnetlink.IPVLAN_MODE_L3, nil
	default:
		return 0, fmt.Errorf("unknown ipvlan mode %q", mode)
	}
}

func createMacvlan(transient string, cfg config.MacvlanConfig, targetNs netns.NsHandle) error {
	master, err := vishnetlink.LinkByName(cfg.Master)
	if err != nil {
		return err
	}
	mvMode, err := macvlanMode(cfg.Type)
	if err != nil {
		return err
	}

	hw := cfg.Hw
	if hw == "" {
		hw, err = GenerateHw(cfg.Master + cfg.Name)
		if err != nil {
			return err
		}
	}
	mac, err := net.ParseMAC(hw)
	if err != nil {
		return fmt.Errorf("parse hw addr %q: %w", hw, err)
	}

	attrs := vishnetlink.NewLinkAttrs()
	attrs.Name = transient
	attrs.ParentIndex = master.Attrs().Index
	attrs.HardwareAddr = mac
	if cfg.Mtu != 0 {
		attrs.MTU = cfg.Mtu
	}
	link := &vishnetlink.Macvlan{LinkAttrs: attrs, Mode: mvMode}

	if err := vishnetlink.LinkAdd(link); err != nil {
		return err
	}
	created, err := vishnetlink.LinkByName(transient)
	if err != nil {
		vishnetlink.LinkDel(link)
		return err
	}
	if err := vishnetlink.LinkSetName(created, cfg.Name); err != nil {
		vishnetlink.LinkDel(created)
		return fmt.Errorf("rename %s to %s: %w", transient, cfg.Name, err)
	}
	if err := vishnetlink.LinkSetNsFd(created, int(targetNs)); err != nil {
		vishnetlink.LinkDel(created)
		return err
	}
	return nil
}

func macvlanMode(t string) (vishnetlink.MacvlanMode, error) {
	switch t {
	case "private":
		return vishnetlink.MACVLAN_MODE_PRIVATE, nil
	case "vepa", "":
		return vishnetlink.MACVLAN_MODE_VEPA, nil
	case "bridge":
		return vishnetlink.MACVLAN_MODE_BRIDGE, nil
	case "passthru":
		return vishnetlink.MACVLAN_MODE_PASSTHRU, nil
	default:
		return 0, fmt.Errorf("unknown macvlan type %q", t)
	}
}

func createVeth(cfg config.VethConfig, targetNs netns.NsHandle) error {
	bridge, err := vishnetlink.LinkByName(cfg.Bridge)
	if err != nil {
		return fmt.Errorf("lookup bridge %s: %w", cfg.Bridge, err)
	}

	hw := cfg.Hw
	if hw == "" {
		hw, err = GenerateHw(cfg.Name + cfg.Peer)
		if err != nil {
			return err
		}
	}
	mac, err := net.ParseMAC(hw)
	if err != nil {
		return fmt.Errorf("parse hw addr %q: %w", hw, err)
	}

	attrs := vishnetlink.NewLinkAttrs()
	attrs.Name = cfg.Name
	attrs.HardwareAddr = mac
	if cfg.Mtu != 0 {
		attrs.MTU = cfg.Mtu
	}
	veth := &vishnetlink.Veth{LinkAttrs: attrs, PeerName: cfg.Peer}

	if err := vishnetlink.LinkAdd(veth); err != nil {
		return err
	}

	peer, err := vishnetlink.LinkByName(cfg.Peer)
	if err != nil {
		vishnetlink.LinkDel(veth)
		return err
	}
	if err := vishnetlink.LinkSetMaster(peer, bridge.(*vishnetlink.Bridge)); err != nil {
		vishnetlink.LinkDel(veth)
		return fmt.Errorf("attach %s to bridge %s: %w", cfg.Peer, cfg.Bridge, err)
	}
	if err := vishnetlink.LinkSetUp(peer); err != nil {
		vishnetlink.LinkDel(veth)
		return err
	}

	inside, err := vishnetlink.LinkByName(cfg.Name)
	if err != nil {
		vishnetlink.LinkDel(veth)
		return err
	}
	if err := vishnetlink.LinkSetNsFd(inside, int(targetNs)); err != nil {
		vishnetlink.LinkDel(veth)
		return err
	}
	return nil
}
