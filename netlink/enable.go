package netlink

import (
	"fmt"
	"net"

	vishnetlink "github.com/vishvananda/netlink"

	"github.com/werat/porto/config"
)

// EnableNet runs inside the grandchild's own network namespace, after
// IsolateNet has handed every configured link over: it brings every link
// up, applies the ip_map addresses, and elects a default gateway candidate.
func EnableNet(cfg config.NetConfig, ipMap map[string]config.IPConfig, gateway string) error {
	if cfg.Share {
		return nil
	}

	links, err := vishnetlink.LinkList()
	if err != nil {
		return fmt.Errorf("list links: %w", err)
	}

	var gwCandidate vishnetlink.Link
	for _, link := range links {
		if link.Attrs().Name == "lo" {
			if err := vishnetlink.LinkSetUp(link); err != nil {
				return fmt.Errorf("bring up lo: %w", err)
			}
			continue
		}
		if err := vishnetlink.LinkSetUp(link); err != nil {
			return fmt.Errorf("bring up %s: %w", link.Attrs().Name, err)
		}

		if ipCfg, ok := ipMap[link.Attrs().Name]; ok {
			addr := &vishnetlink.Addr{IPNet: &net.IPNet{
				IP:   net.ParseIP(ipCfg.Addr),
				Mask: net.CIDRMask(ipCfg.Prefix, 32),
			}}
			if err := vishnetlink.AddrAdd(link, addr); err != nil {
				return fmt.Errorf("assign %s/%d to %s: %w", ipCfg.Addr, ipCfg.Prefix, link.Attrs().Name, err)
			}
		}

		if gwCandidate == nil && hasQueue(link) {
			gwCandidate = link
		}
	}

	if gateway != "" && gwCandidate != nil {
		route := &vishnetlink.Route{
			LinkIndex: gwCandidate.Attrs().Index,
			Gw:        net.ParseIP(gateway),
		}
		if err := vishnetlink.RouteAdd(route); err != nil {
			return fmt.Errorf("add default route via %s: %w", gateway, err)
		}
	}

	return nil
}

// hasQueue reports whether a link is an eligible default-gateway candidate:
// it has a transmit queue, which loopback and most virtual stub links do
// not.
func hasQueue(link vishnetlink.Link) bool {
	return link.Attrs().TxQLen > 0
}
