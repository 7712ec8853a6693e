// Package netlink is the facade the launcher drives to populate a
// container's network namespace: host-side link creation (veth, macvlan,
// ipvlan), namespace handoff by pid, in-namespace address/route setup, and
// per-container HTB traffic shaping. All wire-level netlink encoding is
// delegated to github.com/vishvananda/netlink and
// github.com/vishvananda/netns rather than hand-rolled, since a correct
// rtnetlink codec is exactly the kind of external collaborator the core
// launcher is meant to consume rather than reimplement.
package netlink

import (
	"fmt"
	"hash/crc32"
	"os"
)

// GenerateHw derives a deterministic, locally-administered unicast MAC
// address from two seed strings: a link-identifying string (low byte of its
// own CRC, first octet) and the host's hostname (remaining four octets).
// Deterministic across daemon restarts so a recreated link gets the same
// address it had before.
func GenerateHw(linkSeed string) (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("read hostname: %w", err)
	}
	n := crc32.ChecksumIEEE([]byte(linkSeed))
	h := crc32.ChecksumIEEE([]byte(hostname))
	return fmt.Sprintf("02:%02x:%02x:%02x:%02x:%02x",
		byte(n), byte(h>>24), byte(h>>16), byte(h>>8), byte(h)), nil
}
