package cred

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/werat/porto/config"
)

// DropPrivileges sets gid, supplementary groups, then uid of the calling
// process, in that order — setuid must come last since it is the call that
// gives up the ability to make any of the other two.
func DropPrivileges(c config.Credential, sgids []int) error {
	if err := unix.Setresgid(int(c.Gid), int(c.Gid), int(c.Gid)); err != nil {
		return fmt.Errorf("setgid(%d): %w", c.Gid, err)
	}
	if err := unix.Setgroups(sgids); err != nil {
		return fmt.Errorf("initgroups: %w", err)
	}
	if err := unix.Setresuid(int(c.Uid), int(c.Uid), int(c.Uid)); err != nil {
		return fmt.Errorf("setuid(%d): %w", c.Uid, err)
	}
	return nil
}
