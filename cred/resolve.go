// Package cred resolves user/group names to numeric ids, applies rlimits,
// and manages the capability sets a task's init process runs with before it
// execs the container command.
package cred

import (
	"fmt"
	"os"

	"github.com/opencontainers/runc/libcontainer/user"

	"github.com/werat/porto/config"
)

// Resolve turns a user spec (name, "uid", or "uid:gid") into a Credential
// plus the supplementary group list initgroups(3) would set, using the
// same passwd/group lookup runc's own init path uses rather than hand
// rolling /etc/passwd parsing.
func Resolve(spec string) (config.Credential, []int, error) {
	if spec == "" {
		return config.Credential{Uid: uint32(os.Getuid()), Gid: uint32(os.Getgid())}, nil, nil
	}

	passwdPath, err := user.GetPasswdPath()
	if err != nil {
		return config.Credential{}, nil, fmt.Errorf("locate passwd db: %w", err)
	}
	groupPath, err := user.GetGroupPath()
	if err != nil {
		return config.Credential{}, nil, fmt.Errorf("locate group db: %w", err)
	}

	passwd, err := os.Open(passwdPath)
	if err != nil {
		return config.Credential{}, nil, fmt.Errorf("open %s: %w", passwdPath, err)
	}
	defer passwd.Close()

	group, err := os.Open(groupPath)
	if err != nil {
		return config.Credential{}, nil, fmt.Errorf("open %s: %w", groupPath, err)
	}
	defer group.Close()

	execUser, err := user.GetExecUser(spec, nil, passwd, group)
	if err != nil {
		return config.Credential{}, nil, fmt.Errorf("resolve user %q: %w", spec, err)
	}

	return config.Credential{
		Uid: uint32(execUser.Uid),
		Gid: uint32(execUser.Gid),
	}, execUser.Sgids, nil
}
