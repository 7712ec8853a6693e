// Package config defines the immutable, read-only specification a Task is
// launched from: TaskEnv. It is built from a container's property map
// immediately before Start and never mutated afterward.
package config

// BindMount is one entry of a task's bind_map: source is bound at dest,
// read-only if Rdonly is set.
type BindMount struct {
	Source string
	Dest   string
	Rdonly bool
}

// HostDev moves an existing host interface into the container's network
// namespace verbatim.
type HostDev struct {
	Dev string
}

// VethConfig describes a veth pair: Name lives in the container, Peer stays
// on the host attached to Bridge.
type VethConfig struct {
	Name   string
	Bridge string
	Peer   string
	Hw     string
	Mtu    int
}

// MacvlanConfig describes a macvlan slave of a host interface.
type MacvlanConfig struct {
	Master string
	Name   string
	Type   string // "private", "vepa", "bridge", "passthru"
	Hw     string
	Mtu    int
}

// IpvlanConfig describes an ipvlan slave of a host interface.
type IpvlanConfig struct {
	Master string
	Name   string
	Mode   string // "l2", "l3"
	Mtu    int
}

// NetConfig is the task's network namespace population plan. Share means
// "don't create a network namespace at all, inherit the host's".
type NetConfig struct {
	Share   bool
	Host    []HostDev
	Veth    []VethConfig
	Macvlan []MacvlanConfig
	Ipvlan  []IpvlanConfig
}

// IPConfig is one ip_map entry: the address and prefix length to assign to
// a device inside the container's network namespace.
type IPConfig struct {
	Addr   string
	Prefix int
}

// RlimitConfig is one rlimit entry: soft and hard ceilings for a single
// RLIMIT_* resource.
type RlimitConfig struct {
	Soft uint64
	Hard uint64
}

// Credential is the uid/gid the task's init process drops privileges to.
type Credential struct {
	Uid uint32
	Gid uint32
}

func (c Credential) IsRoot() bool {
	return c.Uid == 0
}

// NamespaceHandle is an optional open handle (bind-mounted /proc/<pid>/ns/*
// file, or a TaskEnv's own namespace set) that another task can be made to
// join instead of creating fresh namespaces.
type NamespaceHandle struct {
	Net   string // path to a netns handle, or ""
	Mount string // path to a mntns handle, or ""
	Pid   string
	Uts   string
	Ipc   string
}

func (h NamespaceHandle) Valid() bool {
	return h.Net != "" || h.Mount != "" || h.Pid != "" || h.Uts != "" || h.Ipc != ""
}

// TaskEnv is the complete, immutable specification handed to the launcher
// for a single Start. Every field here is read-only for the lifetime of the
// launch; building a new TaskEnv is how a container's properties become a
// concrete process.
type TaskEnv struct {
	Command string
	Environ []string
	Cwd     string

	// Root is the host directory that becomes the container's root
	// filesystem. "/" disables chroot/pivot_root entirely.
	Root       string
	RootRdonly bool

	// Loop, if set, is the path to an ext4 image to loop-mount at Root
	// instead of bind-mounting Root onto itself.
	Loop    string
	LoopDev string

	BindMap []BindMount
	NetCfg  NetConfig
	IPMap   map[string]IPConfig
	Gateway string

	Hostname string

	Isolate     bool
	NewMountNs  bool
	BindDNS     bool
	RootRestrSys bool

	// Caps is a 64-bit bitmask of capability indices (bit N == CAP_N) to
	// keep; everything else is dropped from the bounding set.
	Caps uint64

	Rlimit map[int]RlimitConfig

	Cred Credential
	User string

	StdinPath     string
	StdoutPath    string
	StderrPath    string
	RemoveStdout  bool
	RemoveStderr  bool

	ParentNs NamespaceHandle
	ClientNs NamespaceHandle

	CreateCwd bool
}

// HasCap reports whether bit n is set in the kept-capabilities mask.
func (t *TaskEnv) HasCap(n uint) bool {
	if n >= 64 {
		return false
	}
	return t.Caps&(1<<n) != 0
}
