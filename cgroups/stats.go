package cgroups

// Stats is a point-in-time resource accounting snapshot for one container,
// assembled by calling GetStats on every subsystem the container has a leaf
// in. Fields absent on the host's kernel/controller set are left zero.
type Stats struct {
	MemoryUsage    uint64
	MemoryMaxUsage uint64
	MemoryLimit    uint64

	CpuUsage       uint64
	CpuUserUsage   uint64
	CpuSystemUsage uint64

	TxBytes   uint64
	TxPackets uint64
	RxBytes   uint64
	RxPackets uint64
}
