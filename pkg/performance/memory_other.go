//go:build !linux

package performance

// SystemMemory falls back to the process view where sysinfo is missing; the
// host is assumed to have 2 GiB.
func SystemMemory() MemorySnapshot {
	const total = 2048
	used := ReadGoMemory().SysMB
	return MemorySnapshot{TotalMB: total, AvailableMB: total - min(used, total), UsedMB: used}
}
