//go:build linux

package performance

import "syscall"

// SystemMemory reads sysinfo(2). Buffers count as available since the
// kernel reclaims them on demand.
func SystemMemory() MemorySnapshot {
	var info syscall.Sysinfo_t
	if err := syscall.Sysinfo(&info); err != nil {
		return MemorySnapshot{}
	}
	unit := uint64(info.Unit)
	total := uint64(info.Totalram) * unit >> 20
	avail := (uint64(info.Freeram) + uint64(info.Bufferram)) * unit >> 20
	return MemorySnapshot{TotalMB: total, AvailableMB: avail, UsedMB: total - avail}
}
