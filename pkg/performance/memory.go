package performance

import (
	"runtime"

	"github.com/sirupsen/logrus"
)

// MemorySnapshot is the system memory state in MiB.
type MemorySnapshot struct {
	TotalMB     uint64
	AvailableMB uint64
	UsedMB      uint64
}

// GoMemory is the runtime heap state in MiB.
type GoMemory struct {
	AllocMB uint64
	SysMB   uint64
	NumGC   uint32
}

// ReadGoMemory reads runtime heap statistics.
func ReadGoMemory() GoMemory {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return GoMemory{AllocMB: m.Alloc >> 20, SysMB: m.Sys >> 20, NumGC: m.NumGC}
}

// Pressure grades how close the system is to running out of memory.
type Pressure int

const (
	PressureNone Pressure = iota
	PressureLow
	PressureMedium
	PressureHigh
	PressureCritical
)

func (p Pressure) String() string {
	return [...]string{"none", "low", "medium", "high", "critical"}[p]
}

// PressureFor grades an available-memory figure.
func PressureFor(availableMB uint64) Pressure {
	switch {
	case availableMB < 100:
		return PressureCritical
	case availableMB < 200:
		return PressureHigh
	case availableMB < 400:
		return PressureMedium
	case availableMB < 800:
		return PressureLow
	}
	return PressureNone
}

// LogMemory writes one line with system and heap memory at debug level.
func LogMemory(log *logrus.Entry) {
	sys := SystemMemory()
	heap := ReadGoMemory()
	log.WithFields(logrus.Fields{
		"availMB":  sys.AvailableMB,
		"usedMB":   sys.UsedMB,
		"heapMB":   heap.AllocMB,
		"sysMB":    heap.SysMB,
		"gc":       heap.NumGC,
		"pressure": PressureFor(sys.AvailableMB).String(),
	}).Debug("memory")
}
