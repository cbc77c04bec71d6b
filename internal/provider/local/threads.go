package local

import "dictatord/internal/sysinfo"

// ResolveThreads implements the thread-count resolution schedule: 0
// configured means auto-detect from physical core count; any non-zero
// configured value is capped at the number of logical cores.
func ResolveThreads(configured int) int {
	logical := sysinfo.LogicalCores()
	if configured != 0 {
		if configured > logical {
			return logical
		}
		if configured < 1 {
			return 1
		}
		return configured
	}
	return autoThreads(sysinfo.PhysicalCores())
}

// autoThreads implements: <=2 -> all; <=4 -> cores-1; <=8 -> cores-2;
// else -> 8.
func autoThreads(physicalCores int) int {
	switch {
	case physicalCores <= 2:
		return physicalCores
	case physicalCores <= 4:
		return physicalCores - 1
	case physicalCores <= 8:
		return physicalCores - 2
	default:
		return 8
	}
}
