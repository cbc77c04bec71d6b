// Package sysinfo provides the process/hardware introspection the local
// transcription provider's thread auto-detection and the model
// downloader's disk-space check depend on.
package sysinfo

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
)

// PhysicalCores reports the number of physical CPU cores. Falls back to
// runtime.NumCPU() (logical cores) if the platform query fails; that
// overestimate raises the local provider's auto thread count, which still
// never exceeds the logical core count.
func PhysicalCores() int {
	counts, err := cpu.Counts(false)
	if err != nil || counts <= 0 {
		return runtime.NumCPU()
	}
	return counts
}

// LogicalCores reports the number of logical CPUs (threads), used as the
// upper bound a non-zero configured thread count is capped to.
func LogicalCores() int {
	counts, err := cpu.Counts(true)
	if err != nil || counts <= 0 {
		return runtime.NumCPU()
	}
	return counts
}

// DiskFree reports the number of free bytes available on the filesystem
// containing path.
func DiskFree(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}
