package hardware

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Info describes the host the daemon runs on
type Info struct {
	CPUModel   string `json:"cpu_model" yaml:"cpu_model"`
	CPUThreads int    `json:"cpu_threads" yaml:"cpu_threads"`
	RAMBytes   uint64 `json:"ram_bytes" yaml:"ram_bytes"`
	OS         string `json:"os" yaml:"os"`
	Arch       string `json:"arch" yaml:"arch"`
}

// DiskInfo describes usage of the filesystem backing a path
type DiskInfo struct {
	Path        string  `json:"path"`
	TotalBytes  uint64  `json:"total_bytes"`
	FreeBytes   uint64  `json:"free_bytes"`
	UsedPercent float64 `json:"used_percent"`
}

// Detect gathers CPU and RAM information for the current host
func Detect() Info {
	info := Info{
		CPUThreads: runtime.NumCPU(),
		CPUModel:   "Unknown",
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
	}
	if counts, err := cpu.Counts(true); err == nil && counts > 0 {
		info.CPUThreads = counts
	}
	if cpuInfo, err := cpu.Info(); err == nil && len(cpuInfo) > 0 {
		info.CPUModel = cpuInfo[0].ModelName
	}
	if vmem, err := mem.VirtualMemory(); err == nil {
		info.RAMBytes = vmem.Total
	}
	return info
}

// DiskUsage reports usage of the filesystem backing path. Never errors:
// an unreadable filesystem yields a zero DiskInfo.
func DiskUsage(path string) DiskInfo {
	usage, err := disk.Usage(path)
	if err != nil {
		return DiskInfo{Path: path}
	}
	return DiskInfo{
		Path:        path,
		TotalBytes:  usage.Total,
		FreeBytes:   usage.Free,
		UsedPercent: usage.UsedPercent,
	}
}

// RecommendConcurrency derives a concurrency bound from the host hardware.
// ffmpeg audio extraction is mostly single-threaded per job, so one slot per
// two CPU threads works well; RAM below 2 GB caps the bound at 1.
func RecommendConcurrency(info Info) int {
	concurrent := info.CPUThreads / 2
	if concurrent < 1 {
		concurrent = 1
	}
	if concurrent > 8 {
		concurrent = 8
	}
	if info.RAMBytes > 0 && info.RAMBytes < 2<<30 {
		concurrent = 1
	}
	return concurrent
}
