package metrics

import (
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemSnapshot is the host-resource picture served by /health.
type SystemSnapshot struct {
	Timestamp     time.Time `json:"timestamp"`
	UptimeSeconds uint64    `json:"uptime_seconds"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	MemoryUsedMB  uint64    `json:"memory_used_mb"`
	MemoryTotalMB uint64    `json:"memory_total_mb"`
	DiskPercent   float64   `json:"disk_percent"`
	DiskFreeGB    float64   `json:"disk_free_gb"`
}

// Snapshot collects current CPU, memory, and disk usage. Individual
// probe failures leave their fields zero; a health check should not
// fail because one gauge could not be read.
func Snapshot() SystemSnapshot {
	snap := SystemSnapshot{Timestamp: time.Now()}

	if uptime, err := host.Uptime(); err == nil {
		snap.UptimeSeconds = uptime
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		snap.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		snap.MemoryPercent = vm.UsedPercent
		snap.MemoryUsedMB = vm.Used / 1024 / 1024
		snap.MemoryTotalMB = vm.Total / 1024 / 1024
	}
	if usage, err := disk.Usage("/"); err == nil {
		snap.DiskPercent = usage.UsedPercent
		snap.DiskFreeGB = float64(usage.Free) / 1024 / 1024 / 1024
	}
	return snap
}
