package internal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/daltay15/rangeserve/api/config"
	"github.com/shirou/gopsutil/v3/disk"
)

// DiskUsage is the last reading taken by a DiskMonitor.
type DiskUsage struct {
	Path        string
	Total       uint64
	Free        uint64
	Used        uint64
	UsedPercent float64
	CheckedAt   time.Time
	Err         error
}

// DiskMonitor periodically checks the filesystem holding the served root
type DiskMonitor struct {
	path                 string
	interval             time.Duration
	warningThreshold     float64
	criticalThreshold    float64
	notificationCooldown time.Duration
	usage                func(path string) (*disk.UsageStat, error)

	mu           sync.Mutex
	last         DiskUsage
	lastWarning  time.Time
	lastCritical time.Time
}

// NewDiskMonitor creates a monitor for the filesystem containing path
func NewDiskMonitor(cfg config.DiskMonitorConfig, path string) *DiskMonitor {
	return &DiskMonitor{
		path:                 path,
		interval:             cfg.Interval,
		warningThreshold:     cfg.WarningPercent,
		criticalThreshold:    cfg.CriticalPercent,
		notificationCooldown: 30 * time.Minute, // Prevent spam
		usage:                disk.Usage,
	}
}

// Enabled reports whether Start will run any checks.
func (dm *DiskMonitor) Enabled() bool {
	return dm.interval > 0
}

// Start runs checks until ctx is done.
func (dm *DiskMonitor) Start(ctx context.Context) {
	if !dm.Enabled() {
		LogInfo("Disk monitoring is disabled")
		return
	}

	LogInfo("Starting disk space monitoring of %s (interval: %v)", dm.path, dm.interval)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				LogError("Disk monitoring goroutine panicked: %v", r)
			}
		}()

		ticker := time.NewTicker(dm.interval)
		defer ticker.Stop()

		dm.CheckDiskSpace(time.Now())
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				dm.CheckDiskSpace(now)
			}
		}
	}()
}

// CheckDiskSpace takes one reading and reports threshold crossings.
func (dm *DiskMonitor) CheckDiskSpace(now time.Time) DiskUsage {
	reading := DiskUsage{Path: dm.path, CheckedAt: now}

	info, err := dm.usage(dm.path)
	if err != nil {
		reading.Err = err
		dm.record(reading)
		NotifyError(SeverityError, "disk_monitor", "Failed to get disk usage", map[string]interface{}{
			"path":  dm.path,
			"error": err.Error(),
		})
		return reading
	}

	reading.Total = info.Total
	reading.Free = info.Free
	reading.Used = info.Used
	if info.Total > 0 {
		reading.UsedPercent = float64(info.Used) / float64(info.Total) * 100
	}
	dm.record(reading)

	metadata := map[string]interface{}{
		"path":         dm.path,
		"used_percent": fmt.Sprintf("%.1f%%", reading.UsedPercent),
		"used_gb":      fmt.Sprintf("%.1f GB", float64(info.Used)/(1024*1024*1024)),
		"free_gb":      fmt.Sprintf("%.1f GB", float64(info.Free)/(1024*1024*1024)),
		"total_gb":     fmt.Sprintf("%.1f GB", float64(info.Total)/(1024*1024*1024)),
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()

	if reading.UsedPercent >= dm.criticalThreshold {
		if now.Sub(dm.lastCritical) > dm.notificationCooldown {
			metadata["threshold"] = fmt.Sprintf("%.1f%%", dm.criticalThreshold)
			NotifyCriticalError("disk_monitor", "Disk space critically low", metadata)
			dm.lastCritical = now
		}
	} else if reading.UsedPercent >= dm.warningThreshold {
		if now.Sub(dm.lastWarning) > dm.notificationCooldown {
			metadata["threshold"] = fmt.Sprintf("%.1f%%", dm.warningThreshold)
			NotifyWarning("disk_monitor", "Disk space getting low", metadata)
			dm.lastWarning = now
		}
	}
	return reading
}

func (dm *DiskMonitor) record(u DiskUsage) {
	dm.mu.Lock()
	dm.last = u
	dm.mu.Unlock()
}

// Status returns the last reading; CheckedAt is zero before the first check.
func (dm *DiskMonitor) Status() DiskUsage {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.last
}
