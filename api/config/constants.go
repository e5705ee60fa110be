package config

import "time"

// Application defaults
const (
	envPrefix = "RANGESERVE"

	// Network configuration
	DefaultAddress = "0.0.0.0:8001"
	DefaultRoot    = "."

	// Logging
	DefaultLogLevel = "info"

	// Disk monitoring
	DefaultDiskMonitorInterval = 5 * time.Minute
	DefaultDiskWarningPercent  = 85
	DefaultDiskCriticalPercent = 95
)
