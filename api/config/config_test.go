package config

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	man := NewManager(&cobra.Command{})
	cfg := man.LoadConfig()

	assert.Equal(t, "0.0.0.0:8001", cfg.Server.Address)
	assert.Equal(t, ".", cfg.Server.Root)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.JSON)
	assert.Empty(t, cfg.Metrics.Address)
	assert.Equal(t, 5*time.Minute, cfg.DiskMonitor.Interval)
	assert.Equal(t, 85.0, cfg.DiskMonitor.WarningPercent)
	assert.Equal(t, 95.0, cfg.DiskMonitor.CriticalPercent)
	assert.False(t, cfg.Watcher.Enabled)
	require.NoError(t, cfg.Validate())
	assert.False(t, man.IsSet("server.root"))
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("RANGESERVE_SERVER_ROOT", "/srv/media")
	t.Setenv("RANGESERVE_DISK_MONITOR_INTERVAL", "30s")
	t.Setenv("RANGESERVE_WATCHER_ENABLED", "true")

	man := NewManager(&cobra.Command{})
	cfg := man.LoadConfig()

	assert.Equal(t, "/srv/media", cfg.Server.Root)
	assert.Equal(t, 30*time.Second, cfg.DiskMonitor.Interval)
	assert.True(t, cfg.Watcher.Enabled)
}

func TestLoadConfigFlagsWinOverEnv(t *testing.T) {
	t.Setenv("RANGESERVE_SERVER_ADDRESS", "127.0.0.1:9000")

	cmd := &cobra.Command{}
	man := NewManager(cmd)
	require.NoError(t, cmd.PersistentFlags().Parse([]string{"--server_address", "127.0.0.1:9100", "--disk_monitor_warning_percent", "70"}))
	cfg := man.LoadConfig()

	assert.Equal(t, "127.0.0.1:9100", cfg.Server.Address)
	assert.Equal(t, 70.0, cfg.DiskMonitor.WarningPercent)
}

func TestValidate(t *testing.T) {
	base := TestConfig(t.TempDir())
	require.NoError(t, base.Validate())

	noRoot := base
	noRoot.Server.Root = ""
	assert.Error(t, noRoot.Validate())

	noAddr := base
	noAddr.Server.Address = ""
	assert.Error(t, noAddr.Validate())

	inverted := base
	inverted.DiskMonitor.WarningPercent = 99
	assert.Error(t, inverted.Validate())

	negative := base
	negative.DiskMonitor.Interval = -time.Second
	assert.Error(t, negative.Validate())
}

func TestDuplicateConfigKeyPanics(t *testing.T) {
	man := NewManager(&cobra.Command{})
	assert.Panics(t, func() { man.addDefault("server.root", "x") })
}

func TestNameConversions(t *testing.T) {
	assert.Equal(t, "RANGESERVE_DISK_MONITOR_INTERVAL", envNameFromConfigKey("disk_monitor.interval"))
	assert.Equal(t, "disk_monitor_interval", flagNameFromConfigKey("disk_monitor.interval"))
}
