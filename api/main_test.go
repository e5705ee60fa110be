package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/daltay15/rangeserve/api/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmdFlags(t *testing.T) {
	cmd := createRootCmd()

	for _, name := range []string{"server_address", "server_root", "logging_level", "logging_json", "metrics_address", "disk_monitor_interval", "watcher_enabled"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
	assert.Equal(t, "0.0.0.0:8001", cmd.PersistentFlags().Lookup("server_address").DefValue)
}

func TestRootCmdRejectsArgs(t *testing.T) {
	cmd := createRootCmd()
	cmd.SetArgs([]string{"extra"})
	assert.Error(t, cmd.Execute())
}

func TestRunRejectsMissingRoot(t *testing.T) {
	cfg := config.TestConfig(filepath.Join(t.TempDir(), "missing"))

	err := run(context.Background(), cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not a directory")
}

func TestRunRejectsBadAddress(t *testing.T) {
	cfg := config.TestConfig(t.TempDir())
	cfg.Server.Address = "no-port"

	err := run(context.Background(), cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse server address")
}
