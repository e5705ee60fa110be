// main.go
package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"github.com/daltay15/rangeserve/api/config"
	"github.com/daltay15/rangeserve/api/internal"
	httpx "github.com/daltay15/rangeserve/api/internal/http"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func main() {
	if err := createRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func createRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rangeserve",
		Short: "Serve a directory over HTTP with CORS and byte-range support",
		Long: `rangeserve serves a directory tree over HTTP so browser pages hosted
elsewhere can fetch its files, and answers Range requests so audio and
video can be streamed and scrubbed.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
	}

	man := config.NewManager(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg := man.LoadConfig()
		if err := cfg.Validate(); err != nil {
			return err
		}
		return run(cmd.Context(), cfg)
	}
	return cmd
}

func run(ctx context.Context, cfg config.Config) error {
	internal.InitLogger(internal.GetLogLevelFromString(cfg.Logging.Level), cfg.Logging.JSON)

	_, port, err := net.SplitHostPort(cfg.Server.Address)
	if err != nil {
		return errors.Wrap(err, "parse server address")
	}

	root, err := filepath.Abs(cfg.Server.Root)
	if err != nil {
		return errors.Wrap(err, "resolve document root")
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return errors.Errorf("document root %s is not a directory", root)
	}
	cfg.Server.Root = root

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	internal.LogInfo("Configuration: root=%s, address=%s", cfg.Server.Root, cfg.Server.Address)

	metrics := httpx.NewMetrics()

	dm := internal.NewDiskMonitor(cfg.DiskMonitor, root)
	dm.Start(ctx)
	metrics.WatchDisk(dm)

	if cfg.Watcher.Enabled {
		watcher, err := internal.NewMediaWatcher(root, httpx.DefaultMimeResolver())
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		metrics.WatchMedia(ctx, watcher)
	}

	if cfg.Metrics.Address != "" {
		go func() {
			internal.LogInfo("Metrics on http://%s/metrics, health on /health", cfg.Metrics.Address)
			if err := metrics.MetricsServer(cfg.Metrics.Address).ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				internal.LogError("metrics server: %v", err)
			}
		}()
	}

	server := httpx.NewServer(cfg, metrics)
	internal.LogInfo("Serving at http://localhost:%s", port)
	return server.ListenAndServe()
}
