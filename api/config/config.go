package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ServerConfig defines where the server listens and what it serves.
type ServerConfig struct {
	Address string
	Root    string
}

type LoggingConfig struct {
	Level string
	JSON  bool
}

// MetricsConfig controls the optional Prometheus listener. An empty address
// disables it.
type MetricsConfig struct {
	Address string
}

// DiskMonitorConfig controls the disk usage check of the document root. A
// zero interval disables it.
type DiskMonitorConfig struct {
	Interval        time.Duration
	WarningPercent  float64
	CriticalPercent float64
}

type WatcherConfig struct {
	Enabled bool
}

// Config is the process-wide configuration. It is built once at startup and
// never mutated afterwards.
type Config struct {
	Server      ServerConfig
	Logging     LoggingConfig
	Metrics     MetricsConfig
	DiskMonitor DiskMonitorConfig
	Watcher     WatcherConfig
}

// Validate checks values that flags and env vars cannot constrain.
func (c Config) Validate() error {
	if c.Server.Address == "" {
		return errors.New("server.address must not be empty")
	}
	if c.Server.Root == "" {
		return errors.New("server.root must not be empty")
	}
	if c.DiskMonitor.Interval < 0 {
		return errors.Errorf("disk_monitor.interval must not be negative, got %s", c.DiskMonitor.Interval)
	}
	if c.DiskMonitor.WarningPercent > c.DiskMonitor.CriticalPercent {
		return errors.Errorf("disk_monitor.warning_percent (%.1f) exceeds disk_monitor.critical_percent (%.1f)",
			c.DiskMonitor.WarningPercent, c.DiskMonitor.CriticalPercent)
	}
	return nil
}

// Manager binds config keys to flags on a cobra command and to environment
// variables, and assembles the Config from them.
type Manager struct {
	viper    *viper.Viper
	command  *cobra.Command
	defaults map[string]interface{}
}

// NewManager attaches all config flags to command. Call it once, on the root
// command.
func NewManager(command *cobra.Command) Manager {
	man := Manager{
		viper:    viper.New(),
		command:  command,
		defaults: map[string]interface{}{},
	}
	man.addConfigs()
	return man
}

func (man Manager) addConfigs() {
	man.addConfigString("server.address", DefaultAddress, "Address to listen on")
	man.addConfigString("server.root", DefaultRoot, "Directory to serve")

	man.addConfigString("logging.level", DefaultLogLevel, "Log level (debug, info, warn, error)")
	man.addConfigBool("logging.json", false, "Log in JSON instead of text")

	man.addConfigString("metrics.address", "", "Address for the Prometheus /metrics listener, empty to disable")

	man.addConfigDuration("disk_monitor.interval", DefaultDiskMonitorInterval, "How often to check disk usage of the served root, 0 to disable")
	man.addConfigFloat("disk_monitor.warning_percent", DefaultDiskWarningPercent, "Disk usage percent that triggers a warning")
	man.addConfigFloat("disk_monitor.critical_percent", DefaultDiskCriticalPercent, "Disk usage percent that triggers a critical alert")

	man.addConfigBool("watcher.enabled", false, "Log media files as they appear under the served root")
}

// LoadConfig returns the config built from flags, env vars and defaults.
func (man Manager) LoadConfig() Config {
	return Config{
		Server: ServerConfig{
			Address: man.getConfigString("server.address"),
			Root:    man.getConfigString("server.root"),
		},
		Logging: LoggingConfig{
			Level: man.getConfigString("logging.level"),
			JSON:  man.getConfigBool("logging.json"),
		},
		Metrics: MetricsConfig{
			Address: man.getConfigString("metrics.address"),
		},
		DiskMonitor: DiskMonitorConfig{
			Interval:        man.getConfigDuration("disk_monitor.interval"),
			WarningPercent:  man.getConfigFloat("disk_monitor.warning_percent"),
			CriticalPercent: man.getConfigFloat("disk_monitor.critical_percent"),
		},
		Watcher: WatcherConfig{
			Enabled: man.getConfigBool("watcher.enabled"),
		},
	}
}

// IsSet reports whether key was set by a flag or env var.
func (man Manager) IsSet(key string) bool {
	return man.viper.IsSet(key)
}

// envNameFromConfigKey converts a config key into the corresponding
// environment variable name
func envNameFromConfigKey(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// flagNameFromConfigKey converts a config key into the corresponding flag name
func flagNameFromConfigKey(key string) string {
	return strings.ReplaceAll(key, ".", "_")
}

func (man Manager) addDefault(key string, defVal interface{}) {
	if _, exists := man.defaults[key]; exists {
		panic("Trying to add duplicate config for key " + key)
	}
	man.defaults[key] = defVal
}

func getFlagUsage(key string, usage string) string {
	return fmt.Sprintf("Env: %s\n\t\t%s", envNameFromConfigKey(key), usage)
}

func (man Manager) bind(key string) {
	_ = man.viper.BindPFlag(key, man.command.PersistentFlags().Lookup(flagNameFromConfigKey(key)))
	_ = man.viper.BindEnv(key, envNameFromConfigKey(key))
}

func (man Manager) getInterfaceVal(key string) interface{} {
	interfaceVal := man.viper.Get(key)
	if interfaceVal == nil {
		var ok bool
		interfaceVal, ok = man.defaults[key]
		if !ok {
			panic("Tried to look up default value for nonexistent config option: " + key)
		}
	}
	return interfaceVal
}

func (man Manager) addConfigString(key, defVal, usage string) {
	man.command.PersistentFlags().String(flagNameFromConfigKey(key), defVal, getFlagUsage(key, usage))
	man.bind(key)
	man.addDefault(key, defVal)
}

func (man Manager) getConfigString(key string) string {
	stringVal, err := cast.ToStringE(man.getInterfaceVal(key))
	if err != nil {
		panic("Unable to cast to string for key " + key + ": " + err.Error())
	}
	return stringVal
}

func (man Manager) addConfigBool(key string, defVal bool, usage string) {
	man.command.PersistentFlags().Bool(flagNameFromConfigKey(key), defVal, getFlagUsage(key, usage))
	man.bind(key)
	man.addDefault(key, defVal)
}

func (man Manager) getConfigBool(key string) bool {
	boolVal, err := cast.ToBoolE(man.getInterfaceVal(key))
	if err != nil {
		panic("Unable to cast to bool for key " + key + ": " + err.Error())
	}
	return boolVal
}

func (man Manager) addConfigDuration(key string, defVal time.Duration, usage string) {
	man.command.PersistentFlags().Duration(flagNameFromConfigKey(key), defVal, getFlagUsage(key, usage))
	man.bind(key)
	man.addDefault(key, defVal)
}

func (man Manager) getConfigDuration(key string) time.Duration {
	durationVal, err := cast.ToDurationE(man.getInterfaceVal(key))
	if err != nil {
		panic("Unable to cast to duration for key " + key + ": " + err.Error())
	}
	return durationVal
}

func (man Manager) addConfigFloat(key string, defVal float64, usage string) {
	man.command.PersistentFlags().Float64(flagNameFromConfigKey(key), defVal, getFlagUsage(key, usage))
	man.bind(key)
	man.addDefault(key, defVal)
}

func (man Manager) getConfigFloat(key string) float64 {
	floatVal, err := cast.ToFloat64E(man.getInterfaceVal(key))
	if err != nil {
		panic("Unable to cast to float for key " + key + ": " + err.Error())
	}
	return floatVal
}

// TestConfig returns a configuration suitable for tests: serves root, no
// side components.
func TestConfig(root string) Config {
	return Config{
		Server:  ServerConfig{Address: "127.0.0.1:0", Root: root},
		Logging: LoggingConfig{Level: "debug"},
		DiskMonitor: DiskMonitorConfig{
			WarningPercent:  DefaultDiskWarningPercent,
			CriticalPercent: DefaultDiskCriticalPercent,
		},
	}
}
