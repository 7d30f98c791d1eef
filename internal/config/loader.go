// Package config provides configuration loading and management for launcher
// and launcherd.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	AppLauncher  = "launcher"
	AppLauncherd = "launcherd"
)

// configSearchPaths returns the paths to search for config files in order of precedence
// (later paths have higher priority in Viper)
func configSearchPaths(appName string) []string {
	paths := []string{}

	// System-wide (lowest priority)
	paths = append(paths, filepath.Join("/etc", appName))

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", appName))
	}

	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, cwd)
	}

	return paths
}

// UserConfigDir returns the user-specific config directory for the app
func UserConfigDir(appName string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// newViper creates and configures a new Viper instance for the given app.
// Environment variables use the upper-cased app name as prefix, e.g.
// LAUNCHERD_PLATFORMS_RELOAD_CRON.
func newViper(appName string) *viper.Viper {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml") // default, but will auto-detect

	for _, path := range configSearchPaths(appName) {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix(strings.ToUpper(appName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// readConfig reads the config file; a missing file is not an error.
func readConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults + env vars
	}
	return nil
}

// LoadLauncher loads the configuration for the launcher CLI
func LoadLauncher(cfgFile string) (*LauncherConfig, error) {
	v := newViper(AppLauncher)
	setViperDefaults(v, DefaultLauncherConfig())

	if err := readConfig(v, cfgFile); err != nil {
		return nil, err
	}

	var cfg LauncherConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := resolveSecrets(&cfg); err != nil {
		return nil, fmt.Errorf("failed to resolve secrets: %w", err)
	}

	return &cfg, nil
}

// LoadLauncherd loads and validates the configuration for the launcherd daemon
func LoadLauncherd(cfgFile string) (*LauncherdConfig, error) {
	v := newViper(AppLauncherd)
	if err := readConfig(v, cfgFile); err != nil {
		return nil, err
	}
	return unmarshalLauncherd(v)
}

func unmarshalLauncherd(v *viper.Viper) (*LauncherdConfig, error) {
	setViperDefaults(v, DefaultLauncherdConfig())

	var cfg LauncherdConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := resolveSecrets(&cfg); err != nil {
		return nil, fmt.Errorf("failed to resolve secrets: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// setViperDefaults sets default values in Viper from a config struct
func setViperDefaults(v *viper.Viper, cfg interface{}) {
	for key, value := range configValues(cfg) {
		v.SetDefault(key, value)
	}
}

// NewViperFromConfig creates a viper instance populated with values from a config struct
func NewViperFromConfig(cfg interface{}) *viper.Viper {
	v := viper.New()
	for key, value := range configValues(cfg) {
		v.Set(key, value)
	}
	return v
}

// configValues flattens a config struct into viper keys.
func configValues(cfg interface{}) map[string]any {
	values := map[string]any{}
	setLog := func(l LogConfig) {
		values["log.level"] = l.Level
		values["log.format"] = l.Format
		values["log.output"] = l.Output
		values["log.file_path"] = l.FilePath
		values["log.max_size_mb"] = l.MaxSizeMB
		values["log.max_backups"] = l.MaxBackups
		values["log.max_age_days"] = l.MaxAgeDays
		values["log.enable_caller"] = l.EnableCaller
		values["log.no_color"] = l.NoColor
		values["log.audit_path"] = l.AuditPath
		values["log.audit_max_age_days"] = l.AuditMaxAgeDays
		values["log.redact_fields"] = l.RedactFields
	}
	setPlatforms := func(p PlatformsConfig) {
		values["platforms.reload_cron"] = p.ReloadCron
		values["platforms.registry_id"] = p.RegistryID
		values["platforms.fast_mode"] = p.FastMode
		values["platforms.validation_timeout"] = p.ValidationTimeout
		values["platforms.validation_concurrency"] = p.ValidationConcurrency
		values["platforms.java_lts_versions"] = p.JavaLTSVersions
		values["platforms.overrides"] = p.Overrides
		values["platforms.canaries"] = p.Canaries
		values["platforms.refresh_rate_limit"] = p.RefreshRateLimit
	}
	setRegistry := func(r RegistryConfig) {
		values["registry.url"] = r.URL
		values["registry.token"] = r.Token
		values["registry.timeout"] = r.Timeout
		values["registry.max_retries"] = r.MaxRetries
		values["registry.base_delay"] = r.BaseDelay
		values["registry.user_agent"] = r.UserAgent
		values["registry.catalog_file"] = r.CatalogFile
		values["registry.breaker_threshold"] = r.BreakerThreshold
	}

	switch c := cfg.(type) {
	case *LauncherConfig:
		setLog(c.Log)
		values["output.format"] = c.Output.Format
		values["output.color"] = c.Output.Color
		setRegistry(c.Registry)
		setPlatforms(c.Platforms)
	case *LauncherdConfig:
		setLog(c.Log)
		values["server.host"] = c.Server.Host
		values["server.port"] = c.Server.Port
		values["server.tls.enabled"] = c.Server.TLS.Enabled
		values["server.tls.cert_file"] = c.Server.TLS.CertFile
		values["server.tls.key_file"] = c.Server.TLS.KeyFile
		values["server.tls.cert_dir"] = c.Server.TLS.CertDir
		values["server.pid_file"] = c.Server.PIDFile
		values["server.read_timeout"] = c.Server.ReadTimeout
		values["server.write_timeout"] = c.Server.WriteTimeout
		values["server.compress"] = c.Server.Compress
		setPlatforms(c.Platforms)
		setRegistry(c.Registry)
		values["generator.kind"] = c.Generator.Kind
		values["generator.command"] = c.Generator.Command
		values["generator.args"] = c.Generator.Args
		values["presets.use_defaults"] = c.Presets.UseDefaults
		values["presets.custom"] = c.Presets.Custom
		values["metrics.enabled"] = c.Metrics.Enabled
		values["metrics.path"] = c.Metrics.Path
	}
	return values
}

// ConfigFileUsed returns the config file path that was loaded, if any
func ConfigFileUsed(appName string) string {
	v := newViper(appName)
	_ = v.ReadInConfig()
	return v.ConfigFileUsed()
}
