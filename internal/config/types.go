package config

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"launcher/internal/domain"
)

// LogConfig holds logging configuration shared by launcher and launcherd
type LogConfig struct {
	Level           string   `mapstructure:"level"`              // debug, info, warn, error
	Format          string   `mapstructure:"format"`             // text, json, pretty
	Output          string   `mapstructure:"output"`             // stdout, stderr, or file path
	FilePath        string   `mapstructure:"file_path"`          // path to log file (in addition to output)
	MaxSizeMB       int      `mapstructure:"max_size_mb"`        // max size in MB before rotation
	MaxBackups      int      `mapstructure:"max_backups"`        // max number of old log files to keep
	MaxAgeDays      int      `mapstructure:"max_age_days"`       // max days to retain old log files
	EnableCaller    bool     `mapstructure:"enable_caller"`      // include source file/line in logs
	NoColor         bool     `mapstructure:"no_color"`           // disable colored output (pretty format only)
	AuditPath       string   `mapstructure:"audit_path"`         // path to audit log file
	AuditMaxAgeDays int      `mapstructure:"audit_max_age_days"` // max days to retain audit logs
	RedactFields    []string `mapstructure:"redact_fields"`      // field names to redact from logs
}

// OutputConfig holds output formatting options (launcher CLI only)
type OutputConfig struct {
	Format string `mapstructure:"format"` // text, json, yaml, table
	Color  bool   `mapstructure:"color"`
}

// ServerConfig holds the HTTP query surface configuration (launcherd only)
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	TLS          TLSConfig     `mapstructure:"tls"`
	PIDFile      string        `mapstructure:"pid_file"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Compress     bool          `mapstructure:"compress"` // gzip query responses
}

// TLSConfig holds TLS/SSL configuration
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`

	// CertDir receives a self-signed CA and server certificate when TLS is
	// enabled without cert_file and key_file. Defaults to <config dir>/tls.
	CertDir string `mapstructure:"cert_dir"`
}

// Address returns host:port.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PlatformsConfig controls how platform catalogs are reloaded and validated
type PlatformsConfig struct {
	// ReloadCron is a standard cron expression or descriptor ("@every 10m").
	ReloadCron string `mapstructure:"reload_cron"`

	// RegistryID names the registry; the registry URL defaults to https://<id>.
	RegistryID string `mapstructure:"registry_id"`

	// FastMode skips the canary generation probes.
	FastMode bool `mapstructure:"fast_mode"`

	// ValidationTimeout bounds each canary probe.
	ValidationTimeout time.Duration `mapstructure:"validation_timeout"`

	// ValidationConcurrency bounds the number of streams probed at once.
	ValidationConcurrency int `mapstructure:"validation_concurrency"`

	// JavaLTSVersions are the candidate Java versions offered by every stream.
	JavaLTSVersions []int `mapstructure:"java_lts_versions"`

	// Overrides adjust individual platforms.
	Overrides []PlatformOverride `mapstructure:"overrides"`

	// Canaries replace the built-in canary sets when non-empty.
	Canaries []CanaryConfig `mapstructure:"canaries"`

	// RefreshRateLimit is the minimum interval between manual refreshes.
	RefreshRateLimit time.Duration `mapstructure:"refresh_rate_limit"`
}

// PlatformOverride adjusts the streams of one platform
type PlatformOverride struct {
	PlatformKey         string `mapstructure:"platform_key" yaml:"platform_key" json:"platform_key"`
	ExcludeJavaVersions []int  `mapstructure:"exclude_java_versions" yaml:"exclude_java_versions" json:"exclude_java_versions"`
}

// CanaryConfig is a configured validation canary set
type CanaryConfig struct {
	Name              string   `mapstructure:"name" yaml:"name" json:"name"`
	Extensions        []string `mapstructure:"extensions" yaml:"extensions" json:"extensions"`
	RequiresExtension string   `mapstructure:"requires_extension" yaml:"requires_extension,omitempty" json:"requires_extension,omitempty"`
	Fallback          []string `mapstructure:"fallback" yaml:"fallback,omitempty" json:"fallback,omitempty"`
}

// JavaExclusions returns the excluded Java versions keyed by platform key.
func (p PlatformsConfig) JavaExclusions() map[string][]int {
	out := make(map[string][]int, len(p.Overrides))
	for _, o := range p.Overrides {
		out[o.PlatformKey] = append(out[o.PlatformKey], o.ExcludeJavaVersions...)
	}
	return out
}

// RegistryConfig holds registry client configuration
type RegistryConfig struct {
	// URL overrides the registry base URL derived from platforms.registry_id.
	URL string `mapstructure:"url"`

	// Token is sent as a bearer token; can be a secret reference.
	Token string `mapstructure:"token"`

	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
	UserAgent  string        `mapstructure:"user_agent"`

	// CatalogFile serves catalogs from a local YAML/JSON file instead of the
	// registry.
	CatalogFile string `mapstructure:"catalog_file"`

	// BreakerThreshold is the number of consecutive failures that opens the
	// per-host circuit breaker. Zero disables the breaker.
	BreakerThreshold int64 `mapstructure:"breaker_threshold"`
}

// GeneratorConfig selects the project generator used by validation probes
type GeneratorConfig struct {
	Kind    string   `mapstructure:"kind"` // noop or exec
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
}

// PresetsConfig holds the curated extension presets
type PresetsConfig struct {
	UseDefaults bool            `mapstructure:"use_defaults"`
	Custom      []domain.Preset `mapstructure:"custom"`
}

// Presets returns the configured presets, defaults first.
func (p PresetsConfig) Presets() []domain.Preset {
	var out []domain.Preset
	if p.UseDefaults {
		out = append(out, domain.DefaultPresets()...)
	}
	return append(out, p.Custom...)
}

// MetricsConfig holds Prometheus exposition settings
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LauncherConfig is the complete configuration for the launcher CLI
type LauncherConfig struct {
	Log       LogConfig       `mapstructure:"log"`
	Output    OutputConfig    `mapstructure:"output"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Platforms PlatformsConfig `mapstructure:"platforms"`
}

// LauncherdConfig is the complete configuration for the launcherd daemon
type LauncherdConfig struct {
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Platforms PlatformsConfig `mapstructure:"platforms"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Presets   PresetsConfig   `mapstructure:"presets"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// Validate checks values that would otherwise only fail once the daemon runs.
func (c *LauncherdConfig) Validate() error {
	if _, err := cron.ParseStandard(c.Platforms.ReloadCron); err != nil {
		return fmt.Errorf("platforms.reload_cron: %w", err)
	}
	if c.Platforms.RegistryID == "" && c.Registry.URL == "" && c.Registry.CatalogFile == "" {
		return fmt.Errorf("platforms.registry_id, registry.url or registry.catalog_file is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port: invalid port %d", c.Server.Port)
	}
	if c.Server.TLS.Enabled && (c.Server.TLS.CertFile == "") != (c.Server.TLS.KeyFile == "") {
		return fmt.Errorf("server.tls: cert_file and key_file must be set together")
	}
	switch c.Generator.Kind {
	case "", "noop":
	case "exec":
		if c.Generator.Command == "" {
			return fmt.Errorf("generator.command is required for the exec generator")
		}
	default:
		return fmt.Errorf("generator.kind: unknown generator %q", c.Generator.Kind)
	}
	for i, p := range c.Presets.Custom {
		if p.Key == "" || len(p.Extensions) == 0 {
			return fmt.Errorf("presets.custom[%d]: key and extensions are required", i)
		}
	}
	return nil
}

func defaultLogConfig() LogConfig {
	return LogConfig{
		Level:           "info",
		Format:          "text",
		Output:          "stderr",
		FilePath:        "",
		MaxSizeMB:       100,
		MaxBackups:      3,
		MaxAgeDays:      28,
		EnableCaller:    false,
		AuditPath:       "",
		AuditMaxAgeDays: 365,
		RedactFields:    []string{"password", "token", "secret", "credential", "authorization"},
	}
}

func defaultPlatformsConfig() PlatformsConfig {
	return PlatformsConfig{
		ReloadCron:            "@every 10m",
		RegistryID:            "registry.quarkus.io",
		FastMode:              false,
		ValidationTimeout:     30 * time.Second,
		ValidationConcurrency: 4,
		JavaLTSVersions:       []int{17, 21, 25},
		Overrides: []PlatformOverride{
			// the product platform does not support Java 21 yet
			{PlatformKey: "com.redhat.quarkus.platform", ExcludeJavaVersions: []int{21}},
		},
		RefreshRateLimit: time.Minute,
	}
}

func defaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		Timeout:          30 * time.Second,
		MaxRetries:       5,
		BaseDelay:        50 * time.Millisecond,
		UserAgent:        "launcher",
		BreakerThreshold: 5,
	}
}

// DefaultLauncherConfig returns sensible defaults for the launcher CLI
func DefaultLauncherConfig() *LauncherConfig {
	return &LauncherConfig{
		Log: defaultLogConfig(),
		Output: OutputConfig{
			Format: "table",
			Color:  true,
		},
		Registry:  defaultRegistryConfig(),
		Platforms: defaultPlatformsConfig(),
	}
}

// DefaultLauncherdConfig returns sensible defaults for the launcherd daemon
func DefaultLauncherdConfig() *LauncherdConfig {
	log := defaultLogConfig()
	log.Format = "pretty"
	log.Output = "stdout"
	log.EnableCaller = true

	return &LauncherdConfig{
		Log: log,
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			PIDFile:      "",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			Compress:     true,
		},
		Platforms: defaultPlatformsConfig(),
		Registry:  defaultRegistryConfig(),
		Generator: GeneratorConfig{
			Kind: "noop",
		},
		Presets: PresetsConfig{
			UseDefaults: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
