// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Interface is the read side of the configuration plus the few overrides the
// CLI applies from flags.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Artifacts() ArtifactsConfig
	Recovery() RecoveryConfig
	Metrics() MetricsConfig

	SetBrowserEngine(name string)
	SetBrowserHeadless(bool)
	SetScreenshotOnFailure(bool)
}

// Config is built once at start-up and treated as immutable afterwards.
type Config struct {
	logger    LoggerConfig
	browser   BrowserConfig
	artifacts ArtifactsConfig
	recovery  RecoveryConfig
	metrics   MetricsConfig
}

var _ Interface = (*Config)(nil)

func (c *Config) Logger() LoggerConfig       { return c.logger }
func (c *Config) Browser() BrowserConfig     { return c.browser }
func (c *Config) Artifacts() ArtifactsConfig { return c.artifacts }
func (c *Config) Recovery() RecoveryConfig   { return c.recovery }
func (c *Config) Metrics() MetricsConfig     { return c.metrics }

func (c *Config) SetBrowserEngine(name string)  { c.browser.Engine = name }
func (c *Config) SetBrowserHeadless(b bool)     { c.browser.Headless = b }
func (c *Config) SetScreenshotOnFailure(b bool) { c.browser.ScreenshotOnFailure = b }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig names the console color per log level.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds the session keys. They are flat dotted keys rather than
// a section, so they are read individually instead of unmarshalled.
type BrowserConfig struct {
	// Engine is the "browser" key: chrome, firefox or edge.
	Engine                 string
	Headless               bool
	ImplicitWaitSeconds    int
	ExplicitWaitSeconds    int
	PageLoadTimeoutSeconds int
	ScreenshotOnFailure    bool
	// ExecPaths maps an engine name to a browser binary override.
	ExecPaths map[string]string
	// Locale and Timezone pin price and date rendering in chrome sessions.
	Locale   string
	Timezone string
}

func (b BrowserConfig) ImplicitWait() time.Duration {
	return time.Duration(b.ImplicitWaitSeconds) * time.Second
}

func (b BrowserConfig) ExplicitWait() time.Duration {
	return time.Duration(b.ExplicitWaitSeconds) * time.Second
}

func (b BrowserConfig) PageLoadTimeout() time.Duration {
	return time.Duration(b.PageLoadTimeoutSeconds) * time.Second
}

// ArtifactsConfig controls where failure screenshots go.
type ArtifactsConfig struct {
	Dir           string   `mapstructure:"dir" yaml:"dir"`
	RetentionDays int      `mapstructure:"retention_days" yaml:"retention_days"`
	S3            S3Config `mapstructure:"s3" yaml:"s3"`
}

// S3Config enables uploading screenshots to an S3-compatible bucket.
type S3Config struct {
	Enabled         bool   `mapstructure:"enabled" yaml:"enabled"`
	Bucket          string `mapstructure:"bucket" yaml:"bucket"`
	Region          string `mapstructure:"region" yaml:"region"`
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint"`
	Prefix          string `mapstructure:"prefix" yaml:"prefix"`
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`
}

// RecoveryConfig tunes dialog dismissal and process termination.
type RecoveryConfig struct {
	SettleDelay     time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	QuitTimeout     time.Duration `mapstructure:"quit_timeout" yaml:"quit_timeout"`
	DismissAlerts   bool          `mapstructure:"dismiss_alerts" yaml:"dismiss_alerts"`
	DialogSelectors []string      `mapstructure:"dialog_selectors" yaml:"dialog_selectors"`
	// StrictClick disables the scripted click fallback.
	StrictClick bool `mapstructure:"strict_click" yaml:"strict_click"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
}

// NewDefaultConfig returns a configuration built only from defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := NewConfigFromViper(v)
	if err != nil {
		panic(fmt.Sprintf("default configuration is invalid: %v", err))
	}
	return cfg
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	// -- Session keys --
	v.SetDefault("browser", "chrome")
	v.SetDefault("headless", false)
	v.SetDefault("implicit.wait", 10)
	v.SetDefault("explicit.wait", 20)
	v.SetDefault("page.load.timeout", 30)
	v.SetDefault("screenshot.on.failure", true)
	v.SetDefault("persona.locale", "en-US")
	v.SetDefault("persona.timezone", "")

	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "storefront-harness")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Artifacts --
	v.SetDefault("artifacts.dir", "screenshots")
	v.SetDefault("artifacts.retention_days", 7)
	v.SetDefault("artifacts.s3.enabled", false)
	v.SetDefault("artifacts.s3.region", "us-east-1")
	v.SetDefault("artifacts.s3.prefix", "screenshots")

	// -- Recovery --
	v.SetDefault("recovery.settle_delay", "2s")
	v.SetDefault("recovery.quit_timeout", "10s")
	v.SetDefault("recovery.dismiss_alerts", true)
	v.SetDefault("recovery.strict_click", false)

	// -- Metrics --
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9464")
}

// EnvPrefix namespaces environment overrides, e.g. HARNESS_EXPLICIT_WAIT.
const EnvPrefix = "HARNESS"

// BindEnvironment lets environment variables override any key.
func BindEnvironment(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// NewConfigFromViper reads and validates the configuration held by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	cfg.browser = BrowserConfig{
		Engine:                 strings.ToLower(strings.TrimSpace(v.GetString("browser"))),
		Headless:               v.GetBool("headless"),
		ImplicitWaitSeconds:    v.GetInt("implicit.wait"),
		ExplicitWaitSeconds:    v.GetInt("explicit.wait"),
		PageLoadTimeoutSeconds: v.GetInt("page.load.timeout"),
		ScreenshotOnFailure:    v.GetBool("screenshot.on.failure"),
		ExecPaths:              map[string]string{},
		Locale:                 v.GetString("persona.locale"),
		Timezone:               v.GetString("persona.timezone"),
	}
	for _, name := range []string{"chrome", "firefox", "edge"} {
		if p := v.GetString("browsers." + name + ".exec_path"); p != "" {
			cfg.browser.ExecPaths[name] = p
		}
	}

	sections := []struct {
		key    string
		target any
	}{
		{"logger", &cfg.logger},
		{"artifacts", &cfg.artifacts},
		{"recovery", &cfg.recovery},
		{"metrics", &cfg.metrics},
	}
	for _, s := range sections {
		if err := v.UnmarshalKey(s.key, s.target); err != nil {
			return nil, fmt.Errorf("error unmarshaling %s config: %w", s.key, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks for values the harness cannot run with. An unrecognized
// browser name is not an error; the harness falls back to chrome.
func (c *Config) Validate() error {
	var errs []error
	if c.browser.ImplicitWaitSeconds < 0 {
		errs = append(errs, errors.New("implicit.wait must not be negative"))
	}
	if c.browser.ExplicitWaitSeconds <= 0 {
		errs = append(errs, errors.New("explicit.wait must be a positive number of seconds"))
	}
	if c.browser.PageLoadTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("page.load.timeout must be a positive number of seconds"))
	}
	if c.artifacts.RetentionDays < 0 {
		errs = append(errs, errors.New("artifacts.retention_days must not be negative"))
	}
	if c.artifacts.S3.Enabled && c.artifacts.S3.Bucket == "" {
		errs = append(errs, errors.New("artifacts.s3.bucket is required when artifacts.s3.enabled is set"))
	}
	if c.recovery.SettleDelay < 0 {
		errs = append(errs, errors.New("recovery.settle_delay must not be negative"))
	}
	if c.metrics.Enabled && c.metrics.Addr == "" {
		errs = append(errs, errors.New("metrics.addr is required when metrics.enabled is set"))
	}
	return errors.Join(errs...)
}
