// Package config defines analysis configuration options.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// RenderMode defines how the target page markup is obtained.
type RenderMode string

const (
	RenderHTML RenderMode = "html" // Plain HTTP fetch
	RenderJS   RenderMode = "js"   // JavaScript rendering (Chromium)
)

// WaitCondition defines when a rendered page is considered loaded.
type WaitCondition string

const (
	WaitDOMContentLoaded WaitCondition = "domcontentloaded"
	WaitNetworkIdle      WaitCondition = "networkidle"
	WaitSelector         WaitCondition = "selector"
)

// Hard limits applied by Validate.
const (
	MaxFetchTimeout = 15 * time.Second
	MinProbeWorkers = 10
	MaxProbeWorkers = 20
)

// Config is the root configuration for the analysis engine and its callers.
type Config struct {
	Fetch    FetchConfig    `mapstructure:"fetch" yaml:"fetch"`
	Probe    ProbeConfig    `mapstructure:"probe" yaml:"probe"`
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis"`
	Render   RenderConfig   `mapstructure:"render" yaml:"render"`
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
}

// FetchConfig controls the document fetcher.
type FetchConfig struct {
	// Request timeout, never more than MaxFetchTimeout
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// Maximum number of redirects to follow
	MaxRedirects int `mapstructure:"max_redirects" yaml:"max_redirects"`

	// Bodies shorter than this (after trimming) are treated as blocked
	MinBodyLength int `mapstructure:"min_body_length" yaml:"min_body_length"`

	// Maximum response size in bytes
	MaxBodyBytes int64 `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`

	// Browser user agents rotated across requests
	UserAgents []string `mapstructure:"user_agents" yaml:"user_agents"`

	// Extra headers sent with every request
	Headers map[string]string `mapstructure:"headers" yaml:"headers"`

	// Accept-Language header value
	AcceptLanguage string `mapstructure:"accept_language" yaml:"accept_language"`
}

// ProbeConfig controls the link prober.
type ProbeConfig struct {
	Workers          int           `mapstructure:"workers" yaml:"workers"`
	Timeout          time.Duration `mapstructure:"timeout" yaml:"timeout"`
	PerHostRateLimit float64       `mapstructure:"per_host_rate_limit" yaml:"per_host_rate_limit"`
	PerHostBurst     int           `mapstructure:"per_host_burst" yaml:"per_host_burst"`
	MaxLinks         int           `mapstructure:"max_links" yaml:"max_links"`
}

// AnalysisConfig controls analyzer parameters and the overall deadline.
type AnalysisConfig struct {
	// Deadline for a whole analysis run
	Deadline time.Duration `mapstructure:"deadline" yaml:"deadline"`

	// Categories run when a request does not name any
	Categories []string `mapstructure:"categories" yaml:"categories"`

	// Keywords used by keyword density when a request supplies none
	Keywords []string `mapstructure:"keywords" yaml:"keywords"`

	// Interactive element count above which touch targets are considered crowded
	MaxTouchTargets int `mapstructure:"max_touch_targets" yaml:"max_touch_targets"`

	// Number of seed keywords handed to the market data provider
	SeedKeywords int `mapstructure:"seed_keywords" yaml:"seed_keywords"`

	// Budget for the analyzer phase, counted from the end of page loading
	// and link probing so an expired deadline does not fail the analyzers
	AnalyzerTimeout time.Duration `mapstructure:"analyzer_timeout" yaml:"analyzer_timeout"`
}

// RenderConfig controls optional headless Chromium rendering.
type RenderConfig struct {
	Mode          RenderMode    `mapstructure:"mode" yaml:"mode"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	WaitCondition WaitCondition `mapstructure:"wait_condition" yaml:"wait_condition"`
	WaitSelector  string        `mapstructure:"wait_selector" yaml:"wait_selector"`
	ChromiumPath  string        `mapstructure:"chromium_path" yaml:"chromium_path"`
}

// LoggerConfig holds the logger setup.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// StorageConfig points at the optional report history database.
type StorageConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	// Largest accepted analyze request body
	MaxBodyBytes int64 `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`

	// Upper bound for a caller supplied analysis timeout. Defaults to
	// analysis.deadline and never exceeds write_timeout.
	MaxAnalyzeTimeout time.Duration `mapstructure:"max_analyze_timeout" yaml:"max_analyze_timeout"`
}

// DefaultUserAgents is the rotation pool used when none is configured.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1",
}

// SetDefaults registers default values on a viper instance.
func SetDefaults(v *viper.Viper) {
	// -- Fetch --
	v.SetDefault("fetch.timeout", "15s")
	v.SetDefault("fetch.max_redirects", 5)
	v.SetDefault("fetch.min_body_length", 200)
	v.SetDefault("fetch.max_body_bytes", 10*1024*1024)
	v.SetDefault("fetch.user_agents", DefaultUserAgents)
	v.SetDefault("fetch.accept_language", "en-US,en;q=0.9")

	// -- Probe --
	v.SetDefault("probe.workers", 16)
	v.SetDefault("probe.timeout", "5s")
	v.SetDefault("probe.per_host_rate_limit", 10.0)
	v.SetDefault("probe.per_host_burst", 5)
	v.SetDefault("probe.max_links", 500)

	// -- Analysis --
	v.SetDefault("analysis.deadline", "60s")
	v.SetDefault("analysis.categories", []string{})
	v.SetDefault("analysis.keywords", []string{})
	v.SetDefault("analysis.max_touch_targets", 150)
	v.SetDefault("analysis.seed_keywords", 5)
	v.SetDefault("analysis.analyzer_timeout", "10s")

	// -- Render --
	v.SetDefault("render.mode", string(RenderHTML))
	v.SetDefault("render.timeout", "30s")
	v.SetDefault("render.wait_condition", string(WaitDOMContentLoaded))

	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "siteaudit")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Storage --
	v.SetDefault("storage.path", "siteaudit.db")

	// -- Server --
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.max_body_bytes", 1<<20)
}

// Default returns a Config populated with default values.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)

	cfg, err := NewConfigFromViper(v)
	if err != nil {
		panic(fmt.Sprintf("failed to build default config: %v", err))
	}
	return cfg
}

// NewConfigFromViper unmarshals and validates a Config.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate rejects unusable values and clamps the rest into range.
func (c *Config) Validate() error {
	if len(c.Fetch.UserAgents) == 0 {
		return fmt.Errorf("fetch.user_agents must contain at least one entry")
	}
	if c.Fetch.MaxBodyBytes <= 0 {
		return fmt.Errorf("fetch.max_body_bytes must be a positive integer")
	}
	if c.Fetch.MinBodyLength < 0 {
		return fmt.Errorf("fetch.min_body_length must not be negative")
	}
	if c.Probe.PerHostRateLimit < 0 {
		return fmt.Errorf("probe.per_host_rate_limit must not be negative")
	}
	switch c.Render.Mode {
	case RenderHTML, RenderJS:
	case "":
		c.Render.Mode = RenderHTML
	default:
		return fmt.Errorf("render.mode must be %q or %q", RenderHTML, RenderJS)
	}

	if c.Fetch.Timeout <= 0 || c.Fetch.Timeout > MaxFetchTimeout {
		c.Fetch.Timeout = MaxFetchTimeout
	}
	if c.Fetch.MaxRedirects < 0 {
		c.Fetch.MaxRedirects = 0
	}
	if c.Probe.Workers < MinProbeWorkers {
		c.Probe.Workers = MinProbeWorkers
	}
	if c.Probe.Workers > MaxProbeWorkers {
		c.Probe.Workers = MaxProbeWorkers
	}
	if c.Probe.Timeout <= 0 {
		c.Probe.Timeout = 5 * time.Second
	}
	if c.Probe.PerHostBurst < 1 {
		c.Probe.PerHostBurst = 1
	}
	if c.Analysis.Deadline <= 0 {
		c.Analysis.Deadline = 60 * time.Second
	}
	if c.Analysis.MaxTouchTargets <= 0 {
		c.Analysis.MaxTouchTargets = 150
	}
	if c.Analysis.SeedKeywords <= 0 {
		c.Analysis.SeedKeywords = 5
	}
	if c.Analysis.AnalyzerTimeout <= 0 {
		c.Analysis.AnalyzerTimeout = 10 * time.Second
	}
	if c.Render.Timeout < time.Second {
		c.Render.Timeout = time.Second
	}
	if c.Server.MaxBodyBytes <= 0 {
		c.Server.MaxBodyBytes = 1 << 20
	}
	if c.Server.MaxAnalyzeTimeout <= 0 {
		c.Server.MaxAnalyzeTimeout = c.Analysis.Deadline
	}
	if c.Server.WriteTimeout > 0 && c.Server.MaxAnalyzeTimeout > c.Server.WriteTimeout {
		c.Server.MaxAnalyzeTimeout = c.Server.WriteTimeout
	}
	return nil
}
