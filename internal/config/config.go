// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Interaction() InteractionConfig
	Gather() GatherConfig
	Retry() RetryConfig
	Selector() SelectorConfig
	Pages() PagesConfig

	// Browser Setters
	SetBrowserHeadless(bool)
	SetBrowserExecPath(string)

	// Interaction Setters
	SetInteractionWaitAfter(time.Duration)
	SetInteractionShowActionText(bool)
}

// Config holds the entire application configuration. Sections are exported
// so viper can populate them; callers should prefer the getters.
type Config struct {
	LoggerCfg      LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	BrowserCfg     BrowserConfig     `mapstructure:"browser" yaml:"browser"`
	InteractionCfg InteractionConfig `mapstructure:"interaction" yaml:"interaction"`
	GatherCfg      GatherConfig      `mapstructure:"gather" yaml:"gather"`
	RetryCfg       RetryConfig       `mapstructure:"retry" yaml:"retry"`
	SelectorCfg    SelectorConfig    `mapstructure:"selector" yaml:"selector"`
	PagesCfg       PagesConfig       `mapstructure:"pages" yaml:"pages"`
}

var _ Interface = (*Config)(nil)

func (c *Config) Logger() LoggerConfig           { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig         { return c.BrowserCfg }
func (c *Config) Interaction() InteractionConfig { return c.InteractionCfg }
func (c *Config) Gather() GatherConfig           { return c.GatherCfg }
func (c *Config) Retry() RetryConfig             { return c.RetryCfg }
func (c *Config) Selector() SelectorConfig       { return c.SelectorCfg }
func (c *Config) Pages() PagesConfig             { return c.PagesCfg }

// -- Browser Setters --
func (c *Config) SetBrowserHeadless(b bool)       { c.BrowserCfg.Headless = b }
func (c *Config) SetBrowserExecPath(path string) { c.BrowserCfg.ExecPath = path }

// -- Interaction Setters --
func (c *Config) SetInteractionWaitAfter(d time.Duration) { c.InteractionCfg.WaitAfter = d }
func (c *Config) SetInteractionShowActionText(b bool)     { c.InteractionCfg.ShowActionText = b }

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

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the chromedp driven browser.
type BrowserConfig struct {
	Headless          bool           `mapstructure:"headless" yaml:"headless"`
	ExecPath          string         `mapstructure:"exec_path" yaml:"exec_path"`
	DisableCache      bool           `mapstructure:"disable_cache" yaml:"disable_cache"`
	IgnoreTLSErrors   bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Concurrency       int            `mapstructure:"concurrency" yaml:"concurrency"`
	Debug             bool           `mapstructure:"debug" yaml:"debug"`
	Args              []string       `mapstructure:"args" yaml:"args"`
	Viewport          map[string]int `mapstructure:"viewport" yaml:"viewport"`
	NavigationTimeout time.Duration  `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
}

// InteractionConfig tunes the shared interaction protocol.
type InteractionConfig struct {
	// WaitAfter is the pause after every interaction callback.
	WaitAfter time.Duration `mapstructure:"wait_after" yaml:"wait_after"`
	// ShowActionText toggles the on-page overlay describing the current step.
	ShowActionText bool   `mapstructure:"show_action_text" yaml:"show_action_text"`
	Highlight      bool   `mapstructure:"highlight" yaml:"highlight"`
	ScreenshotDir  string `mapstructure:"screenshot_dir" yaml:"screenshot_dir"`
	DownloadDir    string `mapstructure:"download_dir" yaml:"download_dir"`
}

// GatherConfig controls how long and how often element waits poll.
type GatherConfig struct {
	DefaultTimeout time.Duration `mapstructure:"default_timeout" yaml:"default_timeout"`
	PollInterval   time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	PollBurst      int           `mapstructure:"poll_burst" yaml:"poll_burst"`
}

// RetryConfig is the default retry policy for retried assertions and actions.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	Interval    time.Duration `mapstructure:"interval" yaml:"interval"`
	// Deadline is the wall-clock ceiling for any retried step.
	Deadline time.Duration `mapstructure:"deadline" yaml:"deadline"`
}

// SelectorConfig tunes selector resolution.
type SelectorConfig struct {
	CacheSize int `mapstructure:"cache_size" yaml:"cache_size"`
}

// PagesConfig lists page element map sources.
type PagesConfig struct {
	Dir   string   `mapstructure:"dir" yaml:"dir"`
	Files []string `mapstructure:"files" yaml:"files"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "crow")
	v.SetDefault("logger.log_file", "crow.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.disable_cache", false)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.concurrency", 4)
	v.SetDefault("browser.debug", false)
	v.SetDefault("browser.viewport", map[string]int{"width": 1920, "height": 1080})
	v.SetDefault("browser.navigation_timeout", "60s")

	// -- Interaction --
	v.SetDefault("interaction.wait_after", "50ms")
	v.SetDefault("interaction.show_action_text", true)
	v.SetDefault("interaction.highlight", true)
	v.SetDefault("interaction.screenshot_dir", "screenshots")
	v.SetDefault("interaction.download_dir", "downloads")

	// -- Gather --
	v.SetDefault("gather.default_timeout", "10s")
	v.SetDefault("gather.poll_interval", "100ms")
	v.SetDefault("gather.poll_burst", 1)

	// -- Retry --
	v.SetDefault("retry.max_attempts", 5)
	v.SetDefault("retry.interval", "200ms")
	v.SetDefault("retry.deadline", "58s")

	// -- Selector --
	v.SetDefault("selector.cache_size", 1024)

	// -- Pages --
	v.SetDefault("pages.dir", "")
	v.SetDefault("pages.files", []string{})
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// The browser binary is commonly provided by CI images under its own name.
	_ = v.BindEnv("browser.exec_path", "CROW_BROWSER_EXEC_PATH", "CHROME_BIN")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.BrowserCfg.Concurrency <= 0 {
		return fmt.Errorf("browser.concurrency must be a positive integer")
	}
	if c.InteractionCfg.WaitAfter < 0 {
		return fmt.Errorf("interaction.wait_after must not be negative")
	}
	if err := c.GatherCfg.Validate(); err != nil {
		return fmt.Errorf("gather configuration invalid: %w", err)
	}
	if err := c.RetryCfg.Validate(); err != nil {
		return fmt.Errorf("retry configuration invalid: %w", err)
	}
	if c.SelectorCfg.CacheSize < 0 {
		return fmt.Errorf("selector.cache_size must not be negative")
	}
	return nil
}

// Validate checks the GatherConfig settings.
func (g *GatherConfig) Validate() error {
	if g.DefaultTimeout <= 0 {
		return fmt.Errorf("default_timeout must be a positive duration")
	}
	if g.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be a positive duration")
	}
	if g.PollBurst <= 0 {
		return fmt.Errorf("poll_burst must be a positive integer")
	}
	return nil
}

// Validate checks the RetryConfig settings.
func (r *RetryConfig) Validate() error {
	if r.MaxAttempts <= 0 {
		return fmt.Errorf("max_attempts must be greater than 0")
	}
	if r.Interval < 0 {
		return fmt.Errorf("interval must not be negative")
	}
	if r.Deadline <= 0 {
		return fmt.Errorf("deadline must be a positive duration")
	}
	return nil
}
