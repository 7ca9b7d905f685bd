// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger().Level)
	assert.Equal(t, "crow", cfg.Logger().ServiceName)
	assert.True(t, cfg.Browser().Headless)
	assert.Equal(t, 4, cfg.Browser().Concurrency)
	assert.Equal(t, 1920, cfg.Browser().Viewport["width"])
	assert.Equal(t, 50*time.Millisecond, cfg.Interaction().WaitAfter)
	assert.True(t, cfg.Interaction().ShowActionText)
	assert.Equal(t, 10*time.Second, cfg.Gather().DefaultTimeout)
	assert.Equal(t, "screenshots", cfg.Interaction().ScreenshotDir)
	assert.Equal(t, "downloads", cfg.Interaction().DownloadDir)
	assert.Equal(t, 5, cfg.Retry().MaxAttempts)
	assert.Equal(t, 200*time.Millisecond, cfg.Retry().Interval)
	assert.Equal(t, 58*time.Second, cfg.Retry().Deadline)
	assert.Equal(t, 1024, cfg.Selector().CacheSize)
	assert.NoError(t, cfg.Validate())
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	t.Run("Core Validation", func(t *testing.T) {
		cfg := NewDefaultConfig()

		cfgInvalidBrowser := *cfg
		cfgInvalidBrowser.BrowserCfg.Concurrency = -1
		err := cfgInvalidBrowser.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "browser.concurrency must be a positive integer")

		cfgInvalidWait := *cfg
		cfgInvalidWait.SetInteractionWaitAfter(-time.Second)
		err = cfgInvalidWait.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "interaction.wait_after must not be negative")

		cfgInvalidCache := *cfg
		cfgInvalidCache.SelectorCfg.CacheSize = -5
		assert.Error(t, cfgInvalidCache.Validate())
	})

	t.Run("Retry Validation", func(t *testing.T) {
		valid := RetryConfig{MaxAttempts: 3, Interval: time.Second, Deadline: time.Minute}
		assert.NoError(t, valid.Validate())

		noAttempts := valid
		noAttempts.MaxAttempts = 0
		err := noAttempts.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "max_attempts must be greater than 0")

		noDeadline := valid
		noDeadline.Deadline = 0
		err = noDeadline.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "deadline must be a positive duration")
	})

	t.Run("Gather Validation", func(t *testing.T) {
		valid := GatherConfig{DefaultTimeout: time.Second, PollInterval: 50 * time.Millisecond, PollBurst: 1}
		assert.NoError(t, valid.Validate())

		noInterval := valid
		noInterval.PollInterval = 0
		err := noInterval.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "poll_interval must be a positive duration")

		noBurst := valid
		noBurst.PollBurst = 0
		assert.Error(t, noBurst.Validate())

		for _, timeout := range []time.Duration{0, -time.Second} {
			noTimeout := valid
			noTimeout.DefaultTimeout = timeout
			err = noTimeout.Validate()
			assert.Error(t, err, timeout)
			assert.Contains(t, err.Error(), "default_timeout must be a positive duration")
		}
	})
}

// -- Factory Function Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Successful Load from YAML", func(t *testing.T) {
		yamlBytes := []byte(`
browser:
  headless: false
  args: ["--lang=en-US"]
retry:
  max_attempts: 7
  deadline: 30s
pages:
  files: ["pages/login.yaml"]
`)
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlBytes)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.False(t, cfg.Browser().Headless)
		assert.Equal(t, []string{"--lang=en-US"}, cfg.Browser().Args)
		assert.Equal(t, 7, cfg.Retry().MaxAttempts)
		assert.Equal(t, 30*time.Second, cfg.Retry().Deadline)
		assert.Equal(t, []string{"pages/login.yaml"}, cfg.Pages().Files)
		// Check a default value was also loaded
		assert.Equal(t, "info", cfg.Logger().Level)
	})

	t.Run("Validation Failure", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("retry.max_attempts", 0)

		cfg, err := NewConfigFromViper(v)
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid configuration")
		assert.Contains(t, err.Error(), "max_attempts must be greater than 0")
	})

	t.Run("Zero Gather Timeout", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("gather.default_timeout", "0s")

		_, err := NewConfigFromViper(v)
		assert.ErrorContains(t, err, "gather configuration invalid: default_timeout must be a positive duration")
	})

	t.Run("Environment Variable Binding", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		t.Setenv("CROW_BROWSER_EXEC_PATH", "/opt/chrome/chrome")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "/opt/chrome/chrome", cfg.Browser().ExecPath)
	})
}

func TestSetters(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.SetBrowserHeadless(false)
	cfg.SetBrowserExecPath("/usr/bin/chromium")
	cfg.SetInteractionShowActionText(false)
	cfg.SetInteractionWaitAfter(time.Second)

	assert.Equal(t, time.Second, cfg.Interaction().WaitAfter)
	assert.False(t, cfg.Browser().Headless)
	assert.Equal(t, "/usr/bin/chromium", cfg.Browser().ExecPath)
	assert.False(t, cfg.Interaction().ShowActionText)
}
