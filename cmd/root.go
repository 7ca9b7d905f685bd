// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crow/internal/config"
	"github.com/xkilldash9x/crow/internal/observability"
)

type contextKey string

const configKey contextKey = "config"

// NewRootCommand builds a fresh command tree. Each call returns independent
// flag state, so callers may execute several trees in one process.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "crow",
		Short: "Crow drives and inspects web pages for UI test automation.",
		// Version is set at build time. See cmd/version.go.
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)
			if err := initializeConfig(cmd, v, cfgFile); err != nil {
				return err
			}

			cfg, err := config.NewConfigFromViper(v)
			if err == nil {
				err = applyFlagOverrides(cmd, cfg)
			}
			if err != nil {
				// Fall back to a console logger so the failure itself is visible.
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "crow"})
				return err
			}

			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Debug("Starting crow.", zap.String("version", Version), zap.String("command", cmd.Name()))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, config.Interface(cfg)))
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml, then ~/.crow/config.yaml)")
	flags.String("log-level", "", "override logger.level (debug, info, warn, error)")
	flags.Bool("headed", false, "show the browser window instead of running headless")
	flags.String("browser-path", "", "path to the Chrome or Chromium executable")
	flags.Duration("wait-after", 0, "override interaction.wait_after, the pause after every interaction")

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(
		newVersionCmd(),
		newMatchCmd(),
		newSelectorCmd(),
		newQueryCmd(),
		newTableCmd(),
		newScreenshotCmd(),
	)
	return rootCmd
}

// Execute runs the command tree under ctx and logs a failed command once.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, errMismatch) {
			// The report was already printed.
			observability.GetLogger().Debug("Command reported a mismatch.")
		} else {
			observability.GetLogger().Error("Command execution failed.", zap.Error(err))
			fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
		}
	}
	observability.Sync()
	return err
}

// initializeConfig reads the config file and environment into v.
func initializeConfig(cmd *cobra.Command, v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".crow"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("CROW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and environment apply.
	}

	// The logger section is read before any setter could run.
	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		v.Set("logger.level", f.Value.String())
	}
	return nil
}

// applyFlagOverrides layers explicitly set command line flags on top of the
// loaded configuration.
func applyFlagOverrides(cmd *cobra.Command, cfg config.Interface) error {
	flags := cmd.Flags()
	if f := flags.Lookup("headed"); f != nil && f.Changed {
		headed, _ := flags.GetBool("headed")
		cfg.SetBrowserHeadless(!headed)
	}
	if f := flags.Lookup("browser-path"); f != nil && f.Changed {
		path, err := homedir.Expand(f.Value.String())
		if err != nil {
			return fmt.Errorf("invalid browser path: %w", err)
		}
		cfg.SetBrowserExecPath(path)
	}
	if f := flags.Lookup("wait-after"); f != nil && f.Changed {
		d, _ := flags.GetDuration("wait-after")
		if d < 0 {
			return fmt.Errorf("--wait-after must not be negative, got %s", d)
		}
		cfg.SetInteractionWaitAfter(d)
	}
	return nil
}

// getConfigFromContext returns the configuration stored by the root command.
func getConfigFromContext(ctx context.Context) (config.Interface, error) {
	cfg, ok := ctx.Value(configKey).(config.Interface)
	if !ok || cfg == nil {
		return nil, errors.New("configuration is not available in the command context")
	}
	return cfg, nil
}
