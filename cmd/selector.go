// File: cmd/selector.go
package cmd

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/crow/internal/observability"
	"github.com/xkilldash9x/crow/internal/selector"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func newSelectorCmd() *cobra.Command {
	var pageRef string

	cmd := &cobra.Command{
		Use:   "selector <input>",
		Short: "Resolve a selector input to its canonical form",
		Long: `Resolve a raw locator body or an @symbol into the canonical selector that
crow would hand to a driver, and print it as JSON. Symbols need --page.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			page, err := loadPageMap(cfg.Pages(), pageRef)
			if err != nil {
				return err
			}

			resolver, err := selector.NewResolver(observability.GetLogger(), cfg.Selector().CacheSize)
			if err != nil {
				return err
			}
			sel, err := resolver.NormalizeString(page, args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, sel)
		},
	}
	cmd.Flags().StringVar(&pageRef, "page", "", "page element map used to resolve symbols (a YAML file or a configured page name)")
	return cmd
}

// writeJSON prints v as indented JSON on the command's output.
func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
