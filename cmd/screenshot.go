// File: cmd/screenshot.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/crow/internal/interact"
	"github.com/xkilldash9x/crow/internal/observability"
)

func newScreenshotCmd() *cobra.Command {
	var po pageOptions

	cmd := &cobra.Command{
		Use:   "screenshot <target> <file>",
		Short: "Save a screenshot of a page",
		Long: `Load target and save a screenshot to file. Relative paths are placed under
interaction.screenshot_dir. Static documents are saved as their serialized HTML.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			logger := observability.GetLogger().Named("screenshot")
			ctx := cmd.Context()

			p, err := openPage(ctx, cfg, args[0], po, logger)
			if err != nil {
				return err
			}
			defer p.Close()

			path, err := p.actor.TakeScreenshot(ctx, args[1], interact.WithWaitAfter(0))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}
	cmd.Flags().BoolVar(&po.static, "static", false, "load http(s) targets as static documents instead of in a browser")
	return cmd
}
