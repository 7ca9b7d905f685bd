// File: cmd/table.go
package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crow/api/schemas"
	"github.com/xkilldash9x/crow/internal/observability"
	"github.com/xkilldash9x/crow/internal/table"
)

func newTableCmd() *cobra.Command {
	var (
		sel       string
		lowercase bool
		headerTag string
		rowTag    string
		columnTag string
		po        pageOptions
	)

	cmd := &cobra.Command{
		Use:   "table <target>",
		Short: "Dump a table as a list of header to cell maps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			logger := observability.GetLogger().Named("table-cmd")
			ctx := cmd.Context()

			p, err := openPage(ctx, cfg, args[0], po, logger)
			if err != nil {
				return err
			}
			defer p.Close()

			t, err := table.New(p.observer, schemas.ParseInput(sel), logger, table.WithTags(headerTag, rowTag, columnTag))
			if err != nil {
				return err
			}
			rows := []table.Row{}
			err = t.ForEachRowHash(ctx, func(_ context.Context, row table.Row, _ int) error {
				rows = append(rows, row)
				return nil
			}, lowercase)
			if err != nil {
				return err
			}
			logger.Debug("Read table.", zap.Stringer("root", t.Root()), zap.Int("rows", len(rows)))
			return writeJSON(cmd, rows)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&sel, "selector", "s", "table", "selector input for the table root")
	flags.BoolVar(&lowercase, "lowercase", false, "lowercase the header keys")
	flags.StringVar(&headerTag, "header-tag", table.DefaultHeaderTag, "tag of header cells")
	flags.StringVar(&rowTag, "row-tag", table.DefaultRowTag, "tag of body rows")
	flags.StringVar(&columnTag, "column-tag", table.DefaultColumnTag, "tag of body cells")
	flags.BoolVar(&po.static, "static", false, "load http(s) targets as a static document instead of in a browser")
	flags.StringVar(&po.page, "page", "", "page element map used to resolve symbols (a YAML file or a configured page name)")
	return cmd
}
