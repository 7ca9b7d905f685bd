// File: cmd/query.go
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/crow/api/schemas"
	"github.com/xkilldash9x/crow/internal/config"
	"github.com/xkilldash9x/crow/internal/interact"
	"github.com/xkilldash9x/crow/internal/observability"
)

// queryResult is one target's entry in the query output.
type queryResult struct {
	Target string   `json:"target"`
	Count  int      `json:"count"`
	Values []string `json:"values"`
	Error  string   `json:"error,omitempty"`
}

func newQueryCmd() *cobra.Command {
	var (
		sel     string
		attr    string
		timeout time.Duration
		po      pageOptions
	)

	cmd := &cobra.Command{
		Use:   "query <target> [target...]",
		Short: "Read the text or an attribute of matching elements on one or more pages",
		Long: `Load each target (an http(s) URL, a file:// URL or a local path), gather the
elements matching --selector and print their texts, or the value of --attr, as JSON.
Targets are processed concurrently up to browser.concurrency.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			logger := observability.GetLogger().Named("query")

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			results := make([]queryResult, len(args))
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(max(cfg.Browser().Concurrency, 1))
			for i, target := range args {
				g.Go(func() error {
					values, err := queryTarget(gctx, cfg, target, sel, attr, po, logger)
					results[i] = queryResult{Target: target, Count: len(values), Values: values}
					if err != nil {
						// One bad target does not cancel the others.
						results[i].Error = err.Error()
						logger.Warn("Query failed.", zap.String("target", target), zap.Error(err))
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			if err := writeJSON(cmd, results); err != nil {
				return err
			}

			failed := 0
			for _, r := range results {
				if r.Error != "" {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d targets failed", failed, len(results))
			}
			return ctx.Err()
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&sel, "selector", "s", "", "selector input (locator body or @symbol)")
	flags.StringVarP(&attr, "attr", "a", "", "read this attribute instead of the element text")
	flags.DurationVar(&timeout, "timeout", 0, "overall time limit for the command (0 means none)")
	flags.BoolVar(&po.static, "static", false, "load http(s) targets as static documents instead of in a browser")
	flags.StringVar(&po.page, "page", "", "page element map used to resolve symbols (a YAML file or a configured page name)")
	_ = cmd.MarkFlagRequired("selector")
	return cmd
}

// queryTarget reads the texts, or the attr values, of the elements matching
// sel on one target.
func queryTarget(ctx context.Context, cfg config.Interface, target, sel, attr string, po pageOptions, logger *zap.Logger) ([]string, error) {
	p, err := openPage(ctx, cfg, target, po, logger.With(zap.String("target", target)))
	if err != nil {
		return nil, err
	}
	defer p.Close()

	in := schemas.ParseInput(sel)
	if attr == "" {
		return p.observer.AllTexts(ctx, in)
	}

	return interact.All(ctx, p.runner, in, "Read attribute "+attr,
		func(ctx context.Context, els []schemas.Element) ([]string, error) {
			values := make([]string, 0, len(els))
			for _, el := range els {
				v, _, err := el.Attribute(ctx, attr)
				if err != nil {
					return nil, err
				}
				values = append(values, v)
			}
			return values, nil
		},
		interact.WithWaitAfter(0), interact.WithHighlight(false))
}
