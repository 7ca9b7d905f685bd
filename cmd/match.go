// File: cmd/match.go
package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crow/internal/observability"
	"github.com/xkilldash9x/crow/internal/textmatch"
)

// errMismatch is returned by commands that already printed a failing report.
var errMismatch = errors.New("text did not match")

func newMatchCmd() *cobra.Command {
	var (
		preset  string
		noColor bool
		list    bool
	)

	cmd := &cobra.Command{
		Use:   "match <actual> <expected>",
		Short: "Compare two strings with the text matching rules",
		Long: `Compare an actual string against an expected one using a named preset,
optionally adjusted by individual flags. Exits non-zero when the strings do not match.

Presets: ` + strings.Join(textmatch.PresetNames(), ", "),
		Args: func(cmd *cobra.Command, args []string) error {
			if list {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if list {
				for _, name := range textmatch.PresetNames() {
					fmt.Fprintln(out, name)
				}
				return nil
			}

			opts, err := textmatch.Preset(preset)
			if err != nil {
				return err
			}
			opts = applyMatchFlags(cmd, opts)

			if noColor {
				color.NoColor = true
			}

			result := textmatch.Compare(args[0], args[1], opts)
			fmt.Fprintln(out, result.Styled())

			observability.GetLogger().Debug("Compared strings.",
				zap.Bool("matched", result.Matched),
				zap.String("options", opts.String()))
			if !result.Matched {
				return errMismatch
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&preset, "preset", "p", "equal", "matching preset")
	flags.BoolVar(&list, "list-presets", false, "list the preset names and exit")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")
	flags.Bool("partial", false, "expected only needs to be contained in actual")
	flags.Bool("caseless", false, "ignore letter case")
	flags.Bool("letter-number-only", false, "compare letters and digits only")
	flags.Bool("orderless", false, "ignore character order")
	flags.Bool("match-date", false, "compare both sides as dates")
	flags.Bool("match-time", false, "compare both sides as times")
	return cmd
}

// applyMatchFlags overrides preset fields with the flags the user set
// explicitly, leaving the rest of the preset untouched.
func applyMatchFlags(cmd *cobra.Command, opts textmatch.Options) textmatch.Options {
	overrides := []struct {
		name  string
		apply func(bool) textmatch.Option
	}{
		{"partial", textmatch.WithPartial},
		{"caseless", textmatch.WithCaseless},
		{"letter-number-only", textmatch.WithLetterNumberOnly},
		{"orderless", textmatch.WithOrderless},
		{"match-date", textmatch.WithMatchDate},
		{"match-time", textmatch.WithMatchTime},
	}
	for _, o := range overrides {
		if !cmd.Flags().Changed(o.name) {
			continue
		}
		v, _ := cmd.Flags().GetBool(o.name)
		opts = opts.With(o.apply(v))
	}
	return opts
}
