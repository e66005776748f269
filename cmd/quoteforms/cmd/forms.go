package cmd

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-quoteforms/pkg/forms"
	"github.com/goliatone/go-quoteforms/pkg/visibility/expr"
)

// ErrLintFailed is returned when at least one definition has problems.
var ErrLintFailed = errors.New("form definitions failed lint")

func newFormsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forms",
		Short: "Inspect form definitions",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}
	cmd.AddCommand(newFormsListCommand(a))
	cmd.AddCommand(newFormsLintCommand(a))
	return cmd
}

func newFormsListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the registered forms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := a.registry()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tSTEPS\tROUTE")
			for _, form := range registry.List() {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", form.ID, form.Title, len(form.Steps), form.Route)
			}
			return tw.Flush()
		},
	}
}

func newFormsLintCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lint [dir]",
		Short: "Check form definitions for mistakes",
		Long: `Parse every definition in dir (or the configured forms directory, or the
bundled set) and report all problems, not only the first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.cfg.Forms.Dir
			if len(args) == 1 {
				dir = args[0]
			}
			fsys := forms.EmbeddedFS()
			if dir != "" {
				fsys = os.DirFS(dir)
			}
			loaded, err := forms.LoadFS(fsys)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			checker := expr.New()
			failed := 0
			for _, form := range loaded {
				if err := forms.Lint(form, checker); err != nil {
					var lintErr *forms.LintError
					if !errors.As(err, &lintErr) {
						return err
					}
					failed++
					fmt.Fprintf(out, "FAIL %s (%s)\n", form.ID, form.Source)
					for _, problem := range lintErr.Problems {
						fmt.Fprintf(out, "  - %s\n", problem)
					}
					continue
				}
				fmt.Fprintf(out, "ok   %s\n", form.ID)
			}
			if failed > 0 {
				return fmt.Errorf("%w: %d of %d", ErrLintFailed, failed, len(loaded))
			}
			return nil
		},
	}
}
