package cmd

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-quoteforms/pkg/renderers/tui"
	"github.com/goliatone/go-quoteforms/pkg/submit"
	"github.com/goliatone/go-quoteforms/pkg/wizard"
)

func newFillCommand(a *app, runOpts ...tui.Option) *cobra.Command {
	var backend string
	cmd := &cobra.Command{
		Use:   "fill <form>",
		Short: "Complete a quote request in the terminal",
		Long: `Walk through a form step by step in the terminal and submit it to the quote
API at --backend (default backend.url, or the local server address).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := a.registry()
			if err != nil {
				return err
			}
			form, err := registry.Get(args[0])
			if err != nil {
				return err
			}
			if backend == "" {
				backend = a.cfg.BackendURL()
			}
			client := submit.NewClient(backend,
				submit.WithHTTPClient(&http.Client{Timeout: a.cfg.Backend.Timeout.Std()}),
				submit.WithLogger(a.logger),
			)
			session, err := wizard.NewSession(form, wizard.WithSubmitter(client), wizard.WithLogger(a.logger))
			if err != nil {
				return err
			}

			opts := append([]tui.Option{tui.WithOutput(cmd.OutOrStdout())}, runOpts...)
			runner, err := tui.New(opts...)
			if err != nil {
				return err
			}
			if _, err := runner.Run(cmd.Context(), session); err != nil {
				if errors.Is(err, tui.ErrAborted) {
					fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled.")
					return nil
				}
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&backend, "backend", "", "quote API base URL")
	return cmd
}
