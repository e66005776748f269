package cmd

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-quoteforms/pkg/openapi"
)

func newOpenAPICommand(a *app) *cobra.Command {
	var server string
	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Print the OpenAPI document for the quote API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := a.registry()
			if err != nil {
				return err
			}
			doc, err := openapi.Build(cmd.Context(), registry.List(), openapi.WithVersion(Version), openapi.WithServerURL(server))
			if err != nil {
				return err
			}
			raw, err := openapi.Marshal(doc)
			if err != nil {
				return err
			}
			raw = append(raw, '\n')
			_, err = cmd.OutOrStdout().Write(raw)
			return err
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "server URL to advertise")
	return cmd
}
