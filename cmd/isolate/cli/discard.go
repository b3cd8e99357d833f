package cli

import (
	"github.com/spf13/cobra"

	"github.com/isidentical/isolate/internal/pkg/environment"
)

func newDiscardCmd() *cobra.Command {
	var (
		kind      string
		rawConfig string
	)

	cmd := &cobra.Command{
		Use:   "discard",
		Short: "remove a materialized environment's cache slot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			description, err := parseDescription(kind, rawConfig)
			if err != nil {
				return err
			}

			runtime := newRuntime()
			handle, err := runtime.Materialize(cmd.Context(), description, environment.OptExistOK(true))
			if err != nil {
				return err
			}

			return runtime.Discard(handle)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "environment kind")
	cmd.Flags().StringVar(&rawConfig, "config", "{}", "environment description config, as a JSON object")
	_ = cmd.MarkFlagRequired("kind")

	return cmd
}
