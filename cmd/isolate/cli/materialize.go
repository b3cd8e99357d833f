package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/isidentical/isolate/internal/pkg/environment"
)

func newMaterializeCmd() *cobra.Command {
	var (
		kind      string
		rawConfig string
		existOK   bool
	)

	cmd := &cobra.Command{
		Use:   "materialize",
		Short: "provision an environment description's cache slot without running anything",
		RunE: func(cmd *cobra.Command, _ []string) error {
			description, err := parseDescription(kind, rawConfig)
			if err != nil {
				return err
			}

			runtime := newRuntime()
			handle, err := runtime.Materialize(cmd.Context(), description, environment.OptExistOK(existOK))
			if err != nil {
				return err
			}

			fmt.Printf("%s\t%s\n", handle.Fingerprint, handle.RootPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "environment kind")
	cmd.Flags().StringVar(&rawConfig, "config", "{}", "environment description config, as a JSON object")
	cmd.Flags().BoolVar(&existOK, "exist-ok", true, "treat an already-materialized slot as success instead of failing")
	_ = cmd.MarkFlagRequired("kind")

	return cmd
}
