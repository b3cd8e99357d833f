package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	isolateerrors "github.com/isidentical/isolate/internal/pkg/errors"
	"github.com/isidentical/isolate/pkg/callable"
	"github.com/isidentical/isolate/pkg/codec"
	"github.com/isidentical/isolate/pkg/isolate"
)

func newRunCmd() *cobra.Command {
	var (
		kind             string
		rawConfig        string
		codecName        string
		callableName     string
		args             jsonArgList
		ignoreExceptions bool
		timeout          time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "materialize an environment and run a registered callable in it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			description, err := parseDescription(kind, rawConfig)
			if err != nil {
				return err
			}

			runtime := newRuntime()
			c, err := codec.NewRegistry(codec.Gob{}, codec.JSON{}).Lookup(codecName)
			if err != nil {
				return err
			}

			ctx, cancel := timeoutContext(cmd, timeout)
			defer cancel()

			result, err := runtime.Run(ctx, description, callable.Call{Name: callableName, Args: args.values},
				isolate.OptCodec(c),
				isolate.OptIgnoreExceptions(ignoreExceptions),
			)
			if err != nil {
				return err
			}

			return printResult(result)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "environment kind (bare-runtime, virtual-runtime, package-manager-runtime, remote)")
	cmd.Flags().StringVar(&rawConfig, "config", "{}", "environment description config, as a JSON object")
	cmd.Flags().StringVar(&codecName, "codec", "gob", "codec used to carry the callable and its result")
	cmd.Flags().StringVar(&callableName, "callable", "", "name of a callable registered in the agent's registry")
	cmd.Flags().Var(&args, "arg", "a JSON-encoded positional argument; may be repeated")
	cmd.Flags().BoolVar(&ignoreExceptions, "ignore-exceptions", false, "return a caught user exception as the result instead of exiting 1")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "overall deadline for the call; 0 disables it")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("callable")

	return cmd
}

func printResult(result any) error {
	if ue, ok := result.(*isolateerrors.UserException); ok {
		fmt.Println(ue.Error())
		return nil
	}
	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", result)
		return nil
	}
	fmt.Println(string(encoded))
	return nil
}

func timeoutContext(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(cmd.Context())
	}
	return context.WithTimeout(cmd.Context(), d)
}
