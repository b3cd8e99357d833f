// Package cli is the isolate command-line wrapper: a small cobra tree
// exposing the Remote Facade's peer (run, materialize, discard) and the
// peer's own listening side (serve) as standalone verbs, in the idiom of
// the teacher's cmd/internal/cli package.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/isidentical/isolate/internal/pkg/config"
	"github.com/isidentical/isolate/internal/pkg/isolatelog"
	"github.com/isidentical/isolate/pkg/codec"
	"github.com/isidentical/isolate/pkg/isolate"
)

// Exit codes, per the external interface contract: 0 success, 1 a user
// exception surfaced as a process exit, 2 a bridge/infrastructure failure,
// 3 a provisioning failure.
const (
	ExitSuccess         = 0
	ExitUserException   = 1
	ExitInfraFailure    = 2
	ExitProvisionFailed = 3
)

var verbose bool

// Execute builds and runs the root command, returning the process exit
// code the caller should pass to os.Exit.
func Execute() int {
	root := &cobra.Command{
		Use:           "isolate",
		Short:         "materialize and run callables inside isolated language runtimes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "raise logging verbosity and print error causes with a stack trace")

	root.AddCommand(newRunCmd())
	root.AddCommand(newMaterializeCmd())
	root.AddCommand(newDiscardCmd())
	root.AddCommand(newServeCmd())

	cmd, err := root.ExecuteC()
	if err == nil {
		return ExitSuccess
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "%s: %+v\n", cmd.Name(), err)
	} else {
		fmt.Fprintf(os.Stderr, "%s: %s\n", cmd.Name(), err)
	}
	return exitCodeFor(err)
}

func newRuntime() *isolate.Runtime {
	if verbose {
		isolatelog.SetVerbose()
	}
	cfg := config.Load()
	codecs := codec.NewRegistry(codec.Gob{}, codec.JSON{})
	return isolate.New(cfg, codecs)
}
