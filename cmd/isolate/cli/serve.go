package cli

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/isidentical/isolate/internal/pkg/config"
	"github.com/isidentical/isolate/internal/pkg/environment"
	"github.com/isidentical/isolate/internal/pkg/isolatelog"
	"github.com/isidentical/isolate/internal/pkg/remote"
	"github.com/isidentical/isolate/internal/pkg/remote/rpc"
	"github.com/isidentical/isolate/pkg/codec"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "listen for Remote Facade calls and materialize/run them locally",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if verbose {
				isolatelog.SetVerbose()
			}

			cfg := config.Load()
			environments := environment.NewRegistry(cfg)
			codecs := codec.NewRegistry(codec.Gob{}, codec.JSON{})

			lis, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}

			server := grpc.NewServer()
			rpc.RegisterService(server, remote.NewServer(environments, codecs, cfg))

			isolatelog.Infof("listening for remote facade calls on %s", lis.Addr())
			fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", lis.Addr())
			return server.Serve(lis)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":50051", "address to listen on")
	return cmd
}
