package isolate

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/isidentical/isolate/internal/pkg/remote"
)

// dialFacade opens a new channel to a peer host descriptor and wraps it as
// a Facade. The channel is not authenticated or encrypted: it dials with
// insecure (plaintext) transport credentials.
func dialFacade(host string) (*remote.Facade, error) {
	cc, err := grpc.NewClient(host, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	return remote.NewFacade(cc), nil
}
