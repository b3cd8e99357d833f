package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const runMethod = "/isolate.RemoteFacade/Run"

// Client opens the hand-written Run stream against a grpc.ClientConn
// (or any grpc.ClientConnInterface, e.g. a test fake).
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc. cc is typically a *grpc.ClientConn dialed with
// grpc.WithDefaultCallOptions(grpc.ForceCodec(...)) unnecessary here since
// gobCodec registers itself as the "proto" codec process-wide.
func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

// Run sends req as the single client message and returns a stream of
// PartialResult frames.
func (c *Client) Run(ctx context.Context, req *BoundFunction) (*RunClientStream, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], runMethod)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &RunClientStream{ClientStream: stream}, nil
}

// RunClientStream is the receive half of a Run call.
type RunClientStream struct {
	grpc.ClientStream
}

// Recv reads the next PartialResult frame, or io.EOF once the server has
// closed the stream.
func (s *RunClientStream) Recv() (*PartialResult, error) {
	var m PartialResult
	if err := s.RecvMsg(&m); err != nil {
		return nil, err
	}
	return &m, nil
}
