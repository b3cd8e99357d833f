package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// Handler is the server-side business logic the facade implements: given
// the decoded request, run it and invoke send for each PartialResult to
// stream back, in order, ending with exactly one IsComplete=true message.
type Handler interface {
	Handle(ctx context.Context, req *BoundFunction, send func(*PartialResult) error) error
}

// ServiceDesc is the hand-written equivalent of a protoc-generated
// _ServiceDesc: one server-streaming method, "Run". It is registered with
// a *grpc.Server the same way generated code would via RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "isolate.RemoteFacade",
	HandlerType: (*Handler)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Run",
			Handler:       runHandler,
			ServerStreams: true,
		},
	},
	Metadata: "isolate/remote_facade",
}

func runHandler(srv any, stream grpc.ServerStream) error {
	h := srv.(Handler)
	var req BoundFunction
	if err := stream.RecvMsg(&req); err != nil {
		return err
	}
	return h.Handle(stream.Context(), &req, func(p *PartialResult) error {
		return stream.SendMsg(p)
	})
}

// RegisterService attaches h to s under ServiceDesc, mirroring the
// generated RegisterXxxServer helper a protoc build would produce.
func RegisterService(s grpc.ServiceRegistrar, h Handler) {
	s.RegisterService(&ServiceDesc, h)
}
