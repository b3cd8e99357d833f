// Package rpc holds the hand-written grpc service definition for the
// Remote Facade (§4.5): no protoc-generated stubs, since the payload being
// carried is already opaque bytes plus a codec name rather than a
// protobuf-described structure. A custom grpc encoding.Codec (gobCodec,
// registered under the name "proto" so grpc selects it with no
// content-subtype negotiation required) carries these plain Go structs the
// same way Codec.Encode/Decode carry the user's callable.
package rpc

import "encoding/gob"

func init() {
	// Config values decoded from an EnvironmentDescription can nest any of
	// these dynamic shapes; gob requires concrete types reachable through
	// an interface field to be registered once, process-wide.
	gob.Register([]any{})
	gob.Register(map[string]any{})
}

// EnvironmentDescription mirrors fingerprint.Description on the wire,
// independent of that package so the RPC contract has no compile-time
// dependency on the server's internals.
type EnvironmentDescription struct {
	Kind   string
	Config map[string]any
}

// BoundFunction is the single client request message: an environment to
// materialize on the peer plus the callable to run inside it, already
// serialized with Codec.
type BoundFunction struct {
	EnvironmentDescription EnvironmentDescription
	EncodedCallable        []byte
	Codec                  string
}

// LogEntry is one relayed LogRecord, carried as plain strings rather than
// the server's logpipe.LogRecord type to keep the wire contract
// self-contained.
type LogEntry struct {
	Level   string
	Source  string
	Message string
}

// ResultPayload is the tagged payload of a finished call: Payload decodes
// under Codec to either the call's return value or the raised exception,
// discriminated by WasRaised.
type ResultPayload struct {
	Payload   []byte
	Codec     string
	WasRaised bool
}

// PartialResult is the single streamed response message (§6). Exactly one
// message in a stream has IsComplete=true, and that message is the only
// one permitted to carry a non-nil Result.
type PartialResult struct {
	Logs       []LogEntry
	Result     *ResultPayload
	IsComplete bool
}
