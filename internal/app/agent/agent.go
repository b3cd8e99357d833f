// Package agent is the reference implementation of the child side of the
// execution bridge's protocol (§4.4): connect to the address the
// controller passed in argv, receive one framed CallRequest, execute it
// under a top-level catch, send back one framed CallResult, exit.
//
// It is the Go-native stand-in for the external agent_entrypoint
// collaborator the spec treats as out-of-process: a callable here is never
// an arbitrary closure (Go cannot cross a process boundary with one) but a
// callable.Call naming a function registered, under the same name, on both
// sides of the bridge.
package agent

import (
	"fmt"
	"net"
	"os"

	"github.com/isidentical/isolate/internal/pkg/bridge"
	"github.com/isidentical/isolate/pkg/callable"
	"github.com/isidentical/isolate/pkg/codec"
)

// Args is the parsed form of the argv shape §6 defines:
// `<runtime_bin> -m <agent_entrypoint> <encoded_address> <codec_name>`.
type Args struct {
	Entrypoint string
	Address    string
	CodecName  string
}

// ParseArgs extracts Args from a process's argument list (os.Args[1:]).
func ParseArgs(argv []string) (Args, error) {
	if len(argv) != 4 || argv[0] != "-m" {
		return Args{}, fmt.Errorf("expected `-m <entrypoint> <address> <codec>`, got %q", argv)
	}
	address, err := bridge.DecodeAddress(argv[2])
	if err != nil {
		return Args{}, fmt.Errorf("decoding the listener address: %w", err)
	}
	return Args{Entrypoint: argv[1], Address: address, CodecName: argv[3]}, nil
}

// Run executes the child-side protocol to completion against registry and
// codecs, writing diagnostic output to stderr. It returns a process exit
// code: 0 on a normal Ok or a caught user exception (the controller is the
// one that decides what to do with an exception; the agent's job is only
// to report it), non-zero if the handshake or framing itself failed.
func Run(argv []string, registry *callable.Registry, codecs *codec.Registry) int {
	args, err := ParseArgs(argv)
	if err != nil {
		fmt.Fprintln(os.Stderr, "isolate-agent:", err)
		return 2
	}

	c, err := codecs.Lookup(args.CodecName)
	if err != nil {
		fmt.Fprintln(os.Stderr, "isolate-agent:", err)
		return 2
	}

	conn, err := net.Dial("tcp", args.Address)
	if err != nil {
		fmt.Fprintln(os.Stderr, "isolate-agent: dialing the controller:", err)
		return 2
	}
	defer conn.Close()

	var req bridge.CallRequest
	if err := bridge.ReadFrame(conn, &req); err != nil {
		fmt.Fprintln(os.Stderr, "isolate-agent: reading the call request:", err)
		return 2
	}

	result := execute(req, c, registry)
	if err := bridge.WriteFrame(conn, result); err != nil {
		fmt.Fprintln(os.Stderr, "isolate-agent: writing the call result:", err)
		return 2
	}
	return 0
}

// execute runs the decoded callable under a recover-based top-level catch,
// exactly as §4.4 step 3 requires of the agent_entrypoint collaborator.
func execute(req bridge.CallRequest, c codec.Codec, registry *callable.Registry) (result bridge.CallResult) {
	if req.WasRaised {
		return bridge.CallResult{OK: false, Payload: req.Payload, Codec: req.Codec, IsUserException: true}
	}

	defer func() {
		if r := recover(); r != nil {
			result = agentFailure(c, fmt.Sprintf("panic while executing the callable: %v", r))
		}
	}()

	decoded, err := c.Decode(req.Payload)
	if err != nil {
		return agentFailure(c, fmt.Sprintf("decoding the callable: %s", err))
	}
	call, ok := decoded.(callable.Call)
	if !ok {
		return agentFailure(c, fmt.Sprintf("decoded payload is %T, not callable.Call", decoded))
	}

	fn, err := registry.Lookup(call.Name)
	if err != nil {
		return agentFailure(c, err.Error())
	}

	value, callErr := fn(call.Args...)
	if callErr != nil {
		payload, encErr := c.Encode(callErr.Error())
		if encErr != nil {
			return agentFailure(c, fmt.Sprintf("encoding the raised exception: %s", encErr))
		}
		return bridge.CallResult{OK: false, Payload: payload, Codec: c.Name(), IsUserException: true}
	}

	payload, err := c.Encode(value)
	if err != nil {
		return agentFailure(c, fmt.Sprintf("encoding the result: %s", err))
	}
	return bridge.CallResult{OK: true, Payload: payload, Codec: c.Name()}
}

// agentFailure builds an Err(is_user_exception=false) result: an
// infrastructure failure on the agent's side rather than a normal
// exception from the callable. It falls back to the raw message bytes if
// the codec itself cannot encode a string, so a broken codec never
// prevents the failure from being reported at all.
func agentFailure(c codec.Codec, message string) bridge.CallResult {
	payload, err := c.Encode(message)
	if err != nil {
		payload = []byte(message)
	}
	return bridge.CallResult{OK: false, Payload: payload, Codec: c.Name(), IsUserException: false}
}
