// Command isolate-agent is the binary the execution bridge spawns as the
// agent_entrypoint collaborator (§4.4, §6). It is itself a valid
// bare-runtime `runtime_bin`: register callables into pkg/callable.Default
// from an adjacent init() and point an environment description at this
// binary's path.
package main

import (
	"os"

	"github.com/isidentical/isolate/internal/app/agent"
	"github.com/isidentical/isolate/pkg/callable"
	"github.com/isidentical/isolate/pkg/codec"
)

func main() {
	registry := codec.NewRegistry(codec.Gob{}, codec.JSON{})
	os.Exit(agent.Run(os.Args[1:], callable.Default, registry))
}
