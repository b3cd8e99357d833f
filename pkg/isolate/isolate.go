// Package isolate is the public facade tying the environment manager, the
// execution bridge, and the remote facade together into the single
// operation most callers want: materialize an environment, then run a
// callable in it, locally or on a peer, transparently.
package isolate

import (
	"context"

	"github.com/isidentical/isolate/internal/pkg/bridge"
	"github.com/isidentical/isolate/internal/pkg/config"
	"github.com/isidentical/isolate/internal/pkg/environment"
	isolateerrors "github.com/isidentical/isolate/internal/pkg/errors"
	"github.com/isidentical/isolate/internal/pkg/fingerprint"
	"github.com/isidentical/isolate/internal/pkg/remote"
	"github.com/isidentical/isolate/pkg/codec"
)

// Runtime is the long-lived, reusable entrypoint a controller process
// builds once at startup: a registry of environment backends, a registry
// of available codecs, and the resolved ambient configuration.
type Runtime struct {
	environments *environment.Registry
	codecs       *codec.Registry
	cfg          *config.Config
	peers        map[string]*remote.Facade
}

// New builds a Runtime from cfg and the codecs available to it. Run takes
// its codec from OptCodec; codecs is used to decode the results a remote
// peer returns.
func New(cfg *config.Config, codecs *codec.Registry) *Runtime {
	return &Runtime{
		environments: environment.NewRegistry(cfg),
		codecs:       codecs,
		cfg:          cfg,
		peers:        make(map[string]*remote.Facade),
	}
}

// RunOption configures a single Run call, re-exporting the bridge's
// functional options that make sense at this layer.
type RunOption = bridge.Option

var (
	OptCodec            = bridge.OptCodec
	OptInheritance      = bridge.OptInheritance
	OptIgnoreExceptions = bridge.OptIgnoreExceptions
	OptSink             = bridge.OptSink
)

// Run materializes description (locally or, for a "remote" kind, by
// delegating to the named peer) and executes callable in it, returning its
// decoded result or propagating its failure per the taxonomy of §7.
func (r *Runtime) Run(ctx context.Context, description fingerprint.Description, callable any, opts ...RunOption) (any, error) {
	manager, err := r.environments.Prepare(description.Kind)
	if err != nil {
		return nil, err
	}

	handle, err := manager.Materialize(ctx, description)
	if err != nil {
		return nil, err
	}

	if !handle.IsRemote() {
		allOpts := append([]bridge.Option{bridge.OptFromConfig(r.cfg)}, opts...)
		return bridge.Run(ctx, handle, callable, allOpts...)
	}

	return r.runRemote(ctx, description, handle, callable, opts...)
}

// Materialize resolves description to a Handle without running anything
// against it, for callers (the materialize CLI verb, warm-up tooling) that
// want provisioning without an immediate call.
func (r *Runtime) Materialize(ctx context.Context, description fingerprint.Description, opts ...environment.MaterializeOption) (environment.Handle, error) {
	manager, err := r.environments.Prepare(description.Kind)
	if err != nil {
		return environment.Handle{}, err
	}
	return manager.Materialize(ctx, description, opts...)
}

// Discard removes a previously materialized Handle's on-disk cache slot.
func (r *Runtime) Discard(handle environment.Handle) error {
	manager, err := r.environments.Prepare(handle.Kind)
	if err != nil {
		return err
	}
	return manager.Discard(handle)
}

func (r *Runtime) runRemote(ctx context.Context, description fingerprint.Description, handle environment.Handle, callable any, opts ...RunOption) (any, error) {
	o := bridge.Options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Codec == nil {
		return nil, isolateerrors.NewSerializationError("preparing the codec", errNoRemoteCodec)
	}

	payload, err := o.Codec.Encode(callable)
	if err != nil {
		return nil, isolateerrors.NewSerializationError("encoding the callable", err)
	}

	facade, err := r.peer(handle.RootPath)
	if err != nil {
		return nil, err
	}

	inner := environment.InnerDescription(description)
	return facade.Run(ctx, inner, o.Codec.Name(), payload, r.codecs, o.IgnoreExceptions, o.Sink)
}

// peer lazily dials (or returns a cached) Facade for a given remote host
// descriptor. Channels are reused across calls per §4.5.
func (r *Runtime) peer(host string) (*remote.Facade, error) {
	if f, ok := r.peers[host]; ok {
		return f, nil
	}
	f, err := dialFacade(host)
	if err != nil {
		return nil, isolateerrors.NewChannelFailed(err)
	}
	r.peers[host] = f
	return f, nil
}

var errNoRemoteCodec = isolateerrors.NewAgentError("no codec was configured for a remote run")

// Close tears down every peer channel opened by Run, per the facade's
// explicit-teardown lifecycle requirement (§4.5).
func (r *Runtime) Close() error {
	var firstErr error
	for host, f := range r.peers {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(r.peers, host)
	}
	return firstErr
}
