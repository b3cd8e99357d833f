package bridge

import (
	"time"

	"github.com/isidentical/isolate/internal/pkg/config"
	"github.com/isidentical/isolate/internal/pkg/environment"
	"github.com/isidentical/isolate/internal/pkg/logpipe"
	"github.com/isidentical/isolate/pkg/codec"
)

// Options configures a single Run call. A zero Options is never valid;
// build one with defaultOptions and the Opt* functions below.
type Options struct {
	Codec            codec.Codec
	Inheritance      []environment.Handle
	IgnoreExceptions bool
	AgentEntrypoint  string
	SearchPathVar    string
	Sink             logpipe.Sink

	HandshakeTimeout time.Duration
	AgentGrace       time.Duration
	AgentKillGrace   time.Duration
	LogDrainGrace    time.Duration
	PollInterval     time.Duration
}

// Option is a functional option over Options, matching the Opt-prefixed
// idiom used across the environment manager and the reference runtime's
// own launch configuration.
type Option func(*Options)

// OptCodec selects the serialization codec used for the callable and the
// result. Required; Run fails with SerializationError if left unset.
func OptCodec(c codec.Codec) Option {
	return func(o *Options) { o.Codec = c }
}

// OptInheritance appends additional environment handles whose search
// paths extend the primary handle's, per the precedence rule of P5.
func OptInheritance(handles ...environment.Handle) Option {
	return func(o *Options) { o.Inheritance = append(o.Inheritance, handles...) }
}

// OptIgnoreExceptions controls whether a UserException is reified as a
// returned value (true) or re-raised as the call's error (false, default).
func OptIgnoreExceptions(b bool) Option {
	return func(o *Options) { o.IgnoreExceptions = b }
}

// OptAgentEntrypoint overrides the `-m <agent_entrypoint>` module path
// passed to the child. Defaults to the built-in reference agent.
func OptAgentEntrypoint(entrypoint string) Option {
	return func(o *Options) { o.AgentEntrypoint = entrypoint }
}

// OptSink sets the callback that receives every LogRecord produced by the
// child during the call, in the ordering guarantees of §5.
func OptSink(sink logpipe.Sink) Option {
	return func(o *Options) { o.Sink = sink }
}

// OptFromConfig seeds the timing knobs and the search-path variable name
// from a resolved Config, matching the teacher's pattern of threading one
// settings struct through constructors instead of re-reading env vars.
//
// Only non-zero fields override the defaultOptions() floor: a Config not
// produced by config.Load() (e.g. a zero-value *config.Config handed to
// remote.NewServer) must not be able to collapse every grace period and
// poll interval to zero.
func OptFromConfig(cfg *config.Config) Option {
	return func(o *Options) {
		if cfg.SearchPathVar != "" {
			o.SearchPathVar = cfg.SearchPathVar
		}
		if cfg.HandshakeTimeout != 0 {
			o.HandshakeTimeout = cfg.HandshakeTimeout
		}
		if cfg.AgentGrace != 0 {
			o.AgentGrace = cfg.AgentGrace
		}
		if cfg.AgentKillGrace != 0 {
			o.AgentKillGrace = cfg.AgentKillGrace
		}
		if cfg.LogDrainGrace != 0 {
			o.LogDrainGrace = cfg.LogDrainGrace
		}
		if cfg.ReaderPollInterval != 0 {
			o.PollInterval = cfg.ReaderPollInterval
		}
	}
}

func defaultOptions() Options {
	return Options{
		AgentEntrypoint:  "isolate_agent",
		SearchPathVar:    "PYTHONPATH",
		HandshakeTimeout: 30 * time.Second,
		AgentGrace:       5 * time.Second,
		AgentKillGrace:   2 * time.Second,
		LogDrainGrace:    500 * time.Millisecond,
		PollInterval:     100 * time.Millisecond,
	}
}
