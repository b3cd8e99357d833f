// Package callable supplies the one concrete integration the agent and the
// controller share: a named, registered zero-argument-or-more function that
// can cross the bridge as a plain Go value. Go has no equivalent of
// pickling an arbitrary closure, so the callable a controller serializes is
// never the function itself but a Call{name, args} reference into a
// Registry both sides populate identically at init time; the codec only
// ever has to carry that small, ordinary struct.
package callable

import (
	"encoding/gob"
	"fmt"
	"sync"
)

func init() {
	gob.Register(Call{})
}

// Func is a registrable unit of work. It returns a plain value and an
// error; a non-nil error becomes a UserException at the bridge.
type Func func(args ...any) (any, error)

// Call is the wire-level reference to a registered Func: a name plus the
// arguments to invoke it with. It is the value a Codec carries from the
// controller to the agent; results and raised errors travel back as their
// own values.
type Call struct {
	Name string
	Args []any
}

// Registry maps names to Funcs. The zero value is not usable; use
// NewRegistry.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Register adds fn under name, overwriting any previous registration. It is
// safe to call concurrently with Lookup, but registration is expected to
// happen once at init time before any bridge session starts.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// Lookup resolves name to a Func.
func (r *Registry) Lookup(name string) (Func, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	if !ok {
		return nil, fmt.Errorf("no callable registered under name %q", name)
	}
	return fn, nil
}

// Default is the process-wide registry used by the agent entrypoint and by
// callers that build a Call value for Execution Bridge sessions.
var Default = NewRegistry()

// Register registers fn under name in Default.
func Register(name string, fn Func) { Default.Register(name, fn) }
