package environment

import (
	"fmt"

	"github.com/isidentical/isolate/internal/pkg/config"
)

// Registry is the explicit, static kind -> Manager mapping populated at
// program start. It stands in for the reference runtime's entry-point
// discovery mechanism (see SPEC_FULL.md §9): registration is static code,
// not a runtime plugin load, and the Registry is read-only once built.
type Registry struct {
	managers map[string]Manager
}

// NewRegistry builds the Registry with the four built-in backend variants,
// configured from cfg.
func NewRegistry(cfg *config.Config) *Registry {
	r := &Registry{managers: make(map[string]Manager, 4)}
	r.register(NewBareManager())
	r.register(NewVirtualManager(cfg.CacheRoot))
	r.register(NewPackageManagerManager(cfg.CacheRoot, cfg.CondaExe, cfg.CondaHome))
	r.register(NewRemoteManager())
	return r
}

func (r *Registry) register(m Manager) { r.managers[m.Kind()] = m }

// Prepare resolves the Manager registered for kind, mirroring registry.py's
// prepare_environment(kind, config).
func (r *Registry) Prepare(kind string) (Manager, error) {
	m, ok := r.managers[kind]
	if !ok {
		return nil, fmt.Errorf("unknown environment kind %q", kind)
	}
	return m, nil
}
