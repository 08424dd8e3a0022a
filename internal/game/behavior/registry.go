package behavior

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Registry indexes behavior definitions by id.
// All methods are safe for concurrent use.
//
// Invariant: each id is stored at most once.
type Registry struct {
	mu    sync.RWMutex
	defs  map[string]*Definition
	order []string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// NewRegistryFromDir loads dir into a new Registry.
//
// Postcondition: never fails; unreadable or invalid source data leaves the
// registry empty and is logged at warn level.
func NewRegistryFromDir(dir string, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := NewRegistry()
	defs, err := LoadDir(dir)
	if err != nil {
		logger.Warn("behavior definitions unavailable; actors will do nothing", zap.String("dir", dir), zap.Error(err))
		return reg
	}
	if err := reg.Replace(defs); err != nil {
		logger.Warn("behavior definitions rejected", zap.String("dir", dir), zap.Error(err))
		return reg
	}
	logger.Info("behavior definitions loaded", zap.String("dir", dir), zap.Int("count", reg.Len()))
	return reg
}

// Replace atomically swaps the registry contents for defs.
//
// Postcondition: on error the previous contents are kept.
func (r *Registry) Replace(defs []*Definition) error {
	next := make(map[string]*Definition, len(defs))
	order := make([]string, 0, len(defs))
	for _, d := range defs {
		if d == nil {
			return fmt.Errorf("behavior.Registry.Replace: nil definition")
		}
		if _, dup := next[d.ID]; dup {
			return fmt.Errorf("behavior.Registry.Replace: duplicate behavior id %q", d.ID)
		}
		next[d.ID] = d
		order = append(order, d.ID)
	}
	r.mu.Lock()
	r.defs = next
	r.order = order
	r.mu.Unlock()
	return nil
}

// Get returns the definition with the given id.
func (r *Registry) Get(id string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[id]
	return d, ok
}

// All returns every definition in load order.
func (r *Registry) All() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Definition, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.defs[id])
	}
	return out
}

// Len returns the number of stored definitions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
