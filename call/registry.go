package call

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// HandlerFunc is a type-erased callable. The typed Definition[T] is
// converted to a HandlerFunc at registration time.
type HandlerFunc func(ctx context.Context, req *Request) (any, error)

// Registry maps callable names to handlers. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]HandlerFunc),
	}
}

// Register binds name to h, replacing any previous handler.
func (r *Registry) Register(name string, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// RegisterDefinition registers a typed definition. Keyword arguments are
// decoded into T before the typed handler runs.
//
// This is a package-level generic function because Go does not allow
// generic methods on non-generic receiver types.
func RegisterDefinition[T any](r *Registry, def *Definition[T]) {
	r.Register(def.Name, func(ctx context.Context, req *Request) (any, error) {
		var in T
		if err := req.DecodeKwargs(&in); err != nil {
			return nil, fmt.Errorf("decode kwargs for call %q: %w", def.Name, err)
		}
		return def.Handler(ctx, in)
	})
}

// Get returns the handler for name.
func (r *Registry) Get(name string) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
