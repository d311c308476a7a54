package call

import "context"

// Definition is a typed callable. T is the keyword-argument type and must
// be JSON-decodable.
type Definition[T any] struct {
	// Name is the unique callable name requests refer to.
	Name string

	// Handler runs the call and returns its result.
	Handler func(ctx context.Context, in T) (any, error)
}

// NewDefinition creates a typed callable definition.
func NewDefinition[T any](name string, handler func(ctx context.Context, in T) (any, error)) *Definition[T] {
	return &Definition[T]{Name: name, Handler: handler}
}

// Request builds a request for this callable with in as keyword arguments.
func (d *Definition[T]) Request(in T, opts ...RequestOption) *Request {
	return NewRequest(d.Name, append([]RequestOption{WithKwargs(in)}, opts...)...)
}
