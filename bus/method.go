package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNoProvider is returned by Call when no implementation has been bound.
var ErrNoProvider = errors.New("bus: method has no bound provider")

// Method is a typed, direct, single-provider call slot. Exactly one plugin
// binds an implementation (normally during its init hook); any number of
// plugins call it by declaration key.
type Method[Req, Resp any] struct {
	name string

	mu      sync.RWMutex
	handler func(context.Context, Req) (Resp, error)
}

// NewMethod constructs an unbound method slot. Application code obtains
// slots through the registry rather than calling this directly.
func NewMethod[Req, Resp any](name string) *Method[Req, Resp] {
	return &Method[Req, Resp]{name: name}
}

// Name returns the slot name.
func (m *Method[Req, Resp]) Name() string { return m.name }

// Bind installs the provider. Binding a slot twice is a wiring bug in the
// composing application and panics.
func (m *Method[Req, Resp]) Bind(fn func(context.Context, Req) (Resp, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handler != nil {
		panic(fmt.Sprintf("bus: method '%s' already has a provider", m.name))
	}
	m.handler = fn
}

// Bound reports whether a provider has been installed.
func (m *Method[Req, Resp]) Bound() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.handler != nil
}

// Call invokes the bound provider. Calling before a provider is bound is a
// runtime condition (the caller may simply have started first) and returns
// ErrNoProvider.
func (m *Method[Req, Resp]) Call(ctx context.Context, req Req) (Resp, error) {
	m.mu.RLock()
	fn := m.handler
	m.mu.RUnlock()
	if fn == nil {
		var zero Resp
		return zero, fmt.Errorf("method '%s': %w", m.name, ErrNoProvider)
	}
	return fn(ctx, req)
}
