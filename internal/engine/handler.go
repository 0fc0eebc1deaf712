// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Handler executes one kind of job. Handlers decode their own payloads.
type Handler interface {
	// Name identifies the handler; Submission.Handler routes to it.
	Name() string

	// Execute runs the job and returns the payload recorded on success.
	// Errors are retried unless marked with Permanent.
	Execute(ctx context.Context, job *Job) (json.RawMessage, error)
}

// Registry maps handler names to handlers. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds h under h.Name(). It panics if the name is taken.
func (r *Registry) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := h.Name()
	if _, exists := r.handlers[name]; exists {
		panic(fmt.Sprintf("handler already registered for name: %s", name))
	}
	r.handlers[name] = h
}

// Get returns the handler registered under name, or nil.
func (r *Registry) Get(name string) Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handlers[name]
}

// Names returns the registered handler names in sorted order.
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

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc struct {
	HandlerName string
	Fn          func(ctx context.Context, job *Job) (json.RawMessage, error)
}

func (h HandlerFunc) Name() string { return h.HandlerName }

func (h HandlerFunc) Execute(ctx context.Context, job *Job) (json.RawMessage, error) {
	return h.Fn(ctx, job)
}
