package model

import (
	"fmt"
	"sort"
)

// Registry maps pipeline roles to configured clients. The orchestration core
// depends only on the Client interface; which provider fills a role is
// decided here at construction time.
type Registry struct {
	clients map[Role]Client
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[Role]Client)}
}

// Register binds a client to a role, replacing any previous binding.
func (r *Registry) Register(role Role, c Client) {
	r.clients[role] = c
}

// Get returns the client for a role, or an unsupported CallError if the role
// has no configured provider.
func (r *Registry) Get(role Role) (Client, error) {
	c, ok := r.clients[role]
	if !ok {
		return nil, Unsupported(string(role), fmt.Errorf("no provider configured for role %q", role))
	}
	return c, nil
}

// Has reports whether a role is configured.
func (r *Registry) Has(role Role) bool {
	_, ok := r.clients[role]
	return ok
}

// Roles returns the configured role names, sorted.
func (r *Registry) Roles() []string {
	names := make([]string, 0, len(r.clients))
	for role := range r.clients {
		names = append(names, string(role))
	}
	sort.Strings(names)
	return names
}
