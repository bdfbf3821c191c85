package dbms

import (
	"sort"
	"sync"
)

// Registry holds one Map per source server. Unlike Map it is safe for
// concurrent use; it hands out copies so callers never share a Map.
type Registry struct {
	mu   sync.RWMutex
	maps map[string]*Map
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{maps: make(map[string]*Map)}
}

// Put stores a copy of m, replacing any map for the same source server.
func (r *Registry) Put(m *Map) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maps[m.SourceServer()] = m.Clone()
}

// Get returns a copy of the map for server, or nil.
func (r *Registry) Get(server string) *Map {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.maps[server].Clone()
}

// Delete removes the map for server.
func (r *Registry) Delete(server string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.maps[server]; !ok {
		return false
	}
	delete(r.maps, server)
	return true
}

// Servers returns the registered source servers, sorted.
func (r *Registry) Servers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.maps))
	for s := range r.maps {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Resolve looks up source in the map for server.
func (r *Registry) Resolve(server, source string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.maps[server]
	if !ok {
		return "", false
	}
	return m.Resolve(source)
}
