package lang

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry maps adapter names and file extensions to adapters. It is
// created explicitly and passed to whatever needs language resolution;
// two registries never share state.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Adapter
	byExt  map[string]Adapter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Adapter),
		byExt:  make(map[string]Adapter),
	}
}

// Register adds an adapter under its name and all of its extensions.
// Registering a duplicate name or claiming an already-claimed extension
// is an error, so resolution is never ambiguous.
func (r *Registry) Register(a Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := a.Name()
	if name == "" {
		return fmt.Errorf("adapter has empty name")
	}
	if _, ok := r.byName[name]; ok {
		return fmt.Errorf("adapter %q already registered", name)
	}
	exts := a.Extensions()
	for _, ext := range exts {
		if owner, ok := r.byExt[ext]; ok {
			return fmt.Errorf("extension %q already claimed by adapter %q", ext, owner.Name())
		}
	}
	r.byName[name] = a
	for _, ext := range exts {
		r.byExt[ext] = a
	}
	return nil
}

// ByName looks up an adapter by registry name.
func (r *Registry) ByName(name string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byName[name]
	return a, ok
}

// ForPath resolves an adapter from a file path's extension.
func (r *Registry) ForPath(path string) (Adapter, bool) {
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byExt[path[idx:]]
	return a, ok
}

// Names returns the registered adapter names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
