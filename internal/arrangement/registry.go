package arrangement

import "sync/atomic"

// Registry resolves clip/generator/part/scene names against the
// currently active configuration tree. Clips reference generators by
// name; parts reference clips by id; song references parts by name —
// all indirect via string keys, never owning pointers, so hot-reload can
// swap the whole table atomically (spec §9).
type Registry struct {
	ClipIDs      map[string]bool
	GeneratorIDs map[string]bool
	PartNames    map[string]*Part
	SceneByIndex map[int]*Scene
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		ClipIDs:      make(map[string]bool),
		GeneratorIDs: make(map[string]bool),
		PartNames:    make(map[string]*Part),
		SceneByIndex: make(map[int]*Scene),
	}
}

// ResolvePart looks up a part by name. A stale/missing reference
// degrades to (nil, false); callers treat that as Hold per spec §9.
func (r *Registry) ResolvePart(name string) (*Part, bool) {
	p, ok := r.PartNames[name]
	return p, ok
}

// ResolveScene looks up a scene by index.
func (r *Registry) ResolveScene(idx int) (*Scene, bool) {
	s, ok := r.SceneByIndex[idx]
	return s, ok
}

// HasClip reports whether a clip id is known in this registry generation.
func (r *Registry) HasClip(id string) bool { return r.ClipIDs[id] }

// HasGenerator reports whether a generator name is known in this
// registry generation.
func (r *Registry) HasGenerator(name string) bool { return r.GeneratorIDs[name] }

// Handle is an atomically-swappable pointer to the active Registry,
// giving the dispatch thread a consistent snapshot per spec §9's
// double-buffered hot-reload design: the config loader builds a new
// Registry off to the side and Store swaps it in at a bar boundary.
type Handle struct {
	ptr atomic.Pointer[Registry]
}

// NewHandle wraps an initial registry.
func NewHandle(initial *Registry) *Handle {
	h := &Handle{}
	h.ptr.Store(initial)
	return h
}

// Load returns the currently active registry.
func (h *Handle) Load() *Registry { return h.ptr.Load() }

// Swap atomically installs a new registry, returning the previous one.
func (h *Handle) Swap(next *Registry) *Registry {
	return h.ptr.Swap(next)
}
