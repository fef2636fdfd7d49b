// Package registry implements the dynamic component loader used for
// code splitting: the full tag vocabulary is never bundled eagerly,
// only the components referenced by a page's islands are fetched, in
// parallel, before hydration starts.
//
// The two-phase contract with the hydration runtime is explicit in the
// types: PreloadAll returns a Preloaded view, and only a Preloaded can
// answer synchronous lookups without ambiguity. Calling GetLoaded on
// the registry before preload completes is a caller contract violation
// surfaced as a logged warning and a nil result, never a crash.
package registry

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/text/cases"

	reeferr "github.com/coralpages/reef/internal/errors"
	"github.com/coralpages/reef/internal/logging"
)

// Component is a loaded, renderable component.
type Component struct {
	// Name is the canonical component name.
	Name string
	// Render produces the component's HTML for the given props. The
	// hydration runtime supplies resolved props and rendered children.
	Render func(props map[string]any, children string) string
	// Metadata carries registration metadata through to the runtime.
	Metadata map[string]any
}

// Loader asynchronously fetches a component. Loaders are expected to
// respect ctx cancellation.
type Loader func(ctx context.Context) (*Component, error)

// Registration associates a component name with its async loader.
type Registration struct {
	Name     string
	Loader   Loader
	Metadata map[string]any
}

// Registry maps component names to loaders and caches loaded
// components for the lifetime of a render session. The cache is
// append-only until Clear.
type Registry struct {
	mu           sync.RWMutex
	loaders      map[string]Registration
	loaded       map[string]*Component
	preloadDone  bool
	logger       logging.Logger
	folder       cases.Caser
}

// New creates an empty registry.
func New(logger logging.Logger) *Registry {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Registry{
		loaders: make(map[string]Registration),
		loaded:  make(map[string]*Component),
		logger:  logger.WithComponent("registry"),
		folder:  cases.Fold(),
	}
}

// normalize case-folds a component name. Lookup is case-insensitive
// with first-match-wins: a second registration under a name that folds
// to the same key is rejected.
func (r *Registry) normalize(name string) string {
	return r.folder.String(name)
}

// RegisterLoader registers an async loader under a component name.
// Returns an error if the folded name is already taken.
func (r *Registry) RegisterLoader(name string, loader Loader) error {
	return r.Register(Registration{Name: name, Loader: loader})
}

// Register registers a component with metadata.
func (r *Registry) Register(reg Registration) error {
	if reg.Name == "" || reg.Loader == nil {
		return fmt.Errorf("registration needs a name and a loader")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.normalize(reg.Name)
	if existing, ok := r.loaders[key]; ok {
		return fmt.Errorf("component %q already registered as %q", reg.Name, existing.Name)
	}
	r.loaders[key] = reg
	return nil
}

// LoadComponent resolves a component by name, case-insensitively. The
// first successful load is cached; later calls return the cached
// instance without re-invoking the loader. Lookup misses and loader
// failures are logged and yield nil; this method never returns an
// error to the caller.
func (r *Registry) LoadComponent(ctx context.Context, name string) *Component {
	key := r.normalize(name)

	r.mu.RLock()
	if comp, ok := r.loaded[key]; ok {
		r.mu.RUnlock()
		return comp
	}
	reg, registered := r.loaders[key]
	r.mu.RUnlock()

	if !registered {
		r.logger.Warn(ctx, nil, "component not registered", "name", name)
		return nil
	}

	comp, err := reg.Loader(ctx)
	if err != nil || comp == nil {
		loadErr := reeferr.NewLoadError(reg.Name, err)
		r.logger.Error(ctx, loadErr, "component load failed", "name", reg.Name)
		return nil
	}
	if comp.Metadata == nil {
		comp.Metadata = reg.Metadata
	}

	r.mu.Lock()
	// A concurrent load may have won; keep the first cached instance.
	if cached, ok := r.loaded[key]; ok {
		comp = cached
	} else {
		r.loaded[key] = comp
	}
	r.mu.Unlock()

	return comp
}

// PreloadStats counts the outcome of a preload batch.
type PreloadStats struct {
	Requested int
	Loaded    int
	Failed    int
}

// PreloadAll deduplicates the component names, issues every load in
// parallel, and waits for all of them to settle. One slow or broken
// loader cannot stall the batch beyond its own settling: failures are
// counted and logged, not propagated. The returned Preloaded view is
// the only type that can answer Get without an unloaded-state
// ambiguity.
func (r *Registry) PreloadAll(ctx context.Context, names []string) (*Preloaded, PreloadStats) {
	seen := make(map[string]struct{}, len(names))
	var unique []string
	for _, name := range names {
		key := r.normalize(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, name)
	}

	stats := PreloadStats{Requested: len(unique)}

	var wg sync.WaitGroup
	var mu sync.Mutex
	snapshot := make(map[string]*Component, len(unique))

	for _, name := range unique {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			comp := r.LoadComponent(ctx, name)
			mu.Lock()
			defer mu.Unlock()
			if comp != nil {
				snapshot[r.normalize(name)] = comp
				stats.Loaded++
			} else {
				stats.Failed++
			}
		}(name)
	}
	wg.Wait()

	r.mu.Lock()
	r.preloadDone = true
	r.mu.Unlock()

	r.logger.Info(ctx, "preload settled",
		"requested", stats.Requested,
		"loaded", stats.Loaded,
		"failed", stats.Failed)

	return &Preloaded{registry: r, components: snapshot}, stats
}

// GetLoaded is the legacy synchronous cache read. Calling it before a
// preload has completed violates the two-phase contract; the violation
// is diagnosed with a warning and a nil result.
func (r *Registry) GetLoaded(name string) *Component {
	r.mu.RLock()
	done := r.preloadDone
	comp := r.loaded[r.normalize(name)]
	r.mu.RUnlock()

	if !done {
		r.logger.Warn(context.Background(), nil,
			"GetLoaded called before PreloadAll completed; caller violates the preload contract",
			"name", name)
		return nil
	}
	return comp
}

// Clear empties the loaded-component cache and resets the preload
// marker, for test isolation. Registrations survive.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded = make(map[string]*Component)
	r.preloadDone = false
}

// RegisteredCount returns the number of registered loaders.
func (r *Registry) RegisteredCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.loaders)
}

// Preloaded is the post-preload view of a registry: every component it
// exposes finished loading before it existed, so Get is synchronous
// and unambiguous. A nil result means the component failed to load or
// was never part of the preloaded set.
type Preloaded struct {
	registry   *Registry
	components map[string]*Component
}

// Get returns a preloaded component by name, case-insensitively.
func (p *Preloaded) Get(name string) *Component {
	return p.components[p.registry.normalize(name)]
}

// Len returns the number of successfully preloaded components.
func (p *Preloaded) Len() int { return len(p.components) }
