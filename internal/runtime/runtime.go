// Package runtime hydrates compiled template islands: it owns the
// per-island variable stores, evaluates conditionals and loops against
// live state, and dispatches event-triggered action chains, re-rendering
// only the island whose state changed.
//
// The runtime is cooperative. All mutation happens under one lock with
// run-to-completion semantics: an action chain finishes before the next
// dispatch or timer firing is processed, so two chains never interleave
// on the same scope. Islands do not share variable stores, which makes
// cross-island concurrency safe by construction.
package runtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coralpages/reef/internal/artifact"
	"github.com/coralpages/reef/internal/ast"
	reeferr "github.com/coralpages/reef/internal/errors"
	"github.com/coralpages/reef/internal/logging"
	"github.com/coralpages/reef/internal/registry"
)

// State is an island's lifecycle state.
type State int

const (
	StateUnmounted State = iota
	StateMounting
	StateHydrated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnmounted:
		return "unmounted"
	case StateMounting:
		return "mounting"
	case StateHydrated:
		return "hydrated"
	default:
		return "unknown"
	}
}

// PlaceholderHTML is rendered for an island that failed to hydrate and
// has no last-known-good output.
const PlaceholderHTML = `<div class="reef-island-fallback"></div>`

// Options configures a Runtime.
type Options struct {
	// Bindings are read-only values from external collaborators
	// (session user, fetched page data), injected into every island's
	// root scope at mount.
	Bindings map[string]any
	// Logger receives hydration diagnostics. Nil disables logging.
	Logger logging.Logger
	// OnRender is called with fresh HTML whenever an island renders.
	OnRender func(islandID, html string)
	// OnEffect receives host-side actions (Navigate, ShowToast, ...)
	// the runtime cannot perform itself.
	OnEffect func(islandID, effect string, args map[string]any)
}

// Runtime hydrates and updates the islands of one compiled template.
type Runtime struct {
	mu         sync.Mutex
	template   *artifact.CompiledTemplate
	components *registry.Preloaded
	bindings   map[string]any
	logger     logging.Logger
	islands    map[string]*Island
	order      []string
	onRender   func(islandID, html string)
	onEffect   func(islandID, effect string, args map[string]any)
}

// Island is the live hydration state for one artifact island.
type Island struct {
	art    *artifact.Island
	comp   *registry.Component
	store  *Store
	root   Scope
	state  State
	html   string
	failed bool

	events []eventBinding
	timers map[*ast.Node]*timerHandle
	delays []*time.Timer

	// pendingMount collects OnMount chains found during the first
	// render; they run once, after the island reaches Hydrated.
	pendingMount []eventBinding
	// visited marks OnInterval nodes seen by the current render pass,
	// so timers in abandoned conditional branches are stopped.
	visited map[*ast.Node]bool
}

type eventBinding struct {
	trigger string
	scope   Scope
	node    *ast.Node
}

type timerHandle struct {
	ticker *time.Ticker
	stop   chan struct{}
	// scope is the frame the OnInterval node was registered under,
	// refreshed on every render pass so ticks fire against live frames.
	scope Scope
}

// New creates a runtime over a compiled template and its preloaded
// components. PreloadAll must have settled before this point; that is
// the registry's two-phase contract.
func New(tpl *artifact.CompiledTemplate, components *registry.Preloaded, opts Options) *Runtime {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	rt := &Runtime{
		template:   tpl,
		components: components,
		bindings:   opts.Bindings,
		logger:     logger.WithComponent("runtime"),
		islands:    make(map[string]*Island, len(tpl.Islands)),
		onRender:   opts.OnRender,
		onEffect:   opts.OnEffect,
	}
	for i := range tpl.Islands {
		art := &tpl.Islands[i]
		rt.islands[art.ID] = &Island{art: art, state: StateUnmounted}
		rt.order = append(rt.order, art.ID)
	}
	return rt
}

// HydrateAll hydrates every island in document order. A failure in one
// island is contained there; the rest still hydrate.
func (rt *Runtime) HydrateAll(ctx context.Context) {
	for _, id := range rt.order {
		if err := rt.Hydrate(ctx, id); err != nil {
			rt.logger.Error(ctx, err, "island hydration failed", "island", id)
		}
	}
}

// Hydrate mounts one island: Unmounted -> Mounting (pending prop
// descriptors resolve against the fresh variable store) -> Hydrated.
// On failure the island degrades to a neutral placeholder and the
// error is returned for reporting; sibling islands are unaffected.
func (rt *Runtime) Hydrate(ctx context.Context, islandID string) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	is, ok := rt.islands[islandID]
	if !ok {
		return reeferr.NewHydrationError(islandID, fmt.Errorf("unknown island"))
	}
	if is.state != StateUnmounted {
		return nil
	}

	is.state = StateMounting
	is.store = NewStore()
	is.root = is.store.NewScope(NoScope)
	is.comp = rt.lookupComponent(is.art.Component)
	is.timers = make(map[*ast.Node]*timerHandle)

	for name, value := range rt.bindings {
		is.store.EnsureDeclared(is.root, name, value)
	}

	err := rt.guarded(ctx, is, func() error {
		html, err := rt.render(ctx, is, true)
		if err != nil {
			return err
		}
		is.html = html
		return nil
	})
	if err != nil {
		is.failed = true
		is.state = StateHydrated
		is.html = PlaceholderHTML
		rt.notifyRender(is)
		return err
	}

	is.state = StateHydrated
	rt.notifyRender(is)

	// Mount chains run after the island is visible, then the island
	// re-renders once if any of them mutated state.
	if len(is.pendingMount) > 0 {
		mounts := is.pendingMount
		is.pendingMount = nil
		for _, b := range mounts {
			rt.runChain(ctx, is, b)
		}
		rt.rerender(ctx, is)
	}

	return nil
}

// Dispatch delivers an event trigger (click, change, hover, key,
// visibility, ...) to one island. Every matching chain runs to
// completion against the owning scope, then exactly that island
// re-renders. Failures are contained to the island.
func (rt *Runtime) Dispatch(ctx context.Context, islandID, trigger string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	is, ok := rt.islands[islandID]
	if !ok || is.state != StateHydrated || is.failed {
		return
	}

	matched := false
	for _, b := range is.events {
		if b.trigger == trigger {
			matched = true
			rt.runChain(ctx, is, b)
		}
	}
	if matched {
		rt.rerender(ctx, is)
	}
}

// Unmount tears an island down. Owned interval and delay timers are
// stopped synchronously: once Unmount returns, no further state
// mutation from this island can be observed.
func (rt *Runtime) Unmount(islandID string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.unmountLocked(islandID)
}

// UnmountAll tears down every island.
func (rt *Runtime) UnmountAll() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	for _, id := range rt.order {
		rt.unmountLocked(id)
	}
}

func (rt *Runtime) unmountLocked(islandID string) {
	is, ok := rt.islands[islandID]
	if !ok || is.state == StateUnmounted {
		return
	}

	// Unmount chains run before teardown while the store is still live.
	if !is.failed {
		ctx := context.Background()
		for _, b := range is.events {
			if b.trigger == "unmount" {
				rt.runChain(ctx, is, b)
			}
		}
	}

	for _, h := range is.timers {
		h.ticker.Stop()
		close(h.stop)
	}
	is.timers = nil
	for _, t := range is.delays {
		t.Stop()
	}
	is.delays = nil

	if is.store != nil {
		is.store.Release(is.root)
	}
	is.events = nil
	is.state = StateUnmounted
}

// HTML returns an island's current rendered output.
func (rt *Runtime) HTML(islandID string) string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if is, ok := rt.islands[islandID]; ok {
		return is.html
	}
	return ""
}

// IslandState returns an island's lifecycle state.
func (rt *Runtime) IslandState(islandID string) State {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if is, ok := rt.islands[islandID]; ok {
		return is.state
	}
	return StateUnmounted
}

// Var reads a variable from an island's root scope chain, for
// inspection and tests.
func (rt *Runtime) Var(islandID, name string) (any, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	is, ok := rt.islands[islandID]
	if !ok || is.store == nil {
		return nil, false
	}
	return is.store.Get(is.root, name)
}

// lookupComponent resolves the island's component from the preloaded
// set. Control tags (If, ForEach, Var holders) have no registered
// component and render through the generic walker; that is not an
// error.
func (rt *Runtime) lookupComponent(name string) *registry.Component {
	if rt.components == nil {
		return nil
	}
	return rt.components.Get(name)
}

// guarded runs fn and converts panics into contained hydration errors.
func (rt *Runtime) guarded(ctx context.Context, is *Island, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = reeferr.NewHydrationError(is.art.ID, fmt.Errorf("panic: %v", r))
			rt.logger.Error(ctx, err, "island update panicked", "island", is.art.ID)
		}
	}()
	if err := fn(); err != nil {
		return reeferr.NewHydrationError(is.art.ID, err)
	}
	return nil
}

// runChain executes one event binding's action chain. Errors are
// contained and reported; the island keeps its last-known-good render.
func (rt *Runtime) runChain(ctx context.Context, is *Island, b eventBinding) {
	err := rt.guarded(ctx, is, func() error {
		return rt.execActions(ctx, is, b.scope, b.node.Children)
	})
	if err != nil {
		rt.logger.Error(ctx, err, "action chain failed",
			"island", is.art.ID, "trigger", b.trigger)
	}
}

// rerender re-evaluates one island against its current variable state
// and publishes the new HTML. On failure the island keeps its
// last-known-good output.
func (rt *Runtime) rerender(ctx context.Context, is *Island) {
	err := rt.guarded(ctx, is, func() error {
		html, err := rt.render(ctx, is, false)
		if err != nil {
			return err
		}
		is.html = html
		return nil
	})
	if err != nil {
		rt.logger.Error(ctx, err, "island re-render failed; keeping last-known-good",
			"island", is.art.ID)
		return
	}
	rt.notifyRender(is)
}

func (rt *Runtime) notifyRender(is *Island) {
	if rt.onRender != nil {
		rt.onRender(is.art.ID, is.html)
	}
}

func (rt *Runtime) effect(islandID, effect string, args map[string]any) {
	if rt.onEffect != nil {
		rt.onEffect(islandID, effect, args)
	}
}

// ensureTimer starts (or keeps) the interval timer for an OnInterval
// node. Re-render passes mark visited nodes; stale timers from
// abandoned branches are stopped afterwards.
func (rt *Runtime) ensureTimer(is *Island, sc Scope, n *ast.Node, every time.Duration) {
	is.visited[n] = true
	if h, running := is.timers[n]; running {
		// Each render registers the node under that render's frames;
		// the old scope is stale after the arena was truncated.
		h.scope = sc
		return
	}
	if every <= 0 {
		every = time.Second
	}

	h := &timerHandle{
		ticker: time.NewTicker(every),
		stop:   make(chan struct{}),
		scope:  sc,
	}
	is.timers[n] = h

	islandID := is.art.ID
	go func() {
		for {
			select {
			case <-h.ticker.C:
				rt.fireTimer(islandID, n)
			case <-h.stop:
				return
			}
		}
	}()
}

// fireTimer runs an interval chain. The state check under the runtime
// lock is what guarantees an unmounted island never mutates again even
// if a tick was already in flight.
func (rt *Runtime) fireTimer(islandID string, n *ast.Node) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	is, ok := rt.islands[islandID]
	if !ok || is.state != StateHydrated || is.failed {
		return
	}
	h, running := is.timers[n]
	if !running {
		return
	}

	ctx := context.Background()
	rt.runChain(ctx, is, eventBinding{trigger: "interval", scope: h.scope, node: n})
	rt.rerender(ctx, is)
}

// stopStaleTimers stops timers whose OnInterval node was not reached by
// the latest render pass.
func (rt *Runtime) stopStaleTimers(is *Island) {
	for n, h := range is.timers {
		if !is.visited[n] {
			h.ticker.Stop()
			close(h.stop)
			delete(is.timers, n)
		}
	}
}

// scheduleDelay runs an action chain once after d, owned by the island:
// unmounting cancels it.
func (rt *Runtime) scheduleDelay(is *Island, sc Scope, nodes []*ast.Node, d time.Duration) {
	islandID := is.art.ID
	timer := time.AfterFunc(d, func() {
		rt.mu.Lock()
		defer rt.mu.Unlock()

		cur, ok := rt.islands[islandID]
		if !ok || cur.state != StateHydrated || cur.failed {
			return
		}
		ctx := context.Background()
		err := rt.guarded(ctx, cur, func() error {
			return rt.execActions(ctx, cur, sc, nodes)
		})
		if err != nil {
			rt.logger.Error(ctx, err, "delayed chain failed", "island", islandID)
			return
		}
		rt.rerender(ctx, cur)
	})
	is.delays = append(is.delays, timer)
}
