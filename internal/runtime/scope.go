package runtime

import (
	"fmt"
)

// Scope identifies a frame in a Store's arena: a slot index plus the
// generation the frame was created in. Truncation between renders
// reuses slots but never generations, so a Scope held across a
// re-render (a pending Delay chain, an in-flight timer) goes stale and
// fails validity checks instead of aliasing a freshly created frame in
// the same slot.
type Scope struct {
	idx int32
	gen uint32
}

// NoScope is the parent of an island's root frame.
var NoScope = Scope{idx: -1}

// String renders the scope for diagnostics.
func (sc Scope) String() string {
	if sc == NoScope {
		return "none"
	}
	return fmt.Sprintf("s%d@%d", sc.idx, sc.gen)
}

type frame struct {
	parent Scope
	vars   map[string]any
	gen    uint32
	active bool
}

// Store is the arena of variable scope frames for one island. Variable
// reads resolve through the nearest enclosing frame; writes target the
// frame where the variable was declared, so nothing leaks into outer
// scopes implicitly.
type Store struct {
	frames  []frame
	nextGen uint32
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// NewScope appends a child frame under parent and returns its handle.
func (s *Store) NewScope(parent Scope) Scope {
	s.nextGen++
	s.frames = append(s.frames, frame{
		parent: parent,
		vars:   make(map[string]any),
		gen:    s.nextGen,
		active: true,
	})
	return Scope{idx: int32(len(s.frames) - 1), gen: s.nextGen}
}

// Release deactivates a frame. Lookups through a released frame fail,
// which catches use-after-unmount bugs early.
func (s *Store) Release(sc Scope) {
	if s.valid(sc) {
		s.frames[sc.idx].active = false
	}
}

// Truncate drops every frame above sc, reclaiming iteration frames
// between renders. The island root frame is never truncated away.
// Scopes pointing above the cut stay permanently stale even after the
// slots refill.
func (s *Store) Truncate(sc Scope) {
	if int(sc.idx)+1 < len(s.frames) {
		s.frames = s.frames[:sc.idx+1]
	}
}

// Declare binds a new variable in exactly the given frame. Declaring a
// name twice in one frame is a scope violation.
func (s *Store) Declare(sc Scope, name string, value any) error {
	if !s.valid(sc) {
		return fmt.Errorf("declare %q in released scope %v", name, sc)
	}
	if _, exists := s.frames[sc.idx].vars[name]; exists {
		return fmt.Errorf("variable %q already declared in this scope", name)
	}
	s.frames[sc.idx].vars[name] = value
	return nil
}

// EnsureDeclared declares the variable if the frame does not already
// hold it. Re-render passes use this so Var nodes keep their current
// value instead of resetting.
func (s *Store) EnsureDeclared(sc Scope, name string, value any) {
	if !s.valid(sc) {
		return
	}
	if _, exists := s.frames[sc.idx].vars[name]; !exists {
		s.frames[sc.idx].vars[name] = value
	}
}

// Get resolves a variable by walking frames outward from sc.
func (s *Store) Get(sc Scope, name string) (any, bool) {
	for cur := sc; cur != NoScope; cur = s.frames[cur.idx].parent {
		if !s.valid(cur) {
			return nil, false
		}
		if v, ok := s.frames[cur.idx].vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Set assigns to an existing variable in whichever enclosing frame
// declared it. Assigning an undeclared name is a scope violation, not
// an implicit declaration.
func (s *Store) Set(sc Scope, name string, value any) error {
	for cur := sc; cur != NoScope; cur = s.frames[cur.idx].parent {
		if !s.valid(cur) {
			break
		}
		if _, ok := s.frames[cur.idx].vars[name]; ok {
			s.frames[cur.idx].vars[name] = value
			return nil
		}
	}
	return fmt.Errorf("assignment to undeclared variable %q", name)
}

func (s *Store) valid(sc Scope) bool {
	return sc.idx >= 0 && int(sc.idx) < len(s.frames) &&
		s.frames[sc.idx].active && s.frames[sc.idx].gen == sc.gen
}
