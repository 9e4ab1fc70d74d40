package ripple

// scopeMember is anything a Scope owns the lifecycle of.
type scopeMember interface {
	Stop()
	Pause()
	Resume()
}

// Scope is a tree container grouping effects, computeds and cleanup
// callbacks for bulk disposal, mirroring a component or module lifetime.
// Once stopped it can never be reactivated.
type Scope struct {
	rs *ReactiveSystem

	active bool
	paused bool

	members  []scopeMember
	cleanups []func()
	scopes   []*Scope

	parent *Scope
	// index is this scope's slot in parent.scopes, kept so Stop can
	// swap-remove itself without scanning.
	index int
}

func (s *Scope) isSignalAware() {}

// NewScope creates a scope as a child of the currently active scope, or as a
// root when none is active.
func NewScope(rs *ReactiveSystem) *Scope {
	s := &Scope{rs: rs, active: true}
	if parent := rs.activeScope; parent != nil && parent.active {
		s.parent = parent
		s.index = len(parent.scopes)
		parent.scopes = append(parent.scopes, s)
	}
	return s
}

// NewDetachedScope creates an unattached root scope: it ignores the active
// scope and survives any parent's Stop.
func NewDetachedScope(rs *ReactiveSystem) *Scope {
	return &Scope{rs: rs, active: true}
}

// Active reports whether the scope has not been stopped.
func (s *Scope) Active() bool { return s.active }

// Run executes fn with this scope installed as the active one, restoring the
// previous scope on return. Errors propagate untouched. Running a stopped
// scope executes fn without any registration.
func (s *Scope) Run(fn ErrFn) error {
	if !s.active {
		return fn()
	}
	rs := s.rs
	prevScope := rs.activeScope
	rs.activeScope = s
	defer func() {
		rs.activeScope = prevScope
	}()
	return fn()
}

// OnCleanup registers fn to run when the scope stops. Callbacks fire in
// registration order, exactly once.
func (s *Scope) OnCleanup(fn func()) {
	if s.active {
		s.cleanups = append(s.cleanups, fn)
	}
}

// Stop tears the scope down: owned members stop, cleanups fire in
// registration order, children stop recursively, and the scope unhooks from
// its parent. Idempotent.
func (s *Scope) Stop() {
	s.stop(false)
}

func (s *Scope) stop(fromParent bool) {
	if !s.active {
		return
	}
	s.active = false

	for _, m := range s.members {
		m.Stop()
	}
	s.members = nil

	for _, fn := range s.cleanups {
		fn()
	}
	s.cleanups = nil

	for _, child := range s.scopes {
		child.stop(true)
	}
	s.scopes = nil

	if s.parent != nil && !fromParent {
		// swap-remove from the parent's child list, patching the moved
		// child's stored index
		siblings := s.parent.scopes
		last := len(siblings) - 1
		moved := siblings[last]
		siblings[s.index] = moved
		moved.index = s.index
		s.parent.scopes = siblings[:last]
	}
	s.parent = nil
}

// Pause suppresses every owned effect and child scope without tearing down
// the graph.
func (s *Scope) Pause() {
	if !s.active || s.paused {
		return
	}
	s.paused = true
	for _, child := range s.scopes {
		child.Pause()
	}
	for _, m := range s.members {
		m.Pause()
	}
}

// Resume lifts a Pause; effects notified while paused re-check their
// staleness instead of dropping the missed update.
func (s *Scope) Resume() {
	if !s.active || !s.paused {
		return
	}
	s.paused = false
	for _, child := range s.scopes {
		child.Resume()
	}
	for _, m := range s.members {
		m.Resume()
	}
}
