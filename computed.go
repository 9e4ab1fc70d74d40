package ripple

// computedBase carries the untyped state shared by every ReadonlySignal: the
// subscriber half (its upstream links) and the dependency half (its own
// output Dep), plus the global-version snapshot for the nothing-changed-at-
// all fast path.
type computedBase struct {
	subscriberBase
	d             Dep
	globalVersion int
}

func (c *computedBase) outDep() *Dep         { return &c.d }
func (c *computedBase) cbase() *computedBase { return c }

// notify marks the computed dirty without recomputing. Returning true tells
// the Dep layer to cascade into the computed's own output Dep so dirtiness
// reaches downstream subscribers.
func (c *computedBase) notify() bool {
	c.flags |= fDirty
	if c.flags&fNotified != 0 {
		return false
	}
	if c.rs.activeSub == c.self {
		return false
	}
	c.rs.enqueue(c.self, true)
	return true
}

func initComputed(cb *computedBase, rs *ReactiveSystem, self subscriber) {
	cb.rs = rs
	cb.flags = fActive | fDirty
	cb.globalVersion = rs.globalVersion - 1
	cb.self = self
	cb.d.rs = rs
	cb.d.computed = self.(computedAny)

	if scope := rs.activeScope; scope != nil && scope.active {
		scope.members = append(scope.members, self.(scopeMember))
	}
}

// ReadonlySignal is a lazy derived value: its getter re-runs only when the
// value is pulled, and only if a dependency truly changed since the last
// evaluation. It is simultaneously a subscriber of its upstream Deps and a
// Dep for its own readers.
type ReadonlySignal[T comparable] struct {
	computedBase
	value  T
	getter func(oldValue T) T
}

func (s *ReadonlySignal[T]) isSignalAware() {}

// Computed creates a lazy derived signal. The getter receives the previously
// cached value (zero value on first evaluation). Nothing runs until the
// first Value call.
func Computed[T comparable](rs *ReactiveSystem, getter func(oldValue T) T) *ReadonlySignal[T] {
	s := &ReadonlySignal[T]{getter: getter}
	initComputed(&s.computedBase, rs, s)
	return s
}

// Value tracks the reader before refreshing so a reader that sets off a
// recursive refresh chain is still registered, then re-stamps its link in
// case the refresh bumped the version it just copied.
func (s *ReadonlySignal[T]) Value() T {
	l := s.d.track()
	refreshComputed(s)
	if l != nil {
		l.version = s.d.version
	}
	return s.value
}

// Peek returns the cached value without tracking or refreshing.
func (s *ReadonlySignal[T]) Peek() T {
	return s.value
}

// update re-runs the getter and caches the result, reporting whether the
// observable value changed. Identity comparison, not deep equality.
func (s *ReadonlySignal[T]) update() bool {
	oldValue := s.value
	newValue := s.getter(oldValue)
	if s.flags&fEvaluated == 0 || newValue != oldValue {
		s.flags |= fEvaluated
		s.value = newValue
		return true
	}
	return false
}

// Stop detaches the computed from the graph. Subsequent Value calls fall
// back to untracked recomputation.
func (s *ReadonlySignal[T]) Stop() {
	if s.flags&fActive == 0 {
		return
	}
	for l := s.deps; l != nil; l = l.nextDep {
		removeSub(l, false)
	}
	s.deps = nil
	s.depsTail = nil
	s.flags &^= fActive | fTracking
}

// Pause and Resume exist so a computed can live in a scope's member list;
// laziness makes them no-ops.
func (s *ReadonlySignal[T]) Pause()  {}
func (s *ReadonlySignal[T]) Resume() {}

// refreshComputed is the pull path. In order: trust the cache while the
// computed is subscribed and not dirty; guard self-recursion; take the
// global-version fast path; version-walk the dependency list; finally
// recompute under full tracking discipline, bumping the output Dep's version
// only when the value actually changed so unchanged derived values suppress
// downstream work.
func refreshComputed(c computedAny) {
	cb := c.cbase()
	flags := cb.flags
	if flags&fTracking != 0 && flags&fDirty == 0 {
		return
	}
	if flags&fRunning != 0 {
		return
	}
	cb.flags &^= fDirty

	rs := cb.rs
	if cb.globalVersion == rs.globalVersion {
		return
	}
	cb.globalVersion = rs.globalVersion

	if cb.flags&fActive == 0 {
		// stopped: recompute untracked, cache only
		rs.PauseTracking()
		defer rs.ResumeTracking()
		c.update()
		return
	}

	if flags&fEvaluated != 0 && (cb.deps == nil || !isDirty(c)) {
		return
	}

	cb.flags |= fRunning
	prepareDeps(&cb.subscriberBase)
	prevSub := rs.activeSub
	rs.activeSub = cb.self
	defer func() {
		cleanupDeps(&cb.subscriberBase)
		rs.activeSub = prevSub
		cb.flags &^= fRunning
		if r := recover(); r != nil {
			// a failed getter must still look changed to its readers
			cb.d.version++
			panic(r)
		}
	}()
	if c.update() {
		cb.d.version++
	}
}

// WritableComputedSignal is a ReadonlySignal plus a write pass-through: the
// setter is user code, not a graph operation.
type WritableComputedSignal[T comparable] struct {
	ReadonlySignal[T]
	setter func(newValue T)
}

func WritableComputed[T comparable](rs *ReactiveSystem, getter func(oldValue T) T, setter func(newValue T)) *WritableComputedSignal[T] {
	s := &WritableComputedSignal[T]{setter: setter}
	s.getter = getter
	initComputed(&s.computedBase, rs, s)
	return s
}

func (s *WritableComputedSignal[T]) SetValue(v T) {
	s.setter(v)
}
