package ripple

// ErrFn is the callback shape for effects. A returned error is routed to the
// system's OnErrorFunc; it never aborts the surrounding flush.
type ErrFn func() error

// SchedulerFunc defers an effect's execution to the caller. When attached,
// the flush invokes it instead of running the effect; the caller decides
// when (or whether) to call RunIfDirty.
type SchedulerFunc func(runIfDirty func() error)

// EffectRunner is an eager subscriber: it re-executes its callback whenever
// a dependency it read actually changed.
type EffectRunner struct {
	subscriberBase
	fn        ErrFn
	scheduler SchedulerFunc
}

func (e *EffectRunner) isSignalAware() {}

// Effect creates an eager subscriber and runs fn once immediately to collect
// its initial dependencies. The effect registers with the active scope, if
// one is installed.
func Effect(rs *ReactiveSystem, fn ErrFn) *EffectRunner {
	return newEffect(rs, fn, nil)
}

// ScheduledEffect is Effect with a custom scheduling hook: notifications
// queue the effect as usual, but the flush hands control to scheduler
// instead of running the callback.
func ScheduledEffect(rs *ReactiveSystem, fn ErrFn, scheduler SchedulerFunc) *EffectRunner {
	return newEffect(rs, fn, scheduler)
}

func newEffect(rs *ReactiveSystem, fn ErrFn, scheduler SchedulerFunc) *EffectRunner {
	e := &EffectRunner{
		subscriberBase: subscriberBase{
			rs:    rs,
			flags: fActive | fTracking,
		},
		fn:        fn,
		scheduler: scheduler,
	}
	e.self = e

	if scope := rs.activeScope; scope != nil && scope.active {
		scope.members = append(scope.members, e)
	}

	if err := e.run(); err != nil && rs.onError != nil {
		rs.onError(e, err)
	}
	return e
}

// Run executes the callback immediately, stale or not. A stopped effect runs
// as a pure passthrough, with no graph interaction.
func (e *EffectRunner) Run() error {
	return e.run()
}

// run executes the callback under full tracking discipline. The deferred
// block restores the outer active subscriber, sweeps unread dependencies and
// clears Running even if the callback panics, so a failure in one effect
// cannot corrupt the context of a logically enclosing one.
func (e *EffectRunner) run() error {
	rs := e.rs
	if e.flags&fActive == 0 {
		// stopped: pure passthrough, no graph interaction
		return e.fn()
	}

	e.flags |= fRunning
	prepareDeps(&e.subscriberBase)
	prevSub := rs.activeSub
	rs.activeSub = e
	defer func() {
		cleanupDeps(&e.subscriberBase)
		rs.activeSub = prevSub
		e.flags &^= fRunning
	}()
	return e.fn()
}

// notify marks the effect for the current batch. Self-triggering from inside
// the effect's own body is ignored to prevent infinite recursion.
func (e *EffectRunner) notify() bool {
	if e.flags&fRunning != 0 {
		return false
	}
	if e.flags&fNotified == 0 {
		e.rs.enqueue(e, false)
	}
	return false
}

// trigger is the flush-time dispatch: park if paused, hand off to the
// scheduler hook if attached, otherwise run only when genuinely stale.
func (e *EffectRunner) trigger() {
	if e.flags&fPaused != 0 {
		e.rs.pausedEffects.Add(e)
		return
	}
	if e.scheduler != nil {
		e.scheduler(e.RunIfDirty)
		return
	}
	e.runIfDirty()
}

// RunIfDirty re-runs the callback only if a dependency truly changed since
// the last run. Exposed for scheduler hooks.
func (e *EffectRunner) RunIfDirty() error {
	return e.runIfDirty()
}

func (e *EffectRunner) runIfDirty() error {
	if isDirty(e) {
		err := e.run()
		if err != nil && e.rs.onError != nil {
			e.rs.onError(e, err)
			return nil
		}
		return err
	}
	return nil
}

// Stop permanently detaches the effect from the graph. Idempotent; a stopped
// effect never receives notifications again.
func (e *EffectRunner) Stop() {
	if e.flags&fActive == 0 {
		return
	}
	for l := e.deps; l != nil; l = l.nextDep {
		removeSub(l, false)
	}
	e.deps = nil
	e.depsTail = nil
	e.rs.pausedEffects.Remove(e)
	e.flags &^= fActive
}

// Pause suppresses execution without tearing down the graph. Notifications
// arriving while paused are parked and resolved on Resume.
func (e *EffectRunner) Pause() {
	e.flags |= fPaused
}

// Resume lifts a pause and re-checks staleness for anything missed while
// paused, rather than silently dropping it.
func (e *EffectRunner) Resume() {
	if e.flags&fPaused == 0 {
		return
	}
	e.flags &^= fPaused
	if e.rs.pausedEffects.Contains(e) {
		e.rs.pausedEffects.Remove(e)
		e.trigger()
	}
}
