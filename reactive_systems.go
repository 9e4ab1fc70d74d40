package ripple

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// OnErrorFunc receives errors returned by effect callbacks. Execution of the
// rest of the batch is never aborted by a failing callback.
type OnErrorFunc func(from SignalAware, err error)

// SignalAware is implemented by every reactive primitive in this package so
// error reporting can name its origin.
type SignalAware interface {
	isSignalAware()
}

// ReactiveSystem owns all shared mutable state of one dependency graph: the
// active execution contexts, the batch scheduler queues, and the process-wide
// version counter. Everything is single-threaded and synchronous; re-entrancy
// (effects triggering effects) is handled with flags, not locks.
type ReactiveSystem struct {
	activeSub   subscriber
	activeScope *Scope
	pauseStack  []subscriber

	batchDepth      int
	batchedSub      subscriber
	batchedComputed subscriber

	// globalVersion increments on every Trigger anywhere in the graph. A
	// computed whose snapshot matches it can skip its dependency walk.
	globalVersion int

	pausedEffects mapset.Set[*EffectRunner]

	onError OnErrorFunc
}

func CreateReactiveSystem(onError OnErrorFunc) *ReactiveSystem {
	rs := &ReactiveSystem{
		onError:       onError,
		pausedEffects: mapset.NewThreadUnsafeSet[*EffectRunner](),
	}
	return rs
}

// PauseTracking suppresses dependency collection until the matching
// ResumeTracking. Reads inside the window create no links.
func (rs *ReactiveSystem) PauseTracking() {
	rs.pauseStack = append(rs.pauseStack, rs.activeSub)
	rs.activeSub = nil
}

func (rs *ReactiveSystem) ResumeTracking() {
	lastIdx := len(rs.pauseStack) - 1
	rs.activeSub = rs.pauseStack[lastIdx]
	rs.pauseStack = rs.pauseStack[:lastIdx]
}

// Untracked runs fn with tracking suppressed.
func (rs *ReactiveSystem) Untracked(fn func()) {
	rs.PauseTracking()
	defer rs.ResumeTracking()
	fn()
}

// OnCleanup registers fn with the currently active scope. Without an active
// scope this is a benign no-op.
func (rs *ReactiveSystem) OnCleanup(fn func()) {
	if s := rs.activeScope; s != nil && s.active {
		s.cleanups = append(s.cleanups, fn)
	}
}

func (rs *ReactiveSystem) StartBatch() {
	rs.batchDepth++
}

func (rs *ReactiveSystem) EndBatch() {
	rs.batchDepth--
	if rs.batchDepth == 0 {
		rs.flush()
	}
}

func (rs *ReactiveSystem) Batch(cb func()) {
	rs.StartBatch()
	defer rs.EndBatch()
	cb()
}

// enqueue pushes a notified subscriber onto the relevant queue head. Notified
// computeds are only queued so their flag can be cleared at flush time; they
// never execute from the queue.
func (rs *ReactiveSystem) enqueue(sub subscriber, isComputed bool) {
	sb := sub.base()
	sb.flags |= fNotified
	if isComputed {
		sb.next = rs.batchedComputed
		rs.batchedComputed = sub
		return
	}
	sb.next = rs.batchedSub
	rs.batchedSub = sub
}

// flush drains the batch queues. A mutation performed inside a dispatched
// effect opens its own StartBatch/EndBatch and therefore flushes before the
// outer pass resumes; the outer loop re-checks for anything enqueued through
// other paths (e.g. scheduler hooks). A panicking effect is remembered
// (first wins) and re-raised only after every remaining queued effect ran.
func (rs *ReactiveSystem) flush() {
	if rs.batchedComputed != nil {
		for sub := rs.batchedComputed; sub != nil; {
			sb := sub.base()
			next := sb.next
			sb.next = nil
			sb.flags &^= fNotified
			sub = next
		}
		rs.batchedComputed = nil
	}

	var firstPanic any
	for rs.batchedSub != nil {
		sub := rs.batchedSub
		rs.batchedSub = nil
		for sub != nil {
			sb := sub.base()
			next := sb.next
			sb.next = nil
			sb.flags &^= fNotified
			if sb.flags&fActive != 0 {
				if p := dispatch(sub); p != nil && firstPanic == nil {
					firstPanic = p
				}
			}
			sub = next
		}
	}
	if firstPanic != nil {
		panic(firstPanic)
	}
}

func dispatch(sub subscriber) (panicked any) {
	defer func() {
		panicked = recover()
	}()
	if e, ok := sub.(*EffectRunner); ok {
		e.trigger()
	}
	return nil
}
