package ripple

type subscriberFlags uint8

const (
	fActive subscriberFlags = 1 << iota
	fRunning
	fTracking
	fNotified
	fDirty
	fPaused
	fEvaluated
)

// unverified marks a link that has not been re-read during the subscriber's
// current execution. Any link still carrying it after cleanupDeps is pruned.
const unverified = -1

// link is one edge of the graph. It lives in two lists at once: the owning
// subscriber's dependency list (prevDep/nextDep) and the owning Dep's
// subscriber list (prevSub/nextSub).
type link struct {
	dep     *Dep
	sub     subscriber
	version int

	prevDep, nextDep *link
	prevSub, nextSub *link

	// prevActiveLink saves the dep's activeLink cache across nested
	// executions, restored by cleanupDeps.
	prevActiveLink *link
}

type subscriber interface {
	SignalAware
	base() *subscriberBase

	// notify reports a dependency change. Returns true when the receiver is
	// a computed, instructing the Dep layer to cascade into the computed's
	// own output Dep.
	notify() bool
}

type subscriberBase struct {
	rs *ReactiveSystem

	// self points back at the full subscriber so embedded-method receivers
	// can install and compare the outer identity.
	self subscriber

	deps, depsTail *link
	flags          subscriberFlags

	// next chains queued subscribers inside the batch scheduler.
	next subscriber
}

func (b *subscriberBase) base() *subscriberBase { return b }

// computedAny is the untyped view of a ReadonlySignal used by the refresh
// and dirtiness machinery, which never needs the value type.
type computedAny interface {
	subscriber
	outDep() *Dep
	cbase() *computedBase

	// update re-runs the getter and reports whether the cached value changed.
	update() bool
}
