package ripple

// Dep is an observable unit: a monotonically increasing version counter plus
// the tail of a doubly-linked list of subscribing links. Anything that wants
// to report "a value was read / a value was written" to the engine only needs
// Track and Trigger; WriteableSignal is the in-repo example of such a slot.
type Dep struct {
	rs *ReactiveSystem

	// version increases on every Trigger. A link whose stamped version
	// equals this one is provably fresh.
	version int

	// subs is the TAIL of the subscriber list; notify walks tail to head.
	subs *link

	subCount int

	// activeLink caches the link for the subscriber currently re-running,
	// installed by prepareDeps and popped by cleanupDeps.
	activeLink *link

	// computed is non-nil when this Dep is the output of a ReadonlySignal,
	// enabling lazy upstream subscription.
	computed computedAny
}

func NewDep(rs *ReactiveSystem) *Dep {
	return &Dep{rs: rs}
}

// Version exposes the current version counter, mainly for diagnostics.
func (d *Dep) Version() int { return d.version }

// SubscriberCount reports how many links currently target this Dep.
func (d *Dep) SubscriberCount() int { return d.subCount }

// Track registers the active subscriber (if any) as depending on this Dep.
// Outside any tracked execution it is a no-op.
func (d *Dep) Track() {
	d.track()
}

func (d *Dep) track() *link {
	rs := d.rs
	active := rs.activeSub
	if active == nil {
		return nil
	}
	if d.computed != nil && active == subscriber(d.computed) {
		// a computed reading its own output inside its getter
		return nil
	}

	sb := active.base()
	l := d.activeLink
	if l == nil || l.sub != active {
		l = &link{
			dep:     d,
			sub:     active,
			version: d.version,
		}
		d.activeLink = l

		// append to the subscriber's dependency list
		if sb.deps == nil {
			sb.deps = l
			sb.depsTail = l
		} else {
			l.prevDep = sb.depsTail
			sb.depsTail.nextDep = l
			sb.depsTail = l
		}

		addSub(l)
	} else if l.version == unverified {
		// reused from the previous run: re-stamp and move to the tail so the
		// dependency list keeps read order for the next verification pass
		l.version = d.version

		if l.nextDep != nil {
			next := l.nextDep
			next.prevDep = l.prevDep
			if l.prevDep != nil {
				l.prevDep.nextDep = next
			}
			l.prevDep = sb.depsTail
			l.nextDep = nil
			sb.depsTail.nextDep = l
			sb.depsTail = l

			if sb.deps == l {
				sb.deps = next
			}
		}
	}
	return l
}

// Trigger records a mutation: bump this Dep's version and the process-wide
// version, then notify subscribers.
func (d *Dep) Trigger() {
	d.version++
	d.rs.globalVersion++
	d.notify()
}

// notify walks the subscriber list tail to head (most recently added first).
// The whole walk is wrapped in a batch so a trigger fanning out to many
// subscribers still yields exactly one flush.
func (d *Dep) notify() {
	rs := d.rs
	rs.StartBatch()
	defer rs.EndBatch()
	for l := d.subs; l != nil; l = l.prevSub {
		if l.sub.notify() {
			if c, ok := l.sub.(computedAny); ok {
				c.outDep().notify()
			}
		}
	}
}

// addSub attaches the link to its dep's subscriber list. The arrival of the
// first subscriber on a computed-backed Dep flips that computed into
// self-tracking mode, attaching its whole dependency chain upstream.
func addSub(l *link) {
	l.dep.subCount++
	if l.sub.base().flags&fTracking == 0 {
		return
	}

	if c := l.dep.computed; c != nil && l.dep.subs == nil && c.cbase().flags&fActive != 0 {
		cb := c.cbase()
		cb.flags |= fTracking | fDirty
		for dl := cb.deps; dl != nil; dl = dl.nextDep {
			addSub(dl)
		}
	}

	tail := l.dep.subs
	if tail != l {
		l.prevSub = tail
		if tail != nil {
			tail.nextSub = l
		}
		l.dep.subs = l
	}
}

// removeSub detaches the link from its dep's subscriber list in O(1). When
// the last subscriber leaves a computed-backed Dep, the computed stops
// self-tracking and soft-detaches from its own upstream deps (links stay in
// its dependency list so a later pull can still version-check them).
func removeSub(l *link, soft bool) {
	d := l.dep
	prev, next := l.prevSub, l.nextSub
	if prev != nil {
		prev.nextSub = next
		l.prevSub = nil
	}
	if next != nil {
		next.prevSub = prev
		l.nextSub = nil
	}
	if d.subs == l {
		d.subs = prev
		if prev == nil && d.computed != nil {
			cb := d.computed.cbase()
			cb.flags &^= fTracking
			for dl := cb.deps; dl != nil; dl = dl.nextDep {
				removeSub(dl, true)
			}
		}
	}
	if !soft {
		d.subCount--
	}
}

// removeDep detaches the link from its subscriber's dependency list. The
// caller owns patching the subscriber's head/tail pointers.
func removeDep(l *link) {
	prev, next := l.prevDep, l.nextDep
	if prev != nil {
		prev.nextDep = next
		l.prevDep = nil
	}
	if next != nil {
		next.prevDep = prev
		l.nextDep = nil
	}
}

// prepareDeps marks every existing link unverified and stashes each dep's
// activeLink cache before a subscriber re-runs its body.
func prepareDeps(sb *subscriberBase) {
	for l := sb.deps; l != nil; l = l.nextDep {
		l.version = unverified
		l.prevActiveLink = l.dep.activeLink
		l.dep.activeLink = l
	}
}

// cleanupDeps is the sweep half: any link still unverified was not re-read
// this pass and is spliced out of both lists.
func cleanupDeps(sb *subscriberBase) {
	var head *link
	tail := sb.depsTail
	l := tail
	for l != nil {
		prev := l.prevDep
		if l.version == unverified {
			if l == tail {
				tail = prev
			}
			removeSub(l, false)
			removeDep(l)
		} else {
			head = l
		}
		l.dep.activeLink = l.prevActiveLink
		l.prevActiveLink = nil
		l = prev
	}
	sb.deps = head
	sb.depsTail = tail
}

// isDirty reports whether any of the subscriber's dependencies truly changed
// since its links were stamped, refreshing upstream computeds along the way.
func isDirty(sub subscriber) bool {
	for l := sub.base().deps; l != nil; l = l.nextDep {
		if l.version != l.dep.version {
			return true
		}
		if c := l.dep.computed; c != nil {
			refreshComputed(c)
			if l.version != l.dep.version {
				return true
			}
		}
	}
	return false
}
