package ripple

// WriteableSignal is a single observable slot: the thinnest possible wrapper
// over one Dep. Reads track, writes trigger.
type WriteableSignal[T comparable] struct {
	d     Dep
	value T
}

func (s *WriteableSignal[T]) isSignalAware() {}

func Signal[T comparable](rs *ReactiveSystem, initialValue T) *WriteableSignal[T] {
	s := &WriteableSignal[T]{value: initialValue}
	s.d.rs = rs
	return s
}

func (s *WriteableSignal[T]) Value() T {
	s.d.Track()
	return s.value
}

// Peek returns the current value without registering a dependency.
func (s *WriteableSignal[T]) Peek() T {
	return s.value
}

// SetValue writes the slot and triggers subscribers. Writing an equal value
// is a no-op.
func (s *WriteableSignal[T]) SetValue(v T) {
	if s.value == v {
		return
	}
	s.value = v
	s.d.Trigger()
}

// Dep exposes the signal's underlying observable for callers composing with
// the core directly.
func (s *WriteableSignal[T]) Dep() *Dep {
	return &s.d
}
