// Package signals provides a typed observer list used for change
// notifications of condition trees and filters.
package signals

// Observer receives notifications of type E.
type Observer[E any] func(E)

type entry[E any] struct {
	id       uint64
	observer Observer[E]
}

// Signal is an ordered observer list. The zero value is ready to use.
// Not safe for concurrent use; it follows the owner's threading.
type Signal[E any] struct {
	observers []entry[E]
	nextID    uint64
	blocked   int
}

// Attach registers an observer and returns a function detaching it.
// Observers run in attach order.
func (s *Signal[E]) Attach(observer Observer[E]) (detach func()) {
	s.nextID++
	id := s.nextID
	s.observers = append(s.observers, entry[E]{id: id, observer: observer})
	return func() { s.detach(id) }
}

func (s *Signal[E]) detach(id uint64) {
	for i, e := range s.observers {
		if e.id == id {
			s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
			return
		}
	}
}

// Notify delivers event to every observer attached at call time, unless the
// signal is blocked. Observers may attach or detach while being notified.
func (s *Signal[E]) Notify(event E) {
	if s.blocked > 0 || len(s.observers) == 0 {
		return
	}
	snapshot := append([]entry[E](nil), s.observers...)
	for _, e := range snapshot {
		e.observer(event)
	}
}

// Block suppresses notifications until the returned function is called.
// Blocks nest.
func (s *Signal[E]) Block() (unblock func()) {
	s.blocked++
	done := false
	return func() {
		if !done {
			done = true
			s.blocked--
		}
	}
}

// Len reports the number of attached observers.
func (s *Signal[E]) Len() int {
	return len(s.observers)
}
