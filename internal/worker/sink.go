package worker

import "sync"

// Sink is the destination collection shared by any number of consumers.
// It has its own mutex, independent of the queue's, so concurrent appends
// never interleave and never lose items.
type Sink[I any] struct {
	mux   sync.Mutex
	items []I
}

func NewSink[I any]() *Sink[I] {
	return &Sink[I]{}
}

func (s *Sink[I]) Append(item I) {
	s.mux.Lock()
	defer s.mux.Unlock()

	s.items = append(s.items, item)
}

func (s *Sink[I]) Len() int {
	s.mux.Lock()
	defer s.mux.Unlock()

	return len(s.items)
}

// Items returns a copy of everything appended so far.
func (s *Sink[I]) Items() []I {
	s.mux.Lock()
	defer s.mux.Unlock()

	out := make([]I, len(s.items))
	copy(out, s.items)
	return out
}
