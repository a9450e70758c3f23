package engine

import "sync"

// Signal fans a coalesced "something changed" notification out to watchers.
// Notify never blocks: a watcher that has not drained its previous signal
// simply sees one pending signal.
type Signal struct {
	mu      sync.Mutex
	nextID  int
	watches map[int]chan struct{}
}

// NewSignal creates an empty signal.
func NewSignal() *Signal {
	return &Signal{watches: make(map[int]chan struct{})}
}

// Watch registers a watcher. The returned cancel func must be called to release it.
func (s *Signal) Watch() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan struct{}, 1)
	s.watches[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watches, id)
	}
}

// Notify wakes every watcher.
func (s *Signal) Notify() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ch := range s.watches {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
