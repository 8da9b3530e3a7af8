package common

import "sync"

// Serial runs queued funcs one at a time in submission order. Go never
// blocks, so it is safe to call from JS event callbacks; a worker goroutine
// is started on demand and exits once the queue is empty.
type Serial struct {
	mu      sync.Mutex
	queue   []func()
	running bool
	idle    *sync.Cond
}

// Go queues fn.
func (s *Serial) Go(fn func()) {
	s.mu.Lock()
	s.queue = append(s.queue, fn)
	start := !s.running
	s.running = true
	s.mu.Unlock()

	if start {
		go s.drain()
	}
}

// Wait blocks until every queued func has run. It must not be called from a
// JS callback.
func (s *Serial) Wait() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.running {
		s.cond().Wait()
	}
}

func (s *Serial) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.running = false
			s.cond().Broadcast()
			s.mu.Unlock()
			return
		}
		fn := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()

		fn()
	}
}

// cond must be called with mu held.
func (s *Serial) cond() *sync.Cond {
	if s.idle == nil {
		s.idle = sync.NewCond(&s.mu)
	}
	return s.idle
}
