package hub

import (
	"sync"

	"hotel-kitchen-backend/internal/event"
	"hotel-kitchen-backend/internal/model"
)

// Session is one live connection bound to a worker.
type Session struct {
	ID           string
	WorkerID     int64
	DepartmentID int64
	Admin        bool

	mu      sync.Mutex
	queue   chan event.Event
	done    chan struct{}
	closed  bool
	dropped int
}

func newSession(id string, w *model.Worker, size int) *Session {
	return &Session{
		ID:           id,
		WorkerID:     w.ID,
		DepartmentID: w.DepartmentID,
		Admin:        w.Role == model.RoleAdmin,
		queue:        make(chan event.Event, size),
		done:         make(chan struct{}),
	}
}

// Events delivers queued events in publish order.
func (s *Session) Events() <-chan event.Event {
	return s.queue
}

// Done is closed when the session is unsubscribed or replaced.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Dropped returns how many events were discarded because the queue was full.
func (s *Session) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Sees reports whether e is in this session's scope.
func (s *Session) Sees(e event.Event) bool {
	return s.Admin || e.DepartmentID == s.DepartmentID
}

// offer enqueues e, discarding the oldest queued event when full.
func (s *Session) offer(e event.Event) (dropped bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}

	for {
		select {
		case s.queue <- e:
			return dropped
		default:
		}
		select {
		case <-s.queue:
			s.dropped++
			dropped = true
		default:
		}
	}
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}
