// Package hub routes committed events to live sessions scoped by
// department. Administrators see every department.
package hub

import (
	"context"
	"fmt"
	"log"
	"sync"

	"hotel-kitchen-backend/internal/event"
	"hotel-kitchen-backend/internal/model"
)

// DefaultQueueSize bounds each session's undelivered events.
const DefaultQueueSize = 64

// WorkerDirectory resolves the worker a session is bound to.
type WorkerDirectory interface {
	GetWorker(ctx context.Context, id int64) (*model.Worker, error)
}

// Listener observes every event after it was offered to sessions.
type Listener func(e event.Event)

// Hub fans events out to subscribed sessions.
type Hub struct {
	dir       WorkerDirectory
	queueSize int

	mu        sync.RWMutex
	sessions  map[string]*Session
	listeners []Listener
}

// New creates a hub whose sessions buffer at most queueSize events.
func New(dir WorkerDirectory, queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Hub{
		dir:       dir,
		queueSize: queueSize,
		sessions:  make(map[string]*Session),
	}
}

// Subscribe binds a live connection to a worker. The department scope is
// read once here; later department changes do not affect this session.
// Subscribing a session id the same worker already uses replaces the old
// session. Session ids are scoped per worker.
func (h *Hub) Subscribe(ctx context.Context, sessionID string, workerID int64) (*Session, error) {
	w, err := h.dir.GetWorker(ctx, workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to bind session %s to worker %d: %w", sessionID, workerID, err)
	}

	s := newSession(sessionID, w, h.queueSize)

	key := sessionKey(w.ID, sessionID)
	h.mu.Lock()
	old := h.sessions[key]
	h.sessions[key] = s
	h.mu.Unlock()

	if old != nil {
		old.close()
	}
	return s, nil
}

// Unsubscribe removes a session from routing and closes it.
func (h *Hub) Unsubscribe(s *Session) {
	key := sessionKey(s.WorkerID, s.ID)
	h.mu.Lock()
	if cur, ok := h.sessions[key]; ok && cur == s {
		delete(h.sessions, key)
	}
	h.mu.Unlock()
	s.close()
}

// sessionKey scopes client-chosen session ids to their worker, so one
// worker cannot replace another's session.
func sessionKey(workerID int64, sessionID string) string {
	return fmt.Sprintf("%d:%s", workerID, sessionID)
}

// AddListener registers l for every published event.
func (h *Hub) AddListener(l Listener) {
	h.mu.Lock()
	h.listeners = append(h.listeners, l)
	h.mu.Unlock()
}

// Publish implements event.Publisher. It never blocks on a slow session.
func (h *Hub) Publish(e event.Event) {
	h.mu.RLock()
	for _, s := range h.sessions {
		if !s.Sees(e) {
			continue
		}
		if dropped := s.offer(e); dropped {
			log.Printf("session %s queue full, dropped oldest event", s.ID)
		}
	}
	listeners := h.listeners
	h.mu.RUnlock()

	for _, l := range listeners {
		l(e)
	}
}

// SendToWorker delivers e to every session of one worker regardless of
// scope and returns how many sessions received it.
func (h *Hub) SendToWorker(workerID int64, e event.Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, s := range h.sessions {
		if s.WorkerID != workerID {
			continue
		}
		s.offer(e)
		n++
	}
	return n
}

// Close ends every session. Streams still reading from them return.
func (h *Hub) Close() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*Session)
	h.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}

// Len returns the number of live sessions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}
