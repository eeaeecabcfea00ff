package chat

import (
	"context"
	"sync"
	"time"
)

type memorySession struct {
	session  Session
	messages []Message
	nextID   uint64
}

// MemoryStore keeps sessions in process memory. Everything is lost on
// restart; fine for tests and single-instance dev, nothing else. One mutex
// guards the whole map, which also serializes appends per session.
type MemoryStore struct {
	mu          sync.Mutex
	sessions    map[string]*memorySession
	maxMessages int
}

func NewMemoryStore(maxMessages int) *MemoryStore {
	if maxMessages <= 0 {
		maxMessages = 100
	}
	return &MemoryStore{
		sessions:    make(map[string]*memorySession),
		maxMessages: maxMessages,
	}
}

func (s *MemoryStore) Create(ctx context.Context, sess *Session) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = now
	}
	s.sessions[sess.SessionID] = &memorySession{session: *sess, nextID: 1}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	ms, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	out := ms.session
	return &out, nil
}

func (s *MemoryStore) Append(ctx context.Context, sessionID string, m *Message) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	ms, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if len(ms.messages) >= s.maxMessages {
		return ErrSessionLimit
	}
	m.SessionID = sessionID
	m.ID = ms.nextID
	ms.nextID++
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	ms.messages = append(ms.messages, *m)
	ms.session.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) Messages(ctx context.Context, sessionID string) ([]Message, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	ms, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	out := make([]Message, len(ms.messages))
	copy(out, ms.messages)
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *MemoryStore) SweepExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, ms := range s.sessions {
		if ms.session.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}
