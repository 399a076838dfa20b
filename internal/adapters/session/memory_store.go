package session

import (
	"context"
	"sync"
	"time"

	"github.com/discoverhealth/backend/internal/domain/entities"
	"github.com/discoverhealth/backend/internal/domain/repositories"
	"github.com/discoverhealth/backend/pkg/metrics"
)

// MemoryStore keeps sessions in process memory. Expired sessions are hidden
// on read and removed by a background sweep.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]entities.Session
	now      func() time.Time

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

var _ repositories.SessionRepository = (*MemoryStore)(nil)

// NewMemoryStore creates a store that sweeps expired sessions every
// sweepInterval. A non-positive interval disables the sweeper.
func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]entities.Session),
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if sweepInterval > 0 {
		go s.sweepLoop(sweepInterval)
	} else {
		close(s.done)
	}
	return s
}

func (s *MemoryStore) Create(_ context.Context, session *entities.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Token] = *session
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	return nil
}

func (s *MemoryStore) Get(_ context.Context, token string) (*entities.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[token]
	if !ok {
		return nil, nil
	}
	if session.Expired(s.now()) {
		delete(s.sessions, token)
		metrics.ActiveSessions.Set(float64(len(s.sessions)))
		return nil, nil
	}
	return &session, nil
}

func (s *MemoryStore) Touch(_ context.Context, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[token]; ok {
		session.ExpiresAt = expiresAt
		s.sessions[token] = session
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	return nil
}

// Sweep removes every expired session and returns how many were removed
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for token, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, token)
			removed++
		}
	}
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	return removed
}

// Len returns the number of stored sessions, expired ones included
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close stops the sweeper and waits for it to exit
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() { close(s.stop) })
	<-s.done
	return nil
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
