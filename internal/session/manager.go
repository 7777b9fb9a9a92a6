package session

import (
	"context"
	"sync"

	"mediminds/pkg/models"

	"go.uber.org/zap"
)

// Manager owns one Session per signed-in caregiver.
type Manager struct {
	svc    Services
	opts   Options
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(svc Services, opts Options, logger *zap.Logger) *Manager {
	return &Manager{
		svc:      svc,
		opts:     opts.withDefaults(),
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Get returns the caregiver's session, loading it on first use. A failed load
// is retried on the next call.
func (m *Manager) Get(ctx context.Context, caregiver models.Caregiver) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[caregiver.UserID]
	if !ok {
		s = New(caregiver, m.svc, m.opts, m.logger)
		m.sessions[caregiver.UserID] = s
	}
	m.mu.Unlock()

	if caregiver.Email != "" {
		s.mu.Lock()
		s.caregiver.Email = caregiver.Email
		s.mu.Unlock()
	}

	if err := s.ensureLoaded(ctx); err != nil {
		m.logger.Error("failed to load session",
			zap.String("user_id", caregiver.UserID),
			zap.Error(err),
		)
		return nil, err
	}
	return s, nil
}

// Sessions is a snapshot of the open sessions for background jobs.
func (m *Manager) Sessions() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

func (m *Manager) Drop(userID string) {
	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()
}

func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
