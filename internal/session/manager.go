package session

import (
	"context"
	"fmt"
	"sync"

	"roamfree/internal/database"
	"roamfree/internal/wishlist"
)

// Manager owns one Session per profile and creates them on first use.
type Manager struct {
	store    database.KV
	deps     Deps
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewManager creates a manager storing every profile under its own key prefix in store.
func NewManager(store database.KV, deps Deps) *Manager {
	deps.setDefaults()
	return &Manager{
		store:    store,
		deps:     deps,
		sessions: make(map[string]*Session),
	}
}

// KV returns the key space of a profile.
func (m *Manager) KV(profileID string) database.KV {
	return database.Namespace(m.store, "profile/"+profileID)
}

// Get returns the session for profileID, creating it if needed.
func (m *Manager) Get(ctx context.Context, profileID string) (*Session, error) {
	m.mu.RLock()
	sess := m.sessions[profileID]
	m.mu.RUnlock()
	if sess != nil {
		return sess, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if sess := m.sessions[profileID]; sess != nil {
		return sess, nil
	}

	repo := wishlist.NewRepository(m.KV(profileID), m.deps.Logger)
	sess, err := New(ctx, profileID, m.deps, repo)
	if err != nil {
		return nil, fmt.Errorf("session.Manager.Get: %w", err)
	}
	m.sessions[profileID] = sess
	m.deps.Logger.Info("session created", "session", profileID)
	return sess, nil
}

// Lookup returns an existing session without creating one.
func (m *Manager) Lookup(profileID string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[profileID]
}

// Delete closes and forgets a session. Persisted data is kept.
func (m *Manager) Delete(profileID string) {
	m.mu.Lock()
	sess := m.sessions[profileID]
	delete(m.sessions, profileID)
	m.mu.Unlock()

	if sess != nil {
		sess.Close()
		m.deps.Logger.Info("session deleted", "session", profileID)
	}
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close stops every session's background work.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
	m.deps.Logger.Info("sessions closed", "count", len(sessions))
}
