package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/luckydraw/internal/luckydraw"
)

// MemoryStore implements Store in process memory. The state is kept encoded,
// the same way the SQL stores keep it, so every read goes through
// normalization. Nothing survives a restart.
type MemoryStore struct {
	mu       sync.Mutex
	data     []byte
	sessions map[string]authSession
	rules    luckydraw.Rules
	now      func() time.Time
}

func NewMemoryStore(rules luckydraw.Rules) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]authSession),
		rules:    rules,
		now:      time.Now,
	}
}

func (m *MemoryStore) Load(_ context.Context) (luckydraw.GameState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current()
}

func (m *MemoryStore) Save(_ context.Context, s luckydraw.GameState) (luckydraw.GameState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.put(s)
}

func (m *MemoryStore) Modify(_ context.Context, fn func(*luckydraw.GameState) error) (luckydraw.GameState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.current()
	if err != nil {
		return luckydraw.GameState{}, err
	}
	if err := fn(&s); err != nil {
		return luckydraw.GameState{}, err
	}
	return m.put(s)
}

// current must be called with mu held.
func (m *MemoryStore) current() (luckydraw.GameState, error) {
	if m.data == nil {
		return m.put(m.rules.Initial(m.now()))
	}
	return m.rules.Normalize(m.data), nil
}

// put must be called with mu held.
func (m *MemoryStore) put(s luckydraw.GameState) (luckydraw.GameState, error) {
	s = m.rules.Canonical(s)
	data, err := json.Marshal(s)
	if err != nil {
		return luckydraw.GameState{}, err
	}
	m.data = data
	return s, nil
}

func (m *MemoryStore) CreateSession(_ context.Context, role, member string) (string, error) {
	token := uuid.NewString()
	m.mu.Lock()
	m.sessions[token] = authSession{Role: role, Member: member}
	m.mu.Unlock()
	return token, nil
}

func (m *MemoryStore) SessionFromToken(_ context.Context, token string) (authSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[token]
	if !ok {
		return authSession{}, errNoSession
	}
	return sess, nil
}

func (m *MemoryStore) DeleteSession(_ context.Context, token string) error {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
	return nil
}
