package presence

import (
	"context"
	"sync"

	"github.com/lealre/community-backend/internal/metrics"
)

// Memory is a process local registry.
type Memory struct {
	mu     sync.RWMutex
	byUser map[string]string
	byConn map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		byUser: make(map[string]string),
		byConn: make(map[string]string),
	}
}

func (m *Memory) Connect(_ context.Context, userId, connId string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.byUser[userId]; ok {
		delete(m.byConn, old)
	}
	if other, ok := m.byConn[connId]; ok && other != userId {
		delete(m.byUser, other)
	}

	m.byUser[userId] = connId
	m.byConn[connId] = userId
	metrics.PresenceOnline.Set(float64(len(m.byUser)))
	return nil
}

func (m *Memory) Disconnect(_ context.Context, connId string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	userId, ok := m.byConn[connId]
	if !ok {
		return "", false, nil
	}

	delete(m.byConn, connId)
	if m.byUser[userId] == connId {
		delete(m.byUser, userId)
	}
	metrics.PresenceOnline.Set(float64(len(m.byUser)))
	return userId, true, nil
}

func (m *Memory) Lookup(_ context.Context, userId string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	connId, ok := m.byUser[userId]
	return connId, ok, nil
}

func (m *Memory) ListOnline(_ context.Context, candidates []string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	online := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, userId := range candidates {
		if _, dup := seen[userId]; dup {
			continue
		}
		seen[userId] = struct{}{}
		if _, ok := m.byUser[userId]; ok {
			online = append(online, userId)
		}
	}
	return online, nil
}
