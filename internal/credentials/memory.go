package credentials

import (
	"context"
	"sync"
)

// MemoryStore implements Store in memory
type MemoryStore struct {
	mu    sync.RWMutex
	creds map[string]Credential
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{creds: make(map[string]Credential)}
}

func (m *MemoryStore) Save(ctx context.Context, cred *Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *cred
	stored.Endpoint = normalizeEndpoint(cred.Endpoint)
	m.creds[stored.Endpoint] = stored
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, endpoint string) (*Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cred, ok := m.creds[normalizeEndpoint(endpoint)]
	if !ok {
		return nil, nil
	}
	return &cred, nil
}

func (m *MemoryStore) Delete(ctx context.Context, endpoint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.creds, normalizeEndpoint(endpoint))
	return nil
}
