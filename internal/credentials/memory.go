package credentials

import (
	"context"
	"sync"
)

// MemoryStore keeps the credential pair in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	cred Credential
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a MemoryStore seeded with initial.
func NewMemoryStore(initial Credential) *MemoryStore {
	return &MemoryStore{cred: initial}
}

func (m *MemoryStore) Load(ctx context.Context) (Credential, error) {
	if err := ctx.Err(); err != nil {
		return Credential{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.cred.IsZero() {
		return Credential{}, ErrNotFound
	}
	return m.cred, nil
}

func (m *MemoryStore) Save(ctx context.Context, c Credential) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.cred = c
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) SaveAccessToken(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.cred.AccessToken = token
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	return m.Save(ctx, Credential{})
}
