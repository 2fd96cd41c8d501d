package session

import (
	"context"
	"sync"
)

// Store persists credentials.
// Implementations must never expose one token updated without the other.
type Store interface {
	// Load returns the stored credentials or ErrNoCredentials.
	Load(ctx context.Context) (Credentials, error)

	// Set replaces both tokens.
	Set(ctx context.Context, c Credentials) error

	// Clear removes both tokens. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

// MemoryStore keeps credentials in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	creds Credentials
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements Store.
func (m *MemoryStore) Load(ctx context.Context) (Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.creds.Empty() {
		return Credentials{}, ErrNoCredentials
	}
	return m.creds, nil
}

// Set implements Store.
func (m *MemoryStore) Set(ctx context.Context, c Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = c
	return nil
}

// Clear implements Store.
func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = Credentials{}
	return nil
}
