// Package securestore persists small key/value state on the device: the
// last session and the backend endpoint. It is the Go side of the mobile
// AsyncStorage/SecureStore slot.
//
// GUARANTEES:
//   - Get/Set/Delete are atomic per key (one SQL statement each).
//   - No multi-key transactions. Callers never need two keys to change together.
//   - Values are sealed (AES-GCM) before they touch disk, see seal.go.
package securestore

import (
	"context"
	"errors"
	"sync"
)

// Well-known keys. The names are shared with the mobile build so an exported
// store reads the same on both.
const (
	KeySession  = "user"
	KeyEndpoint = "MONGODB_URI"
)

// ErrUnsealed means a stored value exists but could not be decrypted: wrong
// passphrase, or the row was modified outside this package.
var ErrUnsealed = errors.New("securestore: value cannot be unsealed")

// Store is the key/value contract the session and connection layers depend on.
//
// Get returns found=false (and a nil error) when the key is absent.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Memory is an in-process Store. Nothing survives a restart; it backs tests
// and the CLI's --ephemeral mode.
type Memory struct {
	mu     sync.RWMutex
	values map[string][]byte
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
