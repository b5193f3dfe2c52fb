// Package storage is the persisted client state: the localStorage analogue
// holding the bearer token and the pending add-to-cart intent. Callers must
// go through the managers' operations; the only cross-operation protection
// here is the store's own mutex.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// Well-known keys.
const (
	KeyToken      = "token"
	KeyPendingAdd = "pendingAddToCart"
)

// Store is the persisted key-value client state.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
}

// FileStore keeps the keys in a single JSON document on disk, written
// through on every mutation. The file is the durable copy; state is
// re-derived from it on every process start.
type FileStore struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

// Open hydrates a FileStore from path, creating parent directories as
// needed. A corrupt state file is discarded rather than wedging startup.
func Open(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "create client state dir")
	}
	fs := &FileStore{path: path, values: map[string]string{}}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fs, nil
		}
		return nil, errors.Wrap(err, "read client state")
	}
	if err := json.Unmarshal(raw, &fs.values); err != nil {
		fs.values = map[string]string{}
	}
	return fs, nil
}

func (fs *FileStore) Get(key string) (string, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	v, ok := fs.values[key]
	return v, ok
}

func (fs *FileStore) Set(key, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.values[key] = value
	return fs.flush()
}

func (fs *FileStore) Delete(key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.values[key]; !ok {
		return nil
	}
	delete(fs.values, key)
	return fs.flush()
}

// flush is called with the mutex held.
func (fs *FileStore) flush() error {
	raw, err := json.MarshalIndent(fs.values, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode client state")
	}
	if err := os.WriteFile(fs.path, raw, 0o600); err != nil {
		return errors.Wrap(err, "write client state")
	}
	return nil
}
