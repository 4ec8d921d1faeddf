package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrQuotaExceeded is returned by MemoryStorage when a value is larger than its quota
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Storage is a flat key-value store holding string records.
// Get reports false when the key has never been written.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// FileStorage keeps each key in its own file under dir:
//
//	<dir>/
//	  metrics_history_v1.json
type FileStorage struct {
	dir string
}

// NewFileStorage creates the directory with 0700 permissions if needed
func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("storage: create directory %s: %w", dir, err)
	}
	return &FileStorage{dir: dir}, nil
}

// keyPath returns the filesystem path for a key
func (s *FileStorage) keyPath(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Get reads a key. A missing file is not an error.
func (s *FileStorage) Get(key string) (string, bool, error) {
	data, err := os.ReadFile(s.keyPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("storage: read %s: %w", key, err)
	}
	return string(data), true, nil
}

// Set writes a key atomically (write to a temp file, then rename) so a
// crash mid-write never leaves a truncated record behind
func (s *FileStorage) Set(key, value string) error {
	if strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("storage: invalid key %q", key)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-"+key+"-*.json")
	if err != nil {
		return fmt.Errorf("storage: create temp for %s: %w", key, err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpName)
		}
	}()

	if err := os.Chmod(tmpName, 0600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("storage: chmod temp for %s: %w", key, err)
	}

	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("storage: write temp for %s: %w", key, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp for %s: %w", key, err)
	}

	if err := os.Rename(tmpName, s.keyPath(key)); err != nil {
		return fmt.Errorf("storage: rename temp for %s: %w", key, err)
	}

	success = true
	return nil
}

// MemoryStorage is an in-process Storage. A positive quota makes Set fail
// for values larger than quota bytes.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
	quota  int
	writes int
}

// NewMemoryStorage creates an empty store; quota <= 0 means unlimited
func NewMemoryStorage(quota int) *MemoryStorage {
	return &MemoryStorage{
		values: make(map[string]string),
		quota:  quota,
	}
}

func (m *MemoryStorage) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.quota > 0 && len(value) > m.quota {
		return ErrQuotaExceeded
	}
	m.values[key] = value
	m.writes++
	return nil
}

// Writes returns the number of successful Set calls
func (m *MemoryStorage) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}
