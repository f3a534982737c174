// Package keystore holds the provider API key in a small JSON state file.
// When no key has been configured it falls back to the provider's public
// demo key, which only serves canned data; callers can surface that to the
// user via UsingFallback.
package keystore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

// FallbackKey is the provider's public demo key.
const FallbackKey = "demo"

var keyRe = regexp.MustCompile(`^[A-Za-z0-9]{8,32}$`)

type state struct {
	APIKey string `json:"api_key"`
}

// Store is a file-backed API key store.
type Store struct {
	mu   sync.RWMutex
	path string
	key  string
}

// Open loads the key store from path. A missing file is not an error; the
// store starts on the fallback key.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read key store: %w", err)
	}
	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse key store: %w", err)
	}
	if Valid(st.APIKey) {
		s.key = st.APIKey
	}
	return s, nil
}

// Valid reports whether a key looks like a real provider key.
func Valid(key string) bool {
	return keyRe.MatchString(key)
}

// Key returns the configured key, or the fallback demo key if none is set.
func (s *Store) Key() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.key == "" {
		return FallbackKey
	}
	return s.key
}

// UsingFallback reports whether requests are going out on the demo key.
func (s *Store) UsingFallback() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key == ""
}

// Set validates and persists a new key atomically (write temp, rename).
func (s *Store) Set(key string) error {
	if !Valid(key) {
		return fmt.Errorf("invalid API key format")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(state{APIKey: key}, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create key store dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write key store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("commit key store: %w", err)
	}
	s.key = key
	return nil
}
