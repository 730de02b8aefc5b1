package client

import (
	"encoding/json"
	"os"
	"sync"
)

// Slot names for persisted client state.
const (
	slotToken      = "auth.token"
	slotUser       = "auth.user"
	SlotDraft      = "builder.draft"
	SlotLocalForms = "forms.local"
	SlotPreview    = "builder.preview"
)

// Storage is a flat string key/value store, the stand-in for browser local
// storage. Implementations are last-writer-wins; there is no locking beyond
// what the implementation needs for its own consistency.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
}

type memoryStorage struct {
	mu    sync.Mutex
	slots map[string]string
}

func NewMemoryStorage() Storage {
	return &memoryStorage{slots: map[string]string{}}
}

func (s *memoryStorage) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.slots[key]
	return v, ok
}

func (s *memoryStorage) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[key] = value
}

func (s *memoryStorage) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, key)
}

// fileStorage persists slots to a single JSON file, rewritten on every
// mutation. A missing or corrupt file is treated as empty, never as an
// error.
type fileStorage struct {
	mu    sync.Mutex
	path  string
	slots map[string]string
}

func NewFileStorage(path string) Storage {
	s := &fileStorage{path: path, slots: map[string]string{}}
	if buf, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(buf, &s.slots)
	}
	if s.slots == nil {
		s.slots = map[string]string{}
	}
	return s
}

func (s *fileStorage) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.slots[key]
	return v, ok
}

func (s *fileStorage) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[key] = value
	s.flush()
}

func (s *fileStorage) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, key)
	s.flush()
}

func (s *fileStorage) flush() {
	buf, err := json.MarshalIndent(s.slots, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(s.path, buf, 0600)
}
