// Package kvstore is a small persisted key-value layer. Each named setting
// gets durable storage across restarts and a typed default on read.
//
// Values are JSON-encoded. Writes replace the whole value stored under a key;
// callers that hold composite values read, modify and write them back. Keys
// are independent and there are no cross-key transactions.
//
// If the backing medium cannot be opened or written, the store keeps working
// in memory for the rest of the process and reports Degraded.
package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"github.com/getmockd/supamocka/pkg/kvstore/file"
	"github.com/getmockd/supamocka/pkg/kvstore/sqlite"
	"github.com/getmockd/supamocka/pkg/logging"
)

// Backend persists raw values. Implementations need not be safe for
// concurrent use; Store serializes calls.
type Backend interface {
	Load(ctx context.Context) (map[string]json.RawMessage, error)
	Save(ctx context.Context, key string, value json.RawMessage) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Listener is called with the key that changed.
type Listener func(key string)

// Store holds the current values in memory and writes through to a Backend.
type Store struct {
	mu       sync.RWMutex
	values   map[string]json.RawMessage
	backend  Backend
	degraded bool
	name     string

	listenersMu sync.RWMutex
	listeners   map[int]Listener
	nextID      int

	log *slog.Logger
}

// New loads every value from backend. A nil backend gives a memory-only
// store. If loading fails the store starts empty and memory-only.
func New(ctx context.Context, backend Backend, log *slog.Logger) *Store {
	if log == nil {
		log = logging.Nop()
	}
	s := &Store{
		values:    make(map[string]json.RawMessage),
		listeners: make(map[int]Listener),
		backend:   backend,
		name:      BackendMemory,
		log:       log,
	}
	if backend == nil {
		return s
	}

	s.name = fmt.Sprintf("%T", backend)
	values, err := backend.Load(ctx)
	if err != nil {
		s.degrade("load", err)
		return s
	}
	for k, v := range values {
		s.values[k] = v
	}
	return s
}

// NewMemory returns a store that never touches disk.
func NewMemory() *Store {
	return New(context.Background(), nil, nil)
}

// Open builds the backend described by cfg and loads it. It never fails:
// problems opening the backend leave a degraded, memory-only store.
func Open(ctx context.Context, cfg Config, log *slog.Logger) *Store {
	if log == nil {
		log = logging.Nop()
	}
	dir := cfg.DataDir
	if dir == "" {
		dir = DefaultDataDir()
	}

	switch cfg.Backend {
	case BackendMemory:
		return New(ctx, nil, log)
	case BackendSQLite:
		b, err := sqlite.Open(ctx, filepath.Join(dir, SQLiteName))
		if err != nil {
			s := New(ctx, nil, log)
			s.name = BackendSQLite
			s.degrade("open", err)
			return s
		}
		return New(ctx, b, log)
	default:
		return New(ctx, file.New(filepath.Join(dir, FileName), log), log)
	}
}

// degrade drops the backend and keeps serving from memory.
// Callers must not hold s.mu for writing when the backend is shared.
func (s *Store) degrade(op string, err error) {
	s.log.Warn("session storage unavailable, continuing in memory",
		"operation", op, "backend", s.name, "error", err)
	if s.backend != nil {
		_ = s.backend.Close()
	}
	s.backend = nil
	s.degraded = true
}

// Degraded reports whether the store has fallen back to memory-only mode.
func (s *Store) Degraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.degraded
}

// Raw returns the encoded value stored under key.
func (s *Store) Raw(key string) (json.RawMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// SetRaw stores an already-encoded value and notifies listeners.
func (s *Store) SetRaw(key string, value json.RawMessage) {
	s.mu.Lock()
	s.values[key] = value
	if s.backend != nil {
		if err := s.backend.Save(context.Background(), key, value); err != nil {
			s.degrade("save", err)
		}
	}
	s.mu.Unlock()

	s.notify(key)
}

// Delete removes key. Subsequent reads return the caller's default.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	_, existed := s.values[key]
	delete(s.values, key)
	if existed && s.backend != nil {
		if err := s.backend.Delete(context.Background(), key); err != nil {
			s.degrade("delete", err)
		}
	}
	s.mu.Unlock()

	if existed {
		s.notify(key)
	}
}

// Keys returns the stored keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Subscribe registers fn for change notifications. Listeners run
// synchronously on the writer's goroutine after the write is visible.
func (s *Store) Subscribe(fn Listener) (cancel func()) {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

func (s *Store) notify(key string) {
	s.listenersMu.RLock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, s.listeners[id])
	}
	s.listenersMu.RUnlock()

	for _, l := range listeners {
		l(key)
	}
}

// Close releases the backend. The store stays readable afterwards.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backend == nil {
		return nil
	}
	err := s.backend.Close()
	s.backend = nil
	return err
}

// Get decodes the value under key into a T. It returns def when the key has
// never been written or its stored value does not decode as T.
func Get[T any](s *Store, key string, def T) T {
	raw, ok := s.Raw(key)
	if !ok {
		return def
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		s.log.Debug("stored value does not decode, using default", "key", key, "error", err)
		return def
	}
	return v
}

// Set encodes value and stores it under key, replacing any previous value.
// Only an encoding failure is returned; storage failures degrade the store.
func Set[T any](s *Store, key string, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", key, err)
	}
	s.SetRaw(key, raw)
	return nil
}
