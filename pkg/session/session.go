// Package session is the application-state container for the console.
//
// It gives typed access to the persisted settings (connection, polling,
// cached users, open sections) on top of a kvstore.Store, and lets
// components subscribe to changes instead of sharing globals.
package session

import (
	"fmt"
	"slices"
	"time"

	"github.com/getmockd/supamocka/pkg/kvstore"
	"github.com/getmockd/supamocka/pkg/supabase"
)

// Store keys.
const (
	KeyConnection      = "api"
	KeyAccordions      = "accordions"
	KeyUsers           = "users"
	KeyPollingInterval = "polling-interval"
	KeyPollingEndpoint = "polling-endpoint"
)

// Defaults.
const (
	DefaultPollingInterval = time.Second
	DefaultPollingEndpoint = "/test"

	// MinPollingInterval is the smallest interval that survives being stored
	// in whole milliseconds.
	MinPollingInterval = time.Millisecond
)

// Section identifiers.
const (
	SectionSettings   = "settings"
	SectionCreateUser = "create-user"
	SectionUsers      = "users"
	SectionPolling    = "polling"
)

// Sections lists every section in display order.
var Sections = []string{SectionSettings, SectionCreateUser, SectionUsers, SectionPolling}

// DefaultOpenSections is the open set on first run.
var DefaultOpenSections = []string{SectionSettings}

// ConnectionSettings locates a project and holds its keys. No field is
// validated; bad values surface as request failures.
type ConnectionSettings struct {
	URL       string `json:"url"`
	PublicKey string `json:"publicKey"`
	SecretKey string `json:"secretKey"`
}

// PollingConfig drives the REST poller.
type PollingConfig struct {
	Interval time.Duration
	Endpoint string
}

// State is the shared, persisted application state.
type State struct {
	store *kvstore.Store
}

// New wraps store.
func New(store *kvstore.Store) *State {
	return &State{store: store}
}

// Store exposes the underlying key-value store.
func (s *State) Store() *kvstore.Store { return s.store }

// Connection returns the current connection settings.
func (s *State) Connection() ConnectionSettings {
	return kvstore.Get(s.store, KeyConnection, ConnectionSettings{})
}

// SetConnection replaces the connection settings.
func (s *State) SetConnection(c ConnectionSettings) error {
	return kvstore.Set(s.store, KeyConnection, c)
}

// UpdateConnection reads the settings, applies fn and writes the result back
// as one value.
func (s *State) UpdateConnection(fn func(*ConnectionSettings)) (ConnectionSettings, error) {
	c := s.Connection()
	fn(&c)
	return c, s.SetConnection(c)
}

// Polling returns the persisted polling config.
func (s *State) Polling() PollingConfig {
	ms := kvstore.Get(s.store, KeyPollingInterval, DefaultPollingInterval.Milliseconds())
	return PollingConfig{
		Interval: time.Duration(ms) * time.Millisecond,
		Endpoint: kvstore.Get(s.store, KeyPollingEndpoint, DefaultPollingEndpoint),
	}
}

// ValidatePollingInterval rejects intervals that would be stored as zero or
// less.
func ValidatePollingInterval(d time.Duration) error {
	if d < MinPollingInterval {
		return fmt.Errorf("interval must be at least %s, got %s", MinPollingInterval, d)
	}
	return nil
}

// SetPollingInterval persists d, stored as whole milliseconds.
func (s *State) SetPollingInterval(d time.Duration) error {
	return kvstore.Set(s.store, KeyPollingInterval, d.Milliseconds())
}

// SetPollingEndpoint persists the probe path.
func (s *State) SetPollingEndpoint(path string) error {
	return kvstore.Set(s.store, KeyPollingEndpoint, path)
}

// Users returns the cached user list.
func (s *State) Users() []supabase.User {
	return kvstore.Get(s.store, KeyUsers, []supabase.User{})
}

// ReplaceUsers overwrites the cached user list.
func (s *State) ReplaceUsers(users []supabase.User) error {
	if users == nil {
		users = []supabase.User{}
	}
	return kvstore.Set(s.store, KeyUsers, users)
}

// OpenSections returns the open section identifiers in stored order.
func (s *State) OpenSections() []string {
	return kvstore.Get(s.store, KeyAccordions, slices.Clone(DefaultOpenSections))
}

// SetOpenSections replaces the open set, dropping duplicates.
func (s *State) SetOpenSections(ids []string) error {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return kvstore.Set(s.store, KeyAccordions, out)
}

// IsOpen reports whether section id is open.
func (s *State) IsOpen(id string) bool {
	return slices.Contains(s.OpenSections(), id)
}

// Reset forgets every persisted setting.
func (s *State) Reset() {
	for _, key := range s.store.Keys() {
		s.store.Delete(key)
	}
}

// Subscribe calls fn after any of keys changes. With no keys, fn sees every
// change.
func (s *State) Subscribe(fn func(key string), keys ...string) (cancel func()) {
	return s.store.Subscribe(func(key string) {
		if len(keys) == 0 || slices.Contains(keys, key) {
			fn(key)
		}
	})
}
