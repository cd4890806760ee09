// Package file is a kvstore backend that keeps every key in a single JSON
// document on disk.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Backend stores a map of raw JSON values in one file. Every write rewrites
// the document atomically (temp file, then rename).
type Backend struct {
	path string
	doc  map[string]json.RawMessage
	log  *slog.Logger
}

// New returns a backend for the document at path. Nothing is read or
// created until Load.
func New(path string, log *slog.Logger) *Backend {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Backend{
		path: path,
		doc:  make(map[string]json.RawMessage),
		log:  log,
	}
}

// Load ensures the directory exists and reads the document. A missing file is
// an empty store. A document that is not valid JSON is moved aside to
// <path>.corrupt and treated as empty.
func (b *Backend) Load(_ context.Context) (map[string]json.RawMessage, error) {
	if err := os.MkdirAll(filepath.Dir(b.path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			b.doc = make(map[string]json.RawMessage)
			return copyDoc(b.doc), nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", b.path, err)
	}

	doc := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &doc); err != nil {
		b.log.Warn("session document is corrupt, starting fresh", "path", b.path, "error", err)
		_ = os.Rename(b.path, b.path+".corrupt")
		doc = make(map[string]json.RawMessage)
	}
	b.doc = doc
	return copyDoc(b.doc), nil
}

// Save sets key and rewrites the document.
func (b *Backend) Save(_ context.Context, key string, value json.RawMessage) error {
	b.doc[key] = value
	return b.write()
}

// Delete removes key and rewrites the document.
func (b *Backend) Delete(_ context.Context, key string) error {
	delete(b.doc, key)
	return b.write()
}

// Close is a no-op; every Save is already durable.
func (b *Backend) Close() error { return nil }

func (b *Backend) write() error {
	data, err := json.MarshalIndent(b.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session document: %w", err)
	}

	tmpFile := b.path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmpFile, b.path); err != nil {
		_ = os.Remove(tmpFile)
		return err
	}
	return nil
}

func copyDoc(doc map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
