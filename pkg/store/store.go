// Package store persists per-firm rule bundles as JSON documents on disk,
// one file per firm, with a read-through cache in front.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"clearpath-hq/sentinel/pkg/rules"
)

// NormalizeFirmName maps a display name to its storage key: lowercased,
// trimmed, interior whitespace runs collapsed to single underscores.
// "Acme Corp" and "acme   corp" share one file.
func NormalizeFirmName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "_")
}

// Store is a filesystem-backed bundle store. Save replaces a firm's whole
// document atomically; Load serves from cache after the first disk read.
type Store struct {
	dir    string
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]*rules.RulesBundle
}

// New creates a store rooted at dir, creating the directory if needed.
func New(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create rules directory %q: %w", dir, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		dir:    dir,
		logger: logger.With("component", "store"),
		cache:  make(map[string]*rules.RulesBundle),
	}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) pathFor(firmName string) string {
	return filepath.Join(s.dir, NormalizeFirmName(firmName)+"_rules.json")
}

// Save validates the bundle and writes it as a pretty-printed JSON document
// via write-then-rename, so readers never observe a torn file. The cache is
// updated under the same lock.
func (s *Store) Save(ctx context.Context, bundle *rules.RulesBundle) error {
	if err := bundle.Validate(); err != nil {
		return fmt.Errorf("refusing to persist invalid bundle: %w", err)
	}

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode bundle for %q: %w", bundle.FirmName, err)
	}

	path := s.pathFor(bundle.FirmName)
	tmp, err := os.CreateTemp(s.dir, ".rules-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write bundle: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to flush bundle: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %q: %w", path, err)
	}

	s.mu.Lock()
	s.cache[NormalizeFirmName(bundle.FirmName)] = bundle
	s.mu.Unlock()

	s.logger.Info("bundle persisted",
		"firm", bundle.FirmName, "rules", len(bundle.Rules), "path", path)
	return nil
}

// Load returns the firm's bundle, or (nil, nil) when the firm has never
// been ingested. The first disk read populates the cache.
func (s *Store) Load(ctx context.Context, firmName string) (*rules.RulesBundle, error) {
	key := NormalizeFirmName(firmName)

	s.mu.RLock()
	bundle, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return bundle, nil
	}

	data, err := os.ReadFile(s.pathFor(firmName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read bundle for %q: %w", firmName, err)
	}

	bundle = &rules.RulesBundle{}
	if err := json.Unmarshal(data, bundle); err != nil {
		return nil, fmt.Errorf("corrupt bundle for %q: %w", firmName, err)
	}

	s.mu.Lock()
	s.cache[key] = bundle
	s.mu.Unlock()
	return bundle, nil
}

// ListFirms returns the normalized firm keys present on disk.
func (s *Store) ListFirms(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules directory: %w", err)
	}
	var firms []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, "_rules.json") {
			continue
		}
		firms = append(firms, strings.TrimSuffix(name, "_rules.json"))
	}
	return firms, nil
}

// Invalidate drops a firm's cache entry. Accepts either a display name or
// an already-normalized key.
func (s *Store) Invalidate(firmName string) {
	s.mu.Lock()
	delete(s.cache, NormalizeFirmName(firmName))
	s.mu.Unlock()
}
