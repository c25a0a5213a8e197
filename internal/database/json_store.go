package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

const jsonStoreVersion = 1

// JSONData represents the structure of the JSON file
type JSONData struct {
	Version int               `json:"version"`
	Entries map[string]string `json:"entries"`
}

// JSONStore is a JSON file-based KV store. Every write rewrites the file atomically.
type JSONStore struct {
	filePath string
	data     *JSONData
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewJSONStore opens (or creates) the store at filePath
func NewJSONStore(filePath string, logger *slog.Logger) (*JSONStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	logger.Info("using JSON data file", "path", filePath)

	store := &JSONStore{
		filePath: filePath,
		data:     &JSONData{},
		logger:   logger,
	}

	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *JSONStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		s.data = &JSONData{Version: jsonStoreVersion, Entries: map[string]string{}}
		return s.saveUnlocked()
	}
	if err != nil {
		return fmt.Errorf("failed to read data file: %w", err)
	}

	if err := json.Unmarshal(data, s.data); err != nil {
		return fmt.Errorf("failed to parse data file: %w", err)
	}
	if s.data.Entries == nil {
		s.data.Entries = map[string]string{}
	}
	if s.data.Version == 0 {
		s.data.Version = jsonStoreVersion
	}

	s.logger.Info("loaded data file", "entries", len(s.data.Entries))
	return nil
}

func (s *JSONStore) saveUnlocked() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	// Write to temp file first, then rename (atomic)
	tmpFile := s.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

func (s *JSONStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data.Entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return []byte(v), nil
}

func (s *JSONStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.data.Entries[key]
	s.data.Entries[key] = string(value)
	if err := s.saveUnlocked(); err != nil {
		if existed {
			s.data.Entries[key] = prev
		} else {
			delete(s.data.Entries, key)
		}
		return err
	}
	return nil
}

func (s *JSONStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.data.Entries[key]
	if !existed {
		return nil
	}
	delete(s.data.Entries, key)
	if err := s.saveUnlocked(); err != nil {
		s.data.Entries[key] = prev
		return err
	}
	return nil
}

// Close is a no-op for JSON store (data is saved after each operation)
func (s *JSONStore) Close() error {
	return nil
}

// HealthCheck verifies the data file is still readable
func (s *JSONStore) HealthCheck(ctx context.Context) error {
	if _, err := os.Stat(s.filePath); err != nil {
		return fmt.Errorf("data file unavailable: %w", err)
	}
	return nil
}
