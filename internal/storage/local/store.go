package local

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Store provides thread-safe JSON file storage. Records live at
// <basePath>/<collection>/<id>.json; collections may be nested with "/".
type Store struct {
	basePath string
	mu       sync.RWMutex
}

// NewStore creates a new local JSON store
func NewStore(basePath string) (*Store, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &Store{basePath: basePath}, nil
}

func (s *Store) path(collection, id string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(collection), id+".json")
}

// Save persists data to a JSON file. The file is written next to its final
// name and renamed into place so readers never see a partial record.
func (s *Store) Save(collection, id string, data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.basePath, filepath.FromSlash(collection))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create collection directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+id+".*.tmp")
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("encode json: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path(collection, id)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}

// Load reads data from a JSON file
func (s *Store) Load(collection, id string, data any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := os.Open(s.path(collection, id))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(data); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}

	return nil
}

// List returns all IDs in a collection, sorted
func (s *Store) List(collection string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(s.basePath, filepath.FromSlash(collection)))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read directory: %w", err)
	}

	ids := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if filepath.Ext(name) == ".json" {
			ids = append(ids, strings.TrimSuffix(name, ".json"))
		}
	}
	sort.Strings(ids)

	return ids, nil
}

// Collections returns the names of the collections nested under parent, sorted
func (s *Store) Collections(parent string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(s.basePath, filepath.FromSlash(parent)))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read directory: %w", err)
	}

	names := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	return names, nil
}

// Exists checks if a record exists
func (s *Store) Exists(collection, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.path(collection, id))
	return err == nil
}
