package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tendant/simple-usermgmt/pkg/password"
)

const dataFileName = "usermgmt.json"

// FileStore is an InMemoryStore whose contents are written to a JSON file in
// dataDir after every mutation.
type FileStore struct {
	*InMemoryStore
	dataDir string
}

// NewFileStore creates a new file-based store, loading any existing data
func NewFileStore(dataDir string, hasher password.Hasher) (*FileStore, error) {
	// Create data directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	fs := &FileStore{
		InMemoryStore: NewInMemoryStore(hasher),
		dataDir:       dataDir,
	}

	if err := fs.load(); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}
	fs.InMemoryStore.persist = fs.save

	return fs, nil
}

func (fs *FileStore) load() error {
	filePath := filepath.Join(fs.dataDir, dataFileName)

	data, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	// If file is empty, start with empty data
	if len(data) == 0 {
		return nil
	}

	loaded := newMemData()
	if err := json.Unmarshal(data, loaded); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}
	if loaded.Users == nil || loaded.Roles == nil || loaded.UserRoles == nil {
		empty := newMemData()
		if loaded.Users != nil {
			empty.Users = loaded.Users
		}
		if loaded.Roles != nil {
			empty.Roles = loaded.Roles
		}
		if loaded.UserRoles != nil {
			empty.UserRoles = loaded.UserRoles
		}
		loaded = empty
	}

	fs.InMemoryStore.data = loaded
	return nil
}

// save writes data to file atomically
func (fs *FileStore) save(d *memData) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	tempFile := filepath.Join(fs.dataDir, dataFileName+".tmp")
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	finalFile := filepath.Join(fs.dataDir, dataFileName)
	if err := os.Rename(tempFile, finalFile); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}
