package store

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-usermgmt/pkg/password"
)

// Config contains configuration for creating a Store
type Config struct {
	// Pool is required for PostgreSQL stores
	Pool *pgxpool.Pool
	// DataDir is required for file-based stores
	DataDir string
	// Hasher defaults to bcrypt when nil
	Hasher password.Hasher
}

// New creates a store based on the persistence type
func New(persistenceType string, config Config) (Store, error) {
	switch persistenceType {
	case "postgres", "postgresql":
		if config.Pool == nil {
			return nil, fmt.Errorf("pool required for postgres store")
		}
		return NewPostgresStore(config.Pool, config.Hasher), nil
	case "file":
		if config.DataDir == "" {
			return nil, fmt.Errorf("dataDir required for file store")
		}
		return NewFileStore(config.DataDir, config.Hasher)
	case "memory", "inmem":
		return NewInMemoryStore(config.Hasher), nil
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s (supported: postgres, file, memory)", persistenceType)
	}
}
