package db

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open opens (creating if absent) a sqlite store at the given filesystem path.
// Each store is an independent database file; there are no transactions
// spanning two stores.
func Open(path string, logger gormlogger.Interface) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("store path is required")
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", dir, err)
		}
	}

	cfg := &gorm.Config{}
	if logger != nil {
		cfg.Logger = logger
	}

	conn, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	return conn, nil
}

var memSeq atomic.Int64

// OpenInMemory opens a private in-memory sqlite database, used by tests.
// Shared cache keeps the database alive across the pool's connections.
func OpenInMemory() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:mem%d?mode=memory&cache=shared", memSeq.Add(1))
	return gorm.Open(sqlite.Open(dsn), &gorm.Config{})
}
