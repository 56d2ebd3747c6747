package storage

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/IshaanNene/gameharvest/internal/config"
	"github.com/IshaanNene/gameharvest/internal/types"
)

// Storage is the interface for catalog export backends.
type Storage interface {
	// Store persists a batch of catalog records.
	Store(records []types.TargetGameRecord) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// New creates the export backend selected by cfg.Storage.Type.
func New(cfg *config.StorageConfig, logger *slog.Logger) (Storage, error) {
	switch cfg.Type {
	case "json":
		return NewJSONStorage(filepath.Join(cfg.OutputDir, "catalog.json"), logger)
	case "jsonl":
		return NewJSONLStorage(filepath.Join(cfg.OutputDir, "catalog.jsonl"), logger)
	case "csv":
		return NewCSVStorage(filepath.Join(cfg.OutputDir, "catalog.csv"), logger)
	case "mongo":
		return NewMongoStorage(cfg.MongoURI, cfg.MongoDatabase, "games", logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
