// Package state persists the last observed snapshot between runs.
package state

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"mspro-labs/stock-watch/internal/config"
	"mspro-labs/stock-watch/internal/core/errx"
	"mspro-labs/stock-watch/internal/models"
)

// Store loads and saves the snapshot baseline. LoadPrevious never fails: a
// missing or unreadable record is treated as "nothing was available".
type Store interface {
	LoadPrevious(ctx context.Context) models.Snapshot
	SaveCurrent(ctx context.Context, snap models.Snapshot) error
	Reset(ctx context.Context) error
	Close() error
}

// NotificationLog is implemented by stores that also remember what was
// delivered.
type NotificationLog interface {
	MarkNotified(ctx context.Context, runID string, delta models.Delta) error
	Recent(ctx context.Context, limit int) ([]NotificationRecord, error)
}

// NotificationRecord is one delivered (store, product) pair.
type NotificationRecord struct {
	RunID      string
	Store      models.StoreID
	Product    models.ProductID
	NotifiedAt time.Time
}

// Open returns the backend named by cfg.StateBackend.
func Open(ctx context.Context, cfg config.AppConfig) (Store, error) {
	switch cfg.StateBackend {
	case "", "file":
		return NewFileStore(cfg.StatePath), nil
	case "sqlite":
		path := cfg.StatePath
		if filepath.Ext(path) == ".json" {
			path = strings.TrimSuffix(path, ".json") + ".db"
		}
		s, err := Connect(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis":
		s, err := NewRedisStore(ctx, cfg.RedisURL, cfg.RedisKey)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, errx.Config("open state", fmt.Errorf("unknown state backend %q", cfg.StateBackend))
	}
}
