package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // Import for side-effects only

	"mspro-labs/stock-watch/internal/core/errx"
	"mspro-labs/stock-watch/internal/logx"
	"mspro-labs/stock-watch/internal/models"
)

// SQLiteStore keeps the snapshot and a log of delivered notifications.
type SQLiteStore struct {
	db *sql.DB
}

// Connect opens the SQLite database and ensures the schema exists.
func Connect(dbPath string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("%s?_busy_timeout=5000&_journal_mode=WAL", dbPath)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errx.State("open database", err)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, errx.State("ping database", err)
	}

	if err = createSchema(db); err != nil {
		db.Close()
		return nil, errx.State("ensure schema", err)
	}

	return &SQLiteStore{db: db}, nil
}

func createSchema(db *sql.DB) error {
	snapshotTable := `
	CREATE TABLE IF NOT EXISTS snapshot (
	  store TEXT NOT NULL,
	  product TEXT,
	  status TEXT,
	  observed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_snapshot_store ON snapshot(store);
	`
	if _, err := db.Exec(snapshotTable); err != nil {
		return err
	}

	notificationTable := `
	CREATE TABLE IF NOT EXISTS notification (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  run_id TEXT NOT NULL,
	  store TEXT NOT NULL,
	  product TEXT NOT NULL,
	  notified_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_notification_run ON notification(run_id);
	`
	if _, err := db.Exec(notificationTable); err != nil {
		return err
	}

	return nil
}

// LoadPrevious reads the snapshot rows. A store with no products is stored
// as a single row with a NULL product.
func (s *SQLiteStore) LoadPrevious(ctx context.Context) models.Snapshot {
	rows, err := s.db.QueryContext(ctx, `SELECT store, product, status FROM snapshot`)
	if err != nil {
		logx.Warn().Err(err).Msg("cannot read previous state, starting empty")
		return models.Snapshot{}
	}
	defer rows.Close()

	snap := make(models.Snapshot)
	for rows.Next() {
		var store string
		var product, status sql.NullString
		if err := rows.Scan(&store, &product, &status); err != nil {
			logx.Warn().Err(err).Msg("corrupt snapshot row, starting empty")
			return models.Snapshot{}
		}
		sid := models.StoreID(store)
		if snap[sid] == nil {
			snap[sid] = make(map[models.ProductID]models.Status)
		}
		if product.Valid {
			snap[sid][models.ProductID(product.String)] = models.ParseStatus(status.String)
		}
	}
	if err := rows.Err(); err != nil {
		logx.Warn().Err(err).Msg("cannot read previous state, starting empty")
		return models.Snapshot{}
	}
	return snap
}

// SaveCurrent replaces all snapshot rows in one transaction.
func (s *SQLiteStore) SaveCurrent(ctx context.Context, snap models.Snapshot) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errx.State("save snapshot", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot`); err != nil {
		return errx.State("save snapshot", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO snapshot (store, product, status) VALUES (?, ?, ?)`)
	if err != nil {
		return errx.State("save snapshot", err)
	}
	defer stmt.Close()

	for store, products := range snap {
		if len(products) == 0 {
			if _, err := stmt.ExecContext(ctx, string(store), nil, nil); err != nil {
				return errx.State("save snapshot", fmt.Errorf("store %s: %w", store, err))
			}
			continue
		}
		for product, status := range products {
			if _, err := stmt.ExecContext(ctx, string(store), string(product), status.String()); err != nil {
				return errx.State("save snapshot", fmt.Errorf("%s in %s: %w", product, store, err))
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return errx.State("save snapshot", err)
	}
	return nil
}

// Reset removes the stored snapshot. The notification log is kept.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshot`); err != nil {
		return errx.State("reset snapshot", err)
	}
	return nil
}

// MarkNotified records every item of a delivered delta under runID.
func (s *SQLiteStore) MarkNotified(ctx context.Context, runID string, delta models.Delta) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errx.State("mark notified", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO notification (run_id, store, product) VALUES (?, ?, ?)`)
	if err != nil {
		return errx.State("mark notified", err)
	}
	defer stmt.Close()

	for _, item := range delta.Items() {
		if _, err := stmt.ExecContext(ctx, runID, string(item.Store), string(item.Product)); err != nil {
			return errx.State("mark notified", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errx.State("mark notified", err)
	}
	return nil
}

// Recent returns the latest notification records, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]NotificationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, store, product, notified_at
		FROM notification
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, errx.State("list notifications", err)
	}
	defer rows.Close()

	var records []NotificationRecord
	for rows.Next() {
		var r NotificationRecord
		var store, product string
		if err := rows.Scan(&r.RunID, &store, &product, &r.NotifiedAt); err != nil {
			return nil, errx.State("list notifications", err)
		}
		r.Store = models.StoreID(store)
		r.Product = models.ProductID(product)
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
