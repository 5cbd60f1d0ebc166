// Package sqlitedoc implements port.DocumentStore on an embedded SQLite
// database. Every record is a whole-object JSON document under a string
// key, mirroring the key-value layout the ledger was designed around.
package sqlitedoc

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

var tracer = otel.Tracer("sqlitedoc")

// Store is a SQLite-backed document store.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Whole-document writes from a single process; one writer is enough.
	db.SetMaxOpenConns(1)

	schema := `CREATE TABLE IF NOT EXISTS documents (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable, for readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Load unmarshals the document at key into out. Returns false when absent.
func (s *Store) Load(ctx context.Context, key string, out any) (bool, error) {
	ctx, span := tracer.Start(ctx, "Store.Load")
	defer span.End()
	span.SetAttributes(attribute.String("doc.key", key))

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM documents WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		s.logger.Error("sqlitedoc: load failed", zap.String("key", key), zap.Error(err))
		return false, fmt.Errorf("load %q: %w", key, err)
	}

	if err := json.Unmarshal([]byte(value), out); err != nil {
		s.logger.Error("sqlitedoc: corrupt document", zap.String("key", key), zap.Error(err))
		return false, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

// Save marshals doc and upserts it at key.
func (s *Store) Save(ctx context.Context, key string, doc any) error {
	ctx, span := tracer.Start(ctx, "Store.Save")
	defer span.End()
	span.SetAttributes(attribute.String("doc.key", key))

	value, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(value), time.Now().UTC(),
	)
	if err != nil {
		s.logger.Error("sqlitedoc: save failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("save %q: %w", key, err)
	}

	s.logger.Debug("sqlitedoc: saved document",
		zap.String("key", key),
		zap.Int("bytes", len(value)),
	)
	return nil
}

// Delete removes the document at key. Absent keys are a no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	ctx, span := tracer.Start(ctx, "Store.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("doc.key", key))

	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE key = ?`, key); err != nil {
		s.logger.Error("sqlitedoc: delete failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}
