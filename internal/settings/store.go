// Package settings persists calculator parameter sets as opaque JSON
// documents keyed by a fixed string, one document per variant.
package settings

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

var (
	// ErrStorage wraps every failure of the underlying database.
	ErrStorage = errors.New("settings storage failure")
	// ErrNotObject is returned when a document is not a JSON object.
	ErrNotObject = errors.New("settings document must be a JSON object")
)

var emptyObject = json.RawMessage(`{}`)

// Document is one stored parameter set. A document that was never saved has
// Data "{}", SchemaVersion 0 and a zero UpdatedAt.
type Document struct {
	Key           string          `json:"key"`
	Data          json.RawMessage `json:"data"`
	SchemaVersion int             `json:"schemaVersion"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Exists reports whether the document was loaded from a stored row.
func (d Document) Exists() bool {
	return d.SchemaVersion > 0
}

// Store reads and writes documents in the app_settings table. Saves are
// full replacements and the last writer wins.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

type row struct {
	Data          string         `db:"data"`
	SchemaVersion int            `db:"schema_version"`
	UpdatedAt     sql.NullString `db:"updated_at"`
}

// Load returns the document stored under key, or an empty document if there
// is none.
func (s *Store) Load(ctx context.Context, key string) (Document, error) {
	var r row
	err := s.db.GetContext(ctx, &r, s.db.Rebind(`
		SELECT data, schema_version, updated_at
		FROM app_settings
		WHERE id = ?
	`), key)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{Key: key, Data: emptyObject}, nil
	}
	if err != nil {
		return Document{}, fmt.Errorf("load %s: %w: %w", key, ErrStorage, err)
	}

	doc := Document{
		Key:           key,
		Data:          json.RawMessage(r.Data),
		SchemaVersion: r.SchemaVersion,
	}
	if r.UpdatedAt.Valid {
		doc.UpdatedAt = parseTimestamp(r.UpdatedAt.String)
	}
	return doc, nil
}

// Save replaces the document stored under key.
func (s *Store) Save(ctx context.Context, key string, data json.RawMessage, version int) error {
	if err := CheckObject(data); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO app_settings (id, data, schema_version, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			data = excluded.data,
			schema_version = excluded.schema_version,
			updated_at = CURRENT_TIMESTAMP
	`), key, string(data), version)
	if err != nil {
		return fmt.Errorf("save %s: %w: %w", key, ErrStorage, err)
	}
	return nil
}

// CheckObject returns ErrNotObject unless data is a single JSON object.
func CheckObject(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return ErrNotObject
	}
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05.999999999-07:00",
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
