package seed

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/maeknit/dashboard/internal/db"
	"github.com/maeknit/dashboard/internal/migrations"
	"github.com/maeknit/dashboard/internal/settings"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := db.Open(db.DriverSQLite, filepath.Join(t.TempDir(), "seed-test.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := migrations.Up(database.DB, db.DriverSQLite); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return database
}

func TestRunIsIdempotent(t *testing.T) {
	database := openTestDB(t)
	variants := settings.Variants()

	for i := 0; i < 10; i++ {
		stats, err := Run(database, variants)
		if err != nil {
			t.Fatalf("run seed (iteration=%d): %v", i, err)
		}
		if i == 0 {
			if stats.Inserts != len(variants) {
				t.Fatalf("expected %d inserts in first run, got %d", len(variants), stats.Inserts)
			}
			continue
		}
		if stats.Inserts != 0 {
			t.Fatalf("expected 0 inserts in iteration %d, got %d", i, stats.Inserts)
		}
	}

	var count int
	if err := database.Get(&count, `SELECT COUNT(*) FROM app_settings`); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != len(variants) {
		t.Fatalf("expected count %d, got %d", len(variants), count)
	}
}

func TestRunKeepsExistingDocuments(t *testing.T) {
	database := openTestDB(t)
	store := settings.NewStore(database)
	ctx := context.Background()

	saved := json.RawMessage(`{"teamLabor":1}`)
	if err := store.Save(ctx, settings.Dashboard.Key, saved, settings.Dashboard.Version); err != nil {
		t.Fatalf("save: %v", err)
	}

	stats, err := Run(database, settings.Variants())
	if err != nil {
		t.Fatalf("run seed: %v", err)
	}
	if stats.Skipped != 1 {
		t.Fatalf("expected 1 skipped, got %d", stats.Skipped)
	}

	doc, err := store.Load(ctx, settings.Dashboard.Key)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(doc.Data) != string(saved) {
		t.Fatalf("dashboard document = %s, want %s", doc.Data, saved)
	}

	capacity, err := store.Load(ctx, settings.Capacity.Key)
	if err != nil {
		t.Fatalf("load capacity: %v", err)
	}
	if capacity.SchemaVersion != settings.Capacity.Version {
		t.Fatalf("capacity schema version = %d, want %d", capacity.SchemaVersion, settings.Capacity.Version)
	}
}
