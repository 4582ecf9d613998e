package settings

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maeknit/dashboard/internal/db"
	"github.com/maeknit/dashboard/internal/migrations"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	database, err := db.Open(db.DriverSQLite, filepath.Join(t.TempDir(), "settings-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, migrations.Up(database.DB, db.DriverSQLite))
	return NewStore(database)
}

func TestLoad_MissingKeyReturnsEmptyObject(t *testing.T) {
	store := newTestStore(t)

	doc, err := store.Load(context.Background(), Dashboard.Key)
	require.NoError(t, err)

	assert.JSONEq(t, `{}`, string(doc.Data))
	assert.False(t, doc.Exists())
	assert.True(t, doc.UpdatedAt.IsZero())
}

func TestSaveLoad_RoundTripsArbitraryObject(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	data := json.RawMessage(`{"teamLabor":50684,"rent":null,"legacyField":"kept","nested":{"list":[1,2.5,null]}}`)
	require.NoError(t, store.Save(ctx, Garment.Key, data, Garment.Version))

	doc, err := store.Load(ctx, Garment.Key)
	require.NoError(t, err)

	assert.JSONEq(t, string(data), string(doc.Data))
	assert.Equal(t, Garment.Version, doc.SchemaVersion)
	assert.True(t, doc.Exists())
	assert.False(t, doc.UpdatedAt.IsZero())
}

func TestSave_OverwritesWholeDocument(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, Capacity.Key, json.RawMessage(`{"numStaff":5,"numShifts":"1"}`), 1))
	require.NoError(t, store.Save(ctx, Capacity.Key, json.RawMessage(`{"numStaff":7}`), Capacity.Version))

	doc, err := store.Load(ctx, Capacity.Key)
	require.NoError(t, err)

	assert.JSONEq(t, `{"numStaff":7}`, string(doc.Data))
	assert.Equal(t, 2, doc.SchemaVersion)
}

func TestSave_KeysAreIndependent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, ROI.Key, json.RawMessage(`{"machineCost":1}`), ROI.Version))

	doc, err := store.Load(ctx, Pricing.Key)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(doc.Data))
}

func TestSave_RejectsNonObject(t *testing.T) {
	store := newTestStore(t)

	for _, body := range []string{`[1,2]`, `"text"`, `42`, `null`, ``, `{"open":`} {
		err := store.Save(context.Background(), Dashboard.Key, json.RawMessage(body), Dashboard.Version)
		assert.ErrorIs(t, err, ErrNotObject, "body %q", body)
	}
}

func TestStore_WrapsDatabaseErrors(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	store := NewStore(sqlx.NewDb(conn, db.DriverSQLite))
	boom := errors.New("disk I/O error")

	mock.ExpectQuery("SELECT data, schema_version, updated_at").
		WithArgs(Dashboard.Key).
		WillReturnError(boom)
	mock.ExpectExec("INSERT INTO app_settings").
		WillReturnError(boom)

	_, err = store.Load(context.Background(), Dashboard.Key)
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, boom)

	err = store.Save(context.Background(), Dashboard.Key, json.RawMessage(`{}`), 1)
	assert.ErrorIs(t, err, ErrStorage)

	assert.NoError(t, mock.ExpectationsWereMet())
}
