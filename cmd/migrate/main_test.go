// ABOUTME: Tests for the migration utility
// ABOUTME: Runs migrations against seeded legacy databases in temp directories
package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/canvass/db"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func legacyDatabase(t *testing.T, statuses ...string) (string, []uuid.UUID) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "canvass.db")
	database, err := db.Connect(path)
	require.NoError(t, err)
	defer func() { _ = database.Close() }()
	require.NoError(t, db.InitTables(database))

	prospect := uuid.New()
	now := time.Now().UTC()
	_, err = database.Exec(`INSERT INTO prospects (id, handle, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		prospect, "kopi_senja88", now, now)
	require.NoError(t, err)

	var ids []uuid.UUID
	for _, status := range statuses {
		id := uuid.New()
		_, err := database.Exec(`
			INSERT INTO canvassing_cycles (id, prospect_id, staff_id, start_date, status, created_at, updated_at)
			VALUES (?, ?, 7, ?, ?, ?, ?)
		`, id, prospect, now, status, now, now)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return path, ids
}

func statusOf(t *testing.T, path string, id uuid.UUID) string {
	t.Helper()
	database, err := sqlx.Open("sqlite3", path)
	require.NoError(t, err)
	defer func() { _ = database.Close() }()
	var status string
	require.NoError(t, database.Get(&status, `SELECT status FROM canvassing_cycles WHERE id = ?`, id))
	return status
}

func TestMigrateNormalizesAndInstallsConstraints(t *testing.T) {
	path, ids := legacyDatabase(t, "Menerima", "Sedang Berlangsung")

	require.NoError(t, migrate(context.Background(), zap.NewNop(), path, false, true))
	assert.Equal(t, "converted", statusOf(t, path, ids[0]))
	assert.Equal(t, "ongoing", statusOf(t, path, ids[1]))

	backups, err := filepath.Glob(path + ".backup.*")
	require.NoError(t, err)
	assert.Len(t, backups, 1)

	// the schema now opens cleanly with its constraints
	database, err := db.OpenDatabase(path)
	require.NoError(t, err)
	_ = database.Close()
}

func TestMigrateDryRunWritesNothing(t *testing.T) {
	path, ids := legacyDatabase(t, "Menerima")

	require.NoError(t, migrate(context.Background(), zap.NewNop(), path, true, true))
	assert.Equal(t, "Menerima", statusOf(t, path, ids[0]))

	backups, err := filepath.Glob(path + ".backup.*")
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestMigrateStopsOnConflicts(t *testing.T) {
	path, _ := legacyDatabase(t, "Aktif", "Sedang Berlangsung")

	err := migrate(context.Background(), zap.NewNop(), path, false, false)
	assert.ErrorIs(t, err, errConflicts)
}

func TestMigrateMissingDatabase(t *testing.T) {
	err := migrate(context.Background(), zap.NewNop(), filepath.Join(t.TempDir(), "nope.db"), false, false)
	assert.Error(t, err)
}

func TestCopyFileRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a")
	dst := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(src, []byte("data"), 0644))
	require.NoError(t, copyFile(src, dst))
	assert.Error(t, copyFile(src, dst))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "data", string(got))
}
