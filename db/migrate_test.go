// ABOUTME: Tests for legacy status normalization
// ABOUTME: Seeds raw legacy rows and checks dry-run, rewrite, logging and conflict reporting
package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/canvass/models"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func legacyDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := Connect(filepath.Join(t.TempDir(), "legacy.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, InitTables(db))
	return db
}

func seedCycle(t *testing.T, db *sqlx.DB, prospectID uuid.UUID, staffID int64, status string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	now := time.Now().UTC()
	_, err := db.Exec(`
		INSERT INTO canvassing_cycles (id, prospect_id, staff_id, start_date, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, prospectID, staffID, now, status, now, now)
	require.NoError(t, err)
	return id
}

func seedProspect(t *testing.T, db *sqlx.DB, handle string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	now := time.Now().UTC()
	_, err := db.Exec(`INSERT INTO prospects (id, handle, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		id, handle, now, now)
	require.NoError(t, err)
	return id
}

func TestNormalizeStatuses(t *testing.T) {
	db := legacyDB(t)
	ctx := context.Background()
	p := seedProspect(t, db, "kopi_senja88")
	ongoing := seedCycle(t, db, p, 1, "Sedang Berlangsung")
	converted := seedCycle(t, db, p, 2, "completed")
	seedCycle(t, db, p, 3, "active")
	unknown := seedCycle(t, db, p, 4, "mystery")

	changes, err := NormalizeStatuses(ctx, db, true)
	require.NoError(t, err)
	require.Len(t, changes, 3)
	assert.Equal(t, StatusChange{CycleID: ongoing, From: "Sedang Berlangsung", To: models.StatusOngoing}, changes[0])
	assert.Equal(t, StatusChange{CycleID: converted, From: "completed", To: models.StatusConverted}, changes[1])
	assert.Equal(t, StatusChange{CycleID: unknown, From: "mystery", Unknown: true}, changes[2])

	var raw string
	require.NoError(t, db.Get(&raw, `SELECT status FROM canvassing_cycles WHERE id = ?`, ongoing))
	assert.Equal(t, "Sedang Berlangsung", raw, "dry run must not write")

	_, err = NormalizeStatuses(ctx, db, false)
	require.NoError(t, err)
	require.NoError(t, db.Get(&raw, `SELECT status FROM canvassing_cycles WHERE id = ?`, ongoing))
	assert.Equal(t, "ongoing", raw)

	var logged int
	require.NoError(t, db.Get(&logged, `SELECT COUNT(*) FROM cycle_status_logs`))
	assert.Equal(t, 2, logged)

	again, err := NormalizeStatuses(ctx, db, false)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.True(t, again[0].Unknown)
}

func TestActiveConflictsBlockIndex(t *testing.T) {
	db := legacyDB(t)
	ctx := context.Background()
	p := seedProspect(t, db, "warung_ibu_sari")
	seedCycle(t, db, p, 7, "aktif")
	seedCycle(t, db, p, 7, "in progress")

	_, err := NormalizeStatuses(ctx, db, false)
	require.NoError(t, err)

	conflicts, err := ActiveConflicts(ctx, db)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, ActiveConflict{ProspectID: p, StaffID: 7, Count: 2}, conflicts[0])

	assert.Error(t, InitSchema(db))
}
