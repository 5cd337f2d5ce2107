// ABOUTME: Shared fixtures for db package tests
// ABOUTME: Opens a temp-file database per test and builds prospects, cycles and messages
package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/canvass/models"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := OpenDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db)
}

func newProspect(handle string) *models.Prospect {
	return &models.Prospect{Handle: handle, Category: models.CategoryCoffeeShop}
}

func mustProspect(t *testing.T, s *Store, handle string) *models.Prospect {
	t.Helper()
	p := newProspect(handle)
	require.NoError(t, s.CreateProspect(context.Background(), p))
	return p
}

func mustCycle(t *testing.T, s *Store, prospectID uuid.UUID, staffID int64, status models.CycleStatus) *models.Cycle {
	t.Helper()
	c := &models.Cycle{
		ProspectID:   prospectID,
		StaffID:      staffID,
		StartDate:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		CurrentStage: 0,
		Status:       status,
	}
	require.NoError(t, s.CreateCycle(context.Background(), c))
	return c
}

func mustMessage(t *testing.T, s *Store, cycleID uuid.UUID, stage int, hash, ocrHandle string, submitted time.Time) *models.Message {
	t.Helper()
	m := &models.Message{
		CycleID:        cycleID,
		Stage:          stage,
		Category:       models.CategoryCoffeeShop,
		ScreenshotKey:  "screenshots/" + hash + ".png",
		ScreenshotHash: hash,
		OCRHandle:      ocrHandle,
		SubmittedAt:    submitted,
	}
	require.NoError(t, s.CreateMessage(context.Background(), m))
	return m
}
