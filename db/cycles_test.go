// ABOUTME: Tests for canvassing cycle queries
// ABOUTME: Covers the one-open-cycle constraint, lookups, listings and status logs
package db

import (
	"context"
	"testing"
	"time"

	"github.com/harperreed/canvass/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOneOpenCyclePerProspectAndStaff(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := mustProspect(t, s, "kopi_senja88")
	first := mustCycle(t, s, p.ID, 7, models.StatusActive)

	dup := &models.Cycle{ProspectID: p.ID, StaffID: 7, StartDate: time.Now(), Status: models.StatusOngoing}
	err := s.CreateCycle(ctx, dup)
	assert.ErrorIs(t, err, ErrDuplicateCycle)

	// another staff member may canvass the same prospect
	mustCycle(t, s, p.ID, 8, models.StatusActive)

	first.Status = models.StatusRejected
	require.NoError(t, s.UpdateCycle(ctx, first))
	mustCycle(t, s, p.ID, 7, models.StatusActive)
}

func TestActiveAndLatestCycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := mustProspect(t, s, "warung_ibu_sari")

	none, err := s.LatestCycle(ctx, p.ID, 7)
	require.NoError(t, err)
	assert.Nil(t, none)

	c := mustCycle(t, s, p.ID, 7, models.StatusActive)
	active, err := s.ActiveCycle(ctx, p.ID, 7)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, c.ID, active.ID)
	assert.Equal(t, models.StatusActive, active.Status)

	c.Status = models.StatusConverted
	require.NoError(t, s.UpdateCycle(ctx, c))

	active, err = s.ActiveCycle(ctx, p.ID, 7)
	require.NoError(t, err)
	assert.Nil(t, active)

	latest, err := s.LatestCycle(ctx, p.ID, 7)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, models.StatusConverted, latest.Status)
}

func TestUpdateCycleRoundTripsFollowupFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := mustProspect(t, s, "bakso_pakde_solo")
	c := mustCycle(t, s, p.ID, 3, models.StatusActive)

	submitted := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	c.CurrentStage = 1
	c.AdvanceFollowup(1, submitted)
	c.ApplyOutcome(models.OutcomeInterested)
	require.NoError(t, s.UpdateCycle(ctx, c))

	got, err := s.GetCycle(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.CurrentStage)
	assert.Equal(t, models.StatusOngoing, got.Status)
	assert.Equal(t, "Follow Up 2", got.NextAction)
	require.NotNil(t, got.LastFollowupDate)
	require.NotNil(t, got.NextFollowupDate)
	assert.True(t, submitted.Equal(*got.LastFollowupDate))
	assert.True(t, submitted.AddDate(0, 0, 1).Equal(*got.NextFollowupDate))
}

func TestLegacyStatusReadsNormalized(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := mustProspect(t, s, "legacy_toko_lama")
	c := mustCycle(t, s, p.ID, 2, models.StatusActive)

	_, err := s.DB().Exec(`UPDATE canvassing_cycles SET status = 'Sedang Berlangsung' WHERE id = ?`, c.ID)
	require.NoError(t, err)

	got, err := s.GetCycle(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOngoing, got.Status)
}

func TestListCycles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := mustProspect(t, s, "kopi_senja88")
	b := mustProspect(t, s, "warung_ibu_sari")
	ca := mustCycle(t, s, a.ID, 7, models.StatusActive)
	mustCycle(t, s, b.ID, 7, models.StatusRejected)
	mustCycle(t, s, b.ID, 9, models.StatusActive)
	mustMessage(t, s, ca.ID, 0, "hash-a0", "kopi_senja88", time.Now())

	all, err := s.ListCycles(ctx, CycleFilter{StaffID: 7})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := s.ListCycles(ctx, CycleFilter{StaffID: 7, Status: models.StatusActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "kopi_senja88", active[0].ProspectHandle)
	assert.Equal(t, 1, active[0].MessageCount)

	byProspect, err := s.ListCycles(ctx, CycleFilter{ProspectID: b.ID})
	require.NoError(t, err)
	assert.Len(t, byProspect, 2)
}

func TestFollowupStates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := mustProspect(t, s, "kopi_senja88")
	c := mustCycle(t, s, p.ID, 7, models.StatusActive)
	day1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mustMessage(t, s, c.ID, 0, "h0", "kopi_senja88", day1)
	mustMessage(t, s, c.ID, 1, "h1", "kopi_senja88", day1.AddDate(0, 0, 1))

	closed := mustProspect(t, s, "toko_selesai")
	cc := mustCycle(t, s, closed.ID, 7, models.StatusConverted)
	mustMessage(t, s, cc.ID, 0, "h2", "toko_selesai", day1)

	states, err := s.FollowupStates(ctx, 7)
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, c.ID, states[0].CycleID)
	assert.Equal(t, 1, states[0].Stage)
	assert.Equal(t, "kopi_senja88", states[0].ProspectHandle)
	assert.True(t, day1.AddDate(0, 0, 1).Equal(states[0].SubmittedAt))
}

func TestStatusLogsAndDeleteCycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := mustProspect(t, s, "kopi_senja88")
	c := mustCycle(t, s, p.ID, 7, models.StatusActive)

	require.NoError(t, s.CreateStatusLog(ctx, &models.CycleStatusLog{
		CycleID: c.ID, OldStatus: "active", NewStatus: "ongoing", ChangedBy: 7, Notes: "tertarik",
	}))
	require.NoError(t, s.CreateStatusLog(ctx, &models.CycleStatusLog{
		CycleID: c.ID, OldStatus: "ongoing", NewStatus: "converted", ChangedBy: 99,
	}))

	logs, err := s.StatusLogs(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "ongoing", logs[0].NewStatus)
	assert.Equal(t, int64(99), logs[1].ChangedBy)

	require.NoError(t, s.DeleteCycle(ctx, c.ID))
	logs, err = s.StatusLogs(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, logs)
	assert.ErrorIs(t, s.DeleteCycle(ctx, c.ID), ErrNotFound)
}
