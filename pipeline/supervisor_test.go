// ABOUTME: Tests for supervisor reviews and cycle status overrides
// ABOUTME: Covers single and bulk review, review-once, and status log writes
package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/harperreed/canvass/db"
	"github.com/harperreed/canvass/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewRejectRecordsReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.upload(t, 7, 0, "day0.png", canvassText)
	require.NoError(t, err)

	pending, err := f.super.Pending(ctx, 0, nil, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	qc, err := f.super.Review(ctx, 1, res.Message.ID, false, "handle is cropped")
	require.NoError(t, err)
	assert.Equal(t, models.ReviewRejected, qc.Status)

	m, err := f.store.GetMessage(ctx, res.Message.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ValidationInvalid, m.ValidationStatus)
	assert.Equal(t, "handle is cropped", m.InvalidReason)

	pending, err = f.super.Pending(ctx, 0, nil, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = f.super.Review(ctx, 1, res.Message.ID, true, "")
	perr := requireKind(t, err, KindInput)
	assert.Equal(t, ReasonAlreadyReviewed, perr.Reason)
}

func TestReviewValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.super.Review(ctx, 1, uuid.New(), true, "")
	requireKind(t, err, KindNotFound)

	_, err = f.super.Review(ctx, 1, uuid.New(), true, strings.Repeat("x", 1001))
	perr := requireKind(t, err, KindInput)
	assert.Equal(t, "invalid_notes", perr.Reason)
}

func TestApproveAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.upload(t, 7, 0, "day0.png", canvassText)
	require.NoError(t, err)
	_, err = f.upload(t, 7, 1, "day1.png", dayOneText)
	require.NoError(t, err)
	_, err = f.upload(t, 9, 0, "other.png", strings.Replace(canvassText, "kopi_senja88", "warung_ibu_sari", 1))
	require.NoError(t, err)

	n, err := f.super.ApproveAll(ctx, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	valid, err := f.store.ListMessages(ctx, db.MessageFilter{ValidationStatus: models.ValidationValid})
	require.NoError(t, err)
	assert.Len(t, valid, 2)

	n, err = f.super.ApproveAll(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = f.super.ApproveAll(ctx, 1, 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpdateCycleStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.upload(t, 7, 0, "day0.png", canvassText)
	require.NoError(t, err)

	_, err = f.super.UpdateCycleStatus(ctx, res.Cycle.ID, "bogus", 1, "")
	perr := requireKind(t, err, KindInput)
	assert.Equal(t, "invalid_status", perr.Reason)

	_, err = f.super.UpdateCycleStatus(ctx, uuid.New(), "active", 1, "")
	requireKind(t, err, KindNotFound)

	c, err := f.super.UpdateCycleStatus(ctx, res.Cycle.ID, "Menolak", 1, "owner not interested")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, c.Status)
	assert.Equal(t, "owner not interested", c.FailureReason)
	assert.Nil(t, c.NextFollowupDate)

	// unchanged status writes no log
	_, err = f.super.UpdateCycleStatus(ctx, res.Cycle.ID, "rejected", 1, "")
	require.NoError(t, err)

	logs, err := f.store.StatusLogs(ctx, res.Cycle.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "active", logs[0].OldStatus)
	assert.Equal(t, "rejected", logs[0].NewStatus)
	assert.Equal(t, int64(1), logs[0].ChangedBy)
}

func TestReopenCycleConflictsWithOpenCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.upload(t, 7, 0, "day0.png", canvassText)
	require.NoError(t, err)
	_, err = f.super.UpdateCycleStatus(ctx, first.Cycle.ID, "rejected", 1, "")
	require.NoError(t, err)

	second, err := f.upload(t, 7, 0, "again.png", canvassText)
	require.NoError(t, err)
	assert.NotEqual(t, first.Cycle.ID, second.Cycle.ID)

	_, err = f.super.UpdateCycleStatus(ctx, first.Cycle.ID, "active", 1, "")
	perr := requireKind(t, err, KindInput)
	assert.Equal(t, "cycle_already_open", perr.Reason)
}
