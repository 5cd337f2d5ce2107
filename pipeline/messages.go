// ABOUTME: Staff-side message management after upload
// ABOUTME: Deletes pending messages and suggests the next stage to submit
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/canvass/db"
	"github.com/harperreed/canvass/models"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DeleteMessage removes a staff member's own pending message when no later
// stage was submitted after it. The cycle's current stage falls back to the
// highest remaining stage. Deleting the only stage-0 message removes the
// cycle, and the prospect when no other cycle references it.
func (u *Uploader) DeleteMessage(ctx context.Context, staffID int64, messageID uuid.UUID) error {
	logger := u.Logger.With(zap.Int64("staff_id", staffID), zap.String("message_id", messageID.String()))

	var key string
	err := u.Store.WithTx(ctx, func(tx *db.Store) error {
		m, err := tx.GetMessage(ctx, messageID)
		if err != nil {
			return eris.Wrap(err, "load message")
		}
		if m == nil || m.StaffID != staffID {
			return notFound("message %s not found", messageID)
		}
		if m.ValidationStatus != models.ValidationPending {
			return inputError(ReasonAlreadyReviewed, "a message reviewed by a supervisor cannot be deleted")
		}
		later, err := tx.HasLaterStage(ctx, m.CycleID, m.Stage)
		if err != nil {
			return eris.Wrap(err, "check later stages")
		}
		if later {
			return inputError("has_followups", "the message cannot be deleted because a later follow-up exists")
		}

		if err := tx.DeleteMessage(ctx, m.ID); err != nil {
			return eris.Wrap(err, "delete message")
		}
		key = m.ScreenshotKey

		cycle, err := tx.GetCycle(ctx, m.CycleID)
		if err != nil {
			return eris.Wrapf(err, "load cycle %s", m.CycleID)
		}
		if cycle == nil {
			return eris.Errorf("cycle %s of message %s is missing", m.CycleID, m.ID)
		}
		top, ok, err := tx.MaxStage(ctx, cycle.ID)
		if err != nil {
			return eris.Wrap(err, "recompute stage")
		}

		if !ok && m.Stage == models.StageCanvassing {
			if err := tx.DeleteCycle(ctx, cycle.ID); err != nil {
				return eris.Wrap(err, "delete empty cycle")
			}
			removed, err := tx.DeleteProspectIfOrphaned(ctx, cycle.ProspectID)
			if err != nil {
				return eris.Wrap(err, "delete orphaned prospect")
			}
			logger.Info("canvassing withdrawn", zap.Bool("prospect_removed", removed))
			return nil
		}

		cycle.CurrentStage = -1
		if ok {
			cycle.CurrentStage = top
		}
		return eris.Wrap(tx.UpdateCycle(ctx, cycle), "update cycle stage")
	})
	if err != nil {
		return u.fail(logger, err)
	}

	if err := u.Blobs.Delete(ctx, key); err != nil {
		logger.Warn("failed to delete screenshot", zap.String("key", key), zap.Error(err))
	}
	logger.Info("message deleted")
	return nil
}

// Suggestion is the stage a staff member is expected to submit next.
type Suggestion struct {
	Stage          int        `json:"stage"`
	Label          string     `json:"label"`
	CycleID        *uuid.UUID `json:"cycle_id,omitempty"`
	ProspectHandle string     `json:"prospect_handle,omitempty"`
}

// SuggestStage returns the follow-up due today: the next stage of an open
// cycle whose latest submission was yesterday. Otherwise it suggests a new
// canvassing (stage 0).
func (u *Uploader) SuggestStage(ctx context.Context, staffID int64) (Suggestion, error) {
	states, err := u.Store.FollowupStates(ctx, staffID)
	if err != nil {
		return Suggestion{}, u.fail(u.Logger, eris.Wrap(err, "load follow-up states"))
	}

	now := u.Now()
	yesterday := dayStart(now).AddDate(0, 0, -1)
	for _, s := range states {
		if s.Stage >= models.MaxStage {
			continue
		}
		if dayStart(s.SubmittedAt.In(now.Location())).Equal(yesterday) {
			id := s.CycleID
			return Suggestion{
				Stage:          s.Stage + 1,
				Label:          models.StageLabel(s.Stage + 1),
				CycleID:        &id,
				ProspectHandle: s.ProspectHandle,
			}, nil
		}
	}
	return Suggestion{Stage: models.StageCanvassing, Label: models.StageLabel(models.StageCanvassing)}, nil
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
