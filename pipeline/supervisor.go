// ABOUTME: Supervisor operations on recorded evidence
// ABOUTME: Quality-check reviews, bulk approval, and manual cycle status overrides
package pipeline

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/harperreed/canvass/db"
	"github.com/harperreed/canvass/models"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const maxReviewNotes = 1000

// Supervisor reviews uploads and manages cycle status.
type Supervisor struct {
	store  *db.Store
	logger *zap.Logger
}

func NewSupervisor(store *db.Store, logger *zap.Logger) *Supervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{store: store, logger: logger}
}

// Pending lists messages still awaiting review, newest first. A zero staffID
// lists every staff member's messages.
func (s *Supervisor) Pending(ctx context.Context, staffID int64, stage *int, limit int) ([]models.MessageView, error) {
	msgs, err := s.store.ListMessages(ctx, db.MessageFilter{
		StaffID:          staffID,
		Stage:            stage,
		ValidationStatus: models.ValidationPending,
		Unreviewed:       true,
		Limit:            limit,
	})
	if err != nil {
		return nil, s.fail(eris.Wrap(err, "list pending messages"))
	}
	return msgs, nil
}

// Review records a supervisor's verdict on a message. A message can be
// reviewed once. Rejection notes become the message's invalid reason.
func (s *Supervisor) Review(ctx context.Context, supervisorID int64, messageID uuid.UUID, approved bool, notes string) (*models.QualityCheck, error) {
	if len(notes) > maxReviewNotes {
		return nil, inputError("invalid_notes", "notes are longer than %d characters", maxReviewNotes)
	}

	var qc *models.QualityCheck
	err := s.store.WithTx(ctx, func(tx *db.Store) error {
		var err error
		qc, err = review(ctx, tx, supervisorID, messageID, approved, notes)
		return err
	})
	if err != nil {
		return nil, s.fail(err)
	}

	s.logger.Info("message reviewed",
		zap.Int64("supervisor_id", supervisorID),
		zap.String("message_id", messageID.String()),
		zap.String("status", qc.Status))
	return qc, nil
}

func review(ctx context.Context, tx *db.Store, supervisorID int64, messageID uuid.UUID, approved bool, notes string) (*models.QualityCheck, error) {
	m, err := tx.GetMessage(ctx, messageID)
	if err != nil {
		return nil, eris.Wrap(err, "load message")
	}
	if m == nil {
		return nil, notFound("message %s not found", messageID)
	}
	existing, err := tx.QualityCheckFor(ctx, messageID)
	if err != nil {
		return nil, eris.Wrap(err, "load quality check")
	}
	if existing != nil {
		return nil, inputError(ReasonAlreadyReviewed, "this message was already reviewed")
	}

	qc := &models.QualityCheck{MessageID: messageID, SupervisorID: supervisorID, Notes: notes}
	validation, reason := models.ValidationValid, ""
	if approved {
		qc.Status = models.ReviewApproved
	} else {
		qc.Status = models.ReviewRejected
		validation, reason = models.ValidationInvalid, notes
	}
	if err := tx.CreateQualityCheck(ctx, qc); err != nil {
		return nil, err
	}
	if err := tx.SetValidation(ctx, messageID, validation, reason); err != nil {
		return nil, eris.Wrap(err, "set validation")
	}
	return qc, nil
}

// ApproveAll approves every pending, unreviewed message, optionally limited
// to one staff member. It returns how many were approved.
func (s *Supervisor) ApproveAll(ctx context.Context, supervisorID, staffID int64) (int, error) {
	count := 0
	err := s.store.WithTx(ctx, func(tx *db.Store) error {
		msgs, err := tx.ListMessages(ctx, db.MessageFilter{
			StaffID:          staffID,
			ValidationStatus: models.ValidationPending,
			Unreviewed:       true,
		})
		if err != nil {
			return eris.Wrap(err, "list pending messages")
		}
		for _, m := range msgs {
			if _, err := review(ctx, tx, supervisorID, m.ID, true, "bulk approval"); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, s.fail(err)
	}
	s.logger.Info("bulk approval", zap.Int64("supervisor_id", supervisorID), zap.Int("approved", count))
	return count, nil
}

// UpdateCycleStatus overrides a cycle's status and records the change in its
// status log. raw may use any known spelling of a status.
func (s *Supervisor) UpdateCycleStatus(ctx context.Context, cycleID uuid.UUID, raw string, changedBy int64, notes string) (*models.Cycle, error) {
	status, err := models.ParseCycleStatus(raw)
	if err != nil {
		return nil, inputError("invalid_status", "status %q is not valid", raw)
	}

	var cycle *models.Cycle
	err = s.store.WithTx(ctx, func(tx *db.Store) error {
		c, err := tx.GetCycle(ctx, cycleID)
		if err != nil {
			return eris.Wrap(err, "load cycle")
		}
		if c == nil {
			return notFound("cycle %s not found", cycleID)
		}
		cycle = c
		if c.Status == status {
			return nil
		}

		old := c.Status
		c.Status = status
		if status == models.StatusRejected && c.FailureReason == "" {
			c.FailureReason = notes
		}
		if status.IsTerminal() {
			c.NextFollowupDate = nil
		}
		if err := tx.UpdateCycle(ctx, c); err != nil {
			return err
		}
		return tx.CreateStatusLog(ctx, &models.CycleStatusLog{
			CycleID:   c.ID,
			OldStatus: string(old),
			NewStatus: string(status),
			ChangedBy: changedBy,
			Notes:     notes,
		})
	})
	if err != nil {
		perr := s.fail(err)
		if errors.Is(err, db.ErrDuplicateCycle) {
			perr = inputError("cycle_already_open", "another cycle for this prospect and staff member is already open")
		}
		return nil, perr
	}

	s.logger.Info("cycle status updated",
		zap.String("cycle_id", cycleID.String()),
		zap.String("status", string(status)),
		zap.Int64("changed_by", changedBy))
	return cycle, nil
}

func (s *Supervisor) fail(err error) *Error {
	perr := classify(err)
	if perr.Kind == KindInternal {
		s.logger.Error("supervisor operation failed", zap.String("error", eris.ToString(perr.Err, true)))
	}
	return perr
}
