// ABOUTME: Message and quality check database operations
// ABOUTME: Screenshot hash checks, stage bookkeeping, listings and supervisor reviews
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/canvass/models"
	"github.com/harperreed/canvass/resolve"
	"github.com/jmoiron/sqlx"
)

var _ resolve.Store = (*Store)(nil)

const messageColumns = `id, cycle_id, stage, category, channel, interaction_status, screenshot_key,
	screenshot_hash, ocr_handle, ocr_message_snippet, ocr_date, submitted_at, validation_status,
	invalid_reason, created_at, updated_at`

const messageViewQuery = `
	SELECT m.id, m.cycle_id, m.stage, m.category, m.channel, m.interaction_status, m.screenshot_key,
		m.screenshot_hash, m.ocr_handle, m.ocr_message_snippet, m.ocr_date, m.submitted_at,
		m.validation_status, m.invalid_reason, m.created_at, m.updated_at,
		c.staff_id, c.prospect_id, p.handle AS prospect_handle, c.status AS cycle_status
	FROM messages m
	JOIN canvassing_cycles c ON c.id = m.cycle_id
	JOIN prospects p ON p.id = c.prospect_id`

func (s *Store) CreateMessage(ctx context.Context, m *models.Message) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.ValidationStatus == "" {
		m.ValidationStatus = models.ValidationPending
	}
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO messages (`+messageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.CycleID, m.Stage, m.Category, m.Channel, m.InteractionStatus, m.ScreenshotKey,
		m.ScreenshotHash, m.OCRHandle, m.OCRMessageSnippet, m.OCRDate, m.SubmittedAt, m.ValidationStatus,
		m.InvalidReason, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", constraintError(err))
	}
	return nil
}

// HashExists reports whether a screenshot with this content hash was uploaded.
func (s *Store) HashExists(ctx context.Context, hash string) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, s.q, &n, `SELECT COUNT(*) FROM messages WHERE screenshot_hash = ?`, hash)
	if err != nil {
		return false, fmt.Errorf("failed to check screenshot hash: %w", err)
	}
	return n > 0, nil
}

// HasStageMessage reports whether the cycle already has a message at stage.
func (s *Store) HasStageMessage(ctx context.Context, cycleID uuid.UUID, stage int) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, s.q, &n,
		`SELECT COUNT(*) FROM messages WHERE cycle_id = ? AND stage = ?`, cycleID, stage)
	if err != nil {
		return false, fmt.Errorf("failed to check stage message: %w", err)
	}
	return n > 0, nil
}

// HasLaterStage reports whether the cycle has a message after stage.
func (s *Store) HasLaterStage(ctx context.Context, cycleID uuid.UUID, stage int) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, s.q, &n,
		`SELECT COUNT(*) FROM messages WHERE cycle_id = ? AND stage > ?`, cycleID, stage)
	if err != nil {
		return false, fmt.Errorf("failed to check later stages: %w", err)
	}
	return n > 0, nil
}

// MaxStage returns the highest recorded stage of a cycle. ok is false when the
// cycle has no messages.
func (s *Store) MaxStage(ctx context.Context, cycleID uuid.UUID) (stage int, ok bool, err error) {
	var top sql.NullInt64
	err = sqlx.GetContext(ctx, s.q, &top, `SELECT MAX(stage) FROM messages WHERE cycle_id = ?`, cycleID)
	if err != nil {
		return 0, false, fmt.Errorf("failed to get max stage: %w", err)
	}
	if !top.Valid {
		return 0, false, nil
	}
	return int(top.Int64), true, nil
}

// MessageHandles returns the OCR handles on the staff member's messages with
// the prospect each was resolved to, most recently submitted first.
func (s *Store) MessageHandles(ctx context.Context, staffID int64) ([]resolve.HandleRef, error) {
	var refs []resolve.HandleRef
	err := sqlx.SelectContext(ctx, s.q, &refs, `
		SELECT m.ocr_handle, c.prospect_id
		FROM messages m
		JOIN canvassing_cycles c ON c.id = m.cycle_id
		WHERE c.staff_id = ? AND m.ocr_handle <> ''
		GROUP BY m.ocr_handle, c.prospect_id
		ORDER BY MAX(m.submitted_at) DESC, m.ocr_handle
	`, staffID)
	if err != nil {
		return nil, fmt.Errorf("failed to list message handles: %w", err)
	}
	return refs, nil
}

// GetMessage returns nil when no message has the ID.
func (s *Store) GetMessage(ctx context.Context, id uuid.UUID) (*models.MessageView, error) {
	var m models.MessageView
	err := sqlx.GetContext(ctx, s.q, &m, messageViewQuery+` WHERE m.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return &m, nil
}

// MessageFilter narrows ListMessages. Zero values match everything.
type MessageFilter struct {
	StaffID          int64
	Stage            *int
	ValidationStatus string
	CycleID          uuid.UUID
	// Unreviewed keeps only messages without a quality check.
	Unreviewed bool
	Limit      int
}

// ListMessages returns messages newest first.
func (s *Store) ListMessages(ctx context.Context, f MessageFilter) ([]models.MessageView, error) {
	query := messageViewQuery + ` WHERE 1 = 1`
	var args []any
	if f.StaffID != 0 {
		query += ` AND c.staff_id = ?`
		args = append(args, f.StaffID)
	}
	if f.Stage != nil {
		query += ` AND m.stage = ?`
		args = append(args, *f.Stage)
	}
	if f.ValidationStatus != "" {
		query += ` AND m.validation_status = ?`
		args = append(args, f.ValidationStatus)
	}
	if f.CycleID != uuid.Nil {
		query += ` AND m.cycle_id = ?`
		args = append(args, f.CycleID)
	}
	if f.Unreviewed {
		query += ` AND NOT EXISTS (SELECT 1 FROM quality_checks q WHERE q.message_id = m.id)`
	}
	query += ` ORDER BY m.submitted_at DESC, m.rowid DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	var messages []models.MessageView
	if err := sqlx.SelectContext(ctx, s.q, &messages, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

func (s *Store) DeleteMessage(ctx context.Context, id uuid.UUID) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM quality_checks WHERE message_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete quality checks: %w", err)
	}
	res, err := s.q.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return requireRow(res)
}

// SetValidation records the review outcome on a message.
func (s *Store) SetValidation(ctx context.Context, id uuid.UUID, status, reason string) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE messages SET validation_status = ?, invalid_reason = ?, updated_at = ?
		WHERE id = ?
	`, status, reason, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set validation: %w", err)
	}
	return requireRow(res)
}

func (s *Store) CreateQualityCheck(ctx context.Context, qc *models.QualityCheck) error {
	if qc.ID == uuid.Nil {
		qc.ID = uuid.New()
	}
	qc.CreatedAt = time.Now().UTC()

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO quality_checks (id, message_id, supervisor_id, status, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, qc.ID, qc.MessageID, qc.SupervisorID, qc.Status, qc.Notes, qc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create quality check: %w", constraintError(err))
	}
	return nil
}

// QualityCheckFor returns the review of a message, or nil.
func (s *Store) QualityCheckFor(ctx context.Context, messageID uuid.UUID) (*models.QualityCheck, error) {
	var qc models.QualityCheck
	err := sqlx.GetContext(ctx, s.q, &qc, `
		SELECT id, message_id, supervisor_id, status, notes, created_at
		FROM quality_checks WHERE message_id = ?
	`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quality check: %w", err)
	}
	return &qc, nil
}
