// ABOUTME: Canvassing cycle database operations
// ABOUTME: Active/latest cycle lookups, cycle updates, listings, and status logs
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/canvass/models"
	"github.com/jmoiron/sqlx"
)

const cycleColumns = `id, prospect_id, staff_id, start_date, current_stage, status, last_followup_date,
	next_followup_date, next_action, failure_reason, notes, created_at, updated_at`

func (s *Store) CreateCycle(ctx context.Context, c *models.Cycle) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = models.StatusActive
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO canvassing_cycles (`+cycleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.ProspectID, c.StaffID, c.StartDate, c.CurrentStage, c.Status,
		c.LastFollowupDate, c.NextFollowupDate, c.NextAction, c.FailureReason, c.Notes,
		c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create cycle: %w", constraintError(err))
	}
	return nil
}

// GetCycle returns nil when no cycle has the ID.
func (s *Store) GetCycle(ctx context.Context, id uuid.UUID) (*models.Cycle, error) {
	return s.oneCycle(ctx, `SELECT `+cycleColumns+` FROM canvassing_cycles WHERE id = ?`, id)
}

// ActiveCycle returns the open cycle for the prospect and staff member, or nil.
func (s *Store) ActiveCycle(ctx context.Context, prospectID uuid.UUID, staffID int64) (*models.Cycle, error) {
	return s.oneCycle(ctx, `
		SELECT `+cycleColumns+` FROM canvassing_cycles
		WHERE prospect_id = ? AND staff_id = ? AND status IN ('active', 'ongoing')
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`, prospectID, staffID)
}

// LatestCycle returns the most recent cycle in any status, or nil.
func (s *Store) LatestCycle(ctx context.Context, prospectID uuid.UUID, staffID int64) (*models.Cycle, error) {
	return s.oneCycle(ctx, `
		SELECT `+cycleColumns+` FROM canvassing_cycles
		WHERE prospect_id = ? AND staff_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`, prospectID, staffID)
}

func (s *Store) oneCycle(ctx context.Context, query string, args ...any) (*models.Cycle, error) {
	var c models.Cycle
	err := sqlx.GetContext(ctx, s.q, &c, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cycle: %w", err)
	}
	return &c, nil
}

// UpdateCycle writes the mutable cycle fields.
func (s *Store) UpdateCycle(ctx context.Context, c *models.Cycle) error {
	c.UpdatedAt = time.Now().UTC()
	res, err := s.q.ExecContext(ctx, `
		UPDATE canvassing_cycles SET
			current_stage = ?, status = ?, last_followup_date = ?, next_followup_date = ?,
			next_action = ?, failure_reason = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`, c.CurrentStage, c.Status, c.LastFollowupDate, c.NextFollowupDate,
		c.NextAction, c.FailureReason, c.Notes, c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update cycle: %w", constraintError(err))
	}
	return requireRow(res)
}

func (s *Store) DeleteCycle(ctx context.Context, id uuid.UUID) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM cycle_status_logs WHERE cycle_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete cycle logs: %w", err)
	}
	res, err := s.q.ExecContext(ctx, `DELETE FROM canvassing_cycles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete cycle: %w", err)
	}
	return requireRow(res)
}

// CycleFilter narrows ListCycles. Zero values match everything.
type CycleFilter struct {
	StaffID    int64
	Status     models.CycleStatus
	ProspectID uuid.UUID
	Limit      int
}

func (s *Store) ListCycles(ctx context.Context, f CycleFilter) ([]models.CycleView, error) {
	query := `
		SELECT c.id, c.prospect_id, c.staff_id, c.start_date, c.current_stage, c.status,
			c.last_followup_date, c.next_followup_date, c.next_action, c.failure_reason, c.notes,
			c.created_at, c.updated_at, p.handle AS prospect_handle,
			(SELECT COUNT(*) FROM messages m WHERE m.cycle_id = c.id) AS message_count
		FROM canvassing_cycles c
		JOIN prospects p ON p.id = c.prospect_id
		WHERE 1 = 1`
	var args []any
	if f.StaffID != 0 {
		query += ` AND c.staff_id = ?`
		args = append(args, f.StaffID)
	}
	if f.Status != "" {
		query += ` AND c.status = ?`
		args = append(args, f.Status)
	}
	if f.ProspectID != uuid.Nil {
		query += ` AND c.prospect_id = ?`
		args = append(args, f.ProspectID)
	}
	query += ` ORDER BY c.updated_at DESC, c.rowid DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	var cycles []models.CycleView
	if err := sqlx.SelectContext(ctx, s.q, &cycles, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list cycles: %w", err)
	}
	return cycles, nil
}

// FollowupState is the latest submission of an open cycle.
type FollowupState struct {
	CycleID        uuid.UUID `db:"cycle_id"`
	ProspectHandle string    `db:"prospect_handle"`
	Stage          int       `db:"stage"`
	SubmittedAt    time.Time `db:"submitted_at"`
}

// FollowupStates lists, for each open cycle of the staff member, the message
// at its highest stage. Most recent submissions come first.
func (s *Store) FollowupStates(ctx context.Context, staffID int64) ([]FollowupState, error) {
	var states []FollowupState
	err := sqlx.SelectContext(ctx, s.q, &states, `
		SELECT c.id AS cycle_id, p.handle AS prospect_handle, m.stage, m.submitted_at
		FROM canvassing_cycles c
		JOIN prospects p ON p.id = c.prospect_id
		JOIN messages m ON m.cycle_id = c.id
		WHERE c.staff_id = ? AND c.status IN ('active', 'ongoing')
			AND m.stage = (SELECT MAX(stage) FROM messages WHERE cycle_id = c.id)
		ORDER BY m.submitted_at DESC
	`, staffID)
	if err != nil {
		return nil, fmt.Errorf("failed to list follow-up states: %w", err)
	}
	return states, nil
}

func (s *Store) CreateStatusLog(ctx context.Context, l *models.CycleStatusLog) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	l.CreatedAt = time.Now().UTC()

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO cycle_status_logs (id, cycle_id, old_status, new_status, changed_by, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, l.ID, l.CycleID, l.OldStatus, l.NewStatus, l.ChangedBy, l.Notes, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create status log: %w", err)
	}
	return nil
}

// StatusLogs returns a cycle's status history, oldest first.
func (s *Store) StatusLogs(ctx context.Context, cycleID uuid.UUID) ([]models.CycleStatusLog, error) {
	var logs []models.CycleStatusLog
	err := sqlx.SelectContext(ctx, s.q, &logs, `
		SELECT id, cycle_id, old_status, new_status, changed_by, notes, created_at
		FROM cycle_status_logs
		WHERE cycle_id = ?
		ORDER BY created_at, rowid
	`, cycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list status logs: %w", err)
	}
	return logs, nil
}
