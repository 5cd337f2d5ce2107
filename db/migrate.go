// ABOUTME: Normalization of legacy cycle status strings
// ABOUTME: Rewrites synonyms to canonical statuses and reports rows that block the active-cycle index
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/canvass/models"
	"github.com/jmoiron/sqlx"
)

// StatusChange is one cycle whose stored status is not canonical.
type StatusChange struct {
	CycleID uuid.UUID
	From    string
	To      models.CycleStatus
	// Unknown is set when From matches no known spelling; To is empty then.
	Unknown bool
}

// ActiveConflict is a prospect and staff pair with more than one open cycle.
type ActiveConflict struct {
	ProspectID uuid.UUID `db:"prospect_id"`
	StaffID    int64     `db:"staff_id"`
	Count      int       `db:"n"`
}

type rawStatus struct {
	ID     uuid.UUID `db:"id"`
	Status string    `db:"status"`
}

// NormalizeStatuses rewrites every non-canonical cycle status. With dryRun
// nothing is written. Unknown values are reported and left alone. Each
// rewrite is recorded in the cycle's status log with changedBy 0.
func NormalizeStatuses(ctx context.Context, db *sqlx.DB, dryRun bool) ([]StatusChange, error) {
	var rows []rawStatus
	if err := db.SelectContext(ctx, &rows, `SELECT id, status FROM canvassing_cycles ORDER BY rowid`); err != nil {
		return nil, fmt.Errorf("failed to read cycle statuses: %w", err)
	}

	var changes []StatusChange
	for _, r := range rows {
		to, err := models.ParseCycleStatus(r.Status)
		if err != nil {
			changes = append(changes, StatusChange{CycleID: r.ID, From: r.Status, Unknown: true})
			continue
		}
		if string(to) != r.Status {
			changes = append(changes, StatusChange{CycleID: r.ID, From: r.Status, To: to})
		}
	}
	if dryRun {
		return changes, nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // Safe even after commit
	}()

	now := time.Now().UTC()
	for _, c := range changes {
		if c.Unknown {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE canvassing_cycles SET status = ?, updated_at = ? WHERE id = ?`,
			c.To, now, c.CycleID); err != nil {
			return nil, fmt.Errorf("failed to update cycle %s: %w", c.CycleID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cycle_status_logs (id, cycle_id, old_status, new_status, changed_by, notes, created_at)
			VALUES (?, ?, ?, ?, 0, 'status normalized', ?)
		`, uuid.New(), c.CycleID, c.From, c.To, now); err != nil {
			return nil, fmt.Errorf("failed to log status change for %s: %w", c.CycleID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return changes, nil
}

// ActiveConflicts lists prospect and staff pairs holding more than one open
// cycle. They must be resolved by hand before the uniqueness index can be built.
func ActiveConflicts(ctx context.Context, db *sqlx.DB) ([]ActiveConflict, error) {
	var conflicts []ActiveConflict
	err := db.SelectContext(ctx, &conflicts, `
		SELECT prospect_id, staff_id, COUNT(*) AS n
		FROM canvassing_cycles
		WHERE status IN ('active', 'ongoing')
		GROUP BY prospect_id, staff_id
		HAVING COUNT(*) > 1
		ORDER BY prospect_id, staff_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to find active conflicts: %w", err)
	}
	return conflicts, nil
}
