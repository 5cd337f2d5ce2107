// ABOUTME: Prospect database operations
// ABOUTME: Handle lookups, truncation-aware prefix queries, creation and contact merges
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/canvass/models"
	"github.com/jmoiron/sqlx"
)

const prospectColumns = `id, handle, category, business_type, channel, external_link, contact_number, created_at, updated_at`

func (s *Store) CreateProspect(ctx context.Context, p *models.Prospect) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO prospects (`+prospectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Handle, p.Category, p.BusinessType, p.Channel, p.ExternalLink, p.ContactNumber, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create prospect: %w", constraintError(err))
	}
	return nil
}

// GetProspect returns nil when no prospect has the ID.
func (s *Store) GetProspect(ctx context.Context, id uuid.UUID) (*models.Prospect, error) {
	return s.oneProspect(ctx, `SELECT `+prospectColumns+` FROM prospects WHERE id = ?`, id)
}

// ProspectByHandle returns nil when no prospect has the handle.
func (s *Store) ProspectByHandle(ctx context.Context, handle string) (*models.Prospect, error) {
	return s.oneProspect(ctx, `SELECT `+prospectColumns+` FROM prospects WHERE handle = ?`, handle)
}

func (s *Store) oneProspect(ctx context.Context, query string, args ...any) (*models.Prospect, error) {
	var p models.Prospect
	err := sqlx.GetContext(ctx, s.q, &p, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prospect: %w", err)
	}
	return &p, nil
}

// ProspectsWithPrefix returns prospects whose handle starts with prefix.
func (s *Store) ProspectsWithPrefix(ctx context.Context, prefix string) ([]*models.Prospect, error) {
	return s.listProspects(ctx, `
		SELECT `+prospectColumns+` FROM prospects
		WHERE substr(handle, 1, length(?)) = ?
		ORDER BY handle
	`, prefix, prefix)
}

// ProspectsPrefixOf returns prospects whose handle is a prefix of handle and
// at least minLen long.
func (s *Store) ProspectsPrefixOf(ctx context.Context, handle string, minLen int) ([]*models.Prospect, error) {
	return s.listProspects(ctx, `
		SELECT `+prospectColumns+` FROM prospects
		WHERE length(handle) >= ? AND substr(?, 1, length(handle)) = handle
		ORDER BY handle
	`, minLen, handle)
}

// ActiveProspects returns prospects with an active or ongoing cycle owned by
// the staff member.
func (s *Store) ActiveProspects(ctx context.Context, staffID int64) ([]*models.Prospect, error) {
	return s.listProspects(ctx, `
		SELECT `+prospectColumns+` FROM prospects p
		WHERE EXISTS (
			SELECT 1 FROM canvassing_cycles c
			WHERE c.prospect_id = p.id AND c.staff_id = ? AND c.status IN ('active', 'ongoing')
		)
		ORDER BY p.handle
	`, staffID)
}

// FindProspects searches handles containing query. An empty query lists
// everything up to limit.
func (s *Store) FindProspects(ctx context.Context, query string, limit int) ([]*models.Prospect, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	return s.listProspects(ctx, `
		SELECT `+prospectColumns+` FROM prospects
		WHERE handle LIKE ?
		ORDER BY handle
		LIMIT ?
	`, pattern, limit)
}

func (s *Store) listProspects(ctx context.Context, query string, args ...any) ([]*models.Prospect, error) {
	var prospects []*models.Prospect
	if err := sqlx.SelectContext(ctx, s.q, &prospects, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list prospects: %w", err)
	}
	return prospects, nil
}

func (s *Store) UpdateProspectHandle(ctx context.Context, id uuid.UUID, handle string) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE prospects SET handle = ?, updated_at = ? WHERE id = ?`,
		handle, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update prospect handle: %w", constraintError(err))
	}
	return requireRow(res)
}

// ContactUpdate holds contact fields from an upload. Empty fields leave the
// stored value alone.
type ContactUpdate struct {
	Category      string
	BusinessType  string
	Channel       string
	ExternalLink  string
	ContactNumber string
}

// MergeProspectContact overwrites stored contact fields with the non-empty
// fields of u.
func (s *Store) MergeProspectContact(ctx context.Context, id uuid.UUID, u ContactUpdate) error {
	_, err := s.q.ExecContext(ctx, `
		UPDATE prospects SET
			category = COALESCE(NULLIF(?, ''), category),
			business_type = COALESCE(NULLIF(?, ''), business_type),
			channel = COALESCE(NULLIF(?, ''), channel),
			external_link = COALESCE(NULLIF(?, ''), external_link),
			contact_number = COALESCE(NULLIF(?, ''), contact_number),
			updated_at = ?
		WHERE id = ?
	`, u.Category, u.BusinessType, u.Channel, u.ExternalLink, u.ContactNumber, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to merge prospect contact: %w", err)
	}
	return nil
}

// DeleteProspectIfOrphaned removes the prospect when no cycle references it.
func (s *Store) DeleteProspectIfOrphaned(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.q.ExecContext(ctx, `
		DELETE FROM prospects
		WHERE id = ? AND NOT EXISTS (SELECT 1 FROM canvassing_cycles WHERE prospect_id = ?)
	`, id, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete prospect: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
