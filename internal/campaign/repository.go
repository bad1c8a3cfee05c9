package campaign

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("campaign: not found")
	ErrInvalidArgument = errors.New("campaign: invalid argument")
)

// Store is the persistence contract for campaigns.
type Store interface {
	Create(ctx context.Context, c Campaign) (Campaign, error)
	Get(ctx context.Context, orgID, campaignID string) (Campaign, error)
	List(ctx context.Context, orgID string) ([]Campaign, error)

	// Pause moves an active campaign to paused. Returns false when the
	// campaign was not active (already paused or completed); pausing twice in
	// one run must not clobber the first reason.
	Pause(ctx context.Context, orgID, campaignID, reason string) (bool, error)

	// Finalize ends the run: records the estimated cost and marks the
	// campaign completed, unless a billing pause already landed, in which
	// case the paused status is preserved.
	Finalize(ctx context.Context, orgID, campaignID string, estimatedCostMinor int64, at time.Time) (Campaign, error)
}

// SQLStore persists campaigns in Postgres.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Create(ctx context.Context, c Campaign) (Campaign, error) {
	const q = `
INSERT INTO campaigns (
  id, org_id, name, script_template, target_kind, target_id, status,
  scheduled_start, estimated_cost_minor, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`
	_, err := s.db.ExecContext(ctx, q,
		c.ID, c.OrgID, c.Name, c.ScriptTemplate, c.Target.Kind, c.Target.ID, c.Status,
		c.ScheduledStart, c.EstimatedCostMinor, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return Campaign{}, err
	}
	return c, nil
}

const campaignColumns = `
id, org_id, name, script_template, target_kind, target_id, status,
COALESCE(paused_reason,''), scheduled_start, estimated_cost_minor,
created_at, updated_at, completed_at`

func scanCampaign(row interface{ Scan(...any) error }) (Campaign, error) {
	var c Campaign
	err := row.Scan(
		&c.ID, &c.OrgID, &c.Name, &c.ScriptTemplate, &c.Target.Kind, &c.Target.ID, &c.Status,
		&c.PausedReason, &c.ScheduledStart, &c.EstimatedCostMinor,
		&c.CreatedAt, &c.UpdatedAt, &c.CompletedAt,
	)
	return c, err
}

func (s *SQLStore) Get(ctx context.Context, orgID, campaignID string) (Campaign, error) {
	q := `SELECT ` + campaignColumns + ` FROM campaigns WHERE org_id = $1 AND id = $2`
	c, err := scanCampaign(s.db.QueryRowContext(ctx, q, orgID, campaignID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Campaign{}, ErrNotFound
		}
		return Campaign{}, err
	}
	return c, nil
}

func (s *SQLStore) List(ctx context.Context, orgID string) ([]Campaign, error) {
	q := `SELECT ` + campaignColumns + ` FROM campaigns WHERE org_id = $1 ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, q, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLStore) Pause(ctx context.Context, orgID, campaignID, reason string) (bool, error) {
	const q = `
UPDATE campaigns
SET status = $3, paused_reason = $4, updated_at = now()
WHERE org_id = $1 AND id = $2 AND status = $5
`
	res, err := s.db.ExecContext(ctx, q, orgID, campaignID, StatusPaused, reason, StatusActive)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLStore) Finalize(ctx context.Context, orgID, campaignID string, estimatedCostMinor int64, at time.Time) (Campaign, error) {
	// A billing pause that landed mid-run must survive finalization, so the
	// status flips only for active campaigns; the cost is recorded either way.
	const q = `
UPDATE campaigns
SET estimated_cost_minor = $3,
    status = CASE WHEN status = $4 THEN $5 ELSE status END,
    completed_at = CASE WHEN status = $4 THEN $6 ELSE completed_at END,
    updated_at = $6
WHERE org_id = $1 AND id = $2
RETURNING ` + campaignColumns
	c, err := scanCampaign(s.db.QueryRowContext(ctx, q,
		orgID, campaignID, estimatedCostMinor, StatusActive, StatusCompleted, at.UTC(),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Campaign{}, ErrNotFound
		}
		return Campaign{}, err
	}
	return c, nil
}
