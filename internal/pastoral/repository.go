package pastoral

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"careline/pkg/utils"
)

// SQLStore persists alerts and follow-ups in Postgres.
//
// Assumed tables:
//   - escalation_alerts (id, org_id, person_id, call_log_id, alert_type,
//     priority, message, status, created_at, resolved_at)
//   - follow_ups (id, org_id, person_id, call_log_id, status, priority,
//     notes JSONB, created_at, updated_at)
//
// call_log_id carries no foreign key constraint: the reference is weak and a
// deleted call log must not cascade here.
type SQLStore struct {
	db    *sql.DB
	clock func() time.Time
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, clock: time.Now}
}

func (s *SQLStore) CreateAlert(ctx context.Context, a EscalationAlert) (EscalationAlert, error) {
	const q = `
INSERT INTO escalation_alerts (
  id, org_id, person_id, call_log_id, alert_type, priority, message, status, created_at
) VALUES ($1,$2,$3,NULLIF($4,''),$5,$6,$7,$8,$9)
`
	_, err := s.db.ExecContext(ctx, q,
		a.ID, a.OrgID, a.PersonID, a.CallLogID, a.AlertType, a.Priority, a.Message, a.Status, a.CreatedAt,
	)
	if err != nil {
		return EscalationAlert{}, err
	}
	return a, nil
}

func (s *SQLStore) ResolveAlert(ctx context.Context, orgID, alertID string) (EscalationAlert, error) {
	const q = `
UPDATE escalation_alerts
SET status = $3, resolved_at = $4
WHERE org_id = $1 AND id = $2 AND status = $5
RETURNING id, org_id, person_id, COALESCE(call_log_id,''), alert_type, priority, message, status, created_at, resolved_at
`
	var a EscalationAlert
	err := s.db.QueryRowContext(ctx, q, orgID, alertID, AlertResolved, s.clock().UTC(), AlertOpen).Scan(
		&a.ID, &a.OrgID, &a.PersonID, &a.CallLogID, &a.AlertType, &a.Priority, &a.Message, &a.Status,
		&a.CreatedAt, &a.ResolvedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return EscalationAlert{}, ErrNotFound
		}
		return EscalationAlert{}, err
	}
	return a, nil
}

func (s *SQLStore) ListAlerts(ctx context.Context, orgID string, status AlertStatus) ([]EscalationAlert, error) {
	const q = `
SELECT id, org_id, person_id, COALESCE(call_log_id,''), alert_type, priority, message, status, created_at, resolved_at
FROM escalation_alerts
WHERE org_id = $1 AND ($2 = '' OR status = $2)
ORDER BY created_at DESC
`
	rows, err := s.db.QueryContext(ctx, q, orgID, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EscalationAlert
	for rows.Next() {
		var a EscalationAlert
		if err := rows.Scan(
			&a.ID, &a.OrgID, &a.PersonID, &a.CallLogID, &a.AlertType, &a.Priority, &a.Message, &a.Status,
			&a.CreatedAt, &a.ResolvedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) CreateFollowUp(ctx context.Context, f FollowUp) (FollowUp, error) {
	notes, err := json.Marshal(f.Notes)
	if err != nil {
		return FollowUp{}, err
	}
	const q = `
INSERT INTO follow_ups (
  id, org_id, person_id, call_log_id, status, priority, notes, created_at, updated_at
) VALUES ($1,$2,$3,NULLIF($4,''),$5,$6,$7,$8,$9)
`
	_, err = s.db.ExecContext(ctx, q,
		f.ID, f.OrgID, f.PersonID, f.CallLogID, f.Status, f.Priority, notes, f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		return FollowUp{}, err
	}
	return f, nil
}

// UpdateFollowUp runs mutate against the row locked FOR UPDATE, so two
// concurrent mutations serialize instead of overwriting each other's notes.
func (s *SQLStore) UpdateFollowUp(ctx context.Context, orgID, followUpID string, mutate func(f *FollowUp) error) (FollowUp, error) {
	var out FollowUp
	err := utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		const sel = `
SELECT id, org_id, person_id, COALESCE(call_log_id,''), status, priority, notes, created_at, updated_at
FROM follow_ups
WHERE org_id = $1 AND id = $2
FOR UPDATE
`
		var f FollowUp
		var notes []byte
		err := tx.QueryRowContext(ctx, sel, orgID, followUpID).Scan(
			&f.ID, &f.OrgID, &f.PersonID, &f.CallLogID, &f.Status, &f.Priority, &notes, &f.CreatedAt, &f.UpdatedAt,
		)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if len(notes) > 0 {
			if err := json.Unmarshal(notes, &f.Notes); err != nil {
				return err
			}
		}

		if err := mutate(&f); err != nil {
			return err
		}

		encoded, err := json.Marshal(f.Notes)
		if err != nil {
			return err
		}
		const upd = `
UPDATE follow_ups
SET status = $3, priority = $4, notes = $5, updated_at = $6
WHERE org_id = $1 AND id = $2
`
		if _, err := tx.ExecContext(ctx, upd, orgID, followUpID, f.Status, f.Priority, encoded, f.UpdatedAt); err != nil {
			return err
		}
		out = f
		return nil
	})
	if err != nil {
		return FollowUp{}, err
	}
	return out, nil
}

func (s *SQLStore) ListFollowUps(ctx context.Context, orgID string, status FollowUpStatus) ([]FollowUp, error) {
	const q = `
SELECT id, org_id, person_id, COALESCE(call_log_id,''), status, priority, notes, created_at, updated_at
FROM follow_ups
WHERE org_id = $1 AND ($2 = '' OR status = $2)
ORDER BY created_at DESC
`
	rows, err := s.db.QueryContext(ctx, q, orgID, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FollowUp
	for rows.Next() {
		var f FollowUp
		var notes []byte
		if err := rows.Scan(
			&f.ID, &f.OrgID, &f.PersonID, &f.CallLogID, &f.Status, &f.Priority, &notes, &f.CreatedAt, &f.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if len(notes) > 0 {
			if err := json.Unmarshal(notes, &f.Notes); err != nil {
				return nil, err
			}
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
