package calls

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// SQLStore persists attempts and logs in Postgres.
//
// Assumed tables:
// - call_attempts, UNIQUE (campaign_id, person_id)
// - call_logs, UNIQUE (provider_call_id) WHERE provider_call_id IS NOT NULL
//
// The partial unique index on provider_call_id is what makes ClaimReport's
// single-statement upsert race-free under concurrent webhook delivery. The
// ON CONFLICT arbiters below must repeat the index predicate for Postgres to
// infer the partial index; dispatch-failure rows keep a NULL provider_call_id
// and never conflict with each other.
type SQLStore struct {
	db    *sql.DB
	clock func() time.Time
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, clock: time.Now}
}

func (s *SQLStore) UpsertAttempt(ctx context.Context, a CallAttempt) (CallAttempt, error) {
	if a.OrgID == "" || a.CampaignID == "" || a.PersonID == "" {
		return CallAttempt{}, ErrInvalidArgument
	}
	now := s.clock().UTC()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = AttemptInProgress
	}

	const q = `
INSERT INTO call_attempts (
  id, org_id, campaign_id, person_id, phone, provider_call_id, status,
  duration, response_notes, response_category, recording_url, error_message,
  created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,NULLIF($6,''),$7,$8,$9,$10,$11,$12,$13,$13
)
ON CONFLICT (campaign_id, person_id) DO UPDATE SET updated_at = EXCLUDED.updated_at
RETURNING id, org_id, campaign_id, person_id, phone, COALESCE(provider_call_id,''), status,
  duration, response_notes, response_category, recording_url, error_message, created_at, updated_at
`
	var out CallAttempt
	err := s.db.QueryRowContext(ctx, q,
		a.ID, a.OrgID, a.CampaignID, a.PersonID, a.Phone, a.ProviderCallID, a.Status,
		a.DurationSeconds, a.ResponseNotes, a.ResponseCategory, a.RecordingURL, a.ErrorMessage,
		now,
	).Scan(
		&out.ID, &out.OrgID, &out.CampaignID, &out.PersonID, &out.Phone, &out.ProviderCallID, &out.Status,
		&out.DurationSeconds, &out.ResponseNotes, &out.ResponseCategory, &out.RecordingURL, &out.ErrorMessage,
		&out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		return CallAttempt{}, err
	}
	return out, nil
}

func (s *SQLStore) SetAttemptProviderCall(ctx context.Context, attemptID, providerCallID string) error {
	if attemptID == "" || providerCallID == "" {
		return ErrInvalidArgument
	}
	const q = `
UPDATE call_attempts
SET provider_call_id = $2, updated_at = $3
WHERE id = $1
`
	res, err := s.db.ExecContext(ctx, q, attemptID, providerCallID, s.clock().UTC())
	if err != nil {
		return err
	}
	return mustAffectOne(res)
}

func (s *SQLStore) MarkAttemptFailed(ctx context.Context, attemptID, errMsg string) error {
	if attemptID == "" {
		return ErrInvalidArgument
	}
	const q = `
UPDATE call_attempts
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`
	res, err := s.db.ExecContext(ctx, q, attemptID, AttemptFailed, errMsg, s.clock().UTC())
	if err != nil {
		return err
	}
	return mustAffectOne(res)
}

func (s *SQLStore) FinalizeAttempt(ctx context.Context, providerCallID string, fin AttemptFinal) (bool, error) {
	if providerCallID == "" {
		return false, ErrInvalidArgument
	}
	const q = `
UPDATE call_attempts
SET status = $2,
    duration = $3,
    response_notes = $4,
    response_category = $5,
    recording_url = $6,
    updated_at = $7
WHERE provider_call_id = $1
`
	res, err := s.db.ExecContext(ctx, q,
		providerCallID, fin.Status, fin.DurationSeconds,
		fin.ResponseNotes, fin.ResponseCategory, fin.RecordingURL,
		s.clock().UTC(),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLStore) SaveDispatchLog(ctx context.Context, l CallLog) (CallLog, error) {
	if l.OrgID == "" {
		return CallLog{}, ErrInvalidArgument
	}
	now := s.clock().UTC()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}

	const q = `
INSERT INTO call_logs (
  id, org_id, campaign_id, person_id, provider_call_id, phone, status,
  duration, transcript, summary, recording_url, raw_response, error_message,
  reconciled_at, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,NULLIF($5,''),$6,$7,$8,$9,$10,$11,$12,$13,NULL,$14,$14
)
ON CONFLICT (provider_call_id) WHERE provider_call_id IS NOT NULL DO UPDATE SET
  raw_response = EXCLUDED.raw_response,
  status = EXCLUDED.status,
  error_message = EXCLUDED.error_message,
  updated_at = EXCLUDED.updated_at
RETURNING id, org_id, campaign_id, person_id, COALESCE(provider_call_id,''), phone, status,
  duration, transcript, summary, recording_url, raw_response, error_message,
  reconciled_at, created_at, updated_at
`
	var out CallLog
	err := s.db.QueryRowContext(ctx, q,
		l.ID, l.OrgID, l.CampaignID, l.PersonID, l.ProviderCallID, l.Phone, l.Status,
		l.DurationSeconds, l.Transcript, l.Summary, l.RecordingURL, l.RawResponse, l.ErrorMessage,
		now,
	).Scan(
		&out.ID, &out.OrgID, &out.CampaignID, &out.PersonID, &out.ProviderCallID, &out.Phone, &out.Status,
		&out.DurationSeconds, &out.Transcript, &out.Summary, &out.RecordingURL, &out.RawResponse, &out.ErrorMessage,
		&out.ReconciledAt, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		return CallLog{}, err
	}
	return out, nil
}

func (s *SQLStore) ClaimReport(ctx context.Context, l CallLog) (CallLog, bool, error) {
	if l.ProviderCallID == "" {
		return CallLog{}, false, ErrInvalidArgument
	}
	now := s.clock().UTC()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}

	// Single-statement claim: the insert either creates the reconciled row,
	// or updates the dispatch-time row — but only while reconciled_at is
	// still NULL. A redelivered report matches zero rows and returns no
	// claim. Identity fields fall back to dispatch-time values when the
	// report's metadata was missing.
	const q = `
INSERT INTO call_logs (
  id, org_id, campaign_id, person_id, provider_call_id, phone, status,
  duration, transcript, summary, recording_url, raw_response, error_message,
  reconciled_at, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$14,$14
)
ON CONFLICT (provider_call_id) WHERE provider_call_id IS NOT NULL DO UPDATE SET
  org_id = COALESCE(NULLIF(EXCLUDED.org_id,''), call_logs.org_id),
  campaign_id = COALESCE(NULLIF(EXCLUDED.campaign_id,''), call_logs.campaign_id),
  person_id = COALESCE(NULLIF(EXCLUDED.person_id,''), call_logs.person_id),
  phone = COALESCE(NULLIF(EXCLUDED.phone,''), call_logs.phone),
  status = EXCLUDED.status,
  duration = EXCLUDED.duration,
  transcript = EXCLUDED.transcript,
  summary = EXCLUDED.summary,
  recording_url = EXCLUDED.recording_url,
  raw_response = EXCLUDED.raw_response,
  error_message = EXCLUDED.error_message,
  reconciled_at = EXCLUDED.reconciled_at,
  updated_at = EXCLUDED.updated_at
WHERE call_logs.reconciled_at IS NULL
RETURNING id, org_id, campaign_id, person_id, COALESCE(provider_call_id,''), phone, status,
  duration, transcript, summary, recording_url, raw_response, error_message,
  reconciled_at, created_at, updated_at
`
	var out CallLog
	err := s.db.QueryRowContext(ctx, q,
		l.ID, l.OrgID, l.CampaignID, l.PersonID, l.ProviderCallID, l.Phone, l.Status,
		l.DurationSeconds, l.Transcript, l.Summary, l.RecordingURL, l.RawResponse, l.ErrorMessage,
		now,
	).Scan(
		&out.ID, &out.OrgID, &out.CampaignID, &out.PersonID, &out.ProviderCallID, &out.Phone, &out.Status,
		&out.DurationSeconds, &out.Transcript, &out.Summary, &out.RecordingURL, &out.RawResponse, &out.ErrorMessage,
		&out.ReconciledAt, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Already reconciled; fetch the row for the caller's response.
			existing, ferr := s.getLogByProviderCallID(ctx, l.ProviderCallID)
			if ferr != nil {
				return CallLog{}, false, ferr
			}
			return existing, false, nil
		}
		return CallLog{}, false, err
	}
	return out, true, nil
}

func (s *SQLStore) getLogByProviderCallID(ctx context.Context, providerCallID string) (CallLog, error) {
	const q = `
SELECT id, org_id, campaign_id, person_id, COALESCE(provider_call_id,''), phone, status,
  duration, transcript, summary, recording_url, raw_response, error_message,
  reconciled_at, created_at, updated_at
FROM call_logs
WHERE provider_call_id = $1
`
	var out CallLog
	err := s.db.QueryRowContext(ctx, q, providerCallID).Scan(
		&out.ID, &out.OrgID, &out.CampaignID, &out.PersonID, &out.ProviderCallID, &out.Phone, &out.Status,
		&out.DurationSeconds, &out.Transcript, &out.Summary, &out.RecordingURL, &out.RawResponse, &out.ErrorMessage,
		&out.ReconciledAt, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallLog{}, ErrNotFound
		}
		return CallLog{}, err
	}
	return out, nil
}

func (s *SQLStore) ListAttemptsByCampaign(ctx context.Context, orgID, campaignID string) ([]CallAttempt, error) {
	if orgID == "" || campaignID == "" {
		return nil, ErrInvalidArgument
	}
	const q = `
SELECT id, org_id, campaign_id, person_id, phone, COALESCE(provider_call_id,''), status,
  duration, response_notes, response_category, recording_url, error_message, created_at, updated_at
FROM call_attempts
WHERE org_id = $1 AND campaign_id = $2
ORDER BY created_at, id
`
	rows, err := s.db.QueryContext(ctx, q, orgID, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CallAttempt
	for rows.Next() {
		var a CallAttempt
		if err := rows.Scan(
			&a.ID, &a.OrgID, &a.CampaignID, &a.PersonID, &a.Phone, &a.ProviderCallID, &a.Status,
			&a.DurationSeconds, &a.ResponseNotes, &a.ResponseCategory, &a.RecordingURL, &a.ErrorMessage,
			&a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) ExpireStaleAttempts(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `
UPDATE call_attempts
SET status = $1, error_message = $2, updated_at = $3
WHERE status = $4 AND created_at < $5
`
	res, err := s.db.ExecContext(ctx, q, AttemptFailed, staleAttemptError, s.clock().UTC(), AttemptInProgress, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func mustAffectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
