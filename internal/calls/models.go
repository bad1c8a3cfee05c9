package calls

import "time"

// CallAttempt is one recipient's call within a campaign.
//
// Multi-tenant invariant: OrgID is required on every row.
//
// Lifecycle:
//   - created by the dispatcher with status in_progress BEFORE the provider
//     request goes out, so a crash mid-dispatch still leaves an audit trail
//   - mutated by the dispatcher on immediate provider error
//   - finalized at most once by the webhook reconciler, looked up by
//     ProviderCallID (the attempt's own id is unknown to the provider)
//
// Exactly one attempt exists per (campaign, person) pair.
type CallAttempt struct {
	ID         string `json:"id" db:"id"`
	OrgID      string `json:"org_id" db:"org_id"`
	CampaignID string `json:"campaign_id" db:"campaign_id"`
	PersonID   string `json:"person_id" db:"person_id"`

	// Phone is the number actually dialed (normalized).
	Phone string `json:"phone" db:"phone"`

	// ProviderCallID is assigned asynchronously, after dispatch succeeds.
	ProviderCallID string `json:"provider_call_id,omitempty" db:"provider_call_id"`

	Status AttemptStatus `json:"status" db:"status"`

	DurationSeconds  int    `json:"duration" db:"duration"`
	ResponseNotes    string `json:"response_notes,omitempty" db:"response_notes"`
	ResponseCategory string `json:"response_category,omitempty" db:"response_category"`
	RecordingURL     string `json:"recording_url,omitempty" db:"recording_url"`
	ErrorMessage     string `json:"error_message,omitempty" db:"error_message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptFailed     AttemptStatus = "failed"
	AttemptNoAnswer   AttemptStatus = "no_answer"
	AttemptBusy       AttemptStatus = "busy"
)

// AttemptFinal carries the reconciler's final verdict for an attempt.
type AttemptFinal struct {
	Status           AttemptStatus
	DurationSeconds  int
	ResponseNotes    string
	ResponseCategory string
	RecordingURL     string
}

// CallLog is a durable copy of raw provider call data, independent of the
// CallAttempt lifecycle. It anchors escalation/follow-up records and exists
// for debugging; rows are never deleted by application code.
//
// One row per provider call id: created on first contact with the provider
// (or at report time if dispatch never logged one), updated in place when the
// end-of-call report lands. ReconciledAt marks that the report has been
// applied; it is set at most once, which is what makes webhook redelivery a
// no-op.
type CallLog struct {
	ID         string `json:"id" db:"id"`
	OrgID      string `json:"org_id" db:"org_id"`
	CampaignID string `json:"campaign_id,omitempty" db:"campaign_id"`
	PersonID   string `json:"person_id,omitempty" db:"person_id"`

	ProviderCallID string `json:"provider_call_id,omitempty" db:"provider_call_id"`

	Phone           string `json:"phone,omitempty" db:"phone"`
	Status          string `json:"status,omitempty" db:"status"`
	DurationSeconds int    `json:"duration" db:"duration"`

	Transcript   string `json:"transcript,omitempty" db:"transcript"`
	Summary      string `json:"summary,omitempty" db:"summary"`
	RecordingURL string `json:"recording_url,omitempty" db:"recording_url"`

	// RawResponse holds the provider payload verbatim, as JSON text.
	RawResponse  string `json:"raw_response,omitempty" db:"raw_response"`
	ErrorMessage string `json:"error_message,omitempty" db:"error_message"`

	ReconciledAt *time.Time `json:"reconciled_at,omitempty" db:"reconciled_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
