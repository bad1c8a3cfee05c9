package pastoral

import "time"

// Priority vocabulary shared by alerts and follow-ups.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ValidPriority reports whether p is in the vocabulary.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// NormalizePriority maps free-form analysis output into the vocabulary,
// defaulting to medium.
func NormalizePriority(s string) Priority {
	p := Priority(s)
	if ValidPriority(p) {
		return p
	}
	return PriorityMedium
}

type AlertType string

const (
	AlertCrisisDetected     AlertType = "crisis_detected"
	AlertPastoralCareNeeded AlertType = "pastoral_care_needed"
)

type AlertStatus string

const (
	AlertOpen     AlertStatus = "open"
	AlertResolved AlertStatus = "resolved"
)

// EscalationAlert flags a congregant needing urgent pastoral attention,
// raised from AI call analysis. Alerts are never auto-deleted.
//
// CallLogID is a weak reference: deleting a call log must not cascade into
// alerts that already exist.
type EscalationAlert struct {
	ID       string `json:"id" db:"id"`
	OrgID    string `json:"org_id" db:"org_id"`
	PersonID string `json:"person_id" db:"person_id"`

	CallLogID string `json:"call_log_id,omitempty" db:"call_log_id"`

	AlertType AlertType   `json:"alert_type" db:"alert_type"`
	Priority  Priority    `json:"priority" db:"priority"`
	Message   string      `json:"message" db:"message"`
	Status    AlertStatus `json:"status" db:"status"`

	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
}

type FollowUpStatus string

const (
	FollowUpNew        FollowUpStatus = "new"
	FollowUpInProgress FollowUpStatus = "in_progress"
	FollowUpCompleted  FollowUpStatus = "completed"
)

// statusRank orders follow-up statuses; transitions must strictly increase.
func statusRank(s FollowUpStatus) int {
	switch s {
	case FollowUpNew:
		return 0
	case FollowUpInProgress:
		return 1
	case FollowUpCompleted:
		return 2
	default:
		return -1
	}
}

// CanTransition reports whether a follow-up may move from s to next.
// Transitions are monotonic; completed items are never reopened.
func (s FollowUpStatus) CanTransition(next FollowUpStatus) bool {
	from, to := statusRank(s), statusRank(next)
	return from >= 0 && to >= 0 && to > from
}

// FollowUp is a staff work item, created automatically from call analysis or
// manually. Follow-ups are never destroyed, only completed.
type FollowUp struct {
	ID       string `json:"id" db:"id"`
	OrgID    string `json:"org_id" db:"org_id"`
	PersonID string `json:"person_id" db:"person_id"`

	// CallLogID is set for auto-created items; manual ones may omit it.
	CallLogID string `json:"call_log_id,omitempty" db:"call_log_id"`

	Status   FollowUpStatus `json:"status" db:"status"`
	Priority Priority       `json:"priority" db:"priority"`

	// Notes is an ordered, append-only list stored as JSONB.
	Notes []Note `json:"notes" db:"notes"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Note is one entry in a follow-up's note history.
type Note struct {
	Text string `json:"text"`

	// System marks notes written by the reconciler rather than staff.
	System bool `json:"system"`

	// AuthorName is set for user-authored notes.
	AuthorName string `json:"author_name,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
