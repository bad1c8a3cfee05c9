package campaign

import (
	"time"

	"careline/internal/people"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

// Campaign is one outbound calling run.
//
// Multi-tenant invariant: OrgID is required on every row.
//
// Status rules:
//   - created active, before the first dial goes out
//   - active -> paused on a billing error; the pause survives the rest of the
//     run and wins over completion
//   - active -> completed when the dispatch loop finishes
//   - paused is never overwritten by the finalizer
type Campaign struct {
	ID    string `json:"id" db:"id"`
	OrgID string `json:"org_id" db:"org_id"`

	Name string `json:"name" db:"name"`

	// ScriptTemplate is the raw script with {Name}/[Name] placeholders intact;
	// rendering happens per recipient at dispatch time.
	ScriptTemplate string `json:"script_template" db:"script_template"`

	Target people.Target `json:"target"`

	Status Status `json:"status" db:"status"`

	// PausedReason is set when a billing error pauses the campaign.
	PausedReason string `json:"paused_reason,omitempty" db:"paused_reason"`

	ScheduledStart *time.Time `json:"scheduled_start,omitempty" db:"scheduled_start"`

	// EstimatedCostMinor is the fixed per-call estimate times the scheduled
	// count, in minor currency units, recorded when the run finishes. Actual
	// cost is derived from attempts at reporting time, never stored here.
	EstimatedCostMinor int64 `json:"estimated_cost_minor" db:"estimated_cost_minor"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}
