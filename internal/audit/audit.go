package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Event types recorded by the platform.
const (
	EventCampaignStarted   = "campaign_started"
	EventCampaignPaused    = "campaign_paused"
	EventWebhookReconciled = "webhook_reconciled"
	EventEscalationRaised  = "escalation_raised"
	EventAdminAction       = "admin_action"
)

// Event is one append-only audit record. Events are org-scoped and never
// mutated after insert.
type Event struct {
	ID    string `json:"id" db:"id"`
	OrgID string `json:"org_id" db:"org_id"`

	// ActorID is the user id behind the action, or empty for system events
	// (webhook reconciliation, sweeps).
	ActorID string `json:"actor_id,omitempty" db:"actor_id"`

	Type string `json:"type" db:"type"`

	// SubjectID points at the campaign, alert, or call log involved.
	SubjectID string `json:"subject_id,omitempty" db:"subject_id"`

	Detail string `json:"detail,omitempty" db:"detail"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Recorder appends audit events.
type Recorder interface {
	Record(ctx context.Context, e Event) error
}

// Service writes audit events through a Recorder. Audit failures are logged
// and swallowed: the audit trail must never fail a business operation.
type Service struct {
	rec    Recorder
	logger *slog.Logger
	clock  func() time.Time
}

func NewService(rec Recorder, logger *slog.Logger) *Service {
	return &Service{rec: rec, logger: logger, clock: time.Now}
}

func (s *Service) Record(ctx context.Context, e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	if err := s.rec.Record(ctx, e); err != nil {
		s.logger.Warn("audit record failed",
			slog.String("type", e.Type),
			slog.String("org_id", e.OrgID),
			slog.String("error", err.Error()),
		)
	}
}
