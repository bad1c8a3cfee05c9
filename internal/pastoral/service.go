package pastoral

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("pastoral: not found")
	ErrInvalidArgument   = errors.New("pastoral: invalid argument")
	ErrInvalidTransition = errors.New("pastoral: invalid status transition")
)

// Store is the persistence contract for alerts and follow-ups.
//
// No Delete methods are provided: alerts and follow-ups are
// never destroyed, only resolved/completed.
type Store interface {
	CreateAlert(ctx context.Context, a EscalationAlert) (EscalationAlert, error)
	ResolveAlert(ctx context.Context, orgID, alertID string) (EscalationAlert, error)
	ListAlerts(ctx context.Context, orgID string, status AlertStatus) ([]EscalationAlert, error)

	CreateFollowUp(ctx context.Context, f FollowUp) (FollowUp, error)

	// UpdateFollowUp applies mutate to the follow-up under a write lock, so
	// concurrent status moves and note appends cannot overwrite each other.
	// A mutate error aborts the update and is returned unchanged.
	UpdateFollowUp(ctx context.Context, orgID, followUpID string, mutate func(f *FollowUp) error) (FollowUp, error)

	ListFollowUps(ctx context.Context, orgID string, status FollowUpStatus) ([]FollowUp, error)
}

// Service owns alert/follow-up lifecycle rules.
type Service struct {
	store Store
	clock func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, clock: time.Now}
}

func (s *Service) RaiseAlert(ctx context.Context, a EscalationAlert) (EscalationAlert, error) {
	if a.OrgID == "" || a.PersonID == "" {
		return EscalationAlert{}, ErrInvalidArgument
	}
	if a.AlertType != AlertCrisisDetected && a.AlertType != AlertPastoralCareNeeded {
		return EscalationAlert{}, ErrInvalidArgument
	}
	if !ValidPriority(a.Priority) {
		a.Priority = PriorityMedium
	}
	now := s.clock().UTC()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Status = AlertOpen
	a.CreatedAt = now
	a.ResolvedAt = nil
	return s.store.CreateAlert(ctx, a)
}

func (s *Service) ResolveAlert(ctx context.Context, orgID, alertID string) (EscalationAlert, error) {
	if orgID == "" || alertID == "" {
		return EscalationAlert{}, ErrInvalidArgument
	}
	return s.store.ResolveAlert(ctx, orgID, alertID)
}

func (s *Service) ListAlerts(ctx context.Context, orgID string, status AlertStatus) ([]EscalationAlert, error) {
	if orgID == "" {
		return nil, ErrInvalidArgument
	}
	return s.store.ListAlerts(ctx, orgID, status)
}

// CreateSystemFollowUp opens a follow-up on behalf of the reconciler, with a
// system note naming the condition that triggered it.
func (s *Service) CreateSystemFollowUp(ctx context.Context, orgID, personID, callLogID string, priority Priority, reason string) (FollowUp, error) {
	if orgID == "" || personID == "" || reason == "" {
		return FollowUp{}, ErrInvalidArgument
	}
	now := s.clock().UTC()
	f := FollowUp{
		ID:        uuid.NewString(),
		OrgID:     orgID,
		PersonID:  personID,
		CallLogID: callLogID,
		Status:    FollowUpNew,
		Priority:  priority,
		Notes: []Note{{
			Text:      fmt.Sprintf("Auto-created from call analysis: %s", reason),
			System:    true,
			CreatedAt: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if !ValidPriority(f.Priority) {
		f.Priority = PriorityMedium
	}
	return s.store.CreateFollowUp(ctx, f)
}

// CreateManualFollowUp opens a follow-up on behalf of a staff member.
func (s *Service) CreateManualFollowUp(ctx context.Context, orgID, personID, authorName, noteText string, priority Priority) (FollowUp, error) {
	if orgID == "" || personID == "" {
		return FollowUp{}, ErrInvalidArgument
	}
	now := s.clock().UTC()
	f := FollowUp{
		ID:        uuid.NewString(),
		OrgID:     orgID,
		PersonID:  personID,
		Status:    FollowUpNew,
		Priority:  priority,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if !ValidPriority(f.Priority) {
		f.Priority = PriorityMedium
	}
	if noteText != "" {
		f.Notes = []Note{{Text: noteText, AuthorName: authorName, CreatedAt: now}}
	}
	return s.store.CreateFollowUp(ctx, f)
}

// Transition moves a follow-up along new -> in_progress -> completed.
// Backward moves are rejected; completed is terminal.
func (s *Service) Transition(ctx context.Context, orgID, followUpID string, next FollowUpStatus) (FollowUp, error) {
	if orgID == "" || followUpID == "" {
		return FollowUp{}, ErrInvalidArgument
	}
	return s.store.UpdateFollowUp(ctx, orgID, followUpID, func(f *FollowUp) error {
		if !f.Status.CanTransition(next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, f.Status, next)
		}
		f.Status = next
		f.UpdatedAt = s.clock().UTC()
		return nil
	})
}

// AppendNote adds a user-authored note to a follow-up's history.
func (s *Service) AppendNote(ctx context.Context, orgID, followUpID, authorName, text string) (FollowUp, error) {
	if orgID == "" || followUpID == "" || text == "" {
		return FollowUp{}, ErrInvalidArgument
	}
	return s.store.UpdateFollowUp(ctx, orgID, followUpID, func(f *FollowUp) error {
		now := s.clock().UTC()
		f.Notes = append(f.Notes, Note{Text: text, AuthorName: authorName, CreatedAt: now})
		f.UpdatedAt = now
		return nil
	})
}

func (s *Service) ListFollowUps(ctx context.Context, orgID string, status FollowUpStatus) ([]FollowUp, error) {
	if orgID == "" {
		return nil, ErrInvalidArgument
	}
	return s.store.ListFollowUps(ctx, orgID, status)
}
