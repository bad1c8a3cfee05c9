package campaign

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"careline/internal/audit"
	"careline/internal/calls"
	"careline/internal/people"
	"careline/internal/pricing"
	"careline/internal/script"
	"careline/internal/voice"
)

// ErrDispatchBusy means the organization already has its maximum number of
// dispatch runs in flight.
var ErrDispatchBusy = errors.New("campaign: organization dispatch limit reached")

// Dialer is the outbound-call side of the voice provider.
type Dialer interface {
	StartCall(ctx context.Context, req voice.CallRequest) (voice.Call, error)
}

// StartRequest describes one "start campaign" order.
type StartRequest struct {
	Name     string        `json:"name"`
	ScriptID string        `json:"script_id"`
	Target   people.Target `json:"target"`
}

// RecipientResult is the per-recipient outcome of a dispatch run.
type RecipientResult struct {
	PersonID       string `json:"person_id"`
	Phone          string `json:"phone,omitempty"`
	Status         string `json:"status"` // scheduled, failed, skipped
	ProviderCallID string `json:"provider_call_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

// StartResult aggregates a dispatch run.
type StartResult struct {
	CampaignID string            `json:"campaign_id,omitempty"`
	Scheduled  int               `json:"scheduled"`
	Failed     int               `json:"failed"`
	Paused     bool              `json:"paused"`
	Results    []RecipientResult `json:"results"`
}

// Service runs outbound calling campaigns: resolve recipients, dial them one
// by one with per-recipient bookkeeping, then finalize the campaign record.
type Service struct {
	campaigns Store
	scripts   script.Store
	resolver  *people.Resolver
	callStore calls.Store
	dialer    Dialer
	gate      Gate
	estimator pricing.Estimator
	audit     *audit.Service
	logger    *slog.Logger

	interCallDelay time.Duration

	// sleep and clock are injectable for deterministic tests.
	sleep func(time.Duration)
	clock func() time.Time
}

// ServiceDeps collects the dispatcher's collaborators.
type ServiceDeps struct {
	Campaigns Store
	Scripts   script.Store
	Resolver  *people.Resolver
	CallStore calls.Store
	Dialer    Dialer
	Gate      Gate
	Estimator pricing.Estimator
	Audit     *audit.Service
	Logger    *slog.Logger

	InterCallDelay time.Duration
}

func NewService(d ServiceDeps) *Service {
	s := &Service{
		campaigns:      d.Campaigns,
		scripts:        d.Scripts,
		resolver:       d.Resolver,
		callStore:      d.CallStore,
		dialer:         d.Dialer,
		gate:           d.Gate,
		estimator:      d.Estimator,
		audit:          d.Audit,
		logger:         d.Logger,
		interCallDelay: d.InterCallDelay,
		sleep:          time.Sleep,
		clock:          time.Now,
	}
	if s.gate == nil {
		s.gate = openGate{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// StartCalls executes one campaign run synchronously.
//
// Recipients are dialed sequentially; each recipient's failure is isolated.
// A billing error pauses the campaign so later runs stop, but the remaining
// recipients of THIS run are still attempted.
func (s *Service) StartCalls(ctx context.Context, orgID, actorID string, req StartRequest) (StartResult, error) {
	if orgID == "" || req.ScriptID == "" || !req.Target.Valid() {
		return StartResult{}, ErrInvalidArgument
	}

	ok, err := s.gate.Acquire(ctx, orgID)
	if err != nil {
		return StartResult{}, err
	}
	if !ok {
		return StartResult{}, ErrDispatchBusy
	}
	defer func() {
		if err := s.gate.Release(context.WithoutCancel(ctx), orgID); err != nil {
			s.logger.Warn("dispatch gate release failed", slog.String("org_id", orgID), slog.String("error", err.Error()))
		}
	}()

	cs, err := s.scripts.Get(ctx, orgID, req.ScriptID)
	if err != nil {
		return StartResult{}, fmt.Errorf("load script: %w", err)
	}

	recipients, err := s.resolver.Resolve(ctx, orgID, req.Target)
	if err != nil {
		return StartResult{}, fmt.Errorf("resolve recipients: %w", err)
	}
	if len(recipients) == 0 {
		// Benign outcome. No campaign row is created for a run that would
		// dial nobody.
		return StartResult{Results: []RecipientResult{}}, nil
	}

	now := s.clock().UTC()
	camp := Campaign{
		ID:             uuid.NewString(),
		OrgID:          orgID,
		Name:           req.Name,
		ScriptTemplate: cs.Template,
		Target:         req.Target,
		Status:         StatusActive,
		ScheduledStart: &now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	camp, err = s.campaigns.Create(ctx, camp)
	if err != nil {
		return StartResult{}, fmt.Errorf("create campaign: %w", err)
	}

	s.audit.Record(ctx, audit.Event{
		OrgID:     orgID,
		ActorID:   actorID,
		Type:      audit.EventCampaignStarted,
		SubjectID: camp.ID,
		Detail:    fmt.Sprintf("%d recipients", len(recipients)),
	})
	s.logger.Info("campaign dispatch started",
		slog.String("org_id", orgID),
		slog.String("campaign_id", camp.ID),
		slog.Int("recipients", len(recipients)),
	)

	res := StartResult{CampaignID: camp.ID}
	dialed := make(map[string]bool, len(recipients))
	for i, p := range recipients {
		if dialed[p.ID] {
			// Duplicate group membership: one attempt per (campaign, person).
			res.Results = append(res.Results, RecipientResult{PersonID: p.ID, Status: "skipped"})
			continue
		}
		dialed[p.ID] = true

		rr, dialErr := s.dispatchOne(ctx, camp, p)
		res.Results = append(res.Results, rr)

		switch rr.Status {
		case "scheduled":
			res.Scheduled++
			if i < len(recipients)-1 {
				s.sleep(s.interCallDelay)
			}
		case "failed":
			res.Failed++
		}

		if dialErr != nil && voice.IsBillingError(dialErr) && !res.Paused {
			res.Paused = true
			paused, perr := s.campaigns.Pause(ctx, orgID, camp.ID, dialErr.Error())
			if perr != nil {
				s.logger.Error("campaign pause failed",
					slog.String("campaign_id", camp.ID), slog.String("error", perr.Error()))
			} else if paused {
				s.audit.Record(ctx, audit.Event{
					OrgID:     orgID,
					Type:      audit.EventCampaignPaused,
					SubjectID: camp.ID,
					Detail:    "billing error: " + dialErr.Error(),
				})
				s.logger.Warn("campaign paused on billing error",
					slog.String("org_id", orgID), slog.String("campaign_id", camp.ID))
			}
		}
	}

	if _, err := s.campaigns.Finalize(ctx, orgID, camp.ID, s.estimator.Estimate(res.Scheduled), s.clock()); err != nil {
		s.logger.Error("campaign finalize failed",
			slog.String("campaign_id", camp.ID), slog.String("error", err.Error()))
	}

	s.logger.Info("campaign dispatch finished",
		slog.String("campaign_id", camp.ID),
		slog.Int("scheduled", res.Scheduled),
		slog.Int("failed", res.Failed),
		slog.Bool("paused", res.Paused),
	)
	return res, nil
}

// dispatchOne runs the full per-recipient sequence. The returned error, when
// non-nil, is the provider failure for billing classification; the recipient's
// outcome is already recorded in the result and the attempt row.
func (s *Service) dispatchOne(ctx context.Context, camp Campaign, p people.Person) (RecipientResult, error) {
	normalized, normErr := NormalizePhone(p.Phone)
	phone := normalized
	if normErr != nil {
		phone = p.Phone
	}

	attemptID := uuid.NewString()
	attempt, err := s.callStore.UpsertAttempt(ctx, calls.CallAttempt{
		ID:         attemptID,
		OrgID:      camp.OrgID,
		CampaignID: camp.ID,
		PersonID:   p.ID,
		Phone:      phone,
		Status:     calls.AttemptInProgress,
	})
	if err != nil {
		return RecipientResult{PersonID: p.ID, Phone: phone, Status: "failed", Error: err.Error()}, nil
	}
	if attempt.ID != attemptID {
		// An attempt for this (campaign, person) already exists.
		return RecipientResult{PersonID: p.ID, Phone: phone, Status: "skipped"}, nil
	}

	if normErr != nil {
		s.recordDispatchFailure(ctx, camp, p, attempt.ID, phone, normErr)
		return RecipientResult{PersonID: p.ID, Phone: phone, Status: "failed", Error: normErr.Error()}, nil
	}

	call, err := s.dialer.StartCall(ctx, voice.CallRequest{
		PhoneNumber:  phone,
		CustomerName: p.FullName(),
		FirstMessage: script.Render(camp.ScriptTemplate, p.FirstName),
		Metadata: voice.Metadata{
			OrgID:      camp.OrgID,
			PersonID:   p.ID,
			CampaignID: camp.ID,
		},
	})
	if err != nil {
		s.recordDispatchFailure(ctx, camp, p, attempt.ID, phone, err)
		return RecipientResult{PersonID: p.ID, Phone: phone, Status: "failed", Error: err.Error()}, err
	}

	if err := s.callStore.SetAttemptProviderCall(ctx, attempt.ID, call.ID); err != nil {
		s.logger.Error("store provider call id failed",
			slog.String("attempt_id", attempt.ID), slog.String("error", err.Error()))
	}
	if _, err := s.callStore.SaveDispatchLog(ctx, calls.CallLog{
		OrgID:          camp.OrgID,
		CampaignID:     camp.ID,
		PersonID:       p.ID,
		ProviderCallID: call.ID,
		Phone:          phone,
		Status:         call.Status,
		RawResponse:    call.Raw,
	}); err != nil {
		s.logger.Error("save dispatch log failed",
			slog.String("attempt_id", attempt.ID), slog.String("error", err.Error()))
	}

	return RecipientResult{PersonID: p.ID, Phone: phone, Status: "scheduled", ProviderCallID: call.ID}, nil
}

func (s *Service) recordDispatchFailure(ctx context.Context, camp Campaign, p people.Person, attemptID, phone string, cause error) {
	if err := s.callStore.MarkAttemptFailed(ctx, attemptID, cause.Error()); err != nil {
		s.logger.Error("mark attempt failed errored",
			slog.String("attempt_id", attemptID), slog.String("error", err.Error()))
	}
	if _, err := s.callStore.SaveDispatchLog(ctx, calls.CallLog{
		OrgID:        camp.OrgID,
		CampaignID:   camp.ID,
		PersonID:     p.ID,
		Phone:        phone,
		Status:       "dispatch_failed",
		ErrorMessage: cause.Error(),
	}); err != nil {
		s.logger.Error("save dispatch log failed",
			slog.String("attempt_id", attemptID), slog.String("error", err.Error()))
	}
	s.logger.Warn("recipient dispatch failed",
		slog.String("campaign_id", camp.ID),
		slog.String("person_id", p.ID),
		slog.String("error", cause.Error()),
	)
}

// Get returns one campaign.
func (s *Service) Get(ctx context.Context, orgID, campaignID string) (Campaign, error) {
	if orgID == "" || campaignID == "" {
		return Campaign{}, ErrInvalidArgument
	}
	return s.campaigns.Get(ctx, orgID, campaignID)
}

// List returns an organization's campaigns, newest first.
func (s *Service) List(ctx context.Context, orgID string) ([]Campaign, error) {
	if orgID == "" {
		return nil, ErrInvalidArgument
	}
	return s.campaigns.List(ctx, orgID)
}
