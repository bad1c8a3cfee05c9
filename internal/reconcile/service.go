package reconcile

import (
	"context"
	"log/slog"

	"careline/internal/audit"
	"careline/internal/calls"
	"careline/internal/pastoral"
	"careline/internal/voice"
)

// maxResponseNotes caps the text copied onto the attempt row; the full
// summary and transcript live on the call log.
const maxResponseNotes = 500

// Notifier pings the on-call pastor about a fresh escalation. Implementations
// must be safe to call best-effort; nil disables notification.
type Notifier interface {
	NotifyEscalation(ctx context.Context, alert pastoral.EscalationAlert) error
}

// Outcome summarizes what one report did.
type Outcome struct {
	ProviderCallID string
	Status         calls.AttemptStatus
	Duration       int

	// Applied is false when the report could not be correlated (no call id)
	// or was already applied (webhook redelivery).
	Applied bool
}

// Service applies end-of-call reports: finalize the attempt, upsert the call
// log, and open escalation/follow-up records from the AI analysis.
//
// Everything after the call-log claim is best-effort and independent; a
// failed alert insert never blocks the follow-up insert or the provider ack.
type Service struct {
	callStore calls.Store
	pastoral  *pastoral.Service
	audit     *audit.Service
	notifier  Notifier
	logger    *slog.Logger
}

func NewService(callStore calls.Store, past *pastoral.Service, aud *audit.Service, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		callStore: callStore,
		pastoral:  past,
		audit:     aud,
		notifier:  notifier,
		logger:    logger,
	}
}

// ProcessReport reconciles one parsed end-of-call report.
//
// Reports arrive in no particular order relative to dispatch; correlation is
// only ever by provider call id. Redelivery is detected by the call-log claim
// and short-circuits all downstream writes.
func (s *Service) ProcessReport(ctx context.Context, r voice.Report) (Outcome, error) {
	if r.ProviderCallID == "" {
		// Nothing to correlate against. Acknowledge and move on.
		s.logger.Warn("end-of-call report without call id, skipping")
		return Outcome{}, nil
	}

	status := MapEndedReason(r.EndedReason)
	out := Outcome{ProviderCallID: r.ProviderCallID, Status: status, Duration: r.DurationSeconds}

	log, claimed, err := s.callStore.ClaimReport(ctx, calls.CallLog{
		OrgID:           r.Metadata.OrgID,
		CampaignID:      r.Metadata.CampaignID,
		PersonID:        r.Metadata.PersonID,
		ProviderCallID:  r.ProviderCallID,
		Phone:           r.PhoneNumber,
		Status:          string(status),
		DurationSeconds: r.DurationSeconds,
		Transcript:      r.Transcript,
		Summary:         r.Summary,
		RecordingURL:    r.RecordingURL,
		RawResponse:     r.Raw,
	})
	if err != nil {
		return Outcome{}, err
	}
	if !claimed {
		s.logger.Info("report already reconciled, redelivery ignored",
			slog.String("provider_call_id", r.ProviderCallID))
		return out, nil
	}
	out.Applied = true

	matched, err := s.callStore.FinalizeAttempt(ctx, r.ProviderCallID, calls.AttemptFinal{
		Status:           status,
		DurationSeconds:  r.DurationSeconds,
		ResponseNotes:    truncate(r.Summary, maxResponseNotes),
		ResponseCategory: sentimentCategory(r.Analysis.Sentiment),
		RecordingURL:     r.RecordingURL,
	})
	if err != nil {
		s.logger.Error("finalize attempt failed",
			slog.String("provider_call_id", r.ProviderCallID), slog.String("error", err.Error()))
	} else if !matched {
		s.logger.Warn("no attempt matches provider call id",
			slog.String("provider_call_id", r.ProviderCallID))
	}

	s.audit.Record(ctx, audit.Event{
		OrgID:     r.Metadata.OrgID,
		Type:      audit.EventWebhookReconciled,
		SubjectID: log.ID,
		Detail:    string(status),
	})

	if r.Metadata.OrgID != "" && r.Metadata.PersonID != "" {
		s.escalate(ctx, r, log.ID)
	}

	s.logger.Info("report reconciled",
		slog.String("provider_call_id", r.ProviderCallID),
		slog.String("status", string(status)),
		slog.Int("duration", r.DurationSeconds),
	)
	return out, nil
}

// escalate opens the alert and follow-up the analysis calls for. Each write
// is independent and best-effort.
func (s *Service) escalate(ctx context.Context, r voice.Report, callLogID string) {
	priority := pastoral.NormalizePriority(r.Analysis.Priority)

	if r.Analysis.NeedsEscalation() {
		alertType := pastoral.AlertPastoralCareNeeded
		message := "Pastoral care requested during call"
		if r.Analysis.CrisisDetected {
			// Crisis wins when both flags are set.
			alertType = pastoral.AlertCrisisDetected
			message = r.Analysis.CrisisReason
			if message == "" {
				message = "Crisis indicators detected during call"
			}
		}
		alert, err := s.pastoral.RaiseAlert(ctx, pastoral.EscalationAlert{
			OrgID:     r.Metadata.OrgID,
			PersonID:  r.Metadata.PersonID,
			CallLogID: callLogID,
			AlertType: alertType,
			Priority:  priority,
			Message:   message,
		})
		if err != nil {
			s.logger.Error("escalation alert insert failed",
				slog.String("provider_call_id", r.ProviderCallID), slog.String("error", err.Error()))
		} else {
			s.audit.Record(ctx, audit.Event{
				OrgID:     alert.OrgID,
				Type:      audit.EventEscalationRaised,
				SubjectID: alert.ID,
				Detail:    string(alertType),
			})
			if s.notifier != nil {
				if err := s.notifier.NotifyEscalation(ctx, alert); err != nil {
					s.logger.Warn("escalation notification failed",
						slog.String("alert_id", alert.ID), slog.String("error", err.Error()))
				}
			}
		}
	}

	if r.Analysis.NeedsFollowUp() {
		reason := "Follow-up Requested"
		switch {
		case r.Analysis.CrisisDetected:
			reason = "Crisis Detected"
		case r.Analysis.PastoralCareNeeded:
			reason = "Pastoral Care Needed"
		}
		if _, err := s.pastoral.CreateSystemFollowUp(ctx, r.Metadata.OrgID, r.Metadata.PersonID, callLogID, priority, reason); err != nil {
			s.logger.Error("follow-up insert failed",
				slog.String("provider_call_id", r.ProviderCallID), slog.String("error", err.Error()))
		}
	}
}

// sentimentCategory keeps the sentiment as the response category when it
// carries signal; neutral adds nothing.
func sentimentCategory(sentiment string) string {
	if sentiment == "" || sentiment == "neutral" {
		return ""
	}
	return sentiment
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
