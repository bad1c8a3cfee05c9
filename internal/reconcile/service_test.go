package reconcile

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"careline/internal/audit"
	"careline/internal/calls"
	"careline/internal/pastoral"
	"careline/internal/voice"
)

type reconcileFixture struct {
	svc       *Service
	callStore *calls.MemoryStore
	pastStore *pastoral.MemoryStore
	audit     *audit.MemoryRecorder
	notified  []pastoral.EscalationAlert
}

func newReconcileFixture(t *testing.T) *reconcileFixture {
	t.Helper()
	f := &reconcileFixture{
		callStore: calls.NewMemoryStore(),
		pastStore: pastoral.NewMemoryStore(),
		audit:     audit.NewMemoryRecorder(),
	}
	f.svc = NewService(
		f.callStore,
		pastoral.NewService(f.pastStore),
		audit.NewService(f.audit, slog.Default()),
		notifierFunc(func(_ context.Context, a pastoral.EscalationAlert) error {
			f.notified = append(f.notified, a)
			return nil
		}),
		slog.Default(),
	)
	return f
}

type notifierFunc func(context.Context, pastoral.EscalationAlert) error

func (fn notifierFunc) NotifyEscalation(ctx context.Context, a pastoral.EscalationAlert) error {
	return fn(ctx, a)
}

// seedAttempt creates the dispatch-time attempt the report will finalize.
func (f *reconcileFixture) seedAttempt(t *testing.T, providerCallID string) calls.CallAttempt {
	t.Helper()
	ctx := context.Background()
	a, err := f.callStore.UpsertAttempt(ctx, calls.CallAttempt{
		OrgID: "org-1", CampaignID: "camp-1", PersonID: "p-1", Phone: "+15551230001",
	})
	if err != nil {
		t.Fatalf("seed attempt: %v", err)
	}
	if err := f.callStore.SetAttemptProviderCall(ctx, a.ID, providerCallID); err != nil {
		t.Fatalf("seed provider call: %v", err)
	}
	return a
}

func baseReport(providerCallID string) voice.Report {
	return voice.Report{
		Type:            voice.ReportTypeEndOfCall,
		ProviderCallID:  providerCallID,
		EndedReason:     "customer-ended-call",
		DurationSeconds: 80,
		Transcript:      "assistant: Hello\nuser: Hi",
		Summary:         "Warm conversation, no concerns.",
		RecordingURL:    "https://rec.test/1.mp3",
		Metadata:        voice.Metadata{OrgID: "org-1", PersonID: "p-1", CampaignID: "camp-1"},
		Raw:             `{"stub":true}`,
	}
}

func TestProcessReportFinalizesAttempt(t *testing.T) {
	f := newReconcileFixture(t)
	f.seedAttempt(t, "prov-1")

	r := baseReport("prov-1")
	r.Analysis.Sentiment = "positive"
	out, err := f.svc.ProcessReport(context.Background(), r)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !out.Applied || out.Status != calls.AttemptCompleted || out.Duration != 80 {
		t.Fatalf("unexpected outcome %+v", out)
	}

	attempts := f.callStore.Attempts()
	if len(attempts) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(attempts))
	}
	a := attempts[0]
	if a.Status != calls.AttemptCompleted || a.DurationSeconds != 80 {
		t.Fatalf("unexpected attempt %+v", a)
	}
	if a.ResponseNotes != "Warm conversation, no concerns." {
		t.Fatalf("unexpected notes %q", a.ResponseNotes)
	}
	if a.ResponseCategory != "positive" {
		t.Fatalf("unexpected category %q", a.ResponseCategory)
	}
	if a.RecordingURL != "https://rec.test/1.mp3" {
		t.Fatalf("unexpected recording %q", a.RecordingURL)
	}

	logs := f.callStore.Logs()
	if len(logs) != 1 || logs[0].ReconciledAt == nil {
		t.Fatalf("expected 1 reconciled log, got %+v", logs)
	}
}

func TestProcessReportDoubleDeliveryIsIdempotent(t *testing.T) {
	f := newReconcileFixture(t)
	f.seedAttempt(t, "prov-1")

	r := baseReport("prov-1")
	r.Analysis.CrisisDetected = true
	r.Analysis.Priority = "urgent"

	first, err := f.svc.ProcessReport(context.Background(), r)
	if err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	second, err := f.svc.ProcessReport(context.Background(), r)
	if err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if !first.Applied || second.Applied {
		t.Fatalf("exactly the first delivery must apply, got %+v then %+v", first, second)
	}

	if n := len(f.callStore.Logs()); n != 1 {
		t.Fatalf("expected 1 call log, got %d", n)
	}
	alerts, _ := f.pastStore.ListAlerts(context.Background(), "org-1", "")
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	followUps, _ := f.pastStore.ListFollowUps(context.Background(), "org-1", "")
	if len(followUps) != 1 {
		t.Fatalf("expected 1 follow-up, got %d", len(followUps))
	}
}

func TestProcessReportCrisisWinsOverPastoralCare(t *testing.T) {
	f := newReconcileFixture(t)
	f.seedAttempt(t, "prov-1")

	r := baseReport("prov-1")
	r.Analysis.CrisisDetected = true
	r.Analysis.CrisisReason = "mentioned self-harm"
	r.Analysis.PastoralCareNeeded = true
	r.Analysis.Priority = "urgent"

	if _, err := f.svc.ProcessReport(context.Background(), r); err != nil {
		t.Fatalf("process: %v", err)
	}

	alerts, _ := f.pastStore.ListAlerts(context.Background(), "org-1", "")
	if len(alerts) != 1 {
		t.Fatalf("expected exactly 1 alert, got %d", len(alerts))
	}
	a := alerts[0]
	if a.AlertType != pastoral.AlertCrisisDetected {
		t.Fatalf("alert type = %q, want crisis_detected", a.AlertType)
	}
	if a.Priority != pastoral.PriorityUrgent || a.Message != "mentioned self-harm" {
		t.Fatalf("unexpected alert %+v", a)
	}

	followUps, _ := f.pastStore.ListFollowUps(context.Background(), "org-1", "")
	if len(followUps) != 1 {
		t.Fatalf("expected exactly 1 follow-up, got %d", len(followUps))
	}
	fu := followUps[0]
	if fu.Status != pastoral.FollowUpNew || len(fu.Notes) != 1 {
		t.Fatalf("unexpected follow-up %+v", fu)
	}
	if !strings.Contains(fu.Notes[0].Text, "Crisis Detected") {
		t.Fatalf("follow-up note must name the trigger, got %q", fu.Notes[0].Text)
	}
	if fu.CallLogID == "" {
		t.Fatal("follow-up must reference the call log")
	}

	if len(f.notified) != 1 {
		t.Fatalf("expected 1 escalation notification, got %d", len(f.notified))
	}
}

func TestProcessReportFollowUpOnlyNoAlert(t *testing.T) {
	f := newReconcileFixture(t)
	f.seedAttempt(t, "prov-1")

	r := baseReport("prov-1")
	r.Analysis.FollowUpNeeded = true

	if _, err := f.svc.ProcessReport(context.Background(), r); err != nil {
		t.Fatalf("process: %v", err)
	}

	alerts, _ := f.pastStore.ListAlerts(context.Background(), "org-1", "")
	if len(alerts) != 0 {
		t.Fatalf("expected no alert, got %d", len(alerts))
	}
	followUps, _ := f.pastStore.ListFollowUps(context.Background(), "org-1", "")
	if len(followUps) != 1 {
		t.Fatalf("expected 1 follow-up, got %d", len(followUps))
	}
	if followUps[0].Priority != pastoral.PriorityMedium {
		t.Fatalf("missing priority must default to medium, got %q", followUps[0].Priority)
	}
}

func TestProcessReportWithoutMetadataSkipsEscalation(t *testing.T) {
	f := newReconcileFixture(t)
	f.seedAttempt(t, "prov-1")

	r := baseReport("prov-1")
	r.Metadata = voice.Metadata{}
	r.Analysis.CrisisDetected = true

	out, err := f.svc.ProcessReport(context.Background(), r)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !out.Applied {
		t.Fatal("report should still be applied to the call log")
	}
	alerts, _ := f.pastStore.ListAlerts(context.Background(), "org-1", "")
	if len(alerts) != 0 {
		t.Fatal("no alert may be created without tenant metadata")
	}
}

func TestProcessReportNoCallIDIsNoOp(t *testing.T) {
	f := newReconcileFixture(t)
	r := baseReport("")

	out, err := f.svc.ProcessReport(context.Background(), r)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if out.Applied {
		t.Fatal("report without call id must not apply")
	}
	if len(f.callStore.Logs()) != 0 {
		t.Fatal("no call log may be written without a call id")
	}
}

func TestProcessReportTruncatesNotes(t *testing.T) {
	f := newReconcileFixture(t)
	f.seedAttempt(t, "prov-1")

	r := baseReport("prov-1")
	r.Summary = strings.Repeat("a", 600)

	if _, err := f.svc.ProcessReport(context.Background(), r); err != nil {
		t.Fatalf("process: %v", err)
	}
	a := f.callStore.Attempts()[0]
	if len(a.ResponseNotes) != maxResponseNotes {
		t.Fatalf("notes length = %d, want %d", len(a.ResponseNotes), maxResponseNotes)
	}

	// The untruncated summary still lands on the call log.
	l := f.callStore.Logs()[0]
	if len(l.Summary) != 600 {
		t.Fatalf("log summary length = %d, want 600", len(l.Summary))
	}
}

func TestProcessReportUnknownCallStillLogs(t *testing.T) {
	f := newReconcileFixture(t)
	// No attempt seeded: report for a call this instance never dispatched.
	r := baseReport("prov-ghost")

	out, err := f.svc.ProcessReport(context.Background(), r)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !out.Applied {
		t.Fatal("the call log must still be written")
	}
	if len(f.callStore.Logs()) != 1 {
		t.Fatalf("expected 1 call log, got %d", len(f.callStore.Logs()))
	}
}
