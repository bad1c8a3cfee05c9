package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"careline/internal/calls"
	"careline/internal/campaign"
	"careline/internal/people"
	"careline/internal/pricing"
)

func TestCampaignSummary(t *testing.T) {
	ctx := context.Background()
	campaigns := campaign.NewMemoryStore()
	callStore := calls.NewMemoryStore()

	camp, err := campaigns.Create(ctx, campaign.Campaign{
		ID: "camp-1", OrgID: "org-1", Name: "Welcome Calls",
		Target: people.Target{Kind: people.TargetGroup, ID: "grp-1"},
		Status: campaign.StatusActive,
	})
	if err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	if _, err := campaigns.Finalize(ctx, "org-1", camp.ID, 200, time.Now()); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	seed := func(person string, status calls.AttemptStatus, duration int) {
		a, err := callStore.UpsertAttempt(ctx, calls.CallAttempt{
			OrgID: "org-1", CampaignID: camp.ID, PersonID: person, Phone: "+15551230001",
		})
		if err != nil {
			t.Fatalf("seed attempt: %v", err)
		}
		if status == calls.AttemptInProgress {
			return
		}
		if err := callStore.SetAttemptProviderCall(ctx, a.ID, "prov-"+person); err != nil {
			t.Fatalf("seed provider id: %v", err)
		}
		if _, err := callStore.FinalizeAttempt(ctx, "prov-"+person, calls.AttemptFinal{
			Status: status, DurationSeconds: duration,
		}); err != nil {
			t.Fatalf("finalize attempt: %v", err)
		}
	}
	seed("p-1", calls.AttemptCompleted, 90)
	seed("p-2", calls.AttemptCompleted, 60)
	seed("p-3", calls.AttemptNoAnswer, 0)
	seed("p-4", calls.AttemptFailed, 0)
	seed("p-5", calls.AttemptInProgress, 0)

	svc := NewService(campaigns, callStore, pricing.NewEstimator(50))
	sum, err := svc.CampaignSummary(ctx, "org-1", camp.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}

	if sum.TotalAttempts != 5 || sum.Completed != 2 || sum.NoAnswer != 1 || sum.Failed != 1 || sum.InProgress != 1 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if sum.TotalDurationSeconds != 150 {
		t.Fatalf("duration = %d, want 150", sum.TotalDurationSeconds)
	}
	if sum.EstimatedCostMinor != 200 {
		t.Fatalf("estimated cost = %d, want 200", sum.EstimatedCostMinor)
	}
	// 2 completed + 1 no-answer consumed provider calls.
	if sum.ActualCostMinor != 150 {
		t.Fatalf("actual cost = %d, want 150", sum.ActualCostMinor)
	}
	if sum.Status != campaign.StatusCompleted {
		t.Fatalf("status = %q, want completed", sum.Status)
	}
}

func TestCampaignSummaryUnknownCampaign(t *testing.T) {
	svc := NewService(campaign.NewMemoryStore(), calls.NewMemoryStore(), pricing.NewEstimator(50))
	_, err := svc.CampaignSummary(context.Background(), "org-1", "nope")
	if !errors.Is(err, campaign.ErrNotFound) {
		t.Fatalf("err = %v, want campaign.ErrNotFound", err)
	}
}
