package reporting

import (
	"context"

	"careline/internal/calls"
	"careline/internal/campaign"
	"careline/internal/pricing"
)

// CampaignSummary is the roll-up view of one campaign run.
type CampaignSummary struct {
	CampaignID string          `json:"campaign_id"`
	Name       string          `json:"name"`
	Status     campaign.Status `json:"status"`

	TotalAttempts int `json:"total_attempts"`
	InProgress    int `json:"in_progress"`
	Completed     int `json:"completed"`
	Failed        int `json:"failed"`
	NoAnswer      int `json:"no_answer"`
	Busy          int `json:"busy"`

	TotalDurationSeconds int `json:"total_duration_seconds"`

	EstimatedCostMinor int64 `json:"estimated_cost_minor"`
	ActualCostMinor    int64 `json:"actual_cost_minor"`
}

// Service aggregates per-attempt outcomes into campaign summaries.
type Service struct {
	campaigns campaign.Store
	callStore calls.Store
	estimator pricing.Estimator
}

func NewService(campaigns campaign.Store, callStore calls.Store, estimator pricing.Estimator) *Service {
	return &Service{campaigns: campaigns, callStore: callStore, estimator: estimator}
}

// CampaignSummary computes the roll-up for one campaign. Actual cost is
// derived from attempt outcomes at read time, so it stays correct as webhook
// reports trickle in.
func (s *Service) CampaignSummary(ctx context.Context, orgID, campaignID string) (CampaignSummary, error) {
	camp, err := s.campaigns.Get(ctx, orgID, campaignID)
	if err != nil {
		return CampaignSummary{}, err
	}
	attempts, err := s.callStore.ListAttemptsByCampaign(ctx, orgID, campaignID)
	if err != nil {
		return CampaignSummary{}, err
	}

	out := CampaignSummary{
		CampaignID:         camp.ID,
		Name:               camp.Name,
		Status:             camp.Status,
		TotalAttempts:      len(attempts),
		EstimatedCostMinor: camp.EstimatedCostMinor,
		ActualCostMinor:    s.estimator.Actual(attempts),
	}
	for _, a := range attempts {
		out.TotalDurationSeconds += a.DurationSeconds
		switch a.Status {
		case calls.AttemptInProgress:
			out.InProgress++
		case calls.AttemptCompleted:
			out.Completed++
		case calls.AttemptFailed:
			out.Failed++
		case calls.AttemptNoAnswer:
			out.NoAnswer++
		case calls.AttemptBusy:
			out.Busy++
		}
	}
	return out, nil
}
