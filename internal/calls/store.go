package calls

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("calls: not found")
	ErrInvalidArgument = errors.New("calls: invalid argument")
)

// Store is the persistence contract for call attempts and call logs.
//
// Implementations must make ClaimReport atomic: concurrent redelivery of the
// same provider report must hand the claim to exactly one caller.
type Store interface {
	// UpsertAttempt creates the attempt for (campaign, person), or returns
	// the existing row when a duplicate group membership dials the same
	// person twice within one campaign.
	UpsertAttempt(ctx context.Context, a CallAttempt) (CallAttempt, error)

	// SetAttemptProviderCall stores the provider call id after dispatch.
	// The attempt stays in_progress; the webhook decides the final state.
	SetAttemptProviderCall(ctx context.Context, attemptID, providerCallID string) error

	// MarkAttemptFailed records an immediate dispatch failure.
	MarkAttemptFailed(ctx context.Context, attemptID, errMsg string) error

	// FinalizeAttempt applies the reconciler's verdict to the attempt with
	// the given provider call id. Returns false when no attempt matches.
	FinalizeAttempt(ctx context.Context, providerCallID string, fin AttemptFinal) (bool, error)

	// SaveDispatchLog writes the raw provider response at dispatch time,
	// updating in place if a row already exists for the provider call id.
	SaveDispatchLog(ctx context.Context, l CallLog) (CallLog, error)

	// ClaimReport applies the end-of-call report to the call log exactly
	// once per provider call id. The returned bool is false when the report
	// was already applied (webhook redelivery); callers must then skip all
	// downstream writes.
	ClaimReport(ctx context.Context, l CallLog) (CallLog, bool, error)

	ListAttemptsByCampaign(ctx context.Context, orgID, campaignID string) ([]CallAttempt, error)

	// ExpireStaleAttempts fails attempts stuck in_progress since before
	// cutoff (dispatcher died or the report never arrived).
	ExpireStaleAttempts(ctx context.Context, cutoff time.Time) (int64, error)
}

const staleAttemptError = "no provider report received before timeout"
