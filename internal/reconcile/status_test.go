package reconcile

import (
	"testing"

	"careline/internal/calls"
)

func TestMapEndedReason(t *testing.T) {
	cases := []struct {
		reason string
		want   calls.AttemptStatus
	}{
		{"assistant-ended-call", calls.AttemptCompleted},
		{"customer-ended-call", calls.AttemptCompleted},
		{"customer-did-not-answer", calls.AttemptNoAnswer},
		{"no-answer", calls.AttemptNoAnswer},
		{"unanswered", calls.AttemptNoAnswer},
		{"customer-busy", calls.AttemptBusy},
		{"pipeline-error-openai-llm-failed", calls.AttemptFailed},
		{"call.start.error-vapifault", calls.AttemptFailed},
		{"assistant-said-end-call-phrase", calls.AttemptCompleted},
		{"", calls.AttemptCompleted},
		{"something-novel", calls.AttemptCompleted},
	}
	for _, tc := range cases {
		if got := MapEndedReason(tc.reason); got != tc.want {
			t.Errorf("MapEndedReason(%q) = %q, want %q", tc.reason, got, tc.want)
		}
	}
}
