package reconcile

import (
	"strings"

	"careline/internal/calls"
)

// MapEndedReason maps the provider's free-form ended reason onto the attempt
// status vocabulary. The provider's reason strings are versioned and verbose
// ("customer-did-not-answer", "assistant-ended-call"), so matching is by
// substring on a deterministic rule table. Anything unrecognized counts as
// completed: the call did end and a report did arrive.
func MapEndedReason(endedReason string) calls.AttemptStatus {
	reason := strings.ToLower(strings.TrimSpace(endedReason))
	switch {
	case containsAny(reason, "no-answer", "no_answer", "did-not-answer", "unanswered"):
		return calls.AttemptNoAnswer
	case strings.Contains(reason, "busy"):
		return calls.AttemptBusy
	case containsAny(reason, "fail", "error"):
		return calls.AttemptFailed
	default:
		return calls.AttemptCompleted
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
