package voice

import "fmt"

// CallRequest is the provider-agnostic outbound call order.
type CallRequest struct {
	// PhoneNumber is the E.164 number to dial.
	PhoneNumber string

	// CustomerName is shown to the assistant for context.
	CustomerName string

	// FirstMessage is the rendered opening line of the call script.
	FirstMessage string

	Metadata Metadata
}

// Metadata is echoed back verbatim by the provider on the end-of-call report.
// It is the ONLY mechanism tying an asynchronous report back to the correct
// tenant and recipient, so field names here are part of the wire contract.
type Metadata struct {
	OrgID      string `json:"organization_id"`
	PersonID   string `json:"person_id"`
	CampaignID string `json:"campaign_id"`
}

// Call is the provider's acknowledgement of a dispatched call.
type Call struct {
	// ID is the provider call identifier used for webhook correlation.
	ID     string
	Status string

	// Raw is the provider response verbatim, for the call log.
	Raw string
}

// APIError is a non-2xx provider response or a 2xx response whose payload
// encodes a logical failure.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("voice provider error (status %d): %s", e.StatusCode, e.Message)
}
