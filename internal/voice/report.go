package voice

import (
	"encoding/json"
	"strings"
)

// ReportTypeEndOfCall is the only webhook event type this service consumes.
const ReportTypeEndOfCall = "end-of-call-report"

// Report is the flattened, fully-optional view of an end-of-call webhook
// payload. The provider nests the same field under several shapes depending
// on product version; ParseReport tolerates all of them and applies explicit
// per-field defaults, so downstream code never touches the raw payload.
type Report struct {
	Type string

	ProviderCallID string
	Status         string
	EndedReason    string

	DurationSeconds int
	Transcript      string
	Summary         string
	RecordingURL    string
	PhoneNumber     string

	Metadata Metadata
	Analysis Analysis

	// Raw is the payload verbatim, for the call log.
	Raw string
}

// Analysis carries the AI-derived structured fields of a finished call.
type Analysis struct {
	CrisisDetected     bool
	CrisisReason       string
	PastoralCareNeeded bool
	FollowUpNeeded     bool
	Sentiment          string
	PrayerRequests     []string
	Interests          []string
	Priority           string
}

// NeedsEscalation reports whether the call warrants an escalation alert.
func (a Analysis) NeedsEscalation() bool {
	return a.CrisisDetected || a.PastoralCareNeeded
}

// NeedsFollowUp reports whether the call warrants a staff follow-up item.
func (a Analysis) NeedsFollowUp() bool {
	return a.FollowUpNeeded || a.CrisisDetected || a.PastoralCareNeeded
}

type wireEnvelope struct {
	Message json.RawMessage `json:"message"`
}

type wireMessage struct {
	Type string `json:"type"`

	Call   *wireCall `json:"call"`
	CallID string    `json:"callId"`

	Status      string `json:"status"`
	EndedReason string `json:"endedReason"`

	DurationSeconds *float64 `json:"durationSeconds"`
	DurationMs      *float64 `json:"durationMs"`

	Transcript   string `json:"transcript"`
	Summary      string `json:"summary"`
	RecordingURL string `json:"recordingUrl"`

	Artifact *wireArtifact `json:"artifact"`
	Analysis *wireAnalysis `json:"analysis"`

	Metadata map[string]any `json:"metadata"`
	Customer *wireCustomer  `json:"customer"`
}

type wireCall struct {
	ID       string         `json:"id"`
	Status   string         `json:"status"`
	Metadata map[string]any `json:"metadata"`

	AssistantOverrides *wireOverrides `json:"assistantOverrides"`
	Customer           *wireCustomer  `json:"customer"`
}

type wireOverrides struct {
	Metadata map[string]any `json:"metadata"`
}

type wireCustomer struct {
	Number string `json:"number"`
}

type wireArtifact struct {
	Transcript   string     `json:"transcript"`
	RecordingURL string     `json:"recordingUrl"`
	Messages     []wireChat `json:"messages"`
}

type wireChat struct {
	Role    string `json:"role"`
	Message string `json:"message"`
	Content string `json:"content"`
}

type wireAnalysis struct {
	Summary        string         `json:"summary"`
	StructuredData map[string]any `json:"structuredData"`
}

// ParseReport decodes a webhook payload, flattening the provider's optional
// nesting shapes. It only fails on malformed JSON; missing fields produce
// zero values, never errors.
func ParseReport(body []byte) (Report, error) {
	var env wireEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Report{}, err
	}

	var msg wireMessage
	if len(env.Message) > 0 {
		if err := json.Unmarshal(env.Message, &msg); err != nil {
			return Report{}, err
		}
	} else if err := json.Unmarshal(body, &msg); err != nil {
		return Report{}, err
	}

	r := Report{
		Type:        msg.Type,
		Status:      msg.Status,
		EndedReason: msg.EndedReason,
		Transcript:  msg.Transcript,
		Summary:     msg.Summary,
		Raw:         string(body),
	}

	r.ProviderCallID = msg.CallID
	if msg.Call != nil {
		if msg.Call.ID != "" {
			r.ProviderCallID = msg.Call.ID
		}
		if r.Status == "" {
			r.Status = msg.Call.Status
		}
	}

	switch {
	case msg.DurationSeconds != nil:
		r.DurationSeconds = int(*msg.DurationSeconds)
	case msg.DurationMs != nil:
		r.DurationSeconds = int(*msg.DurationMs / 1000)
	}

	if r.Transcript == "" && msg.Artifact != nil {
		r.Transcript = msg.Artifact.Transcript
		if r.Transcript == "" {
			r.Transcript = transcriptFromMessages(msg.Artifact.Messages)
		}
	}

	r.RecordingURL = msg.RecordingURL
	if r.RecordingURL == "" && msg.Artifact != nil {
		r.RecordingURL = msg.Artifact.RecordingURL
	}

	if msg.Customer != nil {
		r.PhoneNumber = msg.Customer.Number
	}
	if r.PhoneNumber == "" && msg.Call != nil && msg.Call.Customer != nil {
		r.PhoneNumber = msg.Call.Customer.Number
	}

	r.Metadata = extractMetadata(msg)

	if msg.Analysis != nil {
		if r.Summary == "" {
			r.Summary = msg.Analysis.Summary
		}
		r.Analysis = extractAnalysis(msg.Analysis.StructuredData)
	}

	return r, nil
}

// extractMetadata checks the known nesting spots in precedence order:
// call.assistantOverrides.metadata, call.metadata, then top-level metadata.
func extractMetadata(msg wireMessage) Metadata {
	candidates := []map[string]any{}
	if msg.Call != nil {
		if msg.Call.AssistantOverrides != nil {
			candidates = append(candidates, msg.Call.AssistantOverrides.Metadata)
		}
		candidates = append(candidates, msg.Call.Metadata)
	}
	candidates = append(candidates, msg.Metadata)

	for _, m := range candidates {
		if len(m) == 0 {
			continue
		}
		md := Metadata{
			OrgID:      anyString(m, "organization_id", "organizationId"),
			PersonID:   anyString(m, "person_id", "personId"),
			CampaignID: anyString(m, "campaign_id", "campaignId"),
		}
		if md != (Metadata{}) {
			return md
		}
	}
	return Metadata{}
}

func extractAnalysis(sd map[string]any) Analysis {
	if len(sd) == 0 {
		return Analysis{}
	}
	return Analysis{
		CrisisDetected:     anyBool(sd, "crisis_detected", "crisisDetected"),
		CrisisReason:       anyString(sd, "crisis_reason", "crisisReason"),
		PastoralCareNeeded: anyBool(sd, "pastoral_care_needed", "pastoralCareNeeded"),
		FollowUpNeeded:     anyBool(sd, "follow_up_needed", "followUpNeeded"),
		Sentiment:          anyString(sd, "response_sentiment", "sentiment"),
		PrayerRequests:     anyStrings(sd, "prayer_requests", "prayerRequests"),
		Interests:          anyStrings(sd, "interests"),
		Priority:           anyString(sd, "priority"),
	}
}

func transcriptFromMessages(msgs []wireChat) string {
	if len(msgs) == 0 {
		return ""
	}
	var b strings.Builder
	for _, m := range msgs {
		text := m.Message
		if text == "" {
			text = m.Content
		}
		if text == "" {
			continue
		}
		role := m.Role
		if role == "" {
			role = "unknown"
		}
		b.WriteString(role)
		b.WriteString(": ")
		b.WriteString(text)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func anyString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

// anyBool tolerates bool, "true"/"yes" strings, and nonzero numbers; LLM
// structured output is not reliably typed.
func anyBool(m map[string]any, keys ...string) bool {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case bool:
			return t
		case string:
			s := strings.ToLower(strings.TrimSpace(t))
			return s == "true" || s == "yes"
		case float64:
			return t != 0
		}
	}
	return false
}

func anyStrings(m map[string]any, keys ...string) []string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case []any:
			out := make([]string, 0, len(t))
			for _, e := range t {
				if s, ok := e.(string); ok && s != "" {
					out = append(out, s)
				}
			}
			return out
		case string:
			if t == "" {
				return nil
			}
			return []string{t}
		}
	}
	return nil
}
