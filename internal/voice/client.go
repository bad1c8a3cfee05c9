package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"careline/internal/config"
)

const defaultBaseURL = "https://api.vapi.ai"

// maxRetries bounds retry-after-first-attempt on rate limiting and transport
// failures. Backoff doubles per attempt and is never reduced.
const maxRetries = 3

// Client dispatches outbound calls to the AI-voice provider.
//
// Rules:
//   - No provider HTTP calls outside this adapter.
//   - Retries happen here (429 + transport errors only); logical provider
//     errors surface as *APIError for the dispatcher to classify.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	phoneNumberID string
	webhookURL    string

	backoffBase time.Duration

	// sleep is injectable for deterministic tests.
	sleep func(time.Duration)
}

type Option func(*Client)

// WithBaseURL overrides the provider endpoint (tests, proxies).
func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = u } }

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.httpClient = h } }

// WithSleep overrides the backoff sleeper.
func WithSleep(fn func(time.Duration)) Option { return func(c *Client) { c.sleep = fn } }

func NewClient(cfg config.VoiceConfig, opts ...Option) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("voice: api key is required")
	}
	if cfg.PhoneNumberID == "" {
		return nil, errors.New("voice: phone number id is required")
	}
	c := &Client{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		baseURL:       defaultBaseURL,
		apiKey:        cfg.APIKey,
		phoneNumberID: cfg.PhoneNumberID,
		webhookURL:    cfg.WebhookURL,
		backoffBase:   time.Second,
		sleep:         time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Wire payload per the provider's POST /call contract.

type callPayload struct {
	PhoneNumberID      string           `json:"phoneNumberId"`
	Customer           customerPayload  `json:"customer"`
	Assistant          assistantPayload `json:"assistant"`
	AssistantOverrides overridesPayload `json:"assistantOverrides"`
}

type customerPayload struct {
	Number string `json:"number"`
	Name   string `json:"name,omitempty"`
}

type assistantPayload struct {
	FirstMessage   string       `json:"firstMessage"`
	Model          modelPayload `json:"model"`
	Voice          voicePayload `json:"voice"`
	ServerURL      string       `json:"serverUrl,omitempty"`
	EndCallMessage string       `json:"endCallMessage"`
	EndCallPhrases []string     `json:"endCallPhrases"`
	AnalysisPlan   analysisPlan `json:"analysisPlan"`
}

type modelPayload struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type voicePayload struct {
	Provider string `json:"provider"`
	VoiceID  string `json:"voiceId"`
}

type analysisPlan struct {
	SummaryPrompt      string             `json:"summaryPrompt"`
	StructuredDataPlan structuredDataPlan `json:"structuredDataPlan"`
}

type structuredDataPlan struct {
	Enabled bool           `json:"enabled"`
	Schema  map[string]any `json:"schema"`
}

type overridesPayload struct {
	Metadata Metadata `json:"metadata"`
}

type callResponse struct {
	ID      string          `json:"id"`
	Status  string          `json:"status"`
	Error   json.RawMessage `json:"error,omitempty"`
	Message json.RawMessage `json:"message,omitempty"`
}

// StartCall issues one outbound call request.
//
// 429 responses and transport failures are retried with doubling backoff, at
// most maxRetries times. Any other provider failure is returned immediately
// as *APIError; the caller decides what it means for the campaign.
func (c *Client) StartCall(ctx context.Context, req CallRequest) (Call, error) {
	if req.PhoneNumber == "" {
		return Call{}, errors.New("voice: phone number is required")
	}

	payload := callPayload{
		PhoneNumberID: c.phoneNumberID,
		Customer: customerPayload{
			Number: req.PhoneNumber,
			Name:   req.CustomerName,
		},
		Assistant: assistantPayload{
			FirstMessage:   req.FirstMessage,
			Model:          modelPayload{Provider: "openai", Model: "gpt-4o"},
			Voice:          voicePayload{Provider: "11labs", VoiceID: "paula"},
			ServerURL:      c.webhookURL,
			EndCallMessage: "Thank you for your time. God bless, and have a wonderful day.",
			EndCallPhrases: []string{"goodbye", "bye bye", "talk to you later"},
			AnalysisPlan: analysisPlan{
				SummaryPrompt: "Summarize the call in two sentences, noting any prayer requests or concerns.",
				StructuredDataPlan: structuredDataPlan{
					Enabled: true,
					Schema: map[string]any{
						"type": "object",
						"properties": map[string]any{
							"crisis_detected":      map[string]any{"type": "boolean"},
							"crisis_reason":        map[string]any{"type": "string"},
							"pastoral_care_needed": map[string]any{"type": "boolean"},
							"follow_up_needed":     map[string]any{"type": "boolean"},
							"response_sentiment":   map[string]any{"type": "string"},
							"prayer_requests":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
							"interests":            map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
							"priority":             map[string]any{"type": "string"},
						},
					},
				},
			},
		},
		AssistantOverrides: overridesPayload{Metadata: req.Metadata},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Call{}, err
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		call, retryable, err := c.post(ctx, body)
		if err == nil {
			return call, nil
		}
		lastErr = err
		if !retryable || attempt >= maxRetries {
			return Call{}, lastErr
		}

		delay := c.backoffBase << attempt
		select {
		case <-ctx.Done():
			return Call{}, ctx.Err()
		default:
		}
		c.sleep(delay)
	}
}

// post performs a single POST /call. The bool reports whether a failure is
// retryable (rate limit or transport).
func (c *Client) post(ctx context.Context, body []byte) (Call, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/call", bytes.NewReader(body))
	if err != nil {
		return Call{}, false, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Call{}, true, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Call{}, true, err
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return Call{}, true, &APIError{StatusCode: resp.StatusCode, Message: "rate limited"}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Call{}, false, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}

	var parsed callResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Call{}, false, &APIError{StatusCode: resp.StatusCode, Message: "unparseable provider response"}
	}
	if len(parsed.Error) > 0 {
		// 2xx with a logical error field in the payload.
		return Call{}, false, &APIError{StatusCode: resp.StatusCode, Message: rawToText(parsed.Error, parsed.Message)}
	}
	if parsed.ID == "" {
		return Call{}, false, &APIError{StatusCode: resp.StatusCode, Message: "provider response missing call id"}
	}

	return Call{ID: parsed.ID, Status: parsed.Status, Raw: string(raw)}, false, nil
}

func rawToText(parts ...json.RawMessage) string {
	for _, p := range parts {
		if len(p) == 0 {
			continue
		}
		var s string
		if err := json.Unmarshal(p, &s); err == nil {
			return s
		}
		return string(p)
	}
	return "provider error"
}

var billingPatterns = []string{"insuffi", "balance", "funds", "payment"}

// IsBillingError reports whether a dispatch failure indicates an exhausted
// provider budget: HTTP 402 or an insufficient-funds message. A campaign hit
// by one must be paused so later runs stop burning the same budget.
func IsBillingError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.StatusCode == http.StatusPaymentRequired {
		return true
	}
	msg := strings.ToLower(apiErr.Message)
	for _, p := range billingPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
