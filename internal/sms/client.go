package sms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"careline/internal/config"
	"careline/internal/pastoral"
)

const defaultBaseURL = "https://api.twilio.com"

// Client sends SMS through the provider's REST API: form-encoded POST with
// basic auth, returning a message SID.
type Client struct {
	httpClient *http.Client
	baseURL    string

	accountSID string
	authToken  string
	from       string

	// onCall receives escalation notifications.
	onCall string
}

type Option func(*Client)

func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = u } }

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.httpClient = h } }

func NewClient(cfg config.SMSConfig, opts ...Option) (*Client, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.FromNumber == "" {
		return nil, errors.New("sms: account sid, auth token and from number are required")
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultBaseURL,
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       cfg.FromNumber,
		onCall:     cfg.OnCallNumber,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type messageResponse struct {
	SID          string `json:"sid"`
	ErrorMessage string `json:"error_message"`
}

// Send delivers one SMS and returns the provider message SID.
func (c *Client) Send(ctx context.Context, to, body string) (string, error) {
	if to == "" || body == "" {
		return "", errors.New("sms: to and body are required")
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	var parsed messageResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("sms: unparseable provider response (status %d)", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := parsed.ErrorMessage
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return "", fmt.Errorf("sms provider error (status %d): %s", resp.StatusCode, msg)
	}
	if parsed.SID == "" {
		return "", errors.New("sms: provider response missing message sid")
	}
	return parsed.SID, nil
}

// NotifyEscalation texts the on-call number about a fresh alert. A client
// without an on-call number configured notifies nobody and returns nil.
func (c *Client) NotifyEscalation(ctx context.Context, alert pastoral.EscalationAlert) error {
	if c.onCall == "" {
		return nil
	}
	kind := "Pastoral care needed"
	if alert.AlertType == pastoral.AlertCrisisDetected {
		kind = "CRISIS alert"
	}
	body := fmt.Sprintf("%s (%s priority): %s", kind, alert.Priority, alert.Message)
	_, err := c.Send(ctx, c.onCall, body)
	return err
}
