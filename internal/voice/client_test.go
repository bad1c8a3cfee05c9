package voice

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"careline/internal/config"
)

func testClient(t *testing.T, srvURL string) (*Client, *[]time.Duration) {
	t.Helper()
	var delays []time.Duration
	c, err := NewClient(
		config.VoiceConfig{APIKey: "key", PhoneNumberID: "pn-1", WebhookURL: "https://example.test/webhooks/voice"},
		WithBaseURL(srvURL),
		WithSleep(func(d time.Duration) { delays = append(delays, d) }),
	)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return c, &delays
}

func TestStartCall_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/call" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"call-1","status":"queued"}`))
	}))
	defer srv.Close()

	c, delays := testClient(t, srv.URL)
	call, err := c.StartCall(context.Background(), CallRequest{PhoneNumber: "+15551230001", FirstMessage: "Hi"})
	if err != nil {
		t.Fatalf("start call: %v", err)
	}
	if call.ID != "call-1" {
		t.Fatalf("unexpected call id %q", call.ID)
	}
	if len(*delays) != 0 {
		t.Fatalf("expected no backoff on success, got %v", *delays)
	}
}

func TestStartCall_RetriesOn429ThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"id":"call-2","status":"queued"}`))
	}))
	defer srv.Close()

	c, delays := testClient(t, srv.URL)
	call, err := c.StartCall(context.Background(), CallRequest{PhoneNumber: "+15551230001"})
	if err != nil {
		t.Fatalf("start call: %v", err)
	}
	if call.ID != "call-2" {
		t.Fatalf("unexpected call id %q", call.ID)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected 2 provider requests, got %d", calls)
	}
	if len(*delays) != 1 {
		t.Fatalf("expected 1 backoff sleep, got %v", *delays)
	}
}

func TestStartCall_RetriesBoundedWithDoublingBackoff(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, delays := testClient(t, srv.URL)
	_, err := c.StartCall(context.Background(), CallRequest{PhoneNumber: "+15551230001"})
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}

	// 1 initial + 3 retries.
	if got := atomic.LoadInt32(&calls); got != 4 {
		t.Fatalf("expected 4 provider requests, got %d", got)
	}
	if len(*delays) != 3 {
		t.Fatalf("expected 3 backoff sleeps, got %v", *delays)
	}
	for i := 1; i < len(*delays); i++ {
		if (*delays)[i] < (*delays)[i-1] {
			t.Fatalf("backoff must be non-decreasing, got %v", *delays)
		}
	}
}

func TestStartCall_NoRetryOnHTTPError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":"Insufficient balance"}`))
	}))
	defer srv.Close()

	c, _ := testClient(t, srv.URL)
	_, err := c.StartCall(context.Background(), CallRequest{PhoneNumber: "+15551230001"})
	if err == nil {
		t.Fatal("expected error")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected no retry on 402, got %d requests", calls)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("unexpected status %d", apiErr.StatusCode)
	}
	if !IsBillingError(err) {
		t.Fatal("expected billing classification")
	}
}

func TestStartCall_LogicalErrorIn200Payload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"assistant misconfigured"}`))
	}))
	defer srv.Close()

	c, _ := testClient(t, srv.URL)
	_, err := c.StartCall(context.Background(), CallRequest{PhoneNumber: "+15551230001"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Message != "assistant misconfigured" {
		t.Fatalf("unexpected message %q", apiErr.Message)
	}
	if IsBillingError(err) {
		t.Fatal("did not expect billing classification")
	}
}

func TestIsBillingError_Patterns(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{&APIError{StatusCode: 402, Message: "whatever"}, true},
		{&APIError{StatusCode: 400, Message: "Insufficient funds"}, true},
		{&APIError{StatusCode: 500, Message: "low BALANCE on account"}, true},
		{&APIError{StatusCode: 400, Message: "payment method declined"}, true},
		{&APIError{StatusCode: 400, Message: "bad number"}, false},
		{errors.New("dial tcp: timeout"), false},
	}
	for _, tc := range cases {
		if got := IsBillingError(tc.err); got != tc.want {
			t.Errorf("IsBillingError(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
