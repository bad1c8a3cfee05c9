package sms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"careline/internal/config"
	"careline/internal/pastoral"
)

func testConfig() config.SMSConfig {
	return config.SMSConfig{
		AccountSID:   "AC123",
		AuthToken:    "tok",
		FromNumber:   "+15550001111",
		OnCallNumber: "+15550002222",
	}
}

func TestSendPostsFormWithBasicAuth(t *testing.T) {
	var gotPath, gotTo, gotFrom, gotBody string
	var gotUser, gotPass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotTo = r.PostForm.Get("To")
		gotFrom = r.PostForm.Get("From")
		gotBody = r.PostForm.Get("Body")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"SM987"}`))
	}))
	defer srv.Close()

	c, err := NewClient(testConfig(), WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	sid, err := c.Send(context.Background(), "+15551230001", "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sid != "SM987" {
		t.Fatalf("sid = %q, want SM987", sid)
	}
	if gotPath != "/2010-04-01/Accounts/AC123/Messages.json" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotUser != "AC123" || gotPass != "tok" {
		t.Fatalf("unexpected basic auth %q/%q", gotUser, gotPass)
	}
	if gotTo != "+15551230001" || gotFrom != "+15550001111" || gotBody != "hello" {
		t.Fatalf("unexpected form values to=%q from=%q body=%q", gotTo, gotFrom, gotBody)
	}
}

func TestSendSurfacesProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error_message":"The 'To' number is not valid"}`))
	}))
	defer srv.Close()

	c, _ := NewClient(testConfig(), WithBaseURL(srv.URL))
	_, err := c.Send(context.Background(), "+1555", "hello")
	if err == nil || !strings.Contains(err.Error(), "not valid") {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestNotifyEscalationFormatsCrisisMessage(t *testing.T) {
	var body, to string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		to = r.PostForm.Get("To")
		body = r.PostForm.Get("Body")
		w.Write([]byte(`{"sid":"SM1"}`))
	}))
	defer srv.Close()

	c, _ := NewClient(testConfig(), WithBaseURL(srv.URL))
	err := c.NotifyEscalation(context.Background(), pastoral.EscalationAlert{
		AlertType: pastoral.AlertCrisisDetected,
		Priority:  pastoral.PriorityUrgent,
		Message:   "mentioned self-harm",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if to != "+15550002222" {
		t.Fatalf("notification must go to the on-call number, got %q", to)
	}
	if !strings.Contains(body, "CRISIS") || !strings.Contains(body, "urgent") || !strings.Contains(body, "self-harm") {
		t.Fatalf("unexpected message body %q", body)
	}
}

func TestNotifyEscalationWithoutOnCallIsNoOp(t *testing.T) {
	cfg := testConfig()
	cfg.OnCallNumber = ""
	c, _ := NewClient(cfg, WithBaseURL("http://127.0.0.1:0"))
	if err := c.NotifyEscalation(context.Background(), pastoral.EscalationAlert{}); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}
