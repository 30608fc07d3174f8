package email

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSendVerificationCodeLogin(t *testing.T) {
	var received postmarkEmail
	var gotToken string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Postmark-Server-Token")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"MessageID": "test-id"}`))
	}))
	defer server.Close()

	client := NewClient("test-token", "noreply@example.com", "ParentPal")
	client.httpClient = &http.Client{Transport: &rewriteTransport{base: http.DefaultTransport, target: server.URL}}

	err := client.SendVerificationCode("alice@example.com", "482913", "login", "")
	if err != nil {
		t.Fatalf("send verification code: %v", err)
	}

	if gotToken != "test-token" {
		t.Errorf("server token = %q, want %q", gotToken, "test-token")
	}
	if received.To != "alice@example.com" {
		t.Errorf("To = %q, want %q", received.To, "alice@example.com")
	}
	if received.From != "noreply@example.com" {
		t.Errorf("From = %q, want %q", received.From, "noreply@example.com")
	}
	if received.Subject != "Sign in to ParentPal" {
		t.Errorf("Subject = %q", received.Subject)
	}
	if !strings.Contains(received.TextBody, "482913") {
		t.Errorf("TextBody missing code: %q", received.TextBody)
	}
}

func TestSendVerificationCodeInvite(t *testing.T) {
	var received postmarkEmail

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"MessageID": "test-id"}`))
	}))
	defer server.Close()

	client := NewClient("test-token", "noreply@example.com", "ParentPal")
	client.httpClient = &http.Client{Transport: &rewriteTransport{base: http.DefaultTransport, target: server.URL}}

	err := client.SendVerificationCode("bob@example.com", "135790", "invite", "Smith Family")
	if err != nil {
		t.Fatalf("send verification code: %v", err)
	}

	if received.Subject != "You've been invited to Smith Family on ParentPal" {
		t.Errorf("Subject = %q, want invite subject", received.Subject)
	}
}

func TestSendVerificationCodeNotConfigured(t *testing.T) {
	client := NewClient("", "noreply@example.com", "ParentPal")

	err := client.SendVerificationCode("alice@example.com", "482913", "login", "")
	if err == nil {
		t.Fatal("expected error for unconfigured client")
	}
}

func TestSendVerificationCodeAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewClient("test-token", "noreply@example.com", "ParentPal")
	client.httpClient = &http.Client{Transport: &rewriteTransport{base: http.DefaultTransport, target: server.URL}}

	err := client.SendVerificationCode("alice@example.com", "482913", "login", "")
	if err == nil {
		t.Fatal("expected error for API failure")
	}
}

func TestUpdateConfig(t *testing.T) {
	client := NewClient("", "", "ParentPal")
	if client.Configured() {
		t.Error("expected Configured() = false initially")
	}

	client.UpdateConfig("new-token", "new@example.com")
	if !client.Configured() {
		t.Error("expected Configured() = true after UpdateConfig")
	}

	var gotToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Postmark-Server-Token")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"MessageID": "test-id"}`))
	}))
	defer server.Close()

	client.httpClient = &http.Client{Transport: &rewriteTransport{base: http.DefaultTransport, target: server.URL}}
	if err := client.SendVerificationCode("alice@example.com", "660042", "login", ""); err != nil {
		t.Fatalf("send after update: %v", err)
	}
	if gotToken != "new-token" {
		t.Errorf("server token = %q, want %q", gotToken, "new-token")
	}

	client.UpdateConfig("", "")
	if client.Configured() {
		t.Error("expected Configured() = false after clearing")
	}
}

// rewriteTransport redirects all requests to a test server URL.
type rewriteTransport struct {
	base   http.RoundTripper
	target string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	req.URL.Host = t.target[len("http://"):]
	return t.base.RoundTrip(req)
}
