package events

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/atvirokodosprendimai/officeapi/internal/core/domain"
)

func TestWebhookPublisherSuccess(t *testing.T) {
	var gotBody []byte
	var gotHeaders http.Header

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	secret := "test-secret"
	pub := NewWebhookPublisher(srv.URL, secret, 5*time.Second)

	event := domain.EventEnvelope{
		EventID:       "evt-1",
		EventType:     "office.created",
		TenantID:      "tenant-a",
		OfficeID:      7,
		SchemaVersion: 1,
	}

	if err := pub.Publish(context.Background(), "offices", event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Verify headers
	if ct := gotHeaders.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if topic := gotHeaders.Get("X-Officeapi-Topic"); topic != "offices" {
		t.Errorf("X-Officeapi-Topic = %q, want offices", topic)
	}
	if et := gotHeaders.Get("X-Officeapi-Event-Type"); et != "office.created" {
		t.Errorf("X-Officeapi-Event-Type = %q, want office.created", et)
	}
	if ten := gotHeaders.Get("X-Officeapi-Tenant"); ten != "tenant-a" {
		t.Errorf("X-Officeapi-Tenant = %q, want tenant-a", ten)
	}

	// Verify HMAC-SHA256 signature
	sigHeader := gotHeaders.Get("X-Hub-Signature-256")
	if !strings.HasPrefix(sigHeader, "sha256=") {
		t.Fatalf("X-Hub-Signature-256 header missing or malformed: %q", sigHeader)
	}
	gotSig := strings.TrimPrefix(sigHeader, "sha256=")
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(gotBody)
	wantSig := hex.EncodeToString(mac.Sum(nil))
	if gotSig != wantSig {
		t.Errorf("signature mismatch: got %q, want %q", gotSig, wantSig)
	}

	// Verify body contains the event
	var decoded domain.EventEnvelope
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if decoded.EventID != event.EventID {
		t.Errorf("EventID = %q, want %q", decoded.EventID, event.EventID)
	}
	if decoded.OfficeID != event.OfficeID {
		t.Errorf("OfficeID = %d, want %d", decoded.OfficeID, event.OfficeID)
	}
}

func TestWebhookPublisherNon2xxReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	pub := NewWebhookPublisher(srv.URL, "secret", 5*time.Second)
	event := domain.EventEnvelope{EventID: "evt-2", EventType: "office.updated", SchemaVersion: 1}

	err := pub.Publish(context.Background(), "offices", event)
	if err == nil {
		t.Fatal("expected error for 500 response, got nil")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error should mention status code 500, got: %v", err)
	}
}

func TestWebhookPublisherContextCancellation(t *testing.T) {
	// Server that hangs until closed
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	pub := NewWebhookPublisher(srv.URL, "secret", 5*time.Second)
	event := domain.EventEnvelope{EventID: "evt-3", EventType: "office.created", SchemaVersion: 1}

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	err := pub.Publish(ctx, "offices", event)
	if err == nil {
		t.Fatal("expected error for cancelled context, got nil")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected error to wrap context.Canceled, got: %v", err)
	}
}

func TestWebhookPublisherZeroTimeoutUsesDefault(t *testing.T) {
	pub := NewWebhookPublisher("http://localhost:9", "s", 0)
	if pub.client.Timeout != defaultWebhookTimeout {
		t.Errorf("timeout = %v, want %v", pub.client.Timeout, defaultWebhookTimeout)
	}
}
