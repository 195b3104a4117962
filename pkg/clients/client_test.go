package clients

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"pathmind/pkg/common"
)

func TestClientRetriesTransientFailures(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient("test", server.URL)
	var out struct {
		OK bool `json:"ok"`
	}
	if err := client.getJSON(context.Background(), "/thing", nil, &out); err != nil {
		t.Fatalf("expected retries to succeed: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if !out.OK {
		t.Fatalf("expected decoded body")
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient("test", server.URL)
	err := client.getJSON(context.Background(), "/thing", nil, nil)
	if !errors.Is(err, common.ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected a single attempt for 404, got %d", attempts)
	}
}

func TestClientBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient("test", server.URL, WithMaxTries(1))
	for i := 0; i < breakerThreshold; i++ {
		if err := client.getJSON(context.Background(), "/thing", nil, nil); err == nil {
			t.Fatalf("expected failure on attempt %d", i)
		}
	}

	before := attempts
	err := client.getJSON(context.Background(), "/thing", nil, nil)
	if !errors.Is(err, common.ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream error while open, got %v", err)
	}
	if attempts != before {
		t.Fatalf("expected no request while breaker open")
	}
}

func TestClientBreakerClosesOnSuccess(t *testing.T) {
	client := NewClient("test", "http://unused")
	for i := 0; i < breakerThreshold-1; i++ {
		client.breaker.failure()
	}
	client.breaker.success()
	if !client.breaker.allow() {
		t.Fatalf("expected breaker closed after success")
	}
}

func TestPingReportsLatencyAndErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`ok`))
	}))
	defer server.Close()

	client := NewClient("test", server.URL)
	status := client.Ping(context.Background(), "/health")
	if !status.Reachable {
		t.Fatalf("expected reachable, got %+v", status)
	}
	if status.Latency <= 0 {
		t.Fatalf("expected positive latency")
	}

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()

	status = NewClient("down", down.URL).Ping(context.Background(), "/health")
	if status.Reachable {
		t.Fatalf("expected unreachable on 500")
	}
	if status.Error == "" {
		t.Fatalf("expected error detail")
	}
}

func TestUpstreamErrorCarriesSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient("chembl", server.URL, WithMaxTries(1))
	err := client.getJSON(context.Background(), "/thing", nil, nil)

	var upstream *common.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if upstream.Source != "chembl" {
		t.Fatalf("expected source chembl, got %s", upstream.Source)
	}
}
