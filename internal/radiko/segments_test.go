package radiko

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"aircheck/internal/services"
)

func TestSegmentFetch(t *testing.T) {
	payload := []byte("aac-bytes-0")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get(headerAuthToken); got != "tok" {
			t.Errorf("segment token header = %q", got)
		}
		w.Write(payload)
	}))
	defer server.Close()

	client, err := NewSegmentClient(testConfig(server.URL), WithSegmentHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("NewSegmentClient: %v", err)
	}

	entry := PlaylistEntry{Sequence: 0, URL: server.URL + "/seg/0.aac", Duration: 15 * time.Second}
	data, err := client.Fetch(context.Background(), entry, "tok")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatalf("data = %q", data)
	}
}

func TestSegmentFetchRetriesServerErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	var sleeps int
	client, err := NewSegmentClient(testConfig(server.URL),
		WithSegmentHTTPClient(server.Client()),
		WithSegmentSleeper(func(time.Duration) { sleeps++ }))
	if err != nil {
		t.Fatalf("NewSegmentClient: %v", err)
	}

	entry := PlaylistEntry{Sequence: 7, URL: server.URL + "/seg/7.aac"}
	data, err := client.Fetch(context.Background(), entry, "tok")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != "ok" {
		t.Fatalf("data = %q", data)
	}
	if calls != 3 || sleeps != 2 {
		t.Fatalf("calls = %d, sleeps = %d", calls, sleeps)
	}
}

func TestSegmentFetchGoneIsImmediate(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusGone)
	}))
	defer server.Close()

	client, err := NewSegmentClient(testConfig(server.URL), WithSegmentHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("NewSegmentClient: %v", err)
	}

	entry := PlaylistEntry{Sequence: 3, URL: server.URL + "/seg/3.aac"}
	_, err = client.Fetch(context.Background(), entry, "tok")
	if !errors.Is(err, services.ErrSegmentGone) {
		t.Fatalf("want gone, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("gone must not retry: calls = %d", calls)
	}
}

func TestSegmentFetchExhaustsRetries(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	var sleeps int
	client, err := NewSegmentClient(testConfig(server.URL),
		WithSegmentHTTPClient(server.Client()),
		WithSegmentSleeper(func(time.Duration) { sleeps++ }))
	if err != nil {
		t.Fatalf("NewSegmentClient: %v", err)
	}

	entry := PlaylistEntry{Sequence: 1, URL: server.URL + "/seg/1.aac"}
	_, err = client.Fetch(context.Background(), entry, "tok")
	if !errors.Is(err, services.ErrSegmentNetwork) {
		t.Fatalf("want network failure, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d", calls)
	}
}

func TestSegmentFetchCanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client, err := NewSegmentClient(testConfig(server.URL), WithSegmentHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("NewSegmentClient: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	entry := PlaylistEntry{Sequence: 0, URL: server.URL + "/seg/0.aac"}
	_, err = client.Fetch(ctx, entry, "tok")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if services.Kind(err) != "" {
		t.Fatalf("cancellation must stay unclassified, got kind %q", services.Kind(err))
	}
}
