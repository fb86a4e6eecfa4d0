package radiko

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"aircheck/internal/config"
	"aircheck/internal/services"
	"aircheck/internal/testsupport"
)

func testConfig(baseURL string) *config.Config {
	cfg := config.Default()
	cfg.Service.BaseURL = baseURL
	cfg.Auth.RetryAttempts = 3
	cfg.Auth.RetryBaseDelayMS = 1
	cfg.Auth.RetryMaxDelayMS = 5
	cfg.Playlist.RetryAttempts = 3
	cfg.Playlist.RetryBaseDelayMS = 1
	cfg.Playlist.RetryMaxDelayMS = 5
	cfg.Segments.RetryAttempts = 3
	cfg.Segments.RetryBaseDelayMS = 1
	cfg.Segments.RetryMaxDelayMS = 5
	return &cfg
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type flakyDoer struct {
	failures int
	calls    int
	inner    HTTPDoer
}

func (d *flakyDoer) Do(req *http.Request) (*http.Response, error) {
	d.calls++
	if d.calls <= d.failures {
		return nil, &url.Error{Op: "Get", URL: req.URL.String(), Err: errors.New("connection refused")}
	}
	if d.inner == nil {
		return nil, &url.Error{Op: "Get", URL: req.URL.String(), Err: errors.New("no inner client")}
	}
	return d.inner.Do(req)
}

func newAuthServer(t *testing.T, auth1Calls, auth2Calls *int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/api/auth1", func(w http.ResponseWriter, r *http.Request) {
		*auth1Calls++
		if got := r.Header.Get(headerApp); got != appID {
			t.Errorf("auth1 app header = %q", got)
		}
		if got := r.Header.Get(headerDevice); got != appDevice {
			t.Errorf("auth1 device header = %q", got)
		}
		w.Header().Set(headerAuthToken, "token-1")
		w.Header().Set(headerKeyOffset, "8")
		w.Header().Set(headerKeyLength, "16")
	})
	mux.HandleFunc("/v2/api/auth2", func(w http.ResponseWriter, r *http.Request) {
		*auth2Calls++
		if got := r.Header.Get(headerAuthToken); got != "token-1" {
			t.Errorf("auth2 token header = %q", got)
		}
		want := base64.StdEncoding.EncodeToString([]byte(authKey[8:24]))
		if got := r.Header.Get(headerPartialKey); got != want {
			t.Errorf("auth2 partial key = %q, want %q", got, want)
		}
		fmt.Fprintln(w, "JP13,東京都 TOKYO JAPAN")
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestAuthenticatePerformsHandshake(t *testing.T) {
	var auth1Calls, auth2Calls int
	server := newAuthServer(t, &auth1Calls, &auth2Calls)

	client, err := NewAuthClient(testConfig(server.URL), WithAuthHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("NewAuthClient: %v", err)
	}

	session, err := client.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if session.Token != "token-1" {
		t.Fatalf("token = %q", session.Token)
	}
	if session.AreaID != "JP13" {
		t.Fatalf("area = %q", session.AreaID)
	}
	if session.TTL <= 0 {
		t.Fatalf("ttl = %v", session.TTL)
	}
	if auth1Calls != 1 || auth2Calls != 1 {
		t.Fatalf("calls = %d/%d", auth1Calls, auth2Calls)
	}
}

func TestAuthenticateSendsConfiguredArea(t *testing.T) {
	assertArea := func(step string, r *http.Request) {
		if got := r.Header.Get(headerAreaID); got != "JP27" {
			t.Errorf("%s area header = %q, want JP27", step, got)
		}
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/api/auth1", func(w http.ResponseWriter, r *http.Request) {
		assertArea("auth1", r)
		w.Header().Set(headerAuthToken, "token-1")
		w.Header().Set(headerKeyOffset, "0")
		w.Header().Set(headerKeyLength, "8")
	})
	mux.HandleFunc("/v2/api/auth2", func(w http.ResponseWriter, r *http.Request) {
		assertArea("auth2", r)
		fmt.Fprintln(w, "JP27,大阪府 OSAKA JAPAN")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := testsupport.NewConfig(t,
		testsupport.WithBaseURL(server.URL),
		testsupport.WithAreaID("JP27"))
	client, err := NewAuthClient(cfg, WithAuthHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("NewAuthClient: %v", err)
	}

	session, err := client.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if session.AreaID != "JP27" {
		t.Fatalf("area = %q", session.AreaID)
	}
}

func TestAuthenticateReusesUnexpiredSession(t *testing.T) {
	var auth1Calls, auth2Calls int
	server := newAuthServer(t, &auth1Calls, &auth2Calls)
	clock := newFakeClock(time.Date(2026, 8, 23, 12, 0, 0, 0, JST()))

	client, err := NewAuthClient(testConfig(server.URL),
		WithAuthHTTPClient(server.Client()),
		WithAuthClock(clock.Now))
	if err != nil {
		t.Fatalf("NewAuthClient: %v", err)
	}

	first, err := client.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("first Authenticate: %v", err)
	}
	second, err := client.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("second Authenticate: %v", err)
	}
	if auth1Calls != 1 || auth2Calls != 1 {
		t.Fatalf("unexpired session must not re-handshake: calls = %d/%d", auth1Calls, auth2Calls)
	}
	if first != second {
		t.Fatalf("sessions differ: %+v vs %+v", first, second)
	}
}

func TestAuthenticateRefreshesExpiredSession(t *testing.T) {
	var auth1Calls, auth2Calls int
	server := newAuthServer(t, &auth1Calls, &auth2Calls)
	clock := newFakeClock(time.Date(2026, 8, 23, 12, 0, 0, 0, JST()))

	cfg := testConfig(server.URL)
	cfg.Auth.SessionTTL = 60
	client, err := NewAuthClient(cfg,
		WithAuthHTTPClient(server.Client()),
		WithAuthClock(clock.Now))
	if err != nil {
		t.Fatalf("NewAuthClient: %v", err)
	}

	if _, err := client.Authenticate(context.Background()); err != nil {
		t.Fatalf("first Authenticate: %v", err)
	}
	clock.Advance(61 * time.Second)
	session, err := client.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("second Authenticate: %v", err)
	}
	if auth1Calls != 2 {
		t.Fatalf("expired session should re-handshake: auth1 calls = %d", auth1Calls)
	}
	if session.Expired(clock.Now()) {
		t.Fatal("fresh session reports expired")
	}
}

func TestAuthenticateRejectedStatusIsNotRetried(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client, err := NewAuthClient(testConfig(server.URL), WithAuthHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("NewAuthClient: %v", err)
	}

	_, err = client.Authenticate(context.Background())
	if !errors.Is(err, services.ErrAuthRejected) {
		t.Fatalf("want rejected, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("rejection must not burn retries: calls = %d", calls)
	}
}

func TestAuthenticateOutOfAreaIsRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/api/auth1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerAuthToken, "token-1")
		w.Header().Set(headerKeyOffset, "0")
		w.Header().Set(headerKeyLength, "8")
	})
	mux.HandleFunc("/v2/api/auth2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "OUT")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, err := NewAuthClient(testConfig(server.URL), WithAuthHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("NewAuthClient: %v", err)
	}

	_, err = client.Authenticate(context.Background())
	if !errors.Is(err, services.ErrAuthRejected) {
		t.Fatalf("want rejected, got %v", err)
	}
}

func TestAuthenticateProtocolViolations(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
	}{
		{name: "missing token", headers: map[string]string{headerKeyOffset: "0", headerKeyLength: "8"}},
		{name: "missing offset", headers: map[string]string{headerAuthToken: "tok", headerKeyLength: "8"}},
		{name: "offset not integer", headers: map[string]string{headerAuthToken: "tok", headerKeyOffset: "x", headerKeyLength: "8"}},
		{name: "slice out of bounds", headers: map[string]string{headerAuthToken: "tok", headerKeyOffset: "30", headerKeyLength: "16"}},
		{name: "zero length", headers: map[string]string{headerAuthToken: "tok", headerKeyOffset: "0", headerKeyLength: "0"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for key, value := range tc.headers {
					w.Header().Set(key, value)
				}
			}))
			defer server.Close()

			client, err := NewAuthClient(testConfig(server.URL), WithAuthHTTPClient(server.Client()))
			if err != nil {
				t.Fatalf("NewAuthClient: %v", err)
			}
			_, err = client.Authenticate(context.Background())
			if !errors.Is(err, services.ErrAuthProtocol) {
				t.Fatalf("want protocol violation, got %v", err)
			}
		})
	}
}

func TestAuthenticateEmptyEntitlementBody(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/api/auth1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerAuthToken, "token-1")
		w.Header().Set(headerKeyOffset, "0")
		w.Header().Set(headerKeyLength, "8")
	})
	mux.HandleFunc("/v2/api/auth2", func(w http.ResponseWriter, r *http.Request) {})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, err := NewAuthClient(testConfig(server.URL), WithAuthHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("NewAuthClient: %v", err)
	}
	_, err = client.Authenticate(context.Background())
	if !errors.Is(err, services.ErrAuthProtocol) {
		t.Fatalf("want protocol violation, got %v", err)
	}
}

func TestAuthenticateRetriesTransportFailures(t *testing.T) {
	var auth1Calls, auth2Calls int
	server := newAuthServer(t, &auth1Calls, &auth2Calls)

	doer := &flakyDoer{failures: 2, inner: server.Client()}
	var sleeps int
	client, err := NewAuthClient(testConfig(server.URL),
		WithAuthHTTPClient(doer),
		WithAuthSleeper(func(time.Duration) { sleeps++ }))
	if err != nil {
		t.Fatalf("NewAuthClient: %v", err)
	}

	session, err := client.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if session.AreaID != "JP13" {
		t.Fatalf("area = %q", session.AreaID)
	}
	if sleeps != 2 {
		t.Fatalf("sleeps = %d", sleeps)
	}
}

func TestAuthenticateNetworkFailureAfterRetries(t *testing.T) {
	doer := &flakyDoer{failures: 100}
	client, err := NewAuthClient(testConfig("http://127.0.0.1:0"),
		WithAuthHTTPClient(doer),
		WithAuthSleeper(func(time.Duration) {}))
	if err != nil {
		t.Fatalf("NewAuthClient: %v", err)
	}

	_, err = client.Authenticate(context.Background())
	if !errors.Is(err, services.ErrAuthNetwork) {
		t.Fatalf("want network failure, got %v", err)
	}
	if doer.calls != 3 {
		t.Fatalf("attempts = %d", doer.calls)
	}
}

func TestSessionExpired(t *testing.T) {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, JST())
	session := Session{Token: "tok", ObtainedAt: now, TTL: time.Hour}

	if session.Expired(now.Add(59 * time.Minute)) {
		t.Fatal("session expired early")
	}
	if !session.Expired(now.Add(time.Hour)) {
		t.Fatal("session should expire exactly at obtained_at+ttl")
	}
	if !(Session{}).Expired(now) {
		t.Fatal("zero session should always be expired")
	}
}
