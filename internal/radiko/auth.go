package radiko

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"aircheck/internal/config"
	"aircheck/internal/logging"
	"aircheck/internal/services"
)

// authKey is the secret table embedded in the service's web player. The
// handshake proves possession by echoing back a server-chosen slice of it.
const authKey = "bcd151073c03b352e1ef2fd66c32209da9ca0afa"

const (
	auth1Path = "/v2/api/auth1"
	auth2Path = "/v2/api/auth2"

	headerApp        = "X-Radiko-App"
	headerAppVersion = "X-Radiko-App-Version"
	headerUser       = "X-Radiko-User"
	headerDevice     = "X-Radiko-Device"
	headerAreaID     = "X-Radiko-AreaId"
	headerAuthToken  = "X-Radiko-AuthToken"
	headerPartialKey = "X-Radiko-Partialkey"
	headerKeyOffset  = "X-Radiko-KeyOffset"
	headerKeyLength  = "X-Radiko-KeyLength"

	appID         = "pc_html5"
	appVersion    = "0.0.1"
	appUser       = "dummy_user"
	appDevice     = "pc"
	outOfAreaBody = "OUT"
)

// Session is one issued entitlement. Values are immutable snapshots; a
// recording job replaces its session wholesale on re-authentication.
type Session struct {
	Token      string
	AreaID     string
	ObtainedAt time.Time
	TTL        time.Duration
}

// Expired reports whether the session can no longer authorize requests.
func (s Session) Expired(now time.Time) bool {
	if s.Token == "" {
		return true
	}
	return !now.Before(s.ObtainedAt.Add(s.TTL))
}

// AuthOption customizes AuthClient construction.
type AuthOption func(*AuthClient)

// WithAuthHTTPClient overrides the HTTP client used for handshake calls.
func WithAuthHTTPClient(client HTTPDoer) AuthOption {
	return func(c *AuthClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithAuthSleeper overrides how retry backoff sleeps are performed.
func WithAuthSleeper(sleeper func(time.Duration)) AuthOption {
	return func(c *AuthClient) {
		c.sleeper = sleeper
	}
}

// WithAuthClock overrides the clock used for expiry decisions.
func WithAuthClock(now func() time.Time) AuthOption {
	return func(c *AuthClient) {
		if now != nil {
			c.now = now
		}
	}
}

// WithAuthLogger attaches a logger for handshake diagnostics.
func WithAuthLogger(logger *slog.Logger) AuthOption {
	return func(c *AuthClient) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "auth")
		}
	}
}

// AuthClient performs the two-step token handshake and caches the issued
// session until it expires.
type AuthClient struct {
	baseURL string
	areaID  string
	ttl     time.Duration
	retry   retryPolicy

	httpClient HTTPDoer
	sleeper    func(time.Duration)
	now        func() time.Time
	logger     *slog.Logger

	mu      sync.RWMutex
	session Session
}

// NewAuthClient builds an AuthClient from configuration.
func NewAuthClient(cfg *config.Config, opts ...AuthOption) (*AuthClient, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	timeout := time.Duration(cfg.Auth.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &AuthClient{
		baseURL:    strings.TrimRight(cfg.Service.BaseURL, "/"),
		areaID:     cfg.Service.AreaID,
		ttl:        time.Duration(cfg.Auth.SessionTTL) * time.Second,
		retry:      retryPolicyFromConfig(cfg.Auth.RetryAttempts, cfg.Auth.RetryBaseDelayMS, cfg.Auth.RetryMaxDelayMS),
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: timeout}
	}
	if client.ttl <= 0 {
		client.ttl = time.Hour
	}
	return client, nil
}

// Authenticate returns the cached session while it remains unexpired and
// performs a fresh handshake otherwise. Concurrent callers coalesce on a
// single handshake.
func (c *AuthClient) Authenticate(ctx context.Context) (Session, error) {
	if session, ok := c.cachedSession(); ok {
		return session, nil
	}
	return c.refreshSession(ctx)
}

func (c *AuthClient) cachedSession() (Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.session.Expired(c.now()) {
		return c.session, true
	}
	return Session{}, false
}

func (c *AuthClient) refreshSession(ctx context.Context) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.session.Expired(c.now()) {
		return c.session, nil
	}

	session, err := c.handshake(ctx)
	if err != nil {
		return Session{}, err
	}
	c.session = session
	return session, nil
}

func (c *AuthClient) handshake(ctx context.Context) (Session, error) {
	resp, err := c.getWithRetry(ctx, c.baseURL+auth1Path, func(req *http.Request) {
		c.setCommonHeaders(req)
	})
	if err != nil {
		if canceled(ctx, err) {
			return Session{}, err
		}
		return Session{}, services.Wrap(services.ErrAuthNetwork, "auth", "auth1", "request failed", err)
	}
	token, partialKey, err := consumeChallenge(resp)
	if err != nil {
		return Session{}, err
	}

	resp, err = c.getWithRetry(ctx, c.baseURL+auth2Path, func(req *http.Request) {
		c.setCommonHeaders(req)
		req.Header.Set(headerAuthToken, token)
		req.Header.Set(headerPartialKey, partialKey)
	})
	if err != nil {
		if canceled(ctx, err) {
			return Session{}, err
		}
		return Session{}, services.Wrap(services.ErrAuthNetwork, "auth", "auth2", "request failed", err)
	}
	areaID, err := consumeEntitlement(resp)
	if err != nil {
		return Session{}, err
	}

	session := Session{
		Token:      token,
		AreaID:     areaID,
		ObtainedAt: c.now(),
		TTL:        c.ttl,
	}
	c.logger.Info("session established",
		logging.String("area_id", session.AreaID),
		logging.Duration("session_ttl", session.TTL))
	return session, nil
}

func (c *AuthClient) setCommonHeaders(req *http.Request) {
	req.Header.Set("Accept", "*/*")
	req.Header.Set(headerApp, appID)
	req.Header.Set(headerAppVersion, appVersion)
	req.Header.Set(headerUser, appUser)
	req.Header.Set(headerDevice, appDevice)
	req.Header.Set(headerAreaID, c.areaID)
}

// getWithRetry issues a GET, retrying transport failures per the configured
// policy. Responses are returned regardless of status; classification of
// non-200 statuses is the caller's job, because a rejection must not burn
// retry budget.
func (c *AuthClient) getWithRetry(ctx context.Context, url string, prepare func(*http.Request)) (*http.Response, error) {
	policy := c.retry.normalized()
	var lastErr error
	for attempt := 1; attempt <= policy.attempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("new request: %w", err)
		}
		prepare(req)

		resp, err := c.httpClient.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if attempt >= policy.attempts || !transportRetryable(ctx, err) {
			break
		}
		delay := policy.delay(attempt)
		c.logger.Debug("handshake retry",
			logging.Int("attempt", attempt),
			logging.Duration("backoff", delay),
			logging.Error(err))
		if err := sleepContext(ctx, c.sleeper, delay); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// consumeChallenge extracts the session token and derives the partial key
// from an auth1 response.
func consumeChallenge(resp *http.Response) (token, partialKey string, err error) {
	defer drainBody(resp)
	if resp.StatusCode != http.StatusOK {
		return "", "", services.Wrap(services.ErrAuthRejected, "auth", "auth1",
			fmt.Sprintf("http %d", resp.StatusCode), nil)
	}
	token = strings.TrimSpace(resp.Header.Get(headerAuthToken))
	if token == "" {
		return "", "", services.Wrap(services.ErrAuthProtocol, "auth", "auth1", "missing token header", nil)
	}
	partialKey, err = derivePartialKey(resp.Header.Get(headerKeyOffset), resp.Header.Get(headerKeyLength))
	if err != nil {
		return "", "", err
	}
	return token, partialKey, nil
}

// derivePartialKey base64-encodes the server-chosen slice of the embedded
// secret table.
func derivePartialKey(offsetValue, lengthValue string) (string, error) {
	offset, err := strconv.Atoi(strings.TrimSpace(offsetValue))
	if err != nil {
		return "", services.Wrap(services.ErrAuthProtocol, "auth", "auth1",
			fmt.Sprintf("key offset %q not an integer", offsetValue), nil)
	}
	length, err := strconv.Atoi(strings.TrimSpace(lengthValue))
	if err != nil {
		return "", services.Wrap(services.ErrAuthProtocol, "auth", "auth1",
			fmt.Sprintf("key length %q not an integer", lengthValue), nil)
	}
	if offset < 0 || length <= 0 || offset+length > len(authKey) {
		return "", services.Wrap(services.ErrAuthProtocol, "auth", "auth1",
			fmt.Sprintf("key slice [%d,%d) out of bounds", offset, offset+length), nil)
	}
	return base64.StdEncoding.EncodeToString([]byte(authKey[offset : offset+length])), nil
}

// consumeEntitlement extracts the assigned area from an auth2 response body.
// The body's first comma-separated field is the area identifier; the sentinel
// "OUT" means the client is outside the service area.
func consumeEntitlement(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", services.Wrap(services.ErrAuthRejected, "auth", "auth2",
			fmt.Sprintf("http %d", resp.StatusCode), nil)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", services.Wrap(services.ErrAuthNetwork, "auth", "auth2", "read body", err)
	}
	content := strings.TrimSpace(string(body))
	if content == "" {
		return "", services.Wrap(services.ErrAuthProtocol, "auth", "auth2", "empty entitlement body", nil)
	}
	if strings.EqualFold(content, outOfAreaBody) {
		return "", services.Wrap(services.ErrAuthRejected, "auth", "auth2", "out of service area", nil)
	}
	line := content
	if idx := strings.IndexAny(line, "\r\n"); idx >= 0 {
		line = line[:idx]
	}
	areaID := line
	if idx := strings.IndexByte(line, ','); idx >= 0 {
		areaID = line[:idx]
	}
	areaID = strings.TrimSpace(areaID)
	if areaID == "" {
		return "", services.Wrap(services.ErrAuthProtocol, "auth", "auth2", "entitlement body missing area", nil)
	}
	return areaID, nil
}

func drainBody(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}
