package radiko

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"aircheck/internal/config"
	"aircheck/internal/logging"
	"aircheck/internal/services"
)

const playlistPath = "/v2/api/ts/playlist.m3u8"

// TimeWindow is the half-open broadcast interval [Start, Start+Duration) a
// job records. Immutable once the job starts.
type TimeWindow struct {
	Start    time.Time
	Duration time.Duration
}

// End returns the exclusive end instant.
func (w TimeWindow) End() time.Time {
	return w.Start.Add(w.Duration)
}

// Validate checks the window against the service's retention horizon without
// touching the network. A window starting before now-retention or ending
// after now cannot be served by the timeshift API.
func (w TimeWindow) Validate(now time.Time, retention time.Duration) error {
	if w.Duration <= 0 {
		return services.Wrap(services.ErrConfiguration, "playlist", "window", "duration must be positive", nil)
	}
	if retention > 0 {
		horizon := now.Add(-retention)
		if w.Start.Before(horizon) {
			return services.Wrap(services.ErrPlaylistOutOfRange, "playlist", "window",
				fmt.Sprintf("start %s before retention horizon %s", FormatTimestamp(w.Start), FormatTimestamp(horizon)), nil)
		}
	}
	if w.End().After(now) {
		return services.Wrap(services.ErrPlaylistOutOfRange, "playlist", "window",
			fmt.Sprintf("window ending %s is not fully in the past", FormatTimestamp(w.End())), nil)
	}
	return nil
}

// PlaylistEntry is one media segment reference in window order. Sequence is
// the playlist's own monotonic numbering; downstream code must never reorder
// or dedupe entries.
type PlaylistEntry struct {
	Sequence int64
	URL      string
	Duration time.Duration
}

// ResolverOption customizes Resolver construction.
type ResolverOption func(*Resolver)

// WithResolverHTTPClient overrides the HTTP client used for playlist fetches.
func WithResolverHTTPClient(client HTTPDoer) ResolverOption {
	return func(r *Resolver) {
		if client != nil {
			r.httpClient = client
		}
	}
}

// WithResolverSleeper overrides how retry backoff sleeps are performed.
func WithResolverSleeper(sleeper func(time.Duration)) ResolverOption {
	return func(r *Resolver) {
		r.sleeper = sleeper
	}
}

// WithResolverClock overrides the clock used for retention validation.
func WithResolverClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WithResolverLogger attaches a logger for resolution diagnostics.
func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logging.NewComponentLogger(logger, "playlist")
		}
	}
}

// Resolver turns a station and time window into the ordered segment list
// covering that window.
type Resolver struct {
	baseURL     string
	chunkLength int
	retention   time.Duration
	retry       retryPolicy

	httpClient HTTPDoer
	sleeper    func(time.Duration)
	now        func() time.Time
	logger     *slog.Logger
}

// NewResolver builds a Resolver from configuration.
func NewResolver(cfg *config.Config, opts ...ResolverOption) (*Resolver, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	timeout := time.Duration(cfg.Playlist.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	resolver := &Resolver{
		baseURL:     strings.TrimRight(cfg.Service.BaseURL, "/"),
		chunkLength: cfg.Playlist.ChunkLength,
		retention:   time.Duration(cfg.Playlist.RetentionDays) * 24 * time.Hour,
		retry:       retryPolicyFromConfig(cfg.Playlist.RetryAttempts, cfg.Playlist.RetryBaseDelayMS, cfg.Playlist.RetryMaxDelayMS),
		httpClient:  &http.Client{Timeout: timeout},
		now:         time.Now,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(resolver)
	}
	if resolver.httpClient == nil {
		resolver.httpClient = &http.Client{Timeout: timeout}
	}
	if resolver.chunkLength <= 0 {
		resolver.chunkLength = 15
	}
	return resolver, nil
}

// Resolve fetches and parses the timeshift playlist for the window. The
// returned entries are in declared order with resolved absolute URLs.
func (r *Resolver) Resolve(ctx context.Context, stationID string, session Session, window TimeWindow) ([]PlaylistEntry, error) {
	if !ValidStationID(stationID) {
		return nil, services.Wrap(services.ErrConfiguration, "playlist", "resolve",
			fmt.Sprintf("invalid station id %q", stationID), nil)
	}
	if err := window.Validate(r.now(), r.retention); err != nil {
		return nil, err
	}

	requestURL := r.playlistURL(stationID, window)
	body, baseURL, err := r.fetchText(ctx, requestURL, session.Token)
	if err != nil {
		return nil, err
	}
	parsed, err := parsePlaylist(baseURL, body)
	if err != nil {
		return nil, err
	}

	// Master playlists indirect exactly one level to the media playlist.
	if parsed.master {
		body, baseURL, err = r.fetchText(ctx, parsed.variantURL, session.Token)
		if err != nil {
			return nil, err
		}
		parsed, err = parsePlaylist(baseURL, body)
		if err != nil {
			return nil, err
		}
		if parsed.master {
			return nil, services.Wrap(services.ErrPlaylistMalformed, "playlist", "resolve", "nested master playlist", nil)
		}
	}

	if len(parsed.entries) == 0 {
		return nil, services.Wrap(services.ErrPlaylistEmpty, "playlist", "resolve",
			fmt.Sprintf("no segments for station %s window %s", stationID, FormatTimestamp(window.Start)), nil)
	}
	r.logger.Info("playlist resolved",
		logging.String(logging.FieldStation, stationID),
		logging.Int("segment_count", len(parsed.entries)),
		logging.String("window_start", FormatTimestamp(window.Start)),
		logging.String("window_end", FormatTimestamp(window.End())))
	return parsed.entries, nil
}

func (r *Resolver) playlistURL(stationID string, window TimeWindow) string {
	query := url.Values{}
	query.Set("station_id", stationID)
	query.Set("l", strconv.Itoa(r.chunkLength))
	query.Set("ft", FormatTimestamp(window.Start))
	query.Set("to", FormatTimestamp(window.End()))
	return r.baseURL + playlistPath + "?" + query.Encode()
}

// fetchText retrieves a playlist document. Transport failures and 5xx
// responses are retried with backoff; 4xx responses fail immediately since
// re-sending the same bad request cannot help.
func (r *Resolver) fetchText(ctx context.Context, requestURL, token string) (string, *url.URL, error) {
	policy := r.retry.normalized()
	var lastErr error
	for attempt := 1; attempt <= policy.attempts; attempt++ {
		body, finalURL, err := r.fetchTextOnce(ctx, requestURL, token)
		if err == nil {
			return body, finalURL, nil
		}
		lastErr = err
		if canceled(ctx, err) || !retryableFetch(err) || attempt >= policy.attempts {
			break
		}
		delay := policy.delay(attempt)
		r.logger.Debug("playlist retry",
			logging.Int("attempt", attempt),
			logging.Duration("backoff", delay),
			logging.Error(err))
		if err := sleepContext(ctx, r.sleeper, delay); err != nil {
			return "", nil, err
		}
	}
	return "", nil, lastErr
}

func (r *Resolver) fetchTextOnce(ctx context.Context, requestURL, token string) (string, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return "", nil, services.Wrap(services.ErrPlaylistMalformed, "playlist", "fetch", "build request", err)
	}
	req.Header.Set(headerAuthToken, token)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		if canceled(ctx, err) {
			return "", nil, err
		}
		return "", nil, services.Wrap(services.ErrPlaylistNetwork, "playlist", "fetch", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// 5xx responses retry; 4xx responses are final because re-sending
		// the same request cannot change the answer. Both classify as
		// network failures for the caller.
		return "", nil, services.Wrap(services.ErrPlaylistNetwork, "playlist", "fetch", "",
			&statusError{status: resp.StatusCode})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		if canceled(ctx, err) {
			return "", nil, err
		}
		return "", nil, services.Wrap(services.ErrPlaylistNetwork, "playlist", "fetch", "read body", err)
	}
	finalURL := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL
	}
	return string(body), finalURL, nil
}
