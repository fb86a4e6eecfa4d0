package radiko

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"aircheck/internal/config"
	"aircheck/internal/logging"
	"aircheck/internal/services"
)

// SegmentOption customizes SegmentClient construction.
type SegmentOption func(*SegmentClient)

// WithSegmentHTTPClient overrides the HTTP client used for segment fetches.
func WithSegmentHTTPClient(client HTTPDoer) SegmentOption {
	return func(c *SegmentClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithSegmentSleeper overrides how retry backoff sleeps are performed.
func WithSegmentSleeper(sleeper func(time.Duration)) SegmentOption {
	return func(c *SegmentClient) {
		c.sleeper = sleeper
	}
}

// WithSegmentLogger attaches a logger for fetch diagnostics.
func WithSegmentLogger(logger *slog.Logger) SegmentOption {
	return func(c *SegmentClient) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "segments")
		}
	}
}

// SegmentClient retrieves individual media segments. It owns per-segment
// retry policy; ordering across segments is the pipeline's concern.
type SegmentClient struct {
	retry retryPolicy

	httpClient HTTPDoer
	sleeper    func(time.Duration)
	logger     *slog.Logger
}

// NewSegmentClient builds a SegmentClient from configuration.
func NewSegmentClient(cfg *config.Config, opts ...SegmentOption) (*SegmentClient, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	timeout := time.Duration(cfg.Segments.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := &SegmentClient{
		retry:      retryPolicyFromConfig(cfg.Segments.RetryAttempts, cfg.Segments.RetryBaseDelayMS, cfg.Segments.RetryMaxDelayMS),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: timeout}
	}
	return client, nil
}

// Fetch downloads one segment's bytes. Transport failures and 5xx responses
// retry with backoff up to the configured bound; any 4xx response means the
// segment has left the retention window and returns a gone classification
// immediately, because a recording with a hole in it is worthless.
func (c *SegmentClient) Fetch(ctx context.Context, entry PlaylistEntry, token string) ([]byte, error) {
	policy := c.retry.normalized()
	var lastErr error
	for attempt := 1; attempt <= policy.attempts; attempt++ {
		data, err := c.fetchOnce(ctx, entry, token)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if canceled(ctx, err) || !retryableFetch(err) || attempt >= policy.attempts {
			break
		}
		delay := policy.delay(attempt)
		c.logger.Debug("segment retry",
			logging.Int64("sequence", entry.Sequence),
			logging.Int("attempt", attempt),
			logging.Duration("backoff", delay),
			logging.Error(err))
		if err := sleepContext(ctx, c.sleeper, delay); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *SegmentClient) fetchOnce(ctx context.Context, entry PlaylistEntry, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, entry.URL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrSegmentGone, "segments", "fetch",
			fmt.Sprintf("sequence %d has unusable url", entry.Sequence), err)
	}
	req.Header.Set(headerAuthToken, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if canceled(ctx, err) {
			return nil, err
		}
		return nil, services.Wrap(services.ErrSegmentNetwork, "segments", "fetch",
			fmt.Sprintf("sequence %d request failed", entry.Sequence), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
	case resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError:
		return nil, services.Wrap(services.ErrSegmentGone, "segments", "fetch",
			fmt.Sprintf("sequence %d", entry.Sequence), &statusError{status: resp.StatusCode})
	default:
		return nil, services.Wrap(services.ErrSegmentNetwork, "segments", "fetch",
			fmt.Sprintf("sequence %d", entry.Sequence), &statusError{status: resp.StatusCode})
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if canceled(ctx, err) {
			return nil, err
		}
		return nil, services.Wrap(services.ErrSegmentNetwork, "segments", "fetch",
			fmt.Sprintf("sequence %d read body", entry.Sequence), err)
	}
	return data, nil
}
