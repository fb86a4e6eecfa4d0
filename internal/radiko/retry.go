package radiko

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"aircheck/internal/services"
)

const (
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 500 * time.Millisecond
	defaultRetryMaxDelay  = 5 * time.Second
)

// retryPolicy bounds transient-failure retries for one request class.
type retryPolicy struct {
	attempts  int
	baseDelay time.Duration
	maxDelay  time.Duration
}

func (p retryPolicy) normalized() retryPolicy {
	if p.attempts <= 0 {
		p.attempts = defaultRetryAttempts
	}
	if p.baseDelay <= 0 {
		p.baseDelay = defaultRetryBaseDelay
	}
	if p.maxDelay < p.baseDelay {
		p.maxDelay = defaultRetryMaxDelay
	}
	return p
}

// delay computes the backoff before the attempt following the given 1-based
// attempt: base, base*2, base*4, capped at maxDelay.
func (p retryPolicy) delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := p.baseDelay
	for i := 1; i < attempt; i++ {
		if delay > p.maxDelay/2 {
			delay = p.maxDelay
			break
		}
		delay *= 2
	}
	if delay > p.maxDelay {
		delay = p.maxDelay
	}
	return delay
}

// retryPolicyFromConfig builds a policy from the millisecond-denominated
// config triple.
func retryPolicyFromConfig(attempts, baseDelayMS, maxDelayMS int) retryPolicy {
	return retryPolicy{
		attempts:  attempts,
		baseDelay: time.Duration(baseDelayMS) * time.Millisecond,
		maxDelay:  time.Duration(maxDelayMS) * time.Millisecond,
	}.normalized()
}

func sleepContext(ctx context.Context, sleeper func(time.Duration), delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx == nil {
		return errors.New("retry: nil context")
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if sleeper != nil {
		sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// statusError records a non-200 response status inside an error chain so
// retry loops can distinguish server-side failures from final client errors.
type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http %d", e.status)
}

// retryableFetch reports whether a classified fetch error deserves another
// attempt: transport failures and 5xx statuses do, anything else is final.
func retryableFetch(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.status >= http.StatusInternalServerError
	}
	return services.Retryable(err)
}

// transportRetryable reports whether a transport-level error is worth another
// attempt. Cancellation of the caller's own context is final; per-request
// timeouts and connection failures are not.
func transportRetryable(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx != nil && ctx.Err() != nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true
		}
		// Connection refused, reset, DNS hiccups: the request never
		// completed, so another attempt is safe for these GETs.
		return true
	}
	return false
}

// canceled reports whether err is the caller's own context firing. Those
// errors pass through unclassified so the orchestrator can label the job
// outcome itself. A per-request client timeout also matches the context
// sentinels, so the context's own state decides.
func canceled(ctx context.Context, err error) bool {
	if ctx == nil || ctx.Err() == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
