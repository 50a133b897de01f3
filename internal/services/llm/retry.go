package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// retryPolicy governs how many times a completion is attempted and how long
// to wait between attempts. Delays double from base and never exceed max
// (a zero max leaves them uncapped).
type retryPolicy struct {
	attempts int
	base     time.Duration
	max      time.Duration
	sleep    func(time.Duration)
}

func (p retryPolicy) maxAttempts() int {
	return max(p.attempts, 1)
}

// backoff returns the wait after the given 1-based attempt.
func (p retryPolicy) backoff(attempt int) time.Duration {
	if p.base <= 0 {
		return 0
	}
	delay := p.base
	for range attempt - 1 {
		delay *= 2
		if p.max > 0 && delay >= p.max {
			break
		}
	}
	return p.clamp(delay)
}

func (p retryPolicy) clamp(d time.Duration) time.Duration {
	switch {
	case d < 0:
		return 0
	case p.max > 0 && d > p.max:
		return p.max
	default:
		return d
	}
}

// next decides whether attempt should be followed by another and how long to
// wait first. A server supplied Retry-After wins over the backoff schedule.
func (p retryPolicy) next(ctx context.Context, err error, attempt int) (time.Duration, bool) {
	if err == nil || attempt >= p.maxAttempts() || ctx.Err() != nil || !IsTransient(err) {
		return 0, false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
		return p.clamp(statusErr.RetryAfter), true
	}
	return p.backoff(attempt), true
}

func (p retryPolicy) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.sleep != nil {
		p.sleep(d)
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsTransient reports whether a later attempt might succeed where err failed.
// Throttling, 5xx responses, timeouts and empty completions qualify;
// cancellation never does.
func IsTransient(err error) bool {
	var (
		empty     *emptyContentError
		statusErr *httpStatusError
		netErr    net.Error
	)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &empty):
		return true
	case errors.As(err, &statusErr):
		return retryableStatus(statusErr.StatusCode)
	case errors.As(err, &netErr):
		return netErr.Timeout()
	}
	return false
}

// StatusCode extracts the HTTP status from a client error, or 0.
func StatusCode(err error) int {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

func retryableStatus(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
}

// parseRetryAfter reads delta-seconds or an HTTP date.
func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	var delay time.Duration
	if seconds, err := strconv.Atoi(value); err == nil {
		delay = time.Duration(seconds) * time.Second
	} else if when, err := http.ParseTime(value); err == nil {
		delay = time.Until(when)
	} else {
		return 0, false
	}
	return delay, delay >= 0
}
