package spotify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ewilliams-labs/song-bot/internal/core/ports"
)

const (
	defaultMaxRetries = 3
	defaultBackoffMs  = 500

	// maxRetryDelay caps both the exponential backoff and Retry-After hints.
	// The turn deadline still bounds the total wait.
	maxRetryDelay = 10 * time.Second
)

// retryFromEnv reads SPOTIFY_MAX_RETRIES (attempts per call) and
// SPOTIFY_RETRY_BACKOFF_MS, ignoring values that are not positive integers.
func retryFromEnv() (int, time.Duration) {
	attempts := positiveEnv("SPOTIFY_MAX_RETRIES", defaultMaxRetries)
	backoff := positiveEnv("SPOTIFY_RETRY_BACKOFF_MS", defaultBackoffMs)
	return attempts, time.Duration(backoff) * time.Millisecond
}

func positiveEnv(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// fetch performs one logical GET of endpoint. Each attempt first waits on the
// rate limiter. Transport errors, 429 and 5xx are retried with exponential
// backoff; Retry-After replaces the computed delay when present. Any other
// response is returned as is and the caller closes its body. When attempts
// run out the error is a *ports.LookupError carrying the last status.
func (c *Client) fetch(ctx context.Context, op, endpoint string) (*http.Response, error) {
	attempts := c.maxRetries
	if attempts <= 0 {
		attempts = defaultMaxRetries
	}

	for attempt := 1; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, &ports.LookupError{Op: op, Err: err}
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, &ports.LookupError{Op: op, Err: err}
		}
		resp, err := c.httpClient.Do(req)
		if ctx.Err() != nil {
			if resp != nil {
				resp.Body.Close()
			}
			return nil, &ports.LookupError{Op: op, Err: ctx.Err()}
		}

		var failure *ports.LookupError
		var hint time.Duration
		switch {
		case err != nil:
			failure = &ports.LookupError{Op: op, Err: err}
		case transientStatus(resp.StatusCode):
			failure = &ports.LookupError{Op: op, Status: resp.StatusCode}
			hint = retryAfter(resp.Header)
			discard(resp)
		default:
			return resp, nil
		}

		if attempt >= attempts {
			c.logger.Warn("spotify adapter: giving up",
				zap.String("op", op), zap.Int("attempts", attempt), zap.Error(failure))
			return nil, failure
		}

		delay := backoffDelay(c.baseBackoff, attempt, hint)
		c.logger.Warn("spotify adapter: retrying",
			zap.String("op", op), zap.Int("attempt", attempt), zap.Int("of", attempts),
			zap.Int("status", failure.Status), zap.Duration("delay", delay), zap.NamedError("cause", failure.Err))

		if err := sleepCtx(ctx, delay); err != nil {
			return nil, &ports.LookupError{Op: op, Err: err}
		}
	}
}

func transientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// backoffDelay doubles base per completed attempt, capped at maxRetryDelay.
func backoffDelay(base time.Duration, attempt int, hint time.Duration) time.Duration {
	if hint > 0 {
		return min(hint, maxRetryDelay)
	}
	if base <= 0 {
		base = defaultBackoffMs * time.Millisecond
	}
	d := base << (attempt - 1)
	if d <= 0 || d > maxRetryDelay {
		return maxRetryDelay
	}
	return d
}

// retryAfter understands both delta-seconds and HTTP-date forms.
func retryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return max(time.Duration(secs)*time.Second, 0)
	}
	if at, err := http.ParseTime(v); err == nil {
		return max(time.Until(at), 0)
	}
	return 0
}

// discard drains and closes a body we will not read so the connection can be
// reused.
func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	_ = resp.Body.Close()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// breakerSuccess decides what the circuit breaker counts as healthy. A caller
// giving up is not an upstream failure.
func breakerSuccess(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}
