// internal/common/retry/retry.go
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"kc-restaurants/internal/common/config"
	"kc-restaurants/internal/common/errors"
	"kc-restaurants/internal/common/logger"
)

const (
	minDelay         = 100 * time.Millisecond
	rateLimitedFloor = 30 * time.Second
	quotaFloor       = 60 * time.Second
	networkDelayCeil = 10 * time.Second
	jitterFraction   = 0.1
)

// Retryer runs operations with categorized exponential backoff. Which
// failures retry, and with what delay floor, depends on the error category:
// rate-limit and quota failures back off far longer than plain network
// hiccups, and auth/permission/not-found failures never retry.
type Retryer struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	log        logger.Logger
	rng        *rand.Rand

	// test seam; defaults to a context-aware sleep
	sleep func(ctx context.Context, d time.Duration) error
}

func New(cfg config.RetryConfig, log logger.Logger) *Retryer {
	return &Retryer{
		maxRetries: cfg.MaxRetries,
		baseDelay:  config.GetDuration(cfg.BaseDelayMs),
		maxDelay:   config.GetDuration(cfg.MaxDelayMs),
		log:        log,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:      sleepCtx,
	}
}

// Do runs fn until it succeeds, the error category stops being retryable, or
// the attempt budget is spent. The last error is returned unwrapped.
func (r *Retryer) Do(ctx context.Context, operation string, fn func() error) error {
	var lastErr error

	for attempt := 1; ; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		cat := errors.Categorize(lastErr)
		if !r.shouldRetry(cat, attempt) {
			if attempt > 1 {
				r.log.Warn("operation exhausted retries", map[string]interface{}{
					"operation": operation,
					"attempts":  attempt,
					"category":  string(cat),
					"error":     lastErr.Error(),
				})
			}
			return lastErr
		}

		delay := r.DelayFor(cat, attempt)
		r.log.Warn("operation failed, retrying", map[string]interface{}{
			"operation": operation,
			"attempt":   attempt,
			"category":  string(cat),
			"delay_ms":  delay.Milliseconds(),
			"error":     lastErr.Error(),
		})

		if err := r.sleep(ctx, delay); err != nil {
			return lastErr
		}
	}
}

func (r *Retryer) shouldRetry(cat errors.Category, attempt int) bool {
	if !cat.IsRetryable() {
		return false
	}
	limit := r.maxRetries
	if capped := cat.MaxAttempts(); capped > 0 && capped < limit {
		limit = capped
	}
	return attempt < limit
}

// DelayFor computes the backoff for the next attempt: exponential from the
// base delay, then a per-category floor or ceiling, then jitter.
func (r *Retryer) DelayFor(cat errors.Category, attempt int) time.Duration {
	delay := time.Duration(float64(r.baseDelay) * math.Pow(2, float64(attempt-1)))

	switch cat {
	case errors.CategoryRateLimited:
		if delay < rateLimitedFloor {
			delay = rateLimitedFloor
		}
	case errors.CategoryQuotaExceeded:
		if delay < quotaFloor {
			delay = quotaFloor
		}
	case errors.CategoryNetwork:
		if delay > networkDelayCeil {
			delay = networkDelayCeil
		}
	}

	if delay > r.maxDelay {
		delay = r.maxDelay
	}

	// jitter +-10%
	jitter := (r.rng.Float64()*2 - 1) * jitterFraction * float64(delay)
	delay = time.Duration(float64(delay) + jitter)

	if delay < minDelay {
		delay = minDelay
	}
	return delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RateLimiter enforces a minimum interval between successive calls. This is
// cooperative self-throttling for a single-threaded batch, not a scheduler.
type RateLimiter struct {
	minInterval time.Duration
	last        time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRateLimiter(minInterval time.Duration) *RateLimiter {
	return &RateLimiter{
		minInterval: minInterval,
		now:         time.Now,
		sleep:       sleepCtx,
	}
}

// Wait blocks until at least the minimum interval has passed since the
// previous call.
func (l *RateLimiter) Wait(ctx context.Context) error {
	if !l.last.IsZero() {
		elapsed := l.now().Sub(l.last)
		if remaining := l.minInterval - elapsed; remaining > 0 {
			if err := l.sleep(ctx, remaining); err != nil {
				return err
			}
		}
	}
	l.last = l.now()
	return nil
}
