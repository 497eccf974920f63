package apiclient

import (
	"errors"
	"net/http"
	"time"

	"dataroom/internal/domain"
)

// RetryPolicy decides whether a failed attempt is retried and after how long
type RetryPolicy interface {
	ShouldRetry(method string, err error, attempt int) (bool, time.Duration)
}

// RetryConfig configures exponential backoff
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  200 * time.Millisecond,
		MaxDelay:   2 * time.Second,
	}
}

// BackoffRetry retries network failures of reads with exponential backoff.
// Writes are never replayed: a lost response may hide an applied write, so
// they surface as NetworkError for the caller to roll back.
type BackoffRetry struct {
	cfg RetryConfig
}

func NewBackoffRetry(cfg RetryConfig) *BackoffRetry {
	return &BackoffRetry{cfg: cfg}
}

func (r *BackoffRetry) ShouldRetry(method string, err error, attempt int) (bool, time.Duration) {
	if attempt >= r.cfg.MaxRetries {
		return false, 0
	}
	if method != http.MethodGet && method != http.MethodHead {
		return false, 0
	}
	if !errors.Is(err, domain.ErrNetwork) {
		return false, 0
	}
	return true, r.backoff(attempt)
}

func (r *BackoffRetry) backoff(attempt int) time.Duration {
	base := r.cfg.BaseDelay
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	max := r.cfg.MaxDelay
	if max <= 0 {
		max = 2 * time.Second
	}
	delay := base << attempt
	if delay > max || delay <= 0 {
		delay = max
	}
	return delay
}
