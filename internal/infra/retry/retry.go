// Package retry wraps a fallible operation with bounded retries and
// exponential backoff. Only transient transport failures are retried;
// everything else propagates on first occurrence.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"syscall"
	"time"
)

// Config configures the retry behavior.
type Config struct {
	MaxAttempts   int           // total attempts, including the first (min 1)
	BaseDelay     time.Duration // backoff before the second attempt
	MaxDelay      time.Duration // cap on backoff delay
	BackoffFactor float64       // delay multiplier per attempt

	// Sleep pauses between attempts. Defaults to time.Sleep; tests inject
	// a recorder. The pause blocks only the executor's own goroutine.
	Sleep func(time.Duration)
}

// DefaultConfig returns the production retry defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   3,
		BaseDelay:     2 * time.Second,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
	}
}

// transientSubstrings match transport failures by message when the error
// chain carries no recognizable type (XML-RPC faults arrive as flat text).
var transientSubstrings = []string{
	"connection reset",
	"connection refused",
	"connection aborted",
	"broken pipe",
	"timeout",
	"timed out",
	"network is unreachable",
	"service unavailable",
	"gateway timeout",
	"remote host closed connection",
	"unexpected eof",
	"eof occurred in violation of protocol",
}

// IsTransient classifies an error as a retryable transport failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, s := range transientSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// Do runs op up to cfg.MaxAttempts times. A transient failure sleeps
// min(BaseDelay * BackoffFactor^(attempt-1), MaxDelay) and tries again; a
// non-transient failure, or a transient one on the final attempt, returns
// immediately. The first success wins.
func Do[T any](cfg Config, logger *slog.Logger, op func() (T, error)) (T, error) {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	if logger == nil {
		logger = slog.Default()
	}

	var zero T
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, err := op()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsTransient(err) {
			return zero, err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		delay := Backoff(cfg, attempt)
		logger.Warn("transient failure, retrying",
			"attempt", attempt,
			"max_attempts", cfg.MaxAttempts,
			"delay", delay,
			"error", err)
		sleep(delay)
	}

	return zero, lastErr
}

// Backoff computes the delay after the given 1-based attempt.
func Backoff(cfg Config, attempt int) time.Duration {
	delay := cfg.BaseDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
		if delay >= cfg.MaxDelay {
			return cfg.MaxDelay
		}
	}
	if delay > cfg.MaxDelay {
		return cfg.MaxDelay
	}
	return delay
}
