package reasoner

import (
	"context"
	"errors"
	"net"
	"net/http"
	"syscall"
	"time"
)

// BackoffType selects how the delay grows between retries.
type BackoffType string

const (
	BackoffNone        BackoffType = "none"
	BackoffLinear      BackoffType = "linear"
	BackoffExponential BackoffType = "exponential"
)

// CalculateBackoff computes the delay for the next retry attempt.
func CalculateBackoff(
	strategy BackoffType,
	attempt int,
	initialDelay time.Duration,
	maxDelay time.Duration,
) time.Duration {
	switch strategy {
	case BackoffNone:
		return initialDelay
	case BackoffLinear:
		// 1s, 2s, 3s...
		delay := time.Duration(attempt) * initialDelay
		if maxDelay > 0 && delay > maxDelay {
			return maxDelay
		}
		return delay
	case BackoffExponential:
		// 2s, 4s, 8s...
		if attempt > 62 {
			return maxDelay
		}
		factor := time.Duration(1 << attempt)
		delay := factor * initialDelay
		if maxDelay > 0 && (delay > maxDelay || delay <= 0) {
			return maxDelay
		}
		return delay
	default:
		return initialDelay
	}
}

// StatusError is a non-2xx reply from the reasoner.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return "reasoner returned " + http.StatusText(e.StatusCode)
	}
	return "reasoner returned " + http.StatusText(e.StatusCode) + ": " + e.Body
}

// isTransientError checks if an error is likely to be temporary.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	// Context errors stop retrying
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests ||
			statusErr.StatusCode == http.StatusBadGateway ||
			statusErr.StatusCode == http.StatusServiceUnavailable ||
			statusErr.StatusCode == http.StatusGatewayTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsTemporary {
		return true
	}

	return false
}
