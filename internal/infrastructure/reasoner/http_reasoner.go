// Package reasoner provides a ConstraintReasoner backed by an HTTP service.
package reasoner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/plumbline-dev/plumbline/internal/application/ports"
	"github.com/plumbline-dev/plumbline/internal/domain/entities"
)

const maxResponseSize = 8 << 20

// Ensure interface compliance
var _ ports.ConstraintReasoner = (*HTTPReasoner)(nil)

// Options configures an HTTPReasoner.
type Options struct {
	URL          string
	Timeout      time.Duration
	MaxRetries   int
	Backoff      BackoffType
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Client       *http.Client
	Logger       *slog.Logger
}

// HTTPReasoner posts each ReasoningRequest as JSON and decodes the
// ReasoningResult. Transient failures are retried with backoff.
type HTTPReasoner struct {
	url    string
	client *http.Client
	opts   Options
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewHTTPReasoner creates a reasoner client for opts.URL.
func NewHTTPReasoner(opts Options) (*HTTPReasoner, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, fmt.Errorf("reasoner URL is required")
	}
	if !strings.HasPrefix(opts.URL, "http://") && !strings.HasPrefix(opts.URL, "https://") {
		return nil, fmt.Errorf("reasoner URL must be http or https: %s", opts.URL)
	}
	if opts.MaxRetries < 0 {
		return nil, fmt.Errorf("max retries must be non-negative, got %d", opts.MaxRetries)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Backoff == "" {
		opts.Backoff = BackoffExponential
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = 500 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	return &HTTPReasoner{
		url:    opts.URL,
		client: client,
		opts:   opts,
		logger: opts.Logger,
		sleep:  sleepContext,
	}, nil
}

// Evaluate scores one geometry candidate.
func (r *HTTPReasoner) Evaluate(ctx context.Context, req entities.ReasoningRequest) (*entities.ReasoningResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode reasoning request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= r.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := CalculateBackoff(r.opts.Backoff, attempt, r.opts.InitialDelay, r.opts.MaxDelay)
			r.logger.Debug("retrying reasoner call", "pass", req.Pass, "attempt", attempt, "delay", delay, "error", lastErr)
			if err := r.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		result, err := r.post(ctx, body)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isTransientError(err) {
			break
		}
	}
	return nil, fmt.Errorf("reasoner evaluate (pass %d): %w", req.Pass, lastErr)
}

func (r *HTTPReasoner) post(ctx context.Context, body []byte) (*entities.ReasoningResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close() // Best-effort cleanup
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read reasoner response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	var result entities.ReasoningResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode reasoner response: %w", err)
	}
	return &result, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
