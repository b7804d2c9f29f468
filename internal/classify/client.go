// Package classify wraps the external classification service with rate
// limiting, response parsing, and a bounded retry loop. Classification
// never fails outward: every error path resolves to the fallback
// category so one bad record cannot abort a multi-thousand-row run.
package classify

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ltnam/categorize/internal/core/domain"
	"github.com/ltnam/categorize/internal/core/taxonomy"
	"github.com/ltnam/categorize/internal/pipeline/metrics"
)

// notProvided is substituted for absent employer/occupation fields in
// the prompt, distinct from an empty string.
const notProvided = "Not provided"

// categoryMarker is the instruction echo the service sometimes repeats;
// everything up to its last occurrence is discarded.
const categoryMarker = "Category:"

// Invoker sends one classification prompt to the external service and
// returns the raw response text.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// Client classifies records via an Invoker, pacing calls through a
// Limiter and retrying throttling errors up to MaxRetries times.
type Client struct {
	invoker    Invoker
	limiter    *Limiter
	maxRetries int
	categories []string
}

// NewClient creates a classification client. maxRetries bounds retries
// after throttling errors; the total attempt count is maxRetries+1.
func NewClient(invoker Invoker, limiter *Limiter, maxRetries int, categories []string) *Client {
	return &Client{
		invoker:    invoker,
		limiter:    limiter,
		maxRetries: maxRetries,
		categories: categories,
	}
}

// Classify assigns a label to one record. It never returns an error:
// throttling is retried with exponential backoff, and any terminal
// failure degrades to the fallback category with Degraded set.
func (c *Client) Classify(ctx context.Context, rec domain.Record) domain.Result {
	prompt := taxonomy.Prompt(
		rec.Name,
		orNotProvided(rec.Employer),
		orNotProvided(rec.Occupation),
		c.categories,
	)

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		c.limiter.Wait(attempt)

		start := time.Now()
		raw, err := c.invoker.Invoke(ctx, prompt)
		metrics.ServiceLatency.Observe(time.Since(start).Seconds())

		if err == nil {
			label := extractLabel(raw)
			metrics.ServiceCallsTotal.WithLabelValues("success").Inc()
			slog.Debug("classified contributor", "name", rec.Name, "label", label)
			return domain.Result{Label: label, Attempts: attempt + 1}
		}

		if !Retryable(err) {
			metrics.ServiceCallsTotal.WithLabelValues("error").Inc()
			slog.Error("classification failed", "name", rec.Name, "error", err)
			return degraded(attempt + 1)
		}

		metrics.ServiceCallsTotal.WithLabelValues("throttled").Inc()
		if attempt == c.maxRetries {
			slog.Error("rate limit exceeded, giving up",
				"name", rec.Name, "retries", c.maxRetries)
			return degraded(attempt + 1)
		}

		metrics.ServiceRetriesTotal.Inc()
		slog.Warn("throttled, retrying", "name", rec.Name, "attempt", attempt+1)
	}

	// Reached only when maxRetries is negative and the loop never ran.
	return degraded(c.maxRetries + 1)
}

// Retryable reports whether err indicates throttling by the service.
// Throttling surfaces as an overload status code or rate-limit wording
// in the error text; everything else is terminal.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	lower := strings.ToLower(s)
	return strings.Contains(s, "529") ||
		strings.Contains(lower, "rate") ||
		strings.Contains(lower, "limit")
}

func degraded(attempts int) domain.Result {
	metrics.FallbackTotal.WithLabelValues("classify").Inc()
	return domain.Result{Label: taxonomy.Fallback, Degraded: true, Attempts: attempts}
}

// extractLabel trims the response and strips any echoed instruction
// prefix, keeping only the text after the last category marker.
func extractLabel(raw string) string {
	label := strings.TrimSpace(raw)
	if i := strings.LastIndex(label, categoryMarker); i >= 0 {
		label = strings.TrimSpace(label[i+len(categoryMarker):])
	}
	return label
}

func orNotProvided(s string) string {
	if s == "" {
		return notProvided
	}
	return s
}
