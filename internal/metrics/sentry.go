package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
)

const (
	// HTTP status code threshold for considering a request successful
	successStatusCodeThreshold = http.StatusBadRequest
)

// SentryMetrics handles custom metrics for Sentry
type SentryMetrics struct {
	enabled bool
}

// NewSentryMetrics creates a new Sentry metrics client
func NewSentryMetrics() *SentryMetrics {
	return &SentryMetrics{
		enabled: true, // Always enabled if Sentry is configured
	}
}

// RecordAPIRequest records API request metrics
func (m *SentryMetrics) RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration) {
	if !m.enabled {
		return
	}

	span := sentry.StartSpan(ctx, "api.request")
	defer span.Finish()

	span.SetTag("endpoint", endpoint)
	span.SetTag("status_code", fmt.Sprintf("%d", statusCode))
	span.SetTag("success", fmt.Sprintf("%t", statusCode < successStatusCodeThreshold))

	span.SetData("duration_ms", duration.Milliseconds())
	span.SetData("endpoint", endpoint)
	span.SetData("status_code", statusCode)

	if statusCode < successStatusCodeThreshold {
		span.Status = sentry.SpanStatusOK
	} else {
		span.Status = sentry.SpanStatusInternalError
	}

	span.Description = fmt.Sprintf("API Request: %s", endpoint)
}

// GenerationStats summarizes one arrangement for metrics
type GenerationStats struct {
	Genre         string
	Bars          int
	Tracks        int
	Notes         int
	Substitutions int
	Skipped       int
	Duration      time.Duration
	Success       bool
}

// RecordGeneration tags the request transaction with the arrangement stats
// and records a child span for it
func (m *SentryMetrics) RecordGeneration(ctx context.Context, stats GenerationStats) {
	if !m.enabled {
		return
	}

	if transaction := sentry.TransactionFromContext(ctx); transaction != nil {
		transaction.SetTag("arrangement.genre", stats.Genre)
		transaction.SetTag("arrangement.substituted", fmt.Sprintf("%t", stats.Substitutions > 0))
		transaction.SetData("arrangement.notes", stats.Notes)
	}

	span := sentry.StartSpan(ctx, "arrangement.generation")
	defer span.Finish()

	span.SetTag("genre", stats.Genre)
	span.SetTag("success", fmt.Sprintf("%t", stats.Success))

	span.SetData("duration_ms", stats.Duration.Milliseconds())
	span.SetData("bars", stats.Bars)
	span.SetData("tracks", stats.Tracks)
	span.SetData("notes", stats.Notes)
	span.SetData("substitutions", stats.Substitutions)
	span.SetData("skipped_symbols", stats.Skipped)

	if stats.Success {
		span.Status = sentry.SpanStatusOK
	} else {
		span.Status = sentry.SpanStatusInternalError
	}

	span.Description = fmt.Sprintf("Arrangement: %s", stats.Genre)
}
