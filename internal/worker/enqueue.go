package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tbouquin/artisia/internal/repository"
)

// Job type constants - these must match the JobHandler.Type() values
const (
	JobTypeSendQuoteEmail = "send_quote_email"
	JobTypeWeeklyReport   = "weekly_report"
)

// Kinds of quote notification emails.
const (
	QuoteEmailCreated  = "created"
	QuoteEmailAccepted = "accepted"
)

// Priority constants for job scheduling
const (
	PriorityLow    = 0
	PriorityNormal = 10
	PriorityHigh   = 20
)

// SendQuoteEmailPayload is the payload for quote notification jobs.
type SendQuoteEmailPayload struct {
	QuoteID uuid.UUID `json:"quote_id"`
	UserID  uuid.UUID `json:"user_id"`
	Kind    string    `json:"kind"` // "created" or "accepted"
}

// WeeklyReportPayload is the payload for the weekly activity summary.
type WeeklyReportPayload struct {
	UserID uuid.UUID `json:"user_id"`
}

// EnqueueOption is a functional option for customizing job enqueue parameters.
type EnqueueOption func(*repository.EnqueueJobParams)

// WithPriority sets the job priority.
func WithPriority(priority int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.Priority = priority
	}
}

// WithMaxAttempts sets the maximum number of retry attempts.
func WithMaxAttempts(attempts int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.MaxAttempts = attempts
	}
}

// WithDelay schedules the job to run after a delay.
func WithDelay(delay time.Duration) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.ScheduledAt = time.Now().Add(delay)
	}
}

// EnqueueJob is a generic helper for enqueuing jobs with custom options.
func EnqueueJob(
	ctx context.Context,
	queries *repository.Queries,
	jobType string,
	payload interface{},
	opts ...EnqueueOption,
) (repository.Job, error) {
	// Marshal the payload to JSON
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return repository.Job{}, fmt.Errorf("marshal payload: %w", err)
	}

	// Default parameters
	params := repository.EnqueueJobParams{
		JobType:     jobType,
		Payload:     payloadJSON,
		Priority:    PriorityNormal,
		MaxAttempts: 3,
		ScheduledAt: time.Now(),
	}

	// Apply options
	for _, opt := range opts {
		opt(&params)
	}

	// Enqueue the job
	job, err := queries.EnqueueJob(ctx, params)
	if err != nil {
		return repository.Job{}, fmt.Errorf("enqueue job: %w", err)
	}

	return job, nil
}

// EnqueueSendQuoteEmail enqueues a notification email for a quote event.
// This is called after a quote is created or accepted, depending on the
// user's notification settings.
func EnqueueSendQuoteEmail(
	ctx context.Context,
	queries *repository.Queries,
	quoteID uuid.UUID,
	userID uuid.UUID,
	kind string,
	opts ...EnqueueOption,
) (repository.Job, error) {
	payload := SendQuoteEmailPayload{
		QuoteID: quoteID,
		UserID:  userID,
		Kind:    kind,
	}

	return EnqueueJob(ctx, queries, JobTypeSendQuoteEmail, payload, opts...)
}

// EnqueueWeeklyReport enqueues a weekly activity summary email for a user.
// Scheduled by the server's weekly ticker for users who opted in.
func EnqueueWeeklyReport(
	ctx context.Context,
	queries *repository.Queries,
	userID uuid.UUID,
	opts ...EnqueueOption,
) (repository.Job, error) {
	payload := WeeklyReportPayload{
		UserID: userID,
	}

	return EnqueueJob(ctx, queries, JobTypeWeeklyReport, payload, opts...)
}
