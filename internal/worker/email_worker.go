package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"medident/internal/infra"

	"github.com/rs/zerolog/log"
)

const maxSendAttempts = 3

// Mailer sends one email. *infra.Mailer satisfies it.
type Mailer interface {
	Send(to []string, subject, body string, attachments ...infra.Attachment) error
}

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	To          []string           `json:"to"`
	Subject     string             `json:"subject"`
	Body        string             `json:"body"`
	Attachments []infra.Attachment `json:"attachments,omitempty"`
}

// EmailWorker delivers email jobs through the SMTP circuit breaker.
type EmailWorker struct {
	mailer Mailer
	cb     *infra.CircuitBreaker
	// backoff is the wait before retry n (1-based).
	backoff func(attempt int) time.Duration
}

func NewEmailWorker(mailer Mailer, cb *infra.CircuitBreaker) *EmailWorker {
	return &EmailWorker{mailer: mailer, cb: cb, backoff: exponentialBackoff}
}

func (w *EmailWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("email_worker: invalid payload: %w", err)
	}
	if len(payload.To) == 0 {
		log.Warn().Str("subject", payload.Subject).Msg("email_worker: no recipients, skipping")
		return nil
	}
	return w.send(ctx, payload)
}

func (w *EmailWorker) send(ctx context.Context, p EmailJobPayload) error {
	err := withRetry(ctx, maxSendAttempts, w.backoff, func(attempt int) error {
		err := w.cb.Execute(func() error {
			return w.mailer.Send(p.To, p.Subject, p.Body, p.Attachments...)
		})
		if err != nil && !errors.Is(err, infra.ErrCircuitOpen) {
			log.Warn().Err(err).Int("attempt", attempt+1).Strs("to", p.To).Msg("email_worker: send failed, retrying")
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("email_worker: send %q: %w", p.Subject, err)
	}
	log.Info().Strs("to", p.To).Str("subject", p.Subject).Msg("email_worker: email sent")
	return nil
}

// withRetry calls fn up to maxAttempts times, waiting backoff(i) before retry i.
// An open circuit ends the loop early.
func withRetry(ctx context.Context, maxAttempts int, backoff func(int) time.Duration, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff(i)):
			}
		}
		lastErr = fn(i)
		if lastErr == nil || errors.Is(lastErr, infra.ErrCircuitOpen) {
			return lastErr
		}
	}
	return lastErr
}

// 1s, 2s, 4s ...
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt-1)) * time.Second
}
