package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"medident/internal/telemetry"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	QueueEmail  = "jobs:email"
	QueueAlerts = "jobs:alerts"
)

const (
	JobTypeEmail         = "email"
	JobTypeLowStockAlert = "low_stock_alert"
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Processor handles one job type. A returned error moves the job to the DLQ.
type Processor interface {
	Process(ctx context.Context, payload json.RawMessage) error
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueEmail pushes an email job to Redis.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload EmailJobPayload) error {
	return d.enqueue(ctx, QueueEmail, JobTypeEmail, payload)
}

// EnqueueLowStockAlert pushes a low-stock notification job to Redis.
func (d *Dispatcher) EnqueueLowStockAlert(ctx context.Context, payload LowStockAlertPayload) error {
	return d.enqueue(ctx, QueueAlerts, JobTypeLowStockAlert, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload any) error {
	encoded, err := encodeJob(jobType, payload)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

func encodeJob(jobType string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Job{Type: jobType, Payload: data})
}

// Pool consumes the job queues with a fixed number of goroutines.
type Pool struct {
	rdb      *redis.Client
	dead     *DeadLetters
	size     int
	handlers map[string]Processor
}

func NewPool(rdb *redis.Client, size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{rdb: rdb, dead: NewDeadLetters(rdb), size: size, handlers: make(map[string]Processor)}
}

// Handle registers the processor for a job type.
func (p *Pool) Handle(jobType string, proc Processor) { p.handlers[jobType] = proc }

// Run blocks until ctx is cancelled. Each goroutine blocks on BRPOP, so idle
// workers cost no CPU.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.size; i++ {
		id := i
		g.Go(func() error {
			p.runWorker(ctx, id)
			return nil
		})
	}
	log.Info().Msgf("worker pool started with %d workers", p.size)
	return g.Wait()
}

func (p *Pool) runWorker(ctx context.Context, id int) {
	queues := []string{QueueAlerts, QueueEmail}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop: waits up to 5s then loops to check ctx
			result, err := p.rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					log.Warn().Err(err).Int("worker", id).Msg("worker: brpop failed")
					time.Sleep(time.Second)
				}
				continue
			}
			if len(result) < 2 {
				continue
			}
			p.processJob(ctx, result[0], result[1])
		}
	}
}

func (p *Pool) processJob(ctx context.Context, queue, raw string) {
	jobType, payload, err := p.dispatch(ctx, raw)
	if err == nil {
		telemetry.JobsProcessedTotal.WithLabelValues(jobType, "ok").Inc()
		return
	}
	telemetry.JobsProcessedTotal.WithLabelValues(jobType, "dlq").Inc()
	log.Error().Err(err).Str("queue", queue).Str("type", jobType).Msg("worker: job failed")
	p.dead.Push(ctx, queue, jobType, payload, err.Error())
}

// dispatch decodes the envelope and runs the registered processor.
func (p *Pool) dispatch(ctx context.Context, raw string) (string, json.RawMessage, error) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return "unknown", json.RawMessage(raw), fmt.Errorf("unmarshal job: %w", err)
	}
	proc, ok := p.handlers[job.Type]
	if !ok {
		return job.Type, job.Payload, fmt.Errorf("no processor for job type %q", job.Type)
	}
	return job.Type, job.Payload, proc.Process(ctx, job.Payload)
}
