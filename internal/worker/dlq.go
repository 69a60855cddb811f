package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	deadLetterPrefix = "dlq:"
	// deadLetterCap keeps the newest entries per queue only.
	deadLetterCap = 1000
)

// DeadLetter is a job that failed for good, kept for manual inspection.
type DeadLetter struct {
	Queue    string          `json:"queue"`
	JobType  string          `json:"job_type"`
	Payload  json.RawMessage `json:"payload"`
	Reason   string          `json:"reason"`
	FailedAt time.Time       `json:"failed_at"`
}

// DeadLetters stores failed jobs in one capped Redis list per source queue,
// dlq:{queue}.
type DeadLetters struct {
	rdb *redis.Client
	now func() time.Time
}

func NewDeadLetters(rdb *redis.Client) *DeadLetters {
	return &DeadLetters{rdb: rdb, now: time.Now}
}

// Push records a failed job. Storage errors are logged, not returned: the job
// has already failed and there is nobody left to hand the error to.
func (d *DeadLetters) Push(ctx context.Context, queue, jobType string, payload json.RawMessage, reason string) {
	data, err := json.Marshal(DeadLetter{
		Queue:    queue,
		JobType:  jobType,
		Payload:  payload,
		Reason:   reason,
		FailedAt: d.now().UTC(),
	})
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: marshal failed")
		return
	}

	key := deadLetterPrefix + queue
	pipe := d.rdb.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, deadLetterCap-1)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Error().Err(err).Str("dlq_key", key).Msg("dlq: push failed")
		return
	}
	log.Warn().
		Str("queue", queue).
		Str("job_type", jobType).
		Str("reason", reason).
		Msg("dlq: job dead-lettered")
}

// Counts returns the dead-letter backlog of every job queue.
func (d *DeadLetters) Counts(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64, 2)
	for _, q := range []string{QueueEmail, QueueAlerts} {
		n, err := d.rdb.LLen(ctx, deadLetterPrefix+q).Result()
		if err != nil {
			return nil, err
		}
		out[q] = n
	}
	return out, nil
}
