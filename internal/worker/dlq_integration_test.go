//go:build integration

package worker

import (
	"context"
	"encoding/json"
	"testing"

	"medident/internal/infra"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestIntegration_DeadLettersAreCappedAndCounted(t *testing.T) {
	ctx := context.Background()
	rdC, err := tcRedis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })
	url, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(url)
	require.NoError(t, err)

	d := NewDeadLetters(rdb)
	for i := 0; i < deadLetterCap+5; i++ {
		d.Push(ctx, QueueEmail, JobTypeEmail, json.RawMessage(`{"to":["x@medident.com"]}`), "smtp down")
	}
	d.Push(ctx, QueueAlerts, JobTypeLowStockAlert, json.RawMessage(`{}`), "no processor")

	counts, err := d.Counts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, deadLetterCap, counts[QueueEmail])
	assert.EqualValues(t, 1, counts[QueueAlerts])

	raw, err := rdb.LIndex(ctx, deadLetterPrefix+QueueAlerts, 0).Result()
	require.NoError(t, err)
	var entry DeadLetter
	require.NoError(t, json.Unmarshal([]byte(raw), &entry))
	assert.Equal(t, JobTypeLowStockAlert, entry.JobType)
	assert.Equal(t, "no processor", entry.Reason)
	assert.False(t, entry.FailedAt.IsZero())
}
