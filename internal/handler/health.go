package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// CircuitState reports a breaker state ("closed", "half-open", "open").
type CircuitState interface {
	State() string
}

// DeadLetterCounter reports failed-job backlogs per queue.
type DeadLetterCounter interface {
	Counts(ctx context.Context) (map[string]int64, error)
}

// HealthHandler answers /health. Postgres and Redis decide the status code;
// the mailer circuit and dead-letter backlog are informational.
type HealthHandler struct {
	db      *gorm.DB
	rdb     *redis.Client
	mailer  CircuitState
	letters DeadLetterCounter
}

func NewHealthHandler(db *gorm.DB, rdb *redis.Client, mailer CircuitState, letters DeadLetterCounter) *HealthHandler {
	return &HealthHandler{db: db, rdb: rdb, mailer: mailer, letters: letters}
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	body := gin.H{
		"db":    probe("postgres", h.pingDB(ctx)),
		"redis": probe("redis", h.rdb.Ping(ctx).Err()),
	}
	ok := body["db"] == "connected" && body["redis"] == "connected"
	body["ok"] = ok

	if h.mailer != nil {
		body["mailer"] = h.mailer.State()
	}
	if h.letters != nil && body["redis"] == "connected" {
		if counts, err := h.letters.Counts(ctx); err == nil {
			body["deadLetters"] = counts
		}
	}

	status := http.StatusOK
	if !ok {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, body)
}

func (h *HealthHandler) pingDB(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func probe(name string, err error) string {
	if err != nil {
		log.Warn().Err(err).Str("dependency", name).Msg("health check failed")
		return "error"
	}
	return "connected"
}
