package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/segyhp/lending-engine/pkg/response"
)

var errSchemaMissing = errors.New("loan tables missing, run migrations")

const schemaQuery = `SELECT to_regclass('public.loans') IS NOT NULL AND to_regclass('public.loan_events') IS NOT NULL`

type HealthHandler struct {
	db      *sqlx.DB
	redis   *redis.Client
	timeout time.Duration
	started time.Time
}

func NewHealthHandler(db *sqlx.DB, redis *redis.Client, timeout time.Duration) *HealthHandler {
	return &HealthHandler{
		db:      db,
		redis:   redis,
		timeout: timeout,
		started: time.Now(),
	}
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks"`
}

func (h *HealthHandler) newStatus() HealthStatus {
	now := time.Now()
	return HealthStatus{
		Status:    "ok",
		Timestamp: now,
		Uptime:    now.Sub(h.started).Truncate(time.Second).String(),
		Checks:    make(map[string]string),
	}
}

// Health reports that the process is serving requests
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.newStatus())
}

// Ready checks PostgreSQL, the migrated loan schema and Redis
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	status := h.newStatus()

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	record := func(name string, err error) {
		if err != nil {
			status.Status = "error"
			status.Checks[name] = "failed: " + err.Error()
			return
		}
		status.Checks[name] = "ok"
	}

	dbErr := h.db.PingContext(ctx)
	record("database", dbErr)
	if dbErr != nil {
		status.Checks["schema"] = "skipped"
	} else {
		record("schema", h.checkSchema(ctx))
	}

	record("redis", h.redis.Ping(ctx).Err())

	if status.Status == "error" {
		response.JSON(w, http.StatusServiceUnavailable, status)
		return
	}

	response.Success(w, status)
}

func (h *HealthHandler) checkSchema(ctx context.Context) error {
	var present bool
	if err := h.db.GetContext(ctx, &present, schemaQuery); err != nil {
		return err
	}
	if !present {
		return errSchemaMissing
	}
	return nil
}
