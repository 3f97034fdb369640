package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger is a dependency that can report its reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker provides liveness and readiness probes
type HealthChecker struct {
	db      Pinger
	logger  *Logger
	timeout time.Duration
}

// NewHealthChecker creates a new health checker. db may be nil, in which
// case readiness reports ready.
func NewHealthChecker(db Pinger, logger *Logger) *HealthChecker {
	if logger == nil {
		logger = NewLogger(InfoLevel, nil)
	}
	return &HealthChecker{
		db:      db,
		logger:  logger,
		timeout: 2 * time.Second,
	}
}

const (
	StatusOK       = "ok"
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
)

// Liveness always reports ok while the process is serving. It never touches
// the database.
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, http.StatusOK, StatusOK)
}

// Readiness pings the database and reports 503 when it is unreachable
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	if err := h.Check(r.Context()); err != nil {
		logger := h.logger
		if _, ok := r.Context().Value(LoggerKey).(*Logger); ok {
			logger = FromContext(r.Context())
		}
		logger.WithError(err).Warn("readiness check failed")
		writeStatus(w, http.StatusServiceUnavailable, StatusNotReady)
		return
	}
	writeStatus(w, http.StatusOK, StatusReady)
}

// Check pings the database within the checker's timeout
func (h *HealthChecker) Check(ctx context.Context) error {
	if h.db == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	return h.db.Ping(ctx)
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}
