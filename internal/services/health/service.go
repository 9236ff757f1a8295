package health

import (
	"context"
	"database/sql"
	"time"
)

// Service encapsulates health-related checks.
type Service struct {
	DB *sql.DB
}

// NewService constructs a new health service. db may be nil when the
// application runs against in-memory storage.
func NewService(db *sql.DB) *Service {
	return &Service{DB: db}
}

// Status reports process liveness and, when a database is configured,
// whether it is reachable.
func (s *Service) Status(ctx context.Context) map[string]any {
	payload := map[string]any{"ok": true}
	if s.DB == nil {
		payload["database"] = "memory"
		return payload
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.DB.PingContext(pingCtx); err != nil {
		payload["ok"] = false
		payload["database"] = "unreachable"
		return payload
	}
	payload["database"] = "ok"
	return payload
}
