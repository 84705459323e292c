// Package journal records terminal routing decisions to PostgreSQL for
// offline analysis. It is observability only: writes are asynchronous
// and a missing or failing database never affects routing.
package journal

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is one terminal routing decision.
type Entry struct {
	RequestID  string
	Task       string
	Category   string
	Complexity int
	MultiAgent bool
	Model      string
	Provider   string
	Outcome    string
	Attempts   int
	DurationMs int64
	CreatedAt  time.Time
}

// Journal writes entries to the routing_decisions table.
type Journal struct {
	db *pgxpool.Pool
}

// New creates a journal. A nil pool disables journaling.
func New(db *pgxpool.Pool) *Journal {
	return &Journal{db: db}
}

// Record persists the entry asynchronously (fire-and-forget).
func (j *Journal) Record(e Entry) {
	if j == nil || j.db == nil {
		return
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, err := j.db.Exec(ctx, `
			INSERT INTO routing_decisions
				(request_id, task, category, complexity, multi_agent,
				 model, provider, outcome, attempts, duration_ms, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, e.RequestID, e.Task, e.Category, e.Complexity, e.MultiAgent,
			e.Model, e.Provider, e.Outcome, e.Attempts, e.DurationMs, e.CreatedAt)
		if err != nil {
			slog.Debug("journal write failed", "request_id", e.RequestID, "error", err)
		}
	}()
}
