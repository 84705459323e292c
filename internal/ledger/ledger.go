package ledger

import (
	"context"
	"time"

	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/registry"
)

// Window lengths for the per-minute dimensions. The per-day dimension
// follows the UTC calendar day rather than a rolling 24h span.
const minuteWindow = time.Minute

// Counters is a point-in-time snapshot of one model's consumption
// across the three quota windows.
type Counters struct {
	RPMCount       int
	RPMWindowStart time.Time
	TPMCount       int
	TPMWindowStart time.Time
	RPDCount       int
	RPDWindowStart time.Time
}

// Store tracks per-model usage over fixed (not sliding) windows: a
// window's count is authoritative only until window_start + length,
// after which the first touch resets it.
//
// Reserve is the atomic check-and-register primitive: two concurrent
// callers can never both pass the check and jointly overshoot a limit.
// CanUse is the read-only form used during candidate selection; a
// passing CanUse is advisory and must be re-validated by Reserve at
// registration time.
type Store interface {
	// CanUse reports whether one more request of the given token size
	// would keep the model within all three limits. Never mutates state.
	CanUse(ctx context.Context, m registry.Model, tokens int) bool

	// Register records one sent request of the given token size,
	// resetting any expired window first. Unconditional.
	Register(ctx context.Context, m registry.Model, tokens int)

	// Reserve atomically performs CanUse and, when it passes, Register.
	Reserve(ctx context.Context, m registry.Model, tokens int) bool

	// Release undoes one reservation whose request was never sent to the
	// provider. Counters never go below zero.
	Release(ctx context.Context, m registry.Model, tokens int)

	// Usage returns a snapshot for observability. Expired windows read
	// as zero.
	Usage(ctx context.Context, modelID string) Counters
}

// dayStart returns midnight UTC of the day containing t.
func dayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
