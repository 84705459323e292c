package blacklist

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Entry is one temporary ban.
type Entry struct {
	ModelID     string
	BannedUntil time.Time
	Reason      string
}

// Manager holds temporary, self-expiring bans on models that errored.
// Expiry is lazy: an entry past its deadline reads as absent; Sweep and
// the optional background sweeper exist only for memory hygiene.
type Manager struct {
	mu      sync.Mutex
	entries map[string]Entry
	clock   func() time.Time
}

func New() *Manager {
	return NewWithClock(time.Now)
}

// NewWithClock creates a manager with an injectable clock for TTL tests.
func NewWithClock(clock func() time.Time) *Manager {
	return &Manager{
		entries: make(map[string]Entry),
		clock:   clock,
	}
}

// Blacklist inserts or overwrites the ban for a model. A later call
// with a shorter duration still overwrites the earlier deadline.
func (m *Manager) Blacklist(modelID string, d time.Duration, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	until := m.clock().Add(d)
	m.entries[modelID] = Entry{ModelID: modelID, BannedUntil: until, Reason: reason}
	slog.Warn("model blacklisted",
		"model", modelID,
		"reason", reason,
		"banned_until", until.Format(time.RFC3339),
	)
}

// IsBlacklisted reports whether the model is currently banned. Expired
// entries are removed on the way out.
func (m *Manager) IsBlacklisted(modelID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[modelID]
	if !ok {
		return false
	}
	if !m.clock().Before(e.BannedUntil) {
		delete(m.entries, modelID)
		return false
	}
	return true
}

// Status returns the remaining ban duration per currently-banned model,
// for diagnostics.
func (m *Manager) Status() map[string]time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	out := make(map[string]time.Duration)
	for id, e := range m.entries {
		if remaining := e.BannedUntil.Sub(now); remaining > 0 {
			out[id] = remaining
		}
	}
	return out
}

// Sweep removes expired entries and returns how many were dropped.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	dropped := 0
	for id, e := range m.entries {
		if !now.Before(e.BannedUntil) {
			delete(m.entries, id)
			dropped++
		}
	}
	return dropped
}

// StartSweeper runs Sweep on the given interval until ctx is cancelled.
func (m *Manager) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := m.Sweep(); n > 0 {
					slog.Debug("blacklist sweep", "expired", n)
				}
			}
		}
	}()
}
