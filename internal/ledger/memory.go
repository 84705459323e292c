package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/registry"
)

// Memory is the in-process Store. Counters are created lazily on first
// use and live for the process lifetime (reset, never deleted). All
// read-modify-write sequences run under a single mutex; the critical
// sections are short and never span provider I/O.
type Memory struct {
	mu       sync.Mutex
	counters map[string]*Counters
	clock    func() time.Time
}

// NewMemory creates an in-memory usage ledger.
func NewMemory() *Memory {
	return NewMemoryWithClock(time.Now)
}

// NewMemoryWithClock creates a ledger with an injectable clock so tests
// can advance simulated time across window boundaries.
func NewMemoryWithClock(clock func() time.Time) *Memory {
	return &Memory{
		counters: make(map[string]*Counters),
		clock:    clock,
	}
}

func (l *Memory) CanUse(_ context.Context, m registry.Model, tokens int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	c := l.effective(m.ID, now)
	return fits(c, m.Limits, tokens)
}

func (l *Memory) Register(_ context.Context, m registry.Model, tokens int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.register(m.ID, tokens)
}

func (l *Memory) Reserve(_ context.Context, m registry.Model, tokens int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if !fits(l.effective(m.ID, now), m.Limits, tokens) {
		return false
	}
	l.register(m.ID, tokens)
	return true
}

func (l *Memory) Release(_ context.Context, m registry.Model, tokens int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.counters[m.ID]
	if !ok {
		return
	}
	now := l.clock()
	l.refresh(c, now)
	c.RPMCount = max0(c.RPMCount - 1)
	c.TPMCount = max0(c.TPMCount - tokens)
	c.RPDCount = max0(c.RPDCount - 1)
}

func (l *Memory) Usage(_ context.Context, modelID string) Counters {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.effective(modelID, l.clock())
}

// register resets expired windows then increments. Must hold mu.
func (l *Memory) register(modelID string, tokens int) {
	now := l.clock()
	c, ok := l.counters[modelID]
	if !ok {
		c = &Counters{
			RPMWindowStart: now,
			TPMWindowStart: now,
			RPDWindowStart: dayStart(now),
		}
		l.counters[modelID] = c
	}
	l.refresh(c, now)
	c.RPMCount++
	c.TPMCount += tokens
	c.RPDCount++
}

// refresh resets any window that has expired as of now. Must hold mu.
func (l *Memory) refresh(c *Counters, now time.Time) {
	if now.Sub(c.RPMWindowStart) >= minuteWindow {
		c.RPMCount = 0
		c.RPMWindowStart = now
	}
	if now.Sub(c.TPMWindowStart) >= minuteWindow {
		c.TPMCount = 0
		c.TPMWindowStart = now
	}
	if day := dayStart(now); day.After(c.RPDWindowStart) {
		c.RPDCount = 0
		c.RPDWindowStart = day
	}
}

// effective returns the staleness-adjusted view of a model's counters
// without persisting any reset. Must hold mu.
func (l *Memory) effective(modelID string, now time.Time) Counters {
	c, ok := l.counters[modelID]
	if !ok {
		return Counters{
			RPMWindowStart: now,
			TPMWindowStart: now,
			RPDWindowStart: dayStart(now),
		}
	}
	view := *c
	if now.Sub(view.RPMWindowStart) >= minuteWindow {
		view.RPMCount = 0
		view.RPMWindowStart = now
	}
	if now.Sub(view.TPMWindowStart) >= minuteWindow {
		view.TPMCount = 0
		view.TPMWindowStart = now
	}
	if day := dayStart(now); day.After(view.RPDWindowStart) {
		view.RPDCount = 0
		view.RPDWindowStart = day
	}
	return view
}

func fits(c Counters, limits registry.Limits, tokens int) bool {
	return c.RPMCount+1 <= limits.RPM &&
		c.TPMCount+tokens <= limits.TPM &&
		c.RPDCount+1 <= limits.RPD
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
