package performance

import (
	"context"
	"sync"
	"time"
)

// ReportCache keeps the last generated report for ttl so frequent API polls
// do not rescan the rounds table.
type ReportCache struct {
	tracker *Tracker
	ttl     time.Duration

	mu          sync.RWMutex
	report      *Report
	generatedAt time.Time
}

func NewReportCache(tracker *Tracker, ttl time.Duration) *ReportCache {
	return &ReportCache{tracker: tracker, ttl: ttl}
}

// Get returns the cached report, regenerating it once it is older than ttl.
func (c *ReportCache) Get(ctx context.Context) (*Report, error) {
	c.mu.RLock()
	if c.report != nil && time.Since(c.generatedAt) <= c.ttl {
		r := c.report
		c.mu.RUnlock()
		return r, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	if c.report != nil && time.Since(c.generatedAt) <= c.ttl {
		return c.report, nil
	}
	r, err := c.tracker.Generate(ctx)
	if err != nil {
		return nil, err
	}
	c.report = r
	c.generatedAt = time.Now()
	return r, nil
}

// Invalidate drops the cached report.
func (c *ReportCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.report = nil
}
