package availability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	log "github.com/sirupsen/logrus"

	"rockstar-pass-monolith/internal/core"
)

// Cached keeps recent feed results for a while. A failed refresh keeps
// serving the previous result until it expires.
type Cached struct {
	source core.AvailabilitySource
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	busy      []core.Interval
	fetchedAt time.Time
}

// NewCached wraps source with a cache of the given lifetime
func NewCached(source core.AvailabilitySource, ttl time.Duration) *Cached {
	return &Cached{
		source:  source,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// BusyIntervals returns a fresh cached result or asks the source
func (c *Cached) BusyIntervals(ctx context.Context, ref string) ([]core.Interval, error) {
	c.mu.Lock()
	entry, ok := c.entries[ref]
	c.mu.Unlock()

	if ok && c.now().Sub(entry.fetchedAt) < c.ttl {
		return append([]core.Interval(nil), entry.busy...), nil
	}
	return c.fetch(ctx, ref)
}

func (c *Cached) fetch(ctx context.Context, ref string) ([]core.Interval, error) {
	busy, err := c.source.BusyIntervals(ctx, ref)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[ref] = cacheEntry{busy: busy, fetchedAt: c.now()}
	c.mu.Unlock()

	return append([]core.Interval(nil), busy...), nil
}

// Refresh re-reads every given reference, logging failures
func (c *Cached) Refresh(ctx context.Context, refs []string) {
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if _, err := c.fetch(ctx, ref); err != nil {
			log.WithError(err).WithField("calendar", ref).Warn("failed to refresh availability")
		}
	}
}

// StartRefresher refreshes the references returned by refs on a fixed
// interval. The caller shuts the scheduler down.
func (c *Cached) StartRefresher(every time.Duration, refs func() []string) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), every)
			defer cancel()
			c.Refresh(ctx, refs())
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("failed to schedule refresh: %w", err)
	}

	sched.Start()
	log.WithField("every", every).Info("availability refresher started")
	return sched, nil
}
