package availability

import (
	"context"
	"time"

	"rockstar-pass-monolith/internal/core"
)

// Demo returns a fixed schedule relative to the current day, for
// deployments without real vehicle calendars
type Demo struct {
	Now func() time.Time
}

// BusyIntervals returns today 14:00-16:30 and tomorrow 10:00-11:00 in local time
func (d Demo) BusyIntervals(ctx context.Context, _ string) ([]core.Interval, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := time.Now()
	if d.Now != nil {
		now = d.Now()
	}

	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	tomorrow := day.AddDate(0, 0, 1)

	return []core.Interval{
		{Start: day.Add(14 * time.Hour), End: day.Add(16*time.Hour + 30*time.Minute)},
		{Start: tomorrow.Add(10 * time.Hour), End: tomorrow.Add(11 * time.Hour)},
	}, nil
}
