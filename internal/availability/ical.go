package availability

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	log "github.com/sirupsen/logrus"

	"rockstar-pass-monolith/internal/core"
)

// ICalFeed reads busy intervals from a published iCalendar feed
type ICalFeed struct {
	Client *http.Client
}

// NewICalFeed creates a feed reader with a bounded client
func NewICalFeed() *ICalFeed {
	return &ICalFeed{Client: &http.Client{Timeout: 15 * time.Second}}
}

// BusyIntervals downloads the feed at url and returns its events as intervals.
// Cancelled events and events without a usable time range are skipped.
func (f *ICalFeed) BusyIntervals(ctx context.Context, url string) ([]core.Interval, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch calendar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("calendar feed returned %d", resp.StatusCode)
	}

	cal, err := ics.ParseCalendar(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse calendar: %w", err)
	}

	return intervalsFromCalendar(cal), nil
}

func intervalsFromCalendar(cal *ics.Calendar) []core.Interval {
	var out []core.Interval
	for _, event := range cal.Events() {
		if status := event.GetProperty(ics.ComponentPropertyStatus); status != nil && strings.EqualFold(status.Value, "CANCELLED") {
			continue
		}

		start, end, ok := eventRange(event)
		if !ok {
			log.WithField("uid", event.Id()).Debug("skipping calendar event without a time range")
			continue
		}
		out = append(out, core.Interval{Start: start, End: end})
	}
	return out
}

func eventRange(event *ics.VEvent) (time.Time, time.Time, bool) {
	start, err := event.GetStartAt()
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	end, err := event.GetEndAt()
	if err == nil && end.After(start) {
		return start, end, true
	}

	// Date-only events without a usable end block their whole day
	if isAllDay(event) {
		return start, start.AddDate(0, 0, 1), true
	}
	return time.Time{}, time.Time{}, false
}

func isAllDay(event *ics.VEvent) bool {
	prop := event.GetProperty(ics.ComponentPropertyDtStart)
	return prop != nil && len(prop.Value) == len("20060102")
}
