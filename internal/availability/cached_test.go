package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"rockstar-pass-monolith/internal/core"
)

type countingSource struct {
	calls int
	err   error
	busy  []core.Interval
}

func (s *countingSource) BusyIntervals(context.Context, string) ([]core.Interval, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.busy, nil
}

func TestCachedServesWithinTTL(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	src := &countingSource{busy: []core.Interval{{Start: now, End: now.Add(time.Hour)}}}
	c := NewCached(src, 5*time.Minute)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		busy, err := c.BusyIntervals(ctx, "cal")
		if err != nil || len(busy) != 1 {
			t.Fatalf("BusyIntervals: %v %v", busy, err)
		}
	}
	if src.calls != 1 {
		t.Fatalf("expected one fetch, got %d", src.calls)
	}

	now = now.Add(6 * time.Minute)
	if _, err := c.BusyIntervals(ctx, "cal"); err != nil {
		t.Fatalf("BusyIntervals: %v", err)
	}
	if src.calls != 2 {
		t.Fatalf("expired entry should be refetched, got %d calls", src.calls)
	}
}

func TestCachedRefreshKeepsOldResultOnFailure(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	src := &countingSource{busy: []core.Interval{{Start: now, End: now.Add(time.Hour)}}}
	c := NewCached(src, 5*time.Minute)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	c.Refresh(ctx, []string{"cal", ""})
	if src.calls != 1 {
		t.Fatalf("empty references are skipped, got %d calls", src.calls)
	}

	src.err = errors.New("feed down")
	c.Refresh(ctx, []string{"cal"})
	busy, err := c.BusyIntervals(ctx, "cal")
	if err != nil || len(busy) != 1 {
		t.Fatalf("previous result should still be served: %v %v", busy, err)
	}

	now = now.Add(time.Hour)
	if _, err := c.BusyIntervals(ctx, "cal"); err == nil {
		t.Fatal("expired entry with a failing source should error")
	}
}
