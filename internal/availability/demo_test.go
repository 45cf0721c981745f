package availability

import (
	"context"
	"testing"
	"time"
)

func TestDemoSchedule(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	busy, err := Demo{Now: func() time.Time { return now }}.BusyIntervals(context.Background(), "")
	if err != nil {
		t.Fatalf("BusyIntervals: %v", err)
	}
	if len(busy) != 2 {
		t.Fatalf("expected 2 intervals, got %d", len(busy))
	}
	if want := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC); !busy[0].Start.Equal(want) {
		t.Fatalf("first interval starts %v, want %v", busy[0].Start, want)
	}
	if want := time.Date(2025, 6, 2, 11, 0, 0, 0, time.UTC); !busy[1].End.Equal(want) {
		t.Fatalf("second interval ends %v, want %v", busy[1].End, want)
	}
}

func TestDemoHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (Demo{}).BusyIntervals(ctx, ""); err == nil {
		t.Fatal("expected context error")
	}
}
