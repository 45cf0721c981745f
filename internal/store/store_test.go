package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"rockstar-pass-monolith/internal/core"
)

func newTestStore(t *testing.T) (*Store, *SQLiteKV) {
	t.Helper()
	kv, err := NewSQLiteKV(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteKV: %v", err)
	}
	t.Cleanup(func() { _ = kv.Close() })
	return New(kv, Options{SaveWindow: -1}), kv
}

const (
	legacyV1Config = `{"challenges":[{"id":1,"venueName":"Old Bar","points":5,"type":"GPS"}]}`
	legacyV0Config = `{"challenges":[{"id":1,"venueName":"Older Bar","points":5,"type":"GPS"},{"id":2,"venueName":"Oldest Bar","points":5,"type":"GPS"}]}`
)

func TestLoadConfigDefaultsWhenEmpty(t *testing.T) {
	s, _ := newTestStore(t)

	cfg, err := s.LoadConfig(context.Background(), core.DefaultConfig())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.Challenges) != len(core.DefaultConfig().Challenges) {
		t.Fatalf("expected default challenges, got %d", len(cfg.Challenges))
	}
}

func TestLoadConfigPrefersNewestLegacyKey(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()

	if err := kv.Set(ctx, legacyConfigKey, []byte(legacyV0Config)); err != nil {
		t.Fatal(err)
	}
	if err := kv.Set(ctx, legacyConfigKeyV1, []byte(legacyV1Config)); err != nil {
		t.Fatal(err)
	}

	cfg, err := s.LoadConfig(ctx, core.DefaultConfig())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.Challenges) != 1 || cfg.Challenges[0].VenueName != "Old Bar" {
		t.Fatalf("expected the v1 document, got %+v", cfg.Challenges)
	}
	if _, err := kv.Get(ctx, ConfigKey); err != nil {
		t.Fatalf("migrated config should be written forward: %v", err)
	}

	// Once migrated, the current key wins
	if err := kv.Set(ctx, legacyConfigKeyV1, []byte(legacyV0Config)); err != nil {
		t.Fatal(err)
	}
	again, err := s.LoadConfig(ctx, core.DefaultConfig())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if again.Challenges[0].VenueName != "Old Bar" {
		t.Fatal("current key should take precedence over legacy keys")
	}
}

func TestLegacyConfigFieldPolicy(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()

	doc := `{
		"challenges":[{"id":1,"venueName":"Old Bar","points":5,"type":"GPS"}],
		"perks":[{"id":1,"name":"Old Perk","requiredPoints":1}],
		"vehicles":[{"id":9,"name":"Horse Cart"}],
		"theme":{"headerText":"Old Header"}
	}`
	if err := kv.Set(ctx, legacyConfigKey, []byte(doc)); err != nil {
		t.Fatal(err)
	}

	defaults := core.DefaultConfig()
	cfg, err := s.LoadConfig(ctx, defaults)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.Perks) != 1 || cfg.Perks[0].Name != "Old Perk" {
		t.Fatalf("perks should carry over, got %+v", cfg.Perks)
	}
	if len(cfg.Vehicles) != len(defaults.Vehicles) || cfg.Vehicles[0].Name != defaults.Vehicles[0].Name {
		t.Fatalf("vehicles should come from defaults, got %+v", cfg.Vehicles)
	}
	if cfg.Theme != defaults.Theme {
		t.Fatalf("theme should come from defaults, got %+v", cfg.Theme)
	}
	if len(cfg.Deals) != len(defaults.Deals) {
		t.Fatal("absent sections should be defaulted")
	}
}

func TestLoadConfigUnreadablePrimary(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()

	if err := kv.Set(ctx, ConfigKey, []byte("{broken")); err != nil {
		t.Fatal(err)
	}
	if err := kv.Set(ctx, legacyConfigKeyV1, []byte(legacyV1Config)); err != nil {
		t.Fatal(err)
	}

	cfg, err := s.LoadConfig(ctx, core.DefaultConfig())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.Challenges) != len(core.DefaultConfig().Challenges) {
		t.Fatal("an unreadable current document yields defaults, not legacy data")
	}
}

func TestUsersAndBookingsRoundTrip(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()

	seed := []*core.User{{ID: 1, Identity: "admin", Role: core.RoleAdmin}}
	users, err := s.LoadUsers(ctx, seed)
	if err != nil || len(users) != 1 {
		t.Fatalf("expected seed users, got %v %v", users, err)
	}

	if err := kv.Set(ctx, legacyUsersKey, []byte(`[{"id":7,"email":"old@example.com","role":"GUEST","points":12}]`)); err != nil {
		t.Fatal(err)
	}
	// The seed was never saved, so the legacy list is picked up
	users, err = s.LoadUsers(ctx, seed)
	if err != nil {
		t.Fatalf("LoadUsers: %v", err)
	}
	if len(users) != 1 || users[0].Identity != "old@example.com" || users[0].Points != 12 {
		t.Fatalf("unexpected migrated users %+v", users[0])
	}

	start := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)
	booking := &core.Booking{ID: "b1", VehicleID: 1, UserID: 7, BookingType: core.BookingQuickRide, StartTime: start, EndTime: start.Add(time.Hour), Status: core.StatusConfirmed}
	if err := s.SaveBookings(ctx, []*core.Booking{booking}); err != nil {
		t.Fatalf("SaveBookings: %v", err)
	}
	bookings, err := s.LoadBookings(ctx)
	if err != nil {
		t.Fatalf("LoadBookings: %v", err)
	}
	if len(bookings) != 1 || !bookings[0].StartTime.Equal(start) || bookings[0].Status != core.StatusConfirmed {
		t.Fatalf("unexpected bookings %+v", bookings)
	}
}

func TestSaveConfigReportsResult(t *testing.T) {
	kv, err := NewSQLiteKV(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteKV: %v", err)
	}
	t.Cleanup(func() { _ = kv.Close() })

	var reports []error
	s := New(kv, Options{SaveWindow: -1, OnSaveResult: func(key string, err error) {
		if key != ConfigKey {
			t.Errorf("unexpected key %s", key)
		}
		reports = append(reports, err)
	}})

	cfg := core.DefaultConfig()
	cfg.Theme.HeaderText = "Saved"
	s.SaveConfig(cfg)

	if len(reports) != 1 || reports[0] != nil {
		t.Fatalf("expected one successful report, got %v", reports)
	}
	loaded, err := s.LoadConfig(context.Background(), core.DefaultConfig())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Theme.HeaderText != "Saved" {
		t.Fatalf("expected saved header, got %q", loaded.Theme.HeaderText)
	}
}

func TestReset(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveUsers(ctx, []*core.User{{ID: 1, Identity: "x"}}); err != nil {
		t.Fatal(err)
	}
	if err := kv.Set(ctx, legacyUsersKey, []byte(`[]`)); err != nil {
		t.Fatal(err)
	}
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	for _, key := range []string{UsersKey, legacyUsersKey} {
		if _, err := kv.Get(ctx, key); !errors.Is(err, ErrNotFound) {
			t.Fatalf("%s should be gone, got %v", key, err)
		}
	}
}
