package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// memStore keeps documents in memory
type memStore struct {
	mu          sync.Mutex
	cfg         *AppConfig
	users       []*User
	bookings    []*Booking
	configSaves int
	userSaves   int
	saveErr     error
}

func (m *memStore) LoadConfig(_ context.Context, defaults AppConfig) (AppConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cfg != nil {
		return m.cfg.Clone(), nil
	}
	return defaults, nil
}

func (m *memStore) LoadUsers(_ context.Context, seed []*User) ([]*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	src := m.users
	if src == nil {
		src = seed
	}
	out := make([]*User, len(src))
	for i, u := range src {
		out[i] = u.Clone()
	}
	return out, nil
}

func (m *memStore) LoadBookings(context.Context) ([]*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bookings, nil
}

func (m *memStore) SaveConfig(cfg AppConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = &cfg
	m.configSaves++
}

func (m *memStore) SaveUsers(_ context.Context, users []*User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userSaves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.users = users
	return nil
}

func (m *memStore) SaveBookings(_ context.Context, bookings []*Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.bookings = bookings
	return nil
}

func (m *memStore) Flush(context.Context) error { return nil }

// fakeOracle answers every prompt the same way
type fakeOracle struct {
	mu      sync.Mutex
	answer  string
	err     error
	block   chan struct{}
	prompts []string
}

func (f *fakeOracle) Ask(ctx context.Context, prompt string, _ ...Media) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.answer, f.err
}

func (f *fakeOracle) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type fakeAvailability struct {
	busy []Interval
	err  error
}

func (f fakeAvailability) BusyIntervals(context.Context, string) ([]Interval, error) {
	return f.busy, f.err
}

type recordingNotifier struct {
	mu        sync.Mutex
	requests  []Booking
	confirmed []Booking
	venues    []string
}

func (r *recordingNotifier) NotifyChallengeBookingRequest(c Challenge, _ User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.venues = append(r.venues, c.VenueName)
}

func (r *recordingNotifier) NotifyBookingRequest(b Booking, _ Vehicle, _ User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, b)
}

func (r *recordingNotifier) NotifyBookingConfirmed(b Booking, _ Vehicle, _ User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirmed = append(r.confirmed, b)
}

func newTestService(t *testing.T, deps Deps) (*Service, *memStore) {
	t.Helper()

	st, ok := deps.Store.(*memStore)
	if !ok || st == nil {
		st = &memStore{}
		deps.Store = st
	}
	if deps.Seed == nil {
		deps.Seed = SeedUsers("admin", "secret", true)
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return testNow }
	}

	s, err := NewService(context.Background(), deps)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return s, st
}

func mustGuest(t *testing.T, s *Service, identity string) *User {
	t.Helper()
	u, err := s.ResolveOrCreateGuest(context.Background(), identity)
	if err != nil {
		t.Fatalf("ResolveOrCreateGuest(%q): %v", identity, err)
	}
	return u
}

func TestNewServiceRequiresStore(t *testing.T) {
	if _, err := NewService(context.Background(), Deps{}); err == nil {
		t.Fatal("expected error without a store")
	}
}

func TestNewServiceSeedsAdminIntoLegacyUsers(t *testing.T) {
	st := &memStore{users: []*User{
		{ID: 4, Identity: "old@guest.com", Role: RoleGuest, CompletedChallengeIDs: IDSet{}},
	}}
	s, _ := newTestService(t, Deps{Store: st, Seed: SeedUsers("boss", "pw", false)})

	admin, err := s.AuthenticateAdmin("boss", "pw")
	if err != nil {
		t.Fatalf("seeded admin cannot sign in: %v", err)
	}
	if admin.ID != 5 {
		t.Fatalf("expected admin id 5, got %d", admin.ID)
	}
	if len(s.Users()) != 2 {
		t.Fatalf("expected 2 users, got %d", len(s.Users()))
	}
}

func TestSaveFailureIsReportedButStateKept(t *testing.T) {
	s, st := newTestService(t, Deps{})
	st.saveErr = errors.New("disk full")

	guest := mustGuest(t, s, "fan@example.com")
	if err := s.SaveStatus(); err == nil {
		t.Fatal("expected save status to report the failure")
	}
	if _, err := s.User(guest.ID); err != nil {
		t.Fatalf("guest should stay in memory: %v", err)
	}

	st.saveErr = nil
	if _, err := s.GrantReward(context.Background(), guest.ID, 1, 20); err != nil {
		t.Fatalf("GrantReward: %v", err)
	}
	if err := s.SaveStatus(); err != nil {
		t.Fatalf("expected save status to clear, got %v", err)
	}
}
