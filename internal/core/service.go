package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
)

// Store interface defines the methods required from the persistence layer
type Store interface {
	// Load operations return the persisted value, a migrated legacy value,
	// or the supplied fallback, in that order of preference.
	LoadConfig(ctx context.Context, defaults AppConfig) (AppConfig, error)
	LoadUsers(ctx context.Context, seed []*User) ([]*User, error)
	LoadBookings(ctx context.Context) ([]*Booking, error)

	// SaveConfig is debounced; the other saves write immediately.
	SaveConfig(cfg AppConfig)
	SaveUsers(ctx context.Context, users []*User) error
	SaveBookings(ctx context.Context, bookings []*Booking) error

	// Flush writes any pending debounced save
	Flush(ctx context.Context) error
}

// Media is an uploaded image or video
type Media struct {
	Data     []byte
	MIMEType string
}

// Oracle judges a prompt plus optional media and answers in free text
type Oracle interface {
	Ask(ctx context.Context, prompt string, media ...Media) (string, error)
}

// ReferenceFetcher downloads a reference image for photo comparison
type ReferenceFetcher interface {
	Fetch(ctx context.Context, url string) (Media, error)
}

// AvailabilitySource returns busy intervals for a vehicle calendar reference
type AvailabilitySource interface {
	BusyIntervals(ctx context.Context, calendarRef string) ([]Interval, error)
}

// Notifier tells staff about booking activity
type Notifier interface {
	NotifyChallengeBookingRequest(challenge Challenge, guest User)
	NotifyBookingRequest(booking Booking, vehicle Vehicle, guest User)
	NotifyBookingConfirmed(booking Booking, vehicle Vehicle, guest User)
}

// Deps holds the collaborators of a Service
type Deps struct {
	Store        Store
	Oracle       Oracle
	References   ReferenceFetcher
	Availability AvailabilitySource
	Notifier     Notifier
	Credentials  CredentialChecker

	// Defaults and Seed are used when nothing has been persisted yet
	Defaults *AppConfig
	Seed     []*User

	OracleTimeout       time.Duration
	AvailabilityTimeout time.Duration
	Now                 func() time.Time
}

const (
	defaultOracleTimeout       = 20 * time.Second
	defaultAvailabilityTimeout = 10 * time.Second
)

// Service provides business logic for the application
type Service struct {
	store        Store
	oracle       Oracle
	references   ReferenceFetcher
	availability AvailabilitySource
	credentials  CredentialChecker
	validate     *validator.Validate
	now          func() time.Time

	oracleTimeout       time.Duration
	availabilityTimeout time.Duration

	notifierMu sync.RWMutex
	notifier   Notifier

	cfgMu sync.RWMutex
	cfg   AppConfig

	usersMu sync.Mutex
	users   []*User

	bookingsMu sync.Mutex
	bookings   []*Booking

	flightMu sync.Mutex
	inFlight map[flightKey]struct{}

	saveMu  sync.Mutex
	saveErr error
}

// NewService loads persisted state and creates a new Service instance
func NewService(ctx context.Context, deps Deps) (*Service, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}

	s := &Service{
		store:               deps.Store,
		oracle:              deps.Oracle,
		references:          deps.References,
		availability:        deps.Availability,
		notifier:            deps.Notifier,
		credentials:         deps.Credentials,
		validate:            validator.New(),
		now:                 deps.Now,
		oracleTimeout:       deps.OracleTimeout,
		availabilityTimeout: deps.AvailabilityTimeout,
		inFlight:            make(map[flightKey]struct{}),
	}
	if s.credentials == nil {
		s.credentials = PlainCredentials{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.oracleTimeout <= 0 {
		s.oracleTimeout = defaultOracleTimeout
	}
	if s.availabilityTimeout <= 0 {
		s.availabilityTimeout = defaultAvailabilityTimeout
	}

	defaults := DefaultConfig()
	if deps.Defaults != nil {
		defaults = deps.Defaults.Clone()
	}

	cfg, err := deps.Store.LoadConfig(ctx, defaults)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	s.cfg = cfg

	users, err := deps.Store.LoadUsers(ctx, deps.Seed)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	s.users = users
	s.ensureAdmins(ctx, deps.Seed)

	bookings, err := deps.Store.LoadBookings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings: %w", err)
	}
	s.bookings = bookings

	log.WithFields(log.Fields{
		"challenges": len(cfg.Challenges),
		"users":      len(users),
		"bookings":   len(bookings),
	}).Info("service state loaded")

	return s, nil
}

// ensureAdmins adds seeded administrators missing from a loaded user list,
// so a deployment can always sign in after a legacy migration.
func (s *Service) ensureAdmins(ctx context.Context, seed []*User) {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	added := false
	for _, candidate := range seed {
		if candidate.Role != RoleAdmin {
			continue
		}
		exists := false
		for _, u := range s.users {
			if u.Role == RoleAdmin && u.Identity == candidate.Identity {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		admin := candidate.Clone()
		admin.ID = s.nextUserIDLocked()
		s.users = append(s.users, admin)
		added = true
	}
	if added {
		s.persistUsersLocked(ctx)
	}
}

// SetNotifier replaces the staff notifier
func (s *Service) SetNotifier(n Notifier) {
	s.notifierMu.Lock()
	defer s.notifierMu.Unlock()
	s.notifier = n
}

func (s *Service) notify(fn func(n Notifier)) {
	s.notifierMu.RLock()
	n := s.notifier
	s.notifierMu.RUnlock()
	if n != nil {
		fn(n)
	}
}

// SaveStatus returns the most recent persistence failure, or nil once a
// later save succeeded.
func (s *Service) SaveStatus() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	return s.saveErr
}

// ReportSaveError records the outcome of a save that happened outside the
// service, such as a debounced config write.
func (s *Service) ReportSaveError(key string, err error) {
	s.saveMu.Lock()
	s.saveErr = err
	s.saveMu.Unlock()
	if err != nil {
		log.WithError(err).WithField("key", key).Error("failed to persist state")
	}
}

// Flush writes any pending debounced save
func (s *Service) Flush(ctx context.Context) error {
	return s.store.Flush(ctx)
}

// persistUsersLocked writes the user list. In-memory state stays
// authoritative for the session when the write fails. Caller holds usersMu.
func (s *Service) persistUsersLocked(ctx context.Context) {
	snapshot := make([]*User, len(s.users))
	for i, u := range s.users {
		snapshot[i] = u.Clone()
	}
	s.ReportSaveError("users", s.store.SaveUsers(ctx, snapshot))
}

// persistBookingsLocked writes the booking list. Caller holds bookingsMu.
func (s *Service) persistBookingsLocked(ctx context.Context) {
	snapshot := make([]*Booking, len(s.bookings))
	for i, b := range s.bookings {
		cp := *b
		snapshot[i] = &cp
	}
	s.ReportSaveError("bookings", s.store.SaveBookings(ctx, snapshot))
}

// persistConfigLocked schedules a config write. Caller holds cfgMu.
func (s *Service) persistConfigLocked() {
	s.store.SaveConfig(s.cfg.Clone())
}
