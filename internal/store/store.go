package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rockstar-pass-monolith/internal/core"
)

// Current and legacy document keys
const (
	ConfigKey   = "rockstar_app_config_v2"
	UsersKey    = "rockstar_users_v2"
	BookingsKey = "rockstar_bookings_v2"

	legacyConfigKeyV1 = "rockstar_app_config_v1"
	legacyConfigKey   = "rockstar_app_config"
	legacyUsersKey    = "rockstar_users"
	legacyBookingsKey = "rockstar_bookings"
)

const defaultSaveWindow = time.Second

// Options configures a Store
type Options struct {
	// Capacity is the byte budget; DefaultCapacity when zero, none when negative
	Capacity int64
	// SaveWindow is the config debounce window; one second when zero,
	// immediate when negative
	SaveWindow time.Duration
	// OnSaveResult receives the result of every debounced write
	OnSaveResult func(key string, err error)
}

// Store persists the application documents and implements core.Store
type Store struct {
	kv      KV
	adapter *Adapter
	config  *Debouncer
}

// New creates a Store over a KV backend
func New(kv KV, opts Options) *Store {
	capacity := opts.Capacity
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	window := opts.SaveWindow
	if window == 0 {
		window = defaultSaveWindow
	}

	report := func(err error) {
		if opts.OnSaveResult != nil {
			opts.OnSaveResult(ConfigKey, err)
		}
	}

	return &Store{
		kv:      kv,
		adapter: NewAdapter(kv, capacity),
		config:  NewDebouncer(window, report),
	}
}

// LoadConfig returns the stored configuration, a migrated legacy one, or defaults
func (s *Store) LoadConfig(ctx context.Context, defaults core.AppConfig) (core.AppConfig, error) {
	cfg, err := Load(ctx, s.adapter, ConfigKey, defaults,
		Migration[core.AppConfig]{LegacyKey: legacyConfigKeyV1, Transform: migrateLegacyConfig},
		Migration[core.AppConfig]{LegacyKey: legacyConfigKey, Transform: migrateLegacyConfig},
	)
	if err != nil {
		return defaults, err
	}
	cfg.FillMissing(defaults)
	return cfg, nil
}

// LoadUsers returns the stored users, migrated legacy users, or seed
func (s *Store) LoadUsers(ctx context.Context, seed []*core.User) ([]*core.User, error) {
	return Load(ctx, s.adapter, UsersKey, seed,
		Migration[[]*core.User]{LegacyKey: legacyUsersKey, Transform: decodeLegacy[[]*core.User]},
	)
}

// LoadBookings returns the stored bookings or migrated legacy bookings
func (s *Store) LoadBookings(ctx context.Context) ([]*core.Booking, error) {
	return Load(ctx, s.adapter, BookingsKey, []*core.Booking{},
		Migration[[]*core.Booking]{LegacyKey: legacyBookingsKey, Transform: decodeLegacy[[]*core.Booking]},
	)
}

// SaveConfig schedules a debounced configuration write
func (s *Store) SaveConfig(cfg core.AppConfig) {
	s.config.Schedule(func(ctx context.Context) error {
		return s.adapter.Save(ctx, ConfigKey, cfg)
	})
}

// SaveUsers writes the user list immediately
func (s *Store) SaveUsers(ctx context.Context, users []*core.User) error {
	return s.adapter.Save(ctx, UsersKey, users)
}

// SaveBookings writes the booking list immediately
func (s *Store) SaveBookings(ctx context.Context, bookings []*core.Booking) error {
	return s.adapter.Save(ctx, BookingsKey, bookings)
}

// Flush writes a pending configuration save
func (s *Store) Flush(ctx context.Context) error {
	return s.config.Flush(ctx)
}

// Reset removes every current and legacy document
func (s *Store) Reset(ctx context.Context) error {
	keys := []string{ConfigKey, UsersKey, BookingsKey, legacyConfigKeyV1, legacyConfigKey, legacyUsersKey, legacyBookingsKey}
	for _, key := range keys {
		if err := s.kv.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// decodeLegacy reads an older document whose shape the current decoders
// already accept
func decodeLegacy[T any](raw []byte, _ T) (T, error) {
	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		return value, err
	}
	return value, nil
}

type fieldPolicy int

const (
	carryOver fieldPolicy = iota
	forceDefault
)

// legacyConfigFields decides, per top-level field, whether an older config
// document contributes its value. Vehicle and theme shapes changed, so those
// always come from the current defaults.
var legacyConfigFields = []struct {
	name   string
	policy fieldPolicy
	apply  func(cfg *core.AppConfig, raw json.RawMessage) error
}{
	{"challenges", carryOver, func(cfg *core.AppConfig, raw json.RawMessage) error {
		var challenges []core.Challenge
		if err := json.Unmarshal(raw, &challenges); err != nil {
			return err
		}
		cfg.Challenges = challenges
		return nil
	}},
	{"perks", carryOver, func(cfg *core.AppConfig, raw json.RawMessage) error {
		var perks []core.Perk
		if err := json.Unmarshal(raw, &perks); err != nil {
			return err
		}
		cfg.Perks = perks
		return nil
	}},
	{"deals", carryOver, func(cfg *core.AppConfig, raw json.RawMessage) error {
		var deals []core.PartnerDeal
		if err := json.Unmarshal(raw, &deals); err != nil {
			return err
		}
		cfg.Deals = deals
		return nil
	}},
	{"vehicles", forceDefault, nil},
	{"theme", forceDefault, nil},
}

func migrateLegacyConfig(raw []byte, defaults core.AppConfig) (core.AppConfig, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return defaults, err
	}

	cfg := defaults.Clone()
	for _, field := range legacyConfigFields {
		value, ok := doc[field.name]
		if !ok || field.policy == forceDefault {
			continue
		}
		if err := field.apply(&cfg, value); err != nil {
			return defaults, fmt.Errorf("legacy field %s: %w", field.name, err)
		}
	}
	return cfg, nil
}

var _ core.Store = (*Store)(nil)
