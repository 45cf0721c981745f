package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

var (
	// ErrNotFound is returned by KV.Get for a missing key
	ErrNotFound = errors.New("key not found")
	// ErrQuotaExceeded is returned when a write does not fit
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// DefaultCapacity is the byte budget shared by all keys
const DefaultCapacity int64 = 5 << 20

// KV is a byte-oriented key/value backend
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Usage returns the bytes held by every key except exclude
	Usage(ctx context.Context, exclude string) (int64, error)
}

// Strippable values can drop heavy fields to fit a smaller budget
type Strippable interface {
	Stripped() any
}

// SaveError reports a failed write. Fatal means the reduced value did not
// fit either, so the key still holds its previous contents.
type SaveError struct {
	Key   string
	Fatal bool
	Err   error
}

func (e *SaveError) Error() string {
	if e.Fatal {
		return fmt.Sprintf("failed to save %s even without heavy fields: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("failed to save %s: %v", e.Key, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// Adapter encodes values as JSON documents over a KV backend and enforces
// the byte budget.
type Adapter struct {
	kv       KV
	capacity int64
}

// NewAdapter creates an adapter. A capacity of zero or less disables the budget.
func NewAdapter(kv KV, capacity int64) *Adapter {
	return &Adapter{kv: kv, capacity: capacity}
}

// Save writes value under key. When the budget is exceeded and the value is
// Strippable, it retries once with the stripped value.
func (a *Adapter) Save(ctx context.Context, key string, value any) error {
	err := a.write(ctx, key, value)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrQuotaExceeded) {
		return &SaveError{Key: key, Err: err}
	}

	strippable, ok := value.(Strippable)
	if !ok {
		return &SaveError{Key: key, Fatal: true, Err: err}
	}

	log.WithField("key", key).Warn("storage quota exceeded, retrying without images")
	if err := a.write(ctx, key, strippable.Stripped()); err != nil {
		return &SaveError{Key: key, Fatal: true, Err: err}
	}
	return nil
}

func (a *Adapter) write(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	if a.capacity > 0 {
		used, err := a.kv.Usage(ctx, key)
		if err != nil {
			return err
		}
		if used+int64(len(payload)) > a.capacity {
			return ErrQuotaExceeded
		}
	}

	return a.kv.Set(ctx, key, payload)
}

// Migration reads a value from an older key
type Migration[T any] struct {
	LegacyKey string
	Transform func(raw []byte, fallback T) (T, error)
}

// Load reads key. When the key is absent it tries each migration in order,
// writes the first hit forward under key and returns it. When nothing is
// stored it returns fallback. An undecodable document also yields fallback.
func Load[T any](ctx context.Context, a *Adapter, key string, fallback T, migrations ...Migration[T]) (T, error) {
	raw, err := a.kv.Get(ctx, key)
	switch {
	case err == nil:
		var value T
		if err := json.Unmarshal(raw, &value); err != nil {
			log.WithError(err).WithField("key", key).Error("stored document is unreadable, using defaults")
			return fallback, nil
		}
		return value, nil
	case !errors.Is(err, ErrNotFound):
		return fallback, err
	}

	for _, m := range migrations {
		raw, err := a.kv.Get(ctx, m.LegacyKey)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return fallback, err
		}

		value, err := m.Transform(raw, fallback)
		if err != nil {
			log.WithError(err).WithField("key", m.LegacyKey).Warn("legacy document is unreadable, skipping")
			continue
		}

		if err := a.Save(ctx, key, value); err != nil {
			log.WithError(err).WithField("key", key).Warn("failed to write migrated document")
		}
		log.WithFields(log.Fields{"from": m.LegacyKey, "to": key}).Info("migrated legacy document")
		return value, nil
	}

	return fallback, nil
}
