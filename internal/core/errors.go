package core

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrAuthFailed              = errors.New("invalid credentials")
	ErrForbidden               = errors.New("forbidden")
	ErrNotFound                = errors.New("not found")
	ErrUnknownUser             = errors.New("user not found")
	ErrInvalidIdentity         = errors.New("identity must not be empty")
	ErrInvalidItem             = errors.New("scavenger item index out of range")
	ErrMediaRequired           = errors.New("an upload is required for this challenge")
	ErrValidationInFlight      = errors.New("a validation for this challenge is already running")
	ErrStartInPast             = errors.New("booking start time is in the past")
	ErrInvalidBooking          = errors.New("invalid booking request")
	ErrAlreadyConfirmed        = errors.New("booking is already confirmed")
	ErrAvailabilityUnavailable = errors.New("vehicle availability is unavailable")
)

// ConfigError reports a challenge whose definition is missing the data its
// validation rule needs. No oracle call is made for such a challenge.
type ConfigError struct {
	ChallengeID int64
	Reason      string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("challenge %d is misconfigured: %s", e.ChallengeID, e.Reason)
}

// ConflictError reports a requested interval that overlaps a busy one
type ConflictError struct {
	VehicleID int64
	Start     time.Time
	End       time.Time
	Busy      Interval
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("vehicle %d is busy between %s and %s",
		e.VehicleID, e.Busy.Start.Format(time.RFC3339), e.Busy.End.Format(time.RFC3339))
}

func notFound(kind string, id any) error {
	return fmt.Errorf("%s %v: %w", kind, id, ErrNotFound)
}
