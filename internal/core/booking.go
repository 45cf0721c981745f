package core

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// QuickRideDuration is the fixed length of a quick ride
const QuickRideDuration = 60 * time.Minute

// Interval is a half-open time range [Start, End)
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether [start, end) intersects the interval
func (i Interval) Overlaps(start, end time.Time) bool {
	return start.Before(i.End) && end.After(i.Start)
}

// BookingRequest is a guest's request to reserve a vehicle
type BookingRequest struct {
	UserID    int64
	VehicleID int64
	Type      BookingType
	Start     time.Time
	// Hours is the tour length; ignored for quick rides
	Hours int
}

// BookingQuote is a created booking plus what the guest owes for it
type BookingQuote struct {
	Booking     Booking `json:"booking"`
	Vehicle     Vehicle `json:"vehicle"`
	Total       float64 `json:"total"`
	PaymentLink string  `json:"paymentLink"`
}

// Duration returns the length of a booking of the given type
func Duration(t BookingType, hours int) (time.Duration, error) {
	switch t {
	case BookingQuickRide:
		return QuickRideDuration, nil
	case BookingTour:
		if hours <= 0 {
			return 0, ErrInvalidBooking
		}
		return time.Duration(hours) * time.Hour, nil
	default:
		return 0, ErrInvalidBooking
	}
}

// Fare returns the price of a booking on a vehicle
func Fare(b Booking, v Vehicle) float64 {
	if b.BookingType == BookingQuickRide {
		return v.QuickRideBaseFare
	}
	return v.TourHourlyRate * b.EndTime.Sub(b.StartTime).Hours()
}

// BusyIntervals returns the vehicle's external busy intervals merged with
// its local bookings, ordered by start
func (s *Service) BusyIntervals(ctx context.Context, vehicleID int64) ([]Interval, error) {
	v, err := s.Vehicle(vehicleID)
	if err != nil {
		return nil, err
	}
	busy, err := s.externalBusy(ctx, v)
	if err != nil {
		return nil, err
	}

	s.bookingsMu.Lock()
	busy = append(busy, s.localBusyLocked(vehicleID)...)
	s.bookingsMu.Unlock()

	sort.Slice(busy, func(i, j int) bool { return busy[i].Start.Before(busy[j].Start) })
	return busy, nil
}

func (s *Service) externalBusy(ctx context.Context, v Vehicle) ([]Interval, error) {
	if s.availability == nil || v.ICalURL == "" {
		return nil, nil
	}
	actx, cancel := context.WithTimeout(ctx, s.availabilityTimeout)
	defer cancel()

	busy, err := s.availability.BusyIntervals(actx, v.ICalURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.WithError(err).WithField("vehicle_id", v.ID).Warn("availability lookup failed")
		return nil, errors.Join(ErrAvailabilityUnavailable, err)
	}
	return busy, nil
}

// localBusyLocked returns intervals held by bookings. Caller holds bookingsMu.
func (s *Service) localBusyLocked(vehicleID int64) []Interval {
	var out []Interval
	for _, b := range s.bookings {
		if b.VehicleID == vehicleID {
			out = append(out, Interval{Start: b.StartTime, End: b.EndTime})
		}
	}
	return out
}

// RequestBooking checks availability and creates a booking awaiting payment
func (s *Service) RequestBooking(ctx context.Context, req BookingRequest) (*BookingQuote, error) {
	user, err := s.User(req.UserID)
	if err != nil {
		return nil, err
	}
	vehicle, err := s.Vehicle(req.VehicleID)
	if err != nil {
		return nil, err
	}
	length, err := Duration(req.Type, req.Hours)
	if err != nil {
		return nil, err
	}
	if req.Start.IsZero() {
		return nil, ErrInvalidBooking
	}
	if req.Start.Before(s.now()) {
		return nil, ErrStartInPast
	}
	end := req.Start.Add(length)

	external, err := s.externalBusy(ctx, vehicle)
	if err != nil {
		return nil, err
	}
	for _, busy := range external {
		if busy.Overlaps(req.Start, end) {
			return nil, &ConflictError{VehicleID: vehicle.ID, Start: req.Start, End: end, Busy: busy}
		}
	}

	s.bookingsMu.Lock()
	// Local bookings are re-checked under the lock so concurrent requests
	// for the same slot cannot both succeed.
	for _, busy := range s.localBusyLocked(vehicle.ID) {
		if busy.Overlaps(req.Start, end) {
			s.bookingsMu.Unlock()
			return nil, &ConflictError{VehicleID: vehicle.ID, Start: req.Start, End: end, Busy: busy}
		}
	}

	booking := &Booking{
		ID:          BookingID(uuid.NewString()),
		VehicleID:   vehicle.ID,
		UserID:      user.ID,
		BookingType: req.Type,
		StartTime:   req.Start,
		EndTime:     end,
		Status:      StatusPendingPayment,
	}
	s.bookings = append(s.bookings, booking)
	s.persistBookingsLocked(ctx)
	created := *booking
	s.bookingsMu.Unlock()

	log.WithFields(log.Fields{
		"booking_id": created.ID,
		"vehicle_id": vehicle.ID,
		"user_id":    user.ID,
		"start":      created.StartTime.Format(time.RFC3339),
	}).Info("booking requested")

	s.notify(func(n Notifier) { n.NotifyBookingRequest(created, vehicle, *user) })

	return &BookingQuote{
		Booking:     created,
		Vehicle:     vehicle,
		Total:       Fare(created, vehicle),
		PaymentLink: vehicle.PaymentLink,
	}, nil
}

// ConfirmPayment marks a pending booking as paid. Only the booking's owner
// or an administrator may confirm it. Payment is self-reported by the guest.
func (s *Service) ConfirmPayment(ctx context.Context, userID int64, bookingID BookingID) (*Booking, error) {
	admin := s.IsAdmin(userID)
	return s.confirm(ctx, bookingID, userID, func(b *Booking) error {
		if b.UserID != userID && !admin {
			return ErrForbidden
		}
		return nil
	})
}

// ConfirmPaymentAsStaff marks a booking as paid on behalf of staff working
// from the notification channel.
func (s *Service) ConfirmPaymentAsStaff(ctx context.Context, bookingID BookingID) (*Booking, error) {
	return s.confirm(ctx, bookingID, 0, func(*Booking) error { return nil })
}

func (s *Service) confirm(ctx context.Context, bookingID BookingID, actor int64, authorize func(*Booking) error) (*Booking, error) {
	s.bookingsMu.Lock()
	b := s.bookingLocked(bookingID)
	if b == nil {
		s.bookingsMu.Unlock()
		return nil, notFound("booking", bookingID)
	}
	if err := authorize(b); err != nil {
		s.bookingsMu.Unlock()
		return nil, err
	}
	if b.Status == StatusConfirmed {
		s.bookingsMu.Unlock()
		return nil, ErrAlreadyConfirmed
	}
	b.Status = StatusConfirmed
	s.persistBookingsLocked(ctx)
	confirmed := *b
	s.bookingsMu.Unlock()

	log.WithFields(log.Fields{"booking_id": bookingID, "by": actor}).Info("booking confirmed")

	vehicle, vErr := s.Vehicle(confirmed.VehicleID)
	guest, uErr := s.User(confirmed.UserID)
	if vErr == nil && uErr == nil {
		s.notify(func(n Notifier) { n.NotifyBookingConfirmed(confirmed, vehicle, *guest) })
	}
	return &confirmed, nil
}

// Booking returns a booking visible to the given user
func (s *Service) Booking(userID int64, bookingID BookingID) (*Booking, error) {
	admin := s.IsAdmin(userID)

	s.bookingsMu.Lock()
	defer s.bookingsMu.Unlock()

	b := s.bookingLocked(bookingID)
	if b == nil {
		return nil, notFound("booking", bookingID)
	}
	if b.UserID != userID && !admin {
		return nil, ErrForbidden
	}
	cp := *b
	return &cp, nil
}

// Bookings returns the user's confirmed bookings ordered by start time
func (s *Service) Bookings(userID int64) []Booking {
	return s.filterBookings(func(b *Booking) bool {
		return b.UserID == userID && b.Status == StatusConfirmed
	})
}

// PendingBookings returns all bookings awaiting payment
func (s *Service) PendingBookings() []Booking {
	return s.filterBookings(func(b *Booking) bool { return b.Status == StatusPendingPayment })
}

// AllBookings returns every booking ordered by start time
func (s *Service) AllBookings() []Booking {
	return s.filterBookings(func(*Booking) bool { return true })
}

func (s *Service) filterBookings(keep func(*Booking) bool) []Booking {
	s.bookingsMu.Lock()
	defer s.bookingsMu.Unlock()

	var out []Booking
	for _, b := range s.bookings {
		if keep(b) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

// bookingLocked finds a booking by id. Caller holds bookingsMu.
func (s *Service) bookingLocked(id BookingID) *Booking {
	for _, b := range s.bookings {
		if b.ID == id {
			return b
		}
	}
	return nil
}
