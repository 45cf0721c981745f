package web

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"rockstar-pass-monolith/internal/calendar"
	"rockstar-pass-monolith/internal/core"
)

type createBookingRequest struct {
	VehicleID   int64            `json:"vehicleId"`
	BookingType core.BookingType `json:"bookingType"`
	StartTime   time.Time        `json:"startTime"`
	Hours       int              `json:"hours"`
}

type availabilityResponse struct {
	VehicleID int64           `json:"vehicleId"`
	Busy      []core.Interval `json:"busy"`
}

// handleAvailability lists a vehicle's busy intervals
func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := pathInt(r, "vehicleID")
	if err != nil {
		s.writeMessage(w, r, http.StatusBadRequest, "error.bad_request")
		return
	}
	busy, err := s.service.BusyIntervals(r.Context(), vehicleID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if busy == nil {
		busy = []core.Interval{}
	}
	writeJSON(w, http.StatusOK, availabilityResponse{VehicleID: vehicleID, Busy: busy})
}

// handleCreateBooking reserves a vehicle pending payment
func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeMessage(w, r, http.StatusBadRequest, "error.bad_request")
		return
	}
	userID, _ := s.getUserID(r)

	quote, err := s.service.RequestBooking(r.Context(), core.BookingRequest{
		UserID:    userID,
		VehicleID: req.VehicleID,
		Type:      req.BookingType,
		Start:     req.StartTime,
		Hours:     req.Hours,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, quote)
}

// handleListBookings lists the user's confirmed bookings
func (s *Server) handleListBookings(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.getUserID(r)
	bookings := s.service.Bookings(userID)
	if bookings == nil {
		bookings = []core.Booking{}
	}
	writeJSON(w, http.StatusOK, bookings)
}

// handleConfirmBooking records the guest's report that payment was made
func (s *Server) handleConfirmBooking(w http.ResponseWriter, r *http.Request) {
	bookingID := core.BookingID(chi.URLParam(r, "bookingID"))
	userID, _ := s.getUserID(r)

	booking, err := s.service.ConfirmPayment(r.Context(), userID, bookingID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	log.WithFields(log.Fields{
		"booking_id": booking.ID,
		"user_id":    userID,
	}).Info("✅ booking confirmed")
	writeJSON(w, http.StatusOK, booking)
}

// handleBookingCalendar downloads a confirmed booking as an .ics file
func (s *Server) handleBookingCalendar(w http.ResponseWriter, r *http.Request) {
	bookingID := core.BookingID(chi.URLParam(r, "bookingID"))
	userID, _ := s.getUserID(r)

	booking, err := s.service.Booking(userID, bookingID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if booking.Status != core.StatusConfirmed {
		s.writeMessage(w, r, http.StatusConflict, "error.invalid_booking")
		return
	}
	vehicle, err := s.service.Vehicle(booking.VehicleID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	body := calendar.Export(*booking, vehicle, s.eventLocation, s.now())
	w.Header().Set("Content-Type", calendar.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", calendar.FileName(*booking, vehicle)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.WithError(err).Error("failed to write calendar")
	}
}
