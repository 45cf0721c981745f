package web

import (
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"

	"rockstar-pass-monolith/internal/core"
)

// handleExport downloads the configuration as JSON
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.service.ExportConfig(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	name := fmt.Sprintf("rockstar_config_%s.json", s.now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.WithError(err).Error("failed to write export")
	}
}

// handleImport replaces the configuration with an exported document
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var cfg core.AppConfig
	if err := decodeJSON(w, r, &cfg); err != nil {
		log.WithError(err).Warn("rejected configuration import")
		s.writeMessage(w, r, http.StatusBadRequest, "error.bad_request")
		return
	}
	if err := s.service.ReplaceConfig(cfg); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.service.Config())
}

func (s *Server) handleUpdateTheme(w http.ResponseWriter, r *http.Request) {
	var theme core.ThemeSettings
	if err := decodeJSON(w, r, &theme); err != nil {
		s.writeMessage(w, r, http.StatusBadRequest, "error.bad_request")
		return
	}
	writeJSON(w, http.StatusOK, s.service.UpdateTheme(theme))
}

// saveItem decodes an item, takes its id from the path on PUT and stores it
func saveItem[T any](s *Server, w http.ResponseWriter, r *http.Request, setID func(*T, int64), save func(T) (T, error)) {
	var item T
	if err := decodeJSON(w, r, &item); err != nil {
		s.writeMessage(w, r, http.StatusBadRequest, "error.bad_request")
		return
	}

	status := http.StatusCreated
	if r.Method == http.MethodPut {
		id, err := pathInt(r, "id")
		if err != nil || id <= 0 {
			s.writeMessage(w, r, http.StatusBadRequest, "error.bad_request")
			return
		}
		setID(&item, id)
		status = http.StatusOK
	} else {
		setID(&item, 0)
	}

	saved, err := save(item)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, status, saved)
}

// deleteItem removes the item named by the path id
func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request, remove func(int64) error) {
	id, err := pathInt(r, "id")
	if err != nil {
		s.writeMessage(w, r, http.StatusBadRequest, "error.bad_request")
		return
	}
	if err := remove(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSaveChallenge(w http.ResponseWriter, r *http.Request) {
	saveItem(s, w, r, func(c *core.Challenge, id int64) { c.ID = id }, s.service.SaveChallenge)
}

func (s *Server) handleDeleteChallenge(w http.ResponseWriter, r *http.Request) {
	s.deleteItem(w, r, s.service.DeleteChallenge)
}

func (s *Server) handleSavePerk(w http.ResponseWriter, r *http.Request) {
	saveItem(s, w, r, func(p *core.Perk, id int64) { p.ID = id }, s.service.SavePerk)
}

func (s *Server) handleDeletePerk(w http.ResponseWriter, r *http.Request) {
	s.deleteItem(w, r, s.service.DeletePerk)
}

func (s *Server) handleSaveDeal(w http.ResponseWriter, r *http.Request) {
	saveItem(s, w, r, func(d *core.PartnerDeal, id int64) { d.ID = id }, s.service.SaveDeal)
}

func (s *Server) handleDeleteDeal(w http.ResponseWriter, r *http.Request) {
	s.deleteItem(w, r, s.service.DeleteDeal)
}

func (s *Server) handleSaveVehicle(w http.ResponseWriter, r *http.Request) {
	saveItem(s, w, r, func(v *core.Vehicle, id int64) { v.ID = id }, s.service.SaveVehicle)
}

func (s *Server) handleDeleteVehicle(w http.ResponseWriter, r *http.Request) {
	s.deleteItem(w, r, s.service.DeleteVehicle)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newUserViews(s.service.Users()))
}

// handleUpdatePoints corrects a user's point total
func (s *Server) handleUpdatePoints(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt(r, "userID")
	if err != nil {
		s.writeMessage(w, r, http.StatusBadRequest, "error.bad_request")
		return
	}
	var req struct {
		Points int `json:"points"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeMessage(w, r, http.StatusBadRequest, "error.bad_request")
		return
	}
	user, err := s.service.UpdateUserPoints(r.Context(), userID, req.Points)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserView(user))
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt(r, "userID")
	if err != nil {
		s.writeMessage(w, r, http.StatusBadRequest, "error.bad_request")
		return
	}
	if err := s.service.DeleteUser(r.Context(), userID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type adminBooking struct {
	core.Booking
	Guest   string  `json:"guest"`
	Vehicle string  `json:"vehicle"`
	Total   float64 `json:"total"`
}

// handleAdminBookings lists every booking with guest and vehicle names
func (s *Server) handleAdminBookings(w http.ResponseWriter, r *http.Request) {
	bookings := s.service.AllBookings()
	out := make([]adminBooking, 0, len(bookings))
	for _, b := range bookings {
		row := adminBooking{Booking: b}
		if u, err := s.service.User(b.UserID); err == nil {
			row.Guest = u.Identity
		}
		if v, err := s.service.Vehicle(b.VehicleID); err == nil {
			row.Vehicle = v.Name
			row.Total = core.Fare(b, v)
		}
		out = append(out, row)
	}
	writeJSON(w, http.StatusOK, out)
}
