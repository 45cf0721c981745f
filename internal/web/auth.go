package web

import (
	"net/http"

	log "github.com/sirupsen/logrus"
)

type adminLoginRequest struct {
	Identity string `json:"identity"`
	Secret   string `json:"secret"`
}

type guestLoginRequest struct {
	Identity string `json:"identity"`
}

// handleAdminLogin authenticates an administrator
func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeMessage(w, r, http.StatusBadRequest, "error.bad_request")
		return
	}

	user, err := s.service.AuthenticateAdmin(req.Identity, req.Secret)
	if err != nil {
		log.WithField("identity", req.Identity).Warn("admin login failed")
		s.writeError(w, r, err)
		return
	}

	if err := s.setUserID(w, r, user.ID); err != nil {
		log.WithError(err).Error("failed to set session")
		s.writeMessage(w, r, http.StatusInternalServerError, "error.internal")
		return
	}

	log.WithField("user_id", user.ID).Info("admin logged in")
	writeJSON(w, http.StatusOK, newUserView(user))
}

// handleGuestLogin resolves a guest by identity, creating one on first visit
func (s *Server) handleGuestLogin(w http.ResponseWriter, r *http.Request) {
	var req guestLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeMessage(w, r, http.StatusBadRequest, "error.bad_request")
		return
	}

	user, err := s.service.ResolveOrCreateGuest(r.Context(), req.Identity)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.setUserID(w, r, user.ID); err != nil {
		log.WithError(err).Error("failed to set session")
		s.writeMessage(w, r, http.StatusInternalServerError, "error.internal")
		return
	}

	log.WithField("user_id", user.ID).Info("guest signed in")
	writeJSON(w, http.StatusOK, newUserView(user))
}

// handleLogout handles user logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.clearSession(w, r); err != nil {
		log.WithError(err).Error("failed to clear session")
	}
	w.WriteHeader(http.StatusNoContent)
}
