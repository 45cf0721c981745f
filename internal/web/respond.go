package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"rockstar-pass-monolith/internal/core"
)

const maxJSONBody = 8 << 20

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// userView is a user as shown to clients; credentials never leave the server
type userView struct {
	ID                    int64             `json:"id"`
	Identity              string            `json:"identity"`
	DisplayName           string            `json:"displayName"`
	Role                  core.Role         `json:"role"`
	Points                int               `json:"points"`
	CompletedChallengeIDs core.IDSet        `json:"completedChallengeIds"`
	ScavengerProgress     map[int64][]int64 `json:"scavengerProgress,omitempty"`
	Rank                  core.RankStatus   `json:"rank"`
}

func newUserView(u *core.User) userView {
	v := userView{
		ID:                    u.ID,
		Identity:              u.Identity,
		DisplayName:           u.DisplayName(),
		Role:                  u.Role,
		Points:                u.Points,
		CompletedChallengeIDs: u.CompletedChallengeIDs,
		Rank:                  core.RankFor(u.Points),
	}
	if len(u.ScavengerProgress) > 0 {
		v.ScavengerProgress = make(map[int64][]int64, len(u.ScavengerProgress))
		for id, found := range u.ScavengerProgress {
			v.ScavengerProgress[id] = found.Sorted()
		}
	}
	return v
}

func newUserViews(users []*core.User) []userView {
	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, newUserView(u))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Error("failed to write response")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("failed to decode request: %w", err)
	}
	return nil
}

// writeMessage writes a localized error message
func (s *Server) writeMessage(w http.ResponseWriter, r *http.Request, status int, key string) {
	writeJSON(w, status, errorResponse{
		Error:   key,
		Message: s.translator.T(s.detectLocale(r), key),
	})
}

// writeError maps a service error onto a status code and message
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, key := classify(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
	} else {
		log.WithError(err).WithField("path", r.URL.Path).Debug("request rejected")
	}
	s.writeMessage(w, r, status, key)
}

func classify(err error) (int, string) {
	var (
		conflict *core.ConflictError
		cfgErr   *core.ConfigError
		invalid  validator.ValidationErrors
	)
	switch {
	case errors.Is(err, core.ErrAuthFailed):
		return http.StatusUnauthorized, "error.auth_failed"
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden, "error.forbidden"
	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrUnknownUser):
		return http.StatusNotFound, "error.not_found"
	case errors.Is(err, core.ErrInvalidIdentity):
		return http.StatusBadRequest, "error.identity_required"
	case errors.Is(err, core.ErrMediaRequired):
		return http.StatusBadRequest, "error.media_required"
	case errors.Is(err, core.ErrInvalidItem):
		return http.StatusBadRequest, "error.invalid_item"
	case errors.Is(err, core.ErrInvalidBooking):
		return http.StatusBadRequest, "error.invalid_booking"
	case errors.Is(err, core.ErrValidationInFlight):
		return http.StatusTooManyRequests, "error.in_flight"
	case errors.Is(err, core.ErrStartInPast):
		return http.StatusConflict, "error.start_in_past"
	case errors.As(err, &conflict):
		return http.StatusConflict, "error.conflict"
	case errors.Is(err, core.ErrAlreadyConfirmed):
		return http.StatusConflict, "error.already_confirmed"
	case errors.Is(err, core.ErrAvailabilityUnavailable):
		return http.StatusServiceUnavailable, "error.availability"
	case errors.As(err, &cfgErr):
		return http.StatusUnprocessableEntity, "validation.misconfigured"
	case errors.As(err, &invalid):
		return http.StatusBadRequest, "error.bad_request"
	default:
		return http.StatusInternalServerError, "error.internal"
	}
}

func pathInt(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
