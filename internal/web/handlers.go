package web

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"rockstar-pass-monolith/internal/core"
)

type meResponse struct {
	User          userView    `json:"user"`
	UnlockedPerks []core.Perk `json:"unlockedPerks"`
	Lang          string      `json:"lang"`
	SaveError     string      `json:"saveError,omitempty"`
}

type submitResponse struct {
	core.Outcome
	Text   string          `json:"text"`
	Points int             `json:"points"`
	Rank   core.RankStatus `json:"rank"`
}

// handleMe shows the signed-in user's pass
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.getUserID(r)
	user, err := s.service.User(userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := meResponse{
		User:          newUserView(user),
		UnlockedPerks: s.service.UnlockedPerks(user.Points),
		Lang:          s.detectLocale(r),
	}
	if resp.UnlockedPerks == nil {
		resp.UnlockedPerks = []core.Perk{}
	}
	if err := s.service.SaveStatus(); err != nil {
		resp.SaveError = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleConfig returns the catalog. Guests do not see QR answers.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.getUserID(r)
	cfg := s.service.Config()
	if !s.service.IsAdmin(userID) {
		for i, ch := range cfg.Challenges {
			if _, ok := ch.Rules.(core.QRCodeRules); ok {
				cfg.Challenges[i].Rules = core.QRCodeRules{}
			}
		}
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newUserViews(s.service.Leaderboard()))
}

func (s *Server) handleRanks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, core.Ranks)
}

// handleSubmit runs a challenge validation. The body is a multipart form
// with an optional media file, the scavenger item index and the QR payload.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	challengeID, err := pathInt(r, "challengeID")
	if err != nil {
		s.writeMessage(w, r, http.StatusBadRequest, "error.bad_request")
		return
	}
	userID, _ := s.getUserID(r)

	sub, err := s.parseSubmission(w, r)
	if err != nil {
		log.WithError(err).Debug("invalid submission form")
		s.writeMessage(w, r, http.StatusBadRequest, "error.bad_request")
		return
	}
	sub.UserID = userID
	sub.ChallengeID = challengeID

	outcome, err := s.service.Submit(r.Context(), sub)
	var cfgErr *core.ConfigError
	switch {
	case errors.As(err, &cfgErr):
		log.WithFields(log.Fields{
			"challenge_id": challengeID,
			"reason":       cfgErr.Reason,
		}).Warn("⚠️ misconfigured challenge submitted")
		s.writeOutcome(w, r, http.StatusUnprocessableEntity, outcome)
		return
	case err != nil:
		if r.Context().Err() != nil {
			// Client went away; nothing to answer
			log.WithField("challenge_id", challengeID).Info("submission abandoned")
			return
		}
		s.writeError(w, r, err)
		return
	}

	if outcome.Granted {
		log.WithFields(log.Fields{
			"user_id":      userID,
			"challenge_id": challengeID,
		}).Info("🏆 challenge completed")
	}
	s.writeOutcome(w, r, http.StatusOK, outcome)
}

func (s *Server) writeOutcome(w http.ResponseWriter, r *http.Request, status int, outcome core.Outcome) {
	resp := submitResponse{
		Outcome: outcome,
		Text:    s.translator.Format(s.detectLocale(r), outcome.Message, outcome.MessageArgs),
	}
	userID, _ := s.getUserID(r)
	if user, err := s.service.User(userID); err == nil {
		resp.Points = user.Points
		resp.Rank = core.RankFor(user.Points)
	}
	writeJSON(w, status, resp)
}

func (s *Server) parseSubmission(w http.ResponseWriter, r *http.Request) (core.Submission, error) {
	var sub core.Submission
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(s.maxUpload); err != nil {
			return sub, err
		}
		file, header, err := r.FormFile("media")
		switch {
		case err == nil:
			defer file.Close()
			data, err := io.ReadAll(file)
			if err != nil {
				return sub, err
			}
			mimeType := header.Header.Get("Content-Type")
			if mimeType == "" {
				mimeType = http.DetectContentType(data)
			}
			sub.Media = &core.Media{Data: data, MIMEType: mimeType}
		case !errors.Is(err, http.ErrMissingFile):
			return sub, err
		}
	} else if err := r.ParseForm(); err != nil {
		return sub, err
	}

	sub.Payload = r.FormValue("payload")
	if raw := strings.TrimSpace(r.FormValue("item")); raw != "" {
		idx, err := strconv.Atoi(raw)
		if err != nil {
			return sub, err
		}
		sub.ItemIndex = idx
	}
	return sub, nil
}

func (s *Server) handleValidationStatus(w http.ResponseWriter, r *http.Request) {
	challengeID, err := pathInt(r, "challengeID")
	if err != nil {
		s.writeMessage(w, r, http.StatusBadRequest, "error.bad_request")
		return
	}
	userID, _ := s.getUserID(r)
	writeJSON(w, http.StatusOK, map[string]core.ValidationState{
		"state": s.service.ValidationStatus(userID, challengeID),
	})
}

// handleDealCode shows a partner deal's code and counts the display
func (s *Server) handleDealCode(w http.ResponseWriter, r *http.Request) {
	dealID, err := pathInt(r, "dealID")
	if err != nil {
		s.writeMessage(w, r, http.StatusBadRequest, "error.bad_request")
		return
	}
	deal, err := s.service.DisplayDeal(dealID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deal)
}
