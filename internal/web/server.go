package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	log "github.com/sirupsen/logrus"

	"rockstar-pass-monolith/internal/core"
	"rockstar-pass-monolith/internal/i18n"
)

const sessionName = "rockstar-pass-session"
const sessionUserIDKey = "user_id"
const sessionLocaleKey = "locale"

// defaultMaxUpload bounds a challenge submission
const defaultMaxUpload = 32 << 20

// Options configures a Server
type Options struct {
	SessionSecret string
	SecureCookies bool
	EventLocation string
	MaxUpload     int64
	Now           func() time.Time
}

// Server represents the HTTP server
type Server struct {
	service       *core.Service
	sessionStore  *sessions.CookieStore
	translator    *i18n.Translator
	eventLocation string
	maxUpload     int64
	now           func() time.Time
}

// NewServer creates a new Server instance
func NewServer(service *core.Service, translator *i18n.Translator, opts Options) *Server {
	// Create session store
	store := sessions.NewCookieStore([]byte(opts.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}

	if opts.SecureCookies {
		log.Info("🔒 running behind HTTPS, secure cookie flag enabled")
	} else {
		log.Info("🔓 running on HTTP, secure cookie flag disabled (local dev)")
	}

	if translator == nil {
		translator = i18n.NewFallback("en")
	}
	if opts.MaxUpload <= 0 {
		opts.MaxUpload = defaultMaxUpload
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Server{
		service:       service,
		sessionStore:  store,
		translator:    translator,
		eventLocation: opts.EventLocation,
		maxUpload:     opts.MaxUpload,
		now:           opts.Now,
	}
}

// Router creates and configures the HTTP router
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	// Public routes
	r.Get("/healthz", s.handleHealth)
	r.Post("/auth/admin", s.handleAdminLogin)
	r.Post("/auth/guest", s.handleGuestLogin)
	r.Post("/auth/logout", s.handleLogout)
	r.Post("/locale", s.handleSetLocale)
	r.Get("/api/ranks", s.handleRanks)

	// Guest routes
	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/api/me", s.handleMe)
		r.Get("/api/config", s.handleConfig)
		r.Get("/api/leaderboard", s.handleLeaderboard)

		// Challenge routes
		r.Post("/api/challenges/{challengeID}/submit", s.handleSubmit)
		r.Get("/api/challenges/{challengeID}/status", s.handleValidationStatus)

		// Deal routes
		r.Get("/api/deals/{dealID}/code", s.handleDealCode)

		// Booking routes
		r.Get("/api/vehicles/{vehicleID}/availability", s.handleAvailability)
		r.Post("/api/bookings", s.handleCreateBooking)
		r.Get("/api/bookings", s.handleListBookings)
		r.Post("/api/bookings/{bookingID}/confirm", s.handleConfirmBooking)
		r.Get("/api/bookings/{bookingID}/calendar", s.handleBookingCalendar)
	})

	// Admin routes
	r.Route("/admin", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Use(s.requireAdmin)

		r.Get("/export", s.handleExport)
		r.Put("/config", s.handleImport)
		r.Put("/theme", s.handleUpdateTheme)

		r.Post("/challenges", s.handleSaveChallenge)
		r.Put("/challenges/{id}", s.handleSaveChallenge)
		r.Delete("/challenges/{id}", s.handleDeleteChallenge)

		r.Post("/perks", s.handleSavePerk)
		r.Put("/perks/{id}", s.handleSavePerk)
		r.Delete("/perks/{id}", s.handleDeletePerk)

		r.Post("/deals", s.handleSaveDeal)
		r.Put("/deals/{id}", s.handleSaveDeal)
		r.Delete("/deals/{id}", s.handleDeleteDeal)

		r.Post("/vehicles", s.handleSaveVehicle)
		r.Put("/vehicles/{id}", s.handleSaveVehicle)
		r.Delete("/vehicles/{id}", s.handleDeleteVehicle)

		r.Get("/users", s.handleListUsers)
		r.Put("/users/{userID}/points", s.handleUpdatePoints)
		r.Delete("/users/{userID}", s.handleDeleteUser)

		r.Get("/bookings", s.handleAdminBookings)
	})

	return r
}

// detectLocale picks locale from session then Accept-Language with fallback to default.
func (s *Server) detectLocale(r *http.Request) string {
	if session, err := s.sessionStore.Get(r, sessionName); err == nil {
		if l, ok := session.Values[sessionLocaleKey].(string); ok && l != "" {
			return l
		}
	}
	return s.translator.Match(r.Header.Get("Accept-Language"))
}

// getUserID retrieves the user ID from the session
func (s *Server) getUserID(r *http.Request) (int64, bool) {
	session, err := s.sessionStore.Get(r, sessionName)
	if err != nil {
		log.WithError(err).Debug("session retrieval failed")
		return 0, false
	}

	userID, ok := session.Values[sessionUserIDKey].(int64)
	return userID, ok
}

// setUserID sets the user ID in the session
func (s *Server) setUserID(w http.ResponseWriter, r *http.Request, userID int64) error {
	session, err := s.sessionStore.Get(r, sessionName)
	if err != nil {
		return err
	}

	session.Values[sessionUserIDKey] = userID
	return session.Save(r, w)
}

// setLocale sets the preferred locale in session.
func (s *Server) setLocale(w http.ResponseWriter, r *http.Request, locale string) error {
	session, err := s.sessionStore.Get(r, sessionName)
	if err != nil {
		return err
	}
	session.Values[sessionLocaleKey] = locale
	return session.Save(r, w)
}

// clearSession clears the session
func (s *Server) clearSession(w http.ResponseWriter, r *http.Request) error {
	session, err := s.sessionStore.Get(r, sessionName)
	if err != nil {
		return err
	}

	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// requireAuth is middleware that ensures the session belongs to a known user
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.getUserID(r)
		if !ok {
			s.writeMessage(w, r, http.StatusUnauthorized, "error.unauthorized")
			return
		}
		if _, err := s.service.User(userID); err != nil {
			// The account was deleted while the cookie was still valid
			_ = s.clearSession(w, r)
			s.writeMessage(w, r, http.StatusUnauthorized, "error.unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdmin is middleware that ensures the session belongs to an administrator
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := s.getUserID(r)
		if !s.service.IsAdmin(userID) {
			log.WithField("user_id", userID).Warn("non-admin attempted admin route")
			s.writeMessage(w, r, http.StatusForbidden, "error.forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleHealth reports liveness and the last persistence failure
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"status": "ok"}
	if err := s.service.SaveStatus(); err != nil {
		status["saveError"] = err.Error()
	}
	writeJSON(w, http.StatusOK, status)
}

// handleSetLocale stores the locale in the session
func (s *Server) handleSetLocale(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Lang string `json:"lang"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeMessage(w, r, http.StatusBadRequest, "error.bad_request")
		return
	}
	lang := s.translator.Match(req.Lang)
	if err := s.setLocale(w, r, lang); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"lang": lang})
}
