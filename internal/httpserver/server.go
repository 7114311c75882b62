// internal/httpserver/server.go
//
// HTTP server wiring for the Water Trek backend.
// Responsibilities:
//   - Router + middleware (request IDs, access log, panic recovery, timeouts,
//     JSON, CORS).
//   - Public endpoints: "/", "/health", "/metrics", "/limit", "/catalog",
//     "/characters".
//   - Account endpoints: POST /register, POST /login (rate limited per IP).
//   - Saved game endpoints (require auth): GET /game/load, POST /game/save.
//   - Live session endpoints (optional auth): mounted under /sessions.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled.
//   - Optional auth decorates requests with the caller's Identity when a valid
//     token is present; guests still get through.
//   - Errors are JSON bodies of the form {"error": "..."}.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/hychen958/Water-trekkie-gov/internal/auth"
	"github.com/hychen958/Water-trekkie-gov/internal/catalog"
	"github.com/hychen958/Water-trekkie-gov/internal/character"
	"github.com/hychen958/Water-trekkie-gov/internal/game"
	"github.com/hychen958/Water-trekkie-gov/internal/limit"
	"github.com/hychen958/Water-trekkie-gov/internal/session"
	"github.com/hychen958/Water-trekkie-gov/internal/store"
)

// Deps are the services the handlers call into.
type Deps struct {
	Auth     *auth.Service
	States   store.Store
	Sessions *session.Manager
	Limits   limit.Provider
	Catalog  *catalog.Catalog
}

// Options tune transport behavior. Zero values pick defaults.
type Options struct {
	ClientOrigin      string        // CORS origin, default http://localhost:3000
	AuthRatePerMinute int           // register/login attempts per client IP, default 10
	RequestTimeout    time.Duration // default 10s
}

// Server bundles the router and its dependencies.
type Server struct {
	r       *chi.Mux
	deps    Deps
	limiter *ipLimiter
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps, o Options) *Server {
	if o.ClientOrigin == "" {
		o.ClientOrigin = "http://localhost:3000"
	}
	if o.AuthRatePerMinute <= 0 {
		o.AuthRatePerMinute = 10
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 10 * time.Second
	}
	s := &Server{
		r:       chi.NewRouter(),
		deps:    d,
		limiter: newIPLimiter(o.AuthRatePerMinute),
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(hlog.NewHandler(log.Logger))
	s.r.Use(hlog.AccessHandler(accessLog))
	s.r.Use(chimw.Recoverer)
	s.r.Use(chimw.Timeout(o.RequestTimeout))
	s.r.Use(jsonContentType)
	s.r.Use(cors(o.ClientOrigin))

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"watertrek","endpoints":["/health","/limit","/catalog","/characters","POST /register","POST /login","/game/*","/sessions/*"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.Handle("/metrics", promhttp.Handler())

	// Reference data
	s.r.Get("/limit", s.handleLimit)
	s.r.Get("/catalog", s.handleCatalog)
	s.r.Get("/characters", s.handleCharacters)

	// Accounts and saved games
	s.mountAccountRoutes()

	// Live sessions (optional auth: guests play in trial mode)
	s.mountSessions(s.r.With(d.Auth.OptionalAuth))

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Handler exposes the router as an http.Handler.
func (s *Server) Handler() http.Handler { return s.r }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

func accessLog(r *http.Request, status, size int, d time.Duration) {
	hlog.FromRequest(r).Info().
		Str("request_id", chimw.GetReqID(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", d).
		Msg("request")
}

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for a single origin.
func cors(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ------------------------------ helpers ------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps domain errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, session.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, session.ErrLimitUnavailable):
		writeError(w, http.StatusServiceUnavailable, "daily limit unavailable")
	case errors.Is(err, game.ErrIllegalTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrUnknownAppliance), errors.Is(err, character.ErrUnknownCharacter):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "server error")
	}
}

// ---------------------------- reference data -------------------------------

func (s *Server) handleLimit(w http.ResponseWriter, r *http.Request) {
	v, err := s.deps.Limits.DailyLimit(r.Context())
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("daily limit")
		writeError(w, http.StatusServiceUnavailable, "daily limit unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"dailyLimit": v})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Catalog.All())
}

func (s *Server) handleCharacters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, character.Roster())
}
