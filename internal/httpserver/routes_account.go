// internal/httpserver/routes_account.go
//
// Account and saved-game routes:
//   - POST /register   → create an account (201, 409 duplicate, 400 invalid)
//   - POST /login      → exchange credentials for a bearer token
//   - GET  /game/load  → the caller's saved snapshot (404 if none)
//   - POST /game/save  → create or overwrite the caller's snapshot
//
// Register and login are rate limited per client IP.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/hlog"

	"github.com/hychen958/Water-trekkie-gov/internal/auth"
	"github.com/hychen958/Water-trekkie-gov/internal/character"
	"github.com/hychen958/Water-trekkie-gov/internal/game"
	"github.com/hychen958/Water-trekkie-gov/internal/store"
)

var validate = validator.New()

type registerReq struct {
	Name     string `json:"name" validate:"required,max=64"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// saveReq mirrors game.State as the client sends it.
type saveReq struct {
	DailyLimit        float64              `json:"dailyLimit" validate:"gte=0"`
	WaterUsage        float64              `json:"waterUsage" validate:"gte=0"`
	ClickCount        int                  `json:"clickCount" validate:"gte=0,lte=10"`
	Score             float64              `json:"score"`
	CharacterPosition game.Position        `json:"characterPosition"`
	SelectedCharacter character.Appearance `json:"selectedCharacter"`
	Outcome           game.Outcome         `json:"outcome" validate:"omitempty,oneof=in_progress won lost trial_expired"`
}

// mountAccountRoutes registers /register, /login and the gated /game routes.
func (s *Server) mountAccountRoutes() {
	s.r.With(s.limiter.Middleware).Post("/register", s.handleRegister)
	s.r.With(s.limiter.Middleware).Post("/login", s.handleLogin)

	s.r.Route("/game", func(r chi.Router) {
		r.Use(s.deps.Auth.RequireAuth)
		r.Get("/load", s.handleLoad)
		r.Post("/save", s.handleSave)
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body registerReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := s.deps.Auth.Register(r.Context(), body.Name, body.Email, body.Password)
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		writeError(w, http.StatusConflict, "User already exists")
		return
	case errors.Is(err, auth.ErrInvalidRegistration):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		hlog.FromRequest(r).Error().Err(err).Msg("register")
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	hlog.FromRequest(r).Info().Str("user", u.ID).Msg("user registered")
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully",
		"user":    u,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tok, exp, err := s.deps.Auth.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		hlog.FromRequest(r).Error().Err(err).Msg("login")
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Login successful",
		"token":     tok,
		"expiresAt": exp,
	})
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	me := auth.FromContext(r.Context())
	st, err := s.deps.States.Load(r.Context(), me.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "No game state found")
			return
		}
		hlog.FromRequest(r).Error().Err(err).Str("user", me.UserID).Msg("load game state")
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	me := auth.FromContext(r.Context())
	var body saveReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := character.Validate(body.SelectedCharacter); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Outcome == "" {
		body.Outcome = game.OutcomeInProgress
	}

	st := &game.State{
		OwnerID:      me.UserID,
		DailyLimit:   body.DailyLimit,
		Usage:        body.WaterUsage,
		Interactions: body.ClickCount,
		Score:        body.DailyLimit - body.WaterUsage,
		Position:     body.CharacterPosition,
		Appearance:   body.SelectedCharacter,
		Outcome:      body.Outcome,
	}
	if err := s.deps.States.Save(r.Context(), me.UserID, st); err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("user", me.UserID).Msg("save game state")
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Game state saved successfully"})
}
