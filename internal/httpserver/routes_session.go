// internal/httpserver/routes_session.go
//
// HTTP routes for live game sessions, mounted under /sessions:
//   - POST /sessions               → start a session (guest or signed-in)
//   - GET  /sessions/{id}          → current view
//   - POST /sessions/{id}/move     → record avatar position {x, y}
//   - POST /sessions/{id}/interact → touch an appliance {appliance}
//   - POST /sessions/{id}/pause    → pause
//   - POST /sessions/{id}/resume   → resume
//   - POST /sessions/{id}/quit     → finalize, persist, drop; returns the snapshot
//
// Sessions live in the session.Manager; guests get the trial timer and are
// never persisted.

package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hychen958/Water-trekkie-gov/internal/auth"
	"github.com/hychen958/Water-trekkie-gov/internal/game"
)

type startReq struct {
	CharacterID int `json:"characterId" validate:"gte=0"`
}

type moveReq struct {
	X *float64 `json:"x" validate:"required"`
	Y *float64 `json:"y" validate:"required"`
}

type interactReq struct {
	Appliance string `json:"appliance" validate:"required,max=64"`
}

// mountSessions registers all /sessions routes.
func (s *Server) mountSessions(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handleStartSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Post("/move", s.handleMove)
			r.Post("/interact", s.handleInteract)
			r.Post("/pause", s.handlePause)
			r.Post("/resume", s.handleResume)
			r.Post("/quit", s.handleQuit)
		})
	})
}

// decodeBody decodes an optional JSON body and validates it.
func decodeBody(r *http.Request, dst any, optional bool) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if !(optional && errors.Is(err, io.EOF)) {
			return errors.New("invalid_json")
		}
	}
	return validate.Struct(dst)
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var body startReq
	if err := decodeBody(r, &body, true); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	v, err := s.deps.Sessions.Start(r.Context(), auth.FromContext(r.Context()), body.CharacterID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	v, err := s.deps.Sessions.Get(auth.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var body moveReq
	if err := decodeBody(r, &body, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pos := game.Position{X: *body.X, Y: *body.Y}
	v, err := s.deps.Sessions.Move(auth.FromContext(r.Context()), chi.URLParam(r, "id"), pos)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleInteract(w http.ResponseWriter, r *http.Request) {
	var body interactReq
	if err := decodeBody(r, &body, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ev, v, err := s.deps.Sessions.Interact(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"), body.Appliance)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"event": ev, "session": v})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	v, err := s.deps.Sessions.Pause(auth.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	v, err := s.deps.Sessions.Resume(auth.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleQuit(w http.ResponseWriter, r *http.Request) {
	final, err := s.deps.Sessions.Quit(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, final)
}
