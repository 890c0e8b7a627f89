// Package api provides the HTTP API for playing sessions.
// Session endpoints are public; reset and speed require a bearer token.
// Clients either poll a session or hold a websocket on its stream endpoint.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/talgya/wellspring/internal/catalog"
	"github.com/talgya/wellspring/internal/engine"
	"github.com/talgya/wellspring/internal/persistence"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// Server serves sessions over HTTP.
type Server struct {
	Hub         *engine.Hub
	Eng         *engine.Engine
	Store       persistence.Store // nil disables the event log endpoint
	Port        int
	AdminKey    string // Bearer token for admin endpoints. Empty = admin endpoints disabled.
	CORSOrigins []string
	RatePerSec  float64 // <= 0 disables rate limiting
	RateBurst   int

	srv *http.Server
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(corsMiddleware(s.CORSOrigins))
	if s.RatePerSec > 0 {
		r.Use(RateLimitMiddleware(NewRateLimiter(s.RatePerSec, max(1, s.RateBurst))))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/catalog", s.handleCatalog)
		r.With(s.adminOnly).Post("/speed", s.handleSpeed)

		r.Post("/sessions", s.handleCreate)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleSnapshot)
			r.Get("/events", s.handleEvents)
			r.Get("/stream", s.handleStream)
			r.Post("/actions/{action}", s.handleAction)
			r.Post("/buildings/{building}", s.handleBuyBuilding)
			r.Post("/upgrades/{upgrade}", s.handleBuyUpgrade)
			r.Post("/pause", s.handlePause)
			r.Post("/resume", s.handleResume)
			r.Post("/save", s.handleSave)
			r.With(s.adminOnly).Post("/reset", s.handleReset)
		})
	})
	return r
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	s.srv = &http.Server{Addr: addr, Handler: s.Handler()}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// corsMiddleware adds CORS headers for allowed frontend origins. "*" allows any origin.
func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	allowAll := false
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowAll || allowed[origin]) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Add("Vary", "Origin")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			writeError(w, http.StatusForbidden, "admin endpoints disabled (no WELLSPRING_ADMIN_KEY set)")
			return
		}
		if !s.checkBearerToken(r) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"sessions": len(s.Hub.Live()),
	}
	if s.Eng != nil {
		status["tick"] = s.Eng.CurrentTick()
		status["interval"] = s.Eng.Interval.String()
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"buildings": catalog.Buildings(),
		"upgrades":  catalog.Upgrades(),
		"events":    catalog.Events(),
		"actions":   engine.ActionKinds(),
	})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if s.Eng == nil {
		writeError(w, http.StatusServiceUnavailable, "engine not running")
		return
	}
	var req struct {
		Speed float64 `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Speed < 0 || req.Speed > 100 {
		writeError(w, http.StatusBadRequest, "speed must be between 0 and 100")
		return
	}
	s.Eng.SetSpeed(req.Speed)
	slog.Info("speed changed", "speed", req.Speed)
	writeJSON(w, http.StatusOK, map[string]any{"speed": req.Speed})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	sess := s.Hub.Create()
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

// session resolves the {id} path parameter, writing the error response when it fails.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*engine.Session, bool) {
	sess, err := s.Hub.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

type actionResponse struct {
	Applied bool            `json:"applied"`
	State   engine.Snapshot `json:"state"`
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, a engine.Action) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	applied, err := sess.Dispatch(a)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Applied: applied, State: sess.Snapshot()})
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	kind := engine.ActionKind(chi.URLParam(r, "action"))
	if kind == engine.BuyBuilding || kind == engine.BuyUpgrade {
		writeError(w, http.StatusNotFound, fmt.Sprintf("use the buildings or upgrades endpoint for %s", kind))
		return
	}
	s.dispatch(w, r, engine.Action{Kind: kind})
}

func (s *Server) handleBuyBuilding(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, engine.Action{Kind: engine.BuyBuilding, Target: chi.URLParam(r, "building")})
}

func (s *Server) handleBuyUpgrade(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, engine.Action{Kind: engine.BuyUpgrade, Target: chi.URLParam(r, "upgrade")})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	saved := true
	if err := s.Hub.Pause(r.Context(), sess); err != nil {
		slog.Error("save before pause failed", "session", sess.ID, "error", err)
		saved = false
	}
	writeJSON(w, http.StatusOK, map[string]any{"paused": true, "saved": saved})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Resume()
	writeJSON(w, http.StatusOK, map[string]any{"paused": false})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := s.Hub.Save(r.Context(), sess); err != nil {
		slog.Error("manual save failed", "session", sess.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "save failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"saved": true})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Reset()
	slog.Info("session reset", "session", sess.ID)
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	limit := defaultEventLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxEventLimit)
	}

	events := []engine.Event{}
	if s.Store != nil {
		var err error
		events, err = s.Store.RecentEvents(r.Context(), sess.ID, limit)
		if err != nil {
			slog.Error("event log read failed", "session", sess.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "event log unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, events)
}

// writeErr maps domain errors to status codes.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidIdentifier), errors.Is(err, engine.ErrUnknownSession):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
