// Package web exposes the local inspection and chat API: health, metrics,
// a profile read endpoint and a direct chat route that goes through the
// exact same decision flow as the platform listeners.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tosachii/ryosa/internal/core"
	"github.com/tosachii/ryosa/internal/service/brain"
	"github.com/tosachii/ryosa/pkg/log"
)

// Decider is the slice of the brain the API needs.
type Decider interface {
	Handle(ctx context.Context, event core.ChatEvent) brain.Result
}

type Server struct {
	addr    string
	engine  Decider
	store   core.Store
	metrics *Metrics
	started time.Time
	http    *http.Server
}

func NewServer(addr string, engine Decider, store core.Store, metrics *Metrics) *Server {
	s := &Server{
		addr:    addr,
		engine:  engine,
		store:   store,
		metrics: metrics,
		started: time.Now().UTC(),
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Get("/metrics", s.metrics.Handler().ServeHTTP)
	r.Post("/v1/chat", s.handleChat)
	r.Get("/v1/users/{id}", s.handleGetUser)

	return r
}

func (s *Server) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Str("addr", s.addr).Msg("starting web api")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"name":           core.BotName,
		"version":        core.Version,
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	})
}

type chatRequest struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Text        string `json:"text"`
	Channel     string `json:"channel"`
}

type chatResponse struct {
	Outcome string `json:"outcome"`
	Reply   string `json:"reply,omitempty"`
	Reason  string `json:"reason"`
}

// handleChat runs one message through the full decision flow. Meant for
// poking the persona locally; rate limits and memory apply exactly as on
// the platforms.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "user_id and text are required")
		return
	}
	if req.Channel == "" {
		req.Channel = "web"
	}

	result := s.engine.Handle(r.Context(), core.ChatEvent{
		UserID:      req.UserID,
		DisplayName: req.DisplayName,
		Platform:    core.PlatformWeb,
		Channel:     req.Channel,
		Text:        req.Text,
		Timestamp:   time.Now().UTC(),
	})
	if result.Reply != "" {
		s.metrics.ObserveReply(core.PlatformWeb, result.Reply)
	}

	respondJSON(w, http.StatusOK, chatResponse{
		Outcome: string(result.Outcome),
		Reply:   result.Reply,
		Reason:  result.Reason,
	})
}

type userResponse struct {
	UserID           string   `json:"user_id"`
	DisplayName      string   `json:"display_name"`
	Platform         string   `json:"platform"`
	InteractionCount int      `json:"interaction_count"`
	Affinity         string   `json:"affinity"`
	Notes            []string `json:"notes"`
	FirstSeen        string   `json:"first_seen"`
	LastSeen         string   `json:"last_seen"`
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id := core.NormalizeUserID(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_user_id", "missing user id")
		return
	}

	profile, found, err := s.store.GetUser(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "storage_unavailable", "profile store is unreachable")
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "user_not_found", "no profile for "+id)
		return
	}

	respondJSON(w, http.StatusOK, userResponse{
		UserID:           profile.UserID,
		DisplayName:      profile.DisplayName,
		Platform:         string(profile.Platform),
		InteractionCount: profile.InteractionCount,
		Affinity:         string(profile.Affinity()),
		Notes:            profile.Notes,
		FirstSeen:        profile.FirstSeen.UTC().Format(time.RFC3339),
		LastSeen:         profile.LastSeen.UTC().Format(time.RFC3339),
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
