// Package server exposes the relay, the card stores, and the auth keeper
// over a local HTTP API. The browser extension is the only intended client,
// so every endpoint speaks JSON and CORS is wide open by default.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/lingomark/lingomark"
	"github.com/lingomark/lingomark/auth"
)

// Setting keys persisted through the SettingsStore. The daemon reads them
// back on startup to restore the last configuration.
const (
	SettingEnabled    = "enabled"
	SettingTargetLang = "target_lang"
	SettingRememberMe = "remember_me"
)

// SettingsStore persists user preferences across restarts.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// SessionKeeper is the slice of the auth keeper the HTTP layer uses.
type SessionKeeper interface {
	SignIn(ctx context.Context, email, password string) (*auth.Session, error)
	SignOut(ctx context.Context) error
	Session() (*auth.Session, error)
	Refresh(ctx context.Context) error
	SetRemember(ctx context.Context, on bool)
	Remember() bool
	Authenticated() bool
}

// PackageExporter writes a set of records as an Anki-importable package.
type PackageExporter interface {
	Export(w io.Writer, recs []lingomark.Record) error
}

// Config carries the collaborators a Server needs. Relay and Cards are
// required; the rest degrade gracefully when nil.
type Config struct {
	Relay    *lingomark.Relay
	Cards    lingomark.CardStore
	Keeper   SessionKeeper
	Settings SettingsStore
	Apkg     PackageExporter

	// AllowedOrigins restricts CORS. Empty means any origin, which suits
	// a loopback daemon talking to a browser extension.
	AllowedOrigins []string

	Logger *slog.Logger
}

// Server routes extension requests to the relay and stores.
type Server struct {
	relay    *lingomark.Relay
	cards    lingomark.CardStore
	keeper   SessionKeeper
	settings SettingsStore
	apkg     PackageExporter
	origins  []string
	logger   *slog.Logger
}

// New assembles a Server from its collaborators.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		relay:    cfg.Relay,
		cards:    cfg.Cards,
		keeper:   cfg.Keeper,
		settings: cfg.Settings,
		apkg:     cfg.Apkg,
		origins:  origins,
		logger:   logger,
	}
}

// Handler builds the routing table and wraps it in CORS middleware.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/translate", s.handleTranslate).Methods(http.MethodPost)
	api.HandleFunc("/records", s.handleListRecords).Methods(http.MethodGet)
	api.HandleFunc("/records", s.handleDeleteByHost).Methods(http.MethodDelete).Queries("host", "{host}")
	api.HandleFunc("/records/{id}", s.handleDeleteRecord).Methods(http.MethodDelete)
	api.HandleFunc("/groups", s.handleGroups).Methods(http.MethodGet)
	api.HandleFunc("/review", s.handleReview).Methods(http.MethodGet)
	api.HandleFunc("/export", s.handleExport).Methods(http.MethodGet)
	api.HandleFunc("/export/apkg", s.handleExportApkg).Methods(http.MethodPost)
	api.HandleFunc("/import", s.handleImport).Methods(http.MethodPost)
	api.HandleFunc("/settings", s.handleGetSettings).Methods(http.MethodGet)
	api.HandleFunc("/settings", s.handlePutSettings).Methods(http.MethodPut)
	api.HandleFunc("/auth/signin", s.handleSignIn).Methods(http.MethodPost)
	api.HandleFunc("/auth/signout", s.handleSignOut).Methods(http.MethodPost)
	api.HandleFunc("/auth/session", s.handleSessionInfo).Methods(http.MethodGet)
	api.HandleFunc("/auth/refresh", s.handleRefresh).Methods(http.MethodPost)

	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	})
	return c.Handler(r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start))
	})
}

func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respond(w, status, map[string]string{"error": msg})
}

// respondStoreError maps card store failures onto API status codes.
func (s *Server) respondStoreError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, lingomark.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "record not found")
	case errors.Is(err, lingomark.ErrNoSession):
		s.respondError(w, http.StatusUnauthorized, "no active session")
	default:
		s.logger.Error("store operation failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, fallback)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": lingomark.Version,
	})
}
