// Package server exposes the auth and wellness services over JSON/HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jghoshh/bienestar/backend/metrics"
	"github.com/jghoshh/bienestar/backend/server/auth"
	"github.com/jghoshh/bienestar/backend/wellness"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Options configure the router.
type Options struct {
	RateLimitRPS   float64
	RateLimitBurst int
	// AccessLog receives Apache style access logs. Nil disables them.
	AccessLog io.Writer
}

type Server struct {
	auth     *auth.Service
	wellness *wellness.Service
	logger   *zap.Logger
	handler  http.Handler
}

func New(authSvc *auth.Service, wellnessSvc *wellness.Service, logger *zap.Logger, opts Options) *Server {
	s := &Server{auth: authSvc, wellness: wellnessSvc, logger: logger}
	s.handler = s.routes(opts)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes(opts Options) http.Handler {
	r := mux.NewRouter()
	r.Use(s.recoveryMiddleware, metrics.Middleware)

	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	limiter := NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst, s.logger)

	public := api.PathPrefix("/auth").Subrouter()
	public.Use(limiter.Handler)
	public.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	public.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	public.HandleFunc("/federated", s.handleFederated).Methods(http.MethodPost)
	public.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)
	public.HandleFunc("/signout", s.handleSignOut).Methods(http.MethodPost)
	public.HandleFunc("/password-reset", s.handlePasswordReset).Methods(http.MethodPost)
	public.HandleFunc("/password-reset/confirm", s.handlePasswordResetConfirm).Methods(http.MethodPost)

	private := api.NewRoute().Subrouter()
	private.Use(s.jwtMiddleware, limiter.Handler)

	private.HandleFunc("/me", s.handleMe).Methods(http.MethodGet)
	private.HandleFunc("/me", s.handleUpdateMe).Methods(http.MethodPatch)
	private.HandleFunc("/me", s.handleDeleteMe).Methods(http.MethodDelete)

	private.HandleFunc("/records/today", s.handleSaveRecord).Methods(http.MethodPut)
	private.HandleFunc("/records/today", s.handleTodayRecord).Methods(http.MethodGet)
	private.HandleFunc("/records", s.handleRecords).Methods(http.MethodGet)

	private.HandleFunc("/medical", s.handleMedical).Methods(http.MethodGet)
	private.HandleFunc("/medical", s.handleSaveMedical).Methods(http.MethodPut)

	private.HandleFunc("/activities", s.handleSaveActivity).Methods(http.MethodPost)
	private.HandleFunc("/activities", s.handleActivities).Methods(http.MethodGet)
	private.HandleFunc("/activities/{id}", s.handleDeleteActivity).Methods(http.MethodDelete)

	private.HandleFunc("/reminders", s.handleSaveReminder).Methods(http.MethodPost)
	private.HandleFunc("/reminders", s.handleReminders).Methods(http.MethodGet)
	private.HandleFunc("/reminders/{id}/toggle", s.handleToggleReminder).Methods(http.MethodPost)
	private.HandleFunc("/reminders/{id}", s.handleDeleteReminder).Methods(http.MethodDelete)

	private.HandleFunc("/goals", s.handleGoals).Methods(http.MethodGet)
	private.HandleFunc("/goals", s.handleSaveGoals).Methods(http.MethodPut)

	private.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	private.HandleFunc("/statistics", s.handleStatistics).Methods(http.MethodGet)
	private.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	private.HandleFunc("/home", s.handleHome).Methods(http.MethodGet)

	corsOrigins := handlers.AllowedOrigins([]string{"*"})
	corsMethods := handlers.AllowedMethods([]string{"GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	corsHeaders := handlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type", "Authorization"})
	var h http.Handler = handlers.CORS(corsOrigins, corsMethods, corsHeaders)(r)

	if opts.AccessLog != nil {
		h = handlers.LoggingHandler(opts.AccessLog, h)
	}
	return h
}

// ListenAndServe serves h on addr until ctx is cancelled, then shuts down
// gracefully.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Handler:      h,
		Addr:         addr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
