// Package server exposes the archive's HTTP control surface.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"archivarr/internal/broadcast"
	"archivarr/internal/contracts"
	"archivarr/internal/jobs"
	"archivarr/internal/logging"
	"archivarr/internal/scheduler"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

var (
	store   contracts.Store
	hub     *broadcast.Hub
	manager *jobs.Manager
	sched   *scheduler.Scheduler
)

// NewRouter returns an http Handler over the injected components.
func NewRouter(s contracts.Store, h *broadcast.Hub, m *jobs.Manager, sc *scheduler.Scheduler) http.Handler {
	// Inject components
	store = s
	hub = h
	manager = m
	sched = sc

	// Initialize router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// --- API Routes ---
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/sync", func(r chi.Router) {
			r.Post("/start", handleSyncStart)
			r.Post("/stop", handleSyncStop)
			r.Get("/status", handleSyncStatus)
			r.Get("/config", handleGetSyncConfig)
			r.Put("/config", handleUpdateSyncConfig)
			r.Get("/history", handleSyncHistory)
		})

		r.Route("/queue", func(r chi.Router) {
			r.Get("/", handleListQueue)
			r.Delete("/{id}", handleDeleteQueueItem)
		})

		r.Route("/errors", func(r chi.Router) {
			r.Get("/", handleListErrors)
			r.Delete("/", handleClearErrors)
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", handleEventStream)
			r.Post("/{id}/ping", handleEventPing)
		})

		r.Route("/channels", func(r chi.Router) {
			r.Get("/", handleListChannels)
			r.Post("/", handleCreateChannel)
			r.Get("/{id}", handleGetChannel)
			r.Get("/{id}/videos", handleListChannelVideos)
			r.Put("/{id}", handleUpdateChannel)
			r.Delete("/{id}", handleDeleteChannel)
		})
	})

	return r
}

// StartServer runs the HTTP server until ctx ends, then drains it.
func StartServer(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.S("Archivarr web server running on http://localhost%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
