package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/owaso30/ManualApp/internal/logger"
	"github.com/owaso30/ManualApp/internal/metrics"
	appmiddleware "github.com/owaso30/ManualApp/internal/middleware"
	"github.com/owaso30/ManualApp/internal/service"
	"github.com/owaso30/ManualApp/internal/session"
)

// Handlers bundles the HTTP handlers the router mounts.
type Handlers struct {
	Auth     *AuthHandler
	Mode     *ModeHandler
	Group    *GroupHandler
	Category *CategoryHandler
	Manual   *ManualHandler
	Content  *ContentHandler
}

// NewRouter creates and configures a new chi router.
func NewRouter(h Handlers, sessions session.Manager, authz func(http.Handler) http.Handler, log logger.Logger) *chi.Mux {
	r := chi.NewRouter()

	// A good base middleware stack
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(instrument)

	r.Use(sessions.LoadAndSave)
	r.Use(authz)
	r.Use(service.ModeCacheMiddleware)

	eh := appmiddleware.Error(log)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method("GET", "/metrics", promhttp.Handler())

	// Authentication routes
	r.Get("/auth/login", h.Auth.handleLogin)
	r.Get("/auth/callback", h.Auth.handleCallback)
	r.Get("/auth/logout", h.Auth.handleLogout)

	r.Route("/api", func(r chi.Router) {
		r.Method("GET", "/mode", eh(h.Mode.get))
		r.Method("PUT", "/mode", eh(h.Mode.set))

		r.Route("/groups", func(r chi.Router) {
			r.Method("POST", "/", eh(h.Group.create))
			r.Method("GET", "/current", eh(h.Group.current))
			r.Method("POST", "/join", eh(h.Group.join))
			r.Method("GET", "/requests", eh(h.Group.pendingRequests))
			r.Method("POST", "/requests/{requestID}", eh(h.Group.processRequest))
			r.Method("POST", "/leave", eh(h.Group.leave))
			r.Method("GET", "/{groupID}", eh(h.Group.get))
			r.Method("DELETE", "/{groupID}", eh(h.Group.delete))
			r.Method("GET", "/{groupID}/members", eh(h.Group.members))
			r.Method("DELETE", "/{groupID}/members/{userID}", eh(h.Group.removeMember))
			r.Method("PUT", "/{groupID}/members/{userID}", eh(h.Group.updatePermission))
		})

		r.Route("/categories", func(r chi.Router) {
			r.Method("GET", "/", eh(h.Category.list))
			r.Method("POST", "/", eh(h.Category.create))
			r.Method("GET", "/{categoryID}", eh(h.Category.get))
			r.Method("PUT", "/{categoryID}", eh(h.Category.update))
			r.Method("DELETE", "/{categoryID}", eh(h.Category.delete))
			r.Method("POST", "/{categoryID}/transfer", eh(h.Category.transfer))
		})

		r.Route("/manuals", func(r chi.Router) {
			r.Method("GET", "/", eh(h.Manual.list))
			r.Method("POST", "/", eh(h.Manual.create))
			r.Method("GET", "/{manualID}", eh(h.Manual.get))
			r.Method("PUT", "/{manualID}", eh(h.Manual.update))
			r.Method("DELETE", "/{manualID}", eh(h.Manual.delete))
			r.Method("POST", "/{manualID}/transfer", eh(h.Manual.transfer))
			r.Method("GET", "/{manualID}/export", eh(h.Manual.export))
			r.Method("GET", "/{manualID}/contents", eh(h.Content.listByManual))
			r.Method("POST", "/{manualID}/contents", eh(h.Content.add))
		})

		r.Route("/contents", func(r chi.Router) {
			r.Method("PUT", "/{contentID}", eh(h.Content.updateText))
			r.Method("DELETE", "/{contentID}", eh(h.Content.delete))
			r.Method("POST", "/{contentID}/move", eh(h.Content.move))
			r.Method("POST", "/{contentID}/image", eh(h.Content.attachImage))
			r.Method("DELETE", "/{contentID}/image", eh(h.Content.removeImage))
		})
	})

	return r
}

// instrument records request durations labeled by route pattern.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		metrics.ObserveRequest(r.Method, route, ww.Status(), time.Since(start))
	})
}
