package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/gpx2maps/internal/routeservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *routeservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Library.
	r.Get("/routes", h.ListRoutes)
	r.Post("/routes", h.CreateRoute)
	r.Get("/routes/*", h.GetRoute)
	r.Delete("/routes/*", h.DeleteRoute)
	r.Post("/uploads", h.Upload)
	r.Post("/downloads", h.Download)

	// Conversions.
	r.Get("/links/*", h.Link)
	r.Get("/geojson/*", h.GeoJSON)
	r.Get("/previews/*", h.Preview)
	r.Get("/qr/*", h.QRCode)

	// Search.
	r.Get("/search", h.Search)
	r.Get("/sources/search", h.SearchSources)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
