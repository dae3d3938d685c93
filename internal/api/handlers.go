package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/starford/gpx2maps/internal/render"
	"github.com/starford/gpx2maps/internal/routeservice"
	"github.com/starford/gpx2maps/internal/scraper"
)

const (
	maxGPXBytes        = 20 << 20
	defaultMaxDistance = 10.0
)

// Handler holds API route handlers.
type Handler struct {
	svc *routeservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *routeservice.Service) *Handler {
	return &Handler{svc: svc}
}

// routePath extracts the library path from the URL wildcard.
// Supports encoded slashes from OpenAPI clients (e.g. belgium%2Floop.gpx).
func routePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// uploadName returns name with a .gpx extension, or a fresh upload_<uuid>.gpx
// when name is empty.
func uploadName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "upload_" + uuid.NewString() + ".gpx"
	}
	return routeservice.EnsureExt(name)
}

// ListRoutes handles GET /routes.
//
//	@Summary		List library routes with optional pagination and filtering
//	@Tags			routes
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			source	query		string	false	"Filter by source prefix"
//	@Param			sort	query		string	false	"Sort field"	Enums(updated_at, name, distance, path)
//	@Success		200		{object}	RouteListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/routes [get]
func (h *Handler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListRoutes(r.Context(), limit, offset, q.Get("source"), q.Get("sort"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, RouteListResponse{Routes: items, Total: total})
}

// GetRoute handles GET /routes/*.
//
//	@Summary		Get a parsed route by library path
//	@Tags			routes
//	@Produce		json
//	@Param			path	path		string	true	"Library path"
//	@Success		200		{object}	RouteDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/routes/{path} [get]
func (h *Handler) GetRoute(w http.ResponseWriter, r *http.Request) {
	path := routePath(r)
	d, err := h.svc.GetRoute(r.Context(), path)
	if err != nil {
		writeServiceError(w, "get route", path, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// CreateRoute handles POST /routes with a raw GPX body.
//
//	@Summary		Import a GPX document into the library
//	@Tags			routes
//	@Accept			application/gpx+xml
//	@Produce		json
//	@Param			name		query		string	false	"Library filename; generated when empty"
//	@Param			overwrite	query		bool	false	"Replace an existing file"
//	@Success		201			{object}	RouteDetail
//	@Failure		400			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/routes [post]
func (h *Handler) CreateRoute(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxGPXBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	if len(data) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("gpx body is required"))
		return
	}
	q := r.URL.Query()
	path := uploadName(q.Get("name"))
	overwrite, _ := strconv.ParseBool(q.Get("overwrite"))

	d, err := h.svc.ImportGPX(r.Context(), path, data, overwrite)
	if err != nil {
		writeServiceError(w, "create route", path, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// DeleteRoute handles DELETE /routes/*.
//
//	@Summary		Delete a route from the library
//	@Tags			routes
//	@Param			path	path	string	true	"Library path"
//	@Success		204		"Route deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/routes/{path} [delete]
func (h *Handler) DeleteRoute(w http.ResponseWriter, r *http.Request) {
	path := routePath(r)
	if err := h.svc.DeleteRoute(r.Context(), path); err != nil {
		writeServiceError(w, "delete route", path, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Download handles POST /downloads.
//
//	@Summary		Download a route from a supported website into the library
//	@Tags			routes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		DownloadRequest	true	"Route URL"
//	@Success		201		{object}	RouteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/downloads [post]
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.URL == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("url is required"))
		return
	}
	d, err := h.svc.Download(r.Context(), req.URL, req.Name, req.Overwrite)
	if err != nil {
		writeServiceError(w, "download route", req.URL, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// Link handles GET /links/*.
//
//	@Summary		Build the Google Maps walking directions link for a route
//	@Tags			convert
//	@Produce		json
//	@Param			path	path		string	true	"Library path"
//	@Success		200		{object}	LinkResponse
//	@Failure		404		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/links/{path} [get]
func (h *Handler) Link(w http.ResponseWriter, r *http.Request) {
	path := routePath(r)
	res, err := h.svc.Convert(r.Context(), path)
	if err != nil {
		writeServiceError(w, "convert route", path, err)
		return
	}
	writeJSON(w, http.StatusOK, LinkResponse{Path: path, Result: *res})
}

// GeoJSON handles GET /geojson/*.
//
//	@Summary		Export a route as a GeoJSON FeatureCollection
//	@Tags			convert
//	@Produce		application/geo+json
//	@Param			path	path	string	true	"Library path"
//	@Success		200
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/geojson/{path} [get]
func (h *Handler) GeoJSON(w http.ResponseWriter, r *http.Request) {
	path := routePath(r)
	data, err := h.svc.GeoJSON(r.Context(), path)
	if err != nil {
		writeServiceError(w, "geojson", path, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// QRCode handles GET /qr/*.
//
//	@Summary		Render the route's Google Maps link as a PNG QR code
//	@Description	Needs no API key; the link is built locally.
//	@Tags			convert
//	@Produce		image/png
//	@Param			path	path	string	true	"Library path"
//	@Param			size	query	int		false	"Edge length in pixels"
//	@Success		200
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/qr/{path} [get]
func (h *Handler) QRCode(w http.ResponseWriter, r *http.Request) {
	path := routePath(r)
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	link, img, err := h.svc.QRCode(r.Context(), path, min(size, 4096))
	if err != nil {
		writeServiceError(w, "qr code", path, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Maps-Link", link)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

// Preview handles GET /previews/*.
//
//	@Summary		Render a PNG preview of a route
//	@Tags			convert
//	@Produce		image/png
//	@Param			path	path	string	true	"Library path"
//	@Param			width	query	int		false	"Image width"
//	@Param			height	query	int		false	"Image height"
//	@Success		200
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/previews/{path} [get]
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	path := routePath(r)
	d, err := h.svc.GetRoute(r.Context(), path)
	if err != nil {
		writeServiceError(w, "preview", path, err)
		return
	}
	width, _ := strconv.Atoi(r.URL.Query().Get("width"))
	height, _ := strconv.Atoi(r.URL.Query().Get("height"))
	img, err := render.Preview(d.Route, render.Options{Width: min(width, 4096), Height: min(height, 4096), Title: d.Route.Name})
	if err != nil {
		writeServiceError(w, "preview", path, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if err := render.EncodePNG(w, img); err != nil {
		slog.Error("preview encode failed", slog.String("path", path), slog.String("error", err.Error()))
	}
}

// Search handles GET /search.
//
//	@Summary		Full-text search across the library
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.SearchLibrary(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// SearchSources handles GET /sources/search.
//
//	@Summary		Search route websites for listings
//	@Tags			search
//	@Produce		json
//	@Param			location	query		string	false	"Location to search around"
//	@Param			distance	query		number	false	"Maximum distance in km"
//	@Param			source		query		string	false	"Source name or all"	Enums(all, routeyou, wikiloc, malmedy)
//	@Param			prefix		query		string	false	"Required title prefix"
//	@Success		200			{object}	SourceSearchResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sources/search [get]
func (h *Handler) SearchSources(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := scraper.Query{
		Location:      q.Get("location"),
		MaxDistanceKm: defaultMaxDistance,
		Prefix:        q.Get("prefix"),
	}
	if raw := q.Get("distance"); raw != "" {
		d, err := strconv.ParseFloat(raw, 64)
		if err != nil || d <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("distance must be a positive number"))
			return
		}
		query.MaxDistanceKm = d
	}

	results, err := h.svc.SearchSources(r.Context(), q.Get("source"), query)
	if err != nil {
		writeServiceError(w, "search sources", "", err)
		return
	}
	resp := SourceSearchResponse{Sources: make([]SourceListings, 0, len(results))}
	for _, res := range results {
		sl := SourceListings{Source: res.Source, Listings: res.Listings}
		if res.Err != nil {
			sl.Error = res.Err.Error()
		}
		resp.Total += len(res.Listings)
		resp.Sources = append(resp.Sources, sl)
	}
	writeJSON(w, http.StatusOK, resp)
}
