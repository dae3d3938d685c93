package api

import (
	"github.com/starford/gpx2maps/internal/index"
	"github.com/starford/gpx2maps/internal/mapslink"
	"github.com/starford/gpx2maps/internal/models"
	"github.com/starford/gpx2maps/internal/routeservice"
)

// DownloadRequest is the request body for fetching a route from a website.
type DownloadRequest struct {
	URL       string `json:"url" example:"https://www.routeyou.com/en-be/route/view/1234" validate:"required"`
	Name      string `json:"name,omitempty" example:"warche-loop.gpx"`
	Overwrite bool   `json:"overwrite,omitempty"`
}

// RouteDetail is the full route response type (aliased from the domain layer).
type RouteDetail = routeservice.RouteDetail

// LibraryEntry is a lightweight item in a list response.
type LibraryEntry = models.LibraryEntry

// RouteListResponse wraps paginated route listings.
type RouteListResponse struct {
	Routes []LibraryEntry `json:"routes" validate:"required"`
	Total  int            `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps library search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// SourceListings is one website's answer in a source search.
type SourceListings struct {
	Source   string           `json:"source" example:"routeyou" validate:"required"`
	Listings []models.Listing `json:"listings" validate:"required"`
	Error    string           `json:"error,omitempty"`
}

// SourceSearchResponse wraps a multi-site search.
type SourceSearchResponse struct {
	Sources []SourceListings `json:"sources" validate:"required"`
	Total   int              `json:"total" example:"7" validate:"required"`
}

// LinkResponse is a generated Google Maps link.
type LinkResponse struct {
	Path string `json:"path" example:"routeyou_1234.gpx" validate:"required"`
	mapslink.Result
}
