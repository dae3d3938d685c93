// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes gpx2maps tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/gpx2maps/internal/routeservice"
	"github.com/starford/gpx2maps/internal/scraper"
)

const (
	conventionsURI     = "gpx2maps://library-conventions"
	defaultMaxDistance = 10.0
	defaultListLimit   = 100
)

// Server wraps the MCP server with gpx2maps tools.
type Server struct {
	mcp *server.MCPServer
	svc *routeservice.Service
}

// New creates a new MCP server with all gpx2maps tools registered.
func New(svc *routeservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"gpx2maps",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_sources",
		mcp.WithDescription("Search hiking route websites (RouteYou, Wikiloc, Malmedy Tourism) for route listings."),
		mcp.WithString("location", mcp.Description("Location to search around (e.g. Malmedy)")),
		mcp.WithNumber("distance", mcp.Description("Maximum route distance in km (default 10)")),
		mcp.WithString("source", mcp.Description("routeyou, wikiloc, malmedy or all (default all)")),
		mcp.WithString("prefix", mcp.Description("Only keep listings whose title starts with this prefix")),
	), s.searchSources)

	s.mcp.AddTool(mcp.NewTool("download_route",
		mcp.WithDescription("Download the GPX track behind a listing URL into the library. "+
			"Read the library conventions first via get_library_conventions."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Route page URL on a supported website")),
		mcp.WithString("name", mcp.Description("Library filename; defaults to <source>_<route-id>.gpx")),
		mcp.WithBoolean("overwrite", mcp.Description("Replace an existing file")),
	), s.downloadRoute)

	s.mcp.AddTool(mcp.NewTool("import_gpx",
		mcp.WithDescription("Store a GPX document in the library. Content is GPX XML or a base64 data URI."),
		mcp.WithString("content", mcp.Required(), mcp.Description("GPX XML, or data:application/gpx+xml;base64,...")),
		mcp.WithString("name", mcp.Description("Library filename; generated when empty")),
		mcp.WithBoolean("overwrite", mcp.Description("Replace an existing file")),
	), s.importGPX)

	s.mcp.AddTool(mcp.NewTool("list_routes",
		mcp.WithDescription("List routes in the local library with name, distance and point count."),
		mcp.WithString("source", mcp.Description("Optional source filter (routeyou, wikiloc, malmedy)")),
		mcp.WithString("sort", mcp.Description("updated_at, name, distance or path")),
	), s.listRoutes)

	s.mcp.AddTool(mcp.NewTool("search_library",
		mcp.WithDescription("Full-text search over route names and descriptions in the local library."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchLibrary)

	s.mcp.AddTool(mcp.NewTool("read_route",
		mcp.WithDescription("Read a parsed library route including every track point."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Library path (e.g. routeyou_1234.gpx)")),
	), s.readRoute)

	s.mcp.AddTool(mcp.NewTool("route_summary",
		mcp.WithDescription("Summarize a library route: distance, elevation gain, bounds, start and end."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Library path (e.g. routeyou_1234.gpx)")),
	), s.routeSummary)

	s.mcp.AddTool(mcp.NewTool("convert_route",
		mcp.WithDescription("Build the Google Maps walking directions link for a library route."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Library path (e.g. routeyou_1234.gpx)")),
	), s.convertRoute)

	s.mcp.AddTool(mcp.NewTool("get_library_conventions",
		mcp.WithDescription("Returns the library naming and conversion conventions. "+
			"Call this before downloading or importing routes."),
	), s.getLibraryConventions)

	s.mcp.AddResource(
		mcp.NewResource(conventionsURI, "Library Conventions",
			mcp.WithResourceDescription("How gpx2maps names, parses and converts library routes."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readConventionsResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

type sourceListings struct {
	Source   string `json:"source"`
	Listings any    `json:"listings"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) searchSources(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := scraper.Query{
		Location:      req.GetString("location", ""),
		MaxDistanceKm: req.GetFloat("distance", defaultMaxDistance),
		Prefix:        req.GetString("prefix", ""),
	}
	results, err := s.svc.SearchSources(ctx, req.GetString("source", "all"), q)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := make([]sourceListings, 0, len(results))
	for _, r := range results {
		sl := sourceListings{Source: r.Source, Listings: r.Listings}
		if r.Err != nil {
			sl.Error = r.Err.Error()
		}
		out = append(out, sl)
	}
	return jsonResult(out)
}

func (s *Server) downloadRoute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.Download(ctx, rawURL, req.GetString("name", ""), req.GetBool("overwrite", false))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(routeservice.Summarize(d.Path, d.Route))
}

func (s *Server) listRoutes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, total, err := s.svc.ListRoutes(ctx, defaultListLimit, 0, req.GetString("source", ""), req.GetString("sort", "name"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if total == 0 {
		return mcp.NewToolResultText("library is empty"), nil
	}
	return jsonResult(entries)
}

func (s *Server) searchLibrary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.SearchLibrary(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) readRoute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.GetRoute(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", path, err)), nil
	}
	return jsonResult(d)
}

func (s *Server) routeSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sum, err := s.svc.Summarize(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", path, err)), nil
	}
	return jsonResult(sum)
}

func (s *Server) convertRoute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Convert(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", path, err)), nil
	}
	return jsonResult(res)
}

func (s *Server) getLibraryConventions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(LibraryConventions), nil
}

func (s *Server) readConventionsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      conventionsURI,
			MIMEType: "text/markdown",
			Text:     LibraryConventions,
		},
	}, nil
}
