package mcpserver

import (
	"context"
	"encoding/base64"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/gpx2maps/internal/routeservice"
)

const maxImportSize = 20 << 20 // 20 MB

var (
	gpxMIMETypes = map[string]bool{
		"application/gpx+xml":      true,
		"application/xml":          true,
		"text/xml":                 true,
		"application/octet-stream": true,
	}

	safeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

func (s *Server) importGPX(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data := []byte(content)
	if strings.HasPrefix(content, "data:") {
		data, err = decodeDataURI(content)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	if len(data) > maxImportSize {
		return mcp.NewToolResultError(fmt.Sprintf("file too large: %d bytes (max %d)", len(data), maxImportSize)), nil
	}

	name := sanitizeFilename(req.GetString("name", ""))
	d, err := s.svc.ImportGPX(ctx, routeservice.EnsureExt(name), data, req.GetBool("overwrite", false))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(routeservice.Summarize(d.Path, d.Route))
}

// decodeDataURI parses a data:[<mediatype>][;base64],<data> URI carrying GPX.
func decodeDataURI(uri string) ([]byte, error) {
	rest := strings.TrimPrefix(uri, "data:")
	commaIdx := strings.Index(rest, ",")
	if commaIdx < 0 {
		return nil, fmt.Errorf("invalid data URI: missing comma separator")
	}

	meta := rest[:commaIdx]
	encoded := rest[commaIdx+1:]

	if !strings.Contains(meta, ";base64") {
		return nil, fmt.Errorf("only base64 data URIs are supported")
	}

	mime := strings.Split(strings.TrimSuffix(meta, ";base64"), ";")[0]
	if mime != "" && !gpxMIMETypes[mime] {
		return nil, fmt.Errorf("unsupported MIME type in data URI: %s", mime)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 data: %w", err)
		}
	}
	return data, nil
}

// sanitizeFilename strips path separators and unsafe characters; an empty
// name becomes import_<uuid>.
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name != "" {
		name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
		name = safeFilenameRe.ReplaceAllString(name, "_")
	}
	if name == "" || name == "." || name == ".." {
		name = "import_" + uuid.New().String()
	}
	return name
}
