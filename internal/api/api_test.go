package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"io"
	"log/slog"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/gpx2maps/internal/mapslink"
	"github.com/starford/gpx2maps/internal/routeservice"
	"github.com/starford/gpx2maps/internal/scraper"
	"github.com/starford/gpx2maps/internal/testutil"
)

// testEnv sets up a temp library, SQLite DB, service, and router for testing.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (*routeservice.Service, http.Handler) {
	t.Helper()
	svc, router, _ := testEnvWithLibrary(t, authToken != "", authToken, nil)
	return svc, router
}

func testEnvWithLibrary(t *testing.T, authEnabled bool, authToken string, sseHandler http.Handler) (*routeservice.Service, http.Handler, string) {
	t.Helper()
	libDir, store := testutil.TestLibrary(t)
	db := testutil.TestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	conv, err := mapslink.NewConverter(mapslink.DemoAPIKey, mapslink.WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}
	svc := routeservice.NewService(store, db,
		routeservice.WithLogger(logger),
		routeservice.WithConverter(conv),
		routeservice.WithSources(scraper.NewRegistry(scraper.Config{Offline: true}, logger)),
	)
	router := NewRouter(svc, authEnabled, authToken, sseHandler)
	return svc, router, libDir
}

func do(router http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateAndGetRoute(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(router, http.MethodPost, "/routes?name=local_loop", bytes.NewReader(testutil.MalmedyLoop("Town Loop")))
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(router, http.MethodGet, "/routes/local_loop.gpx", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var d routeservice.RouteDetail
	if err := json.Unmarshal(w.Body.Bytes(), &d); err != nil {
		t.Fatal(err)
	}
	if d.Route.Name != "Town Loop" || len(d.Route.Points) != 4 || d.Source != "local" {
		t.Errorf("detail = %+v", d)
	}
}

func TestCreateRoute_GeneratedName(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(router, http.MethodPost, "/routes", bytes.NewReader(testutil.MalmedyLoop("Anon")))
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var d routeservice.RouteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &d)
	if !strings.HasPrefix(d.Path, "upload_") || !strings.HasSuffix(d.Path, ".gpx") {
		t.Errorf("path = %q", d.Path)
	}
}

func TestCreateDuplicate(t *testing.T) {
	_, router := testEnv(t, "")
	_ = do(router, http.MethodPost, "/routes?name=dup.gpx", bytes.NewReader(testutil.MalmedyLoop("A")))

	w := do(router, http.MethodPost, "/routes?name=dup.gpx", bytes.NewReader(testutil.MalmedyLoop("B")))
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate create = %d, want 409", w.Code)
	}
	w = do(router, http.MethodPost, "/routes?name=dup.gpx&overwrite=true", bytes.NewReader(testutil.MalmedyLoop("B")))
	if w.Code != http.StatusCreated {
		t.Errorf("overwrite = %d, want 201", w.Code)
	}
}

func TestCreateRoute_InvalidGPX(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(router, http.MethodPost, "/routes?name=bad.gpx", strings.NewReader("<gpx><trk>"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid gpx = %d, want 400", w.Code)
	}
	w = do(router, http.MethodPost, "/routes?name=empty.gpx", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty body = %d, want 400", w.Code)
	}
	nan := testutil.GPX("NaN", [3]float64{math.NaN(), 6.03, 0}, [3]float64{50.43, 6.04, 0})
	w = do(router, http.MethodPost, "/routes?name=nan.gpx", bytes.NewReader(nan))
	if w.Code != http.StatusBadRequest {
		t.Errorf("NaN latitude = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "invalid coordinate") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestDeleteRoute(t *testing.T) {
	_, router := testEnv(t, "")
	_ = do(router, http.MethodPost, "/routes?name=del.gpx", bytes.NewReader(testutil.MalmedyLoop("Del")))

	w := do(router, http.MethodDelete, "/routes/del.gpx", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d, want 204", w.Code)
	}
	w = do(router, http.MethodGet, "/routes/del.gpx", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
	w = do(router, http.MethodDelete, "/routes/del.gpx", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestListRoutes(t *testing.T) {
	_, router := testEnv(t, "")
	for _, n := range []string{"malmedy_a", "malmedy_b", "routeyou_c"} {
		_ = do(router, http.MethodPost, "/routes?name="+n, bytes.NewReader(testutil.MalmedyLoop(n)))
	}

	w := do(router, http.MethodGet, "/routes?source=malmedy&sort=name", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var resp RouteListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 2 || len(resp.Routes) != 2 || resp.Routes[0].Name != "malmedy_a" {
		t.Errorf("list = %+v", resp)
	}

	w = do(router, http.MethodGet, "/routes?sort=bogus", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad sort = %d, want 400", w.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	_ = do(router, http.MethodPost, "/routes?name=s.gpx", bytes.NewReader(testutil.MalmedyLoop("Bayehon Waterfall")))

	w := do(router, http.MethodGet, "/search?q=Bayehon", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d", w.Code)
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 || resp.Results[0].Path != "s.gpx" {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(router, http.MethodGet, "/search", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestSearchSources(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(router, http.MethodGet, "/sources/search?location=Malmedy&distance=10&prefix=MDY", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("sources search = %d, body = %s", w.Code, w.Body.String())
	}
	var resp SourceSearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Sources) != 3 || resp.Total != 7 {
		t.Errorf("resp = %+v", resp)
	}

	w = do(router, http.MethodGet, "/sources/search?source=komoot", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown source = %d, want 400", w.Code)
	}
	w = do(router, http.MethodGet, "/sources/search?distance=abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad distance = %d, want 400", w.Code)
	}
}

func TestDownload(t *testing.T) {
	_, router, libDir := testEnvWithLibrary(t, false, "", nil)

	body := `{"url":"https://www.malmedy-tourisme.be/en/type-a-pied/signposted-walks/beverce-valley"}`
	w := do(router, http.MethodPost, "/downloads", strings.NewReader(body))
	if w.Code != http.StatusCreated {
		t.Fatalf("download = %d, body = %s", w.Code, w.Body.String())
	}
	if _, err := os.Stat(filepath.Join(libDir, "malmedy_beverce-valley.gpx")); err != nil {
		t.Errorf("file not in library: %v", err)
	}

	w = do(router, http.MethodPost, "/downloads", strings.NewReader(`{"url":"https://evilrouteyou.com/route/view/1"}`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("unsupported host = %d, want 400", w.Code)
	}
}

func TestLinkEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	_ = do(router, http.MethodPost, "/routes?name=l.gpx", bytes.NewReader(testutil.MalmedyLoop("L")))

	w := do(router, http.MethodGet, "/links/l.gpx", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("link = %d, body = %s", w.Code, w.Body.String())
	}
	var resp LinkResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if !strings.HasPrefix(resp.URL, "https://www.google.com/maps/dir/50.4233,6.0294/") {
		t.Errorf("url = %q", resp.URL)
	}
	if resp.Validated {
		t.Error("demo key must not be validated")
	}
}

func TestGeoJSONEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	_ = do(router, http.MethodPost, "/routes?name=g.gpx", bytes.NewReader(testutil.MalmedyLoop("G")))

	w := do(router, http.MethodGet, "/geojson/g.gpx", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("geojson = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), "FeatureCollection") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestPreviewEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	_ = do(router, http.MethodPost, "/routes?name=p.gpx", bytes.NewReader(testutil.MalmedyLoop("P")))

	w := do(router, http.MethodGet, "/previews/p.gpx?width=200&height=100", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("preview = %d", w.Code)
	}
	img, err := png.Decode(w.Body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 100 {
		t.Errorf("bounds = %v", b)
	}
}

func TestQRCodeEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	_ = do(router, http.MethodPost, "/routes?name=q.gpx", bytes.NewReader(testutil.MalmedyLoop("Q")))

	w := do(router, http.MethodGet, "/qr/q.gpx?size=300", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("qr = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.HasPrefix(w.Header().Get("X-Maps-Link"), "https://www.google.com/maps/dir/50.4233,6.0294/") {
		t.Errorf("link header = %q", w.Header().Get("X-Maps-Link"))
	}
	img, err := png.Decode(w.Body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 300 || b.Dy() != 300 {
		t.Errorf("bounds = %v", b)
	}

	w = do(router, http.MethodGet, "/qr/missing.gpx", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing = %d, want 404", w.Code)
	}
}

func TestGetRoute_Invalid(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(router, http.MethodGet, "/routes/notes.txt", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("non-gpx path = %d, want 400", w.Code)
	}
	w = do(router, http.MethodGet, "/routes/missing.gpx", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing = %d, want 404", w.Code)
	}
}

// Auth middleware.

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")
	req := httptest.NewRequest(http.MethodGet, "/routes", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")
	w := do(router, http.MethodGet, "/routes", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("missing token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")
	req := httptest.NewRequest(http.MethodGet, "/routes", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

// SSE endpoint auth.

func blockingSSE() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router, _ := testEnvWithLibrary(t, true, "secret", blockingSSE())
	w := do(router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	_, router, _ := testEnvWithLibrary(t, true, "tok", blockingSSE())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

// Uploads.

func uploadFile(t *testing.T, router http.Handler, filename string, content []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.Copy(part, bytes.NewReader(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUpload(t *testing.T) {
	_, router, libDir := testEnvWithLibrary(t, false, "", nil)

	w := uploadFile(t, router, "warche.gpx", testutil.MalmedyLoop("Warche"), nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	if _, err := os.Stat(filepath.Join(libDir, "warche.gpx")); err != nil {
		t.Fatalf("file not on disk: %v", err)
	}

	w = uploadFile(t, router, "ignored.gpx", testutil.MalmedyLoop("Named"), map[string]string{"name": "wikiloc_named"})
	if w.Code != http.StatusCreated {
		t.Fatalf("named upload = %d, body = %s", w.Code, w.Body.String())
	}
	if _, err := os.Stat(filepath.Join(libDir, "wikiloc_named.gpx")); err != nil {
		t.Errorf("named file not on disk: %v", err)
	}
}

func TestUpload_TraversalStaysInLibrary(t *testing.T) {
	_, router, libDir := testEnvWithLibrary(t, false, "", nil)
	w := uploadFile(t, router, "../escape.gpx", testutil.MalmedyLoop("Escape"), nil)
	if w.Code == http.StatusCreated {
		if _, err := os.Stat(filepath.Join(libDir, "..", "escape.gpx")); err == nil {
			t.Error("file escaped library directory")
		}
	}
}

func TestUpload_InvalidGPX(t *testing.T) {
	_, router := testEnv(t, "")
	w := uploadFile(t, router, "photo.gpx", []byte("not xml"), nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid upload = %d, want 400", w.Code)
	}
}

func TestUpload_AuthProtected(t *testing.T) {
	_, router := testEnv(t, "secret")
	w := uploadFile(t, router, "x.gpx", testutil.MalmedyLoop("X"), nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("upload no auth = %d, want 401", w.Code)
	}
}

func TestUpload_MissingFileField(t *testing.T) {
	_, router := testEnv(t, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("wrong", "data")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing field = %d, want 400", w.Code)
	}
}

func TestWriteJSON_UnencodableValue(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSON(w, http.StatusOK, map[string]float64{"distance_km": math.NaN()})
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if !strings.Contains(w.Body.String(), "internal error") {
		t.Errorf("body = %q", w.Body.String())
	}
}
