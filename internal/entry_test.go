package internal

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/gpx2maps/internal/apperr"
	"github.com/starford/gpx2maps/internal/index"
	"github.com/starford/gpx2maps/internal/scraper"
	"github.com/starford/gpx2maps/internal/testutil"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Library.Path = filepath.Join(dir, "gpx_files")
	cfg.Index.Path = filepath.Join(dir, "index.db")
	cfg.Scrape.Offline = true
	return cfg
}

func TestNew_RequiresConfig(t *testing.T) {
	if _, err := New(); err == nil {
		t.Fatal("expected error without config")
	}
}

func TestNew_WiresService(t *testing.T) {
	cfg := testConfig(t)
	app, err := New(WithConfig(cfg), WithLogOutput(io.Discard))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer app.Close()

	ctx := context.Background()
	if _, err := app.Service.ImportGPX(ctx, "local_loop.gpx", testutil.MalmedyLoop("Loop"), false); err != nil {
		t.Fatalf("ImportGPX: %v", err)
	}
	if _, total, err := app.Service.ListRoutes(ctx, 10, 0, "", ""); err != nil || total != 1 {
		t.Errorf("ListRoutes total = %d, err = %v", total, err)
	}

	// No API key configured.
	if _, err := app.Service.Convert(ctx, "local_loop.gpx"); !errors.Is(err, apperr.ErrMissingAPIKey) {
		t.Errorf("Convert err = %v, want ErrMissingAPIKey", err)
	}

	res, err := app.Service.SearchSources(ctx, "routeyou", scraper.Query{Location: "Malmedy", MaxDistanceKm: 10})
	if err != nil || len(res) != 1 || len(res[0].Listings) == 0 {
		t.Errorf("SearchSources = %+v, %v", res, err)
	}
}

func TestNew_WithAPIKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.Maps.APIKey = "DEMO_API_KEY"
	app, err := New(WithConfig(cfg), WithLogOutput(io.Discard))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer app.Close()

	ctx := context.Background()
	if _, err := app.Service.ImportGPX(ctx, "local_loop.gpx", testutil.MalmedyLoop("Loop"), false); err != nil {
		t.Fatal(err)
	}
	res, err := app.Service.Convert(ctx, "local_loop.gpx")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if res.URL == "" || res.Validated {
		t.Errorf("result = %+v", res)
	}
}

func TestNewConverter_MissingKey(t *testing.T) {
	cfg := NewDefaultConfig()
	if _, err := NewConverter(cfg, "", nil); !errors.Is(err, apperr.ErrMissingAPIKey) {
		t.Errorf("err = %v, want ErrMissingAPIKey", err)
	}
}

func TestNewEnricher_Disabled(t *testing.T) {
	cfg := NewDefaultConfig()
	e, err := NewEnricher(cfg, nil)
	if err != nil || e != nil {
		t.Errorf("enricher = %v, err = %v", e, err)
	}
}

func TestRun_SyncsAndStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.App.HTTP.Port = 0
	if err := os.MkdirAll(cfg.Library.Path, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Library.Path, "local_loop.gpx"), testutil.MalmedyLoop("Loop"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Run(ctx, WithConfig(cfg), WithLogOutput(io.Discard)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	db, err := index.Open(cfg.Index.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, err := db.GetRoute("local_loop.gpx"); err != nil {
		t.Errorf("initial sync did not index the library: %v", err)
	}
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Fatal("expected error without config")
	}
}
