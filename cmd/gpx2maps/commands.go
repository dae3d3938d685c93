package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/starford/gpx2maps/internal"
	"github.com/starford/gpx2maps/internal/export"
	"github.com/starford/gpx2maps/internal/logging"
	"github.com/starford/gpx2maps/internal/models"
	"github.com/starford/gpx2maps/internal/parser"
	"github.com/starford/gpx2maps/internal/render"
	"github.com/starford/gpx2maps/internal/scraper"
	"github.com/starford/gpx2maps/internal/storage"
	pkgconfig "github.com/starford/gpx2maps/pkg/config"
)

var errNoResults = errors.New("no routes found")

// outputIndexName is the index file created inside a download --output directory.
const outputIndexName = ".gpx2maps.db"

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "gpx2maps",
		Usage:   "Find hiking routes, download their GPX tracks and turn them into Google Maps links",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error (overrides config)",
				Sources: cli.EnvVars("GPX2MAPS_LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:    "offline",
				Usage:   "Use the bundled sample catalog instead of the route websites",
				Sources: cli.EnvVars("GPX2MAPS_OFFLINE"),
			},
		},
		Commands: []*cli.Command{
			searchCommand(),
			downloadCommand(),
			convertCommand(),
			listCommand(),
			previewCommand(),
			qrCommand(),
			serveCommand(),
			mcpCommand(),
		},
	}
}

// loadConfig reads the config file (defaults when missing) and applies the
// global flag overrides.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if lvl := cmd.String("log-level"); lvl != "" {
		cfg.App.LogLevel = logging.ParseLevel(lvl)
	}
	if cmd.Bool("offline") {
		cfg.Scrape.Offline = true
	}
	return cfg, nil
}

func cliLogger(cmd *cli.Command, cfg *internal.Config) *slog.Logger {
	return logging.New(cfg.App.LogLevel, logging.FormatText, cmd.Root().ErrWriter)
}

func openApp(cmd *cli.Command, cfg *internal.Config) (*internal.App, error) {
	return internal.New(
		internal.WithConfig(cfg),
		internal.WithLogOutput(cmd.Root().ErrWriter),
		internal.WithVersion(version),
	)
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search route websites for listings",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "location", Aliases: []string{"l"}, Value: "Malmedy", Usage: "Location to search around"},
			&cli.FloatFlag{Name: "distance", Aliases: []string{"d"}, Value: 10, Usage: "Maximum route distance in km"},
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Value: "all", Usage: "routeyou, wikiloc, malmedy or all"},
			&cli.StringFlag{Name: "prefix", Aliases: []string{"p"}, Value: "MDY", Usage: "Only list titles starting with this prefix"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := cliLogger(cmd, cfg)

			sources, err := internal.NewRegistry(cfg, logger).Select(cmd.String("source"))
			if err != nil {
				return err
			}
			q := scraper.Query{
				Location:      cmd.String("location"),
				MaxDistanceKm: cmd.Float("distance"),
				Prefix:        cmd.String("prefix"),
			}

			w := cmd.Root().Writer
			total := 0
			for _, src := range sources {
				fmt.Fprintf(w, "Searching %s for routes near %s (max %.1f km)...\n", src.Label(), q.Location, q.MaxDistanceKm)
				listings, err := src.Search(ctx, q)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					fmt.Fprintf(cmd.Root().ErrWriter, "  %s: search failed: %v\n", src.Name(), err)
					continue
				}
				printListings(w, listings)
				total += len(listings)
			}
			if total == 0 {
				return errNoResults
			}
			fmt.Fprintf(w, "\nFound %d route(s).\n", total)
			return nil
		},
	}
}

func printListings(w io.Writer, listings []models.Listing) {
	for i, l := range listings {
		distance := "distance unknown"
		if l.HasDistance {
			distance = fmt.Sprintf("%.1f km", l.DistanceKm)
		}
		fmt.Fprintf(w, "  %d. %s\n     %s\n     %s\n", i+1, l.Title, distance, l.URL)
	}
}

func downloadCommand() *cli.Command {
	return &cli.Command{
		Name:  "download",
		Usage: "Download a route's GPX track into the library",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Required: true, Usage: "Route page URL"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Library directory (overrides config)"},
			&cli.StringFlag{Name: "name", Usage: "Filename; defaults to <source>_<route-id>.gpx"},
			&cli.BoolFlag{Name: "overwrite", Usage: "Replace an existing file"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if out := cmd.String("output"); out != "" {
				// The index lives with the directory it describes.
				cfg.Library.Path = out
				cfg.Index.Path = filepath.Join(out, outputIndexName)
			}
			app, err := openApp(cmd, cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			d, err := app.Service.Download(ctx, cmd.String("url"), cmd.String("name"), cmd.Bool("overwrite"))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.Root().Writer, "Downloaded %q (%d points, %.2f km)\nSaved to %s\n",
				d.Route.Name, d.Route.PointCount(), d.Route.DistanceKm,
				filepath.Join(app.Store.Root(), filepath.FromSlash(d.Path)))
			return nil
		},
	}
}

func convertCommand() *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "Convert a GPX file into a Google Maps directions link",
		ArgsUsage: "<gpx-file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api-key", Aliases: []string{"k"}, Usage: "Google Maps API key", Sources: cli.EnvVars("GOOGLE_MAPS_API_KEY")},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write the link to this file"},
			&cli.StringFlag{Name: "geojson", Usage: "Write the route as GeoJSON to this file"},
			&cli.BoolFlag{Name: "static", Usage: "Also print a Static Maps image URL"},
			&cli.BoolFlag{Name: "no-validate", Usage: "Skip the Directions API check"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			file := cmd.Args().First()
			if file == "" {
				return fmt.Errorf("missing <gpx-file> argument")
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Bool("no-validate") {
				cfg.Maps.ValidateLinks = false
			}
			apiKey := cmd.String("api-key")
			if apiKey == "" {
				apiKey = cfg.Maps.APIKey
			}
			logger := cliLogger(cmd, cfg)

			conv, err := internal.NewConverter(cfg, apiKey, logger)
			if err != nil {
				return err
			}

			route, err := parser.ParseFile(file)
			if err != nil {
				return err
			}
			if enricher, err := internal.NewEnricher(cfg, logger); err != nil {
				logger.Warn("elevation back-fill disabled", slog.String("error", err.Error()))
			} else if enricher != nil {
				route = enricher.Enrich(route)
			}

			res, err := conv.Convert(ctx, route)
			if err != nil {
				return err
			}

			w := cmd.Root().Writer
			printRoute(w, route)
			fmt.Fprintf(w, "\nGoogle Maps URL:\n%s\n", res.URL)
			if res.Warning != "" {
				fmt.Fprintf(w, "Warning: %s\n", res.Warning)
			}

			if cmd.Bool("static") {
				static, err := cfg.Maps.Builder().StaticMapURL(route.Points, render.DefaultWidth, render.DefaultHeight, apiKey)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "\nStatic map:\n%s\n", static)
			}
			if out := cmd.String("output"); out != "" {
				if err := os.WriteFile(out, []byte(res.URL+"\n"), 0o644); err != nil {
					return fmt.Errorf("write link: %w", err)
				}
				fmt.Fprintf(w, "Saved link to %s\n", out)
			}
			if out := cmd.String("geojson"); out != "" {
				data, err := export.GeoJSON(route)
				if err != nil {
					return err
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return fmt.Errorf("write geojson: %w", err)
				}
				fmt.Fprintf(w, "Saved GeoJSON to %s\n", out)
			}
			return nil
		},
	}
}

func printRoute(w io.Writer, r *models.Route) {
	fmt.Fprintf(w, "Route: %s\n", r.Name)
	if r.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", r.Description)
	}
	fmt.Fprintf(w, "Points: %d\n", r.PointCount())
	fmt.Fprintf(w, "Distance: %.2f km\n", r.DistanceKm)
	if r.ElevationGain > 0 {
		fmt.Fprintf(w, "Elevation gain: %.0f m\n", r.ElevationGain)
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List GPX files in a directory",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "directory", Aliases: []string{"d"}, Usage: "Directory to list (defaults to the library)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			dir := cmd.String("directory")
			if dir == "" {
				dir = cfg.Library.Path
			}

			w := cmd.Root().Writer
			if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
				fmt.Fprintf(w, "Directory %s does not exist\n", dir)
				return nil
			}
			store, err := storage.NewFS(dir)
			if err != nil {
				return err
			}
			files, err := store.List("")
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Fprintf(w, "No GPX files found in %s\n", dir)
				return nil
			}

			fmt.Fprintf(w, "Found %d GPX file(s) in %s:\n", len(files), dir)
			for _, f := range files {
				fmt.Fprintf(w, "\n  %s\n", f.Path)
				route, err := readRoute(store, f.Path)
				if err != nil {
					fmt.Fprintf(w, "    Error: %v\n", err)
					continue
				}
				fmt.Fprintf(w, "    Name: %s\n", route.Name)
				fmt.Fprintf(w, "    Points: %d, distance %.2f km\n", route.PointCount(), route.DistanceKm)
				fmt.Fprintf(w, "    Size: %s, modified %s\n", humanize.Bytes(uint64(f.Size)), humanize.Time(f.UpdatedAt))
			}
			return nil
		},
	}
}

func readRoute(store *storage.FS, p string) (*models.Route, error) {
	data, err := store.Read(p)
	if err != nil {
		return nil, err
	}
	return parser.Parse(data)
}

func previewCommand() *cli.Command {
	return &cli.Command{
		Name:      "preview",
		Usage:     "Render a GPX track to a PNG image",
		ArgsUsage: "<gpx-file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: "PNG file to write"},
			&cli.IntFlag{Name: "width", Value: render.DefaultWidth, Usage: "Image width in pixels"},
			&cli.IntFlag{Name: "height", Value: render.DefaultHeight, Usage: "Image height in pixels"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			file := cmd.Args().First()
			if file == "" {
				return fmt.Errorf("missing <gpx-file> argument")
			}
			route, err := parser.ParseFile(file)
			if err != nil {
				return err
			}

			out := cmd.String("output")
			if !strings.EqualFold(filepath.Ext(out), ".png") {
				out += ".png"
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create preview: %w", err)
			}
			opts := render.Options{
				Width:  int(cmd.Int("width")),
				Height: int(cmd.Int("height")),
				Title:  route.Name,
			}
			if err := render.WritePNG(f, route, opts); err != nil {
				f.Close()
				os.Remove(out)
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("write preview: %w", err)
			}
			fmt.Fprintf(cmd.Root().Writer, "Saved preview of %q to %s\n", route.Name, out)
			return nil
		},
	}
}

func qrCommand() *cli.Command {
	return &cli.Command{
		Name:      "qr",
		Usage:     "Write a QR code that opens the route in Google Maps (no API key needed)",
		ArgsUsage: "<gpx-file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "PNG file to write (default qr_<route-name>.png)"},
			&cli.IntFlag{Name: "size", Value: render.DefaultQRSize, Usage: "Image edge length in pixels"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			file := cmd.Args().First()
			if file == "" {
				return fmt.Errorf("missing <gpx-file> argument")
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			route, err := parser.ParseFile(file)
			if err != nil {
				return err
			}
			link, err := cfg.Maps.Builder().Build(route.Points)
			if err != nil {
				return err
			}

			out := cmd.String("output")
			if out == "" {
				out = qrFilename(route.Name)
			}
			img, err := render.QRCode(link, int(cmd.Int("size")))
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, img, 0o644); err != nil {
				return fmt.Errorf("write qr code: %w", err)
			}

			w := cmd.Root().Writer
			printRoute(w, route)
			fmt.Fprintf(w, "\nGoogle Maps URL:\n%s\n", link)
			fmt.Fprintf(w, "Saved QR code to %s\n", out)
			return nil
		},
	}
}

// qrFilename derives qr_<name>.png from a route name.
func qrFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' {
			return r
		}
		return ' '
	}, strings.ToLower(name))
	name = strings.Join(strings.Fields(name), "_")
	if name == "" {
		name = "route"
	}
	return "qr_" + name + ".png"
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the library over REST and SSE, keeping the index in sync",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Usage: "HTTP port (overrides config)", Sources: cli.EnvVars("PORT")},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if p := cmd.Int("port"); p > 0 {
				cfg.App.HTTP.Port = int(p)
			}
			if cfg.App.LogFormat == "" {
				cfg.App.LogFormat = logging.FormatJSON
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := internal.Run(ctx,
				internal.WithConfig(cfg),
				internal.WithLogOutput(cmd.Root().ErrWriter),
				internal.WithVersion(version),
			); err != nil {
				return fmt.Errorf("app run error: %w", err)
			}
			return nil
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve library tools over MCP on stdin/stdout",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			app, err := openApp(cmd, cfg)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.ServeMCP()
		},
	}
}
