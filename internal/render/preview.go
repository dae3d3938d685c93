// Package render draws PNG previews of routes.
package render

import (
	"fmt"
	"image"
	"io"
	"math"

	"github.com/fogleman/gg"

	"github.com/starford/gpx2maps/internal/apperr"
	"github.com/starford/gpx2maps/internal/geo"
	"github.com/starford/gpx2maps/internal/models"
)

const (
	DefaultWidth  = 800
	DefaultHeight = 600
	margin        = 24.0
	markerRadius  = 6.0
)

// Options control the preview image.
type Options struct {
	Width, Height int
	// Title is drawn in the top-left corner when set.
	Title string
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	return o
}

// Preview draws the route's track into an image. The bounding box is fitted
// into the canvas with an equirectangular projection scaled by cos(mid-lat),
// so the aspect ratio is preserved. Start is marked green, end red.
func Preview(r *models.Route, opts Options) (image.Image, error) {
	if len(r.Points) < 2 {
		return nil, fmt.Errorf("render: %w: got %d", apperr.ErrInsufficientPoints, len(r.Points))
	}
	opts = opts.withDefaults()

	dc := gg.NewContext(opts.Width, opts.Height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	project := projection(geo.BoundsOf(r.Points), float64(opts.Width), float64(opts.Height))

	dc.SetRGB(0.1, 0.35, 0.85)
	dc.SetLineWidth(3)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)
	for i, p := range r.Points {
		x, y := project(p)
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.Stroke()

	for _, m := range r.Markers {
		x, y := project(m)
		dc.SetRGB(0.95, 0.6, 0.1)
		dc.DrawCircle(x, y, markerRadius-2)
		dc.Fill()
	}

	sx, sy := project(r.Points[0])
	ex, ey := project(r.Points[len(r.Points)-1])
	dc.SetRGB(0.85, 0.1, 0.1)
	dc.DrawCircle(ex, ey, markerRadius)
	dc.Fill()
	dc.SetRGB(0.1, 0.7, 0.2)
	dc.DrawCircle(sx, sy, markerRadius)
	dc.Fill()

	if opts.Title != "" {
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(opts.Title, margin, margin/2, 0, 0.5)
	}
	return dc.Image(), nil
}

// WritePNG renders the preview and encodes it to w.
func WritePNG(w io.Writer, r *models.Route, opts Options) error {
	img, err := Preview(r, opts)
	if err != nil {
		return err
	}
	return EncodePNG(w, img)
}

// EncodePNG writes img to w as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := gg.NewContextForImage(img).EncodePNG(w); err != nil {
		return fmt.Errorf("render: encode png: %w", err)
	}
	return nil
}

// projection maps lat/lon into pixel space inside the margins.
func projection(b models.Bounds, w, h float64) func(models.Waypoint) (float64, float64) {
	kx := math.Cos((b.MinLat + b.MaxLat) / 2 * math.Pi / 180)
	spanX := (b.MaxLon - b.MinLon) * kx
	spanY := b.MaxLat - b.MinLat

	availW, availH := w-2*margin, h-2*margin
	scale := math.Inf(1)
	if spanX > 0 {
		scale = availW / spanX
	}
	if spanY > 0 {
		scale = math.Min(scale, availH/spanY)
	}
	if math.IsInf(scale, 1) {
		scale = 1
	}
	offX := margin + (availW-spanX*scale)/2
	offY := margin + (availH-spanY*scale)/2

	return func(p models.Waypoint) (float64, float64) {
		x := offX + (p.Lon-b.MinLon)*kx*scale
		y := offY + (b.MaxLat-p.Lat)*scale
		return x, y
	}
}
