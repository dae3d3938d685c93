package mapslink

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/starford/gpx2maps/internal/apperr"
	"github.com/starford/gpx2maps/internal/models"
)

func wp(lat, lon float64) models.Waypoint {
	return models.Waypoint{Lat: lat, Lon: lon}
}

func TestBuild_TwoPointExample(t *testing.T) {
	got, err := Builder{}.Build([]models.Waypoint{wp(50.4233, 6.0294), wp(50.4250, 6.031)})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(got, "50.4233,6.0294/50.425,6.031/50.4233,6.0294") {
		t.Errorf("url missing closed path: %s", got)
	}
	want := "https://www.google.com/maps/dir/50.4233,6.0294/50.425,6.031/50.4233,6.0294/@50.4233,6.0294,12z/data=!4m2!4m1!3e2"
	if got != want {
		t.Errorf("url =\n%s\nwant\n%s", got, want)
	}
}

func TestBuild_ClosedLoopNotRepeated(t *testing.T) {
	pts := []models.Waypoint{wp(1, 1), wp(2, 2), wp(1, 1)}
	got, err := Builder{Zoom: 14}.Build(pts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := DirectionsBaseURL + "/1,1/2,2/1,1/@1,1,14z/data=" + walkingModeData
	if got != want {
		t.Errorf("url = %s, want %s", got, want)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	var pts []models.Waypoint
	for i := 0; i < 60; i++ {
		pts = append(pts, wp(50+float64(i)*0.001, 6+float64(i)*0.002))
	}
	a, err := Builder{}.Build(pts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	b, _ := Builder{}.Build(pts)
	if a != b {
		t.Errorf("non-deterministic output:\n%s\n%s", a, b)
	}
}

func TestBuild_InsufficientPoints(t *testing.T) {
	for _, pts := range [][]models.Waypoint{nil, {wp(1, 2)}} {
		_, err := Builder{}.Build(pts)
		if !errors.Is(err, apperr.ErrInsufficientPoints) {
			t.Errorf("len=%d: err = %v, want ErrInsufficientPoints", len(pts), err)
		}
		var ipe *InsufficientPointsError
		if !errors.As(err, &ipe) || ipe.Got != len(pts) {
			t.Errorf("len=%d: err = %#v", len(pts), err)
		}
	}
}

func TestSimplify_KeepsEndsAndOrder(t *testing.T) {
	var pts []models.Waypoint
	for i := 0; i < 100; i++ {
		pts = append(pts, wp(float64(i), 0))
	}
	out := Simplify(pts, 25)
	if len(out) != 25 {
		t.Fatalf("len = %d, want 25", len(out))
	}
	if out[0].Lat != 0 || out[24].Lat != 99 {
		t.Errorf("ends = %v..%v", out[0].Lat, out[24].Lat)
	}
	for i := 1; i < len(out); i++ {
		if out[i].Lat <= out[i-1].Lat {
			t.Fatalf("order broken at %d", i)
		}
	}
	short := Simplify(pts[:5], 25)
	if len(short) != 5 {
		t.Errorf("short input resampled: %d", len(short))
	}
	short[0].Lat = 42
	if pts[0].Lat != 0 {
		t.Error("Simplify must not alias its input")
	}
}

func TestStaticMapURL(t *testing.T) {
	got, err := Builder{}.StaticMapURL([]models.Waypoint{wp(50.1, 6.1), wp(50.2, 6.2)}, 600, 400, "k")
	if err != nil {
		t.Fatalf("StaticMapURL: %v", err)
	}
	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()
	if q.Get("size") != "600x400" || q.Get("key") != "k" {
		t.Errorf("query = %v", q)
	}
	if q.Get("path") != "color:0x0000ff|weight:3|50.1,6.1|50.2,6.2" {
		t.Errorf("path = %q", q.Get("path"))
	}
}
