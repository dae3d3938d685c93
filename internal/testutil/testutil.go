// Package testutil provides shared test helpers for setting up libraries and databases.
package testutil

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/starford/gpx2maps/internal/index"
	"github.com/starford/gpx2maps/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "gpx2maps-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestLibrary creates a temporary library directory with a storage.Provider.
func TestLibrary(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// GPX renders a single-segment track document. Each point is lat, lon, ele.
func GPX(name string, pts ...[3]float64) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<gpx version="1.1" creator="gpx2maps-test" xmlns="http://www.topografix.com/GPX/1/1">`)
	fmt.Fprintf(&b, "<metadata><name>%s</name></metadata><trk><trkseg>", name)
	for _, p := range pts {
		fmt.Fprintf(&b, `<trkpt lat="%v" lon="%v"><ele>%v</ele></trkpt>`, p[0], p[1], p[2])
	}
	b.WriteString("</trkseg></trk></gpx>")
	return []byte(b.String())
}

// MalmedyLoop is a short closed loop around Malmedy.
func MalmedyLoop(name string) []byte {
	return GPX(name,
		[3]float64{50.4233, 6.0294, 340},
		[3]float64{50.4250, 6.0310, 345},
		[3]float64{50.4270, 6.0330, 350},
		[3]float64{50.4233, 6.0294, 340},
	)
}
