package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func tempLibrary(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempLibrary(t)
	content := []byte("<gpx/>")
	if err := s.Write("routeyou_x.gpx", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("routeyou_x.gpx")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestReadMissingIsNotExist(t *testing.T) {
	s := tempLibrary(t)
	_, err := s.Read("missing.gpx")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}

func TestDelete(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write("del.gpx", []byte("bye"))
	if err := s.Delete("del.gpx"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.gpx"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestList_OnlyGPX(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write("a.gpx", []byte("a"))
	_ = s.Write("sub/b.GPX", []byte("bb"))
	_ = s.Write("notes.txt", []byte("not gpx"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].Path != "a.gpx" || items[0].Size != 1 || items[0].Checksum == "" {
		t.Errorf("first item = %+v", items[0])
	}
	if items[1].Path != "sub/b.GPX" {
		t.Errorf("second item = %+v", items[1])
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempLibrary(t)
	for _, p := range []string{"../../etc/passwd", "../outside.gpx", "/etc/shadow"} {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteLeavesNoTemp(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write("atomic.gpx", []byte("original"))
	if err := s.Write("atomic.gpx", []byte("updated")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.gpx")
	if string(got) != "updated" {
		t.Errorf("content = %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(s.Root(), ".gpx2maps-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_Errors(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for non-existent dir")
	}
	f, _ := os.CreateTemp(t.TempDir(), "file-*")
	_ = f.Close()
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestRouteFilename(t *testing.T) {
	cases := []struct{ source, id, want string }{
		{"routeyou", "warche-valley-loop", "routeyou_warche-valley-loop.gpx"},
		{"Wikiloc", "signal botrange", "wikiloc_signal-botrange.gpx"},
		{"malmedy", "../../etc", "malmedy_etc.gpx"},
		{"wikiloc", "", "wikiloc_route.gpx"},
	}
	for _, c := range cases {
		if got := RouteFilename(c.source, c.id); got != c.want {
			t.Errorf("RouteFilename(%q, %q) = %q, want %q", c.source, c.id, got, c.want)
		}
	}
}

func TestSourceOf(t *testing.T) {
	if got := SourceOf("sub/routeyou_x.gpx"); got != "routeyou" {
		t.Errorf("SourceOf = %q", got)
	}
	if got := SourceOf("plain.gpx"); got != "" {
		t.Errorf("SourceOf(plain) = %q", got)
	}
}
