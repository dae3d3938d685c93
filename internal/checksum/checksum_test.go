package checksum

import (
	"strings"
	"testing"
)

func TestSumMatchesReader(t *testing.T) {
	data := "<gpx></gpx>"
	got, err := Reader(strings.NewReader(data))
	if err != nil {
		t.Fatalf("Reader: %v", err)
	}
	if got != Sum([]byte(data)) {
		t.Errorf("Reader = %q, Sum = %q", got, Sum([]byte(data)))
	}
	if len(got) != 64 {
		t.Errorf("len = %d, want 64", len(got))
	}
}
