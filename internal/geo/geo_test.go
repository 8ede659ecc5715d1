package geo

import (
	"net"
	"path/filepath"
	"testing"
)

func TestOpen_EmptyPath_ReturnsNoOpReader(t *testing.T) {
	r, err := Open("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r == nil || r.Enabled() {
		t.Fatal("expected a disabled, non-nil Reader")
	}
}

func TestOpen_MissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.mmdb")); err == nil {
		t.Fatal("expected error for missing database")
	}
}

func TestLocate_NoOpReader_ReturnsEmpty(t *testing.T) {
	r, _ := Open("")
	if loc := r.Locate("8.8.8.8"); loc != (Location{}) {
		t.Errorf("expected empty location, got %+v", loc)
	}
	if loc := r.Locate("not-an-ip"); loc != (Location{}) {
		t.Errorf("expected empty location, got %+v", loc)
	}
}

func TestLocate_NilReader(t *testing.T) {
	var r *Reader
	if loc := r.Locate("8.8.8.8"); loc != (Location{}) {
		t.Errorf("expected empty location, got %+v", loc)
	}
	r.Close()
}

func TestRoutable(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"8.8.8.8", true},
		{"177.10.20.30", true},
		{"127.0.0.1", false},
		{"10.0.0.5", false},
		{"192.168.0.1", false},
		{"::1", false},
		{"0.0.0.0", false},
		{"169.254.1.1", false},
	}
	for _, tt := range tests {
		if got := routable(net.ParseIP(tt.ip)); got != tt.want {
			t.Errorf("routable(%s) = %v, want %v", tt.ip, got, tt.want)
		}
	}
}

func TestLocalized(t *testing.T) {
	if got := localized(map[string]string{"en": "Sao Paulo", "pt-BR": "São Paulo"}); got != "São Paulo" {
		t.Errorf("got %q, want pt-BR name", got)
	}
	if got := localized(map[string]string{"en": "Lisbon"}); got != "Lisbon" {
		t.Errorf("got %q, want english fallback", got)
	}
	if got := localized(nil); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}
