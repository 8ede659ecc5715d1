package preview

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"R$ 99,90", "99.9", true},
		{"R$ 1.299,90", "1299.9", true},
		{"1,299.90", "1299.9", true},
		{"99.90", "99.9", true},
		{"1.299", "1299", true},
		{"1.234.567", "1234567", true},
		{"R$1299", "1299", true},
		{"R$ 49,", "49", true},
		{"Grátis", "", false},
		{"", "", false},
		{"1,2,3", "", false},
	}
	for _, tt := range tests {
		got, ok := ParsePrice(tt.in)
		if ok != tt.ok {
			t.Errorf("ParsePrice(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && got.String() != tt.want {
			t.Errorf("ParsePrice(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestDiscount(t *testing.T) {
	tests := []struct {
		price, from string
		want        int
		ok          bool
	}{
		{"R$ 75,00", "R$ 100,00", 25, true},
		{"R$ 1.299,90", "R$ 1.999,90", 35, true},
		{"66,66", "100", 33, true},
		{"R$ 100,00", "R$ 100,00", 0, false},
		{"R$ 120,00", "R$ 100,00", 0, false},
		{"R$ 50,00", "", 0, false},
		{"consulte", "R$ 100,00", 0, false},
		{"R$ 10,00", "0", 0, false},
	}
	for _, tt := range tests {
		got, ok := Discount(tt.price, tt.from)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Discount(%q, %q) = %d, %v, want %d, %v", tt.price, tt.from, got, ok, tt.want, tt.ok)
		}
	}
}

func TestAmount(t *testing.T) {
	if got := Amount("R$ 1.299,90"); got != "1299.90" {
		t.Errorf("Amount = %q, want 1299.90", got)
	}
	if got := Amount("n/a"); got != "" {
		t.Errorf("Amount = %q, want empty", got)
	}
}

func TestFormatBRL(t *testing.T) {
	tests := map[string]string{
		"0":         "R$ 0,00",
		"99.9":      "R$ 99,90",
		"1299.9":    "R$ 1.299,90",
		"1234567.5": "R$ 1.234.567,50",
		"-10":       "-R$ 10,00",
	}
	for in, want := range tests {
		if got := FormatBRL(decimal.RequireFromString(in)); got != want {
			t.Errorf("FormatBRL(%s) = %q, want %q", in, got, want)
		}
	}
}
