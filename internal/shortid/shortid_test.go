package shortid

import (
	"errors"
	"regexp"
	"testing"
)

func TestGenerate_Charset(t *testing.T) {
	re := regexp.MustCompile(`^[0-9A-Za-z]{6}$`)
	for i := 0; i < 100; i++ {
		s, err := Generate()
		if err != nil {
			t.Fatalf("iteration %d: unexpected error: %v", i, err)
		}
		if !re.MatchString(s) {
			t.Fatalf("iteration %d: id %q does not match [0-9A-Za-z]{6}", i, s)
		}
	}
}

func TestGenerate_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		s, err := Generate()
		if err != nil {
			t.Fatalf("iteration %d: unexpected error: %v", i, err)
		}
		if seen[s] {
			t.Fatalf("duplicate id %q at iteration %d", s, i)
		}
		seen[s] = true
	}
}

func TestUnique_RerollsOnCollision(t *testing.T) {
	candidates := []string{"taken1", "taken2", "free01"}
	i := 0
	gen := func() (string, error) {
		s := candidates[i]
		i++
		return s, nil
	}
	exists := func(s string) (bool, error) { return s != "free01", nil }

	got, err := unique(gen, exists)
	if err != nil {
		t.Fatal(err)
	}
	if got != "free01" {
		t.Errorf("got %q, want free01", got)
	}
	if i != 3 {
		t.Errorf("generated %d candidates, want 3", i)
	}
}

func TestUnique_GivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	gen := func() (string, error) { calls++; return "always", nil }
	exists := func(string) (bool, error) { return true, nil }

	_, err := unique(gen, exists)
	if !errors.Is(err, ErrExhausted) {
		t.Errorf("err = %v, want ErrExhausted", err)
	}
	if calls != MaxAttempts {
		t.Errorf("calls = %d, want %d", calls, MaxAttempts)
	}
}

func TestUnique_PropagatesLookupError(t *testing.T) {
	boom := errors.New("db down")
	_, err := Unique(func(string) (bool, error) { return false, boom })
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped db error", err)
	}
}
