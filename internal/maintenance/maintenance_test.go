package maintenance

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/farejai/fareja/internal/cache"
	"github.com/farejai/fareja/internal/catalog"
	"github.com/farejai/fareja/internal/db"
	"github.com/farejai/fareja/internal/models"
	"github.com/farejai/fareja/internal/scraper"
)

// fakeStore "uploads" by rewriting the URL; sources containing "broken"
// fall back like the real pipeline does.
type fakeStore struct {
	calls []string
}

func (f *fakeStore) Store(_ context.Context, imageURL, shortID string) string {
	f.calls = append(f.calls, imageURL)
	if strings.Contains(imageURL, "broken") {
		return imageURL
	}
	return "https://res.cloudinary.com/demo/image/upload/v1/produtos/" + shortID + ".jpg"
}

func setup(t *testing.T, images ...string) (*catalog.Service, *sql.DB) {
	t.Helper()
	database, err := db.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })

	promoCache, err := cache.New(10)
	if err != nil {
		t.Fatal(err)
	}
	svc := catalog.New(database, nil, promoCache, time.UTC, zerolog.Nop())

	base := time.Now().Add(-time.Hour)
	for i, img := range images {
		p := &models.Promotion{
			ShortID:       "mnt00" + string(rune('a'+i)),
			Title:         "Promo",
			Price:         "R$ 10",
			StoreName:     "Amazon",
			AffiliateLink: "https://amzn.to/x",
			ImageURL:      img,
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}
		if err := models.CreatePromotion(database, p); err != nil {
			t.Fatal(err)
		}
	}
	return svc, database
}

func imageOf(t *testing.T, database *sql.DB, shortID string) string {
	t.Helper()
	p, err := models.GetPromotionByShortID(database, shortID)
	if err != nil {
		t.Fatal(err)
	}
	return p.ImageURL
}

func TestNormalizeImageRef(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"http://localhost:3000/images/products/a.jpg", "/images/products/a.jpg"},
		{"http://127.0.0.1:8080/b.jpg", "/images/products/b.jpg"},
		{"c.jpg", "/images/products/c.jpg"},
		{"images/products/d.jpg", "/images/products/d.jpg"},
		{"/images/products/e.jpg", "/images/products/e.jpg"},
		{"https://m.media-amazon.com/images/I/f.jpg", "https://m.media-amazon.com/images/I/f.jpg"},
		{scraper.Placeholder, scraper.Placeholder},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeImageRef(tt.in); got != tt.want {
			t.Errorf("NormalizeImageRef(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFixImageURLs(t *testing.T) {
	svc, database := setup(t,
		"http://localhost:3000/images/products/mnt00a.jpg",
		"mnt00b.jpg",
		"https://m.media-amazon.com/images/I/c.jpg",
	)

	rep, err := FixImageURLs(context.Background(), svc, Options{Log: zerolog.Nop()})
	if err != nil {
		t.Fatal(err)
	}
	if rep != (Report{Scanned: 3, Updated: 2, Skipped: 1}) {
		t.Errorf("report = %+v", rep)
	}
	if got := imageOf(t, database, "mnt00a"); got != "/images/products/mnt00a.jpg" {
		t.Errorf("mnt00a = %q", got)
	}
	if got := imageOf(t, database, "mnt00b"); got != "/images/products/mnt00b.jpg" {
		t.Errorf("mnt00b = %q", got)
	}
}

func TestOptimizeImages(t *testing.T) {
	svc, database := setup(t,
		"https://m.media-amazon.com/images/I/a.jpg",
		"/images/products/mnt00b.jpg",
		scraper.Placeholder,
		"https://cdn.example/broken.jpg",
	)
	store := &fakeStore{}

	rep, err := OptimizeImages(context.Background(), svc, store, Options{Log: zerolog.Nop()})
	if err != nil {
		t.Fatal(err)
	}
	if rep != (Report{Scanned: 4, Updated: 1, Skipped: 2, Failed: 1}) {
		t.Errorf("report = %+v", rep)
	}
	if len(store.calls) != 2 {
		t.Errorf("store calls = %v, want only the external images", store.calls)
	}
	if got := imageOf(t, database, "mnt00a"); !strings.HasPrefix(got, "https://res.cloudinary.com/") {
		t.Errorf("mnt00a = %q", got)
	}
	if got := imageOf(t, database, "mnt00d"); got != "https://cdn.example/broken.jpg" {
		t.Errorf("failed store must keep the original, got %q", got)
	}
}

func TestMigrateCDN_LocalNeedsBaseURL(t *testing.T) {
	svc, database := setup(t,
		"/images/products/mnt00a.jpg",
		"https://res.cloudinary.com/demo/image/upload/v1/produtos/mnt00b.jpg",
	)
	store := &fakeStore{}

	rep, err := MigrateCDN(context.Background(), svc, store, Options{Log: zerolog.Nop()})
	if err != nil {
		t.Fatal(err)
	}
	if rep.Updated != 0 || rep.Skipped != 2 {
		t.Errorf("without base url report = %+v", rep)
	}

	rep, err = MigrateCDN(context.Background(), svc, store, Options{BaseURL: "https://fareja.test/", Log: zerolog.Nop()})
	if err != nil {
		t.Fatal(err)
	}
	if rep.Updated != 1 || rep.Skipped != 1 {
		t.Errorf("report = %+v", rep)
	}
	if len(store.calls) != 1 || store.calls[0] != "https://fareja.test/images/products/mnt00a.jpg" {
		t.Errorf("store calls = %v", store.calls)
	}
	if got := imageOf(t, database, "mnt00a"); !strings.Contains(got, "res.cloudinary.com") {
		t.Errorf("mnt00a = %q", got)
	}
}

// echoStore fails every upload the way the pipeline does, by returning the
// URL it was given.
type echoStore struct{}

func (echoStore) Store(_ context.Context, imageURL, _ string) string { return imageURL }

func TestMigrateCDN_FailedUploadKeepsLocalRef(t *testing.T) {
	svc, database := setup(t,
		"/images/products/mnt00a.jpg",
		"https://m.media-amazon.com/images/I/b.jpg",
	)

	rep, err := MigrateCDN(context.Background(), svc, echoStore{}, Options{BaseURL: "https://fareja.test", Log: zerolog.Nop()})
	if err != nil {
		t.Fatal(err)
	}
	if rep != (Report{Scanned: 2, Failed: 2}) {
		t.Errorf("report = %+v, want both uploads failed", rep)
	}
	if got := imageOf(t, database, "mnt00a"); got != "/images/products/mnt00a.jpg" {
		t.Errorf("mnt00a = %q, want the relative local path kept", got)
	}
}

func TestDryRunAndLimit(t *testing.T) {
	svc, database := setup(t,
		"https://m.media-amazon.com/images/I/a.jpg",
		"https://m.media-amazon.com/images/I/b.jpg",
		"https://m.media-amazon.com/images/I/c.jpg",
	)
	store := &fakeStore{}

	rep, err := OptimizeImages(context.Background(), svc, store, Options{DryRun: true, Limit: 2, Log: zerolog.Nop()})
	if err != nil {
		t.Fatal(err)
	}
	if rep != (Report{Scanned: 2, Updated: 2}) {
		t.Errorf("report = %+v", rep)
	}
	if len(store.calls) != 0 {
		t.Errorf("dry run stored %v", store.calls)
	}
	if got := imageOf(t, database, "mnt00a"); got != "https://m.media-amazon.com/images/I/a.jpg" {
		t.Errorf("dry run changed mnt00a to %q", got)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	svc, _ := setup(t,
		"https://m.media-amazon.com/images/I/a.jpg",
		"https://m.media-amazon.com/images/I/b.jpg",
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := OptimizeImages(ctx, svc, &fakeStore{}, Options{Delay: time.Hour, Log: zerolog.Nop()})
	if err == nil {
		t.Fatal("expected context error")
	}
	if rep.Scanned != 0 {
		t.Errorf("report = %+v", rep)
	}
}
