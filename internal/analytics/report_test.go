package analytics

import (
	"testing"
	"time"

	"github.com/farejai/fareja/internal/db"
	"github.com/farejai/fareja/internal/models"
)

func TestConversionRate(t *testing.T) {
	tests := []struct {
		clicks, views int
		want          string
	}{
		{0, 0, "0.00"},
		{5, 0, "0.00"},
		{1, 8, "12.50"},
		{1, 3, "33.33"},
		{3, 3, "100.00"},
	}
	for _, tt := range tests {
		if got := ConversionRate(tt.clicks, tt.views); got != tt.want {
			t.Errorf("ConversionRate(%d, %d) = %q, want %q", tt.clicks, tt.views, got, tt.want)
		}
	}
}

func TestWeekChange(t *testing.T) {
	tests := []struct {
		this, prev int
		pct        int
		up         bool
	}{
		{10, 5, 100, true},
		{5, 10, -50, false},
		{3, 0, 100, true},
		{0, 0, 0, true},
	}
	for _, tt := range tests {
		pct, up := WeekChange(tt.this, tt.prev)
		if pct != tt.pct || up != tt.up {
			t.Errorf("WeekChange(%d, %d) = %d, %v; want %d, %v", tt.this, tt.prev, pct, up, tt.pct, tt.up)
		}
	}
}

func TestBuildReport(t *testing.T) {
	database, err := db.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()

	now := time.Now()
	err = models.BatchInsertEvents(database, []models.Event{
		{Kind: models.EventPageView, Page: "/", SessionID: "a", Referer: "wa.me", CreatedAt: now},
		{Kind: models.EventPageView, Page: "/", SessionID: "b", CreatedAt: now},
		{Kind: models.EventPromotionClick, PromotionID: "p1", CreatedAt: now},
	})
	if err != nil {
		t.Fatal(err)
	}

	from, to := Window(7, now.Add(time.Minute))
	r, err := BuildReport(database, models.AnalyticsFilter{From: from, To: to})
	if err != nil {
		t.Fatal(err)
	}
	if r.TotalPageViews != 2 || r.UniqueVisitors != 2 || r.TotalClicks != 1 {
		t.Errorf("report totals = %+v", r)
	}
	if r.ConversionRate != "50.00" {
		t.Errorf("conversionRate = %q, want 50.00", r.ConversionRate)
	}
	if len(r.TopReferrers) != 1 || r.TopReferrers[0].Referer != "wa.me" {
		t.Errorf("topReferrers = %+v", r.TopReferrers)
	}
	if r.TopCountries == nil || r.DeviceStats == nil {
		t.Error("empty lists should be non-nil so they encode as []")
	}
}
