package models

import (
	"database/sql"
	"testing"
	"time"
)

func insertTestEvents(t *testing.T, d *sql.DB, events []Event) {
	t.Helper()
	if err := BatchInsertEvents(d, events); err != nil {
		t.Fatal(err)
	}
}

func lastDay() AnalyticsFilter {
	now := time.Now()
	return AnalyticsFilter{From: now.Add(-24 * time.Hour), To: now.Add(time.Minute)}
}

func TestBatchInsertEvents_RoutesByKind(t *testing.T) {
	d := testDB(t)
	now := time.Now()
	insertTestEvents(t, d, []Event{
		{Kind: EventPageView, Page: "/", SessionID: "s1", CreatedAt: now},
		{Kind: EventPromotionClick, PromotionID: "p1", Detail: "ver_oferta", CreatedAt: now},
		{Kind: EventPromotionView, PromotionID: "p1", Detail: "detail", CreatedAt: now},
		{Kind: EventPromotionView, PromotionID: "p2", Detail: "card", CreatedAt: now},
	})

	for table, want := range map[string]int{"analytics": 1, "promotion_clicks": 1, "promotion_views": 2} {
		var n int
		if err := d.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
			t.Fatal(err)
		}
		if n != want {
			t.Errorf("%s count = %d, want %d", table, n, want)
		}
	}
}

func TestBatchInsertEvents_UnknownKindRollsBack(t *testing.T) {
	d := testDB(t)
	err := BatchInsertEvents(d, []Event{
		{Kind: EventPageView, Page: "/", CreatedAt: time.Now()},
		{Kind: "bogus", CreatedAt: time.Now()},
	})
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
	n, _ := CountPageViews(d, lastDay())
	if n != 0 {
		t.Errorf("page views = %d, want 0 after rollback", n)
	}
}

func TestCountsAndTopPages(t *testing.T) {
	d := testDB(t)
	now := time.Now()
	insertTestEvents(t, d, []Event{
		{Kind: EventPageView, Page: "/", SessionID: "a", Device: "mobile", CreatedAt: now},
		{Kind: EventPageView, Page: "/", SessionID: "b", Device: "desktop", CreatedAt: now},
		{Kind: EventPageView, Page: "/cupons", SessionID: "a", Device: "mobile", CreatedAt: now},
		{Kind: EventPageView, Page: "/old", SessionID: "c", CreatedAt: now.AddDate(0, 0, -40)},
	})

	f := lastDay()
	views, err := CountPageViews(d, f)
	if err != nil {
		t.Fatal(err)
	}
	if views != 3 {
		t.Errorf("views = %d, want 3", views)
	}

	visitors, err := CountUniqueVisitors(d, f)
	if err != nil {
		t.Fatal(err)
	}
	if visitors != 2 {
		t.Errorf("visitors = %d, want 2", visitors)
	}

	pages, err := TopPages(d, f, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 2 || pages[0].Page != "/" || pages[0].Views != 2 {
		t.Errorf("pages = %+v", pages)
	}

	devices, err := DeviceStats(d, f)
	if err != nil {
		t.Fatal(err)
	}
	if len(devices) != 2 || devices[0].Device != "mobile" || devices[0].Count != 2 {
		t.Errorf("devices = %+v", devices)
	}
}

func TestClickAggregates_JoinPromotions(t *testing.T) {
	d := testDB(t)
	withCoupon := newPromotion("cpn001", time.Now())
	withCoupon.Coupon = strPtr("DESCONTO")
	mustCreate(t, d, withCoupon)
	plain := newPromotion("cpn002", time.Now())
	plain.StoreName = "Magalu"
	mustCreate(t, d, plain)

	now := time.Now()
	insertTestEvents(t, d, []Event{
		{Kind: EventPromotionClick, PromotionID: withCoupon.ID, CreatedAt: now},
		{Kind: EventPromotionClick, PromotionID: withCoupon.ID, CreatedAt: now},
		{Kind: EventPromotionClick, PromotionID: plain.ID, CreatedAt: now},
		{Kind: EventPromotionClick, PromotionID: "deleted-promo", CreatedAt: now},
	})

	f := lastDay()
	clicks, err := CountClicks(d, f)
	if err != nil {
		t.Fatal(err)
	}
	if clicks != 4 {
		t.Errorf("clicks = %d, want 4", clicks)
	}

	top, err := TopPromotions(d, f, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 3 || top[0].PromotionID != withCoupon.ID || top[0].Clicks != 2 {
		t.Fatalf("top = %+v", top)
	}
	if top[0].Coupon == nil || *top[0].Coupon != "DESCONTO" || top[0].StoreName != "Amazon" {
		t.Errorf("top[0] = %+v", top[0])
	}

	stores, err := TopStores(d, f, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(stores) != 2 || stores[0].StoreName != "Amazon" || stores[0].Clicks != 2 {
		t.Errorf("stores = %+v", stores)
	}

	stats, err := CouponStatsFor(d, f)
	if err != nil {
		t.Fatal(err)
	}
	if stats.WithCoupon != 2 || stats.WithoutCoupon != 2 {
		t.Errorf("coupon stats = %+v", stats)
	}

	yes := true
	f.HasCoupon = &yes
	clicks, _ = CountClicks(d, f)
	if clicks != 2 {
		t.Errorf("clicks with coupon = %d, want 2", clicks)
	}

	f.HasCoupon = nil
	f.Store = "Magalu"
	clicks, _ = CountClicks(d, f)
	if clicks != 1 {
		t.Errorf("clicks for Magalu = %d, want 1", clicks)
	}
}

func TestDailyStats(t *testing.T) {
	d := testDB(t)
	day1 := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	insertTestEvents(t, d, []Event{
		{Kind: EventPageView, Page: "/", CreatedAt: day1},
		{Kind: EventPageView, Page: "/", CreatedAt: day1},
		{Kind: EventPromotionClick, PromotionID: "x", CreatedAt: day1},
		{Kind: EventPromotionClick, PromotionID: "x", CreatedAt: day2},
	})

	stats, err := DailyStats(d, AnalyticsFilter{From: day1.AddDate(0, 0, -1), To: day2.AddDate(0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 2 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats[0].Date != "2024-06-01" || stats[0].PageViews != 2 || stats[0].Clicks != 1 {
		t.Errorf("day1 = %+v", stats[0])
	}
	if stats[1].Date != "2024-06-02" || stats[1].PageViews != 0 || stats[1].Clicks != 1 {
		t.Errorf("day2 = %+v", stats[1])
	}
}

func TestDailyStats_LocalDays(t *testing.T) {
	d := testDB(t)
	saoPaulo := time.FixedZone("BRT", -3*60*60)
	// 23:30 local on June 1st is 02:30 UTC on June 2nd
	late := time.Date(2024, 6, 1, 23, 30, 0, 0, saoPaulo)
	morning := time.Date(2024, 6, 2, 9, 0, 0, 0, saoPaulo)
	insertTestEvents(t, d, []Event{
		{Kind: EventPageView, Page: "/", CreatedAt: late},
		{Kind: EventPromotionClick, PromotionID: "x", CreatedAt: late},
		{Kind: EventPageView, Page: "/", CreatedAt: morning},
	})

	f := AnalyticsFilter{From: late.AddDate(0, 0, -1), To: morning.AddDate(0, 0, 1), Location: saoPaulo}
	stats, err := DailyStats(d, f)
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 2 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats[0].Date != "2024-06-01" || stats[0].PageViews != 1 || stats[0].Clicks != 1 {
		t.Errorf("June 1st = %+v, want the late visit", stats[0])
	}
	if stats[1].Date != "2024-06-02" || stats[1].PageViews != 1 || stats[1].Clicks != 0 {
		t.Errorf("June 2nd = %+v", stats[1])
	}

	f.Location = nil
	stats, err = DailyStats(d, f)
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 1 || stats[0].Date != "2024-06-02" || stats[0].PageViews != 2 {
		t.Errorf("UTC stats = %+v, want one June 2nd bucket", stats)
	}
}

func TestDeleteEventsBetween(t *testing.T) {
	d := testDB(t)
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	insertTestEvents(t, d, []Event{
		{Kind: EventPageView, Page: "/", CreatedAt: from},
		{Kind: EventPageView, Page: "/", CreatedAt: to},
		{Kind: EventPromotionClick, PromotionID: "x", CreatedAt: from.Add(time.Hour)},
		{Kind: EventPromotionView, PromotionID: "x", CreatedAt: to.Add(-time.Second)},
		{Kind: EventPromotionView, PromotionID: "x", CreatedAt: from.Add(-time.Second)},
	})

	counts, err := DeleteEventsBetween(d, from, to)
	if err != nil {
		t.Fatal(err)
	}
	want := DeletedCounts{Analytics: 1, PromotionClicks: 1, PromotionViews: 1, Total: 3}
	if counts != want {
		t.Errorf("counts = %+v, want %+v", counts, want)
	}
}

func TestClickCountsForPromotions(t *testing.T) {
	d := testDB(t)
	insertTestEvents(t, d, []Event{
		{Kind: EventPromotionClick, PromotionID: "a", CreatedAt: time.Now()},
		{Kind: EventPromotionClick, PromotionID: "a", CreatedAt: time.Now()},
		{Kind: EventPromotionClick, PromotionID: "b", CreatedAt: time.Now()},
	})

	counts, err := ClickCountsForPromotions(d, []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if counts["a"] != 2 || counts["b"] != 1 || counts["c"] != 0 {
		t.Errorf("counts = %v", counts)
	}

	empty, err := ClickCountsForPromotions(d, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("empty = %v, err = %v", empty, err)
	}
}

func TestTopReferrersAndCountries(t *testing.T) {
	d := testDB(t)
	now := time.Now()
	insertTestEvents(t, d, []Event{
		{Kind: EventPageView, Page: "/", Referer: "wa.me", Country: "BR", CreatedAt: now},
		{Kind: EventPageView, Page: "/", Referer: "wa.me", Country: "BR", CreatedAt: now},
		{Kind: EventPageView, Page: "/", Referer: "t.me", Country: "PT", CreatedAt: now},
		{Kind: EventPageView, Page: "/", CreatedAt: now},
	})

	refs, err := TopReferrers(d, lastDay(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 2 || refs[0].Referer != "wa.me" || refs[0].Count != 2 {
		t.Errorf("referrers = %+v", refs)
	}

	countries, err := TopCountries(d, lastDay(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(countries) != 2 || countries[0].Country != "BR" || countries[1].Country != "PT" {
		t.Errorf("countries = %+v", countries)
	}
}
