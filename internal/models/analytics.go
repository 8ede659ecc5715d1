package models

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// AnalyticsFilter bounds aggregate queries to [From, To). Store and
// HasCoupon only apply to click aggregates, which join promotions.
type AnalyticsFilter struct {
	From      time.Time
	To        time.Time
	Store     string
	HasCoupon *bool
	// Location decides where DailyStats draws day boundaries. Nil means UTC.
	Location *time.Location
}

type PageCount struct {
	Page  string `json:"page"`
	Views int    `json:"views"`
}

type PromotionClickCount struct {
	PromotionID string  `json:"promotionId"`
	Title       string  `json:"title"`
	StoreName   string  `json:"storeName"`
	Coupon      *string `json:"coupon"`
	Clicks      int     `json:"clicks"`
}

type StoreCount struct {
	StoreName string `json:"storeName"`
	Clicks    int    `json:"clicks"`
}

type CouponStats struct {
	WithCoupon    int `json:"withCoupon"`
	WithoutCoupon int `json:"withoutCoupon"`
}

type DeviceCount struct {
	Device string `json:"device"`
	Count  int    `json:"count"`
}

type ReferrerCount struct {
	Referer string `json:"referer"`
	Count   int    `json:"count"`
}

type CountryCount struct {
	Country string `json:"country"`
	Count   int    `json:"count"`
}

type DailyCount struct {
	Date      string `json:"date"`
	PageViews int    `json:"pageViews"`
	Clicks    int    `json:"clicks"`
}

func (f AnalyticsFilter) window(col string) (string, []any) {
	return col + " >= ? AND " + col + " < ?", []any{f.From.UTC(), f.To.UTC()}
}

func (f AnalyticsFilter) clickWhere() (string, []any) {
	where, args := f.window("c.created_at")
	clauses := []string{where}
	if f.Store != "" {
		clauses = append(clauses, "p.store_name = ?")
		args = append(args, f.Store)
	}
	if f.HasCoupon != nil {
		if *f.HasCoupon {
			clauses = append(clauses, "(p.coupon IS NOT NULL AND p.coupon != '')")
		} else {
			clauses = append(clauses, "(p.coupon IS NULL OR p.coupon = '')")
		}
	}
	return strings.Join(clauses, " AND "), args
}

const clickJoin = `FROM promotion_clicks c LEFT JOIN promotions p ON p.id = c.promotion_id`

func CountPageViews(db *sql.DB, f AnalyticsFilter) (int, error) {
	where, args := f.window("created_at")
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM analytics WHERE `+where, args...).Scan(&n)
	return n, err
}

func CountUniqueVisitors(db *sql.DB, f AnalyticsFilter) (int, error) {
	where, args := f.window("created_at")
	var n int
	err := db.QueryRow(`SELECT COUNT(DISTINCT session_id) FROM analytics WHERE session_id != '' AND `+where, args...).Scan(&n)
	return n, err
}

func CountClicks(db *sql.DB, f AnalyticsFilter) (int, error) {
	where, args := f.clickWhere()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) `+clickJoin+` WHERE `+where, args...).Scan(&n)
	return n, err
}

func CountPromotionViews(db *sql.DB, f AnalyticsFilter) (int, error) {
	where, args := f.window("created_at")
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM promotion_views WHERE `+where, args...).Scan(&n)
	return n, err
}

func TopPages(db *sql.DB, f AnalyticsFilter, limit int) ([]PageCount, error) {
	where, args := f.window("created_at")
	args = append(args, limit)
	rows, err := db.Query(`SELECT page, COUNT(*) AS cnt FROM analytics WHERE `+where+` GROUP BY page ORDER BY cnt DESC, page LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("top pages: %w", err)
	}
	defer rows.Close()

	out := []PageCount{}
	for rows.Next() {
		var pc PageCount
		if err := rows.Scan(&pc.Page, &pc.Views); err != nil {
			return nil, err
		}
		out = append(out, pc)
	}
	return out, rows.Err()
}

func TopPromotions(db *sql.DB, f AnalyticsFilter, limit int) ([]PromotionClickCount, error) {
	where, args := f.clickWhere()
	args = append(args, limit)
	rows, err := db.Query(`SELECT c.promotion_id, COALESCE(p.title, ''), COALESCE(p.store_name, ''), p.coupon, COUNT(*) AS cnt `+
		clickJoin+` WHERE `+where+` GROUP BY c.promotion_id ORDER BY cnt DESC, c.promotion_id LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("top promotions: %w", err)
	}
	defer rows.Close()

	out := []PromotionClickCount{}
	for rows.Next() {
		var pc PromotionClickCount
		var coupon sql.NullString
		if err := rows.Scan(&pc.PromotionID, &pc.Title, &pc.StoreName, &coupon, &pc.Clicks); err != nil {
			return nil, err
		}
		if coupon.Valid && coupon.String != "" {
			pc.Coupon = &coupon.String
		}
		out = append(out, pc)
	}
	return out, rows.Err()
}

func TopStores(db *sql.DB, f AnalyticsFilter, limit int) ([]StoreCount, error) {
	where, args := f.clickWhere()
	args = append(args, limit)
	rows, err := db.Query(`SELECT p.store_name, COUNT(*) AS cnt `+clickJoin+` WHERE `+where+
		` AND p.store_name IS NOT NULL GROUP BY p.store_name ORDER BY cnt DESC, p.store_name LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("top stores: %w", err)
	}
	defer rows.Close()

	out := []StoreCount{}
	for rows.Next() {
		var sc StoreCount
		if err := rows.Scan(&sc.StoreName, &sc.Clicks); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// CouponStatsFor splits clicks by whether the clicked promotion carries a
// coupon. Clicks on deleted promotions count as without coupon.
func CouponStatsFor(db *sql.DB, f AnalyticsFilter) (CouponStats, error) {
	where, args := f.clickWhere()
	var s CouponStats
	err := db.QueryRow(`SELECT
		COALESCE(SUM(CASE WHEN p.coupon IS NOT NULL AND p.coupon != '' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN p.coupon IS NULL OR p.coupon = '' THEN 1 ELSE 0 END), 0) `+
		clickJoin+` WHERE `+where, args...).Scan(&s.WithCoupon, &s.WithoutCoupon)
	if err != nil {
		return s, fmt.Errorf("coupon stats: %w", err)
	}
	return s, nil
}

func DeviceStats(db *sql.DB, f AnalyticsFilter) ([]DeviceCount, error) {
	where, args := f.window("created_at")
	rows, err := db.Query(`SELECT COALESCE(device, 'unknown'), COUNT(*) AS cnt FROM analytics WHERE `+where+
		` GROUP BY COALESCE(device, 'unknown') ORDER BY cnt DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("device stats: %w", err)
	}
	defer rows.Close()

	out := []DeviceCount{}
	for rows.Next() {
		var dc DeviceCount
		if err := rows.Scan(&dc.Device, &dc.Count); err != nil {
			return nil, err
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}

// TopReferrers counts page views by referring host. Direct visits are
// skipped.
func TopReferrers(db *sql.DB, f AnalyticsFilter, limit int) ([]ReferrerCount, error) {
	where, args := f.window("created_at")
	args = append(args, limit)
	rows, err := db.Query(`SELECT referer, COUNT(*) AS cnt FROM analytics WHERE `+where+
		` AND referer IS NOT NULL AND referer != '' GROUP BY referer ORDER BY cnt DESC, referer LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("top referrers: %w", err)
	}
	defer rows.Close()

	out := []ReferrerCount{}
	for rows.Next() {
		var rc ReferrerCount
		if err := rows.Scan(&rc.Referer, &rc.Count); err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

func TopCountries(db *sql.DB, f AnalyticsFilter, limit int) ([]CountryCount, error) {
	where, args := f.window("created_at")
	args = append(args, limit)
	rows, err := db.Query(`SELECT country, COUNT(*) AS cnt FROM analytics WHERE `+where+
		` AND country IS NOT NULL AND country != '' GROUP BY country ORDER BY cnt DESC, country LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("top countries: %w", err)
	}
	defer rows.Close()

	out := []CountryCount{}
	for rows.Next() {
		var cc CountryCount
		if err := rows.Scan(&cc.Country, &cc.Count); err != nil {
			return nil, err
		}
		out = append(out, cc)
	}
	return out, rows.Err()
}

// DailyStats buckets page views and clicks by calendar day in f.Location,
// oldest first. SQL groups by UTC hour (the first thirteen bytes of the
// stored timestamp) and the hours are folded into local days here.
func DailyStats(db *sql.DB, f AnalyticsFilter) ([]DailyCount, error) {
	loc := f.Location
	if loc == nil {
		loc = time.UTC
	}
	where, args := f.window("created_at")
	clickArgs := append([]any{}, args...)
	rows, err := db.Query(`SELECT hour, SUM(views), SUM(clicks) FROM (
		SELECT substr(created_at, 1, 13) AS hour, 1 AS views, 0 AS clicks FROM analytics WHERE `+where+`
		UNION ALL
		SELECT substr(created_at, 1, 13) AS hour, 0 AS views, 1 AS clicks FROM promotion_clicks WHERE `+where+`
	) GROUP BY hour ORDER BY hour`, append(args, clickArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("daily stats: %w", err)
	}
	defer rows.Close()

	out := []DailyCount{}
	for rows.Next() {
		var (
			hour          string
			views, clicks int
		)
		if err := rows.Scan(&hour, &views, &clicks); err != nil {
			return nil, err
		}
		t, err := time.ParseInLocation("2006-01-02 15", strings.Replace(hour, "T", " ", 1), time.UTC)
		if err != nil {
			return nil, fmt.Errorf("daily stats: bad timestamp %q: %w", hour, err)
		}
		day := t.In(loc).Format("2006-01-02")
		// hours arrive in order, so a day's hours are contiguous
		if n := len(out); n > 0 && out[n-1].Date == day {
			out[n-1].PageViews += views
			out[n-1].Clicks += clicks
			continue
		}
		out = append(out, DailyCount{Date: day, PageViews: views, Clicks: clicks})
	}
	return out, rows.Err()
}

// ClickCountsForPromotions maps promotion id to its all-time click count.
func ClickCountsForPromotions(db *sql.DB, ids []string) (map[string]int, error) {
	counts := make(map[string]int, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := db.Query(`SELECT promotion_id, COUNT(*) FROM promotion_clicks WHERE promotion_id IN (`+placeholders+`) GROUP BY promotion_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("click counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}
