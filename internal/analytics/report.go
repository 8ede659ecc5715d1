package analytics

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/farejai/fareja/internal/models"
)

// TopN bounds every ranked list in a Report.
const TopN = 10

// Report is the aggregate view over one window, served by the analytics API
// and rendered by the admin.
type Report struct {
	TotalPageViews int                          `json:"totalPageViews"`
	UniqueVisitors int                          `json:"uniqueVisitors"`
	TotalClicks    int                          `json:"totalClicks"`
	PromotionViews int                          `json:"promotionViews"`
	ConversionRate string                       `json:"conversionRate"`
	TopPages       []models.PageCount           `json:"topPages"`
	TopPromotions  []models.PromotionClickCount `json:"topPromotions"`
	TopStores      []models.StoreCount          `json:"topStores"`
	TopReferrers   []models.ReferrerCount       `json:"topReferrers"`
	TopCountries   []models.CountryCount        `json:"topCountries"`
	CouponStats    models.CouponStats           `json:"couponStats"`
	DeviceStats    []models.DeviceCount         `json:"deviceStats"`
	DailyStats     []models.DailyCount          `json:"dailyStats"`
	From           time.Time                    `json:"from"`
	To             time.Time                    `json:"to"`
}

// BuildReport runs the aggregate queries concurrently and fails on the first
// error.
func BuildReport(db *sql.DB, f models.AnalyticsFilter) (*Report, error) {
	r := &Report{From: f.From, To: f.To}

	var g errgroup.Group
	g.Go(func() (err error) { r.TotalPageViews, err = models.CountPageViews(db, f); return })
	g.Go(func() (err error) { r.UniqueVisitors, err = models.CountUniqueVisitors(db, f); return })
	g.Go(func() (err error) { r.TotalClicks, err = models.CountClicks(db, f); return })
	g.Go(func() (err error) { r.PromotionViews, err = models.CountPromotionViews(db, f); return })
	g.Go(func() (err error) { r.TopPages, err = models.TopPages(db, f, TopN); return })
	g.Go(func() (err error) { r.TopPromotions, err = models.TopPromotions(db, f, TopN); return })
	g.Go(func() (err error) { r.TopStores, err = models.TopStores(db, f, TopN); return })
	g.Go(func() (err error) { r.TopReferrers, err = models.TopReferrers(db, f, TopN); return })
	g.Go(func() (err error) { r.TopCountries, err = models.TopCountries(db, f, TopN); return })
	g.Go(func() (err error) { r.CouponStats, err = models.CouponStatsFor(db, f); return })
	g.Go(func() (err error) { r.DeviceStats, err = models.DeviceStats(db, f); return })
	g.Go(func() (err error) { r.DailyStats, err = models.DailyStats(db, f); return })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.ConversionRate = ConversionRate(r.TotalClicks, r.TotalPageViews)
	return r, nil
}

// ConversionRate is clicks per page view as a percentage with two decimals.
func ConversionRate(clicks, views int) string {
	if views <= 0 {
		return "0.00"
	}
	return decimal.NewFromInt(int64(clicks)).
		Div(decimal.NewFromInt(int64(views))).
		Mul(decimal.NewFromInt(100)).
		StringFixed(2)
}

// WeekChange compares the last seven days of clicks with the seven before,
// as a whole percentage. A quiet previous week counts as +100% when there
// is any activity now.
func WeekChange(thisWeek, prevWeek int) (int, bool) {
	up := thisWeek >= prevWeek
	switch {
	case prevWeek > 0:
		return (thisWeek - prevWeek) * 100 / prevWeek, up
	case thisWeek > 0:
		return 100, up
	default:
		return 0, up
	}
}
