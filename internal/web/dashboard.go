package web

import (
	"net/http"

	"github.com/farejai/fareja/internal/analytics"
	"github.com/farejai/fareja/internal/catalog"
	"github.com/farejai/fareja/internal/models"
)

type DashboardData struct {
	PageData
	TotalPromotions int
	WithCoupon      int
	ViewsToday      int
	ClicksToday     int
	TopPromotions   []models.PromotionClickCount
	TopReferrers    []models.ReferrerCount
	Recent          []models.Promotion
	Form            PromotionForm
}

func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.renderDashboard(w, r, http.StatusOK, PromotionForm{Errors: map[string]string{}})
}

func (h *AdminHandler) renderDashboard(w http.ResponseWriter, r *http.Request, code int, form PromotionForm) {
	from, to := analytics.DayBounds(h.now(), h.cfg.Location)
	today := models.AnalyticsFilter{From: from, To: to}
	weekFrom, weekTo := analytics.Window(7, h.now())
	week := models.AnalyticsFilter{From: weekFrom, To: weekTo}

	totalPromotions, _ := h.catalog.Count(catalog.Query{})
	withCoupon, _ := h.catalog.Count(catalog.Query{CouponsOnly: true})
	viewsToday, _ := models.CountPageViews(h.db, today)
	clicksToday, _ := models.CountClicks(h.db, today)
	topPromotions, _ := models.TopPromotions(h.db, week, 5)
	topReferrers, _ := models.TopReferrers(h.db, week, 5)
	recent, _ := h.catalog.List(catalog.Query{Limit: 10})

	data := DashboardData{
		PageData:        h.pageData(w, r, "dashboard"),
		TotalPromotions: totalPromotions,
		WithCoupon:      withCoupon,
		ViewsToday:      viewsToday,
		ClicksToday:     clicksToday,
		TopPromotions:   topPromotions,
		TopReferrers:    topReferrers,
		Recent:          recent,
		Form:            form,
	}
	h.templates.RenderStatus(w, code, "templates/dashboard.html", data)
}
