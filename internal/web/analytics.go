package web

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/hlog"

	"github.com/farejai/fareja/internal/analytics"
	"github.com/farejai/fareja/internal/models"
)

type AnalyticsData struct {
	PageData
	Days           int
	Windows        []int
	Report         *analytics.Report
	ClicksThisWeek int
	ClicksPrevWeek int
	WeekChange     int
	WeekChangeUp   bool
}

func (h *AdminHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	if days <= 0 {
		days = analytics.DefaultDays
	}
	now := h.now()
	from, to := analytics.Window(days, now)

	report, err := analytics.BuildReport(h.db, models.AnalyticsFilter{From: from, To: to, Location: h.cfg.Location})
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("admin analytics")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	weekAgo := now.AddDate(0, 0, -7)
	thisWeek, _ := models.CountClicks(h.db, models.AnalyticsFilter{From: weekAgo, To: now})
	prevWeek, _ := models.CountClicks(h.db, models.AnalyticsFilter{From: weekAgo.AddDate(0, 0, -7), To: weekAgo})
	change, up := analytics.WeekChange(thisWeek, prevWeek)

	h.templates.Render(w, "templates/analytics.html", AnalyticsData{
		PageData:       h.pageData(w, r, "analytics"),
		Days:           days,
		Windows:        []int{1, 7, 30, 90},
		Report:         report,
		ClicksThisWeek: thisWeek,
		ClicksPrevWeek: prevWeek,
		WeekChange:     change,
		WeekChangeUp:   up,
	})
}
