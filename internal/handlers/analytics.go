package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/hlog"

	"github.com/farejai/fareja/internal/analytics"
	"github.com/farejai/fareja/internal/config"
	"github.com/farejai/fareja/internal/models"
)

type AnalyticsHandler struct {
	DB        *sql.DB
	Collector *analytics.Collector
	Cfg       *config.Config
	Now       func() time.Time
}

func (h *AnalyticsHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

type trackRequest struct {
	Type string `json:"type"`
	Data struct {
		Page        string `json:"page"`
		PromotionID string `json:"promotionId"`
		ButtonType  string `json:"buttonType"`
		ViewType    string `json:"viewType"`
		SessionID   string `json:"sessionId"`
	} `json:"data"`
}

// Track records a page view, promotion click or promotion view. Once the
// body is understood it always answers success; storage is asynchronous.
func (h *AnalyticsHandler) Track(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid event type", http.StatusBadRequest)
		return
	}

	hit := analytics.Hit{
		Kind:      req.Type,
		SessionID: req.Data.SessionID,
		IP:        analytics.ClientIP(r),
		UserAgent: r.UserAgent(),
		Referer:   r.Referer(),
		At:        h.now(),
	}
	if hit.SessionID == "" {
		hit.SessionID = analytics.SessionID(r)
	}

	switch req.Type {
	case models.EventPageView:
		hit.Page = req.Data.Page
		if hit.Page == "" {
			hit.Page = "/"
		}
	case models.EventPromotionClick:
		hit.PromotionID, hit.Detail = req.Data.PromotionID, req.Data.ButtonType
	case models.EventPromotionView:
		hit.PromotionID, hit.Detail = req.Data.PromotionID, req.Data.ViewType
	default:
		jsonError(w, "Invalid event type", http.StatusBadRequest)
		return
	}

	if h.Collector != nil {
		h.Collector.Push(hit)
	} else {
		hlog.FromRequest(r).Warn().Str("type", req.Type).Msg("analytics collector not configured")
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// filterFromQuery reads days or startDay/endDay/month/year plus the click
// filters storeName and hasCoupon.
func (h *AnalyticsHandler) filterFromQuery(r *http.Request) (models.AnalyticsFilter, error) {
	q := r.URL.Query()
	f := models.AnalyticsFilter{Location: h.Cfg.Location}

	if q.Has("startDay") || q.Has("endDay") || q.Has("month") || q.Has("year") {
		rng, ok := parseDayRange(q)
		if !ok {
			return f, analytics.ErrInvalidRange
		}
		from, to, err := analytics.DayRange(rng.StartDay, rng.EndDay, rng.Month, rng.Year, h.Cfg.Location)
		if err != nil {
			return f, err
		}
		f.From, f.To = from, to
	} else {
		days, _ := strconv.Atoi(q.Get("days"))
		f.From, f.To = analytics.Window(days, h.now())
	}

	f.Store = q.Get("storeName")
	switch q.Get("hasCoupon") {
	case "true":
		yes := true
		f.HasCoupon = &yes
	case "false":
		no := false
		f.HasCoupon = &no
	}
	return f, nil
}

func (h *AnalyticsHandler) Data(w http.ResponseWriter, r *http.Request) {
	f, err := h.filterFromQuery(r)
	if err != nil {
		jsonError(w, "Invalid date range", http.StatusBadRequest)
		return
	}

	report, err := analytics.BuildReport(h.DB, f)
	if err != nil {
		serverError(w, r, h.Cfg.IsProduction(), "Failed to load analytics", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Delete purges events for a day range, or everything older than
// olderThanDays.
func (h *AnalyticsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var from, to time.Time
	var message string

	if v := q.Get("olderThanDays"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 0 {
			jsonError(w, "Invalid olderThanDays", http.StatusBadRequest)
			return
		}
		from, to = time.Unix(0, 0), h.now().AddDate(0, 0, -days)
		message = "Analytics older than " + strconv.Itoa(days) + " days deleted"
	} else {
		rng, ok := parseDayRange(q)
		if !ok {
			jsonError(w, "startDay, endDay, month and year are required", http.StatusBadRequest)
			return
		}
		var err error
		from, to, err = analytics.DayRange(rng.StartDay, rng.EndDay, rng.Month, rng.Year, h.Cfg.Location)
		if err != nil {
			jsonError(w, "Invalid date range", http.StatusBadRequest)
			return
		}
		message = "Analytics deleted for the selected period"
	}

	counts, err := models.DeleteEventsBetween(h.DB, from, to)
	if err != nil {
		serverError(w, r, h.Cfg.IsProduction(), "Failed to delete analytics", err)
		return
	}
	hlog.FromRequest(r).Info().Int64("total", counts.Total).Time("from", from).Time("to", to).Msg("analytics deleted")
	writeJSON(w, http.StatusOK, map[string]any{"message": message, "deletedCounts": counts})
}
