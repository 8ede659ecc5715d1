package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/farejai/fareja/internal/catalog"
	"github.com/farejai/fareja/internal/config"
	"github.com/farejai/fareja/internal/models"
	"github.com/farejai/fareja/internal/preview"
)

type PromotionHandler struct {
	Catalog *catalog.Service
	Cfg     *config.Config
}

// priceField accepts a price as a JSON string or number. Numbers are
// rendered as BRL so the catalog always stores display strings.
type priceField struct {
	value string
	set   bool
}

func (p *priceField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		p.set = true
		return json.Unmarshal(b, &p.value)
	}
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return err
	}
	p.value, p.set = preview.FormatBRL(d), true
	return nil
}

func (p priceField) ptr() *string {
	if !p.set {
		return nil
	}
	v := p.value
	return &v
}

type createPromotionRequest struct {
	Title         string     `json:"title"`
	Price         priceField `json:"price"`
	PriceFrom     priceField `json:"price_from"`
	StoreName     string     `json:"storeName"`
	AffiliateLink string     `json:"affiliateLink"`
	Coupon        *string    `json:"coupon"`
	ForceNew      bool       `json:"forceNewPromotion"`
}

type promotionResponse struct {
	*models.Promotion
	SiteLink string `json:"siteLink"`
}

func (h *PromotionHandler) siteLink(r *http.Request, shortID string) string {
	return publicBase(r, h.Cfg.BaseURL) + "/p/" + shortID
}

func (h *PromotionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPromotionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	p, created, err := h.Catalog.Create(r.Context(), catalog.Input{
		Title:         req.Title,
		Price:         req.Price.value,
		PriceFrom:     req.PriceFrom.ptr(),
		StoreName:     req.StoreName,
		AffiliateLink: req.AffiliateLink,
		Coupon:        req.Coupon,
		ForceNew:      req.ForceNew,
	})
	if errors.Is(err, catalog.ErrMissingFields) {
		jsonError(w, "Missing required fields", http.StatusBadRequest)
		return
	}
	if err != nil {
		serverError(w, r, h.Cfg.IsProduction(), "Failed to create promotion", err)
		return
	}

	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	writeJSON(w, code, promotionResponse{Promotion: p, SiteLink: h.siteLink(r, p.ShortID)})
}

func (h *PromotionHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	promotions, err := h.Catalog.List(catalog.Query{
		Page:        page,
		Limit:       limit,
		Store:       q.Get("store"),
		Search:      q.Get("search"),
		CouponsOnly: q.Get("coupons") == "true",
	})
	if err != nil {
		serverError(w, r, h.Cfg.IsProduction(), "Failed to fetch promotions", err)
		return
	}
	writeJSON(w, http.StatusOK, promotions)
}

func (h *PromotionHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.Get(chi.URLParam(r, "shortId"))
	if errors.Is(err, catalog.ErrNotFound) {
		jsonError(w, "Promotion not found", http.StatusNotFound)
		return
	}
	if err != nil {
		serverError(w, r, h.Cfg.IsProduction(), "Failed to fetch promotion", err)
		return
	}
	writeJSON(w, http.StatusOK, promotionResponse{Promotion: p, SiteLink: h.siteLink(r, p.ShortID)})
}

func (h *PromotionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var sel catalog.Selector
	var message string
	switch {
	case q.Get("id") != "":
		sel.ID = q.Get("id")
		message = "Promotion deleted"
	case q.Get("deleteAll") == "true":
		sel.All = true
		message = "All promotions deleted"
	case q.Has("startDay") || q.Has("endDay") || q.Has("month") || q.Has("year"):
		rng, ok := parseDayRange(q)
		if !ok {
			jsonError(w, "Invalid date range", http.StatusBadRequest)
			return
		}
		sel.Range = &rng
		message = "Promotions deleted for the selected period"
	default:
		jsonError(w, "Provide id, deleteAll=true or startDay, endDay, month and year", http.StatusBadRequest)
		return
	}

	n, err := h.Catalog.Delete(sel)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		jsonError(w, "Promotion not found", http.StatusNotFound)
	case errors.Is(err, catalog.ErrInvalidRange):
		jsonError(w, "Invalid date range", http.StatusBadRequest)
	case err != nil:
		serverError(w, r, h.Cfg.IsProduction(), "Failed to delete promotions", err)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"message": message, "deletedCount": n})
	}
}

// parseDayRange reads startDay, endDay, month and year. All four must be
// integers; range checks are left to the catalog.
func parseDayRange(q map[string][]string) (catalog.DayRange, bool) {
	get := func(k string) (int, bool) {
		v, ok := q[k]
		if !ok || len(v) == 0 {
			return 0, false
		}
		n, err := strconv.Atoi(v[0])
		return n, err == nil
	}
	var rng catalog.DayRange
	var ok [4]bool
	rng.StartDay, ok[0] = get("startDay")
	rng.EndDay, ok[1] = get("endDay")
	rng.Month, ok[2] = get("month")
	rng.Year, ok[3] = get("year")
	return rng, ok[0] && ok[1] && ok[2] && ok[3]
}
