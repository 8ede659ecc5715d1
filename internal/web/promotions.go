package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/farejai/fareja/internal/catalog"
	"github.com/farejai/fareja/internal/models"
)

const promotionsPerPage = 20

// PromotionForm carries the create form back to the page on a validation
// error.
type PromotionForm struct {
	Errors map[string]string
	Values map[string]string
}

type PromotionRow struct {
	models.Promotion
	Clicks int
}

type PromotionsData struct {
	PageData
	Promotions []PromotionRow
	Stores     []string
	Search     string
	Store      string
	Page       int
	TotalPages int
	Total      int
}

func (h *AdminHandler) PromotionList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	query := catalog.Query{Page: page, Limit: promotionsPerPage, Search: q.Get("search"), Store: q.Get("store")}

	promotions, err := h.catalog.List(query)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("admin list promotions")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	total, _ := h.catalog.Count(query)
	stores, _ := h.catalog.Stores()

	ids := make([]string, len(promotions))
	for i, p := range promotions {
		ids[i] = p.ID
	}
	clickCounts, _ := models.ClickCountsForPromotions(h.db, ids)

	rows := make([]PromotionRow, len(promotions))
	for i, p := range promotions {
		rows[i] = PromotionRow{Promotion: p, Clicks: clickCounts[p.ID]}
	}

	totalPages := (total + promotionsPerPage - 1) / promotionsPerPage
	if totalPages < 1 {
		totalPages = 1
	}

	h.templates.Render(w, "templates/promotions.html", PromotionsData{
		PageData:   h.pageData(w, r, "promotions"),
		Promotions: rows,
		Stores:     stores,
		Search:     query.Search,
		Store:      query.Store,
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
	})
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func (h *AdminHandler) PromotionCreate(w http.ResponseWriter, r *http.Request) {
	r.ParseForm()

	values := map[string]string{
		"title":         r.FormValue("title"),
		"price":         r.FormValue("price"),
		"price_from":    r.FormValue("price_from"),
		"storeName":     r.FormValue("storeName"),
		"affiliateLink": r.FormValue("affiliateLink"),
		"coupon":        r.FormValue("coupon"),
	}

	errs := map[string]string{}
	for field, msg := range map[string]string{
		"title":         "Informe o título",
		"price":         "Informe o preço",
		"storeName":     "Informe a loja",
		"affiliateLink": "Informe o link de afiliado",
	} {
		if strings.TrimSpace(values[field]) == "" {
			errs[field] = msg
		}
	}
	if link := strings.TrimSpace(values["affiliateLink"]); link != "" &&
		!strings.HasPrefix(link, "http://") && !strings.HasPrefix(link, "https://") {
		errs["affiliateLink"] = "O link deve começar com http:// ou https://"
	}
	if len(errs) > 0 {
		h.renderDashboard(w, r, http.StatusUnprocessableEntity, PromotionForm{Errors: errs, Values: values})
		return
	}

	p, created, err := h.catalog.Create(r.Context(), catalog.Input{
		Title:         values["title"],
		Price:         values["price"],
		PriceFrom:     optional(values["price_from"]),
		StoreName:     values["storeName"],
		AffiliateLink: values["affiliateLink"],
		Coupon:        optional(values["coupon"]),
		ForceNew:      r.FormValue("forceNew") == "on",
	})
	if errors.Is(err, catalog.ErrMissingFields) {
		errs["title"] = "Preencha os campos obrigatórios"
		h.renderDashboard(w, r, http.StatusUnprocessableEntity, PromotionForm{Errors: errs, Values: values})
		return
	}
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("admin create promotion")
		setFlash(w, flashError, "Falha ao criar a promoção")
		http.Redirect(w, r, "/admin", http.StatusFound)
		return
	}

	if created {
		setFlash(w, flashSuccess, "Promoção criada: /p/"+p.ShortID)
	} else {
		setFlash(w, flashSuccess, "Promoção já existia: /p/"+p.ShortID)
	}
	http.Redirect(w, r, "/admin", http.StatusFound)
}

func (h *AdminHandler) PromotionDelete(w http.ResponseWriter, r *http.Request) {
	_, err := h.catalog.Delete(catalog.Selector{ID: chi.URLParam(r, "id")})
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		setFlash(w, flashError, "Promoção não encontrada")
	case err != nil:
		hlog.FromRequest(r).Error().Err(err).Msg("admin delete promotion")
		setFlash(w, flashError, "Falha ao excluir a promoção")
	default:
		setFlash(w, flashSuccess, "Promoção excluída")
	}
	http.Redirect(w, r, "/admin/promotions", http.StatusFound)
}

// PromotionPurge deletes every promotion created in a day range of one
// month.
func (h *AdminHandler) PromotionPurge(w http.ResponseWriter, r *http.Request) {
	r.ParseForm()
	var rng catalog.DayRange
	var convErr error
	atoi := func(field string) int {
		n, err := strconv.Atoi(strings.TrimSpace(r.FormValue(field)))
		if err != nil {
			convErr = err
		}
		return n
	}
	rng.StartDay, rng.EndDay = atoi("startDay"), atoi("endDay")
	rng.Month, rng.Year = atoi("month"), atoi("year")

	if convErr != nil {
		setFlash(w, flashError, "Período inválido")
		http.Redirect(w, r, "/admin/promotions", http.StatusFound)
		return
	}

	n, err := h.catalog.Delete(catalog.Selector{Range: &rng})
	switch {
	case errors.Is(err, catalog.ErrInvalidRange):
		setFlash(w, flashError, "Período inválido")
	case err != nil:
		hlog.FromRequest(r).Error().Err(err).Msg("admin purge promotions")
		setFlash(w, flashError, "Falha ao excluir as promoções")
	default:
		setFlash(w, flashSuccess, strconv.FormatInt(n, 10)+" promoções excluídas")
	}
	http.Redirect(w, r, "/admin/promotions", http.StatusFound)
}
