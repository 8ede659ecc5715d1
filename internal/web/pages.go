package web

import (
	"errors"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/farejai/fareja/internal/analytics"
	"github.com/farejai/fareja/internal/catalog"
	"github.com/farejai/fareja/internal/config"
	"github.com/farejai/fareja/internal/models"
	"github.com/farejai/fareja/internal/preview"
)

const (
	perPage      = 24
	relatedLimit = 4

	homeTitle       = "Fareja - As Melhores Promoções e Cupons"
	homeDescription = "Promoções e cupons de desconto garimpados todos os dias nas maiores lojas do Brasil."
	couponsTitle    = "Cupons de Desconto - Fareja"
	couponsDetail   = "Todos os cupons de desconto ativos em um só lugar."
)

// Site renders the public pages.
type Site struct {
	cfg       *config.Config
	catalog   *catalog.Service
	templates *TemplateRegistry
}

func NewSite(cfg *config.Config, svc *catalog.Service) (*Site, error) {
	tmpl, err := NewTemplateRegistry()
	if err != nil {
		return nil, err
	}
	return &Site{cfg: cfg, catalog: svc, templates: tmpl}, nil
}

func (s *Site) RegisterRoutes(r chi.Router) {
	staticSub, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	r.Group(func(r chi.Router) {
		r.Use(analytics.SessionMiddleware)
		r.Get("/", s.Home)
		r.Get("/cupons", s.Coupons)
		r.Get("/p/{shortId}", s.Promotion)
	})
	r.NotFound(s.NotFound)
}

// SiteData is shared by every public page.
type SiteData struct {
	Meta        preview.Meta
	AnalyticsID string
	Path        string
}

type ListingData struct {
	SiteData
	Heading     string
	Promotions  []models.Promotion
	Stores      []string
	Store       string
	Search      string
	CouponsOnly bool
	Page        int
	TotalPages  int
	Total       int
	PrevURL     string
	NextURL     string
}

type PromotionData struct {
	SiteData
	Promotion *models.Promotion
	Discount  string
	Related   []models.Promotion
}

func (s *Site) siteData(r *http.Request, m preview.Meta) SiteData {
	return SiteData{Meta: m, AnalyticsID: s.cfg.AnalyticsID, Path: r.URL.Path}
}

func siteMeta(base, path, title, description string) preview.Meta {
	return preview.Meta{
		Title:       title,
		Description: description,
		URL:         base + path,
		SiteName:    preview.SiteName,
		TwitterCard: "summary",
	}
}

func (s *Site) Home(w http.ResponseWriter, r *http.Request) {
	meta := siteMeta(baseURL(r, s.cfg.BaseURL), "/", homeTitle, homeDescription)
	s.listing(w, r, meta, "Promoções do dia", false)
}

func (s *Site) Coupons(w http.ResponseWriter, r *http.Request) {
	meta := siteMeta(baseURL(r, s.cfg.BaseURL), "/cupons", couponsTitle, couponsDetail)
	s.listing(w, r, meta, "Cupons de desconto", true)
}

func (s *Site) listing(w http.ResponseWriter, r *http.Request, meta preview.Meta, heading string, couponsOnly bool) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	query := catalog.Query{
		Page:        page,
		Limit:       perPage,
		Store:       q.Get("store"),
		Search:      q.Get("search"),
		CouponsOnly: couponsOnly,
	}

	promotions, err := s.catalog.List(query)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	total, err := s.catalog.Count(query)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	stores, _ := s.catalog.Stores()

	totalPages := (total + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}

	data := ListingData{
		SiteData:    s.siteData(r, meta),
		Heading:     heading,
		Promotions:  promotions,
		Stores:      stores,
		Store:       query.Store,
		Search:      query.Search,
		CouponsOnly: couponsOnly,
		Page:        page,
		TotalPages:  totalPages,
		Total:       total,
	}
	if page > 1 {
		data.PrevURL = pageURL(r.URL, page-1)
	}
	if page < totalPages {
		data.NextURL = pageURL(r.URL, page+1)
	}
	s.templates.Render(w, "templates/home.html", data)
}

func pageURL(u *url.URL, page int) string {
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	return u.Path + "?" + q.Encode()
}

// Promotion renders the detail page. Link-preview crawlers may be handed the
// procedural card instead of the product photo when configured to.
func (s *Site) Promotion(w http.ResponseWriter, r *http.Request) {
	p, err := s.catalog.Get(chi.URLParam(r, "shortId"))
	if errors.Is(err, catalog.ErrNotFound) {
		s.NotFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	base := baseURL(r, s.cfg.BaseURL)
	meta := preview.Metadata(p, base)
	if s.cfg.PreviewPreferCard && analytics.IsBot(r.UserAgent()) {
		meta.PreferCard(base, p.ShortID)
	}

	related, err := s.catalog.Related(p, relatedLimit)
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("shortId", p.ShortID).Msg("related promotions failed")
	}

	// private: the response may carry a fresh visitor cookie
	w.Header().Set("Cache-Control", "private, max-age=300")
	if s.cfg.PreviewPreferCard {
		w.Header().Add("Vary", "User-Agent")
	}
	s.templates.Render(w, "templates/promotion.html", PromotionData{
		SiteData:  s.siteData(r, meta),
		Promotion: p,
		Discount:  discountLabel(p.Price, p.PriceFrom),
		Related:   related,
	})
}

func (s *Site) NotFound(w http.ResponseWriter, r *http.Request) {
	s.templates.RenderStatus(w, http.StatusNotFound, "templates/not_found.html", s.siteData(r, preview.NotFound()))
}

func (s *Site) serverError(w http.ResponseWriter, r *http.Request, err error) {
	hlog.FromRequest(r).Error().Err(err).Str("path", r.URL.Path).Msg("page render failed")
	http.Error(w, "Erro interno", http.StatusInternalServerError)
}
