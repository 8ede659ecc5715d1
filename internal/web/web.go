package web

import (
	"crypto/subtle"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/farejai/fareja/internal/catalog"
	"github.com/farejai/fareja/internal/config"
)

// AdminHandler serves the back office under /admin. The API secret doubles
// as the admin password and as the session signing key.
type AdminHandler struct {
	db        *sql.DB
	cfg       *config.Config
	catalog   *catalog.Service
	templates *TemplateRegistry
	now       func() time.Time
}

func NewAdminHandler(db *sql.DB, cfg *config.Config, svc *catalog.Service) (*AdminHandler, error) {
	tmpl, err := NewTemplateRegistry()
	if err != nil {
		return nil, err
	}

	return &AdminHandler{
		db:        db,
		cfg:       cfg,
		catalog:   svc,
		templates: tmpl,
		now:       time.Now,
	}, nil
}

func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Get("/login", h.LoginPage)
		r.Post("/login", h.LoginSubmit)

		r.Group(func(r chi.Router) {
			r.Use(SessionMiddleware(h.cfg.APISecret))

			r.Post("/logout", h.Logout)
			r.Get("/", h.Dashboard)
			r.Get("/promotions", h.PromotionList)
			r.Post("/promotions", h.PromotionCreate)
			r.Post("/promotions/{id}/delete", h.PromotionDelete)
			r.Post("/promotions/purge", h.PromotionPurge)
			r.Get("/analytics", h.Analytics)
			r.Get("/stores", h.Stores)
		})
	})
}

type PageData struct {
	Flash *Flash
	Nav   string
}

type LoginData struct {
	Error string
}

func (h *AdminHandler) pageData(w http.ResponseWriter, r *http.Request, nav string) PageData {
	return PageData{Flash: getFlash(w, r), Nav: nav}
}

func (h *AdminHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if verifySession(r, h.cfg.APISecret) {
		http.Redirect(w, r, "/admin", http.StatusFound)
		return
	}
	h.templates.Render(w, "templates/login.html", LoginData{})
}

func (h *AdminHandler) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	password := r.FormValue("password")

	if h.cfg.APISecret == "" || subtle.ConstantTimeCompare([]byte(password), []byte(h.cfg.APISecret)) != 1 {
		h.templates.RenderStatus(w, http.StatusUnauthorized, "templates/login.html", LoginData{Error: "Senha inválida"})
		return
	}

	createSession(w, h.cfg.APISecret)
	http.Redirect(w, r, "/admin", http.StatusFound)
}

func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	destroySession(w)
	http.Redirect(w, r, "/admin/login", http.StatusFound)
}
