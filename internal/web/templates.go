package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"path"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// TemplateRegistry holds every page parsed against its layout. Templates
// are parsed once at startup and only read afterwards.
type TemplateRegistry struct {
	cache map[string]*template.Template
}

func NewTemplateRegistry() (*TemplateRegistry, error) {
	funcMap := templateFuncMap()
	tr := &TemplateRegistry{cache: make(map[string]*template.Template)}

	layouts := []struct {
		name  string
		pages []string
	}{
		{"templates/layout.html", []string{
			"templates/home.html",
			"templates/promotion.html",
			"templates/not_found.html",
		}},
		{"templates/admin_layout.html", []string{
			"templates/dashboard.html",
			"templates/promotions.html",
			"templates/analytics.html",
			"templates/stores.html",
		}},
	}

	for _, l := range layouts {
		// Pages render the promotion cards partial inside either layout.
		layout, err := template.New(path.Base(l.name)).Funcs(funcMap).ParseFS(templateFS, l.name, "templates/cards.html")
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", l.name, err)
		}
		for _, page := range l.pages {
			t, err := template.Must(layout.Clone()).ParseFS(templateFS, page)
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", page, err)
			}
			tr.cache[page] = t
		}
	}

	// Login (standalone, no layout)
	login, err := template.New("login.html").Funcs(funcMap).ParseFS(templateFS, "templates/login.html")
	if err != nil {
		return nil, fmt.Errorf("parse login: %w", err)
	}
	tr.cache["templates/login.html"] = login

	return tr, nil
}

func (tr *TemplateRegistry) Render(w http.ResponseWriter, name string, data any) {
	tr.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus executes the page into a buffer first so a template error
// never leaves a half-written page behind.
func (tr *TemplateRegistry) RenderStatus(w http.ResponseWriter, code int, name string, data any) {
	t, ok := tr.cache[name]
	if !ok {
		http.Error(w, "template not found: "+name, http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	buf.WriteTo(w)
}
