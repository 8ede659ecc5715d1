package web

import (
	"net/http"

	"github.com/farejai/fareja/internal/analytics"
	"github.com/farejai/fareja/internal/models"
)

type storeEntry struct {
	models.StoreSummary
	Clicks int
}

type StoresData struct {
	PageData
	Stores []storeEntry
	Days   int
}

// Stores lists every store with its catalog size and recent clicks.
func (h *AdminHandler) Stores(w http.ResponseWriter, r *http.Request) {
	summaries, err := models.StoreSummaries(h.db)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	from, to := analytics.Window(analytics.DefaultDays, h.now())
	clicks, _ := models.TopStores(h.db, models.AnalyticsFilter{From: from, To: to}, len(summaries)+1)
	byStore := make(map[string]int, len(clicks))
	for _, c := range clicks {
		byStore[c.StoreName] = c.Clicks
	}

	entries := make([]storeEntry, 0, len(summaries))
	for _, s := range summaries {
		entries = append(entries, storeEntry{StoreSummary: s, Clicks: byStore[s.StoreName]})
	}

	h.templates.Render(w, "templates/stores.html", StoresData{
		PageData: h.pageData(w, r, "stores"),
		Stores:   entries,
		Days:     analytics.DefaultDays,
	})
}
