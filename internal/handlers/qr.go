package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/yeqown/go-qrcode/v2"
	"github.com/yeqown/go-qrcode/writer/standard"

	"github.com/farejai/fareja/internal/catalog"
)

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// QRCode renders the promotion's public link as a PNG. Query: shape=circle,
// fg=#rrggbb, dl=1 to download.
func (h *PromotionHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	shortID := chi.URLParam(r, "shortId")
	if _, err := h.Catalog.Get(shortID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			jsonError(w, "Promotion not found", http.StatusNotFound)
			return
		}
		serverError(w, r, h.Cfg.IsProduction(), "Failed to fetch promotion", err)
		return
	}

	q := r.URL.Query()
	opts := []standard.ImageOption{
		standard.WithBuiltinImageEncoder(standard.PNG_FORMAT),
		standard.WithQRWidth(10),
		standard.WithBorderWidth(20),
		standard.WithBgColorRGBHex("#ffffff"),
		standard.WithFgColorRGBHex("#ff6b35"),
	}
	if q.Get("shape") == "circle" {
		opts = append(opts, standard.WithCircleShape())
	}
	if fg := q.Get("fg"); hexColorRe.MatchString(fg) {
		opts = append(opts, standard.WithFgColorRGBHex(fg))
	}

	qrc, err := qrcode.New(h.siteLink(r, shortID))
	if err != nil {
		serverError(w, r, h.Cfg.IsProduction(), "Failed to generate QR code", err)
		return
	}

	var buf bytes.Buffer
	if err := qrc.Save(standard.NewWithWriter(nopCloser{&buf}, opts...)); err != nil {
		serverError(w, r, h.Cfg.IsProduction(), "Failed to render QR code", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if q.Get("dl") == "1" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+shortID+`-qr.png"`)
	}
	w.Write(buf.Bytes())
}
