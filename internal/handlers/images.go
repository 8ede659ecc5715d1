package handlers

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/farejai/fareja/internal/cache"
	"github.com/farejai/fareja/internal/catalog"
	"github.com/farejai/fareja/internal/config"
	"github.com/farejai/fareja/internal/fetch"
	"github.com/farejai/fareja/internal/imaging"
	"github.com/farejai/fareja/internal/models"
	"github.com/farejai/fareja/internal/preview"
	"github.com/farejai/fareja/internal/scraper"
	"github.com/farejai/fareja/internal/storage"
)

const (
	cacheForever  = "public, max-age=31536000, immutable"
	cacheFallback = "public, max-age=300"
	cacheCard     = "public, max-age=86400"

	proxyTimeout    = 10 * time.Second
	cdnTimeout      = 5 * time.Second
	cardImageTimout = 4 * time.Second
	whatsAppBudget  = 300 << 10
)

var pixelGIF = func() []byte {
	img := image.NewPaletted(image.Rect(0, 0, 1, 1), color.Palette{color.Transparent, color.White})
	var buf bytes.Buffer
	gif.Encode(&buf, img, nil)
	return buf.Bytes()
}()

// ImageHandler serves images for link previews. Every endpoint degrades to
// a placeholder instead of returning an upstream failure, since a broken
// image ruins the preview card.
type ImageHandler struct {
	Catalog *catalog.Service
	Fetch   *fetch.Client
	Cards   *cache.ImageCache
	Cfg     *config.Config
}

func writeImage(w http.ResponseWriter, contentType, cacheControl string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", cacheControl)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func writePixel(w http.ResponseWriter) {
	writeImage(w, "image/gif", cacheFallback, pixelGIF)
}

func sourceURL(r *http.Request) (string, bool) {
	raw := r.URL.Query().Get("url")
	u, err := url.Parse(raw)
	if raw == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", false
	}
	return raw, true
}

func (h *ImageHandler) fetchImage(ctx context.Context, src, ua string, timeout time.Duration) (*fetch.Response, error) {
	resp, err := h.Fetch.Get(ctx, src, fetch.Request{UserAgent: ua, Accept: fetch.AcceptImage, Timeout: timeout})
	if err != nil {
		return nil, err
	}
	ct, _, _ := strings.Cut(resp.ContentType, ";")
	ct = strings.ToLower(strings.TrimSpace(ct))
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(resp.Body)
	}
	if !strings.HasPrefix(ct, "image/") {
		return nil, errors.New("not an image: " + ct)
	}
	resp.ContentType = ct
	return resp, nil
}

// Proxy relays a remote image as a WhatsApp client would fetch it.
func (h *ImageHandler) Proxy(w http.ResponseWriter, r *http.Request) {
	h.relay(w, r, fetch.WhatsAppUA, proxyTimeout)
}

// CDNImage relays a remote image with the Facebook crawler User-Agent, which
// some marketplace CDNs serve when they block generic clients.
func (h *ImageHandler) CDNImage(w http.ResponseWriter, r *http.Request) {
	h.relay(w, r, fetch.FacebookUA, cdnTimeout)
}

func (h *ImageHandler) relay(w http.ResponseWriter, r *http.Request, ua string, timeout time.Duration) {
	src, ok := sourceURL(r)
	if !ok {
		writePixel(w)
		return
	}
	resp, err := h.fetchImage(r.Context(), src, ua, timeout)
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("url", src).Msg("image relay failed")
		writePixel(w)
		return
	}
	writeImage(w, resp.ContentType, cacheForever, resp.Body)
}

// WhatsAppImage returns the remote image re-encoded to fit WhatsApp's
// preview limits when it is too heavy or in a format WhatsApp ignores.
func (h *ImageHandler) WhatsAppImage(w http.ResponseWriter, r *http.Request) {
	src, ok := sourceURL(r)
	if !ok {
		writePixel(w)
		return
	}
	resp, err := h.fetchImage(r.Context(), src, fetch.BrowserUA, proxyTimeout)
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("url", src).Msg("whatsapp image fetch failed")
		writePixel(w)
		return
	}

	if len(resp.Body) <= whatsAppBudget && (resp.ContentType == "image/jpeg" || resp.ContentType == "image/png") {
		writeImage(w, resp.ContentType, cacheForever, resp.Body)
		return
	}

	res, err := imaging.Optimize(resp.Body, imaging.SquareProfile)
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("url", src).Msg("whatsapp image optimize failed")
		writePixel(w)
		return
	}
	writeImage(w, "image/jpeg", cacheForever, res.Data)
}

// WhatsAppImageFor serves the stored image of a promotion shrunk to the
// preview profile, or its procedural card when there is no usable photo.
func (h *ImageHandler) WhatsAppImageFor(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.Get(chi.URLParam(r, "shortId"))
	if errors.Is(err, catalog.ErrNotFound) {
		jsonError(w, "Promotion not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.serveCard(w, r, preview.MissingCard(), "")
		return
	}

	data, err := h.loadImage(r.Context(), p.ImageURL, proxyTimeout)
	if err == nil {
		var res *imaging.Result
		if res, err = imaging.Optimize(data, imaging.PreviewProfile); err == nil {
			writeImage(w, "image/jpeg", cacheCard, res.Data)
			return
		}
	}
	hlog.FromRequest(r).Info().Err(err).Str("shortId", p.ShortID).Msg("serving procedural card instead of photo")
	h.servePromotionCard(w, r, p)
}

// OGImage draws the procedural preview card for a promotion.
func (h *ImageHandler) OGImage(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.Get(chi.URLParam(r, "shortId"))
	if err != nil {
		h.serveCard(w, r, preview.MissingCard(), "")
		return
	}
	h.servePromotionCard(w, r, p)
}

func (h *ImageHandler) servePromotionCard(w http.ResponseWriter, r *http.Request, p *models.Promotion) {
	key := "card:" + p.ShortID + ":" + p.ImageURL
	if h.Cards != nil {
		if data, ok := h.Cards.Get(key); ok {
			writeImage(w, "image/png", cacheCard, data)
			return
		}
	}

	var photo image.Image
	if data, err := h.loadImage(r.Context(), p.ImageURL, cardImageTimout); err == nil {
		photo, _, _ = imaging.Decode(data)
	}
	h.serveCard(w, r, preview.PromotionCard(p, photo), key)
}

func (h *ImageHandler) serveCard(w http.ResponseWriter, r *http.Request, c preview.Card, key string) {
	data, err := preview.RenderCard(c)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("card render failed")
		writePixel(w)
		return
	}
	if key != "" && h.Cards != nil {
		h.Cards.Set(key, data)
	}
	writeImage(w, "image/png", cacheCard, data)
}

// loadImage reads a stored image reference: a file in the local image
// directory or a remote URL. Placeholders are reported as errors.
func (h *ImageHandler) loadImage(ctx context.Context, ref string, timeout time.Duration) ([]byte, error) {
	switch {
	case ref == "" || scraper.IsPlaceholder(ref) || strings.HasPrefix(ref, "data:"):
		return nil, errors.New("no product image")
	case storage.IsLocal(ref):
		return os.ReadFile(filepath.Join(h.Cfg.ImageDir, filepath.Base(ref)))
	default:
		resp, err := h.fetchImage(ctx, ref, fetch.BrowserUA, timeout)
		if err != nil {
			return nil, err
		}
		return resp.Body, nil
	}
}

// ForceRefresh redirects to the detail page with throwaway query parameters
// so preview crawlers treat it as a new URL and refetch the tags.
func (h *ImageHandler) ForceRefresh(w http.ResponseWriter, r *http.Request) {
	shortID := r.URL.Query().Get("shortId")
	if shortID == "" {
		jsonError(w, "Missing shortId", http.StatusBadRequest)
		return
	}

	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	rnd := strconv.Itoa(rand.IntN(1000000))
	q := url.Values{}
	switch r.URL.Query().Get("strategy") {
	case "1":
		q.Set("bot", "whatsapp")
		q.Set("t", ts)
		q.Set("r", rnd)
	case "2":
		q.Set("version", "2")
		q.Set("cache", "false")
		q.Set("ts", ts)
	case "3":
		q.Set("preview", "whatsapp")
		q.Set("refresh", ts)
		q.Set("unique", rnd)
	default:
		q.Set("v", rnd)
		q.Set("fbrefresh", ts)
		q.Set("t", ts)
	}
	http.Redirect(w, r, "/p/"+url.PathEscape(shortID)+"?"+q.Encode(), http.StatusFound)
}
