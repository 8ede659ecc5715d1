// Package preview builds the social-preview metadata for a promotion page
// and draws the procedural card used when no product photo is usable.
package preview

import (
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/farejai/fareja/internal/models"
	"github.com/farejai/fareja/internal/scraper"
	"github.com/farejai/fareja/internal/storage"
)

const (
	SiteName       = "Fareja - As Melhores Promoções"
	maxTitleRunes  = 45
	CardWidth      = 1200
	CardHeight     = 630
	hurryMessage   = "Corre que acaba rápido!"
	notFoundTitle  = "Promoção não encontrada - Fareja"
	notFoundDetail = "Esta promoção não foi encontrada ou pode ter expirado."
)

// Meta is everything the detail page needs for Open Graph and Twitter tags.
type Meta struct {
	Title       string
	Description string
	URL         string
	Image       string
	ImageType   string
	ImageAlt    string
	ImageWidth  int
	ImageHeight int
	SiteName    string
	PriceAmount string
	Currency    string
	Brand       string
	TwitterCard string
	Keywords    string
	Discount    int
	HasDiscount bool
}

// Metadata computes the preview tags for p. baseURL is the public origin of
// the site; it is forced to https since preview crawlers refuse insecure
// images.
func Metadata(p *models.Promotion, baseURL string) Meta {
	base := secureBase(baseURL)
	discount, hasDiscount := Discount(p.Price, p.PriceFromValue())

	m := Meta{
		Title:       Title(p.Title, p.Price),
		Description: Description(discount, hasDiscount),
		URL:         base + "/p/" + p.ShortID,
		ImageAlt:    p.Title + " - " + p.StoreName + " - " + p.Price,
		ImageWidth:  CardWidth,
		ImageHeight: CardHeight,
		SiteName:    SiteName,
		PriceAmount: Amount(p.Price),
		Currency:    "BRL",
		Brand:       p.StoreName,
		TwitterCard: "summary_large_image",
		Keywords:    "promoção, oferta, desconto, " + p.StoreName + ", " + p.Title + ", cupom, barato",
		Discount:    discount,
		HasDiscount: hasDiscount,
	}
	m.Image, m.ImageType = ImageURL(p.ImageURL, p.ShortID, base)
	return m
}

// NotFound is the metadata served for an unknown shortId.
func NotFound() Meta {
	return Meta{Title: notFoundTitle, Description: notFoundDetail, SiteName: SiteName, TwitterCard: "summary"}
}

// PreferCard points the preview image at the procedural card.
func (m *Meta) PreferCard(baseURL, shortID string) {
	m.Image = CardURL(secureBase(baseURL), shortID)
	m.ImageType = "image/png"
}

func Title(title, price string) string {
	runes := []rune(title)
	if len(runes) > maxTitleRunes {
		return string(runes[:maxTitleRunes]) + "... - " + price
	}
	return title + " - " + price
}

func Description(discount int, ok bool) string {
	if ok {
		return "🔥" + strconv.Itoa(discount) + "% OFF! " + hurryMessage
	}
	return "🔥" + hurryMessage
}

func CardURL(base, shortID string) string {
	return base + "/api/og-image/" + url.PathEscape(shortID)
}

// ImageURL turns a stored image reference into an absolute https URL a
// crawler can fetch, along with its likely content type.
func ImageURL(ref, shortID, base string) (string, string) {
	switch {
	case ref == "" || scraper.IsPlaceholder(ref) || strings.HasPrefix(ref, "data:"):
		return CardURL(base, shortID), "image/png"
	case strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://"):
		u, err := url.Parse(ref)
		if err != nil {
			return CardURL(base, shortID), "image/png"
		}
		if isLoopback(u.Hostname()) {
			return base + u.EscapedPath(), typeFromPath(u.Path)
		}
		u.Scheme = "https"
		abs := storage.WhatsAppURL(u.String())
		return abs, typeFromPath(u.Path)
	case strings.HasPrefix(ref, "//"):
		return "https:" + ref, typeFromPath(ref)
	case strings.HasPrefix(ref, "/"):
		return base + ref, typeFromPath(ref)
	default:
		return base + storage.PublicPrefix + "/" + ref, typeFromPath(ref)
	}
}

func secureBase(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if strings.HasPrefix(base, "http://") {
		base = "https://" + strings.TrimPrefix(base, "http://")
	}
	return base
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "0.0.0.0" || host == "::1"
}

func typeFromPath(p string) string {
	switch strings.ToLower(path.Ext(p)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}
