package scraper

import (
	"encoding/json"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Amazon reads the dynamic image map on product pages, then the landing
// image element.
type Amazon struct{}

func (Amazon) Name() string { return "amazon" }

func (Amazon) Extract(p *Page) (string, bool) {
	if !hostHas(p, "amazon.", "amzn.") {
		return "", false
	}

	if raw, ok := p.Doc.Find("[data-a-dynamic-image]").First().Attr("data-a-dynamic-image"); ok {
		if img, ok := largestDynamicImage(raw); ok {
			return img, true
		}
	}

	landing := p.Doc.Find("img#landingImage").First()
	for _, attr := range []string{"data-old-hires", "src"} {
		if v, ok := landing.Attr(attr); ok {
			if img, ok := p.absolute(v); ok {
				return img, true
			}
		}
	}
	return "", false
}

// largestDynamicImage picks the biggest rendition from a
// {"url": [width, height]} map.
func largestDynamicImage(raw string) (string, bool) {
	var sizes map[string][]int
	if err := json.Unmarshal([]byte(raw), &sizes); err != nil || len(sizes) == 0 {
		return "", false
	}
	urls := make([]string, 0, len(sizes))
	for u := range sizes {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	best, bestArea := "", -1
	for _, u := range urls {
		area := 0
		if dims := sizes[u]; len(dims) == 2 {
			area = dims[0] * dims[1]
		}
		if area > bestArea && strings.HasPrefix(u, "http") {
			best, bestArea = u, area
		}
	}
	return best, best != ""
}

var (
	mlStaticRe       = regexp.MustCompile(`https://http2\.mlstatic\.com/[^"'\s\\]+?\.(?:jpe?g|png|webp)`)
	mlPreloadedRe    = regexp.MustCompile(`(?s)__PRELOADED_STATE__\s*=\s*(\{.*?\})\s*;?\s*</script>`)
	mlFullSizeMarker = []string{"-O.", "-F.", "-V."}
	mlThumbMarker    = []string{"-S.", "-T."}
)

// MercadoLivre walks the known product gallery markup, the static CDN
// pattern for full-size pictures, then the preloaded page state.
type MercadoLivre struct{}

func (MercadoLivre) Name() string { return "mercadolivre" }

func (MercadoLivre) Extract(p *Page) (string, bool) {
	if !hostHas(p, "mercadolivre.", "mercadolibre.", "mercadolivre", "mlstatic.") {
		return "", false
	}

	gallery := p.Doc.Find("img.ui-pdp-image").First()
	for _, attr := range []string{"data-zoom", "src"} {
		if v, ok := gallery.Attr(attr); ok {
			if img, ok := p.absolute(v); ok {
				return img, true
			}
		}
	}

	if v, ok := p.Doc.Find("[data-zoom]").First().Attr("data-zoom"); ok {
		if img, ok := p.absolute(v); ok {
			return img, true
		}
	}

	for _, m := range mlStaticRe.FindAllString(p.HTML, -1) {
		if containsAny(m, mlThumbMarker) || !containsAny(m, mlFullSizeMarker) {
			continue
		}
		return m, true
	}

	if m := mlPreloadedRe.FindStringSubmatch(p.HTML); m != nil {
		var state struct {
			Item struct {
				Pictures []struct {
					SecureURL string `json:"secure_url"`
					URL       string `json:"url"`
				} `json:"pictures"`
			} `json:"item"`
		}
		if json.Unmarshal([]byte(m[1]), &state) == nil && len(state.Item.Pictures) > 0 {
			pic := state.Item.Pictures[0]
			for _, candidate := range []string{pic.SecureURL, pic.URL} {
				if img, ok := p.absolute(candidate); ok {
					return img, true
				}
			}
		}
	}
	return "", false
}

// OpenGraph uses the og:image or twitter:image meta most storefronts emit.
type OpenGraph struct{}

func (OpenGraph) Name() string { return "opengraph" }

func (OpenGraph) Extract(p *Page) (string, bool) {
	selectors := []string{
		`meta[property="og:image:secure_url"]`,
		`meta[property="og:image"]`,
		`meta[name="twitter:image"]`,
	}
	for _, sel := range selectors {
		if v, ok := p.Doc.Find(sel).First().Attr("content"); ok {
			if img, ok := p.absolute(v); ok {
				return img, true
			}
		}
	}
	return "", false
}

var (
	assetURLRe = regexp.MustCompile(`https?://[^\s"'<>()\\]+?\.(?:jpe?g|png|webp)(?:\?[^\s"'<>\\]*)?`)
	// Chrome and tracking assets that are never the product.
	decorative = []string{"logo", "icon", "sprite", "favicon", "banner", "pixel", "placeholder", "loading"}
)

// StaticAsset scans the raw HTML for image URLs served from the store's own
// domain, including lazy-loaded ones that never appear in an <img src>.
type StaticAsset struct{}

func (StaticAsset) Name() string { return "static-asset" }

func (StaticAsset) Extract(p *Page) (string, bool) {
	if p.URL == nil {
		return "", false
	}
	site := registrableDomain(p.URL.Hostname())
	for _, m := range assetURLRe.FindAllString(p.HTML, -1) {
		u, err := url.Parse(m)
		if err != nil {
			continue
		}
		if registrableDomain(u.Hostname()) != site {
			continue
		}
		if containsAny(strings.ToLower(u.Path), decorative) {
			continue
		}
		return m, true
	}
	return "", false
}

var productHints = []string{"image", "product", "media", "mlstatic.com"}

// GenericImg scans <img> tags, preferring URLs with product-ish hints and
// otherwise taking the first plausible one.
type GenericImg struct{}

func (GenericImg) Name() string { return "generic-img" }

func (GenericImg) Extract(p *Page) (string, bool) {
	var fallback string
	var found string
	p.Doc.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src := s.AttrOr("src", "")
		if src == "" || IsPlaceholder(src) {
			src = s.AttrOr("data-src", "")
		}
		img, ok := p.absolute(src)
		if !ok || !plausibleImage(img, s) {
			return true
		}
		if containsAny(strings.ToLower(img), productHints) {
			found = img
			return false
		}
		if fallback == "" {
			fallback = img
		}
		return true
	})
	if found != "" {
		return found, true
	}
	return fallback, fallback != ""
}

func plausibleImage(img string, s *goquery.Selection) bool {
	lower := strings.ToLower(img)
	u, err := url.Parse(lower)
	if err != nil {
		return false
	}
	if strings.HasSuffix(u.Path, ".svg") || strings.HasSuffix(u.Path, ".gif") {
		return false
	}
	if containsAny(u.Path, decorative) {
		return false
	}
	for _, attr := range []string{"width", "height"} {
		if v, ok := s.Attr(attr); ok {
			if n, err := strconv.Atoi(strings.TrimSuffix(v, "px")); err == nil && n < 50 {
				return false
			}
		}
	}
	return true
}

// registrableDomain approximates eTLD+1, treating two-letter ccTLDs with a
// generic second level (com.br, co.uk) as a single suffix.
func registrableDomain(host string) string {
	labels := strings.Split(strings.ToLower(strings.TrimSuffix(host, ".")), ".")
	n := len(labels)
	if n <= 2 {
		return strings.Join(labels, ".")
	}
	switch labels[n-2] {
	case "com", "net", "org", "gov", "edu", "co":
		if len(labels[n-1]) == 2 {
			return strings.Join(labels[n-3:], ".")
		}
	}
	return strings.Join(labels[n-2:], ".")
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
