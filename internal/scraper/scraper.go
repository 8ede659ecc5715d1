// Package scraper finds a product image on a storefront page. It never
// fails: when every strategy declines, or the page can't be fetched, the
// caller gets Placeholder.
package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/farejai/fareja/internal/fetch"
)

// Placeholder is the orange "Produto" card used when no image can be found.
const Placeholder = "data:image/svg+xml;base64,PHN2ZyB3aWR0aD0iMzAwIiBoZWlnaHQ9IjMwMCIgeG1sbnM9Imh0dHA6Ly93d3cudzMub3JnLzIwMDAvc3ZnIj4KICA8cmVjdCB3aWR0aD0iMzAwIiBoZWlnaHQ9IjMwMCIgZmlsbD0iI2YzYTc1YyIvPgogIDx0ZXh0IHg9IjUwJSIgeT0iNTAlIiBmb250LWZhbWlseT0iQXJpYWwsIHNhbnMtc2VyaWYiIGZvbnQtc2l6ZT0iMjAiIGZpbGw9IndoaXRlIiB0ZXh0LWFuY2hvcj0ibWlkZGxlIiBkeT0iLjNlbSI+UHJvZHV0bzwvdGV4dD4KICA8L3N2Zz4="

const maxPageBytes = 5 << 20

// IsPlaceholder reports whether u is an inline data URI rather than a
// fetchable image.
func IsPlaceholder(u string) bool {
	return strings.HasPrefix(u, "data:")
}

// Page is a fetched storefront document. URL is the final location after
// redirects, so affiliate short links resolve to the real store host.
type Page struct {
	URL  *url.URL
	HTML string
	Doc  *goquery.Document
}

func NewPage(rawURL, html string) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Page{URL: u, HTML: html, Doc: doc}, nil
}

// Strategy yields an absolute image URL or declines.
type Strategy interface {
	Name() string
	Extract(p *Page) (string, bool)
}

// DefaultStrategies is the fallback chain, most specific first.
func DefaultStrategies() []Strategy {
	return []Strategy{
		Amazon{},
		MercadoLivre{},
		OpenGraph{},
		StaticAsset{},
		GenericImg{},
	}
}

type Scraper struct {
	client     *fetch.Client
	strategies []Strategy
	log        zerolog.Logger
}

func New(client *fetch.Client, log zerolog.Logger, strategies ...Strategy) *Scraper {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Scraper{client: client, strategies: strategies, log: log}
}

// Resolve fetches pageURL and runs the strategy chain.
func (s *Scraper) Resolve(ctx context.Context, pageURL string) string {
	resp, err := s.client.Get(ctx, pageURL, fetch.Request{Accept: fetch.AcceptHTML, MaxBytes: maxPageBytes})
	if err != nil {
		s.log.Warn().Err(err).Str("url", pageURL).Msg("scrape fetch failed, using placeholder")
		return Placeholder
	}

	finalURL := pageURL
	if resp.URL != nil {
		finalURL = resp.URL.String()
	}
	page, err := NewPage(finalURL, string(resp.Body))
	if err != nil {
		s.log.Warn().Err(err).Str("url", finalURL).Msg("scrape parse failed, using placeholder")
		return Placeholder
	}
	return s.Extract(page)
}

// Extract runs the strategy chain over an already loaded page.
func (s *Scraper) Extract(page *Page) string {
	for _, st := range s.strategies {
		if img, ok := st.Extract(page); ok {
			s.log.Debug().Str("strategy", st.Name()).Str("image", img).Msg("product image found")
			return img
		}
	}
	s.log.Info().Str("url", page.URL.String()).Msg("no product image found, using placeholder")
	return Placeholder
}

// absolute resolves ref against the page and keeps only http(s) results.
func (p *Page) absolute(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || IsPlaceholder(ref) {
		return "", false
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	if p.URL != nil {
		u = p.URL.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return u.String(), true
}

func hostHas(p *Page, needles ...string) bool {
	if p.URL == nil {
		return false
	}
	host := strings.ToLower(p.URL.Hostname())
	for _, n := range needles {
		if strings.Contains(host, n) {
			return true
		}
	}
	return false
}
