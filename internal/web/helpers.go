package web

import (
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/farejai/fareja/internal/preview"
	"github.com/farejai/fareja/internal/scraper"
	"github.com/farejai/fareja/internal/storage"
)

func templateFuncMap() template.FuncMap {
	return template.FuncMap{
		"timeAgo":     timeAgo,
		"formatNum":   formatNum,
		"truncate":    truncate,
		"add":         func(a, b int) int { return a + b },
		"sub":         func(a, b int) int { return a - b },
		"seq":         seq,
		"countryFlag": countryFlag,
		"imageSrc":    imageSrc,
		"discount":    discountLabel,
		"percent":     percent,
		"shortDate":   func(t time.Time) string { return t.Format("02/01/2006") },
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "há 1 " + one
	}
	return fmt.Sprintf("há %d %s", n, many)
}

// timeAgo renders a pt-BR relative time ("há 3 horas").
func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "agora mesmo"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minuto", "minutos")
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hora", "horas")
	case d < 30*24*time.Hour:
		return plural(int(d.Hours()/24), "dia", "dias")
	default:
		months := int(d.Hours() / (24 * 30))
		if months < 1 {
			months = 1
		}
		return plural(months, "mês", "meses")
	}
}

func formatNum(n int) string {
	if n < 1000 {
		return strconv.Itoa(n)
	}
	if n < 1_000_000 {
		return strings.Replace(fmt.Sprintf("%.1fk", float64(n)/1000), ".", ",", 1)
	}
	return strings.Replace(fmt.Sprintf("%.1fM", float64(n)/1_000_000), ".", ",", 1)
}

// truncate cuts on rune boundaries; titles are full of accents.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-1]) + "…"
}

func countryFlag(code string) string {
	if len(code) != 2 {
		return code
	}
	code = strings.ToUpper(code)
	return string(rune(code[0])-'A'+0x1F1E6) + string(rune(code[1])-'A'+0x1F1E6)
}

func seq(start, end int) []int {
	if start > end {
		return nil
	}
	result := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		result = append(result, i)
	}
	return result
}

// imageSrc turns a stored image reference into something an <img> can load.
// The placeholder is a data URI, which html/template only lets through when
// typed as a URL, so it is the one reference trusted as is.
func imageSrc(ref string) template.URL {
	switch {
	case ref == "" || scraper.IsPlaceholder(ref):
		return template.URL(scraper.Placeholder)
	case strings.HasPrefix(ref, "https://"), strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "/"):
		return template.URL(ref)
	case strings.Contains(ref, ":"):
		return template.URL(scraper.Placeholder)
	default:
		return template.URL(storage.PublicPrefix + "/" + url.PathEscape(ref))
	}
}

// discountLabel is "-35%" or "" when the promotion has no real discount.
func discountLabel(price string, from *string) string {
	if from == nil {
		return ""
	}
	pct, ok := preview.Discount(price, *from)
	if !ok {
		return ""
	}
	return "-" + strconv.Itoa(pct) + "%"
}

func percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return part * 100 / total
}

// baseURL is the public origin of the site: the configured one, else the
// request's.
func baseURL(r *http.Request, configured string) string {
	if configured != "" {
		return strings.TrimRight(configured, "/")
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
