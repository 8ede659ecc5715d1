// Package maintenance holds the batch jobs behind cmd/maintain. Each job
// walks the catalog oldest first, rewrites image references and reports what
// it touched.
package maintenance

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/farejai/fareja/internal/models"
	"github.com/farejai/fareja/internal/scraper"
	"github.com/farejai/fareja/internal/storage"
)

// Catalog is the slice of catalog.Service the jobs need.
type Catalog interface {
	All(limit int) ([]models.Promotion, error)
	SetImage(p *models.Promotion, imageURL string) error
}

// Storer runs the storage step of the image pipeline. It returns imageURL
// unchanged when the store fails.
type Storer interface {
	Store(ctx context.Context, imageURL, shortID string) string
}

type Options struct {
	// Delay is slept between promotions that hit the network.
	Delay  time.Duration
	Limit  int
	DryRun bool
	// BaseURL turns local references into absolute URLs a CDN can fetch.
	BaseURL string
	Log     zerolog.Logger
}

type Report struct {
	Scanned int `json:"scanned"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type job struct {
	eligible func(p *models.Promotion) bool
	apply    func(ctx context.Context, p *models.Promotion) string
	// network jobs are throttled by Options.Delay
	network bool
}

// OptimizeImages runs every externally hosted image through the store, so
// it ends up resized under our control.
func OptimizeImages(ctx context.Context, c Catalog, s Storer, opts Options) (Report, error) {
	return run(ctx, c, opts, job{
		eligible: func(p *models.Promotion) bool {
			return isExternal(p.ImageURL) && !storage.IsCloudinary(p.ImageURL)
		},
		apply: func(ctx context.Context, p *models.Promotion) string {
			return s.Store(ctx, p.ImageURL, p.ShortID)
		},
		network: true,
	})
}

// MigrateCDN uploads local and external images to the CDN store. Local
// images need opts.BaseURL so the CDN can fetch them.
func MigrateCDN(ctx context.Context, c Catalog, s Storer, opts Options) (Report, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	return run(ctx, c, opts, job{
		eligible: func(p *models.Promotion) bool {
			if storage.IsCloudinary(p.ImageURL) {
				return false
			}
			return isExternal(p.ImageURL) || (base != "" && storage.IsLocal(p.ImageURL))
		},
		apply: func(ctx context.Context, p *models.Promotion) string {
			src := p.ImageURL
			if storage.IsLocal(src) {
				src = base + src
			}
			// the store hands back its input on failure
			if next := s.Store(ctx, src, p.ShortID); next != src {
				return next
			}
			return p.ImageURL
		},
		network: true,
	})
}

// FixImageURLs rewrites references saved with a development host or without
// the public prefix. It never touches the network.
func FixImageURLs(ctx context.Context, c Catalog, opts Options) (Report, error) {
	return run(ctx, c, opts, job{
		eligible: func(p *models.Promotion) bool { return NormalizeImageRef(p.ImageURL) != p.ImageURL },
		apply:    func(_ context.Context, p *models.Promotion) string { return NormalizeImageRef(p.ImageURL) },
	})
}

// NormalizeImageRef maps "http://localhost:3000/images/products/a.jpg" and
// "a.jpg" to "/images/products/a.jpg". Anything else is returned as is.
func NormalizeImageRef(ref string) string {
	switch {
	case ref == "" || scraper.IsPlaceholder(ref) || strings.HasPrefix(ref, "data:"):
		return ref
	case strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://"):
		u, err := url.Parse(ref)
		if err != nil || !isDevHost(u.Hostname()) {
			return ref
		}
		if storage.IsLocal(u.Path) {
			return u.Path
		}
		return storage.PublicPrefix + "/" + strings.TrimPrefix(u.Path, "/")
	case strings.HasPrefix(ref, "/"):
		return ref
	case strings.HasPrefix(ref, "images/"):
		return "/" + ref
	case !strings.Contains(ref, "/") && !strings.Contains(ref, ":"):
		return storage.PublicPrefix + "/" + ref
	}
	return ref
}

// run applies j to each eligible promotion. A store that falls back to the
// original reference counts as a failure.
func run(ctx context.Context, c Catalog, opts Options, j job) (Report, error) {
	var rep Report
	promotions, err := c.All(opts.Limit)
	if err != nil {
		return rep, err
	}

	for i := range promotions {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		p := &promotions[i]
		rep.Scanned++
		log := opts.Log.With().Str("shortId", p.ShortID).Logger()

		if !j.eligible(p) {
			rep.Skipped++
			continue
		}
		if opts.DryRun {
			log.Info().Str("image", p.ImageURL).Msg("would update")
			rep.Updated++
			continue
		}

		next := j.apply(ctx, p)
		switch {
		case next == "" || next == p.ImageURL || scraper.IsPlaceholder(next):
			log.Warn().Str("image", p.ImageURL).Msg("image unchanged")
			rep.Failed++
		default:
			if err := c.SetImage(p, next); err != nil {
				log.Error().Err(err).Msg("update image")
				rep.Failed++
			} else {
				log.Info().Str("image", next).Msg("image updated")
				rep.Updated++
			}
		}

		if j.network && opts.Delay > 0 {
			select {
			case <-ctx.Done():
				return rep, ctx.Err()
			case <-time.After(opts.Delay):
			}
		}
	}
	return rep, nil
}

func isExternal(ref string) bool {
	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		return false
	}
	u, err := url.Parse(ref)
	return err == nil && !isDevHost(u.Hostname())
}

func isDevHost(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "0.0.0.0"
}
