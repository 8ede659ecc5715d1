// Package pipeline resolves the image stored with a promotion: scrape the
// product page, then hand the result to the configured store. It never
// fails; the worst outcome is the scraper placeholder.
package pipeline

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/farejai/fareja/internal/metrics"
	"github.com/farejai/fareja/internal/scraper"
	"github.com/farejai/fareja/internal/storage"
)

// ImageResolver is what the catalog needs from the pipeline.
type ImageResolver interface {
	Resolve(ctx context.Context, affiliateLink, shortID string) string
}

type Resolver interface {
	Resolve(ctx context.Context, pageURL string) string
}

type Pipeline struct {
	scraper Resolver
	store   storage.Store
	log     zerolog.Logger
}

func New(s Resolver, store storage.Store, log zerolog.Logger) *Pipeline {
	if store == nil {
		store = storage.NopStore{}
	}
	return &Pipeline{scraper: s, store: store, log: log}
}

func (p *Pipeline) Resolve(ctx context.Context, affiliateLink, shortID string) string {
	found := p.scraper.Resolve(ctx, affiliateLink)
	if scraper.IsPlaceholder(found) {
		metrics.ImagesResolved.WithLabelValues(metrics.ImagePlaceholder).Inc()
		return found
	}
	return p.Store(ctx, found, shortID)
}

// Store runs only the storage step, falling back to imageURL when the store
// fails. The maintenance commands use it for images that are already known.
func (p *Pipeline) Store(ctx context.Context, imageURL, shortID string) string {
	if scraper.IsPlaceholder(imageURL) {
		return imageURL
	}
	ref, err := p.store.Save(ctx, imageURL, shortID)
	if err != nil || ref == "" {
		p.log.Warn().Err(err).Str("shortId", shortID).Str("image", imageURL).
			Msg("image store failed, keeping original url")
		metrics.ImagesResolved.WithLabelValues(metrics.ImageFallback).Inc()
		return imageURL
	}
	metrics.ImagesResolved.WithLabelValues(metrics.ImageStored).Inc()
	return ref
}
