// Package catalog is the promotion service shared by the JSON API, the admin
// pages and the maintenance commands. It owns deduplication, short ids and
// the promotion cache.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/farejai/fareja/internal/analytics"
	"github.com/farejai/fareja/internal/cache"
	"github.com/farejai/fareja/internal/metrics"
	"github.com/farejai/fareja/internal/models"
	"github.com/farejai/fareja/internal/pipeline"
	"github.com/farejai/fareja/internal/scraper"
	"github.com/farejai/fareja/internal/shortid"
)

var (
	ErrMissingFields = errors.New("missing required fields")
	ErrInvalidRange  = analytics.ErrInvalidRange
	ErrNotFound      = models.ErrNotFound
	ErrNoSelector    = errors.New("no delete selector")
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Input is a promotion as submitted by an editor.
type Input struct {
	Title         string
	Price         string
	PriceFrom     *string
	StoreName     string
	AffiliateLink string
	Coupon        *string
	ForceNew      bool
}

func (in *Input) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Price = strings.TrimSpace(in.Price)
	in.StoreName = strings.TrimSpace(in.StoreName)
	in.AffiliateLink = strings.TrimSpace(in.AffiliateLink)
	in.PriceFrom = trimmedOrNil(in.PriceFrom)
	in.Coupon = trimmedOrNil(in.Coupon)
}

func (in Input) valid() bool {
	return in.Title != "" && in.Price != "" && in.StoreName != "" && in.AffiliateLink != ""
}

// Query is a page of the public listing. Page is 1-based.
type Query struct {
	Page        int
	Limit       int
	Store       string
	Search      string
	CouponsOnly bool
}

func (q Query) filter() models.ListFilter {
	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return models.ListFilter{
		Store:       strings.TrimSpace(q.Store),
		Search:      strings.TrimSpace(q.Search),
		CouponsOnly: q.CouponsOnly,
		Limit:       limit,
		Offset:      (page - 1) * limit,
	}
}

// Selector picks what Delete removes. Exactly one of ID, All or a day range
// (all four Range fields non-zero) is honored, in that order.
type Selector struct {
	ID    string
	All   bool
	Range *DayRange
}

type DayRange struct {
	StartDay, EndDay, Month, Year int
}

type Service struct {
	db     *sql.DB
	images pipeline.ImageResolver
	cache  *cache.PromotionCache
	loc    *time.Location
	log    zerolog.Logger
	now    func() time.Time
}

// New builds the service. images may be nil, in which case promotions are
// stored with the placeholder image.
func New(db *sql.DB, images pipeline.ImageResolver, promoCache *cache.PromotionCache, loc *time.Location, log zerolog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{db: db, images: images, cache: promoCache, loc: loc, log: log, now: time.Now}
}

func (s *Service) Location() *time.Location { return s.loc }

// Create stores a new promotion, or refreshes the image of a duplicate. The
// bool is true when a row was inserted.
func (s *Service) Create(ctx context.Context, in Input) (*models.Promotion, bool, error) {
	in.normalize()
	if !in.valid() {
		return nil, false, ErrMissingFields
	}

	if !in.ForceNew {
		existing, err := s.findDuplicate(in)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			if err := s.refreshImage(ctx, existing, in.AffiliateLink); err != nil {
				return nil, false, err
			}
			metrics.PromotionsCreated.WithLabelValues("duplicate").Inc()
			return existing, false, nil
		}
	}

	id, err := shortid.Unique(func(candidate string) (bool, error) {
		return models.ShortIDExists(s.db, candidate)
	})
	if err != nil {
		return nil, false, fmt.Errorf("generate short id: %w", err)
	}

	p := &models.Promotion{
		ShortID:       id,
		Title:         in.Title,
		Price:         in.Price,
		PriceFrom:     in.PriceFrom,
		StoreName:     in.StoreName,
		AffiliateLink: in.AffiliateLink,
		Coupon:        in.Coupon,
		ImageURL:      s.resolveImage(ctx, in.AffiliateLink, id),
		CreatedAt:     s.now(),
	}
	if err := models.CreatePromotion(s.db, p); err != nil {
		return nil, false, err
	}

	s.log.Info().Str("shortId", p.ShortID).Str("store", p.StoreName).
		Bool("placeholder", scraper.IsPlaceholder(p.ImageURL)).Msg("promotion created")
	metrics.PromotionsCreated.WithLabelValues("created").Inc()
	return p, true, nil
}

func (s *Service) findDuplicate(in Input) (*models.Promotion, error) {
	p, err := models.FindPromotionByAffiliateLink(s.db, in.AffiliateLink)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("dedup by link: %w", err)
	}

	from, to := analytics.DayBounds(s.now(), s.loc)
	p, err = models.FindPromotionByTitleBetween(s.db, in.Title, from, to)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("dedup by title: %w", err)
	}
	return nil, nil
}

// refreshImage re-runs the image pipeline for an existing promotion and
// stores the result when it is a real, different image.
func (s *Service) refreshImage(ctx context.Context, p *models.Promotion, link string) error {
	img := s.resolveImage(ctx, link, p.ShortID)
	if img == p.ImageURL || scraper.IsPlaceholder(img) {
		s.log.Info().Str("shortId", p.ShortID).Msg("duplicate promotion, image unchanged")
		return nil
	}
	if err := s.SetImage(p, img); err != nil {
		return err
	}
	s.log.Info().Str("shortId", p.ShortID).Msg("duplicate promotion, image updated")
	return nil
}

// SetImage persists a new image reference for p and drops it from the cache.
func (s *Service) SetImage(p *models.Promotion, imageURL string) error {
	if err := models.UpdatePromotionImage(s.db, p.ID, imageURL); err != nil {
		return err
	}
	p.ImageURL = imageURL
	s.invalidate(p.ShortID)
	return nil
}

func (s *Service) resolveImage(ctx context.Context, link, shortID string) string {
	if s.images == nil {
		return scraper.Placeholder
	}
	return s.images.Resolve(ctx, link, shortID)
}

// List returns one page of promotions, newest first. The slice is never nil.
func (s *Service) List(q Query) ([]models.Promotion, error) {
	return models.ListPromotions(s.db, q.filter())
}

// Count returns the number of promotions matching q, ignoring paging.
func (s *Service) Count(q Query) (int, error) {
	return models.CountPromotions(s.db, q.filter())
}

// Get looks a promotion up by short id, through the cache.
func (s *Service) Get(shortID string) (*models.Promotion, error) {
	if s.cache != nil {
		if p, ok := s.cache.Get(shortID); ok {
			return p, nil
		}
	}
	p, err := models.GetPromotionByShortID(s.db, shortID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(p)
	}
	return p, nil
}

func (s *Service) Related(p *models.Promotion, limit int) ([]models.Promotion, error) {
	return models.RelatedPromotions(s.db, p.StoreName, p.ID, limit)
}

func (s *Service) Stores() ([]string, error) {
	return models.ListStores(s.db)
}

// All returns up to limit promotions oldest first; limit <= 0 means all.
func (s *Service) All(limit int) ([]models.Promotion, error) {
	return models.AllPromotions(s.db, limit)
}

// Delete removes what sel selects and returns how many rows went away.
func (s *Service) Delete(sel Selector) (int64, error) {
	switch {
	case sel.ID != "":
		p, err := models.GetPromotionByID(s.db, sel.ID)
		if errors.Is(err, models.ErrNotFound) {
			p, err = models.GetPromotionByShortID(s.db, sel.ID)
		}
		if err != nil {
			return 0, err
		}
		if err := models.DeletePromotion(s.db, p.ID); err != nil {
			return 0, err
		}
		s.invalidate(p.ShortID)
		s.log.Info().Str("shortId", p.ShortID).Msg("promotion deleted")
		return 1, nil

	case sel.All:
		n, err := models.DeleteAllPromotions(s.db)
		if err != nil {
			return 0, err
		}
		s.purge()
		s.log.Warn().Int64("deleted", n).Msg("all promotions deleted")
		return n, nil

	case sel.Range != nil:
		r := sel.Range
		from, to, err := analytics.DayRange(r.StartDay, r.EndDay, r.Month, r.Year, s.loc)
		if err != nil {
			return 0, err
		}
		n, err := models.DeletePromotionsBetween(s.db, from, to)
		if err != nil {
			return 0, err
		}
		s.purge()
		s.log.Info().Int64("deleted", n).Time("from", from).Time("to", to).Msg("promotions deleted by range")
		return n, nil
	}
	return 0, ErrNoSelector
}

func (s *Service) invalidate(shortID string) {
	if s.cache != nil {
		s.cache.Invalidate(shortID)
	}
}

func (s *Service) purge() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
