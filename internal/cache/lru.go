package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/farejai/fareja/internal/models"
)

// PromotionCache holds promotions by shortId for the detail page and the
// preview image endpoints.
type PromotionCache struct {
	c *lru.Cache[string, *models.Promotion]
}

func New(size int) (*PromotionCache, error) {
	c, err := lru.New[string, *models.Promotion](size)
	if err != nil {
		return nil, err
	}
	return &PromotionCache{c: c}, nil
}

func (pc *PromotionCache) Get(shortID string) (*models.Promotion, bool) {
	return pc.c.Get(shortID)
}

func (pc *PromotionCache) Set(p *models.Promotion) {
	pc.c.Add(p.ShortID, p)
}

func (pc *PromotionCache) Invalidate(shortID string) {
	pc.c.Remove(shortID)
}

// Purge drops everything. Bulk deletes use it since they don't know which
// shortIds went away.
func (pc *PromotionCache) Purge() {
	pc.c.Purge()
}

// ImageCache keeps rendered preview images for a bounded time.
type ImageCache struct {
	c *expirable.LRU[string, []byte]
}

func NewImageCache(size int, ttl time.Duration) *ImageCache {
	return &ImageCache{c: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (ic *ImageCache) Get(key string) ([]byte, bool) {
	return ic.c.Get(key)
}

func (ic *ImageCache) Set(key string, b []byte) {
	ic.c.Add(key, b)
}

func (ic *ImageCache) Invalidate(key string) {
	ic.c.Remove(key)
}

func (ic *ImageCache) Purge() {
	ic.c.Purge()
}
