// Package analytics buffers tracking events in memory and writes them to the
// database in batches. Tracking is best effort: a full buffer or a failed
// write drops events and never reaches the visitor.
package analytics

import (
	"database/sql"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/farejai/fareja/internal/geo"
	"github.com/farejai/fareja/internal/metrics"
	"github.com/farejai/fareja/internal/models"
)

// Hit is a raw tracking event as received over HTTP.
type Hit struct {
	Kind        string
	Page        string
	PromotionID string
	Detail      string
	SessionID   string
	IP          string
	UserAgent   string
	Referer     string
	At          time.Time
}

// Blocker reports whether traffic from an IP should be ignored.
type Blocker interface {
	Blocked(ip string) bool
}

type Collector struct {
	ch      chan Hit
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	db      *sql.DB
	geo     *geo.Reader
	blocker Blocker
	log     zerolog.Logger
}

// NewCollector starts the flush loop. geoReader and blocker may be nil.
func NewCollector(db *sql.DB, geoReader *geo.Reader, blocker Blocker, bufferSize int, flushInterval time.Duration, log zerolog.Logger) *Collector {
	c := &Collector{
		ch:      make(chan Hit, bufferSize),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		db:      db,
		geo:     geoReader,
		blocker: blocker,
		log:     log,
	}
	go c.run(flushInterval)
	return c
}

// Push queues a hit without blocking. Hits from blocked IPs are ignored and
// the hit is dropped if the buffer is full.
func (c *Collector) Push(h Hit) {
	if c.blocker != nil && c.blocker.Blocked(h.IP) {
		metrics.EventsReceived.WithLabelValues(h.Kind, metrics.EventBlocked).Inc()
		return
	}
	if h.At.IsZero() {
		h.At = time.Now()
	}
	select {
	case c.ch <- h:
		metrics.EventsReceived.WithLabelValues(h.Kind, metrics.EventQueued).Inc()
	default:
		metrics.EventsReceived.WithLabelValues(h.Kind, metrics.EventDropped).Inc()
		c.log.Debug().Str("kind", h.Kind).Msg("analytics buffer full, dropping event")
	}
}

// Shutdown flushes remaining events and returns. It is safe to call more
// than once.
func (c *Collector) Shutdown() {
	c.once.Do(func() { close(c.stop) })
	<-c.done
}

func (c *Collector) run(interval time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.flush()
		case <-c.stop:
			c.flush()
			return
		}
	}
}

func (c *Collector) drain() []Hit {
	var batch []Hit
	for {
		select {
		case h := <-c.ch:
			batch = append(batch, h)
		default:
			return batch
		}
	}
}

func (c *Collector) flush() {
	batch := c.drain()
	if len(batch) == 0 {
		return
	}

	events := make([]models.Event, 0, len(batch))
	for _, h := range batch {
		events = append(events, c.enrich(h))
	}

	if err := models.BatchInsertEvents(c.db, events); err != nil {
		metrics.FlushErrors.Inc()
		c.log.Error().Err(err).Int("events", len(events)).Msg("analytics flush failed")
		return
	}
	metrics.EventsFlushed.Add(float64(len(events)))
	c.log.Debug().Int("events", len(events)).Msg("analytics flushed")
}

func (c *Collector) enrich(h Hit) models.Event {
	loc := c.geo.Locate(h.IP)
	return models.Event{
		Kind:        h.Kind,
		Page:        h.Page,
		PromotionID: h.PromotionID,
		Detail:      h.Detail,
		SessionID:   h.SessionID,
		UserAgent:   h.UserAgent,
		Referer:     refererHost(h.Referer),
		Device:      DeviceType(h.UserAgent),
		Country:     loc.Country,
		City:        loc.City,
		CreatedAt:   h.At,
	}
}

func refererHost(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Host
}
