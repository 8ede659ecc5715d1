// Command seed fills a database with sample promotions and a few months of
// synthetic traffic, for working on the admin pages locally.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/farejai/fareja/internal/db"
	"github.com/farejai/fareja/internal/logger"
	"github.com/farejai/fareja/internal/models"
	"github.com/farejai/fareja/internal/scraper"
	"github.com/farejai/fareja/internal/shortid"
)

type seedPromotion struct {
	title     string
	price     string
	priceFrom string
	store     string
	link      string
	coupon    string
	// weight controls relative traffic (higher = more clicks)
	weight float64
}

var promotions = []seedPromotion{
	{"Fone de Ouvido JBL Tune 520BT Bluetooth", "R$ 199,90", "R$ 349,00", "Amazon", "https://amzn.to/3jbl520", "", 5.0},
	{"Smart TV LG 50\" 4K UHD ThinQ AI", "R$ 2.199,00", "R$ 2.899,00", "Magalu", "https://magalu.com/tv-lg-50", "MAGALU10", 4.5},
	{"Air Fryer Mondial 4L Family", "R$ 299,90", "R$ 459,90", "Amazon", "https://amzn.to/3airfry", "", 4.2},
	{"Tênis Nike Revolution 6", "R$ 249,99", "R$ 399,99", "Netshoes", "https://netshoes.com/nike-rev6", "NIKE20", 3.8},
	{"Echo Dot 5ª Geração com Alexa", "R$ 279,00", "R$ 429,00", "Amazon", "https://amzn.to/3echo5", "", 4.0},
	{"Cafeteira Expresso Oster PrimaLatte", "R$ 649,00", "", "Mercado Livre", "https://mercadolivre.com/oster", "", 2.1},
	{"Kit 3 Camisetas Hering Básicas", "R$ 89,90", "R$ 149,70", "Hering", "https://hering.com.br/kit3", "HERING15", 1.6},
	{"Notebook Lenovo IdeaPad 3 Ryzen 5 8GB", "R$ 2.799,00", "R$ 3.499,00", "Kabum", "https://kabum.com.br/ideapad3", "", 3.4},
	{"Monitor Samsung 24\" Full HD 75Hz", "R$ 599,90", "R$ 799,90", "Kabum", "https://kabum.com.br/samsung24", "KABUM5", 2.9},
	{"Kindle 11ª Geração 16GB", "R$ 449,00", "R$ 599,00", "Amazon", "https://amzn.to/3kindle", "", 3.7},
	{"Cadeira Gamer ThunderX3 TGC12", "R$ 899,00", "R$ 1.299,00", "Magalu", "https://magalu.com/thunderx3", "", 2.2},
	{"Perfume Malbec Tradicional 100ml", "R$ 159,90", "R$ 219,90", "O Boticário", "https://boticario.com.br/malbec", "BOTI10", 1.9},
}

type weighted[T any] struct {
	v      T
	weight float64
}

var referrers = []weighted[string]{
	{"", 25}, // direct traffic
	{"wa.me", 30},
	{"t.me", 12},
	{"instagram.com", 10},
	{"google.com", 10},
	{"facebook.com", 6},
	{"x.com", 4},
	{"pelando.com.br", 3},
}

var countries = []weighted[string]{
	{"BR", 88},
	{"PT", 4},
	{"US", 3},
	{"AR", 2},
	{"", 3},
}

var cities = []weighted[string]{
	{"São Paulo", 30},
	{"Rio de Janeiro", 18},
	{"Belo Horizonte", 10},
	{"Curitiba", 8},
	{"Porto Alegre", 7},
	{"Salvador", 6},
	{"Recife", 5},
	{"", 16},
}

var devices = []weighted[string]{
	{"mobile", 72},
	{"desktop", 24},
	{"tablet", 4},
}

var userAgents = map[string]string{
	"mobile":  "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
	"desktop": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"tablet":  "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
}

var pages = []weighted[string]{
	{"/", 50},
	{"/cupons", 20},
	{"/p/", 30},
}

func pick[T any](items []weighted[T], rng *rand.Rand) T {
	var total float64
	for _, item := range items {
		total += item.weight
	}
	r := rng.Float64() * total
	for _, item := range items {
		r -= item.weight
		if r <= 0 {
			return item.v
		}
	}
	return items[len(items)-1].v
}

func main() {
	log := logger.New("development", "info")

	dbPath := os.Getenv("FAREJA_DB_PATH")
	if dbPath == "" {
		dbPath = "./fareja.db"
	}

	database, err := db.Open(dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open db")
	}
	defer database.Close()

	rng := rand.New(rand.NewSource(42)) // deterministic seed
	now := time.Now().UTC()
	threeMonthsAgo := now.AddDate(0, -3, 0)

	created := make([]models.Promotion, 0, len(promotions))
	for i, sp := range promotions {
		id, err := shortid.Unique(func(s string) (bool, error) { return models.ShortIDExists(database, s) })
		if err != nil {
			log.Fatal().Err(err).Msg("short id")
		}

		p := models.Promotion{
			ShortID:       id,
			Title:         sp.title,
			Price:         sp.price,
			PriceFrom:     optional(sp.priceFrom),
			StoreName:     sp.store,
			AffiliateLink: sp.link,
			ImageURL:      scraper.Placeholder,
			Coupon:        optional(sp.coupon),
			// every week a new one
			CreatedAt: threeMonthsAgo.AddDate(0, 0, i*7),
		}
		if err := models.CreatePromotion(database, &p); err != nil {
			log.Fatal().Err(err).Str("title", sp.title).Msg("create promotion")
		}
		created = append(created, p)
		log.Info().Str("shortId", p.ShortID).Str("store", p.StoreName).Msg(p.Title)
	}

	total := 0
	for i, sp := range promotions {
		p := created[i]
		var events []models.Event

		for day := p.CreatedAt; day.Before(now); day = day.Add(24 * time.Hour) {
			// interest fades as the deal ages
			age := day.Sub(p.CreatedAt).Hours() / 24
			decay := 1.0 / (1.0 + age/10)
			visits := int(sp.weight * 20 * decay * (0.6 + rng.Float64()*0.8))

			for j := 0; j < visits; j++ {
				hour := int(rng.NormFloat64()*3 + 20) // evening peak
				if hour < 0 {
					hour = 0
				}
				if hour > 23 {
					hour = 23
				}
				at := time.Date(day.Year(), day.Month(), day.Day(), hour, rng.Intn(60), rng.Intn(60), 0, time.UTC)
				if at.After(now) {
					continue
				}

				device := pick(devices, rng)
				e := models.Event{
					SessionID: fmt.Sprintf("seed-%d-%d", rng.Intn(5000), i),
					UserAgent: userAgents[device],
					Referer:   pick(referrers, rng),
					Device:    device,
					Country:   pick(countries, rng),
					City:      pick(cities, rng),
					CreatedAt: at,
				}

				page := e
				page.Kind = models.EventPageView
				page.Page = pick(pages, rng)
				if page.Page == "/p/" {
					page.Page += p.ShortID
				}
				events = append(events, page)

				view := e
				view.Kind = models.EventPromotionView
				view.PromotionID = p.ID
				view.Detail = "card"
				if page.Page != "/" && page.Page != "/cupons" {
					view.Detail = "detail"
				}
				events = append(events, view)

				// roughly one visit in four turns into a click
				if rng.Float64() < 0.25 {
					click := e
					click.Kind = models.EventPromotionClick
					click.PromotionID = p.ID
					click.Detail = "ver_oferta"
					if p.HasCoupon() && rng.Float64() < 0.4 {
						click.Detail = "copiar_cupom"
					}
					events = append(events, click)
				}
			}

			if len(events) >= 500 {
				if err := models.BatchInsertEvents(database, events); err != nil {
					log.Fatal().Err(err).Str("shortId", p.ShortID).Msg("insert events")
				}
				total += len(events)
				events = events[:0]
			}
		}

		if len(events) > 0 {
			if err := models.BatchInsertEvents(database, events); err != nil {
				log.Fatal().Err(err).Str("shortId", p.ShortID).Msg("insert events")
			}
			total += len(events)
		}
	}

	log.Info().Int("promotions", len(created)).Int("events", total).Str("db", dbPath).Msg("done")
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
