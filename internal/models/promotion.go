package models

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

type Promotion struct {
	ID            string    `json:"id"`
	ShortID       string    `json:"shortId"`
	Title         string    `json:"title"`
	Price         string    `json:"price"`
	PriceFrom     *string   `json:"price_from"`
	StoreName     string    `json:"storeName"`
	AffiliateLink string    `json:"affiliateLink"`
	ImageURL      string    `json:"imageUrl"`
	Coupon        *string   `json:"coupon"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (p *Promotion) HasCoupon() bool {
	return p.Coupon != nil && *p.Coupon != ""
}

func (p *Promotion) CouponCode() string {
	if p.Coupon == nil {
		return ""
	}
	return *p.Coupon
}

func (p *Promotion) PriceFromValue() string {
	if p.PriceFrom == nil {
		return ""
	}
	return *p.PriceFrom
}

// ListFilter narrows ListPromotions and CountPromotions. Store is an exact
// match, Search a title substring.
type ListFilter struct {
	Store       string
	Search      string
	CouponsOnly bool
	Limit       int
	Offset      int
}

const promotionColumns = `id, short_id, title, price, price_from, store_name, affiliate_link, image_url, coupon, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func CreatePromotion(db *sql.DB, p *Promotion) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	p.CreatedAt = p.CreatedAt.UTC()

	_, err := db.Exec(
		`INSERT INTO promotions (`+promotionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.ShortID, p.Title, p.Price, nullable(p.PriceFrom), p.StoreName,
		p.AffiliateLink, p.ImageURL, nullable(p.Coupon), p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert promotion: %w", err)
	}
	return nil
}

func GetPromotionByID(db *sql.DB, id string) (*Promotion, error) {
	row := db.QueryRow(`SELECT `+promotionColumns+` FROM promotions WHERE id = ?`, id)
	return scanPromotion(row)
}

func GetPromotionByShortID(db *sql.DB, shortID string) (*Promotion, error) {
	row := db.QueryRow(`SELECT `+promotionColumns+` FROM promotions WHERE short_id = ?`, shortID)
	return scanPromotion(row)
}

// FindPromotionByAffiliateLink returns the newest promotion for link.
func FindPromotionByAffiliateLink(db *sql.DB, link string) (*Promotion, error) {
	row := db.QueryRow(
		`SELECT `+promotionColumns+` FROM promotions WHERE affiliate_link = ? ORDER BY created_at DESC LIMIT 1`,
		link,
	)
	return scanPromotion(row)
}

// FindPromotionByTitleBetween matches an exact title created in [from, to).
func FindPromotionByTitleBetween(db *sql.DB, title string, from, to time.Time) (*Promotion, error) {
	row := db.QueryRow(
		`SELECT `+promotionColumns+` FROM promotions WHERE title = ? AND created_at >= ? AND created_at < ? ORDER BY created_at DESC LIMIT 1`,
		title, from.UTC(), to.UTC(),
	)
	return scanPromotion(row)
}

func ListPromotions(db *sql.DB, f ListFilter) ([]Promotion, error) {
	where, args := f.where()
	query := `SELECT ` + promotionColumns + ` FROM promotions WHERE ` + where + ` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Offset)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list promotions: %w", err)
	}
	defer rows.Close()

	promotions := []Promotion{}
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan promotion: %w", err)
		}
		promotions = append(promotions, *p)
	}
	return promotions, rows.Err()
}

func CountPromotions(db *sql.DB, f ListFilter) (int, error) {
	where, args := f.where()
	var total int
	if err := db.QueryRow(`SELECT COUNT(*) FROM promotions WHERE `+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count promotions: %w", err)
	}
	return total, nil
}

// likeEscaper makes % and _ in a search term match themselves.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func (f ListFilter) where() (string, []any) {
	clauses := []string{"1=1"}
	var args []any
	if f.Store != "" {
		clauses = append(clauses, "store_name = ?")
		args = append(args, f.Store)
	}
	if f.Search != "" {
		clauses = append(clauses, `title LIKE ? ESCAPE '\'`)
		args = append(args, "%"+likeEscaper.Replace(f.Search)+"%")
	}
	if f.CouponsOnly {
		clauses = append(clauses, "coupon IS NOT NULL AND coupon != ''")
	}
	return strings.Join(clauses, " AND "), args
}

// RelatedPromotions returns other promotions from the same store, newest
// first.
func RelatedPromotions(db *sql.DB, store, excludeID string, limit int) ([]Promotion, error) {
	rows, err := db.Query(
		`SELECT `+promotionColumns+` FROM promotions WHERE store_name = ? AND id != ? ORDER BY created_at DESC LIMIT ?`,
		store, excludeID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("related promotions: %w", err)
	}
	defer rows.Close()

	var out []Promotion
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan promotion: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// AllPromotions walks the whole catalog oldest first. Used by the batch
// maintenance commands.
func AllPromotions(db *sql.DB, limit int) ([]Promotion, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(`SELECT `+promotionColumns+` FROM promotions ORDER BY created_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("all promotions: %w", err)
	}
	defer rows.Close()

	var out []Promotion
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan promotion: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func ListStores(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`SELECT DISTINCT store_name FROM promotions ORDER BY store_name`)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	defer rows.Close()

	var stores []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		stores = append(stores, s)
	}
	return stores, rows.Err()
}

// StoreSummary is one row of the per-store breakdown in the admin.
type StoreSummary struct {
	StoreName  string
	Promotions int
	WithCoupon int
}

func StoreSummaries(db *sql.DB) ([]StoreSummary, error) {
	rows, err := db.Query(`SELECT store_name, COUNT(*) AS cnt,
		SUM(CASE WHEN coupon IS NOT NULL AND coupon != '' THEN 1 ELSE 0 END)
		FROM promotions GROUP BY store_name ORDER BY cnt DESC, store_name`)
	if err != nil {
		return nil, fmt.Errorf("store summaries: %w", err)
	}
	defer rows.Close()

	var out []StoreSummary
	for rows.Next() {
		var s StoreSummary
		if err := rows.Scan(&s.StoreName, &s.Promotions, &s.WithCoupon); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func UpdatePromotionImage(db *sql.DB, id, imageURL string) error {
	res, err := db.Exec(`UPDATE promotions SET image_url = ? WHERE id = ?`, imageURL, id)
	if err != nil {
		return fmt.Errorf("update promotion image: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func DeletePromotion(db *sql.DB, id string) error {
	res, err := db.Exec(`DELETE FROM promotions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete promotion: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func DeleteAllPromotions(db *sql.DB) (int64, error) {
	res, err := db.Exec(`DELETE FROM promotions`)
	if err != nil {
		return 0, fmt.Errorf("delete all promotions: %w", err)
	}
	return res.RowsAffected()
}

// DeletePromotionsBetween removes promotions created in [from, to).
func DeletePromotionsBetween(db *sql.DB, from, to time.Time) (int64, error) {
	res, err := db.Exec(`DELETE FROM promotions WHERE created_at >= ? AND created_at < ?`, from.UTC(), to.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete promotions by range: %w", err)
	}
	return res.RowsAffected()
}

func ShortIDExists(db *sql.DB, shortID string) (bool, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM promotions WHERE short_id = ?`, shortID).Scan(&count)
	return count > 0, err
}

func scanPromotion(row rowScanner) (*Promotion, error) {
	var p Promotion
	var priceFrom, coupon sql.NullString
	err := row.Scan(&p.ID, &p.ShortID, &p.Title, &p.Price, &priceFrom, &p.StoreName,
		&p.AffiliateLink, &p.ImageURL, &coupon, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if priceFrom.Valid {
		p.PriceFrom = &priceFrom.String
	}
	if coupon.Valid {
		p.Coupon = &coupon.String
	}
	return &p, nil
}

func nullable(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
