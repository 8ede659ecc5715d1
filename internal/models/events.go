package models

import (
	"database/sql"
	"fmt"
	"time"
)

// Event kinds accepted by the tracker.
const (
	EventPageView       = "page_view"
	EventPromotionClick = "promotion_click"
	EventPromotionView  = "promotion_view"
)

// Event is one enriched analytics row. Kind selects the destination table;
// Page is used by page views, PromotionID and Detail (button or view type)
// by the promotion events.
type Event struct {
	Kind        string
	Page        string
	PromotionID string
	Detail      string
	SessionID   string
	UserAgent   string
	Referer     string
	Device      string
	Country     string
	City        string
	CreatedAt   time.Time
}

func BatchInsertEvents(db *sql.DB, events []Event) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	pageStmt, err := tx.Prepare(`INSERT INTO analytics (page, session_id, user_agent, referer, device, country, city, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare page views: %w", err)
	}
	defer pageStmt.Close()

	clickStmt, err := tx.Prepare(`INSERT INTO promotion_clicks (promotion_id, button_type, session_id, user_agent, referer, device, country, city, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare clicks: %w", err)
	}
	defer clickStmt.Close()

	viewStmt, err := tx.Prepare(`INSERT INTO promotion_views (promotion_id, view_type, session_id, user_agent, referer, device, country, city, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare views: %w", err)
	}
	defer viewStmt.Close()

	for _, e := range events {
		at := e.CreatedAt.UTC()
		switch e.Kind {
		case EventPageView:
			_, err = pageStmt.Exec(e.Page, e.SessionID, e.UserAgent, e.Referer, e.Device, e.Country, e.City, at)
		case EventPromotionClick:
			_, err = clickStmt.Exec(e.PromotionID, e.Detail, e.SessionID, e.UserAgent, e.Referer, e.Device, e.Country, e.City, at)
		case EventPromotionView:
			_, err = viewStmt.Exec(e.PromotionID, e.Detail, e.SessionID, e.UserAgent, e.Referer, e.Device, e.Country, e.City, at)
		default:
			err = fmt.Errorf("unknown event kind %q", e.Kind)
		}
		if err != nil {
			return fmt.Errorf("insert %s: %w", e.Kind, err)
		}
	}

	return tx.Commit()
}

type DeletedCounts struct {
	Analytics       int64 `json:"analytics"`
	PromotionClicks int64 `json:"promotionClicks"`
	PromotionViews  int64 `json:"promotionViews"`
	Total           int64 `json:"total"`
}

// DeleteEventsBetween purges all three event tables for [from, to).
func DeleteEventsBetween(db *sql.DB, from, to time.Time) (DeletedCounts, error) {
	var counts DeletedCounts
	targets := []struct {
		table string
		n     *int64
	}{
		{"analytics", &counts.Analytics},
		{"promotion_clicks", &counts.PromotionClicks},
		{"promotion_views", &counts.PromotionViews},
	}
	for _, t := range targets {
		res, err := db.Exec(`DELETE FROM `+t.table+` WHERE created_at >= ? AND created_at < ?`, from.UTC(), to.UTC())
		if err != nil {
			return counts, fmt.Errorf("delete %s: %w", t.table, err)
		}
		*t.n, _ = res.RowsAffected()
	}
	counts.Total = counts.Analytics + counts.PromotionClicks + counts.PromotionViews
	return counts, nil
}
