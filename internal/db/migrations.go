package db

import "database/sql"

func Migrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

// Analytics tables carry no foreign key to promotions: deleting a promotion
// keeps its history.
const schema = `
CREATE TABLE IF NOT EXISTS promotions (
    id             TEXT     PRIMARY KEY,
    short_id       TEXT     NOT NULL UNIQUE,
    title          TEXT     NOT NULL,
    price          TEXT     NOT NULL,
    price_from     TEXT,
    store_name     TEXT     NOT NULL,
    affiliate_link TEXT     NOT NULL,
    image_url      TEXT     NOT NULL DEFAULT '',
    coupon         TEXT,
    created_at     DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_promotions_created_at ON promotions(created_at);
CREATE INDEX IF NOT EXISTS idx_promotions_affiliate_link ON promotions(affiliate_link);
CREATE INDEX IF NOT EXISTS idx_promotions_store_name ON promotions(store_name);

CREATE TABLE IF NOT EXISTS analytics (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    page        TEXT     NOT NULL,
    session_id  TEXT     NOT NULL DEFAULT '',
    user_agent  TEXT,
    referer     TEXT,
    device      TEXT,
    country     TEXT,
    city        TEXT,
    created_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analytics_created_at ON analytics(created_at);

CREATE TABLE IF NOT EXISTS promotion_clicks (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    promotion_id TEXT     NOT NULL,
    button_type  TEXT     NOT NULL DEFAULT '',
    session_id   TEXT     NOT NULL DEFAULT '',
    user_agent   TEXT,
    referer      TEXT,
    device       TEXT,
    country      TEXT,
    city         TEXT,
    created_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_promotion_clicks_promotion_id ON promotion_clicks(promotion_id);
CREATE INDEX IF NOT EXISTS idx_promotion_clicks_created_at ON promotion_clicks(created_at);

CREATE TABLE IF NOT EXISTS promotion_views (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    promotion_id TEXT     NOT NULL,
    view_type    TEXT     NOT NULL DEFAULT '',
    session_id   TEXT     NOT NULL DEFAULT '',
    user_agent   TEXT,
    referer      TEXT,
    device       TEXT,
    country      TEXT,
    city         TEXT,
    created_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_promotion_views_promotion_id ON promotion_views(promotion_id);
CREATE INDEX IF NOT EXISTS idx_promotion_views_created_at ON promotion_views(created_at);
`
