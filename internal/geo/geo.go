// Package geo resolves visitor IPs to a country and city with a MaxMind
// database. Without a database every lookup is empty.
package geo

import (
	"fmt"
	"net"

	"github.com/oschwald/maxminddb-golang"
)

// Location is what analytics stores per event. Country is the ISO code,
// City the pt-BR name when the database has one.
type Location struct {
	Country string
	City    string
	Region  string
}

type Reader struct {
	db *maxminddb.Reader
}

// Open opens a MaxMind .mmdb file. An empty path yields a no-op Reader.
func Open(path string) (*Reader, error) {
	if path == "" {
		return &Reader{}, nil
	}
	db, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip %s: %w", path, err)
	}
	return &Reader{db: db}, nil
}

// Enabled reports whether lookups can return data.
func (r *Reader) Enabled() bool {
	return r != nil && r.db != nil
}

func (r *Reader) Close() {
	if r.Enabled() {
		r.db.Close()
	}
}

type cityRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
	City struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"city"`
	Subdivisions []struct {
		ISOCode string            `maxminddb:"iso_code"`
		Names   map[string]string `maxminddb:"names"`
	} `maxminddb:"subdivisions"`
}

// Locate resolves ipStr. Private and loopback addresses are never looked up.
func (r *Reader) Locate(ipStr string) Location {
	if !r.Enabled() {
		return Location{}
	}
	ip := net.ParseIP(ipStr)
	if ip == nil || !routable(ip) {
		return Location{}
	}

	var rec cityRecord
	if err := r.db.Lookup(ip, &rec); err != nil {
		return Location{}
	}

	loc := Location{
		Country: rec.Country.ISOCode,
		City:    localized(rec.City.Names),
	}
	if len(rec.Subdivisions) > 0 {
		loc.Region = rec.Subdivisions[0].ISOCode
		if loc.Region == "" {
			loc.Region = localized(rec.Subdivisions[0].Names)
		}
	}
	return loc
}

func routable(ip net.IP) bool {
	return !ip.IsLoopback() && !ip.IsPrivate() && !ip.IsUnspecified() && !ip.IsLinkLocalUnicast()
}

// localized prefers the Brazilian Portuguese name and falls back to English.
func localized(names map[string]string) string {
	if n := names["pt-BR"]; n != "" {
		return n
	}
	return names["en"]
}
