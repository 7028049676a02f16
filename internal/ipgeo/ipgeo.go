// Package ipgeo: approximate client location from a GeoLite2/GeoIP2 city database
package ipgeo

import (
	"net"

	"github.com/oschwald/geoip2-golang"
)

// Location is a city-level guess used to centre the map before the browser grants GPS.
type Location struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	City           string  `json:"city,omitempty"`
	Country        string  `json:"country,omitempty"`
	AccuracyRadius uint16  `json:"accuracy_km,omitempty"`
}

type Locator struct {
	db *geoip2.Reader
}

func Open(path string) (*Locator, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &Locator{db: db}, nil
}

// Locate returns false for unparsable, private or unknown addresses.
func (l *Locator) Locate(ip string) (*Location, bool) {
	addr := net.ParseIP(ip)
	if addr == nil || addr.IsPrivate() || addr.IsLoopback() {
		return nil, false
	}
	rec, err := l.db.City(addr)
	if err != nil || (rec.Location.Latitude == 0 && rec.Location.Longitude == 0) {
		return nil, false
	}
	return &Location{
		Latitude:       rec.Location.Latitude,
		Longitude:      rec.Location.Longitude,
		City:           rec.City.Names["en"],
		Country:        rec.Country.IsoCode,
		AccuracyRadius: rec.Location.AccuracyRadius,
	}, true
}

func (l *Locator) Close() error { return l.db.Close() }
