package services

import (
	"net"
	"sync"

	"github.com/oschwald/geoip2-golang"

	"sentryfw/system"
)

// GeoIPService resolves attacker countries from a local MaxMind database.
// It is optional: with no database configured every lookup returns the
// unknown placeholder and nothing else changes.
type GeoIPService struct {
	mu     sync.RWMutex
	reader *geoip2.Reader
}

func NewGeoIPService(dbPath string) *GeoIPService {
	g := &GeoIPService{}
	if dbPath == "" {
		return g
	}

	reader, err := geoip2.Open(dbPath)
	if err != nil {
		system.Warn("GeoIP database %s not loaded: %v", dbPath, err)
		return g
	}

	g.reader = reader
	system.Info("GeoIP database loaded: %s", dbPath)
	return g
}

// GetCountry returns the country name and ISO code for an IP, or
// ("Unknown", "XX") when unavailable.
func (g *GeoIPService) GetCountry(addr string) (string, string) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.reader == nil {
		return "Unknown", "XX"
	}

	ip := net.ParseIP(addr)
	if ip == nil {
		return "Unknown", "XX"
	}

	record, err := g.reader.Country(ip)
	if err != nil || record.Country.IsoCode == "" {
		return "Unknown", "XX"
	}

	name := record.Country.Names["en"]
	if name == "" {
		name = record.Country.IsoCode
	}
	return name, record.Country.IsoCode
}

// Close releases the database reader.
func (g *GeoIPService) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.reader != nil {
		g.reader.Close()
		g.reader = nil
	}
}
