package geolocation

import (
	"context"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"

	"github.com/mr1hm/geo-impact-monitor/internal/models"
)

// MaxMindResolver resolves addresses against a local GeoLite2/GeoIP2 City
// database.
type MaxMindResolver struct {
	db *geoip2.Reader
}

func OpenMaxMind(path string) (*MaxMindResolver, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening maxmind db %s: %w", path, err)
	}
	return &MaxMindResolver{db: db}, nil
}

func (r *MaxMindResolver) Close() error {
	return r.db.Close()
}

func (r *MaxMindResolver) Resolve(ctx context.Context, ids []string) ([]models.PointLocation, error) {
	ids = uniqueIDs(ids)
	out := make([]models.PointLocation, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, r.lookup(id))
	}
	return out, nil
}

func (r *MaxMindResolver) lookup(id string) models.PointLocation {
	loc := models.PointLocation{ID: id}
	ip := net.ParseIP(id)
	if ip == nil {
		return loc
	}
	rec, err := r.db.City(ip)
	if err != nil || (rec.Location.Latitude == 0 && rec.Location.Longitude == 0) {
		return loc
	}

	lat, lon := rec.Location.Latitude, rec.Location.Longitude
	loc.Lat, loc.Lon = &lat, &lon
	loc.City = rec.City.Names["en"]
	if len(rec.Subdivisions) > 0 {
		loc.Region = rec.Subdivisions[0].Names["en"]
	}
	return loc
}
