package models

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
)

type Category string

const (
	CategoryWeather     Category = "weather"
	CategoryPowerOutage Category = "power_outage"
	CategoryEarthquake  Category = "earthquake"
	CategoryWildfire    Category = "wildfire"
)

// Categories lists every hazard category in matching order.
var Categories = []Category{
	CategoryWeather,
	CategoryPowerOutage,
	CategoryEarthquake,
	CategoryWildfire,
}

func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weather":
		return CategoryWeather, nil
	case "power_outage", "outage", "power":
		return CategoryPowerOutage, nil
	case "earthquake", "quake":
		return CategoryEarthquake, nil
	case "wildfire", "fire":
		return CategoryWildfire, nil
	default:
		return "", fmt.Errorf("unknown hazard category: %q", s)
	}
}

// HazardZone is a validated area for one active hazard. Zones are built once
// per run and never mutated.
type HazardZone struct {
	Geometry     orb.Geometry // orb.Polygon or orb.MultiPolygon
	Bound        orb.Bound
	Category     Category
	Description  string
	SeverityRank int
	SourceKey    string // natural key the zone was merged under
	Customers    int64  // customers without power, outages only
}
