package api

import (
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mr1hm/geo-impact-monitor/internal/models"
)

type style struct {
	Color string `json:"color"`
	Label string `json:"label"`
}

const (
	styleSafe       = "safe"
	styleUnassessed = "unassessed"
)

// categoryStyles maps a point's primary hazard category to its map style.
var categoryStyles = map[string]style{
	string(models.CategoryWeather):     {Color: "#d62728", Label: "Weather alert"},
	string(models.CategoryPowerOutage): {Color: "#ff7f0e", Label: "Power outage"},
	string(models.CategoryEarthquake):  {Color: "#8c564b", Label: "Earthquake"},
	string(models.CategoryWildfire):    {Color: "#bcbd22", Label: "Wildfire"},
	styleSafe:                          {Color: "#2ca02c", Label: "No active hazard"},
	styleUnassessed:                    {Color: "#7f7f7f", Label: "Not assessed"},
}

var hazardPrefixes = []struct {
	prefix   string
	category models.Category
}{
	{"Power Outage:", models.CategoryPowerOutage},
	{"Earthquake:", models.CategoryEarthquake},
	{"Wildfire:", models.CategoryWildfire},
}

func hazardCategory(description string) models.Category {
	for _, p := range hazardPrefixes {
		if strings.HasPrefix(description, p.prefix) {
			return p.category
		}
	}
	return models.CategoryWeather
}

func styleKey(rec models.MatchRecord) string {
	switch {
	case rec.Status == models.StatusUnassessed:
		return styleUnassessed
	case !rec.IsAtRisk || len(rec.Hazards) == 0:
		return styleSafe
	default:
		return string(hazardCategory(rec.Hazards[0]))
	}
}

// toGeoJSON renders located records as points. Records without coordinates
// have nothing to draw and are left out. The style table rides along as a
// foreign member.
func toGeoJSON(records []models.MatchRecord) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, rec := range records {
		if rec.Lat == nil || rec.Lon == nil {
			continue
		}
		f := geojson.NewFeature(orb.Point{*rec.Lon, *rec.Lat})
		f.ID = rec.PointID
		key := styleKey(rec)
		f.Properties = geojson.Properties{
			"point_id":      rec.PointID,
			"city":          rec.City,
			"region":        rec.Region,
			"status":        string(rec.Status),
			"is_at_risk":    rec.IsAtRisk,
			"hazards":       rec.Hazards,
			"risk_details":  rec.RiskDetails(),
			"check_method":  string(rec.CheckMethod),
			"customers_out": rec.CustomersOut,
			"style":         key,
			"color":         categoryStyles[key].Color,
		}
		fc.Append(f)
	}

	fc.ExtraMembers = geojson.Properties{"styles": categoryStyles}
	return fc
}
