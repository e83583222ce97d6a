package engine

import (
	"sort"

	"github.com/mr1hm/geo-impact-monitor/internal/models"
)

// Assemble dedupes and sorts hazard descriptions. The result is never nil.
func Assemble(hazards []string) []string {
	seen := make(map[string]struct{}, len(hazards))
	out := make([]string, 0, len(hazards))
	for _, h := range hazards {
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

func customersOut(zones []models.HazardZone) int64 {
	var n int64
	for _, z := range zones {
		if z.Category == models.CategoryPowerOutage {
			n += z.Customers
		}
	}
	return n
}

func unassessed(p models.PointLocation) models.MatchRecord {
	return models.MatchRecord{
		PointID:     p.ID,
		Lat:         p.Lat,
		Lon:         p.Lon,
		City:        p.City,
		Region:      p.Region,
		Status:      models.StatusUnassessed,
		Hazards:     []string{},
		CheckMethod: models.CheckMethodNone,
		Reason:      models.ReasonGeolocationFailed,
	}
}

func assessed(p models.PointLocation, hazards []string, method models.CheckMethod) models.MatchRecord {
	h := Assemble(hazards)
	return models.MatchRecord{
		PointID:     p.ID,
		Lat:         p.Lat,
		Lon:         p.Lon,
		City:        p.City,
		Region:      p.Region,
		Status:      models.StatusAssessed,
		IsAtRisk:    len(h) > 0,
		Hazards:     h,
		CheckMethod: method,
	}
}
