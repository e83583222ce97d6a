package engine

import "github.com/mr1hm/geo-impact-monitor/internal/models"

const DefaultCoverageThreshold = 0.10

// AssessCoverage decides whether polygon coverage is too thin to trust, in
// which case unmatched points are re-checked with per-point queries.
func AssessCoverage(stats models.GeometryStats, enableFallback bool, threshold float64) bool {
	if !enableFallback || stats.TotalFeatures == 0 {
		return false
	}
	return float64(stats.ValidPolygons) < float64(stats.TotalFeatures)*threshold
}
