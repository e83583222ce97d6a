package models

// GeometryStats counts how a category's features fared during normalization.
type GeometryStats struct {
	TotalFeatures int `json:"total_features"`
	ValidPolygons int `json:"valid_polygons"`
	NullGeometry  int `json:"null_geometry"`
	ParseErrors   int `json:"parse_errors"`
	Filtered      int `json:"filtered"` // dropped by severity before geometry work
}

// ValidRatio is ValidPolygons/TotalFeatures, or 0 when there are no features.
func (s GeometryStats) ValidRatio() float64 {
	if s.TotalFeatures == 0 {
		return 0
	}
	return float64(s.ValidPolygons) / float64(s.TotalFeatures)
}

// NullPercent is the share of features without usable geometry, in percent.
func (s GeometryStats) NullPercent() float64 {
	if s.TotalFeatures == 0 {
		return 0
	}
	return float64(s.NullGeometry) / float64(s.TotalFeatures) * 100
}
