package models

type PointLocation struct {
	ID     string   `json:"id"` // IP address or caller label
	Lat    *float64 `json:"lat"`
	Lon    *float64 `json:"lon"`
	City   string   `json:"city,omitempty"`
	Region string   `json:"region,omitempty"`
}

// Resolved reports whether geolocation produced a usable coordinate pair.
func (p PointLocation) Resolved() bool {
	return p.Lat != nil && p.Lon != nil
}

type CheckMethod string

const (
	CheckMethodPolygon  CheckMethod = "polygon"
	CheckMethodPointAPI CheckMethod = "point-api"
	CheckMethodNone     CheckMethod = "none" // point was never assessed
)

type AssessmentStatus string

const (
	StatusAssessed   AssessmentStatus = "assessed"
	StatusUnassessed AssessmentStatus = "unassessed"
)

const (
	ReasonGeolocationFailed = "geolocation_failed"
	ReasonFallbackFailed    = "fallback_failed"
)

// MatchRecord is the final verdict for one input point.
type MatchRecord struct {
	PointID     string           `json:"point_id"`
	Lat         *float64         `json:"lat"`
	Lon         *float64         `json:"lon"`
	City        string           `json:"city,omitempty"`
	Region      string           `json:"region,omitempty"`
	Status      AssessmentStatus `json:"status"`
	IsAtRisk    bool             `json:"is_at_risk"`
	Hazards     []string         `json:"hazards"`
	CheckMethod CheckMethod      `json:"check_method"`
	Reason      string           `json:"reason,omitempty"`

	// CustomersOut totals the customers without power across the outage
	// zones covering the point.
	CustomersOut int64 `json:"customers_out,omitempty"`
}

// RiskDetails renders hazards as a single report cell.
func (r MatchRecord) RiskDetails() string {
	if len(r.Hazards) == 0 {
		return "None"
	}
	out := r.Hazards[0]
	for _, h := range r.Hazards[1:] {
		out += " | " + h
	}
	return out
}
