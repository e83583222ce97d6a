package severity

import (
	"fmt"
	"strings"
)

// Rank orders alert severities. Unrecognized labels rank as Unknown.
type Rank int

const (
	Unknown Rank = iota
	Minor
	Moderate
	Severe
	Extreme
)

var rankNames = map[string]Rank{
	"unknown":  Unknown,
	"minor":    Minor,
	"moderate": Moderate,
	"severe":   Severe,
	"extreme":  Extreme,
}

func (r Rank) String() string {
	switch r {
	case Minor:
		return "Minor"
	case Moderate:
		return "Moderate"
	case Severe:
		return "Severe"
	case Extreme:
		return "Extreme"
	default:
		return "Unknown"
	}
}

// RankOf maps a free-form severity label to its rank, ignoring case and
// surrounding whitespace.
func RankOf(label string) Rank {
	if r, ok := rankNames[strings.ToLower(strings.TrimSpace(label))]; ok {
		return r
	}
	return Unknown
}

// ParseThreshold parses a minimum severity setting. "all" admits everything
// and is equivalent to Unknown.
func ParseThreshold(s string) (Rank, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" || v == "all" {
		return Unknown, nil
	}
	if r, ok := rankNames[v]; ok {
		return r, nil
	}
	return Unknown, fmt.Errorf("invalid severity threshold: %q", s)
}

// LowPriorityEvents are advisory products that carry no actionable hazard area.
var LowPriorityEvents = []string{
	"Special Weather Statement",
	"Hazardous Weather Outlook",
	"Short Term Forecast",
	"Marine Weather Statement",
	"Hydrologic Outlook",
	"Air Quality Alert",
	"Beach Hazards Statement",
	"Rip Current Statement",
}
