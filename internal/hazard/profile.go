package hazard

import (
	"fmt"
	"strings"

	"github.com/mr1hm/geo-impact-monitor/internal/models"
	"github.com/mr1hm/geo-impact-monitor/internal/severity"
)

// Attributes is the typed view of a raw feature's properties. Upstream
// property names never leak past this package.
type Attributes struct {
	Key           string  // natural key, empty when none can be derived
	Score         float64 // merge comparable, larger wins
	Description   string
	Event         string
	SeverityLabel string
	SeverityRank  severity.Rank
	Customers     int64 // outages only
}

// Profile knows how to read one category's upstream properties.
type Profile interface {
	Category() models.Category
	Attributes(f models.RawFeature) Attributes
	// PointBuffered reports whether point geometries are expanded into
	// circular zones for this category.
	PointBuffered() bool
}

// ProfileFor returns the profile for a category.
func ProfileFor(c models.Category) (Profile, error) {
	switch c {
	case models.CategoryWeather:
		return weatherProfile{}, nil
	case models.CategoryPowerOutage:
		return outageProfile{}, nil
	case models.CategoryEarthquake:
		return quakeProfile{}, nil
	case models.CategoryWildfire:
		return wildfireProfile{}, nil
	default:
		return nil, fmt.Errorf("no profile for category %q", c)
	}
}

// MustProfile is ProfileFor for categories known at compile time.
func MustProfile(c models.Category) Profile {
	p, err := ProfileFor(c)
	if err != nil {
		panic(err)
	}
	return p
}

type weatherProfile struct{}

func (weatherProfile) Category() models.Category { return models.CategoryWeather }
func (weatherProfile) PointBuffered() bool        { return false }

// WeatherEvent picks the event name, accepting both NWS and IEM naming.
func WeatherEvent(props map[string]any) string {
	ev := stringProp(props, "event", "prod_type", "phenomena")
	if ev == "" {
		if _, ok := props["phenomena"]; !ok {
			ev = "WX"
		}
	}
	if ev == "" {
		return "Weather Alert"
	}
	return ev
}

// WeatherDescription renders "Event (Severity)", or the bare event when the
// severity is blank.
func WeatherDescription(event, sev string) string {
	if sev == "" {
		return event
	}
	return fmt.Sprintf("%s (%s)", event, sev)
}

func (weatherProfile) Attributes(f models.RawFeature) Attributes {
	p := f.Properties
	event := WeatherEvent(p)
	label := stringProp(p, "severity")
	a := Attributes{
		Event:         event,
		SeverityLabel: label,
		SeverityRank:  severity.RankOf(label),
		Description:   WeatherDescription(event, label),
	}
	a.Score = float64(a.SeverityRank)

	// Both feeds describe the same warning by its VTEC event, so that wins
	// over the feed-specific id.
	switch {
	case vtecKey(p) != "":
		a.Key = vtecKey(p)
	case stringProp(p, "id") != "":
		a.Key = stringProp(p, "id")
	case stringProp(p, "event") != "" && stringProp(p, "areaDesc") != "":
		a.Key = strings.Join([]string{
			stringProp(p, "event"),
			stringProp(p, "areaDesc"),
			stringProp(p, "onset"),
		}, "|")
	}
	return a
}

type outageProfile struct{}

func (outageProfile) Category() models.Category { return models.CategoryPowerOutage }
func (outageProfile) PointBuffered() bool        { return false }

func (outageProfile) Attributes(f models.RawFeature) Attributes {
	p := f.Properties
	name := stringProp(p, "NAME", "name", "County", "county")
	state := stringProp(p, "State", "state", "STATE")

	pct, hasPct := numberProp(p, "Percent_Out", "percent_out", "PercentOut")
	pctText := "N/A"
	if hasPct {
		pctText = formatNumber(pct)
	}
	displayName := name
	if displayName == "" {
		displayName = "Unknown"
	}

	a := Attributes{
		Score:       pct,
		Event:       "Power Outage",
		Description: fmt.Sprintf("Power Outage: %s%% - %s", pctText, displayName),
	}
	if total, ok := numberProp(p, "Total_Out", "total_out", "CustomersOut"); ok {
		a.Customers = int64(total)
	}
	if name != "" {
		a.Key = normalizeKey(name) + "|" + normalizeKey(state)
	}
	return a
}

type quakeProfile struct{}

func (quakeProfile) Category() models.Category { return models.CategoryEarthquake }
func (quakeProfile) PointBuffered() bool        { return true }

func (quakeProfile) Attributes(f models.RawFeature) Attributes {
	p := f.Properties
	mag, _ := numberProp(p, "mag")
	place := stringProp(p, "place", "title")
	if place == "" {
		place = "Unknown location"
	}

	a := Attributes{
		Score:       mag,
		Event:       "Earthquake",
		Description: fmt.Sprintf("Earthquake: M%s - %s", formatNumber(mag), place),
	}
	switch {
	case f.ID != "":
		a.Key = f.ID
	case stringProp(p, "ids") != "":
		a.Key = strings.Trim(stringProp(p, "ids"), ",")
	case stringProp(p, "code") != "":
		a.Key = stringProp(p, "net") + stringProp(p, "code")
	}
	return a
}

type wildfireProfile struct{}

func (wildfireProfile) Category() models.Category { return models.CategoryWildfire }
func (wildfireProfile) PointBuffered() bool        { return false }

func (wildfireProfile) Attributes(f models.RawFeature) Attributes {
	p := f.Properties
	name := stringProp(p, "poly_IncidentName", "attr_IncidentName", "IncidentName", "incident_name", "name")
	acres, _ := numberProp(p, "poly_GISAcres", "attr_IncidentSize", "GISAcres", "acres")
	state := stringProp(p, "attr_POOState", "POOState", "state")

	display := name
	if display == "" {
		display = "Unnamed"
	}
	a := Attributes{
		Score:       acres,
		Event:       "Wildfire",
		Description: fmt.Sprintf("Wildfire: %s (%s acres)", display, formatNumber(acres)),
	}
	if name != "" {
		a.Key = normalizeKey(name)
		if state != "" {
			a.Key += "|" + normalizeKey(state)
		}
	}
	return a
}
