package ingestion

import (
	"net/url"

	"github.com/mr1hm/geo-impact-monitor/internal/config"
	"github.com/mr1hm/geo-impact-monitor/internal/models"
)

// outageQuery asks the ArcGIS county layer for counties above half a percent
// out, as GeoJSON.
func outageQuery() url.Values {
	return url.Values{
		"where":     {"Percent_Out > 0.5"},
		"outFields": {"NAME,State,Percent_Out,Total_Out"},
		"f":         {"geojson"},
	}
}

func wildfireQuery() url.Values {
	return url.Values{
		"where":     {"1=1"},
		"outFields": {"poly_IncidentName,poly_GISAcres,attr_POOState"},
		"f":         {"geojson"},
	}
}

// FromConfig builds every enabled upstream source. Both weather feeds are
// always fetched together and merged.
func FromConfig(cfg config.SourcesConfig) []Source {
	ua := map[string]string{"User-Agent": cfg.UserAgent}
	var sources []Source

	if cfg.IEMEnabled {
		sources = append(sources, NewGeoJSONSource(GeoJSONConfig{
			Name:     "iem",
			Category: models.CategoryWeather,
			URL:      cfg.IEMURL,
			Timeout:  cfg.IEMTimeout,
		}))
	}
	if cfg.NWSEnabled {
		sources = append(sources, NewGeoJSONSource(GeoJSONConfig{
			Name:     "nws",
			Category: models.CategoryWeather,
			URL:      cfg.NWSURL,
			Headers:  ua,
			Timeout:  cfg.NWSTimeout,
		}))
	}
	if cfg.OutageEnabled {
		sources = append(sources, NewGeoJSONSource(GeoJSONConfig{
			Name:     "hifld",
			Category: models.CategoryPowerOutage,
			URL:      cfg.OutageURL,
			Query:    outageQuery(),
			Timeout:  cfg.OutageTimeout,
		}))
		if cfg.SecondaryOutageURL != "" {
			sources = append(sources, NewGeoJSONSource(GeoJSONConfig{
				Name:     "outage-secondary",
				Category: models.CategoryPowerOutage,
				URL:      cfg.SecondaryOutageURL,
				Headers:  ua,
				Timeout:  cfg.OutageTimeout,
			}))
		}
	}
	if cfg.USGSEnabled {
		sources = append(sources, NewGeoJSONSource(GeoJSONConfig{
			Name:     "usgs",
			Category: models.CategoryEarthquake,
			URL:      cfg.USGSURL,
			Timeout:  cfg.USGSTimeout,
		}))
	}
	if cfg.WildfireEnabled {
		sources = append(sources, NewGeoJSONSource(GeoJSONConfig{
			Name:     "wfigs",
			Category: models.CategoryWildfire,
			URL:      cfg.WildfireURL,
			Query:    wildfireQuery(),
			Timeout:  cfg.WildfireTimeout,
		}))
	}
	return sources
}
