package models

import (
	"encoding/json"
	"time"
)

// RawFeature is one upstream GeoJSON feature as received. Geometry is kept
// undecoded so that null, empty and malformed shapes can be classified later.
type RawFeature struct {
	ID         string          `json:"id,omitempty"`
	Geometry   json.RawMessage `json:"geometry,omitempty"`
	Properties map[string]any  `json:"properties"`
}

// HasGeometry reports whether the feature carries a non-null geometry member.
func (f RawFeature) HasGeometry() bool {
	return len(f.Geometry) > 0 && string(f.Geometry) != "null"
}

type FeatureCollection struct {
	Source    string       `json:"source"`
	Category  Category     `json:"category"`
	Features  []RawFeature `json:"features"`
	FetchedAt time.Time    `json:"fetched_at"`
}

// UnmarshalJSON accepts both plain GeoJSON ids (strings or numbers) and
// missing ids.
func (f *RawFeature) UnmarshalJSON(data []byte) error {
	var aux struct {
		ID         json.RawMessage `json:"id"`
		Geometry   json.RawMessage `json:"geometry"`
		Properties map[string]any  `json:"properties"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	f.Geometry = aux.Geometry
	f.Properties = aux.Properties
	if f.Properties == nil {
		f.Properties = map[string]any{}
	}
	f.ID = ""
	if len(aux.ID) > 0 && string(aux.ID) != "null" {
		var s string
		if err := json.Unmarshal(aux.ID, &s); err == nil {
			f.ID = s
		} else {
			f.ID = string(aux.ID)
		}
	}
	return nil
}
