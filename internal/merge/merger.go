package merge

import (
	"encoding/json"

	"github.com/mr1hm/geo-impact-monitor/internal/hazard"
	"github.com/mr1hm/geo-impact-monitor/internal/models"
)

type Result struct {
	Features   []models.RawFeature
	Duplicates int // records that collided with an earlier key
	Replaced   int // collisions where the later record won
	Unkeyed    int // records kept without a natural key
}

type entry struct {
	feature models.RawFeature
	score   float64
}

// Merge unions the collections of one category. Records sharing a natural key
// collapse to the one with the strictly larger score; ties keep the first
// seen. When the winner has no geometry the loser's geometry is carried over.
// Output follows first-seen key order.
func Merge(profile hazard.Profile, collections ...models.FeatureCollection) Result {
	var (
		res     Result
		entries []entry
		byKey   = make(map[string]int)
	)

	for _, fc := range collections {
		for _, f := range fc.Features {
			attrs := profile.Attributes(f)
			key := attrs.Key
			if key == "" {
				// exact copies still collapse so self-merges stay stable
				key = contentKey(f)
			}

			i, seen := byKey[key]
			if !seen {
				if attrs.Key == "" {
					res.Unkeyed++
				}
				byKey[key] = len(entries)
				entries = append(entries, entry{feature: f, score: attrs.Score})
				continue
			}

			res.Duplicates++
			cur := entries[i]
			if attrs.Score > cur.score {
				res.Replaced++
				winner := f
				if !winner.HasGeometry() && cur.feature.HasGeometry() {
					winner.Geometry = cur.feature.Geometry
				}
				entries[i] = entry{feature: winner, score: attrs.Score}
				continue
			}
			if !cur.feature.HasGeometry() && f.HasGeometry() {
				entries[i].feature.Geometry = f.Geometry
			}
		}
	}

	res.Features = make([]models.RawFeature, len(entries))
	for i, e := range entries {
		res.Features[i] = e.feature
	}
	return res
}

func contentKey(f models.RawFeature) string {
	props, err := json.Marshal(f.Properties)
	if err != nil {
		props = nil
	}
	return "\x00" + f.ID + "\x00" + string(f.Geometry) + "\x00" + string(props)
}
