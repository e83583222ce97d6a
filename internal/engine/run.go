package engine

import (
	"github.com/paulmach/orb"

	"github.com/mr1hm/geo-impact-monitor/internal/geometry"
	"github.com/mr1hm/geo-impact-monitor/internal/hazard"
	"github.com/mr1hm/geo-impact-monitor/internal/merge"
	"github.com/mr1hm/geo-impact-monitor/internal/models"
	"github.com/mr1hm/geo-impact-monitor/internal/severity"
	"github.com/mr1hm/geo-impact-monitor/internal/spatial"
)

// Run holds everything derived from one snapshot of upstream data. It is
// owned by a single assessment and read-only once built.
type Run struct {
	zones   map[models.Category][]models.HazardZone
	indices map[models.Category]*spatial.Index
	stats   map[models.Category]models.GeometryStats
	skips   map[models.Category]map[geometry.SkipReason]int
	merges  map[models.Category]MergeSummary
}

type MergeSummary struct {
	Input      int `json:"input"`
	Output     int `json:"output"`
	Duplicates int `json:"duplicates"`
	Replaced   int `json:"replaced"`
}

type runBuilder struct {
	normalizer         *geometry.Normalizer
	classifier         *severity.Classifier
	minSeverity        severity.Rank
	excludeLowPriority bool
}

// build merges, filters and normalizes the collections, then indexes the
// surviving zones per category.
func (b runBuilder) build(collections []models.FeatureCollection) *Run {
	byCategory := make(map[models.Category][]models.FeatureCollection)
	for _, fc := range collections {
		byCategory[fc.Category] = append(byCategory[fc.Category], fc)
	}

	run := &Run{
		zones:   make(map[models.Category][]models.HazardZone),
		indices: make(map[models.Category]*spatial.Index),
		stats:   make(map[models.Category]models.GeometryStats),
		skips:   make(map[models.Category]map[geometry.SkipReason]int),
		merges:  make(map[models.Category]MergeSummary),
	}

	for _, cat := range models.Categories {
		profile := hazard.MustProfile(cat)
		cols := byCategory[cat]

		input := 0
		for _, fc := range cols {
			input += len(fc.Features)
		}
		merged := merge.Merge(profile, cols...)
		run.merges[cat] = MergeSummary{
			Input:      input,
			Output:     len(merged.Features),
			Duplicates: merged.Duplicates,
			Replaced:   merged.Replaced,
		}

		var (
			stats  models.GeometryStats
			zones  []models.HazardZone
			bounds []orb.Bound
			skips  = make(map[geometry.SkipReason]int)
		)
		for _, f := range merged.Features {
			attrs := profile.Attributes(f)
			if cat == models.CategoryWeather &&
				!b.classifier.Admit(attrs.SeverityLabel, attrs.Event, b.minSeverity, b.excludeLowPriority) {
				stats.Filtered++
				continue
			}
			stats.TotalFeatures++

			g, reason := b.normalizer.Normalize(f.Geometry, profile.PointBuffered())
			switch {
			case reason.CountsAsNull():
				stats.NullGeometry++
				skips[reason]++
				continue
			case reason != geometry.SkipNone:
				stats.ParseErrors++
				skips[reason]++
				continue
			}

			bound := g.Bound()
			zones = append(zones, models.HazardZone{
				Geometry:     g,
				Bound:        bound,
				Category:     cat,
				Description:  attrs.Description,
				SeverityRank: int(attrs.SeverityRank),
				SourceKey:    attrs.Key,
				Customers:    attrs.Customers,
			})
			bounds = append(bounds, bound)
			stats.ValidPolygons++
		}

		run.zones[cat] = zones
		run.indices[cat] = spatial.Build(bounds)
		run.stats[cat] = stats
		run.skips[cat] = skips
	}
	return run
}

func (r *Run) Zones(cat models.Category) []models.HazardZone {
	return r.zones[cat]
}

func (r *Run) Stats(cat models.Category) models.GeometryStats {
	return r.stats[cat]
}
