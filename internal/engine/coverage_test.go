package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mr1hm/geo-impact-monitor/internal/models"
)

func TestAssessCoverage(t *testing.T) {
	tests := []struct {
		name    string
		stats   models.GeometryStats
		enabled bool
		want    bool
	}{
		{"sparse coverage triggers", models.GeometryStats{TotalFeatures: 50, ValidPolygons: 1}, true, true},
		{"good coverage does not", models.GeometryStats{TotalFeatures: 50, ValidPolygons: 40}, true, false},
		{"exactly at threshold does not", models.GeometryStats{TotalFeatures: 50, ValidPolygons: 5}, true, false},
		{"disabled never triggers", models.GeometryStats{TotalFeatures: 50, ValidPolygons: 0}, false, false},
		{"no features never triggers", models.GeometryStats{}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AssessCoverage(tt.stats, tt.enabled, DefaultCoverageThreshold))
		})
	}
}

func TestAssemble(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Assemble([]string{"c", "a", "b", "a", "c"}))
	assert.Equal(t, []string{}, Assemble(nil))
}
