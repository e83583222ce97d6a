package geolocation

import (
	"context"
	"strings"

	"github.com/mr1hm/geo-impact-monitor/internal/models"
)

// Resolver turns point identifiers (IP addresses) into coordinates. Every
// unique non-blank id comes back exactly once, in first-seen order; ids that
// cannot be located carry nil coordinates.
type Resolver interface {
	Resolve(ctx context.Context, ids []string) ([]models.PointLocation, error)
}

// ParseIDs splits comma or newline separated text into trimmed ids.
func ParseIDs(text string) []string {
	var out []string
	for _, line := range strings.Split(strings.ReplaceAll(text, ",", "\n"), "\n") {
		if id := strings.TrimSpace(line); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
