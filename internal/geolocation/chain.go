package geolocation

import (
	"context"

	"github.com/mr1hm/geo-impact-monitor/internal/models"
)

// Chain asks each resolver in turn, passing only the still-unresolved ids
// down the line.
type Chain []Resolver

func (c Chain) Resolve(ctx context.Context, ids []string) ([]models.PointLocation, error) {
	ids = uniqueIDs(ids)
	found := make(map[string]models.PointLocation, len(ids))
	pending := ids

	for _, r := range c {
		if len(pending) == 0 {
			break
		}
		locs, err := r.Resolve(ctx, pending)
		if err != nil {
			return nil, err
		}
		var next []string
		for _, loc := range locs {
			if loc.Resolved() {
				found[loc.ID] = loc
			}
		}
		for _, id := range pending {
			if _, ok := found[id]; !ok {
				next = append(next, id)
			}
		}
		pending = next
	}

	out := make([]models.PointLocation, 0, len(ids))
	for _, id := range ids {
		if loc, ok := found[id]; ok {
			out = append(out, loc)
		} else {
			out = append(out, models.PointLocation{ID: id})
		}
	}
	return out, nil
}
