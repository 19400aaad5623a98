package regions

import (
	"github.com/n0madic/go-vertexproxy/internal/catalog"
)

// priorityRegions are tried first, in this order, whenever they appear in a
// model's region set.
var priorityRegions = []string{"us-east5", "us-central1", "europe-west1"}

// Planner produces the ordered region list for a canonical model id.
// Discovery data, when present and fresh, overrides the static catalog.
type Planner struct {
	cache         *DiscoveryCache
	defaultRegion string
}

// NewPlanner creates a planner. cache may be nil. defaultRegion seeds the
// fallback plan for models the catalog does not know.
func NewPlanner(cache *DiscoveryCache, defaultRegion string) *Planner {
	return &Planner{cache: cache, defaultRegion: defaultRegion}
}

// Plan returns a non-empty ordered list of regions to try for canonical.
func (p *Planner) Plan(canonical string, spec *catalog.ModelSpec) []string {
	var regions []string

	if p.cache != nil {
		if discovered, ok := p.cache.RegionsFor(canonical); ok {
			regions = discovered
		}
	}
	if len(regions) == 0 && spec != nil {
		regions = spec.Regions
	}
	if len(regions) == 0 {
		regions = append([]string{}, priorityRegions...)
		if p.defaultRegion != "" && !contains(regions, p.defaultRegion) {
			regions = append([]string{p.defaultRegion}, regions...)
		}
	}

	return Prioritize(regions)
}

// Prioritize reorders regions so members of the global priority list come
// first in priority order, followed by the rest in their original order.
func Prioritize(regions []string) []string {
	out := make([]string, 0, len(regions))
	for _, p := range priorityRegions {
		if contains(regions, p) {
			out = append(out, p)
		}
	}
	for _, r := range regions {
		if !contains(out, r) {
			out = append(out, r)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
