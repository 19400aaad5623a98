package regions

import (
	"encoding/json"
	"log/slog"
	"os"
	"time"
)

// cacheMaxAge is how long discovery data stays authoritative over the static
// catalog.
const cacheMaxAge = 24 * time.Hour

// DiscoveryCache holds the "available regions per model" map written by the
// external region-discovery probe. The proxy only reads it.
type DiscoveryCache struct {
	FetchedAt time.Time           `json:"fetched_at"`
	Models    map[string][]string `json:"models"`
}

// LoadDiscoveryCache reads the cache file. Returns nil when the file is
// missing, malformed, or stale; the planner then falls back to the catalog.
func LoadDiscoveryCache(path string) *DiscoveryCache {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("regions cache unreadable", "path", path, "error", err)
		}
		return nil
	}

	var c DiscoveryCache
	if err := json.Unmarshal(data, &c); err != nil {
		slog.Warn("regions cache malformed", "path", path, "error", err)
		return nil
	}
	if c.Stale() {
		slog.Info("regions cache stale, using static catalog", "fetched_at", c.FetchedAt)
		return nil
	}
	return &c
}

// Stale reports whether the discovery data is too old to trust.
func (c *DiscoveryCache) Stale() bool {
	return time.Since(c.FetchedAt) > cacheMaxAge
}

// RegionsFor returns the discovered regions for a canonical model id.
func (c *DiscoveryCache) RegionsFor(canonical string) ([]string, bool) {
	if c == nil || c.Models == nil {
		return nil, false
	}
	regions, ok := c.Models[canonical]
	if !ok || len(regions) == 0 {
		return nil, false
	}
	return regions, true
}
