package catalog

// Provider selects the upstream wire format and URL shape.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderGoogle    Provider = "google"
	ProviderImagen    Provider = "imagen"
)

// ModelSpec is an immutable record describing one known model. Regions is an
// ordered hint; the region planner may override it with discovery data.
type ModelSpec struct {
	ID            string
	DisplayName   string
	Provider      Provider
	ContextWindow int
	MaxOutput     int
	Regions       []string
	InputPrice    float64 // USD per million input tokens
	OutputPrice   float64 // USD per million output tokens
	Capabilities  []string
}

// specs is the compiled-in catalog. Order matters: prefix resolution picks
// the first entry whose id starts with the requested prefix.
var specs = []ModelSpec{
	{
		ID:            "claude-opus-4-1@20250805",
		DisplayName:   "Claude Opus 4.1",
		Provider:      ProviderAnthropic,
		ContextWindow: 200000,
		MaxOutput:     32000,
		Regions:       []string{"us-east5", "europe-west1"},
		InputPrice:    15.0,
		OutputPrice:   75.0,
		Capabilities:  []string{"chat", "tools", "vision"},
	},
	{
		ID:            "claude-sonnet-4-5@20250929",
		DisplayName:   "Claude Sonnet 4.5",
		Provider:      ProviderAnthropic,
		ContextWindow: 200000,
		MaxOutput:     64000,
		Regions:       []string{"us-east5", "us-central1", "europe-west1", "asia-southeast1"},
		InputPrice:    3.0,
		OutputPrice:   15.0,
		Capabilities:  []string{"chat", "tools", "vision"},
	},
	{
		ID:            "claude-haiku-4-5@20251001",
		DisplayName:   "Claude Haiku 4.5",
		Provider:      ProviderAnthropic,
		ContextWindow: 200000,
		MaxOutput:     64000,
		Regions:       []string{"us-east5", "us-central1", "europe-west1"},
		InputPrice:    1.0,
		OutputPrice:   5.0,
		Capabilities:  []string{"chat", "tools", "vision"},
	},
	{
		ID:            "claude-3-7-sonnet@20250219",
		DisplayName:   "Claude 3.7 Sonnet",
		Provider:      ProviderAnthropic,
		ContextWindow: 200000,
		MaxOutput:     64000,
		Regions:       []string{"us-east5", "europe-west1"},
		InputPrice:    3.0,
		OutputPrice:   15.0,
		Capabilities:  []string{"chat", "tools", "vision"},
	},
	{
		ID:            "claude-3-5-haiku@20241022",
		DisplayName:   "Claude 3.5 Haiku",
		Provider:      ProviderAnthropic,
		ContextWindow: 200000,
		MaxOutput:     8192,
		Regions:       []string{"us-east5"},
		InputPrice:    0.8,
		OutputPrice:   4.0,
		Capabilities:  []string{"chat", "tools"},
	},
	{
		ID:            "gemini-2.5-pro",
		DisplayName:   "Gemini 2.5 Pro",
		Provider:      ProviderGoogle,
		ContextWindow: 1048576,
		MaxOutput:     65535,
		Regions:       []string{"global"},
		InputPrice:    1.25,
		OutputPrice:   10.0,
		Capabilities:  []string{"chat", "tools", "vision"},
	},
	{
		ID:            "gemini-2.5-flash",
		DisplayName:   "Gemini 2.5 Flash",
		Provider:      ProviderGoogle,
		ContextWindow: 1048576,
		MaxOutput:     65535,
		Regions:       []string{"global"},
		InputPrice:    0.3,
		OutputPrice:   2.5,
		Capabilities:  []string{"chat", "tools", "vision"},
	},
	{
		ID:            "gemini-2.0-flash",
		DisplayName:   "Gemini 2.0 Flash",
		Provider:      ProviderGoogle,
		ContextWindow: 1048576,
		MaxOutput:     8192,
		Regions:       []string{"us-central1", "europe-west1", "asia-southeast1"},
		InputPrice:    0.1,
		OutputPrice:   0.4,
		Capabilities:  []string{"chat", "tools", "vision"},
	},
	{
		ID:            "imagen-4.0-generate-001",
		DisplayName:   "Imagen 4",
		Provider:      ProviderImagen,
		ContextWindow: 480,
		MaxOutput:     0,
		Regions:       []string{"us-central1", "europe-west1"},
		Capabilities:  []string{"image-generation"},
	},
	{
		ID:            "imagen-3.0-generate-002",
		DisplayName:   "Imagen 3",
		Provider:      ProviderImagen,
		ContextWindow: 480,
		MaxOutput:     0,
		Regions:       []string{"us-central1"},
		Capabilities:  []string{"image-generation"},
	},
}

var specsByID = func() map[string]*ModelSpec {
	m := make(map[string]*ModelSpec, len(specs))
	for i := range specs {
		m[specs[i].ID] = &specs[i]
	}
	return m
}()

// Specs returns the catalog in declaration order.
func Specs() []ModelSpec {
	return specs
}

// Lookup returns the spec for a canonical id, or nil.
func Lookup(id string) *ModelSpec {
	return specsByID[id]
}

// DefaultAliases is the built-in alias table. Config aliases are layered on
// top and win on conflict. "sonnet" maps to the 20250929 snapshot; that is
// the single canonical mapping for the alias.
func DefaultAliases() map[string]string {
	return map[string]string{
		"opus":         "claude-opus-4-1@20250805",
		"sonnet":       "claude-sonnet-4-5@20250929",
		"haiku":        "claude-haiku-4-5@20251001",
		"gemini-pro":   "gemini-2.5-pro",
		"gemini-flash": "gemini-2.5-flash",
		"imagen":       "imagen-4.0-generate-001",
	}
}
