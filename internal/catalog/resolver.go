package catalog

import (
	"log/slog"
	"strings"
)

// Resolution is the outcome of resolving an inbound model string.
type Resolution struct {
	Input     string
	Canonical string
	Provider  Provider
	Spec      *ModelSpec
	ViaAlias  bool
}

// Resolver maps inbound model strings to canonical catalog entries.
type Resolver struct {
	aliases map[string]string
}

// NewResolver builds a resolver from the built-in alias table layered with
// the config-supplied aliases (config wins on conflict).
func NewResolver(configAliases map[string]string) *Resolver {
	aliases := DefaultAliases()
	for k, v := range configAliases {
		aliases[k] = v
	}
	return &Resolver{aliases: aliases}
}

// Aliases returns the effective alias table.
func (r *Resolver) Aliases() map[string]string {
	return r.aliases
}

// Resolve maps input through the alias table and catalog. Unknown claude-
// prefixed names without a version pin resolve to the first catalog entry
// sharing the prefix; anything else unknown defaults to the anthropic branch
// with a warning and no spec.
func (r *Resolver) Resolve(input string) Resolution {
	name := strings.TrimSpace(input)
	viaAlias := false
	if target, ok := r.aliases[name]; ok {
		name = target
		viaAlias = true
	}

	if spec := Lookup(name); spec != nil {
		return Resolution{
			Input:     input,
			Canonical: spec.ID,
			Provider:  spec.Provider,
			Spec:      spec,
			ViaAlias:  viaAlias,
		}
	}

	if strings.HasPrefix(name, "claude-") && !strings.Contains(name, "@") {
		for i := range specs {
			if strings.HasPrefix(specs[i].ID, name) {
				return Resolution{
					Input:     input,
					Canonical: specs[i].ID,
					Provider:  specs[i].Provider,
					Spec:      &specs[i],
					ViaAlias:  viaAlias,
				}
			}
		}
	}

	slog.Warn("model not in catalog, defaulting to anthropic", "model", input)
	return Resolution{
		Input:     input,
		Canonical: name,
		Provider:  ProviderAnthropic,
		ViaAlias:  viaAlias,
	}
}
