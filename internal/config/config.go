package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/n0madic/go-vertexproxy/internal/catalog"
)

const (
	// DefaultAnthropicRegion is used when neither env nor file sets one.
	DefaultAnthropicRegion = "us-east5"
	// DefaultGoogleRegion is the Google region reported on the status
	// document when neither env nor file sets one. Region plans do not use it.
	DefaultGoogleRegion = "us-central1"

	defaultPort                = 8123
	defaultReserveOutputTokens = 4096
)

// ServerConfig holds all proxy configuration. It is loaded once at startup
// and treated as read-only afterwards.
type ServerConfig struct {
	Host                string
	Port                int
	Verbose             bool
	ProjectID           string
	DefaultRegion       string
	GoogleRegion        string
	DefaultModel        string
	EnabledModels       []string
	ModelAliases        map[string]string
	FallbackChains      map[string][]string
	AutoTruncate        bool
	ReserveOutputTokens int
	DataDir             string
}

// fileConfig is the YAML config file schema.
type fileConfig struct {
	ProjectID           string              `yaml:"project_id"`
	DefaultRegion       string              `yaml:"default_region"`
	GoogleRegion        string              `yaml:"google_region"`
	DefaultModel        string              `yaml:"default_model"`
	EnabledModels       []string            `yaml:"enabled_models"`
	ModelAliases        map[string]string   `yaml:"model_aliases"`
	FallbackChains      map[string][]string `yaml:"fallback_chains"`
	AutoTruncate        *bool               `yaml:"auto_truncate"`
	ReserveOutputTokens *int                `yaml:"reserve_output_tokens"`
}

// DefaultFromEnv creates a ServerConfig with defaults from environment
// variables.
func DefaultFromEnv() *ServerConfig {
	return &ServerConfig{
		Host:                "127.0.0.1",
		Port:                envInt("VERTEX_PROXY_PORT", defaultPort),
		Verbose:             envBool("VERTEX_PROXY_VERBOSE"),
		ProjectID:           envOr("VERTEX_PROXY_PROJECT", os.Getenv("GOOGLE_CLOUD_PROJECT")),
		DefaultRegion:       envOr("VERTEX_PROXY_REGION", DefaultAnthropicRegion),
		GoogleRegion:        envOr("VERTEX_PROXY_GOOGLE_REGION", DefaultGoogleRegion),
		ReserveOutputTokens: defaultReserveOutputTokens,
		DataDir:             defaultDataDir(),
	}
}

// ConfigFilePath returns the config file location: explicit env override or
// <data dir>/config.yaml.
func ConfigFilePath() string {
	if p := os.Getenv("VERTEX_PROXY_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(defaultDataDir(), "config.yaml")
}

// LoadFile merges a YAML config file into cfg. A missing file is not an
// error; a malformed one is.
func (c *ServerConfig) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.ProjectID != "" && c.ProjectID == "" {
		c.ProjectID = fc.ProjectID
	}
	if fc.DefaultRegion != "" {
		c.DefaultRegion = fc.DefaultRegion
	}
	if fc.GoogleRegion != "" {
		c.GoogleRegion = fc.GoogleRegion
	}
	if fc.DefaultModel != "" {
		c.DefaultModel = fc.DefaultModel
	}
	if len(fc.EnabledModels) > 0 {
		c.EnabledModels = fc.EnabledModels
	}
	if len(fc.ModelAliases) > 0 {
		c.ModelAliases = fc.ModelAliases
	}
	if len(fc.FallbackChains) > 0 {
		c.FallbackChains = fc.FallbackChains
	}
	if fc.AutoTruncate != nil {
		c.AutoTruncate = *fc.AutoTruncate
	}
	if fc.ReserveOutputTokens != nil {
		c.ReserveOutputTokens = *fc.ReserveOutputTokens
	}

	return nil
}

// Validate enforces the catalog invariants: alias and fallback targets must
// be known canonical ids, and a project id must be present.
func (c *ServerConfig) Validate() error {
	if strings.TrimSpace(c.ProjectID) == "" {
		return fmt.Errorf("project id is required; set VERTEX_PROXY_PROJECT or project_id in the config file")
	}
	for alias, target := range c.ModelAliases {
		if catalog.Lookup(target) == nil {
			return fmt.Errorf("alias %q points to unknown model %q", alias, target)
		}
	}
	for model, chain := range c.FallbackChains {
		for _, target := range chain {
			if catalog.Lookup(target) == nil {
				return fmt.Errorf("fallback chain for %q contains unknown model %q", model, target)
			}
		}
	}
	return nil
}

// LogPath is the append-only request log location.
func (c *ServerConfig) LogPath() string {
	return filepath.Join(c.DataDir, "proxy.log")
}

// StatsPath is the on-disk counters location.
func (c *ServerConfig) StatsPath() string {
	return filepath.Join(c.DataDir, "stats.json")
}

// RegionsCachePath is the discovery cache written by the external probe tool.
func (c *ServerConfig) RegionsCachePath() string {
	return filepath.Join(c.DataDir, "regions.json")
}

func defaultDataDir() string {
	if d := os.Getenv("VERTEX_PROXY_HOME"); d != "" {
		return d
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".vertex_proxy"
	}
	return filepath.Join(home, ".vertex_proxy")
}

func envOr(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}
