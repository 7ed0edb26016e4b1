package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/novellus/pixel-dungeon-network/internal/discover"
	"github.com/novellus/pixel-dungeon-network/internal/forktree"
	"github.com/novellus/pixel-dungeon-network/internal/ratelimit"
)

//go:embed defaults.yaml
var defaultLineage []byte

// Config describes one lineage and where each stage reads and writes.
type Config struct {
	Root   string       `yaml:"root"`
	Links  []Link       `yaml:"links"`
	API    APIConfig    `yaml:"api"`
	Cache  CacheConfig  `yaml:"cache"`
	Clone  CloneConfig  `yaml:"clone"`
	Output OutputConfig `yaml:"output"`
}

// Link is a manual lineage link, both sides written as owner/name.
type Link struct {
	Child  string `yaml:"child"`
	Parent string `yaml:"parent"`
}

// APIConfig holds hosting API settings
type APIConfig struct {
	BaseURL   string           `yaml:"base_url"`
	TokenEnv  string           `yaml:"token_env,omitempty"`
	RateLimit ratelimit.Policy `yaml:"rate_limit"`
}

// CacheConfig holds the response cache settings
type CacheConfig struct {
	Path string `yaml:"path"`
}

// CloneConfig holds clone settings
type CloneConfig struct {
	Dir       string           `yaml:"dir"`
	Backend   string           `yaml:"backend"`
	RateLimit ratelimit.Policy `yaml:"rate_limit"`
}

// OutputConfig names the files each stage produces
type OutputConfig struct {
	Tree    string `yaml:"tree"`
	History string `yaml:"history"`
	DOT     string `yaml:"dot"`
	Image   string `yaml:"image"`
	Format  string `yaml:"format"`
	Mode    string `yaml:"mode"`
}

const (
	BackendExec  = "exec"
	BackendGoGit = "go-git"

	ModeCommits = "commits"
	ModeRepos   = "repos"
)

// Environment variables overriding the file.
const (
	EnvBaseURL  = "PDNET_API_BASE_URL"
	EnvCache    = "PDNET_CACHE_PATH"
	EnvCloneDir = "PDNET_CLONE_DIR"
)

// DefaultConfig returns the settings used for anything a lineage file leaves
// out. It has no root and no links.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:  "https://api.github.com",
			TokenEnv: "GITHUB_TOKEN",
			RateLimit: ratelimit.Policy{
				MinInterval:    61 * time.Second,
				ServerFeedback: true,
			},
		},
		Cache: CacheConfig{Path: "api_cache.db"},
		Clone: CloneConfig{
			Dir:       "repos",
			Backend:   BackendExec,
			RateLimit: ratelimit.Policy{MinInterval: 61 * time.Second},
		},
		Output: OutputConfig{
			Tree:    "fork_tree_data.json",
			History: "fork_tree_data_3.json.zst",
			DOT:     "graph.dot",
			Image:   "graph.svg",
			Format:  "svg",
			Mode:    ModeCommits,
		},
	}
}

// Load reads the lineage file at path over the defaults, then applies the
// environment. An empty path selects the built-in Pixel Dungeon lineage.
func Load(path string) (*Config, error) {
	data := defaultLineage
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg, err := Parse(data)
	if err != nil {
		if path == "" {
			path = "built-in lineage"
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes a lineage document over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv(EnvCache); v != "" {
		c.Cache.Path = v
	}
	if v := os.Getenv(EnvCloneDir); v != "" {
		c.Clone.Dir = v
	}
}

// Validate checks keys, enumerations and intervals.
func (c *Config) Validate() error {
	if _, err := c.RootKey(); err != nil {
		return fmt.Errorf("root: %w", err)
	}
	if _, err := c.ManualLinks(); err != nil {
		return err
	}
	switch c.Clone.Backend {
	case BackendExec, BackendGoGit:
	default:
		return fmt.Errorf("clone.backend: unknown backend %q (expected %s or %s)", c.Clone.Backend, BackendExec, BackendGoGit)
	}
	switch c.Output.Mode {
	case ModeCommits, ModeRepos:
	default:
		return fmt.Errorf("output.mode: unknown mode %q (expected %s or %s)", c.Output.Mode, ModeCommits, ModeRepos)
	}
	for name, p := range map[string]ratelimit.Policy{"api.rate_limit": c.API.RateLimit, "clone.rate_limit": c.Clone.RateLimit} {
		if p.MinInterval < 0 || p.Jitter < 0 {
			return fmt.Errorf("%s: intervals must not be negative", name)
		}
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url must be set")
	}
	return nil
}

// RootKey parses Root.
func (c *Config) RootKey() (forktree.Key, error) {
	return forktree.ParseKey(c.Root)
}

// ManualLinks parses Links in order.
func (c *Config) ManualLinks() ([]discover.Link, error) {
	links := make([]discover.Link, 0, len(c.Links))
	for i, l := range c.Links {
		child, err := forktree.ParseKey(l.Child)
		if err != nil {
			return nil, fmt.Errorf("links[%d].child: %w", i, err)
		}
		parent, err := forktree.ParseKey(l.Parent)
		if err != nil {
			return nil, fmt.Errorf("links[%d].parent: %w", i, err)
		}
		links = append(links, discover.Link{Child: child, Parent: parent})
	}
	return links, nil
}

// Marshal encodes the effective configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// GetValue retrieves a configuration value by dotted key (e.g.
// "clone.backend" or "api.rate_limit.min_interval").
func (c *Config) GetValue(key string) (string, error) {
	data, err := c.Marshal()
	if err != nil {
		return "", err
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("failed to parse config: %w", err)
	}

	var cur any = doc
	for _, part := range strings.Split(key, ".") {
		section, ok := cur.(map[string]any)
		if !ok {
			return "", fmt.Errorf("invalid config key: %s", key)
		}
		if cur, ok = section[part]; !ok {
			return "", fmt.Errorf("unknown config key: %s", key)
		}
	}

	switch v := cur.(type) {
	case map[string]any, []any:
		out, err := yaml.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to marshal %s: %w", key, err)
		}
		return strings.TrimRight(string(out), "\n"), nil
	default:
		return fmt.Sprint(v), nil
	}
}
