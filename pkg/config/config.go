// Package config handles loading and saving tourdesk configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/tourdesk/config.yaml
//   - Data:    ~/.local/share/tourdesk/ (default tourdesk.db)
//
// Precedence is flags, then environment (TOURDESK_DATA, TOURDESK_DOMAIN),
// then the file, then defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/tourdesk/pkg/model"
)

// Environment overrides.
const (
	EnvDataPath = "TOURDESK_DATA"
	EnvDomain   = "TOURDESK_DOMAIN"
)

const maxRecent = 5

// DomainConfig overrides the defaults of one category tree.
type DomainConfig struct {
	Title    string `yaml:"title,omitempty"`
	BasePath string `yaml:"base_path,omitempty"`
	Disabled bool   `yaml:"disabled,omitempty"`
}

// UIConfig holds UI preference settings.
type UIConfig struct {
	DefaultDomain string  `yaml:"default_domain,omitempty"` // tours, news, gallery
	ShowDetail    bool    `yaml:"show_detail"`              // Detail pane next to the tree
	SplitRatio    float64 `yaml:"split_ratio,omitempty"`    // Tree share of the width (0.2-0.8)
}

// WatchConfig controls live reload of the data file.
type WatchConfig struct {
	Enabled      bool   `yaml:"enabled"`
	PollInterval string `yaml:"poll_interval,omitempty"` // e.g. "2s"
	ForcePoll    bool   `yaml:"force_poll,omitempty"`
}

// Config is the top-level configuration for tourdesk.
type Config struct {
	DataPath string                  `yaml:"data_path,omitempty"`
	Domains  map[string]DomainConfig `yaml:"domains,omitempty"`
	UI       UIConfig                `yaml:"ui,omitempty"`
	Watch    WatchConfig             `yaml:"watch,omitempty"`
	Recent   []string                `yaml:"recent,omitempty"` // Recently opened data paths, newest first
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Domains: make(map[string]DomainConfig),
		UI: UIConfig{
			DefaultDomain: string(model.DomainTour),
			ShowDetail:    true,
			SplitRatio:    0.5,
		},
		Watch: WatchConfig{
			Enabled:      true,
			PollInterval: "2s",
		},
	}
}

// ConfigDir returns the XDG config directory for tourdesk.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "tourdesk")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "tourdesk")
}

// DataDir returns the XDG data directory for tourdesk.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "tourdesk")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "tourdesk")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// DefaultDataPath is the database used when nothing else is configured.
func DefaultDataPath() string {
	dir := DataDir()
	if dir == "" {
		return "tourdesk.db"
	}
	return filepath.Join(dir, "tourdesk.db")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Domains == nil {
		cfg.Domains = make(map[string]DomainConfig)
	}

	cfg.DataPath = expandHome(cfg.DataPath)
	for i := range cfg.Recent {
		cfg.Recent[i] = expandHome(cfg.Recent[i])
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Validate checks values that cannot be defaulted silently.
func (c Config) Validate() error {
	if c.UI.DefaultDomain != "" {
		if _, err := model.ParseDomain(c.UI.DefaultDomain); err != nil {
			return fmt.Errorf("ui.default_domain: %w", err)
		}
	}
	if c.UI.SplitRatio != 0 && (c.UI.SplitRatio < 0.2 || c.UI.SplitRatio > 0.8) {
		return fmt.Errorf("ui.split_ratio must be between 0.2 and 0.8, got %v", c.UI.SplitRatio)
	}
	if c.Watch.PollInterval != "" {
		if _, err := time.ParseDuration(c.Watch.PollInterval); err != nil {
			return fmt.Errorf("watch.poll_interval: %w", err)
		}
	}
	for name := range c.Domains {
		if _, err := model.ParseDomain(name); err != nil {
			return fmt.Errorf("domains: %w", err)
		}
	}
	return nil
}

// ApplyEnv overlays TOURDESK_DATA and TOURDESK_DOMAIN onto c.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvDataPath)); v != "" {
		c.DataPath = expandHome(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvDomain)); v != "" {
		c.UI.DefaultDomain = v
	}
}

// ResolvedDataPath returns the configured data path or the XDG default.
func (c Config) ResolvedDataPath() string {
	if c.DataPath != "" {
		return expandHome(c.DataPath)
	}
	return DefaultDataPath()
}

// StartDomain returns the domain shown first, falling back to tours.
func (c Config) StartDomain() model.Domain {
	if d, err := model.ParseDomain(c.UI.DefaultDomain); err == nil && c.DomainEnabled(d) {
		return d
	}
	if enabled := c.EnabledDomains(); len(enabled) > 0 {
		return enabled[0]
	}
	return model.DomainTour
}

func (c Config) domain(d model.Domain) DomainConfig {
	for name, dc := range c.Domains {
		if parsed, err := model.ParseDomain(name); err == nil && parsed == d {
			return dc
		}
	}
	return DomainConfig{}
}

// DomainEnabled reports whether d is shown.
func (c Config) DomainEnabled(d model.Domain) bool {
	return !c.domain(d).Disabled
}

// EnabledDomains lists the shown domains in tab order.
func (c Config) EnabledDomains() []model.Domain {
	var out []model.Domain
	for _, d := range model.AllDomains {
		if c.DomainEnabled(d) {
			out = append(out, d)
		}
	}
	return out
}

// BasePath returns the admin route prefix for d.
func (c Config) BasePath(d model.Domain) string {
	if p := strings.TrimSpace(c.domain(d).BasePath); p != "" {
		return p
	}
	return d.DefaultBasePath()
}

// Title returns the tab title for d.
func (c Config) Title(d model.Domain) string {
	if t := strings.TrimSpace(c.domain(d).Title); t != "" {
		return t
	}
	return d.Label()
}

// PollInterval parses Watch.PollInterval, defaulting to 2s.
func (c Config) PollInterval() time.Duration {
	if d, err := time.ParseDuration(c.Watch.PollInterval); err == nil && d > 0 {
		return d
	}
	return 2 * time.Second
}

// AddRecent records path as the most recently opened data path.
func (c *Config) AddRecent(path string) {
	if path == "" {
		return
	}
	out := []string{path}
	for _, p := range c.Recent {
		if p != path && len(out) < maxRecent {
			out = append(out, p)
		}
	}
	c.Recent = out
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
