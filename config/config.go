package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config encapsulates global runtime options plus the list of served pages.
type Config struct {
	Listen           string       `yaml:"listen"`
	LogLevel         string       `yaml:"log_level"`
	TempDir          string       `yaml:"temp_dir"`
	IntervalSec      int          `yaml:"interval_sec"`
	UpdateTimeoutSec int          `yaml:"update_timeout_sec"`
	Pages            []PageConfig `yaml:"pages"`
}

// PageConfig maps one git repository (at an optional ref and subfolder)
// onto a URL prefix. Loaded once at startup and treated as immutable.
type PageConfig struct {
	Repo         string `yaml:"repo"`
	Ref          string `yaml:"ref"`
	Subfolder    string `yaml:"subfolder"`
	Prefix       string `yaml:"prefix"`
	AutoIndex    bool   `yaml:"auto_index"`
	AutoList     bool   `yaml:"auto_list"`
	UpdateSecret string `yaml:"update_secret"`
	MaxBytes     int64  `yaml:"max_bytes"`
}

func (p *PageConfig) UnmarshalYAML(value *yaml.Node) error {
	type rawPageConfig PageConfig
	raw := rawPageConfig{
		Prefix:    "/",
		AutoIndex: true,
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*p = PageConfig(raw)
	return nil
}

// WorkdirName derives a filesystem-safe directory name for this page's
// transient git checkout from its prefix.
func (p *PageConfig) WorkdirName() string {
	name := strings.Trim(p.Prefix, "/")
	if name == "" {
		return "root"
	}
	return strings.ReplaceAll(name, "/", "_")
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.expandEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// expandEnv expands environment variables in all string fields.
func (c *Config) expandEnv() {
	c.Listen = os.ExpandEnv(c.Listen)
	c.TempDir = os.ExpandEnv(c.TempDir)
	for i := range c.Pages {
		p := &c.Pages[i]
		p.Repo = os.ExpandEnv(p.Repo)
		p.Ref = os.ExpandEnv(p.Ref)
		p.Subfolder = os.ExpandEnv(p.Subfolder)
		p.Prefix = os.ExpandEnv(p.Prefix)
		p.UpdateSecret = os.ExpandEnv(p.UpdateSecret)
	}
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.TempDir == "" {
		c.TempDir = "./temp"
	}
	if c.IntervalSec == 0 {
		c.IntervalSec = 300
	}
	if c.UpdateTimeoutSec == 0 {
		c.UpdateTimeoutSec = 120
	}
}

// Validate checks the configuration for errors. Any failure here is fatal
// at startup; a page list that cannot be routed unambiguously never runs.
func (c *Config) Validate() error {
	if c.IntervalSec < 0 {
		return fmt.Errorf("interval_sec must not be negative")
	}
	if c.UpdateTimeoutSec < 0 {
		return fmt.Errorf("update_timeout_sec must not be negative")
	}
	if len(c.Pages) == 0 {
		return fmt.Errorf("at least one page must be configured")
	}
	for i := range c.Pages {
		p := &c.Pages[i]
		if p.Repo == "" {
			return fmt.Errorf("page %d: repo is required", i)
		}
		if !strings.HasPrefix(p.Prefix, "/") {
			return fmt.Errorf("page %d: prefix %q must start with a slash", i, p.Prefix)
		}
		if !strings.HasSuffix(p.Prefix, "/") {
			return fmt.Errorf("page %d: prefix %q must end with a slash", i, p.Prefix)
		}
		if p.MaxBytes < 0 {
			return fmt.Errorf("page %d: max_bytes must not be negative", i)
		}
	}
	for i := range c.Pages {
		for j := i + 1; j < len(c.Pages); j++ {
			a, b := c.Pages[i].Prefix, c.Pages[j].Prefix
			if a == b {
				return fmt.Errorf("prefix %s is used by more than one page", a)
			}
			if strings.HasPrefix(a, b) || strings.HasPrefix(b, a) {
				return fmt.Errorf("prefix %s conflicts with prefix %s", a, b)
			}
		}
	}
	return nil
}

// Interval returns the background update interval.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalSec) * time.Second
}

// UpdateTimeout bounds a webhook-triggered update so a stalled git remote
// cannot pin client connections.
func (c *Config) UpdateTimeout() time.Duration {
	return time.Duration(c.UpdateTimeoutSec) * time.Second
}
