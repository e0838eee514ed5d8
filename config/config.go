package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// CategoryRule maps a title pattern to a category label. Rules are applied
// in order; the first match wins.
type CategoryRule struct {
	Pattern  string `json:"pattern"`
	Category string `json:"category"`

	re *regexp.Regexp
}

// NameRule rewrites a channel title to a canonical display name.
type NameRule struct {
	Pattern string `json:"pattern"`
	Name    string `json:"name"`

	re *regexp.Regexp
}

// Synonym is a plain-text substitution applied during EPG name matching.
type Synonym struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type Config struct {
	Sources []string `json:"sources"`
	EPGURLs []string `json:"epg_urls"`

	OutputDir  string `json:"output_dir"`
	OutputFile string `json:"output_file"`
	TempPath   string `json:"temp_path"`

	MaxWorkers    int    `json:"max_workers"`
	CheckTimeout  int    `json:"check_timeout"`
	CheckAttempts int    `json:"check_attempts"`
	MaxEndpoints  int    `json:"max_endpoints"`
	UserAgent     string `json:"user_agent"`

	Categories       []string       `json:"categories"`
	CategoryRules    []CategoryRule `json:"category_rules"`
	DefaultCategory  string         `json:"default_category"`
	NumberedCategory string         `json:"numbered_category"`
	NumberedPattern  string         `json:"numbered_pattern"`

	ChannelNameMap  []NameRule `json:"channel_name_map"`
	ExcludedSources []string   `json:"excluded_sources"`
	Synonyms        []Synonym  `json:"synonyms"`

	AcceleratorHosts    []string `json:"accelerator_hosts"`
	AcceleratorDiscount float64  `json:"accelerator_discount"`

	numberedRe *regexp.Regexp
}

var globalConfig = Defaults()

func GetConfig() *Config {
	return globalConfig
}

func SetConfig(c *Config) {
	globalConfig = c
}

// Defaults returns a config with every optional knob at its default. The
// result still fails Validate until sources are set.
func Defaults() *Config {
	c := &Config{
		OutputDir:           "output",
		OutputFile:          "live.m3u",
		TempPath:            filepath.Join(os.TempDir(), "iptv-curator"),
		MaxWorkers:          10,
		CheckTimeout:        10,
		CheckAttempts:       2,
		MaxEndpoints:        2,
		DefaultCategory:     "其他",
		NumberedCategory:    "央视",
		NumberedPattern:     `^CCTV-?(\d+)`,
		AcceleratorDiscount: 1.0,
	}
	_ = c.compile()
	return c
}

// Load reads a JSON config file, applies defaults and validates the result.
// Any error here is fatal to the run.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	c := Defaults()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if c.UserAgent != "" {
		os.Setenv("USER_AGENT", c.UserAgent)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Validate checks required settings and compiles every configured pattern.
// This is the only error class that halts the run.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("config: at least one source URL is required")
	}
	if c.MaxWorkers < 1 {
		return fmt.Errorf("config: max_workers must be at least 1, got %d", c.MaxWorkers)
	}
	if c.CheckTimeout < 1 {
		return fmt.Errorf("config: check_timeout must be at least 1 second, got %d", c.CheckTimeout)
	}
	if c.CheckAttempts < 1 {
		return fmt.Errorf("config: check_attempts must be at least 1, got %d", c.CheckAttempts)
	}
	if c.MaxEndpoints < 1 {
		return fmt.Errorf("config: max_endpoints must be at least 1, got %d", c.MaxEndpoints)
	}
	if c.AcceleratorDiscount <= 0 || c.AcceleratorDiscount > 1 {
		return fmt.Errorf("config: accelerator_discount must be in (0,1], got %v", c.AcceleratorDiscount)
	}
	return c.compile()
}

func (c *Config) compile() error {
	var err error
	if c.NumberedPattern != "" {
		c.numberedRe, err = regexp.Compile(c.NumberedPattern)
		if err != nil {
			return fmt.Errorf("config: numbered_pattern: %w", err)
		}
	}
	for i := range c.CategoryRules {
		c.CategoryRules[i].re, err = regexp.Compile(c.CategoryRules[i].Pattern)
		if err != nil {
			return fmt.Errorf("config: category_rules[%d]: %w", i, err)
		}
	}
	for i := range c.ChannelNameMap {
		c.ChannelNameMap[i].re, err = regexp.Compile(c.ChannelNameMap[i].Pattern)
		if err != nil {
			return fmt.Errorf("config: channel_name_map[%d]: %w", i, err)
		}
	}
	return nil
}

// ProbeTimeout is the per-attempt probe budget.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.CheckTimeout) * time.Second
}

// NumberedRe returns the compiled numbered-channel pattern, or nil.
func (c *Config) NumberedRe() *regexp.Regexp {
	return c.numberedRe
}

// MatchCategory runs the configured keyword table against a lowercased
// title. The first matching rule wins; table order is the tie-break.
func (c *Config) MatchCategory(title string) (string, bool) {
	lower := strings.ToLower(title)
	for i := range c.CategoryRules {
		if c.CategoryRules[i].re != nil && c.CategoryRules[i].re.MatchString(lower) {
			return c.CategoryRules[i].Category, true
		}
	}
	return "", false
}

// NormalizeName applies the channel_name_map to a lowercased title. The
// first matching rule wins; no match leaves the title untouched.
func (c *Config) NormalizeName(title string) string {
	lower := strings.ToLower(title)
	for i := range c.ChannelNameMap {
		if c.ChannelNameMap[i].re != nil && c.ChannelNameMap[i].re.MatchString(lower) {
			return c.ChannelNameMap[i].Name
		}
	}
	return title
}

func (c *Config) SourcesDirPath() string {
	return filepath.Join(c.TempPath, "sources")
}
