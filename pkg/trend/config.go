package trend

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"stonks-api/pkg/confkit"
)

// Config describes the trend sources and how their outputs are combined.
type Config struct {
	CacheTTLRaw string                   `yaml:"cache_ttl"`
	CacheTTL    time.Duration            `yaml:"-"`
	Weights     map[Kind]float64         `yaml:"weights"`
	Sources     map[string]*SourceConfig `yaml:"sources"`
}

// SourceConfig configures a single external signal source.
type SourceConfig struct {
	Type    string `yaml:"type"`
	Enabled *bool  `yaml:"enabled"`

	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	Token     string `yaml:"token"`
	UserAgent string `yaml:"user_agent"`
	Window    string `yaml:"window"`

	TimeoutRaw     string        `yaml:"timeout"`
	Timeout        time.Duration `yaml:"-"`
	MinIntervalRaw string        `yaml:"min_interval"`
	MinInterval    time.Duration `yaml:"-"`
	MaxRetries     int           `yaml:"max_retries"`
	MaxResults     int           `yaml:"max_results"`
}

// IsEnabled reports whether the source should be built. Sources are enabled
// unless explicitly disabled.
func (s *SourceConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// SourceBuilder constructs a Source from configuration.
type SourceBuilder func(name string, cfg *SourceConfig) (Source, error)

var (
	sourceRegistry   = make(map[Kind]SourceBuilder)
	sourceRegistryMu sync.RWMutex
)

// RegisterSource registers the constructor for a source kind.
func RegisterSource(kind Kind, builder SourceBuilder) {
	sourceRegistryMu.Lock()
	defer sourceRegistryMu.Unlock()
	sourceRegistry[normaliseKind(string(kind))] = builder
}

func lookupSourceBuilder(typeName string) (SourceBuilder, bool) {
	sourceRegistryMu.RLock()
	defer sourceRegistryMu.RUnlock()
	builder, ok := sourceRegistry[normaliseKind(typeName)]
	return builder, ok
}

func normaliseKind(s string) Kind {
	return Kind(strings.ToLower(strings.TrimSpace(s)))
}

// LoadConfig reads trend configuration from disk.
func LoadConfig(path string) (*Config, error) {
	confkit.LoadDotenvOnce()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trend config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// MustLoad reads etc/trend.yaml from the project root and panics on error.
func MustLoad() *Config {
	cfg, err := LoadConfig(confkit.MustProjectPath("etc/trend.yaml"))
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadConfigFromReader constructs a Config from an io.Reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	confkit.LoadDotenvOnce()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read trend config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal trend config: %w", err)
	}
	if err := cfg.normalise(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalise() error {
	c.CacheTTLRaw = strings.TrimSpace(os.ExpandEnv(c.CacheTTLRaw))
	if c.CacheTTLRaw != "" {
		d, err := time.ParseDuration(c.CacheTTLRaw)
		if err != nil {
			return fmt.Errorf("trend config: invalid cache_ttl %q: %w", c.CacheTTLRaw, err)
		}
		c.CacheTTL = d
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	if len(c.Weights) == 0 {
		c.Weights = DefaultWeights()
	}
	if c.Sources == nil {
		c.Sources = make(map[string]*SourceConfig)
	}
	for name, src := range c.Sources {
		if src == nil {
			src = &SourceConfig{}
			c.Sources[name] = src
		}
		src.expandEnv()
		if err := src.parseDurations(name); err != nil {
			return err
		}
	}
	return nil
}

func (s *SourceConfig) expandEnv() {
	s.Type = strings.TrimSpace(os.ExpandEnv(s.Type))
	s.BaseURL = strings.TrimSpace(os.ExpandEnv(s.BaseURL))
	s.APIKey = strings.TrimSpace(os.ExpandEnv(s.APIKey))
	s.Token = strings.TrimSpace(os.ExpandEnv(s.Token))
	s.UserAgent = strings.TrimSpace(os.ExpandEnv(s.UserAgent))
	s.Window = strings.TrimSpace(os.ExpandEnv(s.Window))
	s.TimeoutRaw = strings.TrimSpace(os.ExpandEnv(s.TimeoutRaw))
	s.MinIntervalRaw = strings.TrimSpace(os.ExpandEnv(s.MinIntervalRaw))
}

func (s *SourceConfig) parseDurations(name string) error {
	if s.TimeoutRaw != "" {
		d, err := time.ParseDuration(s.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("trend source %s: invalid timeout %q: %w", name, s.TimeoutRaw, err)
		}
		if d <= 0 {
			return fmt.Errorf("trend source %s: timeout must be positive, got %s", name, d)
		}
		s.Timeout = d
	}
	if s.MinIntervalRaw != "" {
		d, err := time.ParseDuration(s.MinIntervalRaw)
		if err != nil {
			return fmt.Errorf("trend source %s: invalid min_interval %q: %w", name, s.MinIntervalRaw, err)
		}
		if d < 0 {
			return fmt.Errorf("trend source %s: min_interval cannot be negative, got %s", name, d)
		}
		s.MinInterval = d
	}
	return nil
}

// Validate ensures the configuration is structurally sound.
func (c *Config) Validate() error {
	sum := 0.0
	for kind, w := range c.Weights {
		if !isKnownKind(kind) {
			return fmt.Errorf("trend config: weight for unknown source %q", kind)
		}
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("trend config: weight for %s must be a non-negative number", kind)
		}
		sum += w
	}
	if math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("trend config: weights must sum to 1, got %.4f", sum)
	}

	seen := make(map[Kind]string, len(c.Sources))
	for name, src := range c.Sources {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("trend config: source name cannot be empty")
		}
		if err := src.validate(name); err != nil {
			return err
		}
		if !src.IsEnabled() {
			continue
		}
		kind := normaliseKind(src.Type)
		if other, dup := seen[kind]; dup {
			return fmt.Errorf("trend config: sources %s and %s both use type %s", other, name, kind)
		}
		seen[kind] = name
	}
	return nil
}

func (s *SourceConfig) validate(name string) error {
	if s == nil {
		return fmt.Errorf("trend config: source %s is nil", name)
	}
	if strings.TrimSpace(s.Type) == "" {
		return fmt.Errorf("trend config: source %s must specify type", name)
	}
	if _, ok := lookupSourceBuilder(s.Type); !ok {
		return fmt.Errorf("trend config: source %s has unsupported type %q", name, s.Type)
	}
	if s.MaxRetries < 0 {
		return fmt.Errorf("trend config: source %s max_retries cannot be negative", name)
	}
	return nil
}

// BuildSources instantiates every enabled source keyed by its kind.
func (c *Config) BuildSources() (map[Kind]Source, error) {
	result := make(map[Kind]Source, len(c.Sources))
	for name, srcCfg := range c.Sources {
		if !srcCfg.IsEnabled() {
			continue
		}
		builder, ok := lookupSourceBuilder(srcCfg.Type)
		if !ok {
			return nil, fmt.Errorf("trend source %s: unsupported type %q", name, srcCfg.Type)
		}
		src, err := builder(name, srcCfg)
		if err != nil {
			return nil, fmt.Errorf("trend source %s: %w", name, err)
		}
		result[src.Kind()] = src
	}
	return result, nil
}

func isKnownKind(k Kind) bool {
	for _, known := range Kinds() {
		if known == k {
			return true
		}
	}
	return false
}
