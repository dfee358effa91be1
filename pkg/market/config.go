package market

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"stonks-api/pkg/confkit"
)

// Config is the instrument catalog plus engine parameters.
type Config struct {
	BaseVolatility float64             `yaml:"base_volatility"`
	BaseDrift      float64             `yaml:"base_drift"`
	PriceFloor     float64             `yaml:"price_floor"`
	Instruments    []*InstrumentConfig `yaml:"instruments"`
}

// InstrumentConfig seeds one instrument.
type InstrumentConfig struct {
	Symbol     string   `yaml:"symbol"`
	Price      float64  `yaml:"price"`
	Ceiling    float64  `yaml:"ceiling"`
	Volatility string   `yaml:"volatility"`
	Terms      []string `yaml:"terms"`

	class VolatilityClass
}

// LoadConfig reads the market catalog from disk.
func LoadConfig(path string) (*Config, error) {
	confkit.LoadDotenvOnce()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open market config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// MustLoad reads market configuration from the default project location and panics on error.
func MustLoad() *Config {
	path := confkit.MustProjectPath("etc/market.yaml")
	cfg, err := LoadConfig(path)
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
		return nil, fmt.Errorf("read market config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal market config: %w", err)
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
	if c.BaseVolatility == 0 {
		c.BaseVolatility = DefaultBaseVolatility
	}
	if c.PriceFloor == 0 {
		c.PriceFloor = DefaultPriceFloor
	}
	for i, inst := range c.Instruments {
		if inst == nil {
			return fmt.Errorf("market config: instrument #%d is empty", i)
		}
		inst.expandEnv()
		class, err := ParseVolatilityClass(inst.Volatility)
		if err != nil {
			return fmt.Errorf("market config: instrument %s: %w", inst.Symbol, err)
		}
		inst.class = class
	}
	return nil
}

func (i *InstrumentConfig) expandEnv() {
	i.Symbol = NormalizeSymbol(os.ExpandEnv(i.Symbol))
	i.Volatility = strings.TrimSpace(os.ExpandEnv(i.Volatility))
	terms := make([]string, 0, len(i.Terms))
	// terms are not env-expanded so cashtags like $GME survive
	for _, t := range i.Terms {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	i.Terms = terms
}

// Validate ensures the catalog is structurally sound.
func (c *Config) Validate() error {
	if c.BaseVolatility < 0 {
		return fmt.Errorf("market config: base_volatility cannot be negative")
	}
	if c.PriceFloor <= 0 {
		return fmt.Errorf("market config: price_floor must be positive")
	}
	if len(c.Instruments) == 0 {
		return fmt.Errorf("market config: instruments cannot be empty")
	}
	seen := make(map[string]struct{}, len(c.Instruments))
	for _, inst := range c.Instruments {
		if inst.Symbol == "" {
			return fmt.Errorf("market config: instrument symbol cannot be empty")
		}
		if _, dup := seen[inst.Symbol]; dup {
			return fmt.Errorf("market config: duplicate instrument %s", inst.Symbol)
		}
		seen[inst.Symbol] = struct{}{}
		if !isFinite(inst.Price) || inst.Price <= 0 {
			return fmt.Errorf("market config: instrument %s price must be positive", inst.Symbol)
		}
		if !isFinite(inst.Ceiling) || inst.Ceiling <= 0 {
			return fmt.Errorf("market config: instrument %s ceiling must be positive", inst.Symbol)
		}
	}
	return nil
}

// Params returns the engine parameters from the catalog.
func (c *Config) Params() Params {
	return Params{
		BaseVolatility: c.BaseVolatility,
		BaseDrift:      c.BaseDrift,
		PriceFloor:     c.PriceFloor,
	}
}

// BuildInstruments returns the initial instrument states stamped with now.
func (c *Config) BuildInstruments(now time.Time) []Instrument {
	out := make([]Instrument, 0, len(c.Instruments))
	for _, inst := range c.Instruments {
		class := inst.class
		if class == "" {
			class = VolatilityMedium
		}
		out = append(out, Instrument{
			Symbol:     inst.Symbol,
			Price:      inst.Price,
			Ceiling:    inst.Ceiling,
			Volatility: class,
			LastUpdate: now,
			Terms:      append([]string(nil), inst.Terms...),
		})
	}
	return out
}

// TermsFor returns the configured search terms for symbol, or the symbol itself.
func (c *Config) TermsFor(symbol string) []string {
	symbol = NormalizeSymbol(symbol)
	for _, inst := range c.Instruments {
		if inst.Symbol == symbol && len(inst.Terms) > 0 {
			return append([]string(nil), inst.Terms...)
		}
	}
	return []string{symbol}
}
