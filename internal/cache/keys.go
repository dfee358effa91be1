package cache

import (
	"fmt"
	"strings"
	"time"

	"stonks-api/internal/config"
)

// Namespace is the Redis key prefix for the application.
const Namespace = "stonks"

// TTLClass represents a config-driven TTL bucket.
type TTLClass string

const (
	TTLShort  TTLClass = "short"
	TTLMedium TTLClass = "medium"
	TTLLong   TTLClass = "long"
)

// TTLSet normalises cache TTLs from config into time.Duration values.
type TTLSet struct {
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

// NewTTLSet converts config TTLs (in seconds) into durations.
func NewTTLSet(cfg config.CacheTTL) TTLSet {
	return TTLSet{
		Short:  durationOrDefault(cfg.Short, 10*time.Second),
		Medium: durationOrDefault(cfg.Medium, time.Minute),
		Long:   durationOrDefault(cfg.Long, 5*time.Minute),
	}
}

func durationOrDefault(seconds int, fallback time.Duration) time.Duration {
	if seconds < 0 {
		return 0
	}
	if seconds == 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// Duration returns the configured duration for the given TTL class.
func (t TTLSet) Duration(class TTLClass) time.Duration {
	switch class {
	case TTLShort:
		return t.Short
	case TTLMedium:
		return t.Medium
	case TTLLong:
		return t.Long
	default:
		return 0
	}
}

// Scaled applies a multiplier to a TTL class.
func (t TTLSet) Scaled(class TTLClass, factor float64) time.Duration {
	base := t.Duration(class)
	if base <= 0 || factor <= 0 {
		return base
	}
	return time.Duration(float64(base) * factor)
}

func formatKey(parts ...string) string {
	values := make([]string, 0, len(parts)+1)
	values = append(values, Namespace)
	for _, part := range parts {
		clean := strings.TrimSpace(part)
		if clean == "" {
			continue
		}
		values = append(values, clean)
	}
	return strings.Join(values, ":")
}

// --- Market Keys ------------------------------------------------------------

// InstrumentsHashKey is the hash holding msgpack-encoded instrument state, one field per symbol.
func InstrumentsHashKey() string {
	return formatKey("market", "instruments")
}

// PriceLatestKey holds the latest simulated price for a symbol.
func PriceLatestKey(symbol string) string {
	return formatKey("price", "latest", strings.ToUpper(symbol))
}

// PricesKey holds the bundled symbol → price map.
func PricesKey() string {
	return formatKey("prices")
}

// --- Leaderboard Keys -------------------------------------------------------

// LeaderboardCacheKey stores a rendered leaderboard for one limit/holdings combination.
func LeaderboardCacheKey(limit int, holdings bool) string {
	variant := "plain"
	if holdings {
		variant = "holdings"
	}
	return formatKey("leaderboard", "cache", fmt.Sprintf("%d", limit), variant)
}

// --- TTL Helpers ------------------------------------------------------------

// PriceTTL returns short-lived TTL for individual price keys.
func PriceTTL(ttl TTLSet) time.Duration {
	return ttl.Duration(TTLShort)
}

// PricesTTL returns the TTL for bundled prices. Prices move once per tick, so
// this outlives a default two minute interval.
func PricesTTL(ttl TTLSet) time.Duration {
	return ttl.Scaled(TTLMedium, 3)
}

// LeaderboardTTL returns the TTL for leaderboard caches.
func LeaderboardTTL(ttl TTLSet) time.Duration {
	return ttl.Scaled(TTLShort, 0.5)
}

// FormatCacheKey is exported for dynamic key construction when patterns
// are not covered by helpers.
func FormatCacheKey(parts ...string) string {
	return formatKey(parts...)
}
