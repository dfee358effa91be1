package config

import (
	"stonks-api/pkg/market"
	"stonks-api/pkg/trend"
)

// MustLoadTrend loads etc/trend.yaml from the project root and panics on error.
// It isolates the trend sources so diagnostics do not need the full app config.
func MustLoadTrend() *trend.Config {
	return trend.MustLoad()
}

// MustLoadMarket loads the default market catalog and panics on error.
func MustLoadMarket() *market.Config {
	return market.MustLoad()
}
