package config_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "stonks-api/internal/config"
	"stonks-api/internal/svc"
	"stonks-api/pkg/confkit"
	"stonks-api/pkg/trend"
)

func TestMustLoadShippedConfig(t *testing.T) {
	t.Setenv("STONKS_ENV", "dev")
	t.Setenv("STONKS_REDIS_HOST", "")
	t.Setenv("TREND_X_BEARER", "bearer-from-env")

	cfg := appconfig.MustLoad(confkit.MustProjectPath("etc/stonks.yaml"))
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, 2*time.Minute, cfg.Scheduler.Interval)
	assert.Equal(t, 1000.0, cfg.Portfolio.StartingBalance)

	require.NotNil(t, cfg.Trend.Value, "trend section hydrated")
	require.NotNil(t, cfg.Market.Value, "market section hydrated")
	assert.Equal(t, "bearer-from-env", cfg.Trend.Value.Sources["x"].Token)
	assert.Len(t, cfg.Trend.Value.Sources, len(trend.Kinds()))
	assert.Contains(t, cfg.Market.Value.TermsFor("GME"), "$GME")

	// Keep the smoke run in memory so nothing is written next to etc/.
	cfg.Storage = appconfig.StorageConf{Market: appconfig.BackendMemory, Ledger: appconfig.BackendMemory}
	cfg.Journal.Dir = ""
	deps, err := svc.New(context.Background(), *cfg)
	require.NoError(t, err)
	defer deps.Close()

	symbols, err := deps.Universe(context.Background())
	require.NoError(t, err)
	assert.Len(t, symbols, len(cfg.Market.Value.Instruments))
}
