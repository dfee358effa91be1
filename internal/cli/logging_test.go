package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"stonks-api/internal/config"
	"stonks-api/pkg/market"
)

func TestConfigSummaryLines(t *testing.T) {
	assert.Equal(t, []string{"Configuration: <nil>"}, ConfigSummaryLines(nil))

	var cfg config.Config
	cfg.Env = "dev"
	cfg.DataPath = "data"
	cfg.Storage = config.StorageConf{Market: config.BackendRedis, Ledger: config.BackendFile}
	cfg.Redis.Host = "localhost:6379"
	cfg.Kafka = config.KafkaConf{Brokers: []string{"k1:9092", "k2:9092"}, Topic: "prices"}
	cfg.Scheduler = config.SchedulerConf{Interval: 2 * time.Minute, Workers: 8}
	cfg.Trend.File = "etc/trend.yaml"
	cfg.Market.Value = &market.Config{}

	lines := ConfigSummaryLines(&cfg)
	assert.Contains(t, lines, "Storage (market/ledger): redis / file")
	assert.Contains(t, lines, "Postgres: not configured")
	assert.Contains(t, lines, "Redis: configured")
	assert.Contains(t, lines, "Kafka: k1:9092,k2:9092 -> prices")
	assert.Contains(t, lines, "Journal: not configured")
	assert.Contains(t, lines, "Scheduler: every 2m0s, 8 workers")
	assert.Contains(t, lines, "Trend config: etc/trend.yaml")
	assert.Contains(t, lines, "Market config: inline")
}
