package cli

import (
	"fmt"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"stonks-api/internal/config"
	"stonks-api/pkg/confkit"
)

// ConfigSummaryLines returns human readable lines describing the loaded app config.
func ConfigSummaryLines(cfg *config.Config) []string {
	if cfg == nil {
		return []string{"Configuration: <nil>"}
	}

	lines := []string{
		fmt.Sprintf("Environment: %s", cfg.Env),
		fmt.Sprintf("Data path: %s", cfg.DataPath),
		fmt.Sprintf("Storage (market/ledger): %s / %s", cfg.Storage.Market, cfg.Storage.Ledger),
		fmt.Sprintf("Postgres: %s", presence(cfg.Postgres.DSN != "")),
		fmt.Sprintf("Redis: %s", presence(strings.TrimSpace(cfg.Redis.Host) != "")),
		fmt.Sprintf("Kafka: %s", kafkaLine(cfg.Kafka)),
		fmt.Sprintf("Journal: %s", orNotConfigured(cfg.Journal.Dir)),
		fmt.Sprintf("Scheduler: every %s, %d workers", cfg.Scheduler.Interval, cfg.Scheduler.Workers),
		fmt.Sprintf("Starting balance: %.2f", cfg.Portfolio.StartingBalance),
		fmt.Sprintf("TTL (short/medium/long): %ds / %ds / %ds", cfg.TTL.Short, cfg.TTL.Medium, cfg.TTL.Long),
		sectionLine("Trend config", cfg.Trend),
		sectionLine("Market config", cfg.Market),
	}

	return lines
}

// LogConfigSummary emits the configuration summary using logx.
func LogConfigSummary(cfg *config.Config) {
	lines := ConfigSummaryLines(cfg)
	if len(lines) == 0 {
		return
	}
	logx.Info("configuration summary")
	for _, line := range lines {
		logx.Infof("config • %s", line)
	}
}

func presence(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func orNotConfigured(v string) string {
	if strings.TrimSpace(v) == "" {
		return "not configured"
	}
	return v
}

func kafkaLine(k config.KafkaConf) string {
	if len(k.Brokers) == 0 {
		return "not configured"
	}
	return fmt.Sprintf("%s -> %s", strings.Join(k.Brokers, ","), k.Topic)
}

func sectionLine[T any](name string, section confkit.Section[T]) string {
	switch {
	case strings.TrimSpace(section.File) != "":
		return fmt.Sprintf("%s: %s", name, section.File)
	case section.Value != nil:
		return fmt.Sprintf("%s: inline", name)
	default:
		return fmt.Sprintf("%s: not configured", name)
	}
}
