package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stonks-api/internal/cli"
	"stonks-api/internal/config"
	"stonks-api/internal/svc"
	"stonks-api/pkg/scheduler"
)

const shutdownTimeout = 10 * time.Second // Grace period for the in-flight tick

var configFile = flag.String("f", "etc/stonks.yaml", "the config file")

func main() {
	flag.Parse()
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("[main] Starting market scheduler...")

	appCfg, err := config.Load(*configFile)
	if err != nil {
		log.Printf("[main] Warning: Failed to load app config: %v", err)
		log.Printf("[main] Using default configuration")
		appCfg = &config.Config{Env: "test", Storage: config.StorageConf{Market: config.BackendMemory, Ledger: config.BackendMemory}}
	}

	marketPath := appCfg.Market.File
	if appCfg.Market.Value == nil {
		appCfg.Market.Value = config.MustLoadMarket()
		if marketPath == "" {
			marketPath = "etc/market.yaml (default)"
		}
	}
	trendPath := appCfg.Trend.File
	if appCfg.Trend.Value == nil {
		appCfg.Trend.Value = config.MustLoadTrend()
		if trendPath == "" {
			trendPath = "etc/trend.yaml (default)"
		}
	}

	log.Printf("[main] Configuration loaded:")
	for _, line := range cli.ConfigSummaryLines(appCfg) {
		log.Printf("  - %s", line)
	}
	log.Printf("  - Market Config Path: %s", marketPath)
	log.Printf("  - Trend Config Path: %s", trendPath)

	svcCtx, err := svc.New(context.Background(), *appCfg)
	if err != nil {
		log.Fatalf("[main] Failed to build services: %v", err)
	}
	defer svcCtx.Close()

	sched := svcCtx.Scheduler
	sched.AddObserver(scheduler.ObserverFunc(logTick))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sched.Start(ctx); err != nil {
		log.Fatalf("[main] Failed to start scheduler: %v", err)
	}
	log.Printf("[main] Scheduler started, interval=%s. Press Ctrl+C to stop.", sched.Interval())

	<-ctx.Done()
	log.Println("[main] Shutdown signal received, waiting for in-flight tick...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := sched.Stop(shutdownCtx); err != nil {
		log.Printf("[main] Shutdown timeout exceeded, forcing exit: %v", err)
	} else {
		log.Println("[main] Scheduler stopped cleanly")
	}
	log.Printf("[main] Market scheduler stopped after %d ticks", sched.Ticks())
}

func logTick(_ context.Context, report scheduler.Report) error {
	elapsed := report.Finished.Sub(report.Started)
	log.Printf("[tick] [OK] %d updated, %d failed, took %dms", len(report.Updates), len(report.Failures), elapsed.Milliseconds())
	for _, upd := range report.Updates {
		line := "  - %s: %.4f -> %.4f (%+.2f%%) zone=%s trend=%+.4f"
		if upd.Event != "" {
			log.Printf(line+" event=%s", upd.Symbol, upd.OldPrice, upd.NewPrice, upd.ChangePct, upd.Zone, upd.TrendScore, upd.Event)
			continue
		}
		log.Printf(line, upd.Symbol, upd.OldPrice, upd.NewPrice, upd.ChangePct, upd.Zone, upd.TrendScore)
	}
	for sym, reason := range report.Failures {
		log.Printf("  - %s: [ERROR] %s", sym, reason)
	}
	return nil
}
