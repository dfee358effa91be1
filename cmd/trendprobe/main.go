package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"stonks-api/internal/config"
	"stonks-api/pkg/market"
	"stonks-api/pkg/trend"
	_ "stonks-api/pkg/trend/sources"
)

var (
	symbol     = flag.String("symbol", "GME", "instrument symbol to score")
	trendFile  = flag.String("trend", "", "trend config file (defaults to etc/trend.yaml)")
	marketFile = flag.String("market", "", "market catalog used for search terms (defaults to etc/market.yaml)")
	timeout    = flag.Duration("timeout", 30*time.Second, "overall probe timeout")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	trendCfg := loadTrend(*trendFile)
	catalog := loadMarket(*marketFile)

	sources, err := trendCfg.BuildSources()
	if err != nil {
		log.Fatalf("[probe] Failed to build trend sources: %v", err)
	}
	cache, err := trend.NewCache(trendCfg.CacheTTL)
	if err != nil {
		log.Fatalf("[probe] Failed to build cache: %v", err)
	}
	agg, err := trend.NewAggregator(sources, cache,
		trend.WithWeights(trendCfg.Weights),
		trend.WithTerms(catalog.TermsFor),
	)
	if err != nil {
		log.Fatalf("[probe] Failed to build aggregator: %v", err)
	}

	sym := market.NormalizeSymbol(*symbol)
	log.Printf("[probe] Scoring %s with terms %v (%d of %d sources configured)",
		sym, catalog.TermsFor(sym), len(sources), len(trend.Kinds()))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	score := agg.Breakdown(ctx, sym)
	printBreakdown(score, time.Since(start))
}

func loadTrend(path string) *trend.Config {
	if path == "" {
		return config.MustLoadTrend()
	}
	cfg, err := trend.LoadConfig(path)
	if err != nil {
		log.Fatalf("[probe] Failed to load trend config: %v", err)
	}
	return cfg
}

func loadMarket(path string) *market.Config {
	if path == "" {
		return config.MustLoadMarket()
	}
	cfg, err := market.LoadConfig(path)
	if err != nil {
		log.Fatalf("[probe] Failed to load market config: %v", err)
	}
	return cfg
}

func printBreakdown(score trend.Score, elapsed time.Duration) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tVALUE\tWEIGHT\tWEIGHTED\tFALLBACK\tELAPSED\tREASON")
	for _, o := range score.Outcomes {
		fmt.Fprintf(w, "%s\t%+.5f\t%.2f\t%+.5f\t%t\t%dms\t%s\n",
			o.Kind, o.Value, o.Weight, o.Weighted(), o.Fallback, o.Elapsed.Milliseconds(), o.Reason)
	}
	fmt.Fprintln(w, strings.Repeat("-", 8))
	fmt.Fprintf(w, "TOTAL\t%+.5f\t\t\t\t%dms\t\n", score.Value, elapsed.Milliseconds())
	_ = w.Flush()
}
