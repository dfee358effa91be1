// Code scaffolded by goctl. Safe to edit.
// goctl 1.9.2

package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"stonks-api/internal/cli"
	"stonks-api/internal/config"
	"stonks-api/internal/handler"
	"stonks-api/internal/svc"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/proc"
	"github.com/zeromicro/go-zero/rest"
)

var configFile = flag.String("f", "etc/stonks.yaml", "the config file")

const shutdownTimeout = 10 * time.Second

func main() {
	flag.Parse()

	cfg := config.MustLoad(*configFile)

	server := rest.MustNewServer(cfg.RestConf)
	defer server.Stop()

	if cfg.Market.Value == nil {
		cfg.Market.Value = config.MustLoadMarket()
	}
	cli.LogConfigSummary(cfg)

	ctx := svc.NewServiceContext(*cfg)
	defer ctx.Close()
	handler.RegisterHandlers(server, ctx)

	if err := ctx.Scheduler.Start(context.Background()); err != nil {
		logx.Must(err)
	}
	proc.AddShutdownListener(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := ctx.Scheduler.Stop(stopCtx); err != nil {
			logx.Errorf("scheduler stop: %v", err)
		}
	})

	fmt.Printf("Starting server at %s:%d...\n", cfg.Host, cfg.Port)
	server.Start()
}
