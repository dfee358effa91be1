package svc

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	"github.com/zeromicro/go-zero/core/logx"
	gocache "github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/redis"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
	"github.com/zeromicro/go-zero/core/syncx"

	cachekeys "stonks-api/internal/cache"
	"stonks-api/internal/config"
	marketpersist "stonks-api/internal/persistence/market"
	"stonks-api/internal/publisher"
	"stonks-api/internal/repo"
	"stonks-api/pkg/confkit"
	"stonks-api/pkg/journal"
	marketpkg "stonks-api/pkg/market"
	"stonks-api/pkg/portfolio"
	"stonks-api/pkg/scheduler"
	trendpkg "stonks-api/pkg/trend"
	_ "stonks-api/pkg/trend/sources"
)

// ErrNotFound is returned by cache lookups that miss.
var ErrNotFound = errors.New("svc: not found")

type ServiceContext struct {
	Config config.Config

	TrendConfig  *trendpkg.Config
	MarketConfig *marketpkg.Config

	// Optional infrastructure, set only when configured.
	DBConn    sqlx.SqlConn
	Redis     *redis.Redis
	Cache     gocache.Cache
	TTL       cachekeys.TTLSet
	Publisher *publisher.Producer
	Journal   *journal.Writer

	Store       marketpkg.Store
	Ledger      portfolio.Ledger
	TrendCache  *trendpkg.Cache
	Trend       *trendpkg.Aggregator
	Events      *marketpkg.Board
	Engine      *marketpkg.Engine
	Scheduler   *scheduler.Scheduler
	Leaderboard *portfolio.Leaderboard
	PriceCache  *marketpersist.PriceCache
}

// NewServiceContext builds the service graph and exits the process on failure.
func NewServiceContext(c config.Config) *ServiceContext {
	svc, err := New(context.Background(), c)
	if err != nil {
		log.Fatalf("failed to build service context: %v", err)
	}
	return svc
}

// New wires every component described by c. The market catalog is required;
// a missing trend section leaves every source on its fallback.
func New(ctx context.Context, c config.Config) (*ServiceContext, error) {
	svc := &ServiceContext{
		Config:       c,
		TrendConfig:  c.Trend.Value,
		MarketConfig: c.Market.Value,
		TTL:          cachekeys.NewTTLSet(c.TTL),
	}
	if svc.MarketConfig == nil {
		return nil, errors.New("svc: market catalog not configured")
	}
	if svc.TrendConfig == nil {
		svc.TrendConfig = &trendpkg.Config{CacheTTL: trendpkg.DefaultCacheTTL, Weights: trendpkg.DefaultWeights()}
	}

	if c.Postgres.DSN != "" {
		conn := sqlx.NewSqlConn("pgx", c.Postgres.DSN)
		if raw, err := conn.RawDB(); err == nil {
			raw.SetMaxOpenConns(c.Postgres.MaxOpen)
			raw.SetMaxIdleConns(c.Postgres.MaxIdle)
		}
		svc.DBConn = conn
	}
	if c.Redis.Host != "" {
		rds, err := redis.NewRedis(c.Redis)
		if err != nil {
			return nil, fmt.Errorf("svc: redis: %w", err)
		}
		svc.Redis = rds
		svc.Cache = gocache.NewNode(rds, syncx.NewSingleFlight(), gocache.NewStat("stonks"), ErrNotFound)
	}

	var err error
	if svc.Store, err = svc.buildStore(ctx); err != nil {
		return nil, err
	}
	if svc.Ledger, err = svc.buildLedger(ctx); err != nil {
		return nil, err
	}
	if err := svc.buildTrend(); err != nil {
		return nil, err
	}

	svc.Events = marketpkg.NewBoard()
	svc.Engine = marketpkg.NewEngine(svc.MarketConfig.Params(), marketpkg.WithEvents(svc.Events))
	svc.Leaderboard = portfolio.NewLeaderboard(svc.Ledger, svc.Store, portfolio.NewValuator(c.Portfolio.StartingBalance))

	seeded, err := marketpkg.Seed(ctx, svc.Store, svc.MarketConfig, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if seeded > 0 {
		logx.Infof("svc: seeded %d instruments from catalog", seeded)
	}

	svc.Scheduler = scheduler.New(svc.Store, svc.Engine, svc.Trend,
		scheduler.WithInterval(c.Scheduler.Interval),
		scheduler.WithWorkers(c.Scheduler.Workers),
		scheduler.WithObservers(svc.observers()...),
	)
	return svc, nil
}

func (s *ServiceContext) buildStore(ctx context.Context) (marketpkg.Store, error) {
	switch s.Config.Storage.Market {
	case config.BackendFile:
		return marketpkg.NewFileStore(s.Config.DataFile("market.json")), nil
	case config.BackendPostgres:
		store := marketpersist.NewPostgresStore(s.DBConn)
		if store == nil {
			return nil, errors.New("svc: postgres market store requires postgres.dsn")
		}
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendRedis:
		store := marketpersist.NewRedisStore(s.Redis)
		if store == nil {
			return nil, errors.New("svc: redis market store requires redis.host")
		}
		return store, nil
	case "", config.BackendMemory:
		return marketpkg.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("svc: unknown market storage %q", s.Config.Storage.Market)
	}
}

func (s *ServiceContext) buildLedger(ctx context.Context) (portfolio.Ledger, error) {
	switch s.Config.Storage.Ledger {
	case config.BackendFile:
		return portfolio.NewFileLedger(s.Config.DataFile("ledger.json")), nil
	case config.BackendPostgres:
		ledger, err := repo.NewLedger(repo.Dependencies{DBConn: s.DBConn})
		if err != nil {
			return nil, err
		}
		if err := ledger.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return ledger, nil
	case "", config.BackendMemory:
		return portfolio.NewMemoryLedger(), nil
	default:
		return nil, fmt.Errorf("svc: unknown ledger storage %q", s.Config.Storage.Ledger)
	}
}

func (s *ServiceContext) buildTrend() error {
	sources, err := s.TrendConfig.BuildSources()
	if err != nil {
		return fmt.Errorf("svc: build trend sources: %w", err)
	}
	cache, err := trendpkg.NewCache(s.TrendConfig.CacheTTL)
	if err != nil {
		return fmt.Errorf("svc: trend cache: %w", err)
	}
	agg, err := trendpkg.NewAggregator(sources, cache,
		trendpkg.WithWeights(s.TrendConfig.Weights),
		trendpkg.WithTerms(s.MarketConfig.TermsFor),
	)
	if err != nil {
		return fmt.Errorf("svc: trend aggregator: %w", err)
	}
	s.TrendCache, s.Trend = cache, agg
	logx.Infof("svc: trend sources configured=%d of %d", len(sources), len(trendpkg.Kinds()))
	return nil
}

func (s *ServiceContext) observers() []scheduler.Observer {
	var obs []scheduler.Observer
	if pc := marketpersist.NewPriceCache(s.Cache, s.TTL); pc != nil {
		s.PriceCache = pc
		obs = append(obs, pc)
	}
	if dir := s.Config.Journal.Dir; dir != "" {
		s.Journal = journal.NewWriter(confkit.ResolvePath(s.Config.BaseDir(), dir))
		obs = append(obs, s.Journal)
	}
	if len(s.Config.Kafka.Brokers) > 0 {
		s.Publisher = publisher.NewProducer(s.Config.Kafka.Brokers, s.Config.Kafka.Topic)
		obs = append(obs, s.Publisher)
	}
	return obs
}

// Close releases connections held by optional infrastructure.
func (s *ServiceContext) Close() {
	if s.Publisher != nil {
		if err := s.Publisher.Close(); err != nil {
			logx.Errorf("svc: close kafka producer: %v", err)
		}
	}
}
