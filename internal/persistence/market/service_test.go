package marketpersist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gocache "github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/redis/redistest"
	"github.com/zeromicro/go-zero/core/syncx"

	cachekeys "stonks-api/internal/cache"
	"stonks-api/pkg/market"
	"stonks-api/pkg/resistance"
	"stonks-api/pkg/scheduler"
)

func newTestCache(t *testing.T) gocache.Cache {
	t.Helper()
	rds := redistest.CreateRedis(t)
	return gocache.NewNode(rds, syncx.NewSingleFlight(), gocache.NewStat("marketpersist-test"), errors.New("not found"))
}

func TestPriceCacheOnTick(t *testing.T) {
	ctx := context.Background()
	pc := NewPriceCache(newTestCache(t), cachekeys.TTLSet{Short: time.Minute, Medium: time.Minute, Long: time.Minute})
	at := time.Date(2024, 2, 2, 12, 0, 0, 0, time.UTC)

	first := scheduler.Report{
		Updates:     []market.Update{{Symbol: "GME", OldPrice: 20, NewPrice: 22, ChangePct: 10, Zone: resistance.ZoneLow, At: at}},
		Instruments: []market.Instrument{{Symbol: "GME", Price: 22, Ceiling: 100}},
	}
	require.NoError(t, pc.OnTick(ctx, first))

	second := scheduler.Report{
		Updates:     []market.Update{{Symbol: "AMC", OldPrice: 5, NewPrice: 4, ChangePct: -20, Zone: resistance.ZoneMedium, At: at}},
		Instruments: []market.Instrument{{Symbol: "AMC", Price: 4, Ceiling: 6}},
	}
	require.NoError(t, pc.OnTick(ctx, second))

	q, ok, err := pc.Latest(ctx, "gme")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 22.0, q.Price)
	assert.Equal(t, "low", q.Zone)
	assert.Equal(t, at.UnixMilli(), q.TimestampMS)

	prices, err := pc.Prices(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"GME": 22, "AMC": 4}, prices, "bundle merges across ticks")

	_, ok, err = pc.Latest(ctx, "NOPE")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPriceCacheEmptyTick(t *testing.T) {
	pc := NewPriceCache(newTestCache(t), cachekeys.TTLSet{Short: time.Minute, Medium: time.Minute})
	require.NoError(t, pc.OnTick(context.Background(), scheduler.Report{}))
	prices, err := pc.Prices(context.Background())
	require.NoError(t, err)
	assert.Empty(t, prices)
}
