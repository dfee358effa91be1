package logic

import (
	"context"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"stonks-api/internal/svc"
	"stonks-api/internal/types"
	"stonks-api/pkg/market"
	"stonks-api/pkg/resistance"
)

const maxMovers = 50

type GetMarketLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewGetMarketLogic(ctx context.Context, svcCtx *svc.ServiceContext) *GetMarketLogic {
	return &GetMarketLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *GetMarketLogic) GetMarket() (resp *types.MarketResponse, err error) {
	instruments, err := l.svcCtx.Store.Load(l.ctx)
	if err != nil {
		return nil, err
	}
	sched := l.svcCtx.Scheduler
	return &types.MarketResponse{
		Instruments:    instrumentViews(instruments, l.svcCtx.Events, time.Now()),
		SchedulerState: sched.State().String(),
		Ticks:          sched.Ticks(),
		IntervalMs:     sched.Interval().Milliseconds(),
	}, nil
}

func (l *GetMarketLogic) GetZones() (resp *types.ZonesResponse, err error) {
	zones := resistance.Zones()
	resp = &types.ZonesResponse{Zones: make([]types.ZoneView, 0, len(zones))}
	for _, z := range zones {
		resp.Zones = append(resp.Zones, types.ZoneView{
			Name:                 string(z.Name),
			MinRatio:             z.MinRatio,
			VolatilityMultiplier: z.VolatilityMultiplier,
			UpwardBias:           z.UpwardBias,
		})
	}
	return resp, nil
}

func (l *GetMarketLogic) GetMovers(req *types.MoversRequest) (resp *types.MoversResponse, err error) {
	n := req.N
	if n <= 0 {
		n = 5
	}
	if n > maxMovers {
		n = maxMovers
	}
	instruments, err := l.svcCtx.Store.Load(l.ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	gainers, losers := market.Movers(instruments, n)
	return &types.MoversResponse{
		Gainers: instrumentViews(gainers, l.svcCtx.Events, now),
		Losers:  instrumentViews(losers, l.svcCtx.Events, now),
	}, nil
}

// GetPrices serves the cached price bundle when one exists, else reads the store.
func (l *GetMarketLogic) GetPrices() (resp *types.PricesResponse, err error) {
	if pc := l.svcCtx.PriceCache; pc != nil {
		prices, err := pc.Prices(l.ctx)
		if err != nil {
			l.Errorf("price cache read failed, using store: %v", err)
		} else if len(prices) > 0 {
			return &types.PricesResponse{Prices: prices, Source: "cache"}, nil
		}
	}
	instruments, err := l.svcCtx.Store.Load(l.ctx)
	if err != nil {
		return nil, err
	}
	return &types.PricesResponse{Prices: market.Prices(instruments), Source: "store"}, nil
}
