package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"stonks-api/internal/svc"
	"stonks-api/internal/types"
)

type AdvanceMarketLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewAdvanceMarketLogic(ctx context.Context, svcCtx *svc.ServiceContext) *AdvanceMarketLogic {
	return &AdvanceMarketLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// AdvanceMarket runs one tick now. It waits for a scheduled tick in flight.
func (l *AdvanceMarketLogic) AdvanceMarket() (resp *types.AdvanceResponse, err error) {
	report, err := l.svcCtx.Scheduler.Tick(l.ctx)
	if err != nil {
		return nil, err
	}
	resp = &types.AdvanceResponse{
		StartedMs:  unixMilli(report.Started),
		DurationMs: report.Finished.Sub(report.Started).Milliseconds(),
		Persisted:  report.Persisted,
		Updates:    make([]types.PriceUpdate, 0, len(report.Updates)),
		Failures:   report.Failures,
	}
	for _, u := range report.Updates {
		resp.Updates = append(resp.Updates, updateView(u))
	}
	l.Infof("manual tick: %d updated, %d failed", len(report.Updates), len(report.Failures))
	return resp, nil
}
