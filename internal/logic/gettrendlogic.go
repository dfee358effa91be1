package logic

import (
	"context"
	"fmt"

	"github.com/zeromicro/go-zero/core/logx"

	"stonks-api/internal/svc"
	"stonks-api/internal/types"
	"stonks-api/pkg/market"
)

type GetTrendLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewGetTrendLogic(ctx context.Context, svcCtx *svc.ServiceContext) *GetTrendLogic {
	return &GetTrendLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *GetTrendLogic) GetTrend(req *types.TrendRequest) (resp *types.TrendResponse, err error) {
	symbol := market.NormalizeSymbol(req.Symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", ErrBadRequest)
	}
	score := l.svcCtx.Trend.Breakdown(l.ctx, symbol)
	resp = &types.TrendResponse{
		Symbol:    score.Symbol,
		Value:     score.Value,
		Timestamp: unixMilli(score.Timestamp),
		Outcomes:  make([]types.SourceOutcome, 0, len(score.Outcomes)),
	}
	for _, o := range score.Outcomes {
		resp.Outcomes = append(resp.Outcomes, outcomeView(o))
	}
	return resp, nil
}
