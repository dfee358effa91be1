package logic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"stonks-api/internal/svc"
	"stonks-api/internal/types"
	"stonks-api/pkg/market"
)

type EventsLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewEventsLogic(ctx context.Context, svcCtx *svc.ServiceContext) *EventsLogic {
	return &EventsLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *EventsLogic) TriggerEvent(req *types.TriggerEventRequest) (resp *types.EventView, err error) {
	if req.DurationMs < 0 {
		return nil, fmt.Errorf("%w: durationMs cannot be negative", ErrBadRequest)
	}
	universe, err := l.svcCtx.Universe(l.ctx)
	if err != nil {
		return nil, err
	}
	duration := market.MaxEventDuration
	if req.DurationMs < market.MaxEventDuration.Milliseconds() {
		duration = time.Duration(req.DurationMs) * time.Millisecond
	}
	triggered, err := l.svcCtx.Events.Trigger(strings.TrimSpace(req.Type), duration, universe)
	if err != nil {
		return nil, err
	}
	l.Infof("event %s triggered: %s affects %v until %s",
		triggered.ID, triggered.EventName, triggered.AffectedInstruments, triggered.EndsAt.Format(time.RFC3339))
	view := eventView(triggered)
	return &view, nil
}

func (l *EventsLogic) ListEvents() (resp *types.EventsResponse, err error) {
	active := l.svcCtx.Events.Active()
	catalog := market.EventCatalog()
	resp = &types.EventsResponse{
		Active:  make([]types.EventView, 0, len(active)),
		Catalog: make([]types.EventSpec, 0, len(catalog)),
	}
	for _, t := range active {
		resp.Active = append(resp.Active, eventView(t))
	}
	for _, spec := range catalog {
		resp.Catalog = append(resp.Catalog, types.EventSpec{
			Name:       spec.Name,
			Volatility: spec.Volatility,
			Drift:      spec.Drift,
			DurationMs: spec.Duration.Milliseconds(),
			Share:      spec.Share,
		})
	}
	return resp, nil
}

func (l *EventsLogic) CancelEvent(req *types.CancelEventRequest) (resp *types.CancelEventResponse, err error) {
	if !l.svcCtx.Events.Cancel(req.ID) {
		return nil, fmt.Errorf("%w: event %q", ErrNotFound, req.ID)
	}
	l.Infof("event %s cancelled", req.ID)
	return &types.CancelEventResponse{ID: req.ID, Cancelled: true}, nil
}
