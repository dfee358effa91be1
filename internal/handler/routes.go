// Code scaffolded by goctl. Safe to edit.
// goctl 1.9.2

package handler

import (
	"net/http"

	"stonks-api/internal/svc"

	"github.com/zeromicro/go-zero/rest"
)

func RegisterHandlers(server *rest.Server, serverCtx *svc.ServiceContext) {
	SetErrorHandler()

	server.AddRoutes(
		[]rest.Route{
			{
				Method:  http.MethodGet,
				Path:    "/trend/:symbol",
				Handler: GetTrendHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/market",
				Handler: GetMarketHandler(serverCtx),
			},
			{
				Method:  http.MethodPost,
				Path:    "/market/advance",
				Handler: AdvanceMarketHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/market/movers",
				Handler: GetMoversHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/market/prices",
				Handler: GetPricesHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/market/zones",
				Handler: GetZonesHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/leaderboard",
				Handler: GetLeaderboardHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/users/:id/transactions",
				Handler: GetHistoryHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/events",
				Handler: ListEventsHandler(serverCtx),
			},
			{
				Method:  http.MethodPost,
				Path:    "/events",
				Handler: TriggerEventHandler(serverCtx),
			},
			{
				Method:  http.MethodDelete,
				Path:    "/events/:id",
				Handler: CancelEventHandler(serverCtx),
			},
		},
		rest.WithPrefix("/api"),
	)
}
