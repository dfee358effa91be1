package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"stonks-api/internal/logic"
	"stonks-api/internal/svc"
	"stonks-api/internal/types"
)

func GetLeaderboardHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.LeaderboardRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, badRequest(err))
			return
		}

		l := logic.NewLeaderboardLogic(r.Context(), svcCtx)
		resp, err := l.GetLeaderboard(&req)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
