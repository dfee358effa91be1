package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"stonks-api/internal/logic"
	"stonks-api/internal/svc"
	"stonks-api/internal/types"
)

func CancelEventHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.CancelEventRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, badRequest(err))
			return
		}

		l := logic.NewEventsLogic(r.Context(), svcCtx)
		resp, err := l.CancelEvent(&req)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
