package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"stonks-api/internal/logic"
	"stonks-api/internal/svc"
)

func AdvanceMarketHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := logic.NewAdvanceMarketLogic(r.Context(), svcCtx)
		resp, err := l.AdvanceMarket()
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
