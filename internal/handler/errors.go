package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/rest/httpx"

	"stonks-api/internal/logic"
	"stonks-api/internal/types"
	"stonks-api/pkg/market"
	"stonks-api/pkg/portfolio"
)

var errorHandlerOnce sync.Once

// SetErrorHandler installs the status mapping used by httpx.ErrorCtx.
func SetErrorHandler() {
	errorHandlerOnce.Do(func() {
		httpx.SetErrorHandlerCtx(errorResponse)
	})
}

func errorResponse(ctx context.Context, err error) (int, any) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		logx.WithContext(ctx).Errorf("request failed: %v", err)
	}
	return code, types.ErrorResponse{Error: err.Error()}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, logic.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, logic.ErrBadRequest),
		errors.Is(err, market.ErrUnknownEvent),
		errors.Is(err, market.ErrInvalidInput),
		errors.Is(err, portfolio.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(err error) error {
	return fmt.Errorf("%w: %v", logic.ErrBadRequest, err)
}
