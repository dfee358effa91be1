package trend

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter delays callers so that consecutive requests are spaced out.
type Limiter interface {
	Wait(ctx context.Context) error
}

// NewSpacingLimiter allows one request per interval with no burst. Callers
// queue behind each other instead of being rejected. A non-positive interval
// yields a limiter that never waits.
func NewSpacingLimiter(interval time.Duration) Limiter {
	if interval <= 0 {
		return noopLimiter{}
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

type noopLimiter struct{}

func (noopLimiter) Wait(ctx context.Context) error { return ctx.Err() }
