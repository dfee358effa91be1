package svc

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	cachekeys "stonks-api/internal/cache"
	marketpkg "stonks-api/pkg/market"
	"stonks-api/pkg/portfolio"
)

// RankUsers builds the leaderboard, served from the shared cache for
// LeaderboardTTL when one is configured. Cache failures fall back to a fresh build.
func (s *ServiceContext) RankUsers(ctx context.Context, limit int, includeHoldings bool) ([]portfolio.Entry, error) {
	limit = portfolio.ClampLimit(limit)
	ttl := cachekeys.LeaderboardTTL(s.TTL)
	if s.Cache == nil || ttl <= 0 {
		return s.Leaderboard.Build(ctx, limit, includeHoldings)
	}

	key := cachekeys.LeaderboardCacheKey(limit, includeHoldings)
	var cached []portfolio.Entry
	err := s.Cache.GetCtx(ctx, key, &cached)
	switch {
	case err == nil:
		return cached, nil
	case !s.Cache.IsNotFound(err):
		logx.WithContext(ctx).Errorf("svc: leaderboard cache get %s: %v", key, err)
	}

	entries, err := s.Leaderboard.Build(ctx, limit, includeHoldings)
	if err != nil {
		return nil, err
	}
	if err := s.Cache.SetWithExpireCtx(ctx, key, entries, ttl); err != nil {
		logx.WithContext(ctx).Errorf("svc: leaderboard cache set %s: %v", key, err)
	}
	return entries, nil
}

// Universe lists the symbols currently held by the store.
func (s *ServiceContext) Universe(ctx context.Context) ([]string, error) {
	instruments, err := s.Store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return marketpkg.Symbols(instruments), nil
}
