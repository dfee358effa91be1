package sources

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"stonks-api/pkg/trend"
)

const (
	defaultShortVideoURL         = "https://open.tiktokapis.com"
	defaultShortVideoMaxResults  = 20
	defaultShortVideoMinInterval = 2000 * time.Millisecond
	shortVideoLookback           = 7 * 24 * time.Hour
	shortVideoReachWeight        = 0.7
	shortVideoEngagementWeight   = 0.3
	// engagement rate at which the engagement signal is neutral.
	shortVideoPivotRate = 0.05
)

var shortVideoScale = activityScale{pivot: 10_000, saturation: 100_000_000}

func init() {
	trend.RegisterSource(trend.KindShortVideo, func(_ string, cfg *trend.SourceConfig) (trend.Source, error) {
		return NewShortVideo(cfg), nil
	})
}

// ShortVideo scores short-form clips by reach and engagement rate. Calls are
// spaced at least two seconds apart unless configured otherwise.
type ShortVideo struct {
	c *client
}

// NewShortVideo builds the short-form video adapter. A bearer token is required.
func NewShortVideo(cfg *trend.SourceConfig, opts ...Option) *ShortVideo {
	return &ShortVideo{c: newClient(trend.KindShortVideo, cfg, clientDefaults{
		baseURL:     defaultShortVideoURL,
		minInterval: defaultShortVideoMinInterval,
		maxResults:  defaultShortVideoMaxResults,
	}, opts...)}
}

// Kind implements trend.Source.
func (s *ShortVideo) Kind() trend.Kind { return trend.KindShortVideo }

type clipQuery struct {
	Query     clipFilter `json:"query"`
	MaxCount  int        `json:"max_count"`
	StartDate string     `json:"start_date"`
	EndDate   string     `json:"end_date"`
}

type clipFilter struct {
	And []clipCondition `json:"and"`
}

type clipCondition struct {
	Operation   string   `json:"operation"`
	FieldName   string   `json:"field_name"`
	FieldValues []string `json:"field_values"`
}

type clipResponse struct {
	Data *struct {
		Videos []struct {
			ViewCount    float64 `json:"view_count"`
			LikeCount    float64 `json:"like_count"`
			ShareCount   float64 `json:"share_count"`
			CommentCount float64 `json:"comment_count"`
		} `json:"videos"`
	} `json:"data"`
}

// Score blends total plays (70%) with the engagement rate (30%).
func (s *ShortVideo) Score(ctx context.Context, q trend.Query) (float64, error) {
	if err := s.c.requireToken(); err != nil {
		return 0, err
	}
	now := s.c.now().UTC()
	body := clipQuery{
		Query: clipFilter{And: []clipCondition{{
			Operation:   "IN",
			FieldName:   "keyword",
			FieldValues: q.Terms,
		}}},
		MaxCount:  s.c.maxResults,
		StartDate: now.Add(-shortVideoLookback).Format("20060102"),
		EndDate:   now.Format("20060102"),
	}
	query := url.Values{}
	query.Set("fields", "view_count,like_count,share_count,comment_count")

	var resp clipResponse
	if err := s.c.do(ctx, http.MethodPost, s.c.endpoint("/v2/research/video/query/", query), body, s.c.bearer(), &resp); err != nil {
		return 0, err
	}
	if resp.Data == nil {
		return 0, malformed(s.Kind(), "missing data block")
	}

	views, interactions := 0.0, 0.0
	for _, clip := range resp.Data.Videos {
		views += max(clip.ViewCount, 0)
		interactions += max(clip.LikeCount, 0) + max(clip.ShareCount, 0) + max(clip.CommentCount, 0)
	}
	engagement := -1.0
	if views > 0 {
		engagement = unit(interactions/views/shortVideoPivotRate - 1)
	}
	signal := shortVideoReachWeight*shortVideoScale.signal(views) + shortVideoEngagementWeight*engagement
	return toScore(signal), nil
}
