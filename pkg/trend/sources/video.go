package sources

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stonks-api/pkg/trend"
)

const (
	defaultVideoURL        = "https://www.googleapis.com/youtube/v3"
	defaultVideoMaxResults = 10
	videoLookback          = 7 * 24 * time.Hour
)

var videoScale = activityScale{pivot: 10_000, saturation: 100_000_000}

func init() {
	trend.RegisterSource(trend.KindVideo, func(_ string, cfg *trend.SourceConfig) (trend.Source, error) {
		return NewVideo(cfg), nil
	})
}

// Video scores recent long-form uploads by their view and engagement totals.
type Video struct {
	c *client
}

// NewVideo builds the video adapter. An api key is required.
func NewVideo(cfg *trend.SourceConfig, opts ...Option) *Video {
	return &Video{c: newClient(trend.KindVideo, cfg, clientDefaults{
		baseURL:    defaultVideoURL,
		maxResults: defaultVideoMaxResults,
	}, opts...)}
}

// Kind implements trend.Source.
func (v *Video) Kind() trend.Kind { return trend.KindVideo }

type videoSearchResponse struct {
	Items *[]struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
}

type videoStatsResponse struct {
	Items *[]struct {
		Statistics struct {
			ViewCount    string `json:"viewCount"`
			LikeCount    string `json:"likeCount"`
			CommentCount string `json:"commentCount"`
		} `json:"statistics"`
	} `json:"items"`
}

// Score finds recent videos for the terms, then weighs views + 2×likes +
// 3×comments on a log scale.
func (v *Video) Score(ctx context.Context, q trend.Query) (float64, error) {
	if err := v.c.requireAPIKey(); err != nil {
		return 0, err
	}
	ids, err := v.search(ctx, q.Terms)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return toScore(videoScale.signal(0)), nil
	}

	query := url.Values{}
	query.Set("part", "statistics")
	query.Set("id", strings.Join(ids, ","))
	query.Set("key", v.c.apiKey)
	var stats videoStatsResponse
	if err := v.c.do(ctx, http.MethodGet, v.c.endpoint("/videos", query), nil, nil, &stats); err != nil {
		return 0, err
	}
	if stats.Items == nil {
		return 0, malformed(v.Kind(), "missing statistics items")
	}

	activity := 0.0
	for _, item := range *stats.Items {
		views, err := parseCount(item.Statistics.ViewCount)
		if err != nil {
			return 0, malformed(v.Kind(), "viewCount %q", item.Statistics.ViewCount)
		}
		likes, err := parseCount(item.Statistics.LikeCount)
		if err != nil {
			return 0, malformed(v.Kind(), "likeCount %q", item.Statistics.LikeCount)
		}
		comments, err := parseCount(item.Statistics.CommentCount)
		if err != nil {
			return 0, malformed(v.Kind(), "commentCount %q", item.Statistics.CommentCount)
		}
		activity += views + 2*likes + 3*comments
	}
	return toScore(videoScale.signal(activity)), nil
}

func (v *Video) search(ctx context.Context, terms []string) ([]string, error) {
	query := url.Values{}
	query.Set("part", "id")
	query.Set("type", "video")
	query.Set("order", "date")
	query.Set("q", orQuery(terms))
	query.Set("maxResults", strconv.Itoa(v.c.maxResults))
	query.Set("publishedAfter", v.c.now().Add(-videoLookback).UTC().Format(time.RFC3339))
	query.Set("key", v.c.apiKey)

	var resp videoSearchResponse
	if err := v.c.do(ctx, http.MethodGet, v.c.endpoint("/search", query), nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Items == nil {
		return nil, malformed(v.Kind(), "missing search items")
	}
	ids := make([]string, 0, len(*resp.Items))
	for _, item := range *resp.Items {
		if id := strings.TrimSpace(item.ID.VideoID); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// parseCount reads a decimal counter that the provider sends as a string.
// Absent counters (hidden likes) count as zero.
func parseCount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return float64(n), nil
}
