package sources

import (
	"context"
	"net/http"
	"net/url"

	"stonks-api/pkg/trend"
)

const defaultMicroBlogURL = "https://api.x.com"

var microBlogScale = activityScale{pivot: 1_000, saturation: 1_000_000}

func init() {
	trend.RegisterSource(trend.KindMicroBlog, func(_ string, cfg *trend.SourceConfig) (trend.Source, error) {
		return NewMicroBlog(cfg), nil
	})
}

// MicroBlog scores recent post volume mentioning the terms.
type MicroBlog struct {
	c *client
}

// NewMicroBlog builds the post-count adapter. A bearer token is required.
func NewMicroBlog(cfg *trend.SourceConfig, opts ...Option) *MicroBlog {
	return &MicroBlog{c: newClient(trend.KindMicroBlog, cfg, clientDefaults{baseURL: defaultMicroBlogURL}, opts...)}
}

// Kind implements trend.Source.
func (m *MicroBlog) Kind() trend.Kind { return trend.KindMicroBlog }

type countsResponse struct {
	Meta *struct {
		TotalTweetCount *float64 `json:"total_tweet_count"`
	} `json:"meta"`
}

// Score maps the recent post count onto a log scale.
func (m *MicroBlog) Score(ctx context.Context, q trend.Query) (float64, error) {
	if err := m.c.requireToken(); err != nil {
		return 0, err
	}
	query := url.Values{}
	query.Set("query", orQuery(q.Terms))
	query.Set("granularity", "day")

	var resp countsResponse
	if err := m.c.do(ctx, http.MethodGet, m.c.endpoint("/2/tweets/counts/recent", query), nil, m.c.bearer(), &resp); err != nil {
		return 0, err
	}
	if resp.Meta == nil || resp.Meta.TotalTweetCount == nil {
		return 0, malformed(m.Kind(), "missing meta.total_tweet_count")
	}
	return toScore(microBlogScale.signal(*resp.Meta.TotalTweetCount)), nil
}
