package sources

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"stonks-api/pkg/trend"
)

const (
	defaultForumURL        = "https://www.reddit.com"
	defaultForumMaxResults = 25
	forumEngagementWeight  = 0.6
	forumSentimentWeight   = 0.4
)

var forumScale = activityScale{pivot: 100, saturation: 100_000}

func init() {
	trend.RegisterSource(trend.KindForum, func(_ string, cfg *trend.SourceConfig) (trend.Source, error) {
		return NewForum(cfg), nil
	})
}

// Forum scores engagement and approval of recent discussion threads.
type Forum struct {
	c *client
}

// NewForum builds the forum search adapter. No credentials are needed but a
// descriptive user agent should be configured.
func NewForum(cfg *trend.SourceConfig, opts ...Option) *Forum {
	return &Forum{c: newClient(trend.KindForum, cfg, clientDefaults{
		baseURL:    defaultForumURL,
		maxResults: defaultForumMaxResults,
	}, opts...)}
}

// Kind implements trend.Source.
func (f *Forum) Kind() trend.Kind { return trend.KindForum }

type listingResponse struct {
	Data *struct {
		Children []struct {
			Data struct {
				Score       float64  `json:"score"`
				NumComments float64  `json:"num_comments"`
				UpvoteRatio *float64 `json:"upvote_ratio"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Score combines engagement volume (60%) with the mean upvote ratio (40%).
func (f *Forum) Score(ctx context.Context, q trend.Query) (float64, error) {
	query := url.Values{}
	query.Set("q", orQuery(q.Terms))
	query.Set("sort", "new")
	query.Set("t", "day")
	query.Set("limit", strconv.Itoa(f.c.maxResults))

	var resp listingResponse
	if err := f.c.do(ctx, http.MethodGet, f.c.endpoint("/search.json", query), nil, nil, &resp); err != nil {
		return 0, err
	}
	if resp.Data == nil {
		return 0, malformed(f.Kind(), "missing data block")
	}

	engagement := 0.0
	ratioSum, ratioCount := 0.0, 0
	for _, child := range resp.Data.Children {
		post := child.Data
		engagement += max(post.Score, 0) + 2*max(post.NumComments, 0)
		if post.UpvoteRatio != nil {
			ratioSum += *post.UpvoteRatio
			ratioCount++
		}
	}
	sentiment := 0.0
	if ratioCount > 0 {
		sentiment = unit((ratioSum/float64(ratioCount) - 0.5) * 2)
	}
	signal := forumEngagementWeight*forumScale.signal(engagement) + forumSentimentWeight*sentiment
	return toScore(signal), nil
}
