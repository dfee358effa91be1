package sources

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"stonks-api/pkg/trend"
)

const (
	defaultSearchTrendURL    = "https://trends.example.com/api"
	defaultSearchTrendWindow = "7d"
	searchLevelWeight        = 0.7
	searchMomentumWeight     = 0.3
)

func init() {
	trend.RegisterSource(trend.KindSearchTrend, func(_ string, cfg *trend.SourceConfig) (trend.Source, error) {
		return NewSearchTrend(cfg), nil
	})
}

// SearchTrend scores search interest over time (values 0-100 per point).
type SearchTrend struct {
	c *client
}

// NewSearchTrend builds the search interest adapter. The api key is optional.
func NewSearchTrend(cfg *trend.SourceConfig, opts ...Option) *SearchTrend {
	return &SearchTrend{c: newClient(trend.KindSearchTrend, cfg, clientDefaults{
		baseURL: defaultSearchTrendURL,
		window:  defaultSearchTrendWindow,
	}, opts...)}
}

// Kind implements trend.Source.
func (s *SearchTrend) Kind() trend.Kind { return trend.KindSearchTrend }

type interestResponse struct {
	Default *struct {
		TimelineData []struct {
			Time  string    `json:"time"`
			Value []float64 `json:"value"`
		} `json:"timelineData"`
	} `json:"default"`
}

// Score blends the average interest level with its latest momentum.
func (s *SearchTrend) Score(ctx context.Context, q trend.Query) (float64, error) {
	query := url.Values{}
	query.Set("keyword", strings.Join(q.Terms, ","))
	query.Set("window", s.c.window)
	if s.c.apiKey != "" {
		query.Set("key", s.c.apiKey)
	}

	var resp interestResponse
	if err := s.c.do(ctx, http.MethodGet, s.c.endpoint("/interest", query), nil, nil, &resp); err != nil {
		return 0, err
	}
	if resp.Default == nil {
		return 0, malformed(s.Kind(), "missing default block")
	}

	points := make([]float64, 0, len(resp.Default.TimelineData))
	for _, p := range resp.Default.TimelineData {
		if len(p.Value) == 0 {
			continue
		}
		sum := 0.0
		for _, v := range p.Value {
			sum += v
		}
		points = append(points, sum/float64(len(p.Value)))
	}
	if len(points) == 0 {
		return 0, malformed(s.Kind(), "empty timeline")
	}
	return toScore(interestSignal(points)), nil
}

func interestSignal(points []float64) float64 {
	sum := 0.0
	for _, p := range points {
		sum += p
	}
	avg := sum / float64(len(points))
	last := points[len(points)-1]
	level := (avg - 50) / 50
	momentum := (last - avg) / 50
	return unit(searchLevelWeight*level + searchMomentumWeight*momentum)
}
