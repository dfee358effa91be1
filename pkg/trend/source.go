// Package trend aggregates social-sentiment signals from several external
// sources into one bounded score per instrument.
package trend

import (
	"context"
	"errors"
	"math"
	"time"
)

// MaxScore bounds both the aggregate score and every per-source contribution
// before weighting.
const MaxScore = 0.08

var (
	// ErrMissingCredentials is returned by a source that cannot run without a key or token.
	ErrMissingCredentials = errors.New("trend: missing credentials")
	// ErrMalformedResponse marks an external payload with an unexpected shape.
	ErrMalformedResponse = errors.New("trend: malformed response")
)

// Kind names a signal source.
type Kind string

const (
	KindSearchTrend Kind = "search_trend"
	KindMicroBlog   Kind = "micro_blog"
	KindForum       Kind = "forum"
	KindVideo       Kind = "video"
	KindShortVideo  Kind = "short_video"
)

// Kinds lists every source kind in weighting order.
func Kinds() []Kind {
	return []Kind{KindSearchTrend, KindMicroBlog, KindForum, KindVideo, KindShortVideo}
}

// DefaultWeights sum to 1.0.
func DefaultWeights() map[Kind]float64 {
	return map[Kind]float64{
		KindSearchTrend: 0.30,
		KindMicroBlog:   0.25,
		KindForum:       0.20,
		KindVideo:       0.15,
		KindShortVideo:  0.10,
	}
}

// Query describes what a source should look up.
type Query struct {
	Symbol string
	Terms  []string
}

// Source produces a bounded contribution score for the query terms.
// Implementations must return a value within [-MaxScore, MaxScore].
type Source interface {
	Kind() Kind
	Score(ctx context.Context, q Query) (float64, error)
}

// Score is the aggregated, cached trend value of one symbol.
type Score struct {
	Symbol    string    `json:"symbol"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	Outcomes  []Outcome `json:"outcomes,omitempty"`
}

// Outcome records what one source contributed to a Score.
type Outcome struct {
	Kind     Kind          `json:"kind"`
	Value    float64       `json:"value"`  // unweighted contribution
	Weight   float64       `json:"weight"` // share of the total band
	Fallback bool          `json:"fallback"`
	Reason   string        `json:"reason,omitempty"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Weighted returns Value × Weight.
func (o Outcome) Weighted() float64 {
	return o.Value * o.Weight
}

// Clamp bounds v to [-MaxScore, MaxScore]; NaN maps to 0.
func Clamp(v float64) float64 {
	return clampTo(v, MaxScore)
}

func clampTo(v, bound float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-bound, math.Min(bound, v))
}
