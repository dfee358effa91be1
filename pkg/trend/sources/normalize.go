package sources

import (
	"math"
	"strings"

	"stonks-api/pkg/trend"
)

// activityScale maps a raw activity count onto [-1, 1] on a log scale. The
// pivot count maps to 0, zero activity to -1 and saturation or above to +1.
type activityScale struct {
	pivot      float64
	saturation float64
}

func (s activityScale) signal(n float64) float64 {
	if math.IsNaN(n) || n <= 0 {
		return -1
	}
	lp := math.Log10(1 + s.pivot)
	ln := math.Log10(1 + n)
	if ln < lp {
		if lp == 0 {
			return 0
		}
		return unit((ln - lp) / lp)
	}
	span := math.Log10(1+s.saturation) - lp
	if span <= 0 {
		return 1
	}
	return unit((ln - lp) / span)
}

// unit clamps v to [-1, 1].
func unit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-1, math.Min(1, v))
}

// toScore scales a [-1, 1] signal to the source contribution band.
func toScore(signal float64) float64 {
	return trend.Clamp(unit(signal) * trend.MaxScore)
}

func orQuery(terms []string) string {
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if strings.ContainsRune(t, ' ') {
			t = `"` + t + `"`
		}
		quoted = append(quoted, t)
	}
	return strings.Join(quoted, " OR ")
}
