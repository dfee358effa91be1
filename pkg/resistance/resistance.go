// Package resistance maps an instrument's price relative to its ceiling onto
// a resistance zone that dampens volatility and biases drift downward.
package resistance

import "math"

// ZoneName identifies a resistance band.
type ZoneName string

const (
	ZoneLow     ZoneName = "low"
	ZoneMedium  ZoneName = "medium"
	ZoneHigh    ZoneName = "high"
	ZoneExtreme ZoneName = "extreme"
)

// Zone carries the price-shaping parameters of a band.
type Zone struct {
	Name                 ZoneName `json:"name"`
	MinRatio             float64  `json:"min_ratio"`             // inclusive lower bound of price/ceiling
	VolatilityMultiplier float64  `json:"volatility_multiplier"` // applied to base volatility
	UpwardBias           float64  `json:"upward_bias"`           // percent, added to drift as bias/100
}

// Ordered from the lowest ratio upwards. Multipliers decrease and bias gets
// more negative with every step.
var zones = [...]Zone{
	{Name: ZoneLow, MinRatio: 0, VolatilityMultiplier: 1.00, UpwardBias: 0.0},
	{Name: ZoneMedium, MinRatio: 0.60, VolatilityMultiplier: 0.80, UpwardBias: -0.5},
	{Name: ZoneHigh, MinRatio: 0.80, VolatilityMultiplier: 0.50, UpwardBias: -1.5},
	{Name: ZoneExtreme, MinRatio: 0.95, VolatilityMultiplier: 0.20, UpwardBias: -3.0},
}

// Classify returns the zone for price/ceiling. Non-positive or non-finite
// inputs are treated as a zero ratio.
func Classify(price, ceiling float64) Zone {
	return ForRatio(Ratio(price, ceiling))
}

// Ratio returns price/ceiling, or 0 when either side is unusable.
func Ratio(price, ceiling float64) float64 {
	if !(price > 0) || !(ceiling > 0) || math.IsInf(price, 0) || math.IsInf(ceiling, 0) {
		return 0
	}
	return price / ceiling
}

// ForRatio returns the zone whose inclusive lower bound is the largest one not
// exceeding ratio.
func ForRatio(ratio float64) Zone {
	for i := len(zones) - 1; i > 0; i-- {
		if ratio >= zones[i].MinRatio {
			return zones[i]
		}
	}
	return zones[0]
}

// Zones lists every band in ascending ratio order.
func Zones() []Zone {
	out := make([]Zone, len(zones))
	copy(out, zones[:])
	return out
}

// Drift converts the zone bias from percent into a fractional drift.
func (z Zone) Drift() float64 {
	return z.UpwardBias / 100
}
