package scoring

import "math"

const (
	// Steepness of the logistic curve; theta 0 is the passing standard.
	Steepness = 1.5
	// ReferenceLength is the response count at which the logistic estimate
	// is trusted fully.
	ReferenceLength = 75
	MinProbability  = 0.05
	MaxProbability  = 0.95
	z95             = 1.96
)

// Interval is a closed [Low, High] range on the theta scale.
type Interval struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

func (iv Interval) Width() float64 { return iv.High - iv.Low }

// Confidence is the blend weight min(n/75, 1).
func Confidence(responseCount int) float64 {
	if responseCount <= 0 {
		return 0
	}
	return math.Min(float64(responseCount)/ReferenceLength, 1)
}

// PassProbability blends the logistic transform of theta toward 0.5 until
// enough responses accumulate, then clamps to [0.05, 0.95].
func PassProbability(theta float64, responseCount int) float64 {
	raw := 1 / (1 + math.Exp(-Steepness*theta))
	p := 0.5 + (raw-0.5)*Confidence(responseCount)
	return clamp(p, MinProbability, MaxProbability)
}

// ConfidenceInterval is the 95% interval theta ± 1.96·SE.
func ConfidenceInterval(theta float64, responseCount int) Interval {
	half := z95 * StandardError(responseCount)
	return Interval{Low: theta - half, High: theta + half}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
