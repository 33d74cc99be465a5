package engine

import (
	"math"
)

// degenerateEps is the threshold below which the normalization denominator is
// treated as zero and the linear fallback kicks in.
const degenerateEps = 1e-12

// ValueFunction evaluates an indicator's raw reading into a satisfaction value
// in [0,1] using the MIVES exponential shape family. It is pure over the full
// parameter tuple; an optional bounded memo avoids recomputing the exponential
// for repeated identical calls.
type ValueFunction struct {
	cache *Cache
}

// NewValueFunction creates an evaluator backed by the given memo. A nil cache
// disables memoization, which is useful for asserting purity in tests.
func NewValueFunction(cache *Cache) *ValueFunction {
	return &ValueFunction{cache: cache}
}

// Evaluate maps a raw reading through the spec's value function. The second
// return reports numeric degeneracy: the spec's normalization denominator was
// zero and a direction-respecting linear interpolation was used instead.
func (vf *ValueFunction) Evaluate(spec IndicatorSpec, reading float64) (float64, bool, error) {
	if math.IsNaN(reading) || math.IsInf(reading, 0) {
		return 0, false, &InvalidReadingError{Indicator: spec.Name, Reading: reading}
	}

	key := memoKey{
		direction: spec.Direction,
		pMin:      spec.PMin,
		pMax:      spec.PMax,
		b:         spec.B,
		k:         spec.K,
		c:         spec.C,
		reading:   reading,
	}
	if vf.cache != nil {
		if v, ok := vf.cache.get(key); ok {
			return v.score, v.degenerate, nil
		}
	}

	score, degenerate := evalCurve(spec, reading)

	if vf.cache != nil {
		vf.cache.put(key, memoValue{score: score, degenerate: degenerate})
	}
	return score, degenerate, nil
}

// CacheStats reports memo effectiveness, or a zero snapshot when memoization
// is disabled.
func (vf *ValueFunction) CacheStats() CacheStats {
	if vf.cache == nil {
		return CacheStats{}
	}
	return vf.cache.Stats()
}

// evalCurve is the uncached curve evaluation. Readings are clamped into the
// configured range and mirrored for decreasing indicators, so the best end is
// always PMax after mapping. Values at the saturation bounds are exactly 0
// and 1; interior values follow 1-exp(-K*|x-B|/C) normalized against the same
// expression at the best end.
func evalCurve(spec IndicatorSpec, reading float64) (float64, bool) {
	x := clamp(reading, spec.PMin, spec.PMax)
	if spec.Direction == Decreasing {
		x = spec.PMax - x + spec.PMin
	}

	// Saturation short-circuit: exact at the endpoints.
	if x <= spec.PMin {
		return 0, false
	}
	if x >= spec.PMax {
		return 1, false
	}

	rawMax := 1 - math.Exp(-spec.K*math.Abs(spec.PMax-spec.B)/spec.C)
	if math.Abs(rawMax) < degenerateEps {
		// B coincides with the best end: the exponential cannot be pinned
		// to 1 there. Fall back to linear interpolation and flag it.
		return clamp((x-spec.PMin)/(spec.PMax-spec.PMin), 0, 1), true
	}

	raw := 1 - math.Exp(-spec.K*math.Abs(x-spec.B)/spec.C)
	return clamp(raw/rawMax, 0, 1), false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
