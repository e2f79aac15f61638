package pipeline

import "math"

// applyCurve reshapes a Note On velocity (1-127 in, per spec only
// applied when velocity > 0) and clamps the result to [1,127].
func applyCurve(curve VelocityCurve, v byte) byte {
	if v == 0 {
		return 0
	}
	x := float64(v) / 127.0

	var y float64
	switch curve {
	case CurveLogarithmic:
		// log1p keeps y(0)=0 without a singularity at x=0.
		y = math.Log1p(x*(math.E-1)) // maps [0,1] -> [0,1] logarithmically
	case CurveExponential:
		y = (math.Exp(x) - 1) / (math.E - 1)
	case CurveSCurve:
		y = sCurve(x)
	default: // CurveLinear
		y = x
	}

	out := int(math.Round(y * 127))
	return clampVelocity(out)
}

func sCurve(x float64) float64 {
	// Smoothstep: 3x^2 - 2x^3, symmetric around the midpoint.
	return x * x * (3 - 2*x)
}

func clampVelocity(v int) byte {
	if v < 1 {
		return 1
	}
	if v > 127 {
		return 127
	}
	return byte(v)
}
