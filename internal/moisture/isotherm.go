package moisture

import "math"

// MoistureContent is the equilibrium moisture content of wood (kg water per
// kg dry wood) at relative humidity rh (0..1) and temperature tC (C), from
// the Hailwood-Horrobin sorption isotherm.
func MoistureContent(rh, tC float64) float64 {
	h := math.Max(0, math.Min(rh, 1))
	w := 349 + 1.29*tC + 0.0135*tC*tC
	k := 0.805 + 0.000736*tC - 0.00000273*tC*tC
	k1 := 6.27 - 0.00938*tC - 0.000303*tC*tC
	k2 := 1.91 + 0.0407*tC - 0.000293*tC*tC
	kh := k * h
	m := 1800 / w * (kh/(1-kh) + (k1*kh+2*k1*k2*kh*kh)/(1+k1*kh+k1*k2*kh*kh))
	return m / 100
}

// RelativeHumidity inverts MoistureContent by bisection.
func RelativeHumidity(mc, tC float64) float64 {
	if mc <= 0 {
		return 0
	}
	if mc >= MoistureContent(1, tC) {
		return 1
	}
	lo, hi := 0.0, 1.0
	for range 60 {
		mid := (lo + hi) / 2
		if MoistureContent(mid, tC) < mc {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}

// sorptionSlope is dMC/dRH at rh. Above saturation the slope at rh = 1 is
// used, taken one-sided at the top of the curve.
func sorptionSlope(rh, tC float64) float64 {
	const d = 0.005
	h := math.Max(0, math.Min(rh, 1))
	lo := math.Max(0, h-d)
	hi := math.Min(1, h+d)
	return (MoistureContent(hi, tC) - MoistureContent(lo, tC)) / (hi - lo)
}
