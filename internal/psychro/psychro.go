// Package psychro holds moist-air property functions used by the airflow,
// thermal and moisture models.
package psychro

import "math"

func CToF(c float64) float64 { return c*9/5 + 32 }
func FToC(f float64) float64 { return (f - 32) * 5 / 9 }
func KToF(k float64) float64 { return CToF(k - CToK) }
func FToK(f float64) float64 { return FToC(f) + CToK }

// AirDensity returns dry-air density at temperature t (K), scaled from the
// reference state.
func AirDensity(t float64) float64 {
	if t <= 0 {
		return AirDensityRef
	}
	return AirDensityRef * AirTempRef / t
}

// SaturationPressure returns the saturation vapor pressure (Pa) over water
// above freezing and over ice below (Hyland-Wexler).
func SaturationPressure(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t < CToK {
		return math.Exp(-5.6745359e3/t + 6.3925247 - 9.677843e-3*t + 6.2215701e-7*t*t +
			2.0747825e-9*t*t*t - 9.484024e-13*t*t*t*t + 4.1635019*math.Log(t))
	}
	return math.Exp(-5.8002206e3/t + 1.3914993 - 4.8640239e-2*t + 4.1764768e-5*t*t -
		1.4452093e-8*t*t*t + 6.5459673*math.Log(t))
}

// HumidityRatio returns kg water per kg dry air for vapor pressure pw at total
// pressure p.
func HumidityRatio(pw, p float64) float64 {
	if pw <= 0 {
		return 0
	}
	if pw >= p {
		pw = 0.99 * p
	}
	return MolarRatio * pw / (p - pw)
}

// VaporPressure is the inverse of HumidityRatio.
func VaporPressure(w, p float64) float64 {
	if w <= 0 {
		return 0
	}
	return p * w / (MolarRatio + w)
}

// SaturationHumidityRatio returns the humidity ratio of saturated air.
func SaturationHumidityRatio(t, p float64) float64 {
	return HumidityRatio(SaturationPressure(t), p)
}

// RelativeHumidity returns percent relative humidity of air at t with
// humidity ratio w.
func RelativeHumidity(w, t, p float64) float64 {
	pws := SaturationPressure(t)
	if pws <= 0 {
		return 0
	}
	return 100 * VaporPressure(w, p) / pws
}

// HumidityRatioFromRH converts percent relative humidity to humidity ratio.
func HumidityRatioFromRH(rh, t, p float64) float64 {
	return HumidityRatio(rh/100*SaturationPressure(t), p)
}

// Enthalpy returns moist-air enthalpy in J/kg dry air.
func Enthalpy(t, w float64) float64 {
	c := t - CToK
	return CpAir*c + w*(LatentHeat+CpVapor*c)
}

// DewPoint returns the dew point (K) for vapor pressure pw by bisection on
// SaturationPressure.
func DewPoint(pw float64) float64 {
	if pw <= 0 {
		return 173.15
	}
	lo, hi := 173.15, 373.15
	for range 60 {
		mid := (lo + hi) / 2
		if SaturationPressure(mid) > pw {
			hi = mid
		} else {
			lo = mid
		}
	}
	return (lo + hi) / 2
}
