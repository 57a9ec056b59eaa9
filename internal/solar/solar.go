// Package solar computes sun position and the insolation on the roof and
// wall surfaces of the house (ASHRAE HOF 2009 SI ch. 14).
package solar

import "math"

const groundReflectance = 0.2

// Day holds the day-dependent solar terms.
type Day struct {
	Declination    float64 // rad
	TimeCorrection float64 // h
}

// ForDay returns solar terms for day of year (1..365) at a site.
func ForDay(day int, longitude, timeZone float64) Day {
	dec := 23.45 * math.Sin(360*float64(day+284)/365*math.Pi/180) * math.Pi / 180
	gamma := 360 * float64(day-1) / 365 * math.Pi / 180
	eot := 2.2918 * (0.0075 + 0.1868*math.Cos(gamma) - 3.2077*math.Sin(gamma) -
		1.4615*math.Cos(2*gamma) - 4.089*math.Sin(2*gamma))
	return Day{
		Declination:    dec,
		TimeCorrection: eot/60 + (longitude-15*timeZone)/15,
	}
}

// Position is the sun altitude and azimuth (from south, positive west).
type Position struct {
	Up       bool
	Altitude float64
	Azimuth  float64
}

// Sun returns the sun position at hour and minute of local standard time.
func (d Day) Sun(latitude float64, hour, minute int) Position {
	lat := latitude * math.Pi / 180
	h := 15 * (float64(hour) + float64(minute)/60 + d.TimeCorrection - 12) * math.Pi / 180
	sinBeta := math.Cos(lat)*math.Cos(d.Declination)*math.Cos(h) + math.Sin(lat)*math.Sin(d.Declination)
	if sinBeta <= 0 {
		return Position{}
	}
	beta := math.Asin(sinBeta)
	c := (sinBeta*math.Sin(lat) - math.Sin(d.Declination)) / (math.Cos(beta) * math.Cos(lat))
	c = math.Max(-1, math.Min(1, c))
	return Position{Up: true, Altitude: beta, Azimuth: math.Copysign(math.Acos(c), h)}
}

// SurfaceInsolation returns total irradiance (W/m2) on a surface of tilt
// sigma whose azimuth differs from the sun's by gamma.
func SurfaceInsolation(directNormal, diffuse, beta, sigma, gamma float64) float64 {
	cosTheta := math.Cos(beta)*math.Cos(gamma)*math.Sin(sigma) + math.Sin(beta)*math.Cos(sigma)
	direct := directNormal * math.Max(0, cosTheta)
	sky := diffuse * (1 + math.Cos(sigma)) / 2
	ground := (directNormal*math.Sin(beta) + diffuse) * groundReflectance * (1 - math.Cos(sigma)) / 2
	return direct + sky + ground
}

// Gains is the insolation seen by the house for one minute.
type Gains struct {
	SouthRoof float64    // W/m2
	NorthRoof float64    // W/m2
	Walls     [4]float64 // north, east, south, west
	// SolAirRise is the wall sol-air temperature rise over outdoor air (K).
	SolAirRise float64
}

// wall azimuths measured from south, positive west
var wallAzimuth = [4]float64{math.Pi, -math.Pi / 2, 0, math.Pi / 2}

// Compute returns surface gains for sun position p and roof pitch (deg).
func Compute(p Position, directNormal, globalHorizontal, roofPitch float64) Gains {
	var g Gains
	if !p.Up {
		return g
	}
	diffuse := math.Max(0, globalHorizontal-math.Sin(p.Altitude)*directNormal)
	sigma := roofPitch * math.Pi / 180
	g.SouthRoof = SurfaceInsolation(directNormal, diffuse, p.Altitude, sigma, p.Azimuth)
	g.NorthRoof = SurfaceInsolation(directNormal, diffuse, p.Altitude, sigma, p.Azimuth-math.Pi)
	var total float64
	for i, psi := range wallAzimuth {
		g.Walls[i] = SurfaceInsolation(directNormal, diffuse, p.Altitude, math.Pi/2, p.Azimuth-psi)
		total += g.Walls[i]
	}
	g.SolAirRise = total / 4 * 0.03
	return g
}

// WindowGain returns solar heat through windows (W) for south, east+west and
// north glazing areas.
func (g Gains) WindowGain(shading, south, eastWest, north float64) float64 {
	return shading * (north*g.Walls[0] + eastWest/2*g.Walls[1] + south*g.Walls[2] + eastWest/2*g.Walls[3])
}
