package airflow

import (
	"math"

	"github.com/Agrid-Dev/housesim/internal/psychro"
)

// Wall pressure coefficients: windward, leeward, side walls, and the side
// walls of a row house shared with neighbours.
const (
	cpWindward = 0.6
	cpLeeward  = -0.3
	cpSide     = -0.65
	cpRowSide  = -0.2
	cpRoof     = -0.5
	cpFlue     = -0.5
)

// Roof marks a leak on the roof rather than a wall.
const Roof = 4

// WallCp is the harmonic pressure coefficient of wall (0 north, 1 east,
// 2 south, 3 west) for wind blowing from direction degrees.
func WallCp(wall int, direction float64, rowHouse bool) float64 {
	if wall == Roof {
		return cpRoof
	}
	side := cpSide
	if rowHouse {
		side = cpRowSide
	}
	theta := (direction - float64(wall)*90) * math.Pi / 180
	c, s := math.Cos(theta), math.Sin(theta)
	// cos(pi/2) is not exactly zero and its fourth root is not small
	if math.Abs(c) < 1e-12 {
		c = 0
	}
	return 0.5 * ((cpWindward+cpLeeward)*math.Pow(c*c, 0.25) +
		(cpWindward-cpLeeward)*math.Copysign(math.Pow(math.Abs(c), 0.75), c) +
		2*side*s*s)
}

// Boundary holds the outdoor and zone conditions for one airflow solve.
type Boundary struct {
	WindSpeed     float64    // at eave height, m/s
	WindDirection float64    // degrees from north
	Shelter       [4]float64 // squared shelter factor per wall
	PressureExp   float64    // wind profile exponent above the eave

	TempOut   float64 // K
	TempHouse float64
	TempAttic float64
}

type conditions struct {
	Boundary
	rhoOut, rhoHouse, rhoAttic float64
	dynamic                    float64
	eave                       float64
	rowHouse                   bool
}

func newConditions(bc Boundary, eave float64, rowHouse bool) conditions {
	rhoOut := psychro.AirDensity(bc.TempOut)
	return conditions{
		Boundary: bc,
		rhoOut:   rhoOut,
		rhoHouse: psychro.AirDensity(bc.TempHouse),
		rhoAttic: psychro.AirDensity(bc.TempAttic),
		dynamic:  0.5 * rhoOut * bc.WindSpeed * bc.WindSpeed,
		eave:     eave,
		rowHouse: rowHouse,
	}
}

// windPressure is the wind-induced surface pressure at height z on a wall.
func (c *conditions) windPressure(wall int, z, shelter float64) float64 {
	p := c.dynamic * WallCp(wall, c.WindDirection, c.rowHouse) * shelter
	if z > c.eave && c.eave > 0 {
		p *= math.Pow(z/c.eave, 2*c.PressureExp)
	}
	return p
}

func (c *conditions) wallShelter(wall int) float64 {
	if wall >= 0 && wall < 4 {
		return c.Shelter[wall]
	}
	return 1
}
