package weather

import (
	"fmt"
	"math"
)

// Boundary-layer parameters per terrain class (ASHRAE Fundamentals):
// 1 city centre, 2 suburban, 3 open country, 4 flat unobstructed.
var terrainExponent = [5]float64{0, 0.33, 0.22, 0.14, 0.10}
var terrainLayer = [5]float64{0, 460, 370, 270, 210}

const (
	metHeight   = 10.0
	metTerrain  = 3
	minWindSite = 0.0
)

// Terrain converts meteorological-station wind speed to the building site.
type Terrain struct {
	class  int
	factor float64
}

func NewTerrain(class int, eaveHeight float64) (Terrain, error) {
	if class < 1 || class > 4 {
		return Terrain{}, fmt.Errorf("%w: %d", ErrInvalidTerrain, class)
	}
	if eaveHeight <= 0 {
		eaveHeight = metHeight
	}
	met := math.Pow(terrainLayer[metTerrain]/metHeight, terrainExponent[metTerrain])
	site := math.Pow(eaveHeight/terrainLayer[class], terrainExponent[class])
	return Terrain{class: class, factor: met * site}, nil
}

// WindPressureExp is the boundary-layer exponent of the site.
func (t Terrain) WindPressureExp() float64 { return terrainExponent[t.class] }

// Local returns the site wind speed at eave height.
func (t Terrain) Local(metWind float64) float64 {
	return math.Max(minWindSite, metWind*t.factor)
}
