package thermal

import (
	"fmt"
	"math"

	"github.com/Agrid-Dev/housesim/internal/building"
	"github.com/Agrid-Dev/housesim/internal/psychro"
)

// Material properties.
const (
	densitySheathing = 650.0 // OSB, kg/m3
	densityWood      = 530.0 // framing, kg/m3
	densityDrywall   = 800.0
	densityInsul     = 30.0
	cpWood           = 1300.0 // J/kg/K
	cpDrywall        = 1090.0
	cpInsulation     = 1500.0
	kWood            = 0.15 // W/m/K
	thickSheathing   = 0.015
	thickDrywall     = 0.013
	thickBulkWood    = 0.03 // framing volume per plan area, m
	thickAtticFloor  = 0.05 // insulation layer lumped with the attic floor
	ductJacket       = 1.0  // kg/m2
	cpJacket         = 900.0

	emissivityWood    = 0.9
	emissivityBarrier = 0.05

	houseMassPerArea = 15000.0 // J/K per m2 of floor
	hHouseSurface    = 8.0     // W/m2/K including radiation
	hDuctOutside     = 6.0
	hAtticNatural    = 3.0
)

// roofing lists absorptivity, emissivity and mass (kg/m2) per roof type.
var roofing = map[int]struct{ absorptivity, emissivity, mass, cp float64 }{
	1: {0.92, 0.91, 11, 1260}, // asphalt shingle
	2: {0.67, 0.90, 15, 1300}, // wood shake
	3: {0.58, 0.90, 45, 880},  // concrete tile
	4: {0.35, 0.25, 5, 500},   // metal
	5: {0.25, 0.90, 11, 1260}, // cool shingle
}

// Model holds the fixed geometry and capacities of one house.
type Model struct {
	sheathArea   float64 // one slope
	bulkArea     float64
	ceilingArea  float64
	gableArea    float64
	floorArea    float64
	supplyOuter  float64
	supplyInner  float64
	returnOuter  float64
	returnInner  float64
	supplyRSI    float64
	returnRSI    float64
	supplyDiam   float64
	returnDiam   float64
	ceilingRSI   float64
	roofIntRSI   float64
	roofExtRSI   float64
	gableRSI     float64
	ductsInAttic bool
	ventArea     float64
	sheathEmiss  float64

	uaSolAir float64
	uaOut    float64
	uaFloor  float64
	uaWindow float64

	absorptivity float64
	emissivity   float64
	gableWalls   [2]int

	capacity [NodeCount]float64
}

// New sizes the thermal network of a building.
func New(b *building.Building) (*Model, error) {
	g := b.Geometry
	a := b.Attic
	d := b.Ducts
	if b.Envelope.CeilingRSI <= 0 {
		return nil, fmt.Errorf("%w: ceiling RSI must be positive", ErrInvalidModel)
	}
	roof, ok := roofing[a.RoofType]
	if !ok {
		return nil, fmt.Errorf("%w: roof type %d", ErrInvalidModel, a.RoofType)
	}

	width := math.Sqrt(g.PlanArea)
	m := &Model{
		sheathArea:   b.SheathingArea(),
		bulkArea:     b.BulkWoodArea(),
		ceilingArea:  g.PlanArea,
		gableArea:    width * math.Max(a.RoofPeakHeight-g.EaveHeight, 0),
		floorArea:    g.FloorArea,
		supplyOuter:  math.Pi * (d.SupplyDiameter + 2*d.SupplyThickness) * d.SupplyLength,
		supplyInner:  math.Pi * d.SupplyDiameter * d.SupplyLength,
		returnOuter:  math.Pi * (d.ReturnDiameter + 2*d.ReturnThickness) * d.ReturnLength,
		returnInner:  math.Pi * d.ReturnDiameter * d.ReturnLength,
		supplyRSI:    d.SupplyRSI,
		returnRSI:    d.ReturnRSI,
		supplyDiam:   d.SupplyDiameter,
		returnDiam:   d.ReturnDiameter,
		ceilingRSI:   b.Envelope.CeilingRSI,
		roofIntRSI:   a.RoofIntRSI,
		roofExtRSI:   a.RoofExtRSI,
		gableRSI:     math.Max(a.GableEndRSI, 0.1),
		ductsInAttic: d.Location == building.DuctsInAttic,
		ventArea:     b.AtticCharacteristicArea(),
		sheathEmiss:  emissivityWood,
		uaSolAir:     b.Envelope.UAWall,
		uaOut:        b.Envelope.UAFloor + b.Envelope.UAWindow,
		uaFloor:      b.Envelope.UAFloor,
		uaWindow:     b.Envelope.UAWindow,
		absorptivity: roof.absorptivity,
		emissivity:   roof.emissivity,
		gableWalls:   [2]int{1, 3},
	}
	if a.RadiantBarrier {
		m.sheathEmiss = emissivityBarrier
	}
	if a.RoofPeakPerpendicular {
		m.gableWalls = [2]int{0, 2}
	}

	rhoCp := psychro.AirDensityRef * psychro.CpAir
	c := &m.capacity
	c[AtticAir] = rhoCp * a.Volume
	sheath := m.sheathArea * thickSheathing / 2 * densitySheathing * cpWood
	c[InnerNorthSheathing] = sheath
	c[InnerSouthSheathing] = sheath
	c[OuterNorthSheathing] = sheath + m.sheathArea*roof.mass*roof.cp
	c[OuterSouthSheathing] = c[OuterNorthSheathing]
	c[BulkWood] = m.bulkArea * thickBulkWood * densityWood * cpWood
	c[Ceiling] = m.ceilingArea * thickDrywall * densityDrywall * cpDrywall
	c[AtticFloor] = m.ceilingArea * thickAtticFloor * densityInsul * cpInsulation
	gable := math.Max(m.gableArea, 1) * thickSheathing / 2 * densitySheathing * cpWood
	c[InnerGable] = gable
	c[OuterGable] = gable
	c[ReturnDuctSurface] = m.returnOuter * ductJacket * cpJacket
	c[SupplyDuctSurface] = m.supplyOuter * ductJacket * cpJacket
	c[ReturnDuctAir] = rhoCp * math.Pi * d.ReturnDiameter * d.ReturnDiameter / 4 * d.ReturnLength
	c[SupplyDuctAir] = rhoCp * math.Pi * d.SupplyDiameter * d.SupplyDiameter / 4 * d.SupplyLength
	c[HouseMass] = houseMassPerArea * g.FloorArea
	c[HouseAir] = rhoCp * g.HouseVolume
	insul := m.sheathArea * math.Max(a.RoofIntThickness, 0.005) * densityInsul * cpInsulation
	c[NorthRoofInsulation] = insul
	c[SouthRoofInsulation] = insul
	for i, v := range c {
		if v <= 0 {
			return nil, fmt.Errorf("%w: node %s has no heat capacity", ErrInvalidModel, Node(i))
		}
	}
	return m, nil
}

// Capacity is the heat capacity of a node, J/K.
func (m *Model) Capacity(n Node) float64 { return m.capacity[n] }

// SetSeason switches envelope losses to outdoor air: the floor counts only
// in the heating season.
func (m *Model) SetSeason(heating bool) {
	m.uaOut = m.uaWindow
	if heating {
		m.uaOut += m.uaFloor
	}
}
