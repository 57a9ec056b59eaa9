// Package moisture tracks water in the attic wood and in the attic, duct and
// house air. Wood layers exchange vapor with attic air and with each other;
// air nodes mix by the same mass flows as the thermal network.
package moisture

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/Agrid-Dev/housesim/internal/building"
	"github.com/Agrid-Dev/housesim/internal/psychro"
	"github.com/Agrid-Dev/housesim/internal/thermal"
)

// Node indexes the moisture network. The first six are wood layers whose
// state is vapor pressure; the last four are air whose state is humidity
// ratio.
type Node int

const (
	SouthSheathing Node = iota
	NorthSheathing
	BulkWood
	SouthSheathingDeep
	NorthSheathingDeep
	BulkWoodDeep
	AtticAir
	ReturnAir
	SupplyAir
	HouseAir

	WoodNodes = 6
	NodeCount = int(HouseAir) + 1
)

var nodeNames = [NodeCount]string{
	"south_sheathing", "north_sheathing", "bulk_wood",
	"south_sheathing_deep", "north_sheathing_deep", "bulk_wood_deep",
	"attic_air", "return_air", "supply_air", "house_air",
}

func (n Node) String() string {
	if n < 0 || int(n) >= NodeCount {
		return "unknown"
	}
	return nodeNames[n]
}

func (n Node) Wood() bool { return n >= 0 && n < WoodNodes }

const (
	surfaceSheathing = 0.003 // m of sheathing in the surface layer
	surfaceBulk      = 0.005
	thickSheathing   = 0.015
	thickBulk        = 0.03
	densitySheathing = 650.0
	densityWood      = 530.0
	permeabilityWood = 4e-12 // kg/(m s Pa)
)

type Params struct {
	// InitialMC is the starting wood moisture content, kg/kg.
	InitialMC float64
	// HouseCapacitance multiplies the house air moisture mass to account
	// for furnishings.
	HouseCapacitance float64
}

func (params *Params) Validate() error {
	if params.InitialMC <= 0 || params.InitialMC > 0.3 {
		return fmt.Errorf("%w: initial moisture content %v", ErrInvalidParams, params.InitialMC)
	}
	if params.HouseCapacitance < 1 {
		return fmt.Errorf("%w: house capacitance %v", ErrInvalidParams, params.HouseCapacitance)
	}
	return nil
}

func DefaultParams() Params {
	return Params{InitialMC: 0.15, HouseCapacitance: 10}
}

// NodeState is the moisture state of one node after a step.
type NodeState struct {
	Temp          float64 // K
	VaporPressure float64 // Pa
	// Content is moisture content (kg/kg) for wood and relative humidity
	// (%) for air.
	Content float64
	// Condensed is liquid water held on a wood node, or water condensed out
	// of an air node during the last step, kg.
	Condensed float64
	// SaturatedMinutes counts minutes at saturation since the last reset.
	SaturatedMinutes int

	saturation float64
}

// RH is relative humidity at the node, %.
func (s NodeState) RH() float64 { return 100 * s.saturation }

// Sources are moisture sources and sinks for the minute, kg/s.
type Sources struct {
	Latent          float64 // occupants and appliances into house air
	Dehumidifier    float64 // removed from house air
	CoilCondensing  float64 // removed from supply air on the cooling coil
	CoilEvaporating float64 // returned to supply air from a wet coil
}

type Inputs struct {
	Temps      thermal.Temperatures
	Pressure   float64 // Pa
	OutdoorW   float64 // kg/kg
	Flows      thermal.Flows
	AtticFilmH float64 // W/m2/K
	Sources    Sources

	// Latent effectiveness of recovery on Flows.Recovered and on
	// Flows.ReturnOutdoor.
	RecoveredLatent     float64
	ReturnOutdoorLatent float64
}

// Model is the moisture network of one house.
type Model struct {
	params       Params
	ductsInAttic bool

	area     [WoodNodes]float64 // surface exchange area
	dryMass  [WoodNodes]float64 // kg
	diffG    [3]float64         // surface to deep conductance, kg/s/Pa
	airMass  [4]float64         // kg of dry air
	pw       [WoodNodes]float64
	w        [4]float64
	cond     [WoodNodes]float64
	satMin   [NodeCount]int
	airCond  [4]float64 // kg condensed out of air this minute
	lastTemp [NodeCount]float64
	pressure float64

	mold [3]MoldIndex
}

// New sizes the moisture network of a building.
func New(b *building.Building, params Params) (*Model, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	as := b.SheathingArea()
	ab := b.BulkWoodArea()
	d := b.Ducts
	m := &Model{
		params:       params,
		ductsInAttic: d.Location == building.DuctsInAttic,
		mold: [3]MoldIndex{
			{Sensitivity: Sensitive},
			{Sensitivity: Sensitive},
			{Sensitivity: VerySensitive},
		},
	}
	m.area = [WoodNodes]float64{as, as, ab, as, as, ab}
	m.dryMass = [WoodNodes]float64{
		as * surfaceSheathing * densitySheathing,
		as * surfaceSheathing * densitySheathing,
		ab * surfaceBulk * densityWood,
		as * (thickSheathing - surfaceSheathing) * densitySheathing,
		as * (thickSheathing - surfaceSheathing) * densitySheathing,
		ab * (thickBulk - surfaceBulk) * densityWood,
	}
	m.diffG = [3]float64{
		as * permeabilityWood / (thickSheathing / 2),
		as * permeabilityWood / (thickSheathing / 2),
		ab * permeabilityWood / (thickBulk / 2),
	}
	rho := psychro.AirDensityRef
	m.airMass = [4]float64{
		rho * b.Attic.Volume,
		rho * math.Pi * d.ReturnDiameter * d.ReturnDiameter / 4 * d.ReturnLength,
		rho * math.Pi * d.SupplyDiameter * d.SupplyDiameter / 4 * d.SupplyLength,
		rho * b.Geometry.HouseVolume * params.HouseCapacitance,
	}
	return m, nil
}

// woodTemps maps wood layers to thermal nodes. Deep sheathing sits between
// the inner and outer faces.
func woodTemps(t thermal.Temperatures) [WoodNodes]float64 {
	return [WoodNodes]float64{
		t[thermal.InnerSouthSheathing],
		t[thermal.InnerNorthSheathing],
		t[thermal.BulkWood],
		(t[thermal.InnerSouthSheathing] + t[thermal.OuterSouthSheathing]) / 2,
		(t[thermal.InnerNorthSheathing] + t[thermal.OuterNorthSheathing]) / 2,
		t[thermal.BulkWood],
	}
}

func airTemps(t thermal.Temperatures) [4]float64 {
	return [4]float64{
		t[thermal.AtticAir],
		t[thermal.ReturnDuctAir],
		t[thermal.SupplyDuctAir],
		t[thermal.HouseAir],
	}
}

// Init sets the starting state: wood at the initial moisture content and
// every air node at the outdoor humidity ratio.
func (m *Model) Init(t thermal.Temperatures, outdoorW, pressure float64) {
	m.pressure = pressure
	wt := woodTemps(t)
	for i := range WoodNodes {
		tC := wt[i] - psychro.CToK
		m.pw[i] = RelativeHumidity(m.params.InitialMC, tC) * psychro.SaturationPressure(wt[i])
		m.cond[i] = 0
		m.lastTemp[i] = wt[i]
	}
	at := airTemps(t)
	for i := range m.w {
		m.w[i] = outdoorW
		m.lastTemp[WoodNodes+i] = at[i]
	}
}

// capacity is the moisture storage of a wood layer per unit vapor
// pressure, kg/Pa.
func (m *Model) capacity(i int, temp float64) float64 {
	psat := psychro.SaturationPressure(temp)
	tC := temp - psychro.CToK
	slope := sorptionSlope(m.pw[i]/psat, tC)
	return math.Max(m.dryMass[i]*slope/psat, 1e-9)
}

type system struct {
	a *mat.Dense
	b *mat.VecDense
}

func (s *system) add(i, j int, v float64) { s.a.Set(i, j, s.a.At(i, j)+v) }
func (s *system) rhs(i int, v float64)    { s.b.SetVec(i, s.b.AtVec(i)+v) }

// mix brings mass flow f (kg/s) of air from node src into air node dst.
func (s *system) mix(dst, src int, f float64) {
	if f <= 0 {
		return
	}
	s.add(dst, dst, f)
	s.add(dst, src, -f)
}

// supply brings mass flow f at a fixed humidity ratio into air node dst.
func (s *system) supply(dst int, f, w float64) {
	if f <= 0 {
		return
	}
	s.add(dst, dst, f)
	s.rhs(dst, f*w)
}

// Step advances the moisture state one minute.
func (m *Model) Step(in Inputs) error {
	dt := psychro.Timestep
	wt := woodTemps(in.Temps)
	at := airTemps(in.Temps)

	s := &system{a: mat.NewDense(NodeCount, NodeCount, nil), b: mat.NewVecDense(NodeCount, nil)}
	var caps [WoodNodes]float64
	for i := range WoodNodes {
		caps[i] = m.capacity(i, wt[i])
		// vapor stored above saturation after the layer cooled is condensate
		if psat := psychro.SaturationPressure(wt[i]); m.pw[i] > psat {
			m.cond[i] += caps[i] * (m.pw[i] - psat)
			m.pw[i] = psat
		}
		s.add(i, i, caps[i]/dt)
		s.rhs(i, caps[i]/dt*m.pw[i])
	}
	attic, ret, sup, house := int(AtticAir), int(ReturnAir), int(SupplyAir), int(HouseAir)
	for j := range 4 {
		k := WoodNodes + j
		s.add(k, k, m.airMass[j]/dt)
		s.rhs(k, m.airMass[j]/dt*m.w[j])
	}

	// surface exchange with attic air; Pw(air) ~ P/(0.622+w) * w
	toPw := in.Pressure / (psychro.MolarRatio + m.w[0])
	for i := range 3 {
		beta := in.AtticFilmH / (psychro.AirDensity(at[0]) * psychro.CpAir) / (psychro.RVapor * at[0]) * m.area[i]
		s.add(i, i, beta)
		s.add(i, attic, -beta*toPw)
		s.add(attic, attic, beta*toPw)
		s.add(attic, i, -beta)
	}
	// surface to deep diffusion
	for i, g := range m.diffG {
		deep := i + 3
		s.add(i, i, g)
		s.add(deep, deep, g)
		s.add(i, deep, -g)
		s.add(deep, i, -g)
	}

	f := in.Flows
	d := f.Ducts
	ambient := attic
	if !m.ductsInAttic {
		ambient = house
	}

	s.supply(attic, f.AtticIn, in.OutdoorW)
	s.mix(attic, house, -f.Ceiling)
	if m.ductsInAttic {
		s.mix(attic, sup, d.SupplyLeak)
	}

	s.mix(ret, house, -d.ReturnRegister)
	s.mix(ret, ambient, -d.ReturnLeak)
	if f.ReturnOutdoor > 0 {
		e := in.ReturnOutdoorLatent
		s.supply(ret, f.ReturnOutdoor*(1-e), in.OutdoorW)
		s.add(ret, ret, f.ReturnOutdoor*e)
		s.add(ret, house, -f.ReturnOutdoor*e)
	}

	s.mix(sup, ret, d.AirHandler)
	s.rhs(sup, in.Sources.CoilEvaporating-in.Sources.CoilCondensing)

	s.mix(house, sup, d.SupplyRegister)
	if !m.ductsInAttic {
		s.mix(house, sup, d.SupplyLeak)
	}
	s.mix(house, attic, f.Ceiling)
	s.supply(house, f.HouseIn, in.OutdoorW)
	// recovered house moisture cancels out of the house balance
	s.supply(house, f.Recovered*(1-in.RecoveredLatent), in.OutdoorW)
	s.rhs(house, in.Sources.Latent-in.Sources.Dehumidifier)

	m.pressure = in.Pressure
	var x mat.VecDense
	if err := x.SolveVec(s.a, s.b); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return errors.Join(ErrSingular, err)
		}
	}

	for i := range WoodNodes {
		pw := math.Max(x.AtVec(i), 0)
		psat := psychro.SaturationPressure(wt[i])
		switch {
		case pw > psat:
			m.cond[i] += caps[i] * (pw - psat)
			pw = psat
		case m.cond[i] > 0:
			back := math.Min(m.cond[i], caps[i]*(psat-pw))
			m.cond[i] -= back
			pw += back / caps[i]
		}
		if pw >= psat*0.999 {
			m.satMin[i]++
		}
		m.pw[i] = pw
		m.lastTemp[i] = wt[i]
	}
	for j := range 4 {
		w := math.Max(x.AtVec(WoodNodes+j), 0)
		wsat := psychro.SaturationHumidityRatio(at[j], in.Pressure)
		m.airCond[j] = 0
		if w > wsat {
			m.airCond[j] = (w - wsat) * m.airMass[j]
			w = wsat
			m.satMin[WoodNodes+j]++
		}
		m.w[j] = w
		m.lastTemp[WoodNodes+j] = at[j]
	}
	return nil
}

// MoldUpdate advances the mold index of the three attic wood surfaces by
// one hour using the current surface state.
func (m *Model) MoldUpdate() {
	for i := range m.mold {
		st := m.State(Node(i))
		m.mold[i].Update(st.Temp-psychro.CToK, st.RH())
	}
}

// State reports the current state of node n.
func (m *Model) State(n Node) NodeState {
	i := int(n)
	t := m.lastTemp[i]
	if n.Wood() {
		rh := m.pw[i] / psychro.SaturationPressure(t)
		return NodeState{
			Temp:             t,
			VaporPressure:    m.pw[i],
			Content:          MoistureContent(rh, t-psychro.CToK),
			Condensed:        m.cond[i],
			SaturatedMinutes: m.satMin[i],
			saturation:       rh,
		}
	}
	w := m.w[i-WoodNodes]
	pw := psychro.VaporPressure(w, m.pressure)
	rh := pw / psychro.SaturationPressure(t)
	return NodeState{
		Temp:             t,
		VaporPressure:    pw,
		Content:          100 * rh,
		Condensed:        m.airCond[i-WoodNodes],
		SaturatedMinutes: m.satMin[i],
		saturation:       rh,
	}
}

// HumidityRatio of air node n, kg/kg. Wood nodes report zero.
func (m *Model) HumidityRatio(n Node) float64 {
	if n.Wood() || int(n) >= NodeCount {
		return 0
	}
	return m.w[int(n)-WoodNodes]
}

// Mold returns the mold index of the south sheathing, north sheathing and
// bulk wood surfaces.
func (m *Model) Mold() [3]float64 {
	return [3]float64{m.mold[0].Index, m.mold[1].Index, m.mold[2].Index}
}

// ResetCounters clears the saturated-minute counters at the start of a
// reporting period.
func (m *Model) ResetCounters() { m.satMin = [NodeCount]int{} }
