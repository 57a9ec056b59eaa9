package thermal

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/Agrid-Dev/housesim/internal/equipment"
	"github.com/Agrid-Dev/housesim/internal/psychro"
)

// Outdoor describes the exterior boundary for one minute.
type Outdoor struct {
	Temp      float64 // K
	WindSpeed float64 // local, m/s
	SkyCover  float64 // 0..1

	SouthRoof float64 // insolation, W/m2
	NorthRoof float64
	Walls     [4]float64
	SolAir    float64 // wall sol-air temperature, K
	Windows   float64 // solar gain through glazing, W
}

// Flows are the converged airflows for the minute, kg/s.
type Flows struct {
	AtticIn float64 // outdoors into the attic
	Ceiling float64 // attic to house, negative when the house feeds the attic
	HouseIn float64 // outdoors into the house, excluding Recovered

	// Recovered enters the house through a heat recovery ventilator.
	Recovered     float64
	RecoveryRatio float64

	Ducts equipment.DuctFlows

	// ReturnOutdoor is outdoor air drawn into the return duct, tempered by
	// ReturnRecovery against house air.
	ReturnOutdoor  float64
	ReturnRecovery float64
}

// Loads are the heat sources for the minute, W.
type Loads struct {
	Internal     float64 // people, appliances, fan heat
	Heating      float64 // furnace heat into supply air, fan heat included
	Cooling      float64 // sensible heat removed from supply air
	Evaporation  float64 // latent heat of coil water picked up, negative
	Dehumidifier float64
}

type Inputs struct {
	Outdoor Outdoor
	Flows   Flows
	Loads   Loads
	Blower  bool
}

// Result carries the new temperatures and diagnostics.
type Result struct {
	Temperatures Temperatures
	// IllConditioned reports a near-singular system that was still solved.
	IllConditioned bool
}

type system struct {
	a *mat.Dense
	b *mat.VecDense
}

func newSystem() *system {
	return &system{a: mat.NewDense(NodeCount, NodeCount, nil), b: mat.NewVecDense(NodeCount, nil)}
}

func (s *system) addA(i, j Node, v float64) { s.a.Set(int(i), int(j), s.a.At(int(i), int(j))+v) }
func (s *system) addB(i Node, v float64)    { s.b.SetVec(int(i), s.b.AtVec(int(i))+v) }

// conduct links two nodes with conductance g, W/K.
func (s *system) conduct(i, j Node, g float64) {
	if g <= 0 {
		return
	}
	s.addA(i, i, g)
	s.addA(j, j, g)
	s.addA(i, j, -g)
	s.addA(j, i, -g)
}

// fixed links a node to a known temperature.
func (s *system) fixed(i Node, g, t float64) {
	if g <= 0 {
		return
	}
	s.addA(i, i, g)
	s.addB(i, g*t)
}

// advect brings mass flow m (kg/s) from node src into well-mixed node dst.
func (s *system) advect(dst, src Node, m float64) {
	if m <= 0 {
		return
	}
	g := m * psychro.CpAir
	s.addA(dst, dst, g)
	s.addA(dst, src, -g)
}

// skyTemp is the effective sky temperature, clear sky blended toward air
// temperature by cloud cover.
func skyTemp(tOut, cover float64) float64 {
	clear := 0.0552 * math.Pow(tOut, 1.5)
	return tOut - (tOut-clear)*(1-math.Max(0, math.Min(1, cover)))
}

func radiation(e1, e2, t float64) float64 {
	eff := 1 / (1/e1 + 1/e2 - 1)
	return 4 * psychro.StefanBoltz * eff * t * t * t
}

func ductInsideH(blower bool, velocity float64) float64 {
	if !blower {
		return 2
	}
	return 5.6 + 4*velocity
}

// AtticConvection is the film coefficient of attic surfaces, W/m2/K. It
// rises with the jet velocity of air entering through the attic vents.
func (m *Model) AtticConvection(atticIn float64) float64 {
	vent := 0.0
	if m.ventArea > 0 {
		vent = math.Min(atticIn/psychro.AirDensityRef/m.ventArea, 10)
	}
	return hAtticNatural + 0.5*vent
}

// Solve advances the node temperatures by one minute from old.
func (m *Model) Solve(in Inputs, old Temperatures) (Result, error) {
	s := newSystem()
	dt := psychro.Timestep
	for i := range NodeCount {
		c := m.capacity[i] / dt
		s.addA(Node(i), Node(i), c)
		s.addB(Node(i), c*old[i])
	}

	out := in.Outdoor
	hConv := 5.8 + 3.8*out.WindSpeed
	tSky := skyTemp(out.Temp, out.SkyCover)

	// roof exterior: convection and sky radiation in parallel, roofing in series
	hSky := radiation(m.emissivity, 1, out.Temp)
	hExt := hConv + hSky
	tEnv := (hConv*out.Temp + hSky*tSky) / hExt
	uExt := 1 / (1/hExt + m.roofExtRSI)
	solarShare := uExt / hExt
	for _, r := range []struct {
		outer, inner, insul Node
		sun                 float64
	}{
		{OuterNorthSheathing, InnerNorthSheathing, NorthRoofInsulation, out.NorthRoof},
		{OuterSouthSheathing, InnerSouthSheathing, SouthRoofInsulation, out.SouthRoof},
	} {
		s.fixed(r.outer, uExt*m.sheathArea, tEnv)
		s.addB(r.outer, m.absorptivity*r.sun*m.sheathArea*solarShare)
		s.conduct(r.outer, r.inner, kWood/thickSheathing*m.sheathArea)
		s.conduct(r.inner, r.insul, m.sheathArea/(m.roofIntRSI+0.01))
	}

	hAttic := m.AtticConvection(in.Flows.AtticIn)
	s.conduct(AtticAir, NorthRoofInsulation, hAttic*m.sheathArea)
	s.conduct(AtticAir, SouthRoofInsulation, hAttic*m.sheathArea)
	s.conduct(AtticAir, BulkWood, hAttic*m.bulkArea)
	s.conduct(AtticAir, AtticFloor, hAttic*m.ceilingArea)
	s.conduct(AtticAir, InnerGable, hAttic*m.gableArea)

	// attic surface radiation
	surfaces := []struct {
		n     Node
		area  float64
		emiss float64
	}{
		{NorthRoofInsulation, m.sheathArea, m.sheathEmiss},
		{SouthRoofInsulation, m.sheathArea, m.sheathEmiss},
		{AtticFloor, m.ceilingArea, emissivityWood},
		{InnerGable, m.gableArea, emissivityWood},
	}
	var total float64
	for _, sf := range surfaces {
		total += sf.area
	}
	for i := range surfaces {
		for j := i + 1; j < len(surfaces); j++ {
			si, sj := surfaces[i], surfaces[j]
			tm := (old[si.n] + old[sj.n]) / 2
			s.conduct(si.n, sj.n, radiation(si.emiss, sj.emiss, tm)*si.area*sj.area/total)
		}
	}

	// ceiling
	s.conduct(AtticFloor, Ceiling, m.ceilingArea/m.ceilingRSI)
	s.conduct(Ceiling, HouseAir, hHouseSurface*m.ceilingArea)

	// gables
	s.conduct(InnerGable, OuterGable, m.gableArea/m.gableRSI)
	hSkyWall := radiation(emissivityWood, 1, out.Temp) / 2
	hWall := hConv + hSkyWall
	s.fixed(OuterGable, hWall*m.gableArea, (hConv*out.Temp+hSkyWall*tSky)/hWall)
	gableSun := (out.Walls[m.gableWalls[0]] + out.Walls[m.gableWalls[1]]) / 2
	s.addB(OuterGable, m.absorptivity*gableSun*m.gableArea)

	// ducts
	ambient := AtticAir
	if !m.ductsInAttic {
		ambient = HouseAir
	}
	d := in.Flows.Ducts
	rho := psychro.AirDensityRef
	vSup := equipment.Velocity(d.AirHandler, rho, m.supplyDiam)
	vRet := equipment.Velocity(d.AirHandler, rho, m.returnDiam)
	s.conduct(SupplyDuctSurface, ambient, hDuctOutside*m.supplyOuter)
	s.conduct(ReturnDuctSurface, ambient, hDuctOutside*m.returnOuter)
	s.conduct(SupplyDuctAir, SupplyDuctSurface, m.supplyInner/(m.supplyRSI+1/ductInsideH(in.Blower, vSup)))
	s.conduct(ReturnDuctAir, ReturnDuctSurface, m.returnInner/(m.returnRSI+1/ductInsideH(in.Blower, vRet)))

	f := in.Flows
	s.advect(ReturnDuctAir, HouseAir, -d.ReturnRegister)
	s.advect(ReturnDuctAir, ambient, -d.ReturnLeak)
	if f.ReturnOutdoor > 0 {
		// tempered outdoor air: T = Tout + e(Thouse - Tout)
		g := f.ReturnOutdoor * psychro.CpAir
		s.fixed(ReturnDuctAir, g*(1-f.ReturnRecovery), out.Temp)
		s.addA(ReturnDuctAir, ReturnDuctAir, g*f.ReturnRecovery)
		s.addA(ReturnDuctAir, HouseAir, -g*f.ReturnRecovery)
	}
	s.advect(SupplyDuctAir, ReturnDuctAir, d.AirHandler)
	s.addB(SupplyDuctAir, in.Loads.Heating-in.Loads.Cooling+in.Loads.Evaporation)

	// house air
	s.advect(HouseAir, SupplyDuctAir, d.SupplyRegister)
	if !m.ductsInAttic {
		s.advect(HouseAir, SupplyDuctAir, d.SupplyLeak)
	}
	s.advect(HouseAir, AtticAir, f.Ceiling)
	s.fixed(HouseAir, f.HouseIn*psychro.CpAir, out.Temp)
	if f.Recovered > 0 {
		g := f.Recovered * psychro.CpAir * (1 - f.RecoveryRatio)
		s.fixed(HouseAir, g, out.Temp)
	}
	s.fixed(HouseAir, m.uaSolAir, out.SolAir)
	s.fixed(HouseAir, m.uaOut, out.Temp)
	s.addB(HouseAir, in.Loads.Internal+in.Loads.Dehumidifier)
	s.conduct(HouseAir, HouseMass, hHouseSurface*2*m.floorArea)
	s.addB(HouseMass, out.Windows)

	// attic air
	s.fixed(AtticAir, f.AtticIn*psychro.CpAir, out.Temp)
	s.advect(AtticAir, HouseAir, -f.Ceiling)
	if m.ductsInAttic {
		s.advect(AtticAir, SupplyDuctAir, d.SupplyLeak)
	}

	var x mat.VecDense
	res := Result{}
	if err := x.SolveVec(s.a, s.b); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return res, errors.Join(ErrSingular, err)
		}
		res.IllConditioned = true
	}
	for i := range NodeCount {
		res.Temperatures[i] = x.AtVec(i)
	}
	return res, nil
}
