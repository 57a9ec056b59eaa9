package airflow

import (
	"math"

	"github.com/Agrid-Dev/housesim/internal/psychro"
)

const (
	rootMassTol     = 1e-9 // kg/s
	rootPressureTol = 1e-8 // Pa
	rootMaxIter     = 200
	bracketLimit    = 1e5 // Pa
)

// zoneRoot finds p with f(p) = 0 for a flow balance that decreases with
// zone pressure. It brackets outward from guess and then narrows the
// bracket with Illinois false position.
func zoneRoot(f func(p float64) float64, guess float64) float64 {
	fg := f(guess)
	if math.Abs(fg) < rootMassTol {
		return guess
	}
	lo, hi := guess, guess
	flo, fhi := fg, fg
	step := 1.0
	for flo*fhi > 0 && step < bracketLimit {
		if fg > 0 {
			lo, flo = hi, fhi
			hi = guess + step
			fhi = f(hi)
		} else {
			hi, fhi = lo, flo
			lo = guess - step
			flo = f(lo)
		}
		step *= 2
	}
	if flo*fhi > 0 {
		if math.Abs(flo) < math.Abs(fhi) {
			return lo
		}
		return hi
	}

	side := 0
	p := guess
	for range rootMaxIter {
		p = (lo*fhi - hi*flo) / (fhi - flo)
		if p <= math.Min(lo, hi) || p >= math.Max(lo, hi) {
			p = 0.5 * (lo + hi)
		}
		fp := f(p)
		if math.Abs(fp) < rootMassTol || math.Abs(hi-lo) < rootPressureTol {
			return p
		}
		if fp*fhi > 0 {
			hi, fhi = p, fp
			if side == 1 {
				flo /= 2
			}
			side = 1
		} else {
			lo, flo = p, fp
			if side == -1 {
				fhi /= 2
			}
			side = -1
		}
	}
	return p
}

type solveState struct {
	net *Network
	conditions
	forced Forced

	// wall leak pressures are fixed for a solve
	wallWind   []float64
	floorWind  []float64
	openWind   []float64
	pipeWind   []float64
	atticWind  []float64
	flueWind   float64
	reliefBand float64
}

func (n *Network) newState(bc Boundary, forced Forced) *solveState {
	s := &solveState{net: n, conditions: newConditions(bc, n.eave, n.rowHouse), forced: forced}
	s.wallWind = s.windAll(n.walls)
	s.openWind = s.windAll(n.openings)
	s.atticWind = s.windAll(n.attic)
	s.floorWind = make([]float64, len(n.floor))
	for i, l := range n.floor {
		if l.wall < 0 {
			var mean float64
			for w := range 4 {
				mean += s.windPressure(w, l.z, s.Shelter[w]) / 4
			}
			s.floorWind[i] = mean
			continue
		}
		s.floorWind[i] = s.windPressure(l.wall, l.z, s.Shelter[l.wall])
	}
	s.pipeWind = make([]float64, len(n.pipes))
	for i, p := range n.pipes {
		sh := p.onLeeward
		if WallCp(p.wall, s.WindDirection, s.rowHouse) > 0 {
			sh = p.onWindward
		}
		s.pipeWind[i] = s.windPressure(p.wall, p.z, sh)
	}
	s.flueWind = s.dynamic * cpFlue * n.flueShelter
	s.reliefBand = forced.ReliefC / wallBands
	return s
}

func (s *solveState) windAll(leaks []leak) []float64 {
	out := make([]float64, len(leaks))
	for i, l := range leaks {
		sh := s.wallShelter(l.wall)
		if l.wall == Roof {
			sh = s.meanShelter()
		}
		out[i] = s.windPressure(l.wall, l.z, sh)
	}
	return out
}

func (s *solveState) meanShelter() float64 {
	return (s.Shelter[0] + s.Shelter[1] + s.Shelter[2] + s.Shelter[3]) / 4
}

// outdoorFlow is the flow into the house through a leak at height z.
func (s *solveState) outdoorFlow(l leak, pw, pHouse float64, extraC float64) float64 {
	dp := pw - pHouse + psychro.Gravity*l.z*(s.rhoHouse-s.rhoOut)
	return PowerLaw(l.c+extraC, l.n, dp, s.rhoOut, s.rhoHouse)
}

type houseFlows struct {
	in, out, flue, ceiling, ductsOff float64
}

func (s *solveState) house(pHouse, pAttic float64) houseFlows {
	var hf houseFlows
	add := func(m float64) {
		if m > 0 {
			hf.in += m
		} else {
			hf.out -= m
		}
	}
	n := s.net
	for i, l := range n.walls {
		add(s.outdoorFlow(l, s.wallWind[i], pHouse, s.reliefBand*n.wallShares[l.wall]))
	}
	for i, l := range n.floor {
		add(s.outdoorFlow(l, s.floorWind[i], pHouse, 0))
	}
	for i, l := range n.openings {
		add(s.outdoorFlow(l, s.openWind[i], pHouse, 0))
	}
	for i, p := range n.pipes {
		add(s.outdoorFlow(p.leak, s.pipeWind[i], pHouse, 0))
	}
	for _, f := range n.flues {
		t := f.temp
		if t <= 0 {
			t = s.TempHouse
		}
		rhoFlue := psychro.AirDensity(t)
		dp := s.flueWind - pHouse + psychro.Gravity*f.height*(rhoFlue-s.rhoOut)
		m := PowerLaw(f.c, orificeExp, dp, s.rhoOut, rhoFlue)
		hf.flue += m
		add(m)
	}
	hf.in += s.forced.FanSupply
	hf.out += s.forced.FanExhaust

	hf.ceiling = s.atticToHouse(n.ceiling, pHouse, pAttic)
	if s.forced.Ducts.AirHandler == 0 && n.ductsInAttic {
		hf.ductsOff = s.atticToHouse(n.ductSupply, pHouse, pAttic) + s.atticToHouse(n.ductReturn, pHouse, pAttic)
	}
	return hf
}

func (s *solveState) atticToHouse(l leak, pHouse, pAttic float64) float64 {
	if l.c <= 0 {
		return 0
	}
	dp := pAttic - pHouse + psychro.Gravity*l.z*(s.rhoHouse-s.rhoAttic)
	return PowerLaw(l.c, l.n, dp, s.rhoAttic, s.rhoHouse)
}

// registers is the net air handler flow into the house.
func (s *solveState) registers() float64 {
	d := s.forced.Ducts
	m := d.SupplyRegister + d.ReturnRegister
	if !s.net.ductsInAttic {
		m += d.SupplyLeak + d.ReturnLeak
	}
	return m
}

func (s *solveState) houseBalance(pHouse, pAttic float64) float64 {
	hf := s.house(pHouse, pAttic)
	return hf.in - hf.out + hf.ceiling + hf.ductsOff + s.registers()
}

type atticFlows struct {
	in, out float64
}

func (s *solveState) attic(pAttic float64) atticFlows {
	var af atticFlows
	for i, l := range s.net.attic {
		dp := s.atticWind[i] - pAttic + psychro.Gravity*l.z*(s.rhoAttic-s.rhoOut)
		m := PowerLaw(l.c, l.n, dp, s.rhoOut, s.rhoAttic)
		if m > 0 {
			af.in += m
		} else {
			af.out -= m
		}
	}
	if f := s.forced.AtticFans; f > 0 {
		af.in += f
	} else {
		af.out -= f
	}
	return af
}

func (s *solveState) atticBalance(pAttic, pHouse float64) float64 {
	af := s.attic(pAttic)
	hf := s.house(pHouse, pAttic)
	m := af.in - af.out - hf.ceiling - hf.ductsOff
	if s.net.ductsInAttic {
		d := s.forced.Ducts
		m += d.SupplyLeak + d.ReturnLeak
	}
	return m
}

// Solve finds the house and attic pressures for one minute. The house is
// solved for the current attic pressure, then the attic for the new house
// pressure with under-relaxation, until the ceiling flow settles or the
// iteration cap is reached. A capped solve still returns its best estimate.
func (n *Network) Solve(bc Boundary, forced Forced, start Pressures) Result {
	s := n.newState(bc, forced)
	p := start
	ceilingOld := math.Inf(1)

	var r Result
	for iter := 1; ; iter++ {
		pAttic := p.Attic
		p.House = zoneRoot(func(x float64) float64 { return s.houseBalance(x, pAttic) }, p.House)
		hf := s.house(p.House, p.Attic)
		ceiling := hf.ceiling + hf.ductsOff
		r.Iterations = iter
		r.Delta = math.Abs(ceiling - ceilingOld)
		if r.Delta < n.params.Tolerance {
			r.Converged = true
			break
		}
		if iter >= n.params.MaxIterations {
			break
		}
		ceilingOld = ceiling
		old := p.Attic
		pHouse := p.House
		p.Attic = zoneRoot(func(x float64) float64 { return s.atticBalance(x, pHouse) }, p.Attic)
		p.Attic += (old - p.Attic) * n.params.Relaxation
	}

	hf := s.house(p.House, p.Attic)
	af := s.attic(p.Attic)
	r.Pressures = p
	r.HouseIn, r.HouseOut = hf.in, hf.out
	r.Flue = hf.flue
	r.Ceiling, r.DuctsOff = hf.ceiling, hf.ductsOff
	r.AtticIn, r.AtticOut = af.in, af.out
	r.Residual = s.houseBalance(p.House, p.Attic)
	r.AtticLeft = s.atticBalance(p.Attic, p.House)
	return r
}
