// Package airflow solves the house and attic pressure network. Every leak
// follows the power law m = rho*C*|dP|^n, driven by wind, stack effect and
// forced flows from fans and the air handler.
package airflow

import (
	"fmt"
	"math"

	"github.com/Agrid-Dev/housesim/internal/building"
	"github.com/Agrid-Dev/housesim/internal/equipment"
	"github.com/Agrid-Dev/housesim/internal/psychro"
)

const (
	wallBands      = 10
	openingBands   = 5
	dischargeCoeff = 0.6
	orificeExp     = 0.5
)

// Params bound the coupled house and attic iteration.
type Params struct {
	Tolerance     float64 // kg/s change in ceiling flow
	MaxIterations int
	Relaxation    float64 // fraction of the previous attic pressure kept
}

func (params *Params) Validate() error {
	if params.Tolerance <= 0 || params.MaxIterations <= 0 || params.Relaxation < 0 || params.Relaxation >= 1 {
		return ErrInvalidConvergence
	}
	return nil
}

func DefaultParams() Params {
	return Params{Tolerance: 1e-4, MaxIterations: 10, Relaxation: 0.6}
}

// leak is a power-law path through a wall (0-3), the roof (4) or, with wall
// -1, a path whose outside pressure is the mean of the four walls.
type leak struct {
	wall    int
	z       float64
	c, n    float64
	shelter float64 // multiplies the wall shelter; 0 means use the wall's
}

type flue struct {
	c, height, temp float64
}

// pipe uses its own shelter factors: onWindward when its wall faces the
// wind and onLeeward otherwise.
type pipe struct {
	leak
	onWindward, onLeeward float64
}

// Network is the static leakage description of one house and its attic.
type Network struct {
	params Params

	walls    []leak
	floor    []leak
	openings []leak
	pipes    []pipe
	flues    []flue
	ceiling  leak

	attic []leak

	ductSupply, ductReturn leak
	ductsInAttic           bool

	eave        float64
	floorZ      float64
	rowHouse    bool
	flueShelter float64
	wallShares  [4]float64
	envExp      float64
}

func orificeC(area float64) float64 {
	return dischargeCoeff * area * math.Sqrt(2/psychro.AirDensityRef)
}

// New builds the leak network of a building.
func New(b *building.Building, params Params) (*Network, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	env := b.Envelope
	g := b.Geometry
	if env.C <= 0 && len(env.Flues) == 0 && len(env.Openings) == 0 {
		return nil, ErrNoLeakage
	}
	n := &Network{
		params:       params,
		eave:         g.EaveHeight,
		floorZ:       g.FloorHeight,
		rowHouse:     g.RowHouse,
		flueShelter:  env.FlueShelter * env.FlueShelter,
		ductsInAttic: b.Ducts.Location == building.DuctsInAttic,
		envExp:       env.Exp,
	}

	var wallSum float64
	for _, f := range env.WallFraction {
		wallSum += f
	}
	for w, f := range env.WallFraction {
		if wallSum > 0 {
			n.wallShares[w] = f / wallSum
		}
	}

	cWall := env.C * b.WallLeakFraction()
	band := (g.EaveHeight - g.FloorHeight) / wallBands
	for w := range 4 {
		for i := range wallBands {
			n.walls = append(n.walls, leak{
				wall: w,
				z:    g.FloorHeight + (float64(i)+0.5)*band,
				c:    cWall * n.wallShares[w] / wallBands,
				n:    env.Exp,
			})
		}
	}

	cFloor := env.C * b.FloorLeakFraction()
	if g.Crawlspace {
		n.floor = append(n.floor, leak{wall: -1, z: g.FloorHeight, c: cFloor, n: env.Exp})
	} else {
		var floorSum float64
		for _, f := range env.FloorFraction {
			floorSum += f
		}
		for w, f := range env.FloorFraction {
			if floorSum > 0 && f > 0 {
				n.floor = append(n.floor, leak{wall: w, z: g.FloorHeight, c: cFloor * f / floorSum, n: env.Exp})
			}
		}
	}

	n.ceiling = leak{z: g.EaveHeight, c: env.C * b.CeilingLeakFraction(), n: env.Exp}
	n.ductSupply = leak{z: g.EaveHeight, c: b.Ducts.SupplyC, n: b.Ducts.SupplyExp}
	n.ductReturn = leak{z: g.EaveHeight, c: b.Ducts.ReturnC, n: b.Ducts.ReturnExp}

	for _, f := range env.Flues {
		n.flues = append(n.flues, flue{c: f.C, height: f.Height, temp: f.Temp})
	}
	for _, p := range env.Pipes {
		n.pipes = append(n.pipes, pipe{
			leak:       leak{wall: p.Wall, z: p.Height, c: orificeC(p.Area), n: p.Exp, shelter: 1},
			onWindward: p.Shelter * p.Shelter,
			onLeeward:  p.ShelterOff * p.ShelterOff,
		})
	}
	for _, o := range env.Openings {
		top := o.Top
		if o.High > 0 {
			top = math.Min(o.Top, o.Bottom+o.High)
		}
		h := (top - o.Bottom) / openingBands
		if h <= 0 || o.Wide <= 0 {
			continue
		}
		for i := range openingBands {
			n.openings = append(n.openings, leak{
				wall: o.Wall,
				z:    o.Bottom + (float64(i)+0.5)*h,
				c:    orificeC(o.Wide * h),
				n:    orificeExp,
			})
		}
	}

	a := b.Attic
	for w := range 4 {
		if f := a.SoffitFraction[w]; f > 0 {
			n.attic = append(n.attic, leak{wall: w, z: a.SoffitHeight[w], c: a.C * f, n: a.Exp})
		}
	}
	if f := a.SoffitFraction[4]; f > 0 {
		n.attic = append(n.attic, leak{wall: Roof, z: a.RoofPeakHeight, c: a.C * f, n: a.Exp})
	}
	for _, v := range a.Vents {
		if v.Wall < 0 || v.Wall > Roof {
			return nil, fmt.Errorf("%w: attic vent on wall %d", building.ErrInvalidGeometry, v.Wall)
		}
		exp := v.Exp
		if exp == 0 {
			exp = orificeExp
		}
		n.attic = append(n.attic, leak{wall: v.Wall, z: v.Height, c: orificeC(v.Area), n: exp})
	}
	return n, nil
}

// Pressures are the zone reference pressures at ground level relative to
// outdoors, carried from one minute to the next.
type Pressures struct {
	House float64
	Attic float64
}

// Forced are the flows imposed by fans and the air handler, kg/s.
type Forced struct {
	FanSupply  float64 // into the house from outdoors
	FanExhaust float64 // out of the house to outdoors
	AtticFans  float64 // net into the attic from outdoors
	Ducts      equipment.DuctFlows

	// ReliefC is extra envelope leakage opened while an economizer runs.
	ReliefC float64
}

// Result is the converged airflow state. Flows are kg/s.
type Result struct {
	Pressures

	HouseIn   float64 // from outdoors, fans included
	HouseOut  float64 // to outdoors, fans included
	Flue      float64 // net, positive inward
	Ceiling   float64 // envelope ceiling leak, positive attic to house
	DuctsOff  float64 // idle duct leakage, positive attic to house
	AtticIn   float64 // attic from outdoors, fans included
	AtticOut  float64
	Residual  float64 // house mass balance at the solution
	AtticLeft float64 // attic mass balance at the solution

	Iterations int
	Converged  bool
	Delta      float64 // last change in ceiling flow
}

// CeilingTotal is every flow across the ceiling plane, positive downward.
func (r Result) CeilingTotal() float64 { return r.Ceiling + r.DuctsOff }

// PowerLaw is the mass flow through a leak for a pressure difference dp,
// positive in the direction of dp. Upstream density is rhoPos when dp > 0
// and rhoNeg otherwise.
func PowerLaw(c, n, dp, rhoPos, rhoNeg float64) float64 {
	switch {
	case dp > 0:
		return rhoPos * c * math.Pow(dp, n)
	case dp < 0:
		return -rhoNeg * c * math.Pow(-dp, n)
	}
	return 0
}
