package ventilation

import (
	"math"

	"github.com/Agrid-Dev/housesim/internal/building"
)

// Infiltration estimates envelope infiltration with the AIM-2 stack and
// wind terms and superposes it with unbalanced fan flow as in ASHRAE
// 62.2-2016.
type Infiltration struct {
	c, n      float64
	windMult  float64
	shelter   float64
	stackCoef float64
	windCoef  float64
	annual    float64 // m3/s
	realTime  bool
	volume    float64
}

func NewInfiltration(b *building.Building) *Infiltration {
	inf := b.Infiltration
	return &Infiltration{
		c:         b.Envelope.C,
		n:         b.Envelope.Exp,
		windMult:  inf.WindSpeedMultiplier,
		shelter:   inf.ShelterFactor,
		stackCoef: inf.StackCoef,
		windCoef:  inf.WindCoef,
		annual:    b.AnnualInfiltration() / 1000,
		realTime:  inf.RealTime,
		volume:    b.Geometry.HouseVolume,
	}
}

// InfiltrationRates are volumetric rates in air changes per hour.
type InfiltrationRates struct {
	Wind, Stack  float64
	Infiltration float64
	Total        float64
}

// Rates combines fan ventilation ventACH with infiltration at the given
// weather. Temperatures are K, wind m/s.
func (m *Infiltration) Rates(ventACH, windSpeed, tOut, tIn float64) InfiltrationRates {
	toACH := 3600 / m.volume
	stack := m.c * math.Pow(m.stackCoef*math.Abs(tIn-tOut), m.n)
	u := m.shelter * m.windMult * windSpeed
	wind := m.c * math.Pow(m.windCoef*u*u, m.n)
	q := math.Hypot(stack, wind)
	if !m.realTime {
		q = m.annual
	}
	fan := ventACH / toACH
	phi := 1.0
	if q+fan > 0 {
		phi = q / (q + fan)
	}
	return InfiltrationRates{
		Wind:         wind * toACH,
		Stack:        stack * toACH,
		Infiltration: q * toACH,
		Total:        (fan + phi*q) * toACH,
	}
}
