package ventilation

import (
	"math"

	"github.com/Agrid-Dev/housesim/internal/building"
)

// Pollutant is a well-mixed indoor concentration with an indoor source,
// outdoor penetration, deposition and air handler filtration.
type Pollutant struct {
	params building.Pollutant
	volume float64
	conc   float64
}

func NewPollutant(b *building.Building) *Pollutant {
	return &Pollutant{params: b.Pollutant, volume: b.Geometry.HouseVolume, conc: b.Pollutant.OutdoorConc}
}

func (p *Pollutant) Concentration() float64 { return p.conc }

// Step advances the concentration by dt seconds with house air exchange
// qHouse and air handler flow qAH (m3/s, zero when off).
func (p *Pollutant) Step(qHouse, qAH, dt float64) float64 {
	pp := p.params
	loss := qHouse + pp.Deposition + qAH*pp.FilterEff
	gain := pp.Penetration*qHouse*pp.OutdoorConc + pp.Source*p.volume
	if loss <= 0 {
		p.conc += gain * dt / p.volume
		return p.conc
	}
	steady := gain / loss
	p.conc = steady + (p.conc-steady)*math.Exp(-loss*dt/p.volume)
	return p.conc
}
