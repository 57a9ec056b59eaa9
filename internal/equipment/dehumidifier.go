package equipment

import (
	"math"

	"github.com/Agrid-Dev/housesim/internal/psychro"
)

const (
	kgPerPint = 0.473176
	// rated conditions: 26.7 C and 60 % RH
	dehumRatedRH = 60.0
)

type DehumidifierParams struct {
	Capacity     float64 // pints/day at rated conditions
	EnergyFactor float64 // L/kWh
	Setpoint     float64 // %RH
	DeadBand     float64 // %RH below the setpoint before it stops
}

func (params *DehumidifierParams) Validate() error {
	if params.Capacity <= 0 || params.EnergyFactor <= 0 {
		return ErrInvalidDehumidifier
	}
	if params.Setpoint <= 0 || params.Setpoint >= 100 || params.DeadBand < 0 {
		return ErrInvalidDehumidifier
	}
	return nil
}

type DehumidifierOutput struct {
	On         bool
	Removal    float64 // kg/s of water taken from house air
	Power      float64 // W electric
	Sensible   float64 // W released to house air
	Condensate float64 // kg this minute
}

// Dehumidifier is a standalone unit in the living space controlled on house
// relative humidity.
type Dehumidifier struct {
	params DehumidifierParams
	on     bool
	energy float64 // J
	water  float64 // kg
}

func NewDehumidifier(params DehumidifierParams) (*Dehumidifier, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Dehumidifier{params: params}, nil
}

// Step runs the unit for one minute at the given house RH (%).
func (d *Dehumidifier) Step(rh float64) DehumidifierOutput {
	switch {
	case rh > d.params.Setpoint:
		d.on = true
	case rh < d.params.Setpoint-d.params.DeadBand:
		d.on = false
	}
	if !d.on {
		return DehumidifierOutput{}
	}

	rated := d.params.Capacity * kgPerPint / 86400
	removal := rated * math.Min(1.5, math.Max(0, rh/dehumRatedRH))
	power := rated * 3600 / d.params.EnergyFactor * 1000 // L/h over L/kWh gives kW
	out := DehumidifierOutput{
		On:         true,
		Removal:    removal,
		Power:      power,
		Sensible:   power + removal*psychro.LatentHeat,
		Condensate: removal * psychro.Timestep,
	}
	d.energy += power * psychro.Timestep
	d.water += out.Condensate
	return out
}

// Energy is the electricity used so far, kWh.
func (d *Dehumidifier) Energy() float64 { return d.energy / 3.6e6 }

// Water is the condensate collected so far, kg.
func (d *Dehumidifier) Water() float64 { return d.water }

// ResetTotals clears the running energy and water totals.
func (d *Dehumidifier) ResetTotals() {
	d.energy = 0
	d.water = 0
}
