package equipment

import (
	"math"

	"github.com/Agrid-Dev/housesim/internal/psychro"
)

const (
	btuPerWatt = 3.413
	cfmPerM3s  = 1 / 0.0004719

	// coilHoldup is the water the coil can hold, kg per nominal ton.
	coilHoldup = 0.3
	// coilDrainTime is the time a full coil takes to evaporate, s.
	coilDrainTime = 1800.0
)

type CompressorParams struct {
	NominalTons float64 // airflow correction and coil hold-up basis
	RatedTons   float64
	EER         float64
	Charge      float64 // fraction of correct refrigerant charge

	// CapacityAdjustMinutes scales capacity down over the first minutes of
	// a cycle. Zero disables it.
	CapacityAdjustMinutes int
}

func (params *CompressorParams) Validate() error {
	if params.NominalTons <= 0 || params.RatedTons <= 0 || params.EER <= 0 || params.Charge <= 0 {
		return ErrInvalidCompressor
	}
	return nil
}

// CoilConditions are the inputs the compressor sees each minute.
type CoilConditions struct {
	OutdoorTemp    float64 // K
	ReturnTemp     float64 // K
	ReturnHumidity float64 // kg/kg
	MassFlow       float64 // kg/s through the air handler
	Airflow        float64 // m3/s through the air handler
	FanHeat        float64 // W
}

type CompressorOutput struct {
	Capacity    float64 // total, Btu/h
	Sensible    float64 // W removed from supply air, net of fan heat
	Latent      float64 // W, negative while the coil evaporates
	Evaporation float64 // kg/s of coil water returned to the air stream
	Power       float64 // W
	EER         float64
	SHR         float64
	Coil        float64 // kg of water on the coil
	Condensate  float64 // kg drained this minute
}

// Compressor is a TXV split system with charge, airflow and outdoor
// temperature corrections and a coil water balance.
type Compressor struct {
	params CompressorParams
	onTime int
	coil   float64
}

func NewCompressor(params CompressorParams) (*Compressor, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Compressor{params: params}, nil
}

// MaxCoilMoisture is the water the coil holds before draining, kg.
func (c *Compressor) MaxCoilMoisture() float64 { return coilHoldup * c.params.NominalTons }

func (c *Compressor) Coil() float64 { return c.coil }

// OnTime is the number of consecutive cooling minutes including this one.
func (c *Compressor) OnTime() int { return c.onTime }

// AirflowCorrection is the capacity and EER multiplier for a blower flow
// that differs from 400 cfm per nominal ton.
func AirflowCorrection(airflow, nominalTons float64) float64 {
	if airflow <= 0 || nominalTons <= 0 {
		return 1
	}
	x := airflow * cfmPerM3s / (400 * nominalTons)
	return 1.62 - 0.62*x + 0.647*math.Log(x)
}

// SteadySHR is the sensible heat ratio from return humidity, clamped to
// [0.25, 1].
func SteadySHR(returnHumidity float64) float64 {
	return math.Min(1, math.Max(0.25, 1-50*(returnHumidity-0.005)))
}

func dryChargeCorrections(charge float64) (capacity, eer float64) {
	capacity = 0.925
	if charge < 0.725 {
		capacity = 1.2 + (charge - 1)
	}
	if charge < 1 {
		eer = 1.04 + (charge-1)*0.65
	} else {
		eer = 1.04 - (charge-1)*0.35
	}
	return capacity, eer
}

func wetChargeCorrections(charge float64) (capacity, eer float64) {
	capacity, eer = 1, 1
	if charge < 0.85 {
		capacity = 1 + (charge - 0.85)
		eer = 1 + (charge-0.85)*0.9
	} else if charge > 1 {
		eer = 1 - (charge-1)*0.35
	}
	return capacity, eer
}

// Step advances the compressor by one minute in the given mode.
func (c *Compressor) Step(mode Mode, in CoilConditions) CompressorOutput {
	out := CompressorOutput{SHR: 1}
	if mode == ModeCooling {
		c.onTime++
		out = c.cool(in)
	} else {
		c.onTime = 0
	}

	dt := psychro.Timestep
	maxCoil := c.MaxCoilMoisture()
	switch {
	case mode == ModeCooling && out.SHR < 1:
		out.Latent = (1 - out.SHR) * out.Capacity / btuPerWatt
		c.coil += out.Latent / psychro.LatentHeat * dt
	case (mode == ModeCooling || mode == ModeVenting) && c.coil > 0:
		rate := maxCoil / coilDrainTime
		evap := math.Min(rate*dt, c.coil)
		c.coil -= evap
		out.Evaporation = evap / dt
		out.Latent = -out.Evaporation * psychro.LatentHeat
	}
	if c.coil > maxCoil {
		out.Condensate = c.coil - maxCoil
		c.coil = maxCoil
	}
	if c.coil < 0 {
		c.coil = 0
	}
	out.Coil = c.coil
	return out
}

func (c *Compressor) cool(in CoilConditions) CompressorOutput {
	p := c.params
	tOut := psychro.KToF(in.OutdoorTemp)
	corr := AirflowCorrection(in.Airflow, p.NominalTons)
	ratedBtu := p.RatedTons * 12000

	shr := SteadySHR(in.ReturnHumidity)
	var capacity, eer float64
	if shr == 1 {
		capCharge, eerCharge := dryChargeCorrections(p.Charge)
		d := tOut - 82
		capacity = ratedBtu * 0.91 * corr * capCharge * (-0.00007*d*d - 0.0067*d + 1)
		eer = p.EER * corr * eerCharge * (-0.00007*d*d - 0.0085*d + 1)
	} else {
		capCharge, eerCharge := wetChargeCorrections(p.Charge)
		tRet := psychro.KToF(in.ReturnTemp)
		hRet := 0.24*tRet + in.ReturnHumidity*(1061+0.444*tRet) // Btu/lb
		if in.MassFlow > 0 {
			hRet += in.FanHeat / in.MassFlow / 2326
		}
		d := tOut - 95
		capacity = ratedBtu * (1 + (hRet-30)*0.025) * corr * capCharge * (-0.00007*d*d - 0.0067*d + 1)
		eer = p.EER * corr * eerCharge * (-0.00007*d*d - 0.0085*d + 1)
	}
	capacity = math.Max(capacity, 0)

	out := CompressorOutput{EER: eer}
	if eer > 0 {
		out.Power = capacity / eer
	}

	switch c.onTime {
	case 1:
		shr += 2.0 / 3.0 * (1 - shr)
	case 2:
		shr += 1.0 / 3.0 * (1 - shr)
	}
	if n := p.CapacityAdjustMinutes; n > 0 && c.onTime < n {
		capacity *= float64(c.onTime) / float64(n)
	}
	out.SHR = shr
	out.Capacity = capacity
	out.Sensible = shr*capacity/btuPerWatt - in.FanHeat
	return out
}
