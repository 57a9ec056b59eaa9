package simulation

import (
	"math"

	"github.com/Agrid-Dev/housesim/internal/psychro"
)

const (
	joulesPerKWh   = 3.6e6
	joulesPerTherm = 1.055e8
)

// accumulator sums one reporting period of minute records.
type accumulator struct {
	minutes int

	tempOut, tempAttic, tempHouse float64
	houseACH, flueACH             float64
	relExp, relDose               float64

	ahEnergy, compEnergy, ventEnergy, gasEnergy, dhEnergy float64 // J

	occupied, rivec  int
	rh60, rh70       int
	humidityIndex    float64
	dryLoad, moistLd float64 // kJ
	dhCondensate     float64
	coilCondensate   float64

	airflowMisses, thermalMisses int
}

func (a *accumulator) add(r *MinuteRecord) {
	dt := psychro.Timestep
	a.minutes++
	a.tempOut += r.TempOut
	a.tempAttic += r.TempAttic
	a.tempHouse += r.TempHouse
	a.houseACH += r.HouseACH
	a.flueACH += r.FlueACH
	a.relExp += r.RelExp
	a.relDose += r.RelDose

	a.ahEnergy += r.AHPower * dt
	a.compEnergy += r.Compressor * dt
	a.ventEnergy += r.MechVent * dt
	a.gasEnergy += r.Gas * dt
	a.dhEnergy += r.Dehumidifer * dt

	if r.Occupied {
		a.occupied++
	}
	if r.RivecOn {
		a.rivec++
	}
	if r.RHHouse >= 60 {
		a.rh60++
	}
	if r.RHHouse >= 70 {
		a.rh70++
	}
	a.humidityIndex += r.HumidityIndex
	a.dhCondensate += r.DHCondensate
	a.coilCondensate += r.CoilCondensate
}

// ventilationLoad adds the enthalpy carried by air entering the house
// through the envelope and the ceiling this minute, kJ.
func (a *accumulator) ventilationLoad(houseIn, ceilingIn, tHouse, wHouse, tOut, wOut, tAttic, wAttic float64) {
	dt := psychro.Timestep
	dry := func(t1, t2 float64) float64 { return psychro.CpAir / 1000 * math.Abs(t1-t2) }
	moist := func(t1, w1, t2, w2 float64) float64 {
		return math.Abs(psychro.Enthalpy(t1, w1)-psychro.Enthalpy(t2, w2)) / 1000
	}
	a.dryLoad += (houseIn*dry(tHouse, tOut) + ceilingIn*dry(tHouse, tAttic)) * dt
	a.moistLd += (houseIn*moist(tHouse, wHouse, tOut, wOut) + ceilingIn*moist(tHouse, wHouse, tAttic, wAttic)) * dt
}

// summary closes the period. Counts that live on the equipment, such as
// filter changes and mold, are filled in by the caller.
func (a *accumulator) summary() AnnualSummary {
	n := float64(max(a.minutes, 1))
	s := AnnualSummary{
		TempOut:   a.tempOut / n,
		TempAttic: a.tempAttic / n,
		TempHouse: a.tempHouse / n,
		HouseACH:  a.houseACH / n,
		FlueACH:   a.flueACH / n,
		RelExp:    a.relExp / n,
		RelDose:   a.relDose / n,

		AirHandlerKWh:   a.ahEnergy / joulesPerKWh,
		CompressorKWh:   a.compEnergy / joulesPerKWh,
		MechVentKWh:     a.ventEnergy / joulesPerKWh,
		FurnaceTherms:   a.gasEnergy / joulesPerTherm,
		DehumidifierKWh: a.dhEnergy / joulesPerKWh,

		OccupiedMinutes: a.occupied,
		RivecMinutes:    a.rivec,
		RH60Minutes:     a.rh60,
		RH70Minutes:     a.rh70,
		RH60Fraction:    float64(a.rh60) / n,
		RH70Fraction:    float64(a.rh70) / n,
		HumidityIndex:   a.humidityIndex / n,
		DryAirLoad:      a.dryLoad / 3600,
		MoistAirLoad:    a.moistLd / 3600,
		DHCondensate:    a.dhCondensate,
		CoilCondensate:  a.coilCondensate,

		AirflowNonConverged: a.airflowMisses,
		ThermalNonConverged: a.thermalMisses,
	}
	s.TotalKWh = s.AirHandlerKWh + s.CompressorKWh + s.MechVentKWh + s.DehumidifierKWh
	return s
}

// humidityIndex scales house RH above 60 % onto 0..1.
func humidityIndex(rh float64) float64 {
	if rh < 60 {
		return 0
	}
	return (rh - 60) / 40
}
