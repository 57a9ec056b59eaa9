// Package simulation runs one house minute by minute. Each minute it reads
// the weather and schedules, lets the thermostat and the ventilation fans
// decide, iterates the airflow and thermal networks to a common attic
// temperature and then advances moisture, exposure and the annual sums.
package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/Agrid-Dev/housesim/internal/airflow"
	"github.com/Agrid-Dev/housesim/internal/building"
	"github.com/Agrid-Dev/housesim/internal/equipment"
	"github.com/Agrid-Dev/housesim/internal/moisture"
	"github.com/Agrid-Dev/housesim/internal/psychro"
	"github.com/Agrid-Dev/housesim/internal/schedule"
	"github.com/Agrid-Dev/housesim/internal/solar"
	"github.com/Agrid-Dev/housesim/internal/thermal"
	"github.com/Agrid-Dev/housesim/internal/ventilation"
	"github.com/Agrid-Dev/housesim/internal/weather"
)

const (
	minutesPerDay = 1440
	// economizer runs only while the house is this much warmer than outside
	// and above 21 C
	economizerDelta = 3.33
	economizerFloor = 294.15

	defaultExposureLimit = 5.0
)

type Options struct {
	Logger *slog.Logger
	Sink   Sink
	Gate   Gate
}

// Simulator owns every piece of mutable state of one house.
type Simulator struct {
	in     Inputs
	params Params
	log    *slog.Logger
	sink   Sink
	gate   Gate

	network      *airflow.Network
	thermal      *thermal.Model
	moisture     *moisture.Model
	compressor   *equipment.Compressor
	furnace      *equipment.Furnace
	dehumidifier *equipment.Dehumidifier
	filter       *equipment.Filter
	regulator    *equipment.Regulator
	fans         *ventilation.Fans
	exposure     *ventilation.Exposure
	infiltration *ventilation.Infiltration
	pollutant    *ventilation.Pollutant
	season       *seasonTracker

	temps     thermal.Temperatures
	pressures airflow.Pressures
	ahMinutes int
	acc       accumulator
	schedule  schedule.FanSchedule
}

// New builds the component models of a house. Every configuration error is
// returned here so that Run only fails on I/O.
func New(in Inputs, params Params, opts Options) (*Simulator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, fmt.Errorf("house %s: %w", in.ID, err)
	}
	s := &Simulator{
		in:     in,
		params: params,
		log:    opts.Logger,
		sink:   opts.Sink,
		gate:   opts.Gate,
		season: newSeasonTracker(),
		temps:  thermal.InitialTemperatures(),
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.log = s.log.With("house", in.ID)
	if s.sink == nil {
		s.sink = discard{}
	}
	if err := s.build(in.Building); err != nil {
		return nil, fmt.Errorf("house %s: %w", in.ID, err)
	}
	return s, nil
}

func (s *Simulator) build(b *building.Building) error {
	var err error
	c := s.params.Convergence
	s.network, err = airflow.New(b, airflow.Params{
		Tolerance:     c.AirflowTolerance,
		MaxIterations: c.AirflowMaxIterations,
		Relaxation:    c.PressureRelaxation,
	})
	if err != nil {
		return err
	}
	if s.thermal, err = thermal.New(b); err != nil {
		return err
	}
	s.moisture, err = moisture.New(b, moisture.Params{
		InitialMC:        s.params.AtticMCInit,
		HouseCapacitance: s.params.HouseCapacitance,
	})
	if err != nil {
		return err
	}

	eq := b.Equipment
	if eq.RatedTons > 0 {
		s.compressor, err = equipment.NewCompressor(equipment.CompressorParams{
			NominalTons:           eq.NominalTons,
			RatedTons:             eq.RatedTons,
			EER:                   eq.EER,
			Charge:                eq.Charge,
			CapacityAdjustMinutes: s.params.CapacityAdjustMinutes,
		})
		if err != nil {
			return err
		}
	}
	if eq.FurnaceCapacity > 0 {
		s.furnace, err = equipment.NewFurnace(equipment.FurnaceParams{Capacity: b.HeatingCapacity(), AFUE: eq.AFUE})
		if err != nil {
			return err
		}
	}
	if eq.DehumCapacity > 0 {
		s.dehumidifier, err = equipment.NewDehumidifier(equipment.DehumidifierParams{
			Capacity:     eq.DehumCapacity,
			EnergyFactor: eq.DehumEnergyFactor,
			Setpoint:     eq.DehumSetpoint,
			DeadBand:     s.params.DehumDeadBand,
		})
		if err != nil {
			return err
		}
	}
	if b.Filter.Enabled {
		s.filter, err = equipment.NewFilter(equipment.FilterParams{
			MERV:               b.Filter.MERV,
			LoadingRate:        b.Filter.LoadingRate,
			BPMMotor:           b.Filter.BPMMotor,
			HeatingFlow:        eq.HeatingFlow,
			CoolingFlow:        eq.CoolingFlow,
			FanPowerHeating:    eq.FanPowerHeating,
			FanPowerCooling:    eq.FanPowerCooling,
			ReturnLeakFraction: b.Ducts.ReturnLeakFraction,
		})
		if err != nil {
			return err
		}
	}
	if s.regulator, err = equipment.NewRegulator(equipment.RegulatorParams{Hysteresis: s.params.Hysteresis}); err != nil {
		return err
	}

	if s.fans, err = ventilation.NewFans(b); err != nil {
		return err
	}
	limit := b.Ventilation.ExposureLimit
	if limit <= 0 {
		limit = defaultExposureLimit
	}
	s.exposure, err = ventilation.NewExposure(ventilation.ExposureParams{
		Aeq:           b.TargetACH(),
		ExposureLimit: limit,
		Interval:      s.params.ControlInterval,
		Timestep:      psychro.Timestep / 3600,
	}, s.fans.Control())
	if err != nil {
		return err
	}
	s.infiltration = ventilation.NewInfiltration(b)
	s.pollutant = ventilation.NewPollutant(b)
	return nil
}

// Run simulates the warm-up years and the reporting year. It returns early
// with the context error when cancelled.
func (s *Simulator) Run(ctx context.Context) error {
	years := s.params.WarmupYears + 1
	first, err := s.in.Weather.Minute(0)
	if err != nil {
		return fmt.Errorf("house %s: weather: %w", s.in.ID, err)
	}
	s.moisture.Init(s.temps, first.HumidityRatio, first.Pressure)

	for year := range years {
		report := s.params.AllYears || year == years-1
		if err := s.runYear(ctx, year, report); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulator) runYear(ctx context.Context, year int, report bool) error {
	s.log.Info("year start", "year", year, "reporting", report)
	if err := s.openSchedule(); err != nil {
		return err
	}
	defer s.schedule.Close()

	s.season.resetYear()
	s.thermal.SetSeason(true)
	s.acc = accumulator{}
	s.moisture.ResetCounters()
	if s.filter != nil {
		s.filter.ResetChanges()
	}
	if s.dehumidifier != nil {
		s.dehumidifier.ResetTotals()
	}

	for m := range weather.MinutesPerYear {
		if s.gate != nil {
			if err := s.gate.Wait(ctx); err != nil {
				return err
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		clock := Clock{
			Year:   year,
			Day:    m/minutesPerDay + 1,
			Hour:   m % minutesPerDay / 60,
			Minute: m % 60,
			Total:  year*weather.MinutesPerYear + m,
			Warmup: !report,
		}
		rec, err := s.step(clock)
		if err != nil {
			s.log.Error("minute failed", "year", year, "day", clock.Day, "hour", clock.Hour, "minute", clock.Minute, "err", err)
			return fmt.Errorf("house %s: %w", s.in.ID, err)
		}
		s.acc.add(rec)
		if report {
			if err := s.sink.Minute(rec); err != nil {
				return fmt.Errorf("house %s: minute output: %w", s.in.ID, err)
			}
		}
		if (m+1)%minutesPerDay == 0 {
			if err := s.endDay(clock, report); err != nil {
				return err
			}
		}
	}

	sum := s.summary(year)
	s.log.Info("year end", "year", year, "total_kwh", sum.TotalKWh, "mean_rel_exp", sum.RelExp, "mean_rel_dose", sum.RelDose)
	if report {
		if err := s.sink.Summary(sum); err != nil {
			return fmt.Errorf("house %s: summary output: %w", s.in.ID, err)
		}
	}
	return nil
}

func (s *Simulator) openSchedule() error {
	if s.in.Fans == nil {
		s.schedule = schedule.NoFans{}
		return nil
	}
	fs, err := s.in.Fans()
	if err != nil {
		return fmt.Errorf("house %s: fan schedule: %w", s.in.ID, err)
	}
	s.schedule = fs
	return nil
}

func (s *Simulator) endDay(c Clock, report bool) error {
	season := s.season.endDay()
	s.thermal.SetSeason(season == equipment.SeasonHeating)
	if s.filter == nil || !report {
		return nil
	}
	fs := s.filter.Current(c.Total)
	r := FilterRecord{
		House:           s.in.ID,
		Year:            c.Year,
		Day:             c.Day,
		Mass:            s.filter.Mass(),
		HeatingFlow:     fs.HeatingFlow,
		CoolingFlow:     fs.CoolingFlow,
		FanPowerHeating: fs.FanPowerHeating,
		FanPowerCooling: fs.FanPowerCooling,
		ReturnLeak:      fs.ReturnLeakFraction,
		Changes:         s.filter.Changes(),
	}
	if err := s.sink.Filter(r); err != nil {
		return fmt.Errorf("house %s: filter output: %w", s.in.ID, err)
	}
	return nil
}

func (s *Simulator) summary(year int) AnnualSummary {
	sum := s.acc.summary()
	sum.House = s.in.ID
	sum.RunID = s.in.RunID
	sum.Year = year
	sum.Mold = s.moisture.Mold()
	if s.filter != nil {
		sum.FilterChanges = s.filter.Changes()
	}
	return sum
}

// filterState is the blower performance this minute, clean ratings when
// filter loading is not modelled.
func (s *Simulator) filterState(total int) equipment.FilterState {
	if s.filter != nil {
		return s.filter.Current(total)
	}
	eq := s.in.Building.Equipment
	return equipment.FilterState{
		HeatingFlow:        eq.HeatingFlow,
		CoolingFlow:        eq.CoolingFlow,
		FanPowerHeating:    eq.FanPowerHeating,
		FanPowerCooling:    eq.FanPowerCooling,
		ReturnLeakFraction: s.in.Building.Ducts.ReturnLeakFraction,
	}
}

func (s *Simulator) setpoint(season equipment.Season, hour int) float64 {
	if season == equipment.SeasonCooling {
		return s.in.Thermostat.Cool[hour]
	}
	return s.in.Thermostat.Heat[hour]
}

// blower is the air handler flow (m3/s), its electric power charged to the
// air handler and the fan heat released into the supply air.
func blower(mode equipment.Mode, fs equipment.FilterState) (q, power, fanHeat float64) {
	switch mode {
	case equipment.ModeHeating, equipment.ModeHeatingCooldown:
		q, power = fs.HeatingFlow, fs.FanPowerHeating
	case equipment.ModeCooling:
		q, power = fs.CoolingFlow, fs.FanPowerCooling
	case equipment.ModeVenting:
		// power is counted as mechanical ventilation by the dispatch
		return fs.CoolingFlow, 0, equipment.FanHeatFraction * fs.FanPowerCooling
	}
	return q, power, equipment.FanHeatFraction * power
}

// step advances the house by one minute.
func (s *Simulator) step(c Clock) (*MinuteRecord, error) {
	b := s.in.Building
	w, err := s.in.Weather.Minute(c.MinuteOfYear())
	if err != nil {
		return nil, fmt.Errorf("weather: %w", err)
	}
	flags, err := s.schedule.Next()
	if err != nil {
		return nil, fmt.Errorf("fan schedule: %w", err)
	}
	s.season.add(w.DryBulb)
	if c.Minute == 0 {
		s.ahMinutes = 0
	}

	weekend := (c.Day-1)%7 >= 5
	occupied := s.in.Occupancy.Occupied(weekend, c.Hour)
	site := s.in.Weather.Site()
	sun := solar.ForDay(c.Day, site.Longitude, site.TimeZone).Sun(site.Latitude, c.Hour, c.Minute)
	gains := solar.Compute(sun, w.DirectNormal, w.GlobalHorizontal, b.Attic.RoofPitch)

	tOut := w.DryBulb
	tHouse := s.temps[thermal.HouseAir]
	tAttic := s.temps[thermal.AtticAir]
	season := s.season.current()
	setpoint := s.setpoint(season, c.Hour)

	mode := s.regulator.Activate(season, setpoint, tHouse)
	if mode.Thermal() {
		s.ahMinutes++
	}
	fs := s.filterState(c.Total)
	economizer := season == equipment.SeasonCooling && !mode.BlowerOn() && s.fans.HasEconomizer() &&
		tHouse-tOut >= economizerDelta && tHouse > economizerFloor

	rhoOut := psychro.AirDensity(tOut)
	rhoHouse := psychro.AirDensity(tHouse)
	rhoAttic := psychro.AirDensity(tAttic)

	rivecOn := s.exposure.Decide(c.Minute, occupied)
	d := s.fans.Dispatch(ventilation.Conditions{
		Hour:           c.Hour,
		Minute:         c.Minute,
		Weekend:        weekend,
		Season:         season,
		Mode:           mode,
		AHMinutes:      s.ahMinutes,
		RivecOn:        rivecOn,
		Economizer:     economizer,
		Scheduled:      flags,
		OutdoorDensity: rhoOut,
		HouseDensity:   rhoHouse,
		CoolingFlow:    fs.CoolingFlow,
		HeatingFlow:    fs.HeatingFlow,
	})
	if d.Venting {
		s.ahMinutes++
	}
	mode = d.Mode

	q, ahPower, fanHeat := blower(mode, fs)
	ahPower += d.EconomizerPower
	ducts := equipment.NewDuctFlows(q, b.Ducts.SupplyLeakFraction, fs.ReturnLeakFraction, rhoHouse)
	ducts.ReturnRegister = math.Min(ducts.ReturnRegister+d.ReturnOutdoor, 0)

	comp := equipment.CompressorOutput{SHR: 1}
	if s.compressor != nil {
		comp = s.compressor.Step(mode, equipment.CoilConditions{
			OutdoorTemp:    tOut,
			ReturnTemp:     s.temps[thermal.ReturnDuctAir],
			ReturnHumidity: s.moisture.HumidityRatio(moisture.ReturnAir),
			MassFlow:       ducts.AirHandler,
			Airflow:        q,
			FanHeat:        fanHeat,
		})
	}
	furnace := equipment.FurnaceOutput{}
	switch {
	case s.furnace != nil:
		furnace = s.furnace.Output(mode, fanHeat)
	case mode != equipment.ModeCooling:
		furnace.Heat = fanHeat
	}
	var dh equipment.DehumidifierOutput
	if s.dehumidifier != nil {
		dh = s.dehumidifier.Step(s.moisture.State(moisture.HouseAir).RH())
	}
	atticFans, atticFanPower := airflow.AtticFans(b.Attic.Fans, tAttic, rhoAttic)

	forced := airflow.Forced{
		FanSupply:  d.FanSupply,
		FanExhaust: d.FanExhaust,
		AtticFans:  atticFans,
		Ducts:      ducts,
	}
	if economizer {
		forced.ReliefC = b.EconomizerReliefC()
	}
	outdoor := thermal.Outdoor{
		Temp:      tOut,
		WindSpeed: w.WindSpeedLocal,
		SkyCover:  w.SkyCover,
		SouthRoof: gains.SouthRoof,
		NorthRoof: gains.NorthRoof,
		Walls:     gains.Walls,
		SolAir:    tOut + gains.SolAirRise,
		Windows:   gains.WindowGain(b.Envelope.ShadingCoef, b.Envelope.WindowSouth, b.Envelope.WindowEastWest, b.Envelope.WindowNorth),
	}
	loads := thermal.Loads{
		Internal:     b.Envelope.InternalGains + d.FanHeat,
		Heating:      furnace.Heat,
		Cooling:      comp.Sensible,
		Evaporation:  -comp.Evaporation * psychro.LatentHeat,
		Dehumidifier: dh.Sensible,
	}

	cs, err := s.converge(c, w, forced, d, outdoor, loads, mode.BlowerOn())
	if err != nil {
		return nil, err
	}
	res, flows := cs.airflow, cs.flows
	s.temps = cs.temps
	s.pressures = res.Pressures
	tHouse = s.temps[thermal.HouseAir]

	err = s.moisture.Step(moisture.Inputs{
		Temps:      s.temps,
		Pressure:   w.Pressure,
		OutdoorW:   w.HumidityRatio,
		Flows:      flows,
		AtticFilmH: s.thermal.AtticConvection(res.AtticIn),
		Sources: moisture.Sources{
			Latent:          b.Envelope.LatentLoad,
			Dehumidifier:    dh.Removal,
			CoilCondensing:  math.Max(comp.Latent, 0) / psychro.LatentHeat,
			CoilEvaporating: comp.Evaporation,
		},
		ReturnOutdoorLatent: d.ReturnLatent,
	})
	if err != nil {
		return nil, fmt.Errorf("moisture: %w", err)
	}
	if c.Minute == 59 {
		s.moisture.MoldUpdate()
	}
	if s.filter != nil && q > 0 {
		s.filter.Load(ducts.AirHandler, psychro.Timestep)
	}

	// exposure sees every whole-house path, the flue included
	volume := b.Geometry.HouseVolume
	toACH := 3600 / volume
	qHouse := math.Max(res.HouseIn, res.HouseOut) / rhoHouse
	flueACH := math.Abs(res.Flue) / rhoHouse * toACH
	ventSum := math.Max(d.VentSum(b.Ventilation.AuxFans)+flueACH, 1e-6)
	rates := s.infiltration.Rates(ventSum, w.WindSpeed, tOut, tHouse)
	s.exposure.Update(rates.Total, occupied)

	qAH := 0.0
	if mode.BlowerOn() {
		qAH = q
	}
	conc := s.pollutant.Step(qHouse, qAH, psychro.Timestep)

	if !cs.airflowConverged {
		s.acc.airflowMisses++
	}
	if !cs.thermalConverged {
		s.acc.thermalMisses++
	}

	house := s.moisture.State(moisture.HouseAir)
	wHouse := s.moisture.HumidityRatio(moisture.HouseAir)
	wAttic := s.moisture.HumidityRatio(moisture.AtticAir)
	s.acc.ventilationLoad(res.HouseIn, math.Max(res.CeilingTotal(), 0), tHouse, wHouse, tOut, w.HumidityRatio, s.temps[thermal.AtticAir], wAttic)

	rec := &MinuteRecord{
		House:          s.in.ID,
		Clock:          c,
		WindSpeed:      w.WindSpeed,
		TempOut:        tOut,
		TempHouse:      tHouse,
		Setpoint:       setpoint,
		TempAttic:      s.temps[thermal.AtticAir],
		TempSupply:     s.temps[thermal.SupplyDuctAir],
		TempReturn:     s.temps[thermal.ReturnDuctAir],
		Temps:          s.temps,
		Mode:           mode,
		ModeCode:       mode.Code(),
		AHPower:        ahPower,
		Compressor:     comp.Power,
		MechVent:       d.MechVentPower + atticFanPower,
		Gas:            furnace.Gas,
		Dehumidifer:    dh.Power,
		SHR:            comp.SHR,
		CoilWater:      comp.Coil,
		HousePressure:  res.House,
		AtticPressure:  res.Attic,
		QHouse:         qHouse,
		HouseACH:       qHouse * toACH,
		FlueACH:        flueACH,
		VentSum:        ventSum,
		NonRivecSum:    d.NonRivecVentSum(),
		Infiltration:   rates.Infiltration,
		TotalACH:       rates.Total,
		RivecOn:        d.RivecRunning,
		RelExp:         s.exposure.RelExp(),
		RelDose:        s.exposure.RelDose(),
		Occupied:       occupied,
		Economizer:     economizer,
		HROut:          w.HumidityRatio,
		HRAttic:        wAttic,
		HRReturn:       s.moisture.HumidityRatio(moisture.ReturnAir),
		HRSupply:       s.moisture.HumidityRatio(moisture.SupplyAir),
		HRHouse:        wHouse,
		RHHouse:        house.RH(),
		RHAttic:        s.moisture.State(moisture.AtticAir).RH(),
		HumidityIndex:  humidityIndex(house.RH()),
		DHCondensate:   dh.Condensate,
		CoilCondensate: comp.Condensate,
		Pollutant:      conc,
		Mold:           s.moisture.Mold(),
		HouseIn:        res.HouseIn,
		HouseOut:       res.HouseOut,
		Ceiling:        res.CeilingTotal(),
		AtticIn:        res.AtticIn,
		AtticOut:       res.AtticOut,
		SupplyReg:      ducts.SupplyRegister,
		ReturnReg:      ducts.ReturnRegister,
		RhoOut:         rhoOut,
		RhoHouse:       rhoHouse,
		RhoAttic:       psychro.AirDensity(s.temps[thermal.AtticAir]),
	}
	for _, f := range s.fans.Fans() {
		rec.Fans = append(rec.Fans, f.On)
	}
	for i := range moisture.NodeCount {
		st := s.moisture.State(moisture.Node(i))
		rec.Moisture[i] = MoistureNode{
			Temp:             st.Temp,
			VaporPressure:    st.VaporPressure,
			Content:          st.Content,
			Condensed:        st.Condensed,
			SaturatedMinutes: st.SaturatedMinutes,
		}
	}
	return rec, nil
}
