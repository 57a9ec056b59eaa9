package simulation

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/Agrid-Dev/housesim/internal/equipment"
	"github.com/Agrid-Dev/housesim/internal/psychro"
	"github.com/Agrid-Dev/housesim/internal/schedule"
	"github.com/Agrid-Dev/housesim/internal/testutil/housetest"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

type recordingSink struct {
	minutes   []MinuteRecord
	filters   []FilterRecord
	summaries []AnnualSummary
}

func (r *recordingSink) Minute(m *MinuteRecord) error {
	r.minutes = append(r.minutes, *m)
	return nil
}

func (r *recordingSink) Filter(f FilterRecord) error {
	r.filters = append(r.filters, f)
	return nil
}

func (r *recordingSink) Summary(s AnnualSummary) error {
	r.summaries = append(r.summaries, s)
	return nil
}

var errStop = errors.New("stop")

// stopAfter lets limit minutes through, then fails.
type stopAfter struct {
	n, limit int
}

func (g *stopAfter) Wait(ctx context.Context) error {
	if g.n >= g.limit {
		return errStop
	}
	g.n++
	return ctx.Err()
}

func newInputs(t *testing.T, meanC, rh float64) Inputs {
	t.Helper()
	return Inputs{
		ID:         "ranch",
		RunID:      "run-1",
		Building:   housetest.LoadHouse(t),
		Weather:    housetest.Weather(t, meanC, rh),
		Thermostat: housetest.Thermostat(),
		Occupancy:  housetest.Occupancy(false),
		Shelter:    schedule.UniformShelter(0.7),
	}
}

func newSimulator(t *testing.T, in Inputs, opts Options) *Simulator {
	t.Helper()
	s, err := New(in, DefaultParams(), opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.moisture.Init(s.temps, 0.005, psychro.PressureStd)
	if err := s.openSchedule(); err != nil {
		t.Fatalf("openSchedule: %v", err)
	}
	return s
}

// runMinutes steps the simulator from the start of the year.
func runMinutes(t *testing.T, s *Simulator, n int) []MinuteRecord {
	t.Helper()
	out := make([]MinuteRecord, 0, n)
	for m := range n {
		c := Clock{Day: m/minutesPerDay + 1, Hour: m % minutesPerDay / 60, Minute: m % 60, Total: m}
		rec, err := s.step(c)
		if err != nil {
			t.Fatalf("minute %d: %v", m, err)
		}
		out = append(out, *rec)
	}
	return out
}

func TestParamsValidate(t *testing.T) {
	good := DefaultParams()
	if err := good.Validate(); err != nil {
		t.Fatalf("default params: %v", err)
	}
	cases := map[string]func(p *Params){
		"negative warmup":     func(p *Params) { p.WarmupYears = -1 },
		"interval not 1/60th": func(p *Params) { p.ControlInterval = 7 },
		"zero interval":       func(p *Params) { p.ControlInterval = 0 },
		"no thermal passes":   func(p *Params) { p.Convergence.ThermalMaxIterations = 0 },
		"zero attic tol":      func(p *Params) { p.Convergence.AtticTempTolerance = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := DefaultParams()
			mutate(&p)
			if err := p.Validate(); !errors.Is(err, ErrInvalidParams) {
				t.Fatalf("expected ErrInvalidParams, got %v", err)
			}
		})
	}
}

func TestNewRejectsMissingInputs(t *testing.T) {
	in := newInputs(t, 10, 50)
	in.Weather = nil
	if _, err := New(in, DefaultParams(), Options{}); !errors.Is(err, ErrMissingInput) {
		t.Fatalf("expected ErrMissingInput, got %v", err)
	}
}

func TestSeasonTracker(t *testing.T) {
	s := newSeasonTracker()
	day := func(temp float64) equipment.Season {
		for range minutesPerDay {
			s.add(temp)
		}
		return s.endDay()
	}
	for d := 1; d < seasonDays; d++ {
		if got := day(305); got != equipment.SeasonHeating {
			t.Fatalf("day %d: first week must heat, got %s", d, got)
		}
	}
	if got := day(305); got != equipment.SeasonCooling {
		t.Fatalf("warm week: got %s", got)
	}
	for range seasonDays {
		day(275)
	}
	if s.current() != equipment.SeasonHeating {
		t.Fatalf("cold week: got %s", s.current())
	}
	s.resetYear()
	if s.current() != equipment.SeasonHeating || s.days != 0 {
		t.Fatalf("reset must restart in heating")
	}
}

func TestHumidityIndex(t *testing.T) {
	if humidityIndex(59) != 0 {
		t.Fatalf("below 60 %% must be 0")
	}
	if !almostEqual(humidityIndex(80), 0.5, 1e-12) {
		t.Fatalf("got %v", humidityIndex(80))
	}
}

func TestBlower(t *testing.T) {
	fs := equipment.FilterState{HeatingFlow: 0.4, CoolingFlow: 0.5, FanPowerHeating: 300, FanPowerCooling: 400}
	q, p, heat := blower(equipment.ModeVenting, fs)
	if q != 0.5 || p != 0 || !almostEqual(heat, equipment.FanHeatFraction*400, 1e-9) {
		t.Fatalf("venting: q=%v p=%v heat=%v", q, p, heat)
	}
	q, p, _ = blower(equipment.ModeHeatingCooldown, fs)
	if q != 0.4 || p != 300 {
		t.Fatalf("cooldown uses heating ratings: q=%v p=%v", q, p)
	}
	q, p, heat = blower(equipment.ModeOff, fs)
	if q != 0 || p != 0 || heat != 0 {
		t.Fatalf("off must be idle")
	}
}

func TestAccumulatorSummary(t *testing.T) {
	var a accumulator
	for range 2 {
		a.add(&MinuteRecord{
			TempOut:   280,
			TempHouse: 294,
			AHPower:   600,
			Gas:       joulesPerTherm / psychro.Timestep,
			RelExp:    0.8,
			RHHouse:   75,
			Occupied:  true,
		})
	}
	a.airflowMisses = 3
	s := a.summary()
	if !almostEqual(s.AirHandlerKWh, 2*600*60/joulesPerKWh, 1e-12) {
		t.Fatalf("AH kWh %v", s.AirHandlerKWh)
	}
	if !almostEqual(s.FurnaceTherms, 2, 1e-9) {
		t.Fatalf("therms %v", s.FurnaceTherms)
	}
	if s.TempHouse != 294 || s.RelExp != 0.8 {
		t.Fatalf("means %v %v", s.TempHouse, s.RelExp)
	}
	if s.RH60Fraction != 1 || s.RH70Fraction != 1 {
		t.Fatalf("fractions %v %v", s.RH60Fraction, s.RH70Fraction)
	}
	if s.OccupiedMinutes != 2 || s.RH60Minutes != 2 || s.RH70Minutes != 2 || s.AirflowNonConverged != 3 {
		t.Fatalf("counts %+v", s)
	}
}

func TestHumidityFractions(t *testing.T) {
	var a accumulator
	for _, rh := range []float64{50, 65, 75, 40} {
		a.add(&MinuteRecord{RHHouse: rh})
	}
	s := a.summary()
	if s.RH60Minutes != 2 || s.RH70Minutes != 1 {
		t.Fatalf("counts %d %d", s.RH60Minutes, s.RH70Minutes)
	}
	if !almostEqual(s.RH60Fraction, 0.5, 1e-12) || !almostEqual(s.RH70Fraction, 0.25, 1e-12) {
		t.Fatalf("fractions %v %v", s.RH60Fraction, s.RH70Fraction)
	}
}

func TestWinterMinutesHeat(t *testing.T) {
	s := newSimulator(t, newInputs(t, -5, 70), Options{})
	recs := runMinutes(t, s, 6*60)

	heated := false
	for _, r := range recs {
		if r.Mode == equipment.ModeHeating {
			heated = true
			if r.Gas <= 0 {
				t.Fatalf("heating minute without gas at %d:%02d", r.Hour, r.Minute)
			}
		}
		if r.CoilWater != 0 || r.Compressor != 0 {
			t.Fatalf("compressor must stay idle in winter: %+v", r)
		}
		if r.SHR < 0.25 || r.SHR > 1 {
			t.Fatalf("SHR %v out of bounds", r.SHR)
		}
		if r.RelExp < 0 || r.RelDose < 0 {
			t.Fatalf("negative exposure %v / dose %v", r.RelExp, r.RelDose)
		}
	}
	if !heated {
		t.Fatalf("cold house never called for heat")
	}
	last := recs[len(recs)-1]
	if last.TempHouse < psychro.CToK+15 || last.TempHouse > psychro.CToK+25 {
		t.Fatalf("house drifted to %.2f K", last.TempHouse)
	}
	if last.TempAttic >= last.TempHouse {
		t.Fatalf("attic %.2f should be colder than the house %.2f", last.TempAttic, last.TempHouse)
	}
}

func TestSummerCoilMoistureBounded(t *testing.T) {
	s := newSimulator(t, newInputs(t, 32, 60), Options{})
	s.season.season = equipment.SeasonCooling
	s.thermal.SetSeason(false)
	for i := range s.temps {
		s.temps[i] = psychro.CToK + 27
	}
	recs := runMinutes(t, s, 4*60)

	maxCoil := s.compressor.MaxCoilMoisture()
	cooled := false
	for _, r := range recs {
		if r.Mode == equipment.ModeCooling {
			cooled = true
		}
		if r.CoilWater < 0 || r.CoilWater > maxCoil+1e-12 {
			t.Fatalf("coil water %v outside [0, %v]", r.CoilWater, maxCoil)
		}
		if r.SHR < 0.25 || r.SHR > 1 {
			t.Fatalf("SHR %v out of bounds", r.SHR)
		}
		if r.CoilCondensate < 0 {
			t.Fatalf("negative coil condensate %v", r.CoilCondensate)
		}
		if r.CoilCondensate > 0 && !almostEqual(r.CoilWater, maxCoil, 1e-12) {
			t.Fatalf("condensate %v drained below the coil cap (%v of %v)", r.CoilCondensate, r.CoilWater, maxCoil)
		}
		var acc accumulator
		acc.add(&r)
		if acc.summary().CoilCondensate != r.CoilCondensate {
			t.Fatalf("coil condensate not accumulated")
		}
	}
	if !cooled {
		t.Fatalf("hot house never called for cooling")
	}
}

func TestRunStopsAtGate(t *testing.T) {
	sink := &recordingSink{}
	gate := &stopAfter{limit: 90}
	s, err := New(newInputs(t, 5, 50), DefaultParams(), Options{Sink: sink, Gate: gate})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Run(context.Background()); !errors.Is(err, errStop) {
		t.Fatalf("expected gate error, got %v", err)
	}
	if len(sink.minutes) != 90 {
		t.Fatalf("got %d minute records, want 90", len(sink.minutes))
	}
	first, last := sink.minutes[0], sink.minutes[89]
	if first.House != "ranch" || first.Warmup || last.Hour != 1 || last.Minute != 29 {
		t.Fatalf("unexpected clock: first %+v last %+v", first.Clock, last.Clock)
	}
	if len(sink.summaries) != 0 {
		t.Fatalf("no summary before the year ends")
	}
}

func TestRunHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, err := New(newInputs(t, 5, 50), DefaultParams(), Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWarmupMinutesNotReported(t *testing.T) {
	sink := &recordingSink{}
	p := DefaultParams()
	p.WarmupYears = 1
	s, err := New(newInputs(t, 5, 50), p, Options{Sink: sink, Gate: &stopAfter{limit: 30}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Run(context.Background()); !errors.Is(err, errStop) {
		t.Fatalf("expected gate error, got %v", err)
	}
	if len(sink.minutes) != 0 {
		t.Fatalf("warm-up year leaked %d records", len(sink.minutes))
	}
}

func TestMultiSink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	m := MultiSink{a, b}
	if err := m.Minute(&MinuteRecord{House: "x"}); err != nil {
		t.Fatal(err)
	}
	if err := m.Summary(AnnualSummary{House: "x"}); err != nil {
		t.Fatal(err)
	}
	if len(a.minutes) != 1 || len(b.minutes) != 1 || len(a.summaries) != 1 || len(b.summaries) != 1 {
		t.Fatalf("fan-out incomplete")
	}
}
