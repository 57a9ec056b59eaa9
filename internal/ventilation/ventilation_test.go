package ventilation

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"path/filepath"
	"testing"

	"github.com/Agrid-Dev/housesim/internal/building"
	"github.com/Agrid-Dev/housesim/internal/equipment"
	"github.com/Agrid-Dev/housesim/internal/schedule"
)

const volume = 360.0

func almostEqual(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func testBuilding(control int, managed bool, fans ...building.Fan) *building.Building {
	return &building.Building{
		Geometry:  building.Geometry{HouseVolume: volume, FloorArea: 150},
		Equipment: building.Equipment{FanPowerCooling: 400},
		Ventilation: building.Ventilation{
			Fans:         fans,
			ControlType:  control,
			RivecManaged: managed,
			HRVSensible:  0.7,
			ERVSensible:  0.63,
			ERVTotal:     0.52,
		},
	}
}

func newFans(t *testing.T, b *building.Building) *Fans {
	t.Helper()
	fs, err := NewFans(b)
	if err != nil {
		t.Fatalf("NewFans: %v", err)
	}
	return fs
}

func conditions(hour, minute int) Conditions {
	return Conditions{
		Hour:           hour,
		Minute:         minute,
		Season:         equipment.SeasonHeating,
		Mode:           equipment.ModeOff,
		OutdoorDensity: 1.25,
		HouseDensity:   1.2,
		CoolingFlow:    0.5,
		HeatingFlow:    0.4,
	}
}

func TestRoleForCode(t *testing.T) {
	tests := []struct {
		code int
		name string
	}{
		{1, "continuous_exhaust"},
		{2, "bath"},
		{3, "kitchen"},
		{4, "fixed_exhaust"},
		{5, "hrv"},
		{6, "fan_cycler"},
		{10, "passive_intake"},
		{13, "cfis"},
		{14, "passive_intake"},
		{15, "fan_cycler_fixed"},
		{16, "hrv_air_handler"},
		{17, "erv_air_handler"},
		{18, "passive_intake"},
		{19, "dryer"},
		{21, "economizer"},
		{22, "economizer_cfis"},
		{23, "scheduled_dryer"},
		{24, "scheduled_kitchen"},
		{25, "scheduled_bath1"},
		{26, "scheduled_bath2"},
		{27, "scheduled_bath3"},
		{50, "historical_50"},
	}
	for _, tc := range tests {
		r, err := RoleForCode(tc.code)
		if err != nil {
			t.Fatalf("RoleForCode(%d): %v", tc.code, err)
		}
		if r.Name() != tc.name {
			t.Errorf("RoleForCode(%d) = %s, want %s", tc.code, r.Name(), tc.name)
		}
	}
	for _, code := range []int{0, 7, 20, 99} {
		if _, err := RoleForCode(code); !errors.Is(err, ErrUnknownRole) {
			t.Errorf("RoleForCode(%d) err = %v", code, err)
		}
	}
}

func TestParseRole(t *testing.T) {
	for _, r := range roles {
		got, err := ParseRole(" " + r.Name() + " ")
		if err != nil {
			t.Fatalf("ParseRole(%q): %v", r.Name(), err)
		}
		if got.Name() != r.Name() {
			t.Errorf("ParseRole(%q) = %s", r.Name(), got.Name())
		}
	}
	for _, code := range []int{30, 31, 50, 51} {
		r, _ := RoleForCode(code)
		got, err := ParseRole(r.Name())
		if err != nil || got != r || !Inactive(got) {
			t.Errorf("ParseRole(%q) = %v, %v", r.Name(), got, err)
		}
	}
	for _, name := range []string{"attic_blaster", "historical_1", "historical_x"} {
		if _, err := ParseRole(name); !errors.Is(err, ErrUnknownRole) {
			t.Fatalf("ParseRole(%q) err = %v", name, err)
		}
	}
}

func TestNewFansWarnsOnHistoricalController(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	fs := newFans(t, testBuilding(1, false, building.Fan{Oper: 50, Flow: -0.02}, building.Fan{Oper: 2, Flow: -0.02}))
	if len(fs.Fans()) != 2 {
		t.Fatalf("fans = %d", len(fs.Fans()))
	}
	out := buf.String()
	if !bytes.Contains(buf.Bytes(), []byte("role=historical_50")) {
		t.Fatalf("expected a warning for the historical fan, got %q", out)
	}
	if bytes.Count(buf.Bytes(), []byte("level=WARN")) != 1 {
		t.Fatalf("expected exactly one warning, got %q", out)
	}
}

func TestNewFansRejectsUnknownRole(t *testing.T) {
	b := testBuilding(1, false, building.Fan{Role: "nope"})
	if _, err := NewFans(b); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("err = %v", err)
	}
	b = testBuilding(9, false)
	if _, err := NewFans(b); !errors.Is(err, ErrInvalidControl) {
		t.Fatalf("control err = %v", err)
	}
}

func TestNewFansFromHouse(t *testing.T) {
	b, err := building.Load(filepath.Join("..", "building", "testdata", "house.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	fs := newFans(t, b)
	if len(fs.Fans()) != 2 || fs.Fans()[1].Role.Name() != "kitchen" {
		t.Fatalf("fans = %+v", fs.Fans())
	}
	if fs.Control().Type != ControlAuxFans {
		t.Fatalf("control = %v", fs.Control().Type)
	}
}

func TestContinuousExhaust(t *testing.T) {
	fs := newFans(t, testBuilding(1, false, building.Fan{Oper: 1, Power: 15, Flow: -0.03}))
	d := fs.Dispatch(conditions(3, 0))
	if !fs.Fans()[0].On {
		t.Fatal("continuous fan off")
	}
	if !almostEqual(d.VentOut, 0.03*3600/volume, 1e-12) || d.VentIn != 0 {
		t.Fatalf("vent sums %v/%v", d.VentIn, d.VentOut)
	}
	if !almostEqual(d.FanExhaust, 0.03*1.2, 1e-12) || d.MechVentPower != 15 {
		t.Fatalf("exhaust %v power %v", d.FanExhaust, d.MechVentPower)
	}
	if d.RivecRunning {
		t.Fatal("continuous fan counted as controlled")
	}
}

func TestControlledFanFollowsDecision(t *testing.T) {
	fs := newFans(t, testBuilding(2, false, building.Fan{Oper: 1, Power: 15, Flow: 0.03}))
	c := conditions(3, 0)
	d := fs.Dispatch(c)
	if fs.Fans()[0].On || d.MechVentPower != 0 {
		t.Fatal("controlled fan ran without a decision")
	}
	c.RivecOn = true
	d = fs.Dispatch(c)
	if !d.RivecRunning || !almostEqual(d.FanHeat, 0.84*15, 1e-12) || d.FanSupply == 0 {
		t.Fatalf("controlled supply fan: %+v", d)
	}
}

func TestFixedAndScheduledFans(t *testing.T) {
	fs := newFans(t, testBuilding(1, false,
		building.Fan{Oper: 3, Power: 60, Flow: -0.05},
		building.Fan{Oper: 25, Power: 20, Flow: -0.02},
		building.Fan{Oper: 4, Power: 10, Flow: -0.01},
	))
	c := conditions(18, 15)
	c.Scheduled = schedule.FanFlags{Bath1: true}
	d := fs.Dispatch(c)
	for i, f := range fs.Fans() {
		if !f.On {
			t.Errorf("fan %d off", i)
		}
	}
	if !almostEqual(d.AuxOut, 0.08*3600/volume, 1e-12) || d.VentOut != 0 {
		t.Fatalf("aux %v vent %v", d.AuxOut, d.VentOut)
	}
	if d.VentSum(false) != 0 || !almostEqual(d.VentSum(true), d.AuxOut, 1e-12) {
		t.Fatal("aux fans leaked into the whole-house sum")
	}

	c = conditions(3, 0)
	fs.Dispatch(c)
	if fs.Fans()[0].On || fs.Fans()[1].On || fs.Fans()[2].On {
		t.Fatal("fans ran outside their schedule in the heating night window")
	}
	c.Season = equipment.SeasonCooling
	fs.Dispatch(c)
	if !fs.Fans()[2].On {
		t.Fatal("fixed exhaust off at 3h in cooling season")
	}
}

func TestCFISRunsBlowerForVentilation(t *testing.T) {
	fs := newFans(t, testBuilding(1, false, building.Fan{Oper: 13, Flow: -0.04}))

	d := fs.Dispatch(conditions(9, 10))
	if d.Venting || d.ReturnOutdoor != 0 {
		t.Fatal("CFIS ran early in the hour")
	}

	c := conditions(9, 45)
	c.AHMinutes = 3
	d = fs.Dispatch(c)
	if !d.Venting || d.Mode != equipment.ModeVenting {
		t.Fatalf("mode = %v", d.Mode)
	}
	if !almostEqual(d.ReturnOutdoor, 0.04*1.2, 1e-12) || d.MechVentPower != 400 {
		t.Fatalf("intake %v power %v", d.ReturnOutdoor, d.MechVentPower)
	}

	c.Mode = equipment.ModeHeating
	c.AHMinutes = 10
	d = fs.Dispatch(c)
	if d.Venting || d.Mode != equipment.ModeHeating || d.ReturnOutdoor == 0 {
		t.Fatalf("CFIS during heating: %+v", d)
	}
}

func TestRecoveryVentilators(t *testing.T) {
	fs := newFans(t, testBuilding(1, false, building.Fan{Oper: 17, Power: 50, Flow: 0.03}))
	d := fs.Dispatch(conditions(9, 39))
	if fs.Fans()[0].On {
		t.Fatal("ERV before minute 40")
	}
	d = fs.Dispatch(conditions(9, 40))
	if !d.Venting || !almostEqual(d.ReturnOutdoor, d.FanExhaust, 1e-12) {
		t.Fatalf("ERV flows %+v", d)
	}
	if d.ReturnSensible != 0.63 || d.ReturnLatent != 0.52 {
		t.Fatalf("effectiveness %v/%v", d.ReturnSensible, d.ReturnLatent)
	}
	if !almostEqual(d.VentIn, d.VentOut, 1e-12) {
		t.Fatal("balanced ventilator not balanced")
	}

	hrv := newFans(t, testBuilding(1, true,
		building.Fan{Oper: 5, Power: 20, Flow: 0.03},
		building.Fan{Oper: 5, Power: 20, Flow: -0.03},
	))
	c := conditions(9, 50)
	d = hrv.Dispatch(c)
	if d.Recovered != 0 {
		t.Fatal("managed HRV ran without a decision")
	}
	c.RivecOn = true
	d = hrv.Dispatch(c)
	if !almostEqual(d.Recovered, 0.03*1.25, 1e-12) || d.RecoveryRatio != 0.7 || !d.RivecRunning {
		t.Fatalf("HRV dispatch %+v", d)
	}
}

func TestCyclerOnlyWithThermalBlower(t *testing.T) {
	fs := newFans(t, testBuilding(1, false,
		building.Fan{Oper: 6, Flow: -0.02},
		building.Fan{Oper: 10, Flow: -0.01},
	))
	d := fs.Dispatch(conditions(9, 0))
	if d.ReturnOutdoor != 0 {
		t.Fatal("intake open with blower off")
	}
	c := conditions(9, 0)
	c.Mode = equipment.ModeCooling
	c.AHMinutes = 5
	d = fs.Dispatch(c)
	want := (0.02*0.5/0.4 + 0.01) * 1.2
	if !almostEqual(d.ReturnOutdoor, want, 1e-12) {
		t.Fatalf("intake %v want %v", d.ReturnOutdoor, want)
	}
	c.AHMinutes = 30
	d = fs.Dispatch(c)
	if !almostEqual(d.ReturnOutdoor, 0.01*1.2, 1e-12) {
		t.Fatalf("cycler past 20 minutes: %v", d.ReturnOutdoor)
	}
}

func TestEconomizer(t *testing.T) {
	fs := newFans(t, testBuilding(1, false, building.Fan{Oper: 21, Power: 300, Flow: 0.4}))
	if !fs.HasEconomizer() {
		t.Fatal("economizer not detected")
	}
	c := conditions(20, 0)
	d := fs.Dispatch(c)
	if d.EconomizerPower != 0 {
		t.Fatal("economizer ran while disabled")
	}
	c.Economizer = true
	d = fs.Dispatch(c)
	if d.EconomizerPower != 300 || d.MechVentPower != 0 || d.FanSupply == 0 || d.AuxIn == 0 {
		t.Fatalf("economizer dispatch %+v", d)
	}
}

func newExposure(t *testing.T, ct ControlType) *Exposure {
	t.Helper()
	e, err := NewExposure(ExposureParams{Aeq: 0.3, ExposureLimit: 5, Interval: 10, Timestep: 1.0 / 60}, Control{Type: ct})
	if err != nil {
		t.Fatalf("NewExposure: %v", err)
	}
	return e
}

func TestExposureConvergesAndStaysNonNegative(t *testing.T) {
	e := newExposure(t, ControlAuxFans)
	for range 60 * 24 * 10 {
		e.Update(0.6, true)
		if e.RelExp() < 0 || e.RelDose() < 0 {
			t.Fatalf("negative exposure %v dose %v", e.RelExp(), e.RelDose())
		}
	}
	if !almostEqual(e.RelExp(), 0.5, 1e-9) {
		t.Fatalf("relExp = %v, want 0.5", e.RelExp())
	}
	if !almostEqual(e.RelDose(), 0.5, 1e-3) {
		t.Fatalf("relDose = %v", e.RelDose())
	}
	before := e.RelExp()
	e.Update(0.6, true)
	if !almostEqual(e.RelExp(), before, 1e-12) {
		t.Fatal("steady state moved under constant forcing")
	}

	e.Update(0, true)
	if e.RelExp() < 0 || math.IsNaN(e.RelExp()) {
		t.Fatalf("zero ventilation gave %v", e.RelExp())
	}
}

func TestAuxFanControlDecision(t *testing.T) {
	e := newExposure(t, ControlAuxFans)
	if !e.Decide(0, true) {
		t.Fatal("exposure 1 should turn the fan on")
	}
	for range 600 {
		e.Update(3, true)
	}
	if e.Decide(5, true) != true {
		t.Fatal("state changed off a decision tick")
	}
	if e.Decide(10, true) {
		t.Fatalf("fan on at exposure %v dose %v", e.RelExp(), e.RelDose())
	}
}

func TestOccupancyControlUnoccupied(t *testing.T) {
	e := newExposure(t, ControlOccupancy)
	if e.Decide(0, false) {
		t.Fatal("fan on while exposure below the unoccupied limit")
	}
	minute := 0
	for e.RelExp() <= 5 {
		e.Update(0.01, false)
		minute++
		if minute > 60*24*30 {
			t.Fatal("exposure never crossed the limit")
		}
		if minute%10 != 0 && e.Decide(minute, false) {
			t.Fatal("decision changed between ticks")
		}
	}
	dose := e.RelDose()
	if dose != 1 {
		t.Fatalf("dose moved while unoccupied: %v", dose)
	}
	next := (minute/10 + 1) * 10
	if !e.Decide(next, false) {
		t.Fatalf("fan off at exposure %v on tick %d", e.RelExp(), next)
	}
}

func TestExposureParamsValidate(t *testing.T) {
	bad := []ExposureParams{
		{Aeq: 0, ExposureLimit: 5, Interval: 10, Timestep: 1},
		{Aeq: 0.3, ExposureLimit: 0.5, Interval: 10, Timestep: 1},
		{Aeq: 0.3, ExposureLimit: 5, Interval: 0, Timestep: 1},
		{Aeq: 0.3, ExposureLimit: 5, Interval: 10, Timestep: 0},
	}
	for _, p := range bad {
		if _, err := NewExposure(p, Control{Type: ControlAuxFans}); !errors.Is(err, ErrInvalidParams) {
			t.Errorf("NewExposure(%+v) err = %v", p, err)
		}
	}
}

func TestInfiltrationSuperposition(t *testing.T) {
	b := testBuilding(1, false)
	b.Envelope = building.Envelope{C: 0.05, Exp: 0.65}
	b.Infiltration = building.Infiltration{
		WindSpeedMultiplier: 1, ShelterFactor: 0.7, StackCoef: 0.069, WindCoef: 0.142, RealTime: true,
	}
	m := NewInfiltration(b)

	r := m.Rates(0, 4, 273.15, 293.15)
	if r.Infiltration <= 0 || !almostEqual(r.Total, r.Infiltration, 1e-12) {
		t.Fatalf("no fans: %+v", r)
	}
	if !almostEqual(r.Infiltration, math.Hypot(r.Wind, r.Stack), 1e-12) {
		t.Fatal("stack and wind not combined in quadrature")
	}

	withFan := m.Rates(0.5, 4, 273.15, 293.15)
	if withFan.Total <= 0.5 || withFan.Total >= 0.5+r.Infiltration {
		t.Fatalf("superposed total %v outside (fan, fan+inf)", withFan.Total)
	}

	still := m.Rates(0, 0, 293.15, 293.15)
	if still.Total != 0 {
		t.Fatalf("calm isothermal infiltration %v", still.Total)
	}
}

func TestPollutantApproachesSteadyState(t *testing.T) {
	b := testBuilding(1, false)
	b.Pollutant = building.Pollutant{OutdoorConc: 10, Source: 1e-4, Penetration: 0.8, Deposition: 0.01, FilterEff: 0.5}
	p := NewPollutant(b)
	q := 0.05
	for range 60 * 48 {
		p.Step(q, 0, 60)
	}
	want := (0.8*q*10 + 1e-4*volume) / (q + 0.01)
	if !almostEqual(p.Concentration(), want, 1e-6*want) {
		t.Fatalf("conc = %v, want %v", p.Concentration(), want)
	}
	before := p.Concentration()
	p.Step(q, 0.5, 60)
	if p.Concentration() >= before {
		t.Fatal("filtration did not lower concentration")
	}
}
