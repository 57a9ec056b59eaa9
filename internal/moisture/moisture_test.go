package moisture

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/Agrid-Dev/housesim/internal/building"
	"github.com/Agrid-Dev/housesim/internal/psychro"
	"github.com/Agrid-Dev/housesim/internal/thermal"
)

func newModel(t *testing.T) *Model {
	t.Helper()
	b, err := building.Load(filepath.Join("..", "building", "testdata", "house.yaml"))
	if err != nil {
		t.Fatalf("load house: %v", err)
	}
	m, err := New(b, DefaultParams())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func uniform(temp float64) thermal.Temperatures {
	var tt thermal.Temperatures
	for i := range tt {
		tt[i] = temp
	}
	return tt
}

func baseInputs(temp, outdoorW float64) Inputs {
	return Inputs{
		Temps:      uniform(temp),
		Pressure:   psychro.PressureStd,
		OutdoorW:   outdoorW,
		Flows:      thermal.Flows{AtticIn: 0.2, HouseIn: 0.05, Ceiling: 0.02},
		AtticFilmH: 3,
	}
}

func run(t *testing.T, m *Model, in Inputs, minutes int) {
	t.Helper()
	for i := range minutes {
		if err := m.Step(in); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
}

func TestIsothermRoundTrip(t *testing.T) {
	for _, tC := range []float64{0, 20, 40} {
		prev := 0.0
		for _, rh := range []float64{0.1, 0.3, 0.5, 0.7, 0.9} {
			mc := MoistureContent(rh, tC)
			if mc <= prev {
				t.Fatalf("MC not increasing at %vC rh %v: %v <= %v", tC, rh, mc, prev)
			}
			prev = mc
			if got := RelativeHumidity(mc, tC); math.Abs(got-rh) > 1e-6 {
				t.Errorf("RelativeHumidity(MoistureContent(%v, %v)) = %v", rh, tC, got)
			}
		}
	}
	if RelativeHumidity(0, 20) != 0 || RelativeHumidity(1, 20) != 1 {
		t.Fatal("RelativeHumidity bounds")
	}
	// fiber saturation sits near 25-30 percent
	if fsp := MoistureContent(0.99, 20); fsp < 0.2 || fsp > 0.35 {
		t.Fatalf("MC at 99%% = %v", fsp)
	}
}

func TestMoldGrowsWhenDampAndDeclinesWhenDry(t *testing.T) {
	m := MoldIndex{Sensitivity: Sensitive}
	for range 24 * 60 {
		m.Update(25, 97)
	}
	if m.Index <= 1 {
		t.Fatalf("index after 60 damp days = %v", m.Index)
	}
	peak := m.Index
	for range 24 * 30 {
		m.Update(25, 50)
	}
	if m.Index >= peak {
		t.Fatalf("index did not decline: %v >= %v", m.Index, peak)
	}

	cold := MoldIndex{Sensitivity: VerySensitive}
	for range 24 * 30 {
		cold.Update(-5, 99)
	}
	if cold.Index != 0 {
		t.Fatalf("growth below freezing: %v", cold.Index)
	}
}

func TestMoldSensitivityOrdering(t *testing.T) {
	idx := func(s Sensitivity) float64 {
		m := MoldIndex{Sensitivity: s}
		for range 24 * 20 {
			m.Update(22, 95)
		}
		return m.Index
	}
	if idx(VerySensitive) <= idx(Sensitive) || idx(Sensitive) <= idx(Resistant) {
		t.Fatal("sensitivity classes out of order")
	}
}

func TestParamsValidate(t *testing.T) {
	bad := []Params{
		{InitialMC: 0, HouseCapacitance: 10},
		{InitialMC: 0.5, HouseCapacitance: 10},
		{InitialMC: 0.15, HouseCapacitance: 0.5},
	}
	for _, p := range bad {
		if err := p.Validate(); err == nil {
			t.Errorf("Validate(%+v) = nil", p)
		}
	}
	p := DefaultParams()
	if err := p.Validate(); err != nil {
		t.Fatalf("default params: %v", err)
	}
}

func TestInitSetsWoodMoisture(t *testing.T) {
	m := newModel(t)
	m.Init(uniform(293.15), 0.008, psychro.PressureStd)
	for _, n := range []Node{SouthSheathing, NorthSheathing, BulkWood, BulkWoodDeep} {
		if mc := m.State(n).Content; math.Abs(mc-0.15) > 1e-4 {
			t.Errorf("%s MC = %v", n, mc)
		}
	}
	if w := m.HumidityRatio(HouseAir); w != 0.008 {
		t.Fatalf("house w = %v", w)
	}
}

func TestLatentLoadWetsHouse(t *testing.T) {
	dry := newModel(t)
	wet := newModel(t)
	dry.Init(uniform(295), 0.006, psychro.PressureStd)
	wet.Init(uniform(295), 0.006, psychro.PressureStd)

	in := baseInputs(295, 0.006)
	run(t, dry, in, 120)
	in.Sources.Latent = 2e-4
	run(t, wet, in, 120)

	if wet.HumidityRatio(HouseAir) <= dry.HumidityRatio(HouseAir) {
		t.Fatalf("latent load: %v <= %v", wet.HumidityRatio(HouseAir), dry.HumidityRatio(HouseAir))
	}
}

func TestCoilCondensationDriesSupply(t *testing.T) {
	m := newModel(t)
	m.Init(uniform(295), 0.010, psychro.PressureStd)
	in := baseInputs(295, 0.010)
	in.Flows.Ducts.AirHandler = 0.5
	in.Flows.Ducts.SupplyRegister = 0.5
	in.Flows.Ducts.ReturnRegister = -0.5
	in.Sources.CoilCondensing = 5e-4
	run(t, m, in, 10)
	if m.HumidityRatio(SupplyAir) >= m.HumidityRatio(ReturnAir) {
		t.Fatalf("supply %v not drier than return %v", m.HumidityRatio(SupplyAir), m.HumidityRatio(ReturnAir))
	}
}

func TestHumidAtticWetsSheathing(t *testing.T) {
	m := newModel(t)
	m.Init(uniform(290), 0.004, psychro.PressureStd)
	before := m.State(SouthSheathing).Content
	run(t, m, baseInputs(290, 0.012), 600)
	if after := m.State(SouthSheathing).Content; after <= before {
		t.Fatalf("sheathing MC %v -> %v", before, after)
	}
	if m.State(SouthSheathingDeep).Content <= 0 {
		t.Fatal("deep layer lost all moisture")
	}
}

func TestSupersaturatedWoodCondenses(t *testing.T) {
	m := newModel(t)
	temp := 278.0
	m.Init(uniform(temp), 0.005, psychro.PressureStd)
	psat := psychro.SaturationPressure(temp)
	m.pw[SouthSheathing] = 1.5 * psat
	excess := m.capacity(int(SouthSheathing), temp) * 0.5 * psat

	run(t, m, baseInputs(temp, 0.005), 1)
	st := m.State(SouthSheathing)
	if st.VaporPressure > psat*(1+1e-9) {
		t.Fatalf("pw %v above saturation %v", st.VaporPressure, psat)
	}
	if st.Condensed < 0.9*excess {
		t.Fatalf("condensed %v, want about %v", st.Condensed, excess)
	}
	if st.SaturatedMinutes != 1 {
		t.Fatalf("saturated minutes = %d", st.SaturatedMinutes)
	}

	// dry air re-evaporates the water
	run(t, m, baseInputs(temp, 0.001), 2000)
	if c := m.State(SouthSheathing).Condensed; c >= st.Condensed {
		t.Fatalf("condensed %v did not shrink from %v", c, st.Condensed)
	}
}

func TestSorptionSlopeAboveSaturation(t *testing.T) {
	at1 := sorptionSlope(1, 5)
	if at1 <= 0 {
		t.Fatalf("slope at saturation %v", at1)
	}
	if got := sorptionSlope(1.5, 5); got != at1 {
		t.Fatalf("slope above saturation %v, want %v", got, at1)
	}
}

func TestSaturatedAtticAirCondenses(t *testing.T) {
	m := newModel(t)
	temp := 278.0
	m.Init(uniform(temp), 0.005, psychro.PressureStd)
	run(t, m, baseInputs(temp, 0.03), 5)

	st := m.State(AtticAir)
	wsat := psychro.SaturationHumidityRatio(temp, psychro.PressureStd)
	if w := m.HumidityRatio(AtticAir); w > wsat*(1+1e-9) {
		t.Fatalf("attic w %v above saturation %v", w, wsat)
	}
	if st.Condensed <= 0 {
		t.Fatal("no water condensed out of attic air")
	}
	if st.SaturatedMinutes == 0 {
		t.Fatal("saturated minutes not counted")
	}

	m.ResetCounters()
	if got := m.State(AtticAir).SaturatedMinutes; got != 0 {
		t.Fatalf("after reset: %d", got)
	}
}

func TestStatesStayNonNegative(t *testing.T) {
	m := newModel(t)
	m.Init(uniform(270), 0, psychro.PressureStd)
	in := baseInputs(270, 0)
	in.Sources.Dehumidifier = 1e-3
	run(t, m, in, 300)
	for n := range NodeCount {
		st := m.State(Node(n))
		if st.VaporPressure < 0 || st.Content < 0 {
			t.Errorf("%s went negative: %+v", Node(n), st)
		}
	}
}

func TestMoldUpdateUsesSurfaces(t *testing.T) {
	m := newModel(t)
	m.Init(uniform(298), 0.02, psychro.PressureStd)
	for i := range WoodNodes {
		m.pw[i] = 0.98 * psychro.SaturationPressure(298)
	}
	for range 24 * 7 {
		m.MoldUpdate()
	}
	for i, v := range m.Mold() {
		if v <= 0 {
			t.Errorf("surface %d mold index %v", i, v)
		}
	}
}
