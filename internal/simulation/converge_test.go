package simulation

import (
	"math"
	"testing"

	"github.com/Agrid-Dev/housesim/internal/psychro"
	"github.com/Agrid-Dev/housesim/internal/thermal"
)

func newSimulatorWith(t *testing.T, p Params) *Simulator {
	t.Helper()
	s, err := New(newInputs(t, -5, 70), p, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.moisture.Init(s.temps, 0.005, psychro.PressureStd)
	if err := s.openSchedule(); err != nil {
		t.Fatalf("openSchedule: %v", err)
	}
	return s
}

func assertPlausibleTemps(t *testing.T, r MinuteRecord) {
	t.Helper()
	for i, v := range r.Temps {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < psychro.CToK-60 || v > psychro.CToK+100 {
			t.Fatalf("%d:%02d node %s = %v", r.Hour, r.Minute, thermal.Node(i), v)
		}
	}
}

func TestConvergeSettlesOvernight(t *testing.T) {
	s := newSimulatorWith(t, DefaultParams())
	recs := runMinutes(t, s, 6*60)

	if s.acc.thermalMisses != 0 {
		t.Fatalf("thermal loop missed its tolerance %d times", s.acc.thermalMisses)
	}
	for _, r := range recs {
		assertPlausibleTemps(t, r)
	}
	if got := s.acc.summary().ThermalNonConverged; got != 0 {
		t.Fatalf("summary reports %d thermal misses", got)
	}
}

func TestConvergeCappedIterationsStillAdvance(t *testing.T) {
	p := DefaultParams()
	p.Convergence.ThermalMaxIterations = 1
	p.Convergence.AtticTempTolerance = 1e-12
	s := newSimulatorWith(t, p)
	start := s.temps

	const minutes = 30
	recs := runMinutes(t, s, minutes)

	if s.acc.thermalMisses != minutes {
		t.Fatalf("thermal misses = %d, want %d", s.acc.thermalMisses, minutes)
	}
	if got := s.acc.summary().ThermalNonConverged; got != minutes {
		t.Fatalf("summary reports %d thermal misses, want %d", got, minutes)
	}
	for _, r := range recs {
		assertPlausibleTemps(t, r)
	}
	if recs[len(recs)-1].Temps == start {
		t.Fatal("capped minutes never moved the temperatures")
	}
}
