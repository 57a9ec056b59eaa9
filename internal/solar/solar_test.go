package solar

import (
	"math"
	"testing"
)

func TestSunNoonSummer(t *testing.T) {
	d := ForDay(172, -120, -8)
	p := d.Sun(38, 12, 0)
	if !p.Up {
		t.Fatal("expected sun up at noon")
	}
	// Near the solstice the noon altitude is about 90 - lat + 23.45.
	want := (90 - 38 + 23.45) * math.Pi / 180
	if math.Abs(p.Altitude-want) > 0.05 {
		t.Fatalf("noon altitude %v, want about %v", p.Altitude, want)
	}
}

func TestSunNight(t *testing.T) {
	d := ForDay(172, -120, -8)
	if p := d.Sun(38, 0, 0); p.Up {
		t.Fatalf("expected sun down at midnight, got %+v", p)
	}
	if g := Compute(Position{}, 800, 900, 22); g != (Gains{}) {
		t.Fatalf("expected zero gains at night, got %+v", g)
	}
}

func TestSurfaceInsolationHorizontal(t *testing.T) {
	beta := 60 * math.Pi / 180
	got := SurfaceInsolation(800, 100, beta, 0, 0)
	want := 800*math.Sin(beta) + 100
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("horizontal insolation %v, want %v", got, want)
	}
}

func TestSouthRoofSeesMoreInWinter(t *testing.T) {
	d := ForDay(15, -120, -8)
	p := d.Sun(38, 12, 0)
	g := Compute(p, 800, 500, 30)
	if g.SouthRoof <= g.NorthRoof {
		t.Fatalf("south roof %v should exceed north roof %v", g.SouthRoof, g.NorthRoof)
	}
	if g.SolAirRise <= 0 {
		t.Fatal("expected positive sol-air rise")
	}
	if g.WindowGain(1, 10, 0, 0) <= g.WindowGain(1, 0, 0, 10) {
		t.Fatal("south glazing should gain more than north glazing in winter")
	}
}

func TestWallOrderMatchesCompass(t *testing.T) {
	d := ForDay(80, 0, 0)
	morning := Compute(d.Sun(0, 8, 0), 800, 500, 30)
	if morning.Walls[1] <= morning.Walls[3] {
		t.Fatalf("east wall %v should see more than west %v in the morning", morning.Walls[1], morning.Walls[3])
	}
	noon := Compute(ForDay(15, 0, 0).Sun(40, 12, 0), 800, 500, 30)
	if noon.Walls[2] <= noon.Walls[0] {
		t.Fatalf("south wall %v should exceed north %v at winter noon", noon.Walls[2], noon.Walls[0])
	}
}
