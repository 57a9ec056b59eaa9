package weather

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/Agrid-Dev/housesim/internal/psychro"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func testTerrain(t *testing.T) Terrain {
	t.Helper()
	tr, err := NewTerrain(2, 3)
	if err != nil {
		t.Fatal(err)
	}
	return tr
}

func syntheticParams() SyntheticParams {
	return SyntheticParams{
		Site:          Site{ID: "synthetic", TimeZone: -8, Latitude: 38, Longitude: -122},
		MeanTemp:      15,
		AnnualSwing:   8,
		DailySwing:    5,
		RH:            60,
		Wind:          3,
		WindDirection: 270,
		PeakSolar:     850,
	}
}

func TestWriteAndParseRoundTrip(t *testing.T) {
	p := syntheticParams()
	var buf bytes.Buffer
	if err := WriteCSV(&buf, p.Site, p.Hour); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	f, err := Parse(&buf, testTerrain(t))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Site().ID != "synthetic" || f.Site().Latitude != 38 {
		t.Fatalf("unexpected site %+v", f.Site())
	}

	rec, err := f.Minute(12*60 + 30)
	if err != nil {
		t.Fatal(err)
	}
	a, _, _, _, _, _, _, _ := p.Hour(12)
	b, _, _, _, _, _, _, _ := p.Hour(13)
	if want := (a+b)/2 + psychro.CToK; !almostEqual(rec.DryBulb, want, 1e-9) {
		t.Fatalf("interpolated dry bulb = %v, want %v", rec.DryBulb, want)
	}
	if rec.WindDirection != 270 {
		t.Fatalf("expected wind direction 270, got %d", rec.WindDirection)
	}
	if rec.HumidityRatio <= 0 || rec.Pressure != psychro.PressureStd {
		t.Fatalf("unexpected humidity ratio %v / pressure %v", rec.HumidityRatio, rec.Pressure)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"no site", "dry_bulb_c\n", ErrMissingSite},
		{"no header", "site,x,0,0,0,0\n", ErrMissingHeader},
		{"short year", "site,x,0,0,0,0\n" + strings.Join(columns, ",") + "\n1,2,3,4,5,6,7,101\n", ErrShortYear},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.in), testTerrain(t))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestMinuteOutOfRange(t *testing.T) {
	f := NewSynthetic(syntheticParams(), testTerrain(t))
	if _, err := f.Minute(MinutesPerYear); err == nil {
		t.Fatal("expected error past the end of the year")
	}
}

func TestTerrain(t *testing.T) {
	if _, err := NewTerrain(5, 3); !errors.Is(err, ErrInvalidTerrain) {
		t.Fatalf("expected ErrInvalidTerrain, got %v", err)
	}
	open, _ := NewTerrain(3, 10)
	if got := open.Local(5); !almostEqual(got, 5, 1e-9) {
		t.Fatalf("open terrain at met height should not change wind, got %v", got)
	}
	city, _ := NewTerrain(1, 3)
	if city.Local(5) >= open.Local(5) {
		t.Fatal("city terrain should reduce wind speed")
	}
	if city.WindPressureExp() != 0.33 {
		t.Fatalf("unexpected exponent %v", city.WindPressureExp())
	}
}
