// Package housetest provides the reference house and its input files for tests.
package housetest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/Agrid-Dev/housesim/internal/building"
	"github.com/Agrid-Dev/housesim/internal/psychro"
	"github.com/Agrid-Dev/housesim/internal/schedule"
	"github.com/Agrid-Dev/housesim/internal/weather"
)

// HousePath is the reference house used across test packages.
func HousePath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "building", "testdata", "house.yaml")
}

func LoadHouse(tb testing.TB) *building.Building {
	tb.Helper()
	b, err := building.Load(HousePath())
	if err != nil {
		tb.Fatalf("load house: %v", err)
	}
	return b
}

// Site is a mid-latitude site on the US west coast.
var Site = weather.Site{ID: "synthetic", TimeZone: -8, Latitude: 38.5, Longitude: -121.5}

// Weather is a synthetic year around meanC with no seasonal swing.
func Weather(tb testing.TB, meanC, rh float64) *weather.File {
	tb.Helper()
	terrain, err := weather.NewTerrain(2, 2.5)
	if err != nil {
		tb.Fatalf("terrain: %v", err)
	}
	return weather.NewSynthetic(weather.SyntheticParams{
		Site:          Site,
		MeanTemp:      meanC,
		DailySwing:    4,
		RH:            rh,
		Wind:          3,
		WindDirection: 225,
		PeakSolar:     700,
	}, terrain)
}

// Thermostat holds 20 C heating and 24 C cooling all day.
func Thermostat() *schedule.Thermostat {
	var t schedule.Thermostat
	for h := range t.Heat {
		t.Heat[h] = psychro.CToK + 20
		t.Cool[h] = psychro.CToK + 24
	}
	return &t
}

// Occupancy is occupied around the clock unless empty is set.
func Occupancy(empty bool) *schedule.Occupancy {
	var o schedule.Occupancy
	for w := range o {
		for h := range o[w] {
			o[w][h] = !empty
		}
	}
	return &o
}

// WriteInputs writes the weather and schedule files named by the reference
// house into dir: a mild synthetic year, a 20/24 C thermostat and a house
// occupied outside weekday working hours.
func WriteInputs(tb testing.TB, dir string) {
	tb.Helper()
	var wx bytes.Buffer
	p := weather.SyntheticParams{
		Site:          Site,
		MeanTemp:      12,
		AnnualSwing:   8,
		DailySwing:    5,
		RH:            60,
		Wind:          3,
		WindDirection: 225,
		PeakSolar:     700,
	}
	if err := weather.WriteCSV(&wx, Site, p.Hour); err != nil {
		tb.Fatalf("weather: %v", err)
	}

	var th, occ bytes.Buffer
	th.WriteString("hour heatF coolF\n")
	occ.WriteString("hour weekday weekend\n")
	for h := range 24 {
		fmt.Fprintf(&th, "68 75\n")
		weekday := 1
		if h >= 8 && h < 17 {
			weekday = 0
		}
		fmt.Fprintf(&occ, "%d 1\n", weekday)
	}

	for name, b := range map[string][]byte{
		"synthetic.csv":  wx.Bytes(),
		"thermostat.txt": th.Bytes(),
		"occupancy.txt":  occ.Bytes(),
	} {
		if err := os.WriteFile(filepath.Join(dir, name), b, 0o644); err != nil {
			tb.Fatalf("write %s: %v", name, err)
		}
	}
}
