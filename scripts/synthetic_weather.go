package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Agrid-Dev/housesim/internal/weather"
)

// Writes a sinusoidal weather year in the hourly CSV format housesim reads.
func main() {
	var (
		out  string
		p    weather.SyntheticParams
		site = weather.Site{ID: "synthetic"}
	)
	flag.StringVar(&out, "out", "synthetic.csv", "output file")
	flag.Float64Var(&site.Latitude, "lat", 38.5, "site latitude, degrees north")
	flag.Float64Var(&site.Longitude, "lon", -121.5, "site longitude, degrees east")
	flag.Float64Var(&site.TimeZone, "tz", -8, "time zone, hours from UTC")
	flag.Float64Var(&site.Elevation, "elevation", 0, "site elevation, m")
	flag.Float64Var(&p.MeanTemp, "mean", 15, "annual mean dry-bulb, C")
	flag.Float64Var(&p.AnnualSwing, "annual-swing", 10, "seasonal amplitude, K")
	flag.Float64Var(&p.DailySwing, "daily-swing", 6, "daily amplitude, K")
	flag.Float64Var(&p.RH, "rh", 55, "relative humidity, %")
	flag.Float64Var(&p.Wind, "wind", 3, "wind speed, m/s")
	flag.Float64Var(&p.WindDirection, "wind-direction", 225, "wind direction, degrees")
	flag.Float64Var(&p.PeakSolar, "peak-solar", 800, "direct normal irradiance at noon, W/m2")
	flag.Parse()
	p.Site = site

	if err := write(out, p); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func write(path string, p weather.SyntheticParams) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create weather file: %w", err)
	}
	if err := weather.WriteCSV(f, p.Site, p.Hour); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write weather: %w", err)
	}
	return f.Close()
}
