package weather

import "math"

// SyntheticParams shapes a smooth sinusoidal weather year.
type SyntheticParams struct {
	Site          Site
	MeanTemp      float64 // °C
	AnnualSwing   float64 // K, amplitude of the seasonal cycle
	DailySwing    float64 // K, amplitude of the daily cycle
	RH            float64 // %
	Wind          float64 // m/s
	WindDirection float64 // degrees
	PeakSolar     float64 // W/m2 direct normal at noon
}

// Hour returns the synthetic weather of hour h of the year in CSV units.
func (p SyntheticParams) Hour(h int) (dryBulbC, rh, wind, direction, direct, global, sky, pressureKPa float64) {
	day := float64(h / 24)
	hod := float64(h % 24)
	dryBulbC = p.MeanTemp - p.AnnualSwing*math.Cos(2*math.Pi*(day-15)/365) +
		p.DailySwing*math.Cos(2*math.Pi*(hod-15)/24)
	if hod > 6 && hod < 18 {
		direct = p.PeakSolar * math.Sin(math.Pi*(hod-6)/12)
		global = 0.9 * direct * math.Sin(math.Pi*(hod-6)/12)
	}
	return dryBulbC, p.RH, p.Wind, p.WindDirection, direct, global, 0.2, standardKPa
}

const standardKPa = 101.325

// NewSynthetic builds an hourly File from p without touching the filesystem.
func NewSynthetic(p SyntheticParams, terrain Terrain) *File {
	f := &File{site: p.Site, terrain: terrain, perHour: 1, rows: make([]sample, HoursPerYear)}
	for h := range HoursPerYear {
		tC, rh, ws, wd, dn, gh, sky, kpa := p.Hour(h)
		f.rows[h] = sample{dryBulbC: tC, rh: rh, wind: ws, direction: wd, direct: dn, global: gh, sky: sky, pressure: kpa * 1000}
	}
	return f
}
