// Package weather reads annual weather files and serves per-minute records.
package weather

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/Agrid-Dev/housesim/internal/psychro"
)

const (
	HoursPerYear   = 8760
	MinutesPerYear = HoursPerYear * 60
)

// Site is the location metadata of a weather file.
type Site struct {
	ID        string
	TimeZone  float64
	Latitude  float64 // degrees
	Longitude float64 // degrees, negative west
	Elevation float64 // m
}

// Record is one minute of weather.
type Record struct {
	DryBulb          float64 // K
	RelativeHumidity float64 // %
	HumidityRatio    float64
	WindSpeed        float64 // m/s at the met station
	WindSpeedLocal   float64 // m/s at the building eave
	WindDirection    int     // compass degrees 0..360
	DirectNormal     float64 // W/m2
	GlobalHorizontal float64 // W/m2
	SkyCover         float64 // 0..1
	Pressure         float64 // Pa
}

// Source serves weather minute by minute for one year.
type Source interface {
	Site() Site
	Minute(minuteOfYear int) (Record, error)
	WindPressureExp() float64
}

type sample struct {
	dryBulbC  float64
	rh        float64
	wind      float64
	direction float64
	direct    float64
	global    float64
	sky       float64
	pressure  float64 // Pa
}

// File is a weather year held in memory. Hourly files are interpolated
// linearly between hours; minute files are served as-is.
type File struct {
	site    Site
	terrain Terrain
	rows    []sample
	perHour int
}

var columns = []string{
	"dry_bulb_c", "relative_humidity", "wind_speed", "wind_direction",
	"direct_normal", "global_horizontal", "sky_cover", "pressure_kpa",
}

// Open reads a weather CSV: a site row, a column header, then 8760 hourly
// or 525600 minute rows.
func Open(path string, terrain Terrain) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open weather %s: %w", path, err)
	}
	defer f.Close()

	w, err := Parse(f, terrain)
	if err != nil {
		return nil, fmt.Errorf("weather %s: %w", path, err)
	}
	return w, nil
}

func Parse(r io.Reader, terrain Terrain) (*File, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	siteRow, err := cr.Read()
	if err != nil || len(siteRow) < 6 || siteRow[0] != "site" {
		return nil, ErrMissingSite
	}
	site := Site{ID: siteRow[1]}
	vals, err := parseFloats(siteRow[2:6])
	if err != nil {
		return nil, fmt.Errorf("site row: %w", err)
	}
	site.TimeZone, site.Latitude, site.Longitude, site.Elevation = vals[0], vals[1], vals[2], vals[3]

	header, err := cr.Read()
	if err != nil || len(header) < len(columns) {
		return nil, ErrMissingHeader
	}
	for i, c := range columns {
		if strings.TrimSpace(header[i]) != c {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrMissingHeader, i, header[i], c)
		}
	}

	file := &File{site: site, terrain: terrain, rows: make([]sample, 0, HoursPerYear)}
	line := 2
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		v, err := parseFloats(rec[:min(len(rec), len(columns))])
		if err != nil || len(v) < len(columns) {
			return nil, fmt.Errorf("line %d: malformed row", line)
		}
		sky := v[6]
		if sky > 1 {
			sky /= 10
		}
		file.rows = append(file.rows, sample{
			dryBulbC: v[0], rh: v[1], wind: v[2], direction: v[3],
			direct: v[4], global: v[5], sky: sky, pressure: v[7] * 1000,
		})
	}

	switch len(file.rows) {
	case HoursPerYear:
		file.perHour = 1
	case MinutesPerYear:
		file.perHour = 60
	default:
		return nil, fmt.Errorf("%w: %d rows", ErrShortYear, len(file.rows))
	}
	return file, nil
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, s := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *File) Site() Site               { return f.site }
func (f *File) WindPressureExp() float64 { return f.terrain.WindPressureExp() }

// Minute returns the record for minute m of the year (0-based).
func (f *File) Minute(m int) (Record, error) {
	if m < 0 || m >= MinutesPerYear {
		return Record{}, fmt.Errorf("minute %d outside the year", m)
	}
	var s sample
	if f.perHour == 60 {
		s = f.rows[m]
	} else {
		h := m / 60
		next := min(h+1, len(f.rows)-1)
		frac := float64(m%60) / 60
		s = interpolate(f.rows[h], f.rows[next], frac)
	}
	return f.record(s), nil
}

func interpolate(a, b sample, frac float64) sample {
	lerp := func(x, y float64) float64 { return x + (y-x)*frac }
	return sample{
		dryBulbC:  lerp(a.dryBulbC, b.dryBulbC),
		rh:        lerp(a.rh, b.rh),
		wind:      lerp(a.wind, b.wind),
		direction: a.direction,
		direct:    lerp(a.direct, b.direct),
		global:    lerp(a.global, b.global),
		sky:       lerp(a.sky, b.sky),
		pressure:  lerp(a.pressure, b.pressure),
	}
}

func (f *File) record(s sample) Record {
	t := s.dryBulbC + psychro.CToK
	p := s.pressure
	if p <= 0 {
		p = psychro.PressureStd
	}
	dir := int(math.Round(s.direction))
	dir = ((dir % 361) + 361) % 361
	return Record{
		DryBulb:          t,
		RelativeHumidity: s.rh,
		HumidityRatio:    psychro.HumidityRatioFromRH(s.rh, t, p),
		WindSpeed:        s.wind,
		WindSpeedLocal:   f.terrain.Local(s.wind),
		WindDirection:    dir,
		DirectNormal:     math.Max(0, s.direct),
		GlobalHorizontal: math.Max(0, s.global),
		SkyCover:         s.sky,
		Pressure:         p,
	}
}

// WriteCSV writes hourly samples produced by gen in the format read by Parse.
func WriteCSV(w io.Writer, site Site, gen func(hour int) (dryBulbC, rh, wind, direction, direct, global, sky, pressureKPa float64)) error {
	cw := csv.NewWriter(w)
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	if err := cw.Write([]string{"site", site.ID, f(site.TimeZone), f(site.Latitude), f(site.Longitude), f(site.Elevation)}); err != nil {
		return err
	}
	if err := cw.Write(columns); err != nil {
		return err
	}
	for h := range HoursPerYear {
		tC, rh, ws, wd, dn, gh, sky, p := gen(h)
		if err := cw.Write([]string{f(tC), f(rh), f(ws), f(wd), f(dn), f(gh), f(sky), f(p)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
