// Package schedule reads the hourly thermostat and occupancy tables, the
// wind shelter table and the minute-by-minute auxiliary fan schedule.
package schedule

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Agrid-Dev/housesim/internal/psychro"
)

var (
	ErrShortTable    = errors.New("schedule table is incomplete")
	ErrMalformedLine = errors.New("malformed schedule line")
)

const ShelterAngles = 361

// Thermostat holds hourly heating and cooling setpoints in K.
type Thermostat struct {
	Heat [24]float64
	Cool [24]float64
}

// Occupancy flags occupied hours, indexed by weekend (0 weekday, 1 weekend)
// then hour.
type Occupancy [2][24]bool

func (o *Occupancy) Occupied(weekend bool, hour int) bool {
	w := 0
	if weekend {
		w = 1
	}
	return o[w][hour]
}

// Shelter holds the per-wall shelter factor for each wind direction.
type Shelter [4][ShelterAngles]float64

// Squared returns Sw^2 for each wall at wind direction dir.
func (s *Shelter) Squared(dir int) [4]float64 {
	var out [4]float64
	dir = max(0, min(dir, ShelterAngles-1))
	for k := range out {
		out[k] = s[k][dir] * s[k][dir]
	}
	return out
}

// UniformShelter returns a table with the same factor for every wall and
// angle.
func UniformShelter(sw float64) *Shelter {
	var s Shelter
	for k := range s {
		for i := range s[k] {
			s[k][i] = sw
		}
	}
	return &s
}

// fields reads the next non-empty line split on whitespace.
func fields(sc *bufio.Scanner, want int) ([]float64, error) {
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < want {
			return nil, fmt.Errorf("%w: %q", ErrMalformedLine, line)
		}
		out := make([]float64, want)
		for i := range out {
			v, err := strconv.ParseFloat(parts[i], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrMalformedLine, line)
			}
			out[i] = v
		}
		return out, nil
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return nil, ErrShortTable
}

func skipHeader(sc *bufio.Scanner) error {
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return err
		}
		return ErrShortTable
	}
	return nil
}

// ParseThermostat reads a header line then 24 rows of heating and cooling
// setpoints in °F.
func ParseThermostat(r io.Reader) (*Thermostat, error) {
	sc := bufio.NewScanner(r)
	if err := skipHeader(sc); err != nil {
		return nil, err
	}
	var t Thermostat
	for h := range 24 {
		v, err := fields(sc, 2)
		if err != nil {
			return nil, fmt.Errorf("hour %d: %w", h, err)
		}
		t.Heat[h] = psychro.FToK(v[0])
		t.Cool[h] = psychro.FToK(v[1])
	}
	return &t, nil
}

// ParseOccupancy reads a header line then 24 rows of weekday and weekend
// 0/1 flags.
func ParseOccupancy(r io.Reader) (*Occupancy, error) {
	sc := bufio.NewScanner(r)
	if err := skipHeader(sc); err != nil {
		return nil, err
	}
	var o Occupancy
	for h := range 24 {
		v, err := fields(sc, 2)
		if err != nil {
			return nil, fmt.Errorf("hour %d: %w", h, err)
		}
		o[0][h] = v[0] != 0
		o[1][h] = v[1] != 0
	}
	return &o, nil
}

// ParseShelter reads 361 rows of angle and four wall shelter factors.
func ParseShelter(r io.Reader) (*Shelter, error) {
	sc := bufio.NewScanner(r)
	var s Shelter
	for i := range ShelterAngles {
		v, err := fields(sc, 5)
		if err != nil {
			return nil, fmt.Errorf("angle %d: %w", i, err)
		}
		for k := range 4 {
			s[k][i] = v[k+1]
		}
	}
	return &s, nil
}

func LoadThermostat(path string) (*Thermostat, error) {
	return load(path, ParseThermostat)
}

func LoadOccupancy(path string) (*Occupancy, error) {
	return load(path, ParseOccupancy)
}

func LoadShelter(path string) (*Shelter, error) {
	return load(path, ParseShelter)
}

func load[T any](path string, parse func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	v, err := parse(f)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}
