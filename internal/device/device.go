// Package device assembles one simulated house of a batch from its input
// files.
package device

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/Agrid-Dev/housesim/internal/building"
	"github.com/Agrid-Dev/housesim/internal/schedule"
	"github.com/Agrid-Dev/housesim/internal/simulation"
	"github.com/Agrid-Dev/housesim/internal/weather"
)

var ErrNoBuilding = errors.New("device: building path is required")

// Paths are the directories relative input names are resolved against.
type Paths struct {
	Input    string `koanf:"input"`
	Output   string `koanf:"output"`
	Weather  string `koanf:"weather"`
	Schedule string `koanf:"schedule"`
}

// Spec is one batch entry. Weather and FanSchedule override the names
// given by the building file.
type Spec struct {
	ID          string `koanf:"id"`
	Building    string `koanf:"building"`
	Weather     string `koanf:"weather"`
	FanSchedule string `koanf:"fan_schedule"`
}

type Device struct {
	ID     string
	RunID  string
	Inputs simulation.Inputs
}

// New loads every input of spec. Each failure names the file that caused it.
func New(spec Spec, paths Paths) (*Device, error) {
	if spec.Building == "" {
		return nil, ErrNoBuilding
	}
	b, err := building.Load(resolve(paths.Input, spec.Building))
	if err != nil {
		return nil, err
	}
	id := spec.ID
	if id == "" {
		id = b.Name
	}
	if id == "" {
		id = trimExt(filepath.Base(spec.Building))
	}

	terrain, err := weather.NewTerrain(b.Terrain, b.Geometry.EaveHeight)
	if err != nil {
		return nil, fmt.Errorf("house %s: %w", id, err)
	}
	weatherFile := pick(spec.Weather, b.Files.Weather)
	if weatherFile == "" {
		return nil, fmt.Errorf("house %s: %w: weather", id, simulation.ErrMissingInput)
	}
	wx, err := weather.Open(resolve(paths.Weather, weatherFile), terrain)
	if err != nil {
		return nil, fmt.Errorf("house %s: %w", id, err)
	}

	thermostat, err := schedule.LoadThermostat(resolve(paths.Schedule, b.Files.Thermostat))
	if err != nil {
		return nil, fmt.Errorf("house %s: thermostat: %w", id, err)
	}
	occupancy, err := schedule.LoadOccupancy(resolve(paths.Schedule, b.Files.Occupancy))
	if err != nil {
		return nil, fmt.Errorf("house %s: occupancy: %w", id, err)
	}
	shelter := schedule.UniformShelter(b.Infiltration.ShelterFactor)
	if b.Files.Shelter != "" {
		if shelter, err = schedule.LoadShelter(resolve(paths.Schedule, b.Files.Shelter)); err != nil {
			return nil, fmt.Errorf("house %s: shelter: %w", id, err)
		}
	}

	fanPath := pick(spec.FanSchedule, b.Files.FanSchedule)
	if fanPath != "" {
		fanPath = resolve(paths.Schedule, fanPath)
	}

	runID := uuid.NewString()
	return &Device{
		ID:    id,
		RunID: runID,
		Inputs: simulation.Inputs{
			ID:         id,
			RunID:      runID,
			Building:   b,
			Weather:    wx,
			Thermostat: thermostat,
			Occupancy:  occupancy,
			Shelter:    shelter,
			Fans: func() (schedule.FanSchedule, error) {
				return schedule.OpenFanSchedule(fanPath)
			},
		},
	}, nil
}

// Run simulates the house to completion.
func (d *Device) Run(ctx context.Context, params simulation.Params, opts simulation.Options) error {
	sim, err := simulation.New(d.Inputs, params, opts)
	if err != nil {
		return err
	}
	return sim.Run(ctx)
}

func resolve(dir, name string) string {
	if name == "" || filepath.IsAbs(name) || dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}

func pick(override, fallback string) string {
	if override != "" {
		return override
	}
	return fallback
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
