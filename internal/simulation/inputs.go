package simulation

import (
	"fmt"

	"github.com/Agrid-Dev/housesim/internal/building"
	"github.com/Agrid-Dev/housesim/internal/schedule"
	"github.com/Agrid-Dev/housesim/internal/weather"
)

// Inputs are the collaborators of one house run.
type Inputs struct {
	ID         string
	RunID      string
	Building   *building.Building
	Weather    weather.Source
	Thermostat *schedule.Thermostat
	Occupancy  *schedule.Occupancy
	Shelter    *schedule.Shelter
	// Fans is rewound by the caller for every simulated year; nil means no
	// scheduled fans.
	Fans func() (schedule.FanSchedule, error)
}

func (in *Inputs) validate() error {
	switch {
	case in.Building == nil:
		return fmt.Errorf("%w: building", ErrMissingInput)
	case in.Weather == nil:
		return fmt.Errorf("%w: weather", ErrMissingInput)
	case in.Thermostat == nil:
		return fmt.Errorf("%w: thermostat", ErrMissingInput)
	case in.Occupancy == nil:
		return fmt.Errorf("%w: occupancy", ErrMissingInput)
	case in.Shelter == nil:
		return fmt.Errorf("%w: shelter", ErrMissingInput)
	}
	return in.Building.Validate()
}
