package simulation

import "fmt"

// Convergence holds the iteration policy of the coupled airflow and
// thermal solve.
type Convergence struct {
	AirflowTolerance     float64 `koanf:"airflow_tolerance"` // kg/s
	AirflowMaxIterations int     `koanf:"airflow_max_iterations"`
	AtticTempTolerance   float64 `koanf:"attic_temperature_tolerance"` // K
	ThermalMaxIterations int     `koanf:"thermal_max_iterations"`
	PressureRelaxation   float64 `koanf:"pressure_relaxation"`
}

type Params struct {
	WarmupYears           int     `koanf:"warmup_years"`
	AtticMCInit           float64 `koanf:"attic_mc_init"`
	HouseCapacitance      float64 `koanf:"house_capacitance"`
	DehumDeadBand         float64 `koanf:"dh_dead_band"` // %RH
	CapacityAdjustMinutes int     `koanf:"capacity_adjust_time"`
	ControlInterval       int     `koanf:"control_interval"` // minutes
	Hysteresis            float64 `koanf:"hysteresis"`       // K
	// AllYears reports every simulated year instead of only the last. It is
	// configured under output.
	AllYears bool `koanf:"-"`

	// Convergence is configured as its own section.
	Convergence Convergence `koanf:"-"`
}

func DefaultParams() Params {
	return Params{
		AtticMCInit:      0.15,
		HouseCapacitance: 10,
		DehumDeadBand:    5,
		ControlInterval:  10,
		Hysteresis:       0.5,
		Convergence: Convergence{
			AirflowTolerance:     1e-4,
			AirflowMaxIterations: 10,
			AtticTempTolerance:   0.2,
			ThermalMaxIterations: 10,
			PressureRelaxation:   0.6,
		},
	}
}

func (params *Params) Validate() error {
	if params.WarmupYears < 0 {
		return fmt.Errorf("%w: warmup years %d", ErrInvalidParams, params.WarmupYears)
	}
	if params.ControlInterval < 1 || 60%params.ControlInterval != 0 {
		return fmt.Errorf("%w: control interval %d must divide an hour", ErrInvalidParams, params.ControlInterval)
	}
	if params.CapacityAdjustMinutes < 0 {
		return fmt.Errorf("%w: capacity adjust time %d", ErrInvalidParams, params.CapacityAdjustMinutes)
	}
	c := params.Convergence
	if c.AtticTempTolerance <= 0 || c.ThermalMaxIterations < 1 {
		return fmt.Errorf("%w: thermal convergence %v/%d", ErrInvalidParams, c.AtticTempTolerance, c.ThermalMaxIterations)
	}
	return nil
}
