package equipment

type RegulatorParams struct {
	Hysteresis float64 // K either side of the setpoint
}

func (params *RegulatorParams) Validate() error {
	if params.Hysteresis <= 0 {
		return ErrInvalidHysteresis
	}
	return nil
}

// Regulator is the house thermostat. It switches heating or cooling on
// outside the hysteresis band and holds its last decision inside it. A
// heating cycle ends with one cooldown minute.
type Regulator struct {
	params  RegulatorParams
	season  Season
	calling bool
	prev    Mode
}

func NewRegulator(params RegulatorParams) (*Regulator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Regulator{params: params}, nil
}

// Activate returns the thermostat mode for the next minute.
func (r *Regulator) Activate(season Season, setpoint, ambient float64) Mode {
	if season != r.season {
		r.season = season
		r.calling = false
	}
	h := r.params.Hysteresis
	switch season {
	case SeasonHeating:
		if ambient < setpoint-h {
			r.calling = true
		} else if ambient > setpoint+h {
			r.calling = false
		}
	case SeasonCooling:
		if ambient > setpoint+h {
			r.calling = true
		} else if ambient < setpoint-h {
			r.calling = false
		}
	}

	mode := ModeOff
	switch {
	case r.calling && season == SeasonHeating:
		mode = ModeHeating
	case r.calling && season == SeasonCooling:
		mode = ModeCooling
	case r.prev == ModeHeating:
		mode = ModeHeatingCooldown
	}
	r.prev = mode
	return mode
}

// Calling reports whether the last decision asked for heating or cooling.
func (r *Regulator) Calling() bool { return r.calling }
