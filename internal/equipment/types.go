package equipment

import "fmt"

// Mode is the air handler state for one minute.
type Mode int

const (
	ModeOff Mode = iota
	ModeHeating
	ModeCooling
	ModeVenting
	ModeHeatingCooldown
)

func (m Mode) Valid() bool {
	return m >= ModeOff && m <= ModeHeatingCooldown
}

func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeHeating:
		return "heating"
	case ModeCooling:
		return "cooling"
	case ModeVenting:
		return "venting"
	case ModeHeatingCooldown:
		return "heating_cooldown"
	default:
		return "unknown"
	}
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "off":
		return ModeOff, nil
	case "heating":
		return ModeHeating, nil
	case "cooling":
		return ModeCooling, nil
	case "venting":
		return ModeVenting, nil
	case "heating_cooldown":
		return ModeHeatingCooldown, nil
	default:
		return ModeOff, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Code is the numeric flag written to minute output files.
func (m Mode) Code() int {
	switch m {
	case ModeHeating:
		return 1
	case ModeCooling:
		return 2
	case ModeVenting:
		return 100
	case ModeHeatingCooldown:
		return 102
	default:
		return 0
	}
}

// BlowerOn reports whether the air handler fan moves air.
func (m Mode) BlowerOn() bool { return m != ModeOff }

// Thermal reports whether the air handler runs for heating or cooling, as
// opposed to ventilation only.
func (m Mode) Thermal() bool {
	return m == ModeHeating || m == ModeCooling || m == ModeHeatingCooldown
}

// Season selects which thermostat schedule and equipment apply.
type Season int

const (
	SeasonHeating Season = iota + 1
	SeasonCooling
)

func (s Season) Valid() bool { return s == SeasonHeating || s == SeasonCooling }

func (s Season) String() string {
	switch s {
	case SeasonHeating:
		return "heating"
	case SeasonCooling:
		return "cooling"
	default:
		return "unknown"
	}
}

func ParseSeason(s string) (Season, error) {
	switch s {
	case "heating":
		return SeasonHeating, nil
	case "cooling":
		return SeasonCooling, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidSeason, s)
	}
}
