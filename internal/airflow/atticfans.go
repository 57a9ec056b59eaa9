package airflow

import "github.com/Agrid-Dev/housesim/internal/building"

// AtticFanSetpoint is the attic air temperature above which thermostatic
// attic fans run, K.
const AtticFanSetpoint = 308.15

const (
	atticFanOff        = 0
	atticFanContinuous = 1
	atticFanThermostat = 2
)

// AtticFans returns the net attic fan flow into the attic (kg/s) and the
// electric power drawn (W).
func AtticFans(fans []building.AtticFan, tempAttic, density float64) (mass, power float64) {
	for _, f := range fans {
		switch f.Oper {
		case atticFanContinuous:
		case atticFanThermostat:
			if tempAttic <= AtticFanSetpoint {
				continue
			}
		default:
			continue
		}
		mass += f.Flow * density
		power += f.Power
	}
	return mass, power
}
