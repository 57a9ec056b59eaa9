package equipment

import "math"

// DuctFlows are air handler mass flows in kg/s. Supply terms are positive
// out of the duct, return terms negative into it.
type DuctFlows struct {
	AirHandler     float64
	SupplyRegister float64
	SupplyLeak     float64
	ReturnRegister float64
	ReturnLeak     float64
}

// NewDuctFlows splits the blower flow q (m3/s) between registers and leaks.
func NewDuctFlows(q, supplyLeakFraction, returnLeakFraction, density float64) DuctFlows {
	m := q * density
	return DuctFlows{
		AirHandler:     m,
		SupplyRegister: m * (1 - supplyLeakFraction),
		SupplyLeak:     m * supplyLeakFraction,
		ReturnRegister: -m * (1 - returnLeakFraction),
		ReturnLeak:     -m * returnLeakFraction,
	}
}

// Velocity is the mean air speed in a round duct, m/s.
func Velocity(massFlow, density, diameter float64) float64 {
	if density <= 0 || diameter <= 0 {
		return 0
	}
	return math.Abs(massFlow) / density / (math.Pi * diameter * diameter / 4)
}
