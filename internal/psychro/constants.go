package psychro

// Physical constants shared by the solvers. Temperatures are kelvin, pressures
// pascal, masses kilogram unless the name says otherwise.
const (
	CToK          = 273.15
	AirDensityRef = 1.20411 // kg/m3 at AirTempRef and sea level
	AirTempRef    = 293.15  // K
	Gravity       = 9.81
	StefanBoltz   = 5.6704e-8
	CpAir         = 1005.7 // J/kg/K
	CpVapor       = 1860.0 // J/kg/K
	LatentHeat    = 2501000.0
	PressureStd   = 101325.0
	RVapor        = 461.52 // J/kg/K
	MolarRatio    = 0.621945

	// Timestep is the simulation step in seconds.
	Timestep = 60.0
)
