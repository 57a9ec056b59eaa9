// Package building describes a simulated house: geometry, envelope and attic
// leakage, ducts, equipment ratings and ventilation fans. A Building is read
// once per run and never mutated by the simulation.
package building

import (
	"fmt"
	"math"

	"github.com/Agrid-Dev/housesim/internal/psychro"
)

// Files names the per-house input files, relative to the configured
// weather and schedule directories.
type Files struct {
	Weather     string `yaml:"weather"`
	FanSchedule string `yaml:"fan_schedule"`
	Thermostat  string `yaml:"thermostat"`
	Occupancy   string `yaml:"occupancy"`
	Shelter     string `yaml:"shelter"`
}

type Flue struct {
	C      float64 `yaml:"c"`
	Height float64 `yaml:"height"`
	Temp   float64 `yaml:"temp"` // K, 0 tracks house air
}

// Pipe is a passive vent through a wall.
type Pipe struct {
	Wall       int     `yaml:"wall"`
	Height     float64 `yaml:"height"`
	Area       float64 `yaml:"area"`
	Exp        float64 `yaml:"n"`
	Shelter    float64 `yaml:"shelter"`
	ShelterOff float64 `yaml:"shelter_off"`
}

// Opening is a window or door gap.
type Opening struct {
	Wall   int     `yaml:"wall"`
	High   float64 `yaml:"high"`
	Wide   float64 `yaml:"wide"`
	Top    float64 `yaml:"top"`
	Bottom float64 `yaml:"bottom"`
}

type AtticVent struct {
	Wall   int     `yaml:"wall"` // 0..3 walls, 4 roof
	Height float64 `yaml:"height"`
	Area   float64 `yaml:"area"`
	Exp    float64 `yaml:"n"`
}

type AtticFan struct {
	Power float64 `yaml:"power"`
	Flow  float64 `yaml:"flow"` // m3/s, positive into the attic
	Oper  int     `yaml:"oper"`
}

// Fan is a house ventilation fan. Role names a ventilation role; Oper is the
// legacy numeric operation code and is used when Role is empty.
type Fan struct {
	Role  string  `yaml:"role"`
	Oper  int     `yaml:"oper"`
	Power float64 `yaml:"power"`
	Flow  float64 `yaml:"flow"` // m3/s, positive supply
}

type Geometry struct {
	FloorArea   float64 `yaml:"floor_area"`
	PlanArea    float64 `yaml:"plan_area"`
	HouseVolume float64 `yaml:"house_volume"`
	StoryHeight float64 `yaml:"story_height"`
	Stories     float64 `yaml:"stories"`
	EaveHeight  float64 `yaml:"eave_height"`
	FloorHeight float64 `yaml:"floor_height"`
	RowHouse    bool    `yaml:"row_house"`
	Crawlspace  bool    `yaml:"crawlspace"`
	Bedrooms    int     `yaml:"bedrooms"`
}

type Envelope struct {
	C   float64 `yaml:"c"`
	Exp float64 `yaml:"n"`

	// R is the ceiling plus floor leakage fraction, X their difference.
	R float64 `yaml:"r"`
	X float64 `yaml:"x"`

	WallFraction  [4]float64 `yaml:"wall_fraction"`
	FloorFraction [4]float64 `yaml:"floor_fraction"`

	Flues       []Flue    `yaml:"flues"`
	FlueShelter float64   `yaml:"flue_shelter"`
	Pipes       []Pipe    `yaml:"pipes"`
	Openings    []Opening `yaml:"openings"`

	UAWall   float64 `yaml:"ua_wall"`
	UAFloor  float64 `yaml:"ua_floor"`
	UAWindow float64 `yaml:"ua_window"`

	WindowEastWest float64 `yaml:"window_east_west"`
	WindowNorth    float64 `yaml:"window_north"`
	WindowSouth    float64 `yaml:"window_south"`
	ShadingCoef    float64 `yaml:"shading_coefficient"`

	CeilingRSI    float64 `yaml:"ceiling_rsi"`
	LatentLoad    float64 `yaml:"latent_load"` // kg/s
	InternalGains float64 `yaml:"internal_gains"`
}

type Attic struct {
	Volume float64 `yaml:"volume"`
	C      float64 `yaml:"c"`
	Exp    float64 `yaml:"n"`

	// SoffitFraction holds the four wall soffits then the ridge.
	SoffitFraction [5]float64 `yaml:"soffit_fraction"`
	SoffitHeight   [4]float64 `yaml:"soffit_height"`

	Vents []AtticVent `yaml:"vents"`
	Fans  []AtticFan  `yaml:"fans"`

	RoofPitch             float64 `yaml:"roof_pitch"` // degrees
	RoofPeakPerpendicular bool    `yaml:"roof_peak_perpendicular"`
	RoofPeakHeight        float64 `yaml:"roof_peak_height"`
	RoofIntRSI            float64 `yaml:"roof_int_rsi"`
	RoofIntThickness      float64 `yaml:"roof_int_thickness"`
	RoofExtRSI            float64 `yaml:"roof_ext_rsi"`
	GableEndRSI           float64 `yaml:"gable_end_rsi"`
	RoofType              int     `yaml:"roof_type"`
	RadiantBarrier        bool    `yaml:"radiant_barrier"`
}

// DuctLocation selects where the supply and return ducts run.
type DuctLocation int

const (
	DuctsInAttic DuctLocation = iota
	DuctsInHouse
)

func (l DuctLocation) String() string {
	if l == DuctsInHouse {
		return "house"
	}
	return "attic"
}

type Ducts struct {
	Location           DuctLocation `yaml:"location"`
	SupplyThickness    float64      `yaml:"supply_thickness"`
	ReturnThickness    float64      `yaml:"return_thickness"`
	SupplyRSI          float64      `yaml:"supply_rsi"`
	ReturnRSI          float64      `yaml:"return_rsi"`
	SupplyLeakFraction float64      `yaml:"supply_leak_fraction"`
	ReturnLeakFraction float64      `yaml:"return_leak_fraction"`
	SupplyLength       float64      `yaml:"supply_length"`
	ReturnLength       float64      `yaml:"return_length"`
	SupplyDiameter     float64      `yaml:"supply_diameter"`
	ReturnDiameter     float64      `yaml:"return_diameter"`

	// Power-law leakage of the duct system between house and attic while
	// the air handler is off.
	SupplyC   float64 `yaml:"supply_c"`
	SupplyExp float64 `yaml:"supply_n"`
	ReturnC   float64 `yaml:"return_c"`
	ReturnExp float64 `yaml:"return_n"`
}

type Equipment struct {
	CoolingFlow       float64 `yaml:"cooling_flow"` // m3/s
	HeatingFlow       float64 `yaml:"heating_flow"`
	FanPowerHeating   float64 `yaml:"fan_power_heating"`
	FanPowerCooling   float64 `yaml:"fan_power_cooling"`
	NominalTons       float64 `yaml:"nominal_tons"` // airflow correction basis
	RatedTons         float64 `yaml:"rated_tons"`
	EER               float64 `yaml:"eer"`
	Charge            float64 `yaml:"charge"`
	FurnaceCapacity   float64 `yaml:"furnace_capacity"` // kBtu/h input
	AFUE              float64 `yaml:"afue"`
	DehumCapacity     float64 `yaml:"dehumidifier_capacity"`      // pints/day
	DehumEnergyFactor float64 `yaml:"dehumidifier_energy_factor"` // L/kWh
	DehumSetpoint     float64 `yaml:"dehumidifier_setpoint"`      // %RH
}

type Filter struct {
	Enabled     bool `yaml:"enabled"`
	MERV        int  `yaml:"merv"`
	LoadingRate int  `yaml:"loading_rate"` // 0 low, 1 typical, 2 high
	BPMMotor    bool `yaml:"bpm_motor"`
}

type Infiltration struct {
	WindSpeedMultiplier float64 `yaml:"wind_speed_multiplier"`
	ShelterFactor       float64 `yaml:"shelter_factor"`
	StackCoef           float64 `yaml:"stack_coef"`
	WindCoef            float64 `yaml:"wind_coef"`
	WeatherFactor       float64 `yaml:"weather_factor"`
	RealTime            bool    `yaml:"real_time"`
}

type Ventilation struct {
	Fans          []Fan   `yaml:"fans"`
	Aeq           float64 `yaml:"aeq"` // 1/h
	ControlType   int     `yaml:"control_type"`
	RivecManaged  bool    `yaml:"rivec_managed"`
	AuxFans       bool    `yaml:"aux_fans"`
	ExposureLimit float64 `yaml:"exposure_limit"`
	HRVSensible   float64 `yaml:"hrv_ase"`
	ERVSensible   float64 `yaml:"erv_sre"`
	ERVTotal      float64 `yaml:"erv_tre"`
}

type Pollutant struct {
	OutdoorConc float64 `yaml:"outdoor_conc"`
	Source      float64 `yaml:"source"` // per second
	Penetration float64 `yaml:"penetration"`
	Deposition  float64 `yaml:"deposition"` // m3/s
	FilterEff   float64 `yaml:"filter_efficiency"`
}

// Building is the full static description of one house.
type Building struct {
	Name         string       `yaml:"name"`
	Files        Files        `yaml:"files"`
	Terrain      int          `yaml:"terrain"`
	Geometry     Geometry     `yaml:"geometry"`
	Envelope     Envelope     `yaml:"envelope"`
	Attic        Attic        `yaml:"attic"`
	Ducts        Ducts        `yaml:"ducts"`
	Equipment    Equipment    `yaml:"equipment"`
	Filter       Filter       `yaml:"filter"`
	Infiltration Infiltration `yaml:"infiltration"`
	Ventilation  Ventilation  `yaml:"ventilation"`
	Pollutant    Pollutant    `yaml:"pollutant"`
}

func (b *Building) Validate() error {
	g := b.Geometry
	if g.FloorArea <= 0 || g.PlanArea <= 0 || g.HouseVolume <= 0 {
		return fmt.Errorf("%w: floor area, plan area and volume must be positive", ErrInvalidGeometry)
	}
	if g.EaveHeight <= g.FloorHeight {
		return fmt.Errorf("%w: eave height %.2f below floor height %.2f", ErrInvalidGeometry, g.EaveHeight, g.FloorHeight)
	}
	if b.Attic.Volume <= 0 || b.Attic.RoofPitch <= 0 || b.Attic.RoofPitch >= 90 {
		return fmt.Errorf("%w: attic volume and roof pitch", ErrInvalidGeometry)
	}
	if b.Envelope.C < 0 || b.Envelope.Exp <= 0 || b.Envelope.Exp > 1 {
		return fmt.Errorf("%w: C=%v n=%v", ErrInvalidLeakage, b.Envelope.C, b.Envelope.Exp)
	}
	if b.Attic.C < 0 || b.Attic.Exp <= 0 || b.Attic.Exp > 1 {
		return fmt.Errorf("%w: attic C=%v n=%v", ErrInvalidLeakage, b.Attic.C, b.Attic.Exp)
	}
	if f := b.CeilingLeakFraction(); f < 0 || f > 1 || b.FloorLeakFraction() < 0 || b.WallLeakFraction() < 0 {
		return fmt.Errorf("%w: R=%v X=%v", ErrInvalidLeakage, b.Envelope.R, b.Envelope.X)
	}
	d := b.Ducts
	if d.SupplyLeakFraction < 0 || d.SupplyLeakFraction >= 1 || d.ReturnLeakFraction < 0 || d.ReturnLeakFraction >= 1 {
		return fmt.Errorf("%w: leak fractions must be in [0,1)", ErrInvalidDucts)
	}
	if d.SupplyDiameter <= 0 || d.ReturnDiameter <= 0 || d.SupplyLength <= 0 || d.ReturnLength <= 0 {
		return fmt.Errorf("%w: diameters and lengths must be positive", ErrInvalidDucts)
	}
	e := b.Equipment
	if e.CoolingFlow > 0 && (e.RatedTons <= 0 || e.EER <= 0 || e.NominalTons <= 0) {
		return fmt.Errorf("%w: tons=%v eer=%v", ErrZeroCoolingCapacity, e.RatedTons, e.EER)
	}
	if e.HeatingFlow > 0 && (e.FurnaceCapacity <= 0 || e.AFUE <= 0) {
		return fmt.Errorf("%w: capacity=%v afue=%v", ErrZeroHeatingCapacity, e.FurnaceCapacity, e.AFUE)
	}
	for i, f := range b.Ventilation.Fans {
		if f.Role == "" && f.Oper == 0 {
			return fmt.Errorf("%w: fan %d has neither role nor oper", ErrInvalidFan, i)
		}
	}
	return nil
}

func (b *Building) CeilingLeakFraction() float64 { return (b.Envelope.R + b.Envelope.X) / 2 }
func (b *Building) FloorLeakFraction() float64   { return (b.Envelope.R - b.Envelope.X) / 2 }
func (b *Building) WallLeakFraction() float64 {
	return 1 - b.CeilingLeakFraction() - b.FloorLeakFraction()
}

// SheathingArea is the area of one roof slope.
func (b *Building) SheathingArea() float64 {
	return b.Geometry.PlanArea / 2 / math.Cos(b.Attic.RoofPitch*math.Pi/180)
}

// BulkWoodArea is the surface area of attic framing.
func (b *Building) BulkWoodArea() float64 { return b.Geometry.PlanArea }

// HeatingCapacity is the furnace output in W.
func (b *Building) HeatingCapacity() float64 {
	return b.Equipment.FurnaceCapacity * 0.29307107 * 1000 * b.Equipment.AFUE
}

// ELA returns the effective leakage area (m2) at 4 Pa.
func (b *Building) ELA() float64 {
	return b.Envelope.C * math.Sqrt(psychro.AirDensityRef/2) * math.Pow(4, b.Envelope.Exp-0.5)
}

// NormalizedLeakage is the ASHRAE 62.2-2016 normalized leakage.
func (b *Building) NormalizedLeakage() float64 {
	h := b.Geometry.EaveHeight - b.Geometry.FloorHeight
	return 1000 * (b.ELA() / b.Geometry.FloorArea) * math.Pow(h/2.5, 0.4)
}

// AnnualInfiltration is the effective annual infiltration in L/s.
func (b *Building) AnnualInfiltration() float64 {
	return b.Infiltration.WeatherFactor * b.NormalizedLeakage() * b.Geometry.FloorArea / 1.44
}

// TargetACH returns the equivalent ventilation rate used by the exposure
// calculation. A configured Aeq wins; otherwise the 62.2-2016 total rate.
func (b *Building) TargetACH() float64 {
	if b.Ventilation.Aeq > 0 {
		return b.Ventilation.Aeq
	}
	q := 0.15*b.Geometry.FloorArea + 3.5*float64(b.Geometry.Bedrooms+1) // L/s
	return q * 3.6 / b.Geometry.HouseVolume
}

// AtticCharacteristicArea estimates the leakage area used for attic air
// velocities, falling back to the ceiling leak for unvented attics.
func (b *Building) AtticCharacteristicArea() float64 {
	al4 := b.Attic.C * math.Sqrt(psychro.AirDensityRef/2) * math.Pow(4, b.Attic.Exp-0.5)
	if al4 == 0 {
		al4 = b.Envelope.C * b.CeilingLeakFraction() * math.Sqrt(psychro.AirDensityRef/2) * math.Pow(4, b.Attic.Exp-0.5)
	}
	return al4
}

// EconomizerReliefC sizes the pressure relief opened while an economizer
// runs, for the larger air-handler flow at 2 Pa.
func (b *Building) EconomizerReliefC() float64 {
	q := math.Max(b.Equipment.CoolingFlow, b.Equipment.HeatingFlow)
	ela := q * math.Sqrt(psychro.AirDensityRef/(2*2))
	return ela * math.Sqrt(2/psychro.AirDensityRef) * math.Pow(4, 0.5-0.65)
}
