package simulation

import "github.com/Agrid-Dev/housesim/internal/equipment"

// Clock locates a minute in the run.
type Clock struct {
	Year   int  `json:"year"`
	Day    int  `json:"day"` // 1..365
	Hour   int  `json:"hour"`
	Minute int  `json:"minute"`
	Total  int  `json:"total"` // minutes since the start of the run
	Warmup bool `json:"warmup"`
}

// MinuteOfYear is the 0-based minute within the year.
func (c Clock) MinuteOfYear() int { return (c.Day-1)*1440 + c.Hour*60 + c.Minute }

// MinuteRecord is everything reported for one simulated minute.
// Temperatures are K, flows kg/s, powers W.
type MinuteRecord struct {
	House string `json:"house"`
	Clock

	WindSpeed   float64        `json:"wind_speed"`
	TempOut     float64        `json:"temp_out"`
	TempHouse   float64        `json:"temp_house"`
	Setpoint    float64        `json:"setpoint"`
	TempAttic   float64        `json:"temp_attic"`
	TempSupply  float64        `json:"temp_supply"`
	TempReturn  float64        `json:"temp_return"`
	Temps       [18]float64    `json:"temps"`
	Mode        equipment.Mode `json:"-"`
	ModeCode    int            `json:"ah_flag"`
	AHPower     float64        `json:"ah_power"`
	Compressor  float64        `json:"compressor_power"`
	MechVent    float64        `json:"mech_vent_power"`
	Gas         float64        `json:"gas"`
	Dehumidifer float64        `json:"dehumidifier_power"`
	SHR         float64        `json:"shr"`
	CoilWater   float64        `json:"coil_water"`

	HousePressure float64 `json:"house_pressure"`
	AtticPressure float64 `json:"attic_pressure"`
	QHouse        float64 `json:"q_house"` // m3/s
	HouseACH      float64 `json:"house_ach"`
	FlueACH       float64 `json:"flue_ach"`
	VentSum       float64 `json:"vent_sum"`
	NonRivecSum   float64 `json:"non_rivec_vent_sum"`
	Infiltration  float64 `json:"infiltration_ach"`
	TotalACH      float64 `json:"total_ach"`
	Fans          []bool  `json:"fans"`
	RivecOn       bool    `json:"rivec_on"`
	RelExp        float64 `json:"rel_exp"`
	RelDose       float64 `json:"rel_dose"`
	Occupied      bool    `json:"occupied"`
	Economizer    bool    `json:"economizer"`

	HROut         float64 `json:"hr_out"`
	HRAttic       float64 `json:"hr_attic"`
	HRReturn      float64 `json:"hr_return"`
	HRSupply      float64 `json:"hr_supply"`
	HRHouse       float64 `json:"hr_house"`
	RHHouse       float64 `json:"rh_house"`
	RHAttic       float64 `json:"rh_attic"`
	HumidityIndex float64 `json:"humidity_index"`
	DHCondensate  float64 `json:"dh_condensate"`
	// CoilCondensate drains off the cooling coil once it holds its cap, kg.
	CoilCondensate float64    `json:"coil_condensate"`
	Pollutant      float64    `json:"pollutant"`
	Mold           [3]float64 `json:"mold_index"`

	HouseIn   float64 `json:"m_house_in"`
	HouseOut  float64 `json:"m_house_out"`
	Ceiling   float64 `json:"m_ceiling"`
	AtticIn   float64 `json:"m_attic_in"`
	AtticOut  float64 `json:"m_attic_out"`
	SupplyReg float64 `json:"m_supply_reg"`
	ReturnReg float64 `json:"m_return_reg"`
	RhoOut    float64 `json:"-"`
	RhoHouse  float64 `json:"-"`
	RhoAttic  float64 `json:"-"`

	Moisture [10]MoistureNode `json:"moisture"`
}

// MoistureNode is the state of one moisture node.
type MoistureNode struct {
	Temp          float64 `json:"temp"`
	VaporPressure float64 `json:"pw"`
	Content       float64 `json:"content"` // MC for wood, %RH for air
	Condensed     float64 `json:"condensed"`
	// SaturatedMinutes since the start of the year.
	SaturatedMinutes int `json:"saturated_minutes"`
}

// FilterRecord is written once a simulated day.
type FilterRecord struct {
	House           string  `json:"house"`
	Year            int     `json:"year"`
	Day             int     `json:"day"`
	Mass            float64 `json:"mass"` // kg of air through the filter
	HeatingFlow     float64 `json:"heating_flow"`
	CoolingFlow     float64 `json:"cooling_flow"`
	FanPowerHeating float64 `json:"fan_power_heating"`
	FanPowerCooling float64 `json:"fan_power_cooling"`
	ReturnLeak      float64 `json:"return_leak_fraction"`
	Changes         int     `json:"changes"`
}

// AnnualSummary aggregates one reported year.
type AnnualSummary struct {
	House string `json:"house"`
	RunID string `json:"run_id"`
	Year  int    `json:"year"`

	TempOut   float64 `json:"mean_temp_out"`
	TempAttic float64 `json:"mean_temp_attic"`
	TempHouse float64 `json:"mean_temp_house"`
	HouseACH  float64 `json:"mean_house_ach"`
	FlueACH   float64 `json:"mean_flue_ach"`
	RelExp    float64 `json:"mean_rel_exp"`
	RelDose   float64 `json:"mean_rel_dose"`

	AirHandlerKWh   float64 `json:"ah_kwh"`
	CompressorKWh   float64 `json:"compressor_kwh"`
	MechVentKWh     float64 `json:"mech_vent_kwh"`
	FurnaceTherms   float64 `json:"furnace_therms"`
	DehumidifierKWh float64 `json:"dehumidifier_kwh"`
	TotalKWh        float64 `json:"total_kwh"`

	OccupiedMinutes int        `json:"occupied_minutes"`
	RivecMinutes    int        `json:"rivec_minutes"`
	RH60Minutes     int        `json:"rh60_minutes"`
	RH70Minutes     int        `json:"rh70_minutes"`
	RH60Fraction    float64    `json:"rh60_fraction"`
	RH70Fraction    float64    `json:"rh70_fraction"`
	HumidityIndex   float64    `json:"mean_humidity_index"`
	DryAirLoad      float64    `json:"dry_air_vent_load_kwh"`
	MoistAirLoad    float64    `json:"moist_air_vent_load_kwh"`
	DHCondensate    float64    `json:"dh_condensate_kg"`
	CoilCondensate  float64    `json:"coil_condensate_kg"`
	FilterChanges   int        `json:"filter_changes"`
	Mold            [3]float64 `json:"mold_index"`

	AirflowNonConverged int `json:"airflow_non_converged"`
	ThermalNonConverged int `json:"thermal_non_converged"`
}
