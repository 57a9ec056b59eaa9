package simulation

import (
	"fmt"
	"math"

	"github.com/Agrid-Dev/housesim/internal/airflow"
	"github.com/Agrid-Dev/housesim/internal/thermal"
	"github.com/Agrid-Dev/housesim/internal/ventilation"
	"github.com/Agrid-Dev/housesim/internal/weather"
)

// coupled is the converged state of one minute.
type coupled struct {
	airflow airflow.Result
	flows   thermal.Flows
	temps   thermal.Temperatures

	airflowConverged bool
	thermalConverged bool
}

// converge alternates airflow and thermal solves until the attic air
// temperature settles. Temperatures always step from the previous minute;
// only the densities and stack driving the airflow move between iterations.
func (s *Simulator) converge(c Clock, w weather.Record, forced airflow.Forced, d ventilation.Dispatch,
	outdoor thermal.Outdoor, loads thermal.Loads, blowerOn bool,
) (coupled, error) {
	conv := s.params.Convergence
	out := coupled{airflowConverged: true, temps: s.temps}
	guess := s.temps
	delta := math.Inf(1)

	for it := 1; it <= conv.ThermalMaxIterations; it++ {
		bc := airflow.Boundary{
			WindSpeed:     w.WindSpeedLocal,
			WindDirection: float64(w.WindDirection),
			Shelter:       s.in.Shelter.Squared(w.WindDirection),
			PressureExp:   s.in.Weather.WindPressureExp(),
			TempOut:       w.DryBulb,
			TempHouse:     guess[thermal.HouseAir],
			TempAttic:     guess[thermal.AtticAir],
		}
		res := s.network.Solve(bc, forced, s.pressures)
		if !res.Converged && out.airflowConverged {
			out.airflowConverged = false
			s.log.Warn("airflow not converged",
				"hour", c.Hour, "minute", c.Minute, "loop", "airflow",
				"iterations", res.Iterations, "delta", res.Delta)
		}

		flows := thermal.Flows{
			AtticIn:        res.AtticIn,
			Ceiling:        res.CeilingTotal(),
			HouseIn:        math.Max(res.HouseIn-d.Recovered, 0),
			Recovered:      d.Recovered,
			RecoveryRatio:  d.RecoveryRatio,
			Ducts:          forced.Ducts,
			ReturnOutdoor:  d.ReturnOutdoor,
			ReturnRecovery: d.ReturnSensible,
		}
		tr, err := s.thermal.Solve(thermal.Inputs{Outdoor: outdoor, Flows: flows, Loads: loads, Blower: blowerOn}, s.temps)
		if err != nil {
			return out, fmt.Errorf("thermal: %w", err)
		}
		if tr.IllConditioned {
			s.log.Debug("thermal system ill-conditioned", "hour", c.Hour, "minute", c.Minute)
		}

		delta = math.Abs(tr.Temperatures[thermal.AtticAir] - guess[thermal.AtticAir])
		guess = tr.Temperatures
		out.airflow, out.flows, out.temps = res, flows, guess
		if delta < conv.AtticTempTolerance {
			out.thermalConverged = true
			return out, nil
		}
	}
	s.log.Warn("thermal not converged",
		"hour", c.Hour, "minute", c.Minute, "loop", "thermal",
		"iterations", conv.ThermalMaxIterations, "delta", delta)
	return out, nil
}
