package simulation

import (
	"github.com/Agrid-Dev/housesim/internal/equipment"
	"github.com/Agrid-Dev/housesim/internal/psychro"
)

const (
	seasonDays = 7
	// heatingThreshold is the 7-day mean outdoor temperature (60 F) at or
	// below which the house is in the heating season.
	heatingThreshold = 288.71
)

// seasonTracker keeps the daily mean outdoor temperatures of the last week.
// The first week of every year counts as heating.
type seasonTracker struct {
	daily  [seasonDays]float64
	days   int
	sum    float64
	count  int
	season equipment.Season
}

func newSeasonTracker() *seasonTracker {
	return &seasonTracker{season: equipment.SeasonHeating}
}

// add records one minute of outdoor temperature.
func (s *seasonTracker) add(tOut float64) {
	s.sum += tOut
	s.count++
}

// endDay closes the current day and re-evaluates the season.
func (s *seasonTracker) endDay() equipment.Season {
	mean := psychro.AirTempRef
	if s.count > 0 {
		mean = s.sum / float64(s.count)
	}
	s.daily[s.days%seasonDays] = mean
	s.days++
	s.sum, s.count = 0, 0

	if s.days < seasonDays {
		s.season = equipment.SeasonHeating
		return s.season
	}
	var week float64
	for _, t := range s.daily {
		week += t
	}
	if week/seasonDays <= heatingThreshold {
		s.season = equipment.SeasonHeating
	} else {
		s.season = equipment.SeasonCooling
	}
	return s.season
}

func (s *seasonTracker) resetYear() {
	*s = *newSeasonTracker()
}

func (s *seasonTracker) current() equipment.Season { return s.season }
