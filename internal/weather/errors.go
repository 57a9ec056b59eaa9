package weather

import "errors"

var (
	ErrMissingSite    = errors.New("weather file has no site row")
	ErrMissingHeader  = errors.New("weather file has no column header")
	ErrShortYear      = errors.New("weather file does not cover a full year")
	ErrInvalidTerrain = errors.New("terrain class must be 1..4")
)
