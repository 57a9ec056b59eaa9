package equipment

import "errors"

var (
	ErrInvalidMode         = errors.New("invalid air handler mode")
	ErrInvalidSeason       = errors.New("invalid season")
	ErrInvalidHysteresis   = errors.New("thermostat hysteresis must be positive")
	ErrInvalidCompressor   = errors.New("compressor needs positive tons and EER")
	ErrInvalidFurnace      = errors.New("furnace needs positive capacity and AFUE")
	ErrInvalidDehumidifier = errors.New("dehumidifier needs positive capacity and energy factor")
	ErrInvalidFilter       = errors.New("unsupported filter MERV or loading rate")
)
