package airflow

import "errors"

var (
	ErrInvalidConvergence = errors.New("airflow tolerance, iterations and relaxation must be positive")
	ErrNoLeakage          = errors.New("house has no leakage path to outdoors")
)
