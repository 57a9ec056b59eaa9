package simulation

import "errors"

var (
	ErrInvalidParams = errors.New("invalid simulation parameters")
	ErrMissingInput  = errors.New("missing simulation input")
)
